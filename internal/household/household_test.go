package household

import (
	"testing"
	"time"

	"balanced-meal-planner/internal/shared"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimeBudgetMaxMinutes(t *testing.T) {
	assert.Equal(t, 30, TimeExpress.MaxMinutes())
	assert.Equal(t, 60, TimeNormal.MaxMinutes())
	assert.Equal(t, 120, TimeLong.MaxMinutes())
	assert.Equal(t, 60, TimeBudget("").MaxMinutes())
}

func TestPreferencesValidate(t *testing.T) {
	tests := []struct {
		name    string
		prefs   Preferences
		wantErr bool
	}{
		{"zero value", Preferences{}, false},
		{"typical", Preferences{FishPerWeek: 2, VegetarianPerWeek: 3, RedMeatMax: 1, TimeBudget: TimeExpress}, false},
		{"negative fish", Preferences{FishPerWeek: -1}, true},
		{"negative vegetarian", Preferences{VegetarianPerWeek: -2}, true},
		{"negative red meat", Preferences{RedMeatMax: -1}, true},
		{"unknown budget", Preferences{TimeBudget: "slow"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.prefs.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, shared.IsInvalidInput(err))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestLatest(t *testing.T) {
	t0 := time.Date(2026, 1, 5, 12, 0, 0, 0, time.UTC)
	history := []Feedback{
		{RecipeID: "r1", RecipeName: "Gratin", Sentiment: Like, CreatedAt: t0},
		{RecipeID: "r2", RecipeName: "Curry", Sentiment: Dislike, CreatedAt: t0},
		{RecipeID: "r1", RecipeName: "Gratin", Sentiment: Dislike, CreatedAt: t0.Add(time.Hour)},
		{RecipeID: "r1", RecipeName: "Gratin", Sentiment: Like, CreatedAt: t0.Add(-time.Hour)},
	}

	t.Run("most recent by timestamp", func(t *testing.T) {
		f, ok := Latest(history, "r1", "Gratin")
		require.True(t, ok)
		assert.Equal(t, Dislike, f.Sentiment)
	})

	t.Run("later position wins without timestamps", func(t *testing.T) {
		f, ok := Latest([]Feedback{
			{RecipeID: "r3", Sentiment: Dislike},
			{RecipeID: "r3", Sentiment: Like},
		}, "r3", "")
		require.True(t, ok)
		assert.Equal(t, Like, f.Sentiment)
	})

	t.Run("name fallback when recipe has no id", func(t *testing.T) {
		f, ok := Latest(history, "", "curry")
		require.True(t, ok)
		assert.Equal(t, Dislike, f.Sentiment)
	})

	t.Run("no feedback", func(t *testing.T) {
		_, ok := Latest(history, "r9", "Tarte")
		assert.False(t, ok)

		_, ok = Latest(nil, "r1", "")
		assert.False(t, ok)
	})

	t.Run("unknown sentiments ignored", func(t *testing.T) {
		_, ok := Latest([]Feedback{{RecipeID: "r1", Sentiment: "meh"}}, "r1", "")
		assert.False(t, ok)
	})
}

func TestStock(t *testing.T) {
	s := NewStock("Pommes de terre", "  ", "oignon", "OIGNON", "Crème fraîche")

	assert.Equal(t, 3, s.Len())
	assert.True(t, s.Has("pommes de terre"))
	assert.True(t, s.Has("creme fraiche"))
	assert.False(t, s.Has("200g de pommes de terre"))

	assert.True(t, s.Covers("200g de pommes de terre"))
	assert.True(t, s.Covers("1 oignon émincé"))
	assert.False(t, s.Covers("carottes"))
	assert.False(t, s.Covers(""))

	assert.Equal(t, []string{"Crème fraîche", "Pommes de terre", "oignon"}, s.Names())

	var empty Stock
	assert.Equal(t, 0, empty.Len())
	assert.False(t, empty.Covers("oignon"))
}

package planner

import (
	"testing"
	"time"

	"balanced-meal-planner/internal/recipe"
	"balanced-meal-planner/internal/shared"
	"balanced-meal-planner/internal/taxonomy"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var monday = time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)

func TestNewWeekPlan(t *testing.T) {
	plan := NewWeekPlan("u1", monday.Add(15*time.Hour))

	assert.Equal(t, monday, plan.Start)
	assert.Equal(t, monday.AddDate(0, 0, 6), plan.End)
	assert.Equal(t, StatusDraft, plan.Status)
	require.Len(t, plan.Slots, 21)
	assert.Equal(t, Breakfast, plan.Slots[0].MealType)
	assert.Equal(t, Dinner, plan.Slots[20].MealType)
	assert.Equal(t, plan.End, plan.Slots[20].Date)
	assert.Equal(t, "Sunday dinner", plan.Slots[20].Label())
	assert.Equal(t, 0, plan.Filled())
}

func TestWeekPlanAssign(t *testing.T) {
	plan := NewWeekPlan("u1", monday)
	rec := &recipe.Candidate{ID: "1", Name: "Saumon", Protein: "saumon"}

	require.NoError(t, plan.Assign(2, Lunch, rec))
	rec.Name = "mutated"

	idx, err := plan.SlotIndex(2, Lunch)
	require.NoError(t, err)
	assert.Equal(t, 7, idx)
	assert.Equal(t, "Saumon", plan.Slots[idx].Recipe.Name)
	assert.Equal(t, 1, plan.Filled())
	assert.True(t, plan.Contains(recipe.Candidate{ID: "1"}))

	require.NoError(t, plan.Clear(2, Lunch))
	assert.Equal(t, 0, plan.Filled())

	err = plan.Assign(7, Lunch, rec)
	assert.True(t, shared.IsInvalidInput(err))
	err = plan.Assign(0, Lunch, &recipe.Candidate{})
	assert.True(t, shared.IsInvalidInput(err))
	_, err = plan.SlotIndex(0, MealType("brunch"))
	assert.True(t, shared.IsInvalidInput(err))

	require.NoError(t, plan.AssignSlot(20, rec))
	assert.Equal(t, "mutated", plan.Slots[20].Recipe.Name)
	assert.True(t, shared.IsInvalidInput(plan.AssignSlot(21, rec)))
}

func TestWeekPlanTally(t *testing.T) {
	plan := NewWeekPlan("u1", monday)
	require.NoError(t, plan.Assign(0, Dinner, &recipe.Candidate{Name: "a", Protein: "saumon"}))
	require.NoError(t, plan.Assign(1, Dinner, &recipe.Candidate{Name: "b", Protein: "cabillaud"}))
	require.NoError(t, plan.Assign(2, Dinner, &recipe.Candidate{Name: "c", Protein: "boeuf"}))
	require.NoError(t, plan.Assign(3, Dinner, &recipe.Candidate{Name: "d", Protein: "tofu"}))
	require.NoError(t, plan.Assign(4, Dinner, &recipe.Candidate{Name: "e", Protein: "mystere"}))

	tally := plan.Tally(taxonomy.Default())
	assert.Equal(t, 2, tally.Count(taxonomy.Fish))
	assert.Equal(t, 1, tally.Count(taxonomy.RedMeat))
	assert.Equal(t, 1, tally.Count(taxonomy.Vegetarian))
	assert.Equal(t, 1, tally.Count(taxonomy.Other))

	idx, _ := plan.SlotIndex(0, Dinner)
	assert.Equal(t, 1, plan.tallyExcept(taxonomy.Default(), idx).Count(taxonomy.Fish))
}

func TestParseMealType(t *testing.T) {
	for in, want := range map[string]MealType{
		"dinner":         Dinner,
		"Dîner":          Dinner,
		"déjeuner":       Lunch,
		"Petit-déjeuner": Breakfast,
		" BREAKFAST ":    Breakfast,
	} {
		got, err := ParseMealType(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseMealType("goûter")
	assert.True(t, shared.IsInvalidInput(err))
}

func TestParseDay(t *testing.T) {
	for in, want := range map[string]int{
		"monday":   0,
		"Lundi":    0,
		"mercredi": 2,
		"SUN":      6,
		"7":        6,
		"1":        0,
	} {
		got, err := ParseDay(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	for _, in := range []string{"0", "8", "someday", ""} {
		_, err := ParseDay(in)
		assert.True(t, shared.IsInvalidInput(err), in)
	}
}

func TestGetNextMonday(t *testing.T) {
	tests := []struct {
		name string
		in   time.Time
		want time.Time
	}{
		{"sunday", time.Date(2026, 10, 18, 22, 0, 0, 0, time.UTC), monday},
		{"wednesday", time.Date(2026, 10, 14, 8, 0, 0, 0, time.UTC), monday},
		{"monday goes to next week", monday.Add(9 * time.Hour), monday.AddDate(0, 0, 7)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetNextMonday(tt.in))
		})
	}
}

package shopping

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"balanced-meal-planner/internal/database"
	"balanced-meal-planner/internal/household"
	"balanced-meal-planner/internal/planner"
	"balanced-meal-planner/internal/recipe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPlan(t *testing.T) *planner.WeekPlan {
	t.Helper()
	plan := planner.NewWeekPlan("u1", time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC))
	plan.ID = "plan-1"
	require.NoError(t, plan.Assign(0, planner.Dinner, &recipe.Candidate{
		Name:        "Saumon",
		Ingredients: []string{"2 pavés de saumon", "Citron", "riz"},
	}))
	require.NoError(t, plan.Assign(1, planner.Dinner, &recipe.Candidate{
		Name:        "Risotto",
		Ingredients: []string{"riz", "Parmesan", "citron"},
	}))
	return plan
}

func TestBuildList(t *testing.T) {
	list := BuildList(testPlan(t), household.NewStock("riz"))

	assert.Equal(t, "plan-1", list.PlanID)
	assert.Equal(t, "u1", list.UserID)
	assert.Equal(t, []string{"2 pavés de saumon", "Citron", "Parmesan"}, list.Items)
	assert.Equal(t, []string{"riz"}, list.InStock)
}

func TestBuildListEmptyPlan(t *testing.T) {
	list := BuildList(planner.NewWeekPlan("u1", time.Now()), household.Stock{})
	assert.NotNil(t, list.Items)
	assert.Empty(t, list.Items)
}

func TestRepository(t *testing.T) {
	ctx := context.Background()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "shopping.db"))
	require.NoError(t, err)
	defer db.Close()
	repo := NewRepository(db.SQL)

	list := BuildList(testPlan(t), household.NewStock("riz"))
	id, err := repo.Save(ctx, list)
	require.NoError(t, err)
	assert.Positive(t, id)

	list.Items = append(list.Items, "beurre")
	id2, err := repo.Save(ctx, list)
	require.NoError(t, err)
	assert.Equal(t, id, id2)

	got, err := repo.GetByPlanID(ctx, "plan-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, list.Items, got.Items)
	assert.Equal(t, []string{"riz"}, got.InStock)

	require.NoError(t, repo.DeleteByPlanID(ctx, "plan-1"))
	got, err = repo.GetByPlanID(ctx, "plan-1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

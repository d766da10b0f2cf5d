package planner

import (
	"context"
	"errors"
	"testing"
	"time"

	"balanced-meal-planner/internal/household"
	"balanced-meal-planner/internal/recipe"
	"balanced-meal-planner/internal/scoring"
	"balanced-meal-planner/internal/taxonomy"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRecipes struct {
	recipes []recipe.Candidate
	err     error
}

func (m *mockRecipes) List(ctx context.Context) ([]recipe.Candidate, int, error) {
	return m.recipes, 0, m.err
}

type mockHousehold struct {
	prefs    household.Preferences
	feedback []household.Feedback
	stock    household.Stock
}

func (m *mockHousehold) GetPreferences(ctx context.Context, userID string) (household.Preferences, error) {
	return m.prefs, nil
}

func (m *mockHousehold) ListFeedback(ctx context.Context, userID string) ([]household.Feedback, error) {
	return m.feedback, nil
}

func (m *mockHousehold) GetStock(ctx context.Context, userID string) (household.Stock, error) {
	return m.stock, nil
}

type recordingObserver struct {
	operations []string
}

func (r *recordingObserver) ObserveScoring(operation string, candidates int, elapsed time.Duration) {
	r.operations = append(r.operations, operation)
}

func catalog() []recipe.Candidate {
	return []recipe.Candidate{
		{ID: "saumon", Name: "Saumon grillé", Protein: "saumon", PrepMinutes: 10, CookMinutes: 15, MealTypes: []string{"lunch", "dinner"}},
		{ID: "cabillaud", Name: "Cabillaud vapeur", Protein: "cabillaud", PrepMinutes: 10, CookMinutes: 10, MealTypes: []string{"dinner"}},
		{ID: "dahl", Name: "Dahl", Protein: "legumineuses", PrepMinutes: 10, CookMinutes: 30},
		{ID: "steak", Name: "Steak", Protein: "boeuf", PrepMinutes: 5, CookMinutes: 10, MealTypes: []string{"dinner"}},
		{ID: "poulet", Name: "Poulet curry", Protein: "poulet", PrepMinutes: 15, CookMinutes: 30, MealTypes: []string{"dinner"}},
		{ID: "granola", Name: "Granola", Protein: "vegetarien", PrepMinutes: 5, MealTypes: []string{"breakfast"}},
	}
}

func newTestPlanner(t *testing.T, prefs household.Preferences, opts ...Option) *Planner {
	t.Helper()
	engine, err := scoring.NewEngine(taxonomy.Default(), scoring.WithWorkers(2))
	require.NoError(t, err)
	return NewPlanner(engine, &mockRecipes{recipes: catalog()}, &mockHousehold{prefs: prefs}, opts...)
}

func TestSuggestForSlot(t *testing.T) {
	obs := &recordingObserver{}
	p := newTestPlanner(t, household.Preferences{FishPerWeek: 1, VegetarianPerWeek: 1, RedMeatMax: 1}, WithObserver(obs))

	plan := NewWeekPlan("u1", monday)
	require.NoError(t, plan.Assign(0, Lunch, &catalog()[0]))
	require.NoError(t, plan.Assign(0, Dinner, &catalog()[3]))
	idx, err := plan.SlotIndex(0, Dinner)
	require.NoError(t, err)

	ranked, err := p.SuggestForSlot(context.Background(), "u1", plan, idx, 3)
	require.NoError(t, err)
	require.Len(t, ranked, 3)

	// Fish is already met by Monday lunch, the steak itself is not counted.
	got := scoring.Candidates(ranked)
	assert.Equal(t, "dahl", got[0].ID)
	for _, r := range got {
		assert.NotEqual(t, "steak", r.ID)
	}
	assert.Equal(t, []string{"alternatives"}, obs.operations)
}

func TestSuggestForSlotErrors(t *testing.T) {
	p := newTestPlanner(t, household.Preferences{})
	plan := NewWeekPlan("u1", monday)

	_, err := p.SuggestForSlot(context.Background(), "u1", plan, 99, 3)
	require.Error(t, err)

	engine, _ := scoring.NewEngine(nil)
	failing := NewPlanner(engine, &mockRecipes{err: errors.New("db down")}, &mockHousehold{})
	_, err = failing.SuggestForSlot(context.Background(), "u1", plan, 0, 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load recipes")
}

func TestAutoFill(t *testing.T) {
	prefs := household.Preferences{FishPerWeek: 2, VegetarianPerWeek: 2, RedMeatMax: 1, ExcludedFoods: []string{"curry"}}
	p := newTestPlanner(t, prefs)
	plan := NewWeekPlan("u1", monday)

	filled, err := p.AutoFill(context.Background(), "u1", plan, Dinner)
	require.NoError(t, err)
	assert.Equal(t, DaysPerWeek, filled)

	for _, s := range plan.Slots {
		if s.MealType != Dinner {
			assert.True(t, s.Empty())
			continue
		}
		require.False(t, s.Empty())
		assert.NotEqual(t, "poulet", s.Recipe.ID, "excluded recipe was planned")
	}

	// The first picks cover the fish target before anything repeats.
	first := []string{plan.Slots[2].Recipe.ID, plan.Slots[5].Recipe.ID}
	assert.ElementsMatch(t, []string{"saumon", "cabillaud"}, first)

	tally := plan.Tally(taxonomy.Default())
	assert.GreaterOrEqual(t, tally.Count(taxonomy.Fish), 2)
}

func TestAutoFillKeepsPlannedSlots(t *testing.T) {
	p := newTestPlanner(t, household.Preferences{RedMeatMax: 7})
	plan := NewWeekPlan("u1", monday)
	require.NoError(t, plan.Assign(0, Breakfast, &recipe.Candidate{ID: "custom", Name: "Crêpes"}))

	filled, err := p.AutoFill(context.Background(), "u1", plan, Breakfast)
	require.NoError(t, err)
	assert.Equal(t, DaysPerWeek-1, filled)
	assert.Equal(t, "custom", plan.Slots[0].Recipe.ID)
}

func TestReview(t *testing.T) {
	prefs := household.Preferences{FishPerWeek: 2, VegetarianPerWeek: 1, RedMeatMax: 0}
	p := newTestPlanner(t, prefs, WithMinPlannedMeals(2))

	plan := NewWeekPlan("u1", monday)
	require.NoError(t, plan.Assign(0, Dinner, &catalog()[3]))
	require.NoError(t, plan.Assign(1, Dinner, &catalog()[2]))

	review, err := p.Review(context.Background(), "u1", plan)
	require.NoError(t, err)

	assert.False(t, review.Validation.Valid)
	assert.Len(t, review.Validation.Alerts, 2)
	assert.True(t, hasAlert(review.Validation.Alerts, "fish"))
	assert.True(t, hasAlert(review.Validation.Alerts, "red meat"))
	assert.Equal(t, []string{
		"add 2 fish meals (0/2 planned)",
		"reduce red meat by 1 meal (1 planned, max 0)",
	}, review.Suggestions)
}

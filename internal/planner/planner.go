package planner

import (
	"context"
	"fmt"
	"time"

	"balanced-meal-planner/internal/balance"
	"balanced-meal-planner/internal/household"
	"balanced-meal-planner/internal/recipe"
	"balanced-meal-planner/internal/scoring"
)

// RecipeLister provides the recipe pool.
type RecipeLister interface {
	List(ctx context.Context) ([]recipe.Candidate, int, error)
}

// HouseholdStore provides the per-user inputs of the scoring engine.
type HouseholdStore interface {
	GetPreferences(ctx context.Context, userID string) (household.Preferences, error)
	ListFeedback(ctx context.Context, userID string) ([]household.Feedback, error)
	GetStock(ctx context.Context, userID string) (household.Stock, error)
}

// Observer is notified after each engine run.
type Observer interface {
	ObserveScoring(operation string, candidates int, elapsed time.Duration)
}

// Planner builds and reviews week plans on top of the scoring engine.
type Planner struct {
	engine     *scoring.Engine
	recipes    RecipeLister
	households HouseholdStore
	minPlanned int
	observer   Observer
}

// Option configures a Planner.
type Option func(*Planner)

// WithMinPlannedMeals overrides MinPlannedMeals for Review.
func WithMinPlannedMeals(n int) Option {
	return func(p *Planner) {
		if n > 0 {
			p.minPlanned = n
		}
	}
}

// WithObserver reports engine runs to o.
func WithObserver(o Observer) Option {
	return func(p *Planner) { p.observer = o }
}

// NewPlanner creates a new Planner instance.
func NewPlanner(engine *scoring.Engine, recipes RecipeLister, households HouseholdStore, opts ...Option) *Planner {
	p := &Planner{
		engine:     engine,
		recipes:    recipes,
		households: households,
		minPlanned: MinPlannedMeals,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Engine returns the scoring engine in use.
func (p *Planner) Engine() *scoring.Engine { return p.engine }

type householdContext struct {
	prefs    household.Preferences
	feedback []household.Feedback
	stock    household.Stock
}

func (p *Planner) loadHousehold(ctx context.Context, userID string) (householdContext, error) {
	prefs, err := p.households.GetPreferences(ctx, userID)
	if err != nil {
		return householdContext{}, fmt.Errorf("failed to load preferences: %w", err)
	}
	feedback, err := p.households.ListFeedback(ctx, userID)
	if err != nil {
		return householdContext{}, fmt.Errorf("failed to load feedback: %w", err)
	}
	stock, err := p.households.GetStock(ctx, userID)
	if err != nil {
		return householdContext{}, fmt.Errorf("failed to load stock: %w", err)
	}
	return householdContext{prefs: prefs, feedback: feedback, stock: stock}, nil
}

func (p *Planner) loadPool(ctx context.Context) ([]recipe.Candidate, error) {
	pool, _, err := p.recipes.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load recipes: %w", err)
	}
	return pool, nil
}

// SuggestForSlot returns up to count replacements for the slot at slotIdx.
// The slot's own recipe is left out of both the tally and the result.
func (p *Planner) SuggestForSlot(ctx context.Context, userID string, plan *WeekPlan, slotIdx, count int) ([]scoring.Ranked, error) {
	slot, err := plan.Slot(slotIdx)
	if err != nil {
		return nil, err
	}
	hc, err := p.loadHousehold(ctx, userID)
	if err != nil {
		return nil, err
	}
	pool, err := p.loadPool(ctx)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	ranked, err := p.engine.Alternatives(ctx, scoring.AlternativesRequest{
		Current:     slot.Recipe,
		Pool:        pool,
		Preferences: hc.prefs,
		Feedback:    hc.feedback,
		Tally:       plan.tallyExcept(p.engine.Table(), slotIdx),
		Stock:       hc.stock,
		MealType:    string(slot.MealType),
		Count:       count,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate alternatives: %w", err)
	}
	p.observe("alternatives", len(pool), start)
	return ranked, nil
}

// AutoFill fills the empty slots of the given meal types (all when none are
// given) with the best-scoring recipe, one slot at a time so that each pick
// sees the balance of the previous ones. Recipes already in the week are
// only reused when nothing else is left. It returns the number of slots filled.
func (p *Planner) AutoFill(ctx context.Context, userID string, plan *WeekPlan, mealTypes ...MealType) (int, error) {
	hc, err := p.loadHousehold(ctx, userID)
	if err != nil {
		return 0, err
	}
	pool, err := p.loadPool(ctx)
	if err != nil {
		return 0, err
	}
	wanted := make(map[MealType]bool, len(mealTypes))
	for _, mt := range mealTypes {
		wanted[mt] = true
	}

	start := time.Now()
	filled := 0
	for i := range plan.Slots {
		slot := &plan.Slots[i]
		if !slot.Empty() || (len(wanted) > 0 && !wanted[slot.MealType]) {
			continue
		}
		ranked, err := p.engine.Alternatives(ctx, scoring.AlternativesRequest{
			Pool:        pool,
			Preferences: hc.prefs,
			Feedback:    hc.feedback,
			Tally:       plan.Tally(p.engine.Table()),
			Stock:       hc.stock,
			MealType:    string(slot.MealType),
			Count:       len(pool),
		})
		if err != nil {
			return filled, fmt.Errorf("failed to rank recipes for %s: %w", slot.Label(), err)
		}
		if pick := pickFresh(plan, ranked); pick != nil {
			cp := *pick
			slot.Recipe = &cp
			filled++
		}
	}
	p.observe("autofill", len(pool)*filled, start)
	return filled, nil
}

// pickFresh prefers the best recipe not yet in the week, then the best
// recipe at all. Excluded recipes are never picked.
func pickFresh(plan *WeekPlan, ranked []scoring.Ranked) *recipe.Candidate {
	var fallback *recipe.Candidate
	for i := range ranked {
		r := &ranked[i]
		if r.Result.Excluded {
			continue
		}
		if !plan.Contains(r.Recipe) {
			return &r.Recipe
		}
		if fallback == nil {
			fallback = &r.Recipe
		}
	}
	return fallback
}

// Review is the balance check of a week together with corrective hints.
type Review struct {
	Validation  ValidationResult `json:"validation"`
	Suggestions []string         `json:"suggestions"`
}

// Review validates the plan against the user's preferences.
func (p *Planner) Review(ctx context.Context, userID string, plan *WeekPlan) (Review, error) {
	prefs, err := p.households.GetPreferences(ctx, userID)
	if err != nil {
		return Review{}, fmt.Errorf("failed to load preferences: %w", err)
	}
	return p.ReviewWith(plan, prefs)
}

// ReviewWith validates the plan against explicit preferences.
func (p *Planner) ReviewWith(plan *WeekPlan, prefs household.Preferences) (Review, error) {
	validation, err := validateWeek(plan, prefs, p.engine.Table(), p.minPlanned)
	if err != nil {
		return Review{}, err
	}
	suggestions, err := balance.SuggestAdjustments(validation.Tally, prefs)
	if err != nil {
		return Review{}, err
	}
	return Review{Validation: validation, Suggestions: suggestions}, nil
}

func (p *Planner) observe(operation string, candidates int, start time.Time) {
	if p.observer != nil {
		p.observer.ObserveScoring(operation, candidates, time.Since(start))
	}
}

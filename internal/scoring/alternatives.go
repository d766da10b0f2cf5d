package scoring

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"balanced-meal-planner/internal/balance"
	"balanced-meal-planner/internal/household"
	"balanced-meal-planner/internal/recipe"
	"balanced-meal-planner/internal/shared"
)

// DefaultAlternatives is the number of alternatives returned when a caller
// has no preference.
const DefaultAlternatives = 3

// Ranked pairs a candidate with its score.
type Ranked struct {
	Recipe recipe.Candidate `json:"recipe"`
	Result Result           `json:"result"`
}

// Candidates strips the scores from ranked.
func Candidates(ranked []Ranked) []recipe.Candidate {
	out := make([]recipe.Candidate, len(ranked))
	for i, r := range ranked {
		out[i] = r.Recipe
	}
	return out
}

// AlternativesRequest carries the inputs of Engine.Alternatives.
type AlternativesRequest struct {
	// Current is the recipe being replaced; it never appears in the output.
	Current     *recipe.Candidate
	Pool        []recipe.Candidate
	Preferences household.Preferences
	Feedback    []household.Feedback
	Tally       balance.Tally
	Stock       household.Stock
	// MealType restricts the pool when set (e.g. "dinner").
	MealType string
	Count    int
}

// Alternatives filters the pool, scores every eligible recipe and returns
// the best Count, highest score first. Equal scores keep pool order.
func (e *Engine) Alternatives(ctx context.Context, req AlternativesRequest) ([]Ranked, error) {
	if req.Count < 0 {
		return nil, shared.NewInvalidInput("count", fmt.Sprintf("must be >= 0, got %d", req.Count))
	}
	if err := req.Preferences.Validate(); err != nil {
		return nil, err
	}
	if req.Count == 0 {
		return []Ranked{}, nil
	}

	eligible := FilterEligible(req.Pool, req.Preferences, req.MealType)
	if req.Current != nil {
		eligible = dropCurrent(eligible, *req.Current)
	}
	for i, r := range eligible {
		if err := r.Validate(); err != nil {
			return nil, fmt.Errorf("failed to score recipe #%d: %w", i, err)
		}
	}

	s := e.prepare(req.Preferences, req.Feedback, req.Tally, req.Stock)
	ranked, err := e.scoreAll(ctx, s, eligible)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Result.Score > ranked[j].Result.Score
	})
	if len(ranked) > req.Count {
		ranked = ranked[:req.Count]
	}
	return ranked, nil
}

// Rank scores every recipe of pool without filtering or truncating.
func (e *Engine) Rank(ctx context.Context, pool []recipe.Candidate, prefs household.Preferences, feedback []household.Feedback, tally balance.Tally, stock household.Stock) ([]Ranked, error) {
	if err := prefs.Validate(); err != nil {
		return nil, err
	}
	for i, r := range pool {
		if err := r.Validate(); err != nil {
			return nil, fmt.Errorf("failed to score recipe #%d: %w", i, err)
		}
	}
	ranked, err := e.scoreAll(ctx, e.prepare(prefs, feedback, tally, stock), pool)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Result.Score > ranked[j].Result.Score
	})
	return ranked, nil
}

func (e *Engine) scoreAll(ctx context.Context, s *scorer, pool []recipe.Candidate) ([]Ranked, error) {
	ranked := make([]Ranked, len(pool))
	if e.workers <= 1 || len(pool) < 2 {
		for i, r := range pool {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			ranked[i] = Ranked{Recipe: r, Result: s.score(r)}
		}
		return ranked, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i := range pool {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			ranked[i] = Ranked{Recipe: pool[i], Result: s.score(pool[i])}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return ranked, nil
}

func dropCurrent(pool []recipe.Candidate, current recipe.Candidate) []recipe.Candidate {
	out := make([]recipe.Candidate, 0, len(pool))
	for _, r := range pool {
		if r.SameAs(current) {
			continue
		}
		out = append(out, r)
	}
	return out
}

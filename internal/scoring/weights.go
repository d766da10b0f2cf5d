package scoring

import (
	"fmt"
	"sort"
	"strings"
)

// Score constants. They were picked by hand and have not been tuned against
// real household data; change them through configuration, not here.
const (
	BaseScore                  = 50
	FavoriteBonus              = 15
	LikeBonus                  = 10
	DislikePenalty             = 15
	FishUnderTargetBonus       = 15
	VegetarianUnderTargetBonus = 10
	RedMeatOverBudgetPenalty   = 15
	TimeBudgetPenalty          = 10
	BabyCompatibleBonus        = 5
	BabyInstructionsBonus      = 5
	BatchCookingBonus          = 5
	StockBonus                 = 10
	StockMinMatches            = 3

	MinScore = 0
	MaxScore = 100
)

// Weights groups the score constants so an Engine can be tuned without
// touching the rules. Penalties are stored as positive magnitudes.
type Weights struct {
	Base                       int
	FavoriteBonus              int
	LikeBonus                  int
	DislikePenalty             int
	FishUnderTargetBonus       int
	VegetarianUnderTargetBonus int
	RedMeatOverBudgetPenalty   int
	TimeBudgetPenalty          int
	BabyCompatibleBonus        int
	BabyInstructionsBonus      int
	BatchCookingBonus          int
	StockBonus                 int
	StockMinMatches            int
}

// DefaultWeights returns the built-in constants.
func DefaultWeights() Weights {
	return Weights{
		Base:                       BaseScore,
		FavoriteBonus:              FavoriteBonus,
		LikeBonus:                  LikeBonus,
		DislikePenalty:             DislikePenalty,
		FishUnderTargetBonus:       FishUnderTargetBonus,
		VegetarianUnderTargetBonus: VegetarianUnderTargetBonus,
		RedMeatOverBudgetPenalty:   RedMeatOverBudgetPenalty,
		TimeBudgetPenalty:          TimeBudgetPenalty,
		BabyCompatibleBonus:        BabyCompatibleBonus,
		BabyInstructionsBonus:      BabyInstructionsBonus,
		BatchCookingBonus:          BatchCookingBonus,
		StockBonus:                 StockBonus,
		StockMinMatches:            StockMinMatches,
	}
}

func (w *Weights) fields() map[string]*int {
	return map[string]*int{
		"base":                          &w.Base,
		"favorite_bonus":                &w.FavoriteBonus,
		"like_bonus":                    &w.LikeBonus,
		"dislike_penalty":               &w.DislikePenalty,
		"fish_under_target_bonus":       &w.FishUnderTargetBonus,
		"vegetarian_under_target_bonus": &w.VegetarianUnderTargetBonus,
		"red_meat_over_budget_penalty":  &w.RedMeatOverBudgetPenalty,
		"time_budget_penalty":           &w.TimeBudgetPenalty,
		"baby_compatible_bonus":         &w.BabyCompatibleBonus,
		"baby_instructions_bonus":       &w.BabyInstructionsBonus,
		"batch_cooking_bonus":           &w.BatchCookingBonus,
		"stock_bonus":                   &w.StockBonus,
		"stock_min_matches":             &w.StockMinMatches,
	}
}

// WithOverrides returns a copy of w with the given keys replaced, e.g.
// {"favorite_bonus": 20}. Unknown keys are an error.
func (w Weights) WithOverrides(overrides map[string]int) (Weights, error) {
	out := w
	fields := out.fields()
	for key, value := range overrides {
		ptr, ok := fields[strings.ToLower(key)]
		if !ok {
			known := make([]string, 0, len(fields))
			for k := range fields {
				known = append(known, k)
			}
			sort.Strings(known)
			return Weights{}, fmt.Errorf("unknown scoring weight %q (known: %s)", key, strings.Join(known, ", "))
		}
		*ptr = value
	}
	return out, out.Validate()
}

// Validate checks that magnitudes are non-negative and the base is in range.
func (w Weights) Validate() error {
	if w.Base < MinScore || w.Base > MaxScore {
		return fmt.Errorf("scoring weight base must be within [%d, %d], got %d", MinScore, MaxScore, w.Base)
	}
	for key, ptr := range w.fields() {
		if *ptr < 0 {
			return fmt.Errorf("scoring weight %s must be >= 0, got %d", key, *ptr)
		}
	}
	if w.StockMinMatches < 1 {
		return fmt.Errorf("scoring weight stock_min_matches must be >= 1, got %d", w.StockMinMatches)
	}
	return nil
}

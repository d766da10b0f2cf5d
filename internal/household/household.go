// Package household holds the caller-supplied inputs of the recommendation
// engine: standing preferences, recipe feedback and pantry stock.
package household

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"balanced-meal-planner/internal/shared"
	"balanced-meal-planner/internal/textmatch"

	"github.com/go-playground/validator/v10"
)

// TimeBudget is how long the household is willing to cook.
type TimeBudget string

const (
	TimeExpress TimeBudget = "express"
	TimeNormal  TimeBudget = "normal"
	TimeLong    TimeBudget = "long"
)

// MaxMinutes is the ceiling of the budget. Unknown budgets behave as normal.
func (b TimeBudget) MaxMinutes() int {
	switch b {
	case TimeExpress:
		return 30
	case TimeLong:
		return 120
	default:
		return 60
	}
}

// Preferences are a household's standing constraints and weekly targets.
type Preferences struct {
	FishPerWeek       int        `json:"poisson_par_semaine" validate:"gte=0"`
	VegetarianPerWeek int        `json:"vegetarien_par_semaine" validate:"gte=0"`
	RedMeatMax        int        `json:"viande_rouge_max" validate:"gte=0"`
	ExcludedFoods     []string   `json:"aliments_exclus,omitempty"`
	FavoriteFoods     []string   `json:"aliments_favoris,omitempty"`
	TimeBudget        TimeBudget `json:"temps_cuisine,omitempty" validate:"omitempty,oneof=express normal long"`
	HasBaby           bool       `json:"bebe,omitempty"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate rejects negative targets and unknown time budgets.
func (p Preferences) Validate() error {
	err := validate.Struct(p)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return shared.NewInvalidInput("preferences."+fe.Field(), fmt.Sprintf("failed %q (got %v)", fe.Tag(), fe.Value()))
	}
	return fmt.Errorf("failed to validate preferences: %w", err)
}

// Sentiment is the polarity of a feedback record.
type Sentiment string

const (
	Like    Sentiment = "like"
	Dislike Sentiment = "dislike"
)

// Feedback is one reaction of the household to a recipe.
type Feedback struct {
	RecipeID   string    `json:"recipe_id"`
	RecipeName string    `json:"recipe_name"`
	Sentiment  Sentiment `json:"sentiment"`
	CreatedAt  time.Time `json:"created_at"`
}

// Latest returns the most recent record for the recipe. Records are matched by
// id, or by name when the recipe has no id. Ties on CreatedAt go to the later
// record in the slice, so callers can pass history in chronological order
// without timestamps.
func Latest(history []Feedback, recipeID, recipeName string) (Feedback, bool) {
	var (
		best  Feedback
		found bool
	)
	for _, f := range history {
		if recipeID != "" {
			if f.RecipeID != recipeID {
				continue
			}
		} else if recipeName == "" || !strings.EqualFold(f.RecipeName, recipeName) {
			continue
		}
		if f.Sentiment != Like && f.Sentiment != Dislike {
			continue
		}
		if !found || !f.CreatedAt.Before(best.CreatedAt) {
			best = f
			found = true
		}
	}
	return best, found
}

// Stock is the set of ingredient names available in the pantry.
// Names are compared after textmatch normalisation.
type Stock struct {
	items map[string]string
}

// NewStock builds a snapshot from raw names, ignoring blanks and duplicates.
func NewStock(names ...string) Stock {
	s := Stock{items: make(map[string]string, len(names))}
	for _, n := range names {
		key := textmatch.Normalize(n)
		if key == "" {
			continue
		}
		if _, ok := s.items[key]; !ok {
			s.items[key] = strings.TrimSpace(n)
		}
	}
	return s
}

// Len is the number of distinct items.
func (s Stock) Len() int {
	return len(s.items)
}

// Has reports whether name is in stock (exact match after normalisation).
func (s Stock) Has(name string) bool {
	_, ok := s.items[textmatch.Normalize(name)]
	return ok
}

// Covers reports whether a free-text ingredient line mentions any stocked item,
// so "200g de pommes de terre" is covered by "pommes de terre".
func (s Stock) Covers(ingredient string) bool {
	n := textmatch.Normalize(ingredient)
	if n == "" {
		return false
	}
	for key := range s.items {
		if strings.Contains(n, key) {
			return true
		}
	}
	return false
}

// Names returns the original spellings sorted alphabetically.
func (s Stock) Names() []string {
	out := make([]string, 0, len(s.items))
	for _, v := range s.items {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

package scoring

import (
	"balanced-meal-planner/internal/household"
	"balanced-meal-planner/internal/recipe"
	"balanced-meal-planner/internal/textmatch"
)

// FilterEligible drops recipes whose name hits an excluded food and, when
// mealType is set, recipes declaring other meal types only. Recipes that
// declare no meal type are always kept. Order is preserved.
func FilterEligible(recipes []recipe.Candidate, prefs household.Preferences, mealType string) []recipe.Candidate {
	excluded := textmatch.Compile(prefs.ExcludedFoods)
	wanted := textmatch.Normalize(mealType)

	out := make([]recipe.Candidate, 0, len(recipes))
	for _, r := range recipes {
		if excluded.MatchAny(r.Name) {
			continue
		}
		if wanted != "" && r.HasMealTypes() && !servesMeal(r, wanted) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func servesMeal(r recipe.Candidate, normalized string) bool {
	for _, mt := range r.MealTypes {
		if textmatch.Normalize(mt) == normalized {
			return true
		}
	}
	return false
}

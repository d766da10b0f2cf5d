// Package balance tracks how many meals of each protein category a week
// already holds and compares the tally against household targets.
package balance

import (
	"fmt"

	"balanced-meal-planner/internal/household"
	"balanced-meal-planner/internal/taxonomy"
)

// Tally counts meals per balance category. Absent keys count as zero and
// negative counts are read as zero.
type Tally map[taxonomy.Category]int

// Count returns the number of meals for c.
func (t Tally) Count(c taxonomy.Category) int {
	return max(t[c], 0)
}

// Add returns a copy of t with one more meal in c. The receiver is not modified.
func (t Tally) Add(c taxonomy.Category) Tally {
	out := t.Clone()
	out[c] = out.Count(c) + 1
	return out
}

// Remove returns a copy of t with one meal less in c, floored at zero.
func (t Tally) Remove(c taxonomy.Category) Tally {
	out := t.Clone()
	if n := out.Count(c); n > 0 {
		out[c] = n - 1
	}
	return out
}

// Clone copies the tally.
func (t Tally) Clone() Tally {
	out := make(Tally, len(t)+1)
	for k, v := range t {
		out[k] = v
	}
	return out
}

// Total is the number of counted meals.
func (t Tally) Total() int {
	total := 0
	for _, c := range taxonomy.Categories {
		total += t.Count(c)
	}
	return total
}

// FromMap builds a tally from raw keys such as {"poisson": 1, "viande_rouge": 2}.
// Keys are resolved through the taxonomy, so protein ids and category names
// are both accepted; unknown keys land in Other.
func FromMap(raw map[string]int, table *taxonomy.Table) Tally {
	t := make(Tally, len(raw))
	for k, v := range raw {
		c := table.CategoryOf(k)
		t[c] = t.Count(c) + max(v, 0)
	}
	return t
}

// FromProteins tallies a list of protein ids, one meal each.
func FromProteins(proteins []string, table *taxonomy.Table) Tally {
	t := make(Tally)
	for _, p := range proteins {
		c := table.CategoryOf(p)
		t[c] = t.Count(c) + 1
	}
	return t
}

// SuggestAdjustments compares a tally against the household targets and
// returns at most one suggestion per category, in the order fish, vegetarian,
// red meat. It returns an empty slice when every target is met.
func SuggestAdjustments(t Tally, prefs household.Preferences) ([]string, error) {
	if err := prefs.Validate(); err != nil {
		return nil, err
	}

	suggestions := []string{}
	if missing := prefs.FishPerWeek - t.Count(taxonomy.Fish); missing > 0 {
		suggestions = append(suggestions, fmt.Sprintf("add %d fish %s (%d/%d planned)",
			missing, meals(missing), t.Count(taxonomy.Fish), prefs.FishPerWeek))
	}
	if missing := prefs.VegetarianPerWeek - t.Count(taxonomy.Vegetarian); missing > 0 {
		suggestions = append(suggestions, fmt.Sprintf("add %d vegetarian %s (%d/%d planned)",
			missing, meals(missing), t.Count(taxonomy.Vegetarian), prefs.VegetarianPerWeek))
	}
	if excess := t.Count(taxonomy.RedMeat) - prefs.RedMeatMax; excess > 0 {
		suggestions = append(suggestions, fmt.Sprintf("reduce red meat by %d %s (%d planned, max %d)",
			excess, meals(excess), t.Count(taxonomy.RedMeat), prefs.RedMeatMax))
	}
	return suggestions, nil
}

func meals(n int) string {
	if n == 1 {
		return "meal"
	}
	return "meals"
}

package shopping

import (
	"sort"
	"time"

	"balanced-meal-planner/internal/household"
	"balanced-meal-planner/internal/planner"
	"balanced-meal-planner/internal/textmatch"
)

// ShoppingList represents a shopping list for a week plan.
type ShoppingList struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"user_id"`
	PlanID    string    `json:"plan_id"`
	Items     []string  `json:"items"`
	InStock   []string  `json:"in_stock"`
	CreatedAt time.Time `json:"created_at"`
}

// BuildList gathers the ingredients of every planned recipe. Lines already
// covered by the pantry go to InStock instead of Items. Duplicates (after
// accent and case folding) are listed once; both lists are sorted.
func BuildList(plan *planner.WeekPlan, stock household.Stock) *ShoppingList {
	list := &ShoppingList{
		UserID:  plan.UserID,
		PlanID:  plan.ID,
		Items:   []string{},
		InStock: []string{},
	}

	seen := make(map[string]struct{})
	for _, rec := range plan.Recipes() {
		for _, ing := range rec.Ingredients {
			key := textmatch.Normalize(ing)
			if key == "" {
				continue
			}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}

			if stock.Covers(ing) {
				list.InStock = append(list.InStock, ing)
			} else {
				list.Items = append(list.Items, ing)
			}
		}
	}

	byKey := func(items []string) func(i, j int) bool {
		return func(i, j int) bool { return textmatch.Normalize(items[i]) < textmatch.Normalize(items[j]) }
	}
	sort.SliceStable(list.Items, byKey(list.Items))
	sort.SliceStable(list.InStock, byKey(list.InStock))
	return list
}

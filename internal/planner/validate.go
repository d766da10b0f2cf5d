package planner

import (
	"fmt"

	"balanced-meal-planner/internal/balance"
	"balanced-meal-planner/internal/household"
	"balanced-meal-planner/internal/shared"
	"balanced-meal-planner/internal/taxonomy"
)

// MinPlannedMeals is the number of planned meals below which a week is
// considered incomplete.
const MinPlannedMeals = 10

// ValidationResult is the outcome of ValidateWeek.
type ValidationResult struct {
	Valid   bool          `json:"valid"`
	Alerts  []string      `json:"alerts"`
	Planned int           `json:"planned"`
	Tally   balance.Tally `json:"tally"`
}

// ValidateWeek checks the plan against the household's weekly targets.
// Every failed check adds one alert; the week is valid when there are none.
func ValidateWeek(plan *WeekPlan, prefs household.Preferences, table *taxonomy.Table) (ValidationResult, error) {
	return validateWeek(plan, prefs, table, MinPlannedMeals)
}

func validateWeek(plan *WeekPlan, prefs household.Preferences, table *taxonomy.Table, minPlanned int) (ValidationResult, error) {
	if plan == nil {
		return ValidationResult{}, shared.NewInvalidInput("plan", "is nil")
	}
	if err := prefs.Validate(); err != nil {
		return ValidationResult{}, err
	}

	tally := plan.Tally(table)
	planned := plan.Filled()
	alerts := []string{}

	if planned < minPlanned {
		alerts = append(alerts, fmt.Sprintf("only %d meals planned (minimum %d)", planned, minPlanned))
	}
	if fish := tally.Count(taxonomy.Fish); fish < prefs.FishPerWeek {
		alerts = append(alerts, fmt.Sprintf("not enough fish: %d/%d this week", fish, prefs.FishPerWeek))
	}
	if veg := tally.Count(taxonomy.Vegetarian); veg < prefs.VegetarianPerWeek {
		alerts = append(alerts, fmt.Sprintf("not enough vegetarian meals: %d/%d this week", veg, prefs.VegetarianPerWeek))
	}
	if red := tally.Count(taxonomy.RedMeat); red > prefs.RedMeatMax {
		alerts = append(alerts, fmt.Sprintf("too much red meat: %d meals (max %d)", red, prefs.RedMeatMax))
	}

	return ValidationResult{
		Valid:   len(alerts) == 0,
		Alerts:  alerts,
		Planned: planned,
		Tally:   tally,
	}, nil
}

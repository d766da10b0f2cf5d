package assistant

import (
	"context"
	_ "embed"

	"balanced-meal-planner/internal/balance"
	"balanced-meal-planner/internal/household"
	"balanced-meal-planner/internal/scoring"
	"balanced-meal-planner/internal/taxonomy"
)

//go:embed alternatives_prompt.md
var alternativesPrompt string

var alternativesTemplate = mustTemplate("alternatives", alternativesPrompt)

type alternativesPromptData struct {
	Slot        string
	Preferences household.Preferences
	Fish        int
	Vegetarian  int
	RedMeat     int
	Ranked      []scoring.Ranked
}

// ExplainAlternatives narrates ranked alternatives for the named slot
// (e.g. "Monday dinner"). An empty ranking needs no model call.
func (a *Assistant) ExplainAlternatives(
	ctx context.Context,
	slot string,
	ranked []scoring.Ranked,
	prefs household.Preferences,
	tally balance.Tally,
) (Result, error) {
	if len(ranked) == 0 {
		return Result{
			Explanation: Explanation{Summary: "Aucune alternative ne correspond à vos préférences.", Highlights: []string{}},
			Meta:        Meta(AlternativesAgent, 0),
		}, nil
	}
	return a.run(ctx, AlternativesAgent, alternativesTemplate, alternativesPromptData{
		Slot:        slot,
		Preferences: prefs,
		Fish:        tally.Count(taxonomy.Fish),
		Vegetarian:  tally.Count(taxonomy.Vegetarian),
		RedMeat:     tally.Count(taxonomy.RedMeat),
		Ranked:      ranked,
	})
}

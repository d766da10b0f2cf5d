package assistant

import (
	"context"
	_ "embed"

	"balanced-meal-planner/internal/planner"
)

//go:embed week_review_prompt.md
var weekReviewPrompt string

var weekReviewTemplate = mustTemplate("weekreview", weekReviewPrompt)

type weekReviewPromptData struct {
	Start       string
	Planned     int
	Valid       bool
	Alerts      []string
	Suggestions []string
	Meals       []string
}

// ReviewWeek narrates a planner review of plan.
func (a *Assistant) ReviewWeek(ctx context.Context, plan *planner.WeekPlan, review planner.Review) (Result, error) {
	var meals []string
	for _, s := range plan.Slots {
		if !s.Empty() {
			meals = append(meals, s.Label()+": "+s.Recipe.DisplayName())
		}
	}
	return a.run(ctx, WeekReviewAgent, weekReviewTemplate, weekReviewPromptData{
		Start:       plan.Start.Format("02/01/2006"),
		Planned:     review.Validation.Planned,
		Valid:       review.Validation.Valid,
		Alerts:      review.Validation.Alerts,
		Suggestions: review.Suggestions,
		Meals:       meals,
	})
}

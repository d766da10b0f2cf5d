package assistant

import "balanced-meal-planner/internal/shared"

// Agent names recorded in execution metrics.
const (
	AlternativesAgent = "AlternativesExplainer"
	WeekReviewAgent   = "WeekReviewer"
	EngineAgent       = "ScoringEngine"
)

// Meta describes a run that made no model call.
func Meta(agent string, candidates int) shared.AgentMeta {
	return shared.AgentMeta{AgentName: agent, Candidates: candidates}
}

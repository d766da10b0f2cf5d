package scoring

import (
	"fmt"

	"balanced-meal-planner/internal/balance"
	"balanced-meal-planner/internal/household"
	"balanced-meal-planner/internal/recipe"
	"balanced-meal-planner/internal/taxonomy"
	"balanced-meal-planner/internal/textmatch"
)

// Rule identifies which scoring rule contributed to a Result.
type Rule string

const (
	RuleExcluded   Rule = "excluded"
	RuleFavorite   Rule = "favorite"
	RuleLike       Rule = "like"
	RuleDislike    Rule = "dislike"
	RuleFish       Rule = "fish_under_target"
	RuleVegetarian Rule = "vegetarian_under_target"
	RuleRedMeat    Rule = "red_meat_over_budget"
	RuleTime       Rule = "time_budget"
	RuleBaby       Rule = "baby_compatible"
	RuleBabyNotes  Rule = "baby_instructions"
	RuleBatch      Rule = "batch_cooking"
	RuleStock      Rule = "stock"
)

// Reasons attached to a Result. Only the most influential fired rule is named.
const (
	ReasonExcluded   = "excluded ingredient"
	ReasonFavorite   = "favorite ingredient"
	ReasonDislike    = "disliked previously"
	ReasonLike       = "liked previously"
	ReasonFish       = "fish under weekly target"
	ReasonVegetarian = "vegetarian under weekly target"
	ReasonRedMeat    = "over red-meat budget"
	ReasonTime       = "too long for time budget"
	ReasonStock      = "several ingredients in stock"
	ReasonStandard   = "standard match"
)

// Contribution is one fired rule and the points it added (negative for penalties).
type Contribution struct {
	Rule   Rule `json:"rule"`
	Points int  `json:"points"`
}

// Result is the outcome of scoring one recipe.
type Result struct {
	Score         int               `json:"score"`
	Reason        string            `json:"reason"`
	Category      taxonomy.Category `json:"category"`
	Excluded      bool              `json:"excluded,omitempty"`
	Contributions []Contribution    `json:"contributions,omitempty"`
}

// Fired reports whether rule contributed to the result.
func (r Result) Fired(rule Rule) bool {
	for _, c := range r.Contributions {
		if c.Rule == rule {
			return true
		}
	}
	return false
}

// Engine scores recipes against a household. It holds no mutable state and
// can be shared between goroutines.
type Engine struct {
	table   *taxonomy.Table
	weights Weights
	workers int
}

// Option configures an Engine.
type Option func(*Engine)

// WithWeights replaces the default weights.
func WithWeights(w Weights) Option {
	return func(e *Engine) { e.weights = w }
}

// WithWorkers bounds the number of goroutines used by Alternatives.
// Values below 1 mean sequential scoring.
func WithWorkers(n int) Option {
	return func(e *Engine) { e.workers = n }
}

// NewEngine builds an Engine. A nil table means taxonomy.Default().
func NewEngine(table *taxonomy.Table, opts ...Option) (*Engine, error) {
	if table == nil {
		table = taxonomy.Default()
	}
	e := &Engine{
		table:   table,
		weights: DefaultWeights(),
		workers: 1,
	}
	for _, opt := range opts {
		opt(e)
	}
	if err := e.weights.Validate(); err != nil {
		return nil, fmt.Errorf("failed to create scoring engine: %w", err)
	}
	if e.workers < 1 {
		e.workers = 1
	}
	return e, nil
}

var defaultEngine = &Engine{table: taxonomy.Default(), weights: DefaultWeights(), workers: 1}

// Score scores rec with the default taxonomy and weights.
func Score(rec recipe.Candidate, prefs household.Preferences, feedback []household.Feedback, tally balance.Tally, stock household.Stock) (Result, error) {
	return defaultEngine.Score(rec, prefs, feedback, tally, stock)
}

// Weights returns the weights in use.
func (e *Engine) Weights() Weights { return e.weights }

// Table returns the taxonomy in use.
func (e *Engine) Table() *taxonomy.Table { return e.table }

// Score computes a 0-100 score for rec. Only malformed input is an error.
func (e *Engine) Score(rec recipe.Candidate, prefs household.Preferences, feedback []household.Feedback, tally balance.Tally, stock household.Stock) (Result, error) {
	if err := rec.Validate(); err != nil {
		return Result{}, err
	}
	if err := prefs.Validate(); err != nil {
		return Result{}, err
	}
	return e.prepare(prefs, feedback, tally, stock).score(rec), nil
}

// scorer holds the per-household state shared by every recipe of a batch.
type scorer struct {
	table     *taxonomy.Table
	weights   Weights
	prefs     household.Preferences
	excluded  textmatch.Patterns
	favorites textmatch.Patterns
	feedback  []household.Feedback
	tally     balance.Tally
	stock     household.Stock
}

func (e *Engine) prepare(prefs household.Preferences, feedback []household.Feedback, tally balance.Tally, stock household.Stock) *scorer {
	return &scorer{
		table:     e.table,
		weights:   e.weights,
		prefs:     prefs,
		excluded:  textmatch.Compile(prefs.ExcludedFoods),
		favorites: textmatch.Compile(prefs.FavoriteFoods),
		feedback:  feedback,
		tally:     tally,
		stock:     stock,
	}
}

func (s *scorer) score(rec recipe.Candidate) Result {
	w := s.weights
	category := s.table.CategoryOf(rec.Protein)
	texts := append([]string{rec.Name}, rec.Ingredients...)

	if s.excluded.MatchAny(texts...) {
		return Result{
			Score:         MinScore,
			Reason:        ReasonExcluded,
			Category:      category,
			Excluded:      true,
			Contributions: []Contribution{{Rule: RuleExcluded, Points: -w.Base}},
		}
	}

	var fired []Contribution
	add := func(rule Rule, points int) {
		fired = append(fired, Contribution{Rule: rule, Points: points})
	}

	if s.favorites.MatchAny(texts...) {
		add(RuleFavorite, w.FavoriteBonus)
	}

	if fb, ok := household.Latest(s.feedback, rec.ID, rec.Name); ok {
		switch fb.Sentiment {
		case household.Like:
			add(RuleLike, w.LikeBonus)
		case household.Dislike:
			add(RuleDislike, -w.DislikePenalty)
		}
	}

	switch category {
	case taxonomy.Fish:
		if s.tally.Count(taxonomy.Fish) < s.prefs.FishPerWeek {
			add(RuleFish, w.FishUnderTargetBonus)
		}
	case taxonomy.Vegetarian:
		if s.tally.Count(taxonomy.Vegetarian) < s.prefs.VegetarianPerWeek {
			add(RuleVegetarian, w.VegetarianUnderTargetBonus)
		}
	case taxonomy.RedMeat:
		if s.tally.Count(taxonomy.RedMeat) >= s.prefs.RedMeatMax {
			add(RuleRedMeat, -w.RedMeatOverBudgetPenalty)
		}
	}

	if rec.TotalMinutes() > s.prefs.TimeBudget.MaxMinutes() {
		add(RuleTime, -w.TimeBudgetPenalty)
	}

	if s.prefs.HasBaby && rec.BabyCompatible {
		add(RuleBaby, w.BabyCompatibleBonus)
		if rec.BabyInstructions {
			add(RuleBabyNotes, w.BabyInstructionsBonus)
		}
	}

	if rec.BatchCooking {
		add(RuleBatch, w.BatchCookingBonus)
	}

	if s.stockMatches(rec.Ingredients) >= w.StockMinMatches {
		add(RuleStock, w.StockBonus)
	}

	total := w.Base
	for _, c := range fired {
		total += c.Points
	}

	return Result{
		Score:         clamp(total),
		Reason:        reasonFor(fired),
		Category:      category,
		Contributions: fired,
	}
}

func (s *scorer) stockMatches(ingredients []string) int {
	if s.stock.Len() == 0 {
		return 0
	}
	n := 0
	for _, ing := range ingredients {
		if s.stock.Covers(ing) {
			n++
		}
	}
	return n
}

// reasonPrecedence lists reason-bearing rules from most to least influential.
// Baby and batch bonuses never name the reason.
var reasonPrecedence = []struct {
	rule   Rule
	reason string
}{
	{RuleFavorite, ReasonFavorite},
	{RuleDislike, ReasonDislike},
	{RuleLike, ReasonLike},
	{RuleFish, ReasonFish},
	{RuleVegetarian, ReasonVegetarian},
	{RuleRedMeat, ReasonRedMeat},
	{RuleTime, ReasonTime},
	{RuleStock, ReasonStock},
}

func reasonFor(fired []Contribution) string {
	for _, p := range reasonPrecedence {
		for _, c := range fired {
			if c.Rule == p.rule {
				return p.reason
			}
		}
	}
	return ReasonStandard
}

func clamp(v int) int {
	if v < MinScore {
		return MinScore
	}
	if v > MaxScore {
		return MaxScore
	}
	return v
}

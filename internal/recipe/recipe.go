package recipe

import (
	"strings"

	"balanced-meal-planner/internal/shared"
)

// Difficulty is a coarse effort tier.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Candidate is a recipe as the planner sees it. Every field except one of
// ID/Name is optional and zero values mean "absent".
type Candidate struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	Protein          string     `json:"protein,omitempty"`
	PrepMinutes      int        `json:"prep_minutes,omitempty"`
	CookMinutes      int        `json:"cook_minutes,omitempty"`
	Servings         int        `json:"servings,omitempty"`
	Difficulty       Difficulty `json:"difficulty,omitempty"`
	BabyCompatible   bool       `json:"baby_compatible,omitempty"`
	BabyInstructions bool       `json:"baby_instructions,omitempty"`
	BatchCooking     bool       `json:"batch_cooking,omitempty"`
	Ingredients      []string   `json:"ingredients,omitempty"`
	MealTypes        []string   `json:"meal_types,omitempty"`
	UpdatedAt        string     `json:"updated_at,omitempty"`
}

// PostData is the raw source handed to the extractor.
type PostData struct {
	ID        string
	Title     string
	UpdatedAt string
	HTML      string
}

// Validate checks the only mandatory attribute: an identity.
func (c Candidate) Validate() error {
	if strings.TrimSpace(c.ID) == "" && strings.TrimSpace(c.Name) == "" {
		return shared.NewInvalidInput("recipe", "has neither id nor name")
	}
	return nil
}

// TotalMinutes is preparation plus cooking time; negative parts count as zero.
func (c Candidate) TotalMinutes() int {
	return max(c.PrepMinutes, 0) + max(c.CookMinutes, 0)
}

// DisplayName prefers the name and falls back to the id.
func (c Candidate) DisplayName() string {
	if c.Name != "" {
		return c.Name
	}
	return c.ID
}

// SameAs reports whether two candidates share an identity. IDs win when both
// are set; otherwise names are compared case-insensitively.
func (c Candidate) SameAs(other Candidate) bool {
	if c.ID != "" && other.ID != "" {
		return c.ID == other.ID
	}
	return c.Name != "" && strings.EqualFold(c.Name, other.Name)
}

// HasMealTypes reports whether the recipe declares slot compatibility.
func (c Candidate) HasMealTypes() bool {
	for _, m := range c.MealTypes {
		if strings.TrimSpace(m) != "" {
			return true
		}
	}
	return false
}

package planner

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"balanced-meal-planner/internal/balance"
	"balanced-meal-planner/internal/recipe"
	"balanced-meal-planner/internal/shared"
	"balanced-meal-planner/internal/taxonomy"
	"balanced-meal-planner/internal/textmatch"
)

// DaysPerWeek is the number of days covered by a WeekPlan.
const DaysPerWeek = 7

// MealType is one of the meals of a day.
type MealType string

const (
	Breakfast MealType = "breakfast"
	Lunch     MealType = "lunch"
	Dinner    MealType = "dinner"
)

// MealTypes lists the meals of a day in serving order.
var MealTypes = []MealType{Breakfast, Lunch, Dinner}

var mealTypeAliases = map[string]MealType{
	"breakfast":      Breakfast,
	"petit dejeuner": Breakfast,
	"petit-dejeuner": Breakfast,
	"lunch":          Lunch,
	"dejeuner":       Lunch,
	"dinner":         Dinner,
	"diner":          Dinner,
	"souper":         Dinner,
}

// ParseMealType accepts English and French meal names.
func ParseMealType(s string) (MealType, error) {
	if mt, ok := mealTypeAliases[textmatch.Normalize(s)]; ok {
		return mt, nil
	}
	return "", shared.NewInvalidInput("meal_type", fmt.Sprintf("unknown meal type %q", s))
}

var dayAliases = map[string]int{
	"monday": 0, "lundi": 0, "mon": 0, "lun": 0,
	"tuesday": 1, "mardi": 1, "tue": 1, "mar": 1,
	"wednesday": 2, "mercredi": 2, "wed": 2, "mer": 2,
	"thursday": 3, "jeudi": 3, "thu": 3, "jeu": 3,
	"friday": 4, "vendredi": 4, "fri": 4, "ven": 4,
	"saturday": 5, "samedi": 5, "sat": 5, "sam": 5,
	"sunday": 6, "dimanche": 6, "sun": 6, "dim": 6,
}

// ParseDay returns the day offset from a Monday-based week start. It accepts
// English and French day names and 1-7 (1 = Monday).
func ParseDay(s string) (int, error) {
	key := textmatch.Normalize(s)
	if d, ok := dayAliases[key]; ok {
		return d, nil
	}
	if n, err := strconv.Atoi(key); err == nil && n >= 1 && n <= DaysPerWeek {
		return n - 1, nil
	}
	return -1, shared.NewInvalidInput("day", fmt.Sprintf("unknown day %q", s))
}

// PlanStatus represents the lifecycle state of a week plan.
type PlanStatus string

const (
	StatusDraft PlanStatus = "DRAFT"
	StatusFinal PlanStatus = "FINAL"
)

// MealSlot is one meal of the week. Recipe is nil while the slot is empty.
type MealSlot struct {
	Date     time.Time         `json:"date"`
	MealType MealType          `json:"meal_type"`
	Recipe   *recipe.Candidate `json:"recipe,omitempty"`
}

// Empty reports whether no recipe is planned for the slot.
func (s MealSlot) Empty() bool {
	return s.Recipe == nil
}

// Label is a short human name such as "Monday dinner".
func (s MealSlot) Label() string {
	return s.Date.Weekday().String() + " " + string(s.MealType)
}

// WeekPlan represents a full week of meals for one household.
type WeekPlan struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	Start     time.Time  `json:"start"`
	End       time.Time  `json:"end"`
	Status    PlanStatus `json:"status"`
	Slots     []MealSlot `json:"slots"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// NewWeekPlan creates an empty draft starting on the date of start.
func NewWeekPlan(userID string, start time.Time) *WeekPlan {
	day := truncateDay(start)
	plan := &WeekPlan{
		UserID: userID,
		Start:  day,
		End:    day.AddDate(0, 0, DaysPerWeek-1),
		Status: StatusDraft,
		Slots:  make([]MealSlot, 0, DaysPerWeek*len(MealTypes)),
	}
	for d := 0; d < DaysPerWeek; d++ {
		date := day.AddDate(0, 0, d)
		for _, mt := range MealTypes {
			plan.Slots = append(plan.Slots, MealSlot{Date: date, MealType: mt})
		}
	}
	return plan
}

// SlotIndex returns the index of the slot for day (0 = Start) and meal type.
func (p *WeekPlan) SlotIndex(day int, mt MealType) (int, error) {
	if day < 0 || day >= DaysPerWeek {
		return -1, shared.NewInvalidInput("day", fmt.Sprintf("must be within [0, %d], got %d", DaysPerWeek-1, day))
	}
	date := p.Start.AddDate(0, 0, day)
	for i, s := range p.Slots {
		if s.MealType == mt && s.Date.Equal(date) {
			return i, nil
		}
	}
	return -1, shared.NewInvalidInput("meal_type", fmt.Sprintf("no %s slot on day %d", mt, day))
}

// Slot returns a pointer to the slot at idx.
func (p *WeekPlan) Slot(idx int) (*MealSlot, error) {
	if idx < 0 || idx >= len(p.Slots) {
		return nil, shared.NewInvalidInput("slot", fmt.Sprintf("index %d out of range", idx))
	}
	return &p.Slots[idx], nil
}

// Assign plans rec for the given day and meal. A nil rec clears the slot.
func (p *WeekPlan) Assign(day int, mt MealType, rec *recipe.Candidate) error {
	idx, err := p.SlotIndex(day, mt)
	if err != nil {
		return err
	}
	return p.AssignSlot(idx, rec)
}

// AssignSlot plans rec for the slot at idx. A nil rec clears the slot.
func (p *WeekPlan) AssignSlot(idx int, rec *recipe.Candidate) error {
	slot, err := p.Slot(idx)
	if err != nil {
		return err
	}
	if rec != nil {
		if err := rec.Validate(); err != nil {
			return err
		}
		cp := *rec
		rec = &cp
	}
	slot.Recipe = rec
	return nil
}

// Clear empties the slot for the given day and meal.
func (p *WeekPlan) Clear(day int, mt MealType) error {
	return p.Assign(day, mt, nil)
}

// Filled counts the slots with a recipe.
func (p *WeekPlan) Filled() int {
	n := 0
	for _, s := range p.Slots {
		if !s.Empty() {
			n++
		}
	}
	return n
}

// Recipes returns the planned recipes in slot order.
func (p *WeekPlan) Recipes() []recipe.Candidate {
	var out []recipe.Candidate
	for _, s := range p.Slots {
		if !s.Empty() {
			out = append(out, *s.Recipe)
		}
	}
	return out
}

// Tally counts the planned meals per protein category.
func (p *WeekPlan) Tally(table *taxonomy.Table) balance.Tally {
	return p.tallyExcept(table, -1)
}

func (p *WeekPlan) tallyExcept(table *taxonomy.Table, skip int) balance.Tally {
	proteins := make([]string, 0, len(p.Slots))
	for i, s := range p.Slots {
		if i == skip || s.Empty() {
			continue
		}
		proteins = append(proteins, s.Recipe.Protein)
	}
	return balance.FromProteins(proteins, table)
}

// Contains reports whether rec is already planned somewhere in the week.
func (p *WeekPlan) Contains(rec recipe.Candidate) bool {
	for _, s := range p.Slots {
		if !s.Empty() && s.Recipe.SameAs(rec) {
			return true
		}
	}
	return false
}

// String renders the plan as one line per planned meal.
func (p *WeekPlan) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Week of %s\n", p.Start.Format("Mon 02 Jan 2006"))
	for _, s := range p.Slots {
		name := "-"
		if !s.Empty() {
			name = s.Recipe.DisplayName()
		}
		fmt.Fprintf(&b, "%-20s %s\n", s.Label(), name)
	}
	return b.String()
}

// GetNextMonday returns the next Monday after t, at midnight UTC.
// On a Monday it returns the Monday of the following week.
func GetNextMonday(t time.Time) time.Time {
	daysUntil := (int(time.Monday) - int(t.Weekday()) + 7) % 7
	if daysUntil == 0 {
		daysUntil = 7
	}
	return truncateDay(t.AddDate(0, 0, daysUntil))
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

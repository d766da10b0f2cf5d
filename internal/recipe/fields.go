package recipe

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// Field aliases accepted by FromFields. Both the English column names and the
// French ones found in older exports are recognised.
var fieldAliases = map[string][]string{
	"id":                {"id", "recipe_id"},
	"name":              {"name", "nom", "title", "titre"},
	"protein":           {"protein", "proteine", "type_proteine", "protein_type"},
	"prep_minutes":      {"prep_minutes", "temps_preparation", "prep_time"},
	"cook_minutes":      {"cook_minutes", "temps_cuisson", "cook_time"},
	"servings":          {"servings", "portions", "nb_portions"},
	"difficulty":        {"difficulty", "difficulte"},
	"baby_compatible":   {"baby_compatible", "compatible_bebe"},
	"baby_instructions": {"baby_instructions", "instructions_bebe"},
	"batch_cooking":     {"batch_cooking", "compatible_batch_cooking", "batch_cooking_compatible"},
	"ingredients":       {"ingredients"},
	"meal_types":        {"meal_types", "types_repas", "type_repas"},
	"updated_at":        {"updated_at", "source_updated_at"},
}

// FromFields builds a Candidate from an unordered field bag, such as a decoded
// JSON object or a database row map. Missing or malformed optional fields fall
// back to their zero value; only a missing identity is an error.
//
// Prep and cook times are minutes. Text values may carry a unit in English or
// French: "20", "20 min", "20 minutes", "1h", "1h30", "1 h 15 min",
// "1.5 hours", "2 heures".
func FromFields(fields map[string]any) (Candidate, error) {
	get := func(name string) (any, bool) {
		for _, alias := range fieldAliases[name] {
			if v, ok := fields[alias]; ok && v != nil {
				return v, true
			}
		}
		return nil, false
	}

	var c Candidate
	if v, ok := get("id"); ok {
		c.ID = asString(v)
	}
	if v, ok := get("name"); ok {
		c.Name = asString(v)
	}
	if v, ok := get("protein"); ok {
		c.Protein = asString(v)
	}
	if v, ok := get("prep_minutes"); ok {
		c.PrepMinutes = asInt(v)
	}
	if v, ok := get("cook_minutes"); ok {
		c.CookMinutes = asInt(v)
	}
	if v, ok := get("servings"); ok {
		c.Servings = asInt(v)
	}
	if v, ok := get("difficulty"); ok {
		c.Difficulty = Difficulty(strings.ToLower(asString(v)))
	}
	if v, ok := get("baby_compatible"); ok {
		c.BabyCompatible = asBool(v)
	}
	if v, ok := get("baby_instructions"); ok {
		c.BabyInstructions = asBool(v)
	}
	if v, ok := get("batch_cooking"); ok {
		c.BatchCooking = asBool(v)
	}
	if v, ok := get("ingredients"); ok {
		c.Ingredients = asStrings(v)
	}
	if v, ok := get("meal_types"); ok {
		c.MealTypes = asStrings(v)
	}
	if v, ok := get("updated_at"); ok {
		c.UpdatedAt = asString(v)
	}

	c.ID = strings.TrimSpace(c.ID)
	c.Name = strings.TrimSpace(c.Name)
	if err := c.Validate(); err != nil {
		return Candidate{}, err
	}
	return c, nil
}

func asString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case fmt.Stringer:
		return t.String()
	case int, int32, int64, float64, float32, bool:
		return fmt.Sprint(t)
	}
	return ""
}

func asInt(v any) int {
	switch t := v.(type) {
	case int:
		return t
	case int32:
		return int(t)
	case int64:
		return int(t)
	case float32:
		return int(t)
	case float64:
		return int(t)
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return int(n)
		}
		if f, err := t.Float64(); err == nil {
			return int(f)
		}
	case string:
		return parseMinutes(t)
	}
	return 0
}

var durationPart = regexp.MustCompile(`(\d+(?:[.,]\d+)?)\s*(hours?|hrs?|heures?|h|minutes?|mins?|mn|m|')?`)

// parseMinutes sums the number and unit pairs of s. A bare number following
// an hour part ("1h30") is minutes, as is a bare number on its own.
func parseMinutes(s string) int {
	total := 0.0
	for _, m := range durationPart.FindAllStringSubmatch(strings.ToLower(s), -1) {
		n, err := strconv.ParseFloat(strings.Replace(m[1], ",", ".", 1), 64)
		if err != nil {
			continue
		}
		switch unit := m[2]; {
		case strings.HasPrefix(unit, "h"):
			total += n * 60
		default:
			total += n
		}
	}
	return int(math.Round(total))
}

// asBool treats non-empty text as true so that a free-text "instructions_bebe"
// column counts as "has baby instructions".
func asBool(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case int:
		return t != 0
	case int64:
		return t != 0
	case float64:
		return t != 0
	case string:
		s := strings.TrimSpace(strings.ToLower(t))
		switch s {
		case "", "0", "false", "non", "no":
			return false
		}
		return true
	}
	return false
}

func asStrings(v any) []string {
	var raw []string
	switch t := v.(type) {
	case []string:
		raw = t
	case []any:
		for _, item := range t {
			if m, ok := item.(map[string]any); ok {
				for _, key := range []string{"name", "nom"} {
					if s, ok := m[key]; ok {
						raw = append(raw, asString(s))
						break
					}
				}
				continue
			}
			raw = append(raw, asString(item))
		}
	case string:
		raw = strings.Split(t, ",")
	}

	out := make([]string, 0, len(raw))
	for _, s := range raw {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Package taxonomy maps protein identifiers to the balance categories used
// for weekly variety tracking. A Table is immutable once built and may be
// shared freely between goroutines.
package taxonomy

import (
	"fmt"

	"balanced-meal-planner/internal/textmatch"
)

// Category is the nutritional bucket a protein falls into.
type Category string

const (
	Fish       Category = "fish"
	RedMeat    Category = "red_meat"
	Vegetarian Category = "vegetarian"
	Other      Category = "other"
)

// Categories lists every category in display order.
var Categories = []Category{Fish, Vegetarian, RedMeat, Other}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case Fish, RedMeat, Vegetarian, Other:
		return true
	}
	return false
}

// Label returns the human wording used in alerts ("red meat" rather than "red_meat").
func (c Category) Label() string {
	switch c {
	case Fish:
		return "fish"
	case RedMeat:
		return "red meat"
	case Vegetarian:
		return "vegetarian"
	default:
		return "other"
	}
}

// Entry describes one protein. Icon is display-only.
type Entry struct {
	ID       string   `koanf:"id"`
	Label    string   `koanf:"label"`
	Icon     string   `koanf:"icon"`
	Category Category `koanf:"category"`
}

// Table is a read-only protein lookup.
type Table struct {
	entries []Entry
	byKey   map[string]int
}

// New builds a Table. Duplicate ids and unknown categories are rejected.
func New(entries []Entry) (*Table, error) {
	t := &Table{
		entries: make([]Entry, 0, len(entries)),
		byKey:   make(map[string]int, len(entries)),
	}
	for _, e := range entries {
		key := textmatch.Key(e.ID)
		if key == "" {
			return nil, fmt.Errorf("taxonomy entry %q has an empty id", e.Label)
		}
		if !e.Category.Valid() {
			return nil, fmt.Errorf("taxonomy entry %q has unknown category %q", e.ID, e.Category)
		}
		if _, dup := t.byKey[key]; dup {
			return nil, fmt.Errorf("taxonomy entry %q is duplicated", e.ID)
		}
		e.ID = key
		t.byKey[key] = len(t.entries)
		t.entries = append(t.entries, e)
	}
	return t, nil
}

// CategoryOf resolves a protein identifier. Unknown or empty ids resolve to
// Other; a category name resolves to itself.
func (t *Table) CategoryOf(proteinID string) Category {
	key := textmatch.Key(proteinID)
	if key == "" {
		return Other
	}
	if t != nil {
		if i, ok := t.byKey[key]; ok {
			return t.entries[i].Category
		}
	}
	if c := Category(key); c.Valid() {
		return c
	}
	return Other
}

// Lookup returns the entry for proteinID.
func (t *Table) Lookup(proteinID string) (Entry, bool) {
	if t == nil {
		return Entry{}, false
	}
	i, ok := t.byKey[textmatch.Key(proteinID)]
	if !ok {
		return Entry{}, false
	}
	return t.entries[i], true
}

// Entries returns a copy of the table in declaration order.
func (t *Table) Entries() []Entry {
	if t == nil {
		return nil
	}
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

var defaultEntries = []Entry{
	{ID: "poisson", Label: "Poisson", Icon: "🐟", Category: Fish},
	{ID: "saumon", Label: "Saumon", Icon: "🐟", Category: Fish},
	{ID: "thon", Label: "Thon", Icon: "🐟", Category: Fish},
	{ID: "cabillaud", Label: "Cabillaud", Icon: "🐟", Category: Fish},
	{ID: "crevettes", Label: "Crevettes", Icon: "🦐", Category: Fish},
	{ID: "fruits_de_mer", Label: "Fruits de mer", Icon: "🦪", Category: Fish},
	{ID: "viande_rouge", Label: "Viande rouge", Icon: "🥩", Category: RedMeat},
	{ID: "boeuf", Label: "Bœuf", Icon: "🥩", Category: RedMeat},
	{ID: "porc", Label: "Porc", Icon: "🐖", Category: RedMeat},
	{ID: "agneau", Label: "Agneau", Icon: "🐑", Category: RedMeat},
	{ID: "veau", Label: "Veau", Icon: "🥩", Category: RedMeat},
	{ID: "vegetarien", Label: "Végétarien", Icon: "🥦", Category: Vegetarian},
	{ID: "vegan", Label: "Vegan", Icon: "🌱", Category: Vegetarian},
	{ID: "tofu", Label: "Tofu", Icon: "🌱", Category: Vegetarian},
	{ID: "legumineuses", Label: "Légumineuses", Icon: "🫘", Category: Vegetarian},
	{ID: "oeufs", Label: "Œufs", Icon: "🥚", Category: Vegetarian},
	{ID: "poulet", Label: "Poulet", Icon: "🍗", Category: Other},
	{ID: "dinde", Label: "Dinde", Icon: "🦃", Category: Other},
	{ID: "volaille", Label: "Volaille", Icon: "🐔", Category: Other},
	{ID: "autre", Label: "Autre", Icon: "🍽️", Category: Other},
}

var defaultTable = mustNew(defaultEntries)

func mustNew(entries []Entry) *Table {
	t, err := New(entries)
	if err != nil {
		panic(err)
	}
	return t
}

// Default returns the built-in table.
func Default() *Table {
	return defaultTable
}

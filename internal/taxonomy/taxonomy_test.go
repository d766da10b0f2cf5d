package taxonomy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategoryOf(t *testing.T) {
	table := Default()

	tests := []struct {
		id   string
		want Category
	}{
		{"poisson", Fish},
		{"Saumon", Fish},
		{"boeuf", RedMeat},
		{"porc", RedMeat},
		{"viande_rouge", RedMeat},
		{"Viande Rouge", RedMeat},
		{"tofu", Vegetarian},
		{"vegan", Vegetarian},
		{"végétarien", Vegetarian},
		{"poulet", Other},
		{"licorne", Other},
		{"", Other},
		{"red_meat", RedMeat},
		{"fish", Fish},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			assert.Equal(t, tt.want, table.CategoryOf(tt.id))
		})
	}
}

func TestNilTableFallsBackToCategoryNames(t *testing.T) {
	var table *Table
	assert.Equal(t, Other, table.CategoryOf("poisson"))
	assert.Equal(t, Vegetarian, table.CategoryOf("vegetarian"))
	assert.Nil(t, table.Entries())
}

func TestNewRejectsBadEntries(t *testing.T) {
	_, err := New([]Entry{{ID: "x", Category: "meat"}})
	assert.Error(t, err)

	_, err = New([]Entry{{ID: "x", Category: Fish}, {ID: "X", Category: Fish}})
	assert.Error(t, err)

	_, err = New([]Entry{{ID: " ", Category: Fish}})
	assert.Error(t, err)
}

func TestEntriesIsACopy(t *testing.T) {
	table := Default()
	entries := table.Entries()
	entries[0].Category = RedMeat

	assert.Equal(t, Fish, table.CategoryOf("poisson"))
}

func TestLookup(t *testing.T) {
	e, ok := Default().Lookup("Crevettes")
	require.True(t, ok)
	assert.Equal(t, "crevettes", e.ID)
	assert.Equal(t, Fish, e.Category)

	_, ok = Default().Lookup("dragon")
	assert.False(t, ok)
}

func TestLoadFile(t *testing.T) {
	t.Run("empty path returns default", func(t *testing.T) {
		table, err := LoadFile("")
		require.NoError(t, err)
		assert.Same(t, Default(), table)
	})

	t.Run("yaml file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "proteins.yaml")
		content := `proteins:
  - id: seitan
    label: Seitan
    icon: "🌾"
    category: vegetarian
  - id: bison
    label: Bison
    category: red_meat
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

		table, err := LoadFile(path)
		require.NoError(t, err)
		assert.Equal(t, Vegetarian, table.CategoryOf("seitan"))
		assert.Equal(t, RedMeat, table.CategoryOf("Bison"))
		assert.Equal(t, Other, table.CategoryOf("poisson"))
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("no proteins", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "empty.yaml")
		require.NoError(t, os.WriteFile(path, []byte("other: 1\n"), 0o644))
		_, err := LoadFile(path)
		assert.Error(t, err)
	})
}

package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDB(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "planner.db")

	db, err := NewDB(path)
	require.NoError(t, err)
	defer db.Close()

	for _, table := range []string{"recipes", "preferences", "feedback", "stock_items", "week_plans", "shopping_lists", "execution_metrics", "sessions"} {
		var name string
		err := db.SQL.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		assert.NoError(t, err, "table %s should exist", table)
	}
}

func TestRunMigrationsIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "planner.db")

	require.NoError(t, RunMigrations(path))
	require.NoError(t, RunMigrations(path))
}

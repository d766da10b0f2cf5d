package recipe

import (
	"context"
	"path/filepath"
	"testing"

	"balanced-meal-planner/internal/database"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "recipes.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewRepository(db.SQL)
}

func TestRepositorySaveGetList(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	id, err := repo.Save(ctx, Candidate{Name: "Tarte aux poireaux", Protein: "oeufs", Ingredients: []string{"poireaux", "oeufs"}})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	_, err = repo.Save(ctx, Candidate{ID: "a", Name: "Blanquette", Protein: "veau", UpdatedAt: "2025-01-01T00:00:00Z"})
	require.NoError(t, err)

	got, err := repo.Get(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Tarte aux poireaux", got.Name)
	assert.Equal(t, []string{"poireaux", "oeufs"}, got.Ingredients)

	all, skipped, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Zero(t, skipped)
	require.Len(t, all, 2)
	assert.Equal(t, "Blanquette", all[0].Name)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestRepositoryExistsAndDelete(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	_, err := repo.Save(ctx, Candidate{ID: "a", Name: "Blanquette", UpdatedAt: "2025-01-01T00:00:00Z"})
	require.NoError(t, err)

	exists, err := repo.Exists(ctx, "a", "2025-01-01T00:00:00Z")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.Exists(ctx, "a", "2025-02-01T00:00:00Z")
	require.NoError(t, err)
	assert.False(t, exists, "a newer source version must be re-ingested")

	require.NoError(t, repo.Delete(ctx, "a"))
	got, err := repo.Get(ctx, "a")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRepositorySkipsCorruptRows(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	_, err := repo.Save(ctx, Candidate{ID: "ok", Name: "Soupe"})
	require.NoError(t, err)
	_, err = repo.db.ExecContext(ctx, `INSERT INTO recipes (id, name, data, updated_at) VALUES ('bad', 'Bad', '{not json', CURRENT_TIMESTAMP)`)
	require.NoError(t, err)

	all, skipped, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
	assert.Equal(t, 1, skipped)
}

func TestRepositoryRejectsAnonymousRecipe(t *testing.T) {
	_, err := newTestRepository(t).Save(context.Background(), Candidate{Protein: "boeuf"})
	assert.Error(t, err)
}

package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"balanced-meal-planner/internal/ghost"
	"balanced-meal-planner/internal/recipe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const gratinJSON = `{"name": "Gratin de courgettes", "protein": "oeufs", "ingredients": ["courgettes", "oeufs"], "meal_types": ["dinner"]}`

func TestProcessAndSaveRecipe(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.extractor.res = gratinJSON

	post := ghost.Post{ID: "p1", Title: "Post 1", UpdatedAt: "2025-01-01T00:00:00Z", HTML: "<p>gratin</p>"}

	t.Run("New Recipe", func(t *testing.T) {
		rec, err := ProcessAndSaveRecipe(ctx, f.app.extractor, f.app.recipeRepo, f.app.metricsStore, post)
		require.NoError(t, err)
		assert.Equal(t, "p1", rec.ID)

		saved, err := f.app.recipeRepo.Get(ctx, "p1")
		require.NoError(t, err)
		require.NotNil(t, saved)
		assert.Equal(t, "Gratin de courgettes", saved.Name)
		assert.Equal(t, "2025-01-01T00:00:00Z", saved.UpdatedAt)

		usage, err := f.app.Usage(ctx, 1)
		require.NoError(t, err)
		require.Len(t, usage, 1)
		assert.Equal(t, 100, usage[0].TotalPrompt)
	})

	t.Run("Malformed model output", func(t *testing.T) {
		f.extractor.res = "not json"
		_, err := ProcessAndSaveRecipe(ctx, f.app.extractor, f.app.recipeRepo, f.app.metricsStore, ghost.Post{ID: "p2", Title: "Post 2"})
		require.Error(t, err)

		missing, err := f.app.recipeRepo.Get(ctx, "p2")
		require.NoError(t, err)
		assert.Nil(t, missing)

		// Usage is recorded even when the response cannot be parsed.
		usage, err := f.app.Usage(ctx, 1)
		require.NoError(t, err)
		require.Len(t, usage, 1)
		assert.Equal(t, 2, usage[0].TotalExecution)
	})
}

func TestIngestRecipes(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.extractor.res = gratinJSON

	_, err := f.app.recipeRepo.Save(ctx, recipe.Candidate{ID: "unchanged", Name: "Déjà là", UpdatedAt: "2025-01-01T00:00:00Z"})
	require.NoError(t, err)

	f.ghost.posts = []ghost.Post{
		{ID: "unchanged", Title: "Déjà là", UpdatedAt: "2025-01-01T00:00:00Z"},
		{ID: "fresh", Title: "Nouveau", UpdatedAt: "2025-02-01T00:00:00Z"},
	}

	report, err := f.app.IngestRecipes(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, IngestReport{Fetched: 2, Skipped: 1, Saved: 1}, report)
	assert.Equal(t, 1, f.extractor.calls)

	unchanged, err := f.app.recipeRepo.Get(ctx, "unchanged")
	require.NoError(t, err)
	assert.Equal(t, "Déjà là", unchanged.Name)

	t.Run("force re-extracts everything", func(t *testing.T) {
		report, err := f.app.IngestRecipes(ctx, true)
		require.NoError(t, err)
		assert.Equal(t, IngestReport{Fetched: 2, Saved: 2}, report)
		assert.Equal(t, 3, f.extractor.calls)
	})

	t.Run("extraction failures are counted", func(t *testing.T) {
		f.extractor.err = errors.New("quota exceeded")
		report, err := f.app.IngestRecipes(ctx, true)
		require.NoError(t, err)
		assert.Equal(t, 2, report.Failed)
	})

	t.Run("ghost unavailable", func(t *testing.T) {
		f.ghost.err = errors.New("502")
		_, err := f.app.IngestRecipes(ctx, false)
		assert.ErrorContains(t, err, "failed to fetch recipes from ghost")
	})

	t.Run("cancelled between extractions", func(t *testing.T) {
		f.ghost.err = nil
		f.extractor.err = nil
		f.app.ingestDelay = defaultIngestDelay
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := f.app.IngestRecipes(cctx, true)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestCatalogImportExport(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	for _, rec := range dinners()[:2] {
		rec.UpdatedAt = "2025-01-01T00:00:00Z"
		require.NoError(t, f.app.catalog.Save(rec))
	}
	require.NoError(t, os.WriteFile(filepath.Join(f.catalog, "broken.json"), []byte("{"), 0o644))

	report, err := f.app.ImportCatalog(ctx)
	require.NoError(t, err)
	assert.Equal(t, IngestReport{Fetched: 2, Saved: 2, Failed: 1}, report)

	again, err := f.app.ImportCatalog(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, again.Skipped)
	assert.Zero(t, again.Saved)

	_, err = f.app.recipeRepo.Save(ctx, recipe.Candidate{ID: "quiche", Name: "Quiche", Protein: "oeufs"})
	require.NoError(t, err)

	written, err := f.app.ExportCatalog(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, written)
	assert.True(t, f.app.catalog.Exists("quiche", ""))
}

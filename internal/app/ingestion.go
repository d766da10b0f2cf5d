package app

import (
	"context"
	"fmt"
	"time"

	"balanced-meal-planner/internal/ghost"
	"balanced-meal-planner/internal/logging"
	"balanced-meal-planner/internal/metrics"
	"balanced-meal-planner/internal/recipe"
)

// ProcessAndSaveRecipe extracts a candidate from a Ghost post, saves it and
// records the extraction usage.
func ProcessAndSaveRecipe(
	ctx context.Context,
	extractor *recipe.Extractor,
	recipeRepo *recipe.Repository,
	metricsStore *metrics.Store,
	post ghost.Post,
) (recipe.Candidate, error) {
	extracted, err := extractor.ExtractRecipe(ctx, recipe.PostData{
		ID:        post.ID,
		Title:     post.Title,
		UpdatedAt: post.UpdatedAt,
		HTML:      post.HTML,
	})
	if metricsStore != nil {
		if mErr := metricsStore.RecordMeta(ctx, extracted.Meta); mErr != nil {
			logging.Ctx(ctx).Warn().Err(mErr).Msg("failed to record extractor metrics")
		}
	}
	if err != nil {
		return recipe.Candidate{}, fmt.Errorf("failed to extract recipe: %w", err)
	}

	if _, err := recipeRepo.Save(ctx, extracted.Recipe); err != nil {
		return recipe.Candidate{}, fmt.Errorf("failed to save recipe: %w", err)
	}
	return extracted.Recipe, nil
}

// IngestReport summarises an ingestion or import run.
type IngestReport struct {
	Fetched int
	Skipped int
	Saved   int
	Failed  int
}

func (r IngestReport) String() string {
	return fmt.Sprintf("%d fetched, %d saved, %d unchanged, %d failed", r.Fetched, r.Saved, r.Skipped, r.Failed)
}

// IngestRecipes fetches recipe posts from Ghost and normalises the new or
// updated ones. force re-extracts unchanged posts too.
func (a *App) IngestRecipes(ctx context.Context, force bool) (IngestReport, error) {
	log := logging.Ctx(ctx)
	var report IngestReport

	if a.ghostClient == nil {
		return report, fmt.Errorf("ghost client not configured")
	}
	if a.extractor == nil {
		return report, fmt.Errorf("recipe extractor not configured")
	}
	posts, err := a.ghostClient.FetchRecipes(ctx)
	if err != nil {
		return report, fmt.Errorf("failed to fetch recipes from ghost: %w", err)
	}
	report.Fetched = len(posts)
	log.Info().Int("posts", len(posts)).Msg("fetched recipe posts from ghost")

	extracted := 0
	for _, post := range posts {
		if !force {
			exists, err := a.recipeRepo.Exists(ctx, post.ID, post.UpdatedAt)
			if err != nil {
				return report, err
			}
			if exists {
				log.Debug().Str("post", post.Title).Msg("recipe up-to-date, skipping")
				report.Skipped++
				continue
			}
		}

		if extracted > 0 && a.ingestDelay > 0 {
			select {
			case <-ctx.Done():
				return report, ctx.Err()
			case <-time.After(a.ingestDelay):
			}
		}
		extracted++

		rec, err := ProcessAndSaveRecipe(ctx, a.extractor, a.recipeRepo, a.metricsStore, post)
		if err != nil {
			log.Error().Err(err).Str("post", post.Title).Msg("failed to process recipe")
			report.Failed++
			continue
		}
		report.Saved++
		log.Info().Str("recipe", rec.DisplayName()).Str("protein", rec.Protein).Msg("recipe ingested")
	}

	log.Info().Stringer("report", report).Msg("ingestion complete")
	return report, nil
}

// ImportCatalog loads every recipe file of the catalog directory into the
// database. Files that fail to decode are logged and counted as failures.
func (a *App) ImportCatalog(ctx context.Context) (IngestReport, error) {
	log := logging.Ctx(ctx)
	var report IngestReport

	if a.catalog == nil {
		return report, fmt.Errorf("recipe catalog not configured")
	}
	recipes, fileErrs, err := a.catalog.ListAll()
	if err != nil {
		return report, fmt.Errorf("failed to list catalog: %w", err)
	}
	for _, fe := range fileErrs {
		log.Warn().Err(fe.Err).Str("file", fe.Path).Msg("skipping unreadable recipe file")
	}
	report.Fetched = len(recipes)
	report.Failed = len(fileErrs)

	for _, rec := range recipes {
		if rec.ID != "" {
			exists, err := a.recipeRepo.Exists(ctx, rec.ID, rec.UpdatedAt)
			if err != nil {
				return report, err
			}
			if exists {
				report.Skipped++
				continue
			}
		}
		if _, err := a.recipeRepo.Save(ctx, rec); err != nil {
			log.Error().Err(err).Str("recipe", rec.DisplayName()).Msg("failed to import recipe")
			report.Failed++
			continue
		}
		report.Saved++
	}

	log.Info().Stringer("report", report).Msg("catalog import complete")
	return report, nil
}

// ExportCatalog writes every stored recipe to the catalog directory and
// returns how many were written.
func (a *App) ExportCatalog(ctx context.Context) (int, error) {
	if a.catalog == nil {
		return 0, fmt.Errorf("recipe catalog not configured")
	}
	recipes, skipped, err := a.recipeRepo.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list recipes: %w", err)
	}
	if skipped > 0 {
		logging.Ctx(ctx).Warn().Int("skipped", skipped).Msg("unreadable recipes left out of export")
	}

	written := 0
	for _, rec := range recipes {
		if rec.ID == "" {
			continue
		}
		if a.catalog.Exists(rec.ID, rec.UpdatedAt) {
			continue
		}
		if err := a.catalog.Save(rec); err != nil {
			return written, fmt.Errorf("failed to export %s: %w", rec.ID, err)
		}
		written++
	}
	return written, nil
}

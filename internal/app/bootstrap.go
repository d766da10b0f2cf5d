package app

import (
	"context"
	"errors"
	"fmt"

	"balanced-meal-planner/internal/assistant"
	"balanced-meal-planner/internal/clipper"
	"balanced-meal-planner/internal/config"
	"balanced-meal-planner/internal/database"
	"balanced-meal-planner/internal/ghost"
	"balanced-meal-planner/internal/household"
	"balanced-meal-planner/internal/llm"
	"balanced-meal-planner/internal/logging"
	"balanced-meal-planner/internal/metrics"
	"balanced-meal-planner/internal/planner"
	"balanced-meal-planner/internal/recipe"
	"balanced-meal-planner/internal/scoring"
	"balanced-meal-planner/internal/shopping"
	"balanced-meal-planner/internal/storage"
	"balanced-meal-planner/internal/taxonomy"
)

// Services is the wired application shared by the binaries.
type Services struct {
	App     *App
	Clipper *clipper.Clipper
	DB      *database.DB

	closers []func() error
}

// Close releases the database and LLM clients.
func (s *Services) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i]())
	}
	return errors.Join(errs...)
}

// Build wires repositories, the scoring engine and the optional LLM and Ghost
// clients from cfg. Gemini extracts recipes and Groq narrates; each falls back
// to the other when only one key is set. Without any key the LLM features
// are disabled.
func Build(ctx context.Context, cfg *config.Config) (*Services, error) {
	log := logging.With("bootstrap")

	table, err := taxonomy.LoadFile(cfg.TaxonomyPath)
	if err != nil {
		return nil, err
	}
	weights, err := scoring.DefaultWeights().WithOverrides(cfg.Scoring.Weights)
	if err != nil {
		return nil, fmt.Errorf("failed to apply scoring weights: %w", err)
	}
	engine, err := scoring.NewEngine(table, scoring.WithWeights(weights), scoring.WithWorkers(cfg.Scoring.Workers))
	if err != nil {
		return nil, fmt.Errorf("failed to build scoring engine: %w", err)
	}

	db, err := database.NewDB(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	s := &Services{DB: db, closers: []func() error{db.Close}}

	var extractorGen, narratorGen llm.TextGenerator
	if cfg.LLM.GeminiAPIKey != "" {
		gemini, err := llm.NewGeminiClient(ctx, cfg)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.closers = append(s.closers, gemini.Close)
		extractorGen, narratorGen = gemini, gemini
	}
	if cfg.LLM.GroqAPIKey != "" {
		narratorGen = llm.NewGroqClient(cfg, true)
		if extractorGen == nil {
			extractorGen = narratorGen
		}
	}
	if extractorGen == nil {
		log.Warn().Msg("no LLM key configured, ingestion, clipping and narration are disabled")
	}

	var ghostClient ghost.Client
	if cfg.Ghost.URL != "" && cfg.Ghost.ContentKey != "" {
		if err := cfg.RequireGhost(); err != nil {
			s.Close()
			return nil, err
		}
		ghostClient = ghost.NewClient(cfg)
	}

	catalog, err := storage.NewCatalogStore(cfg.RecipeStoragePath)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to initialize recipe catalog: %w", err)
	}

	recipeRepo := recipe.NewRepository(db.SQL)
	households := household.NewRepository(db.SQL, DefaultPreferences(cfg.Household))
	mealPlanner := planner.NewPlanner(engine, recipeRepo, households,
		planner.WithMinPlannedMeals(cfg.Scoring.MinPlannedMeal),
		planner.WithObserver(metrics.EngineObserver{}),
	)

	deps := Deps{
		Config:       cfg,
		Ghost:        ghostClient,
		Recipes:      recipeRepo,
		Households:   households,
		Plans:        planner.NewPlanRepository(db.SQL),
		ShoppingRepo: shopping.NewRepository(db.SQL),
		Metrics:      metrics.NewStore(db.SQL),
		Planner:      mealPlanner,
		Catalog:      catalog,
	}
	if extractorGen != nil {
		deps.Extractor = recipe.NewExtractor(extractorGen, table)
		s.Clipper = clipper.NewClipper(ghostClient, deps.Extractor, recipeRepo)
	}
	if narratorGen != nil {
		deps.Assistant = assistant.NewAssistant(narratorGen)
	}
	s.App = NewApp(deps)

	recipes, err := recipeRepo.Count(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("failed to count stored recipes")
	}
	log.Info().
		Int("recipes", recipes).
		Int("workers", cfg.Scoring.Workers).
		Int("proteins", len(table.Entries())).
		Bool("ghost", ghostClient != nil).
		Bool("llm", extractorGen != nil).
		Msg("services ready")
	return s, nil
}

// DefaultPreferences maps the configured household onto the preferences used
// for users who have not saved their own.
func DefaultPreferences(h config.HouseholdConfig) household.Preferences {
	return household.Preferences{
		FishPerWeek:       h.FishPerWeek,
		VegetarianPerWeek: h.VegetarianPerWeek,
		RedMeatMax:        h.RedMeatMax,
		ExcludedFoods:     append([]string(nil), h.ExcludedFoods...),
		FavoriteFoods:     append([]string(nil), h.FavoriteFoods...),
		TimeBudget:        household.TimeBudget(h.TimeBudget),
		HasBaby:           h.HasBaby,
	}
}

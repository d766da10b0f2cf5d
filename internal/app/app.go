package app

import (
	"context"
	"fmt"
	"time"

	"balanced-meal-planner/internal/assistant"
	"balanced-meal-planner/internal/config"
	"balanced-meal-planner/internal/ghost"
	"balanced-meal-planner/internal/household"
	"balanced-meal-planner/internal/logging"
	"balanced-meal-planner/internal/metrics"
	"balanced-meal-planner/internal/planner"
	"balanced-meal-planner/internal/recipe"
	"balanced-meal-planner/internal/scoring"
	"balanced-meal-planner/internal/shared"
	"balanced-meal-planner/internal/shopping"
	"balanced-meal-planner/internal/storage"
)

// defaultIngestDelay keeps ingestion under the free-tier rate limit of the
// extraction model (15 RPM).
const defaultIngestDelay = 5 * time.Second

// Deps are the collaborators of the App. Assistant, Catalog and Ghost may be
// nil; the use cases that need them then fail or skip narration.
type Deps struct {
	Config       *config.Config
	Ghost        ghost.Client
	Extractor    *recipe.Extractor
	Recipes      *recipe.Repository
	Households   *household.Repository
	Plans        *planner.PlanRepository
	ShoppingRepo *shopping.Repository
	Metrics      *metrics.Store
	Planner      *planner.Planner
	Assistant    *assistant.Assistant
	Catalog      *storage.CatalogStore
}

// App holds the application's dependencies and exposes the use cases shared
// by the CLI and the Telegram bot.
type App struct {
	cfg          *config.Config
	ghostClient  ghost.Client
	extractor    *recipe.Extractor
	recipeRepo   *recipe.Repository
	households   *household.Repository
	planRepo     *planner.PlanRepository
	shoppingRepo *shopping.Repository
	metricsStore *metrics.Store
	mealPlanner  *planner.Planner
	assistant    *assistant.Assistant
	catalog      *storage.CatalogStore

	ingestDelay time.Duration
	now         func() time.Time
}

// NewApp creates and initializes a new App instance.
func NewApp(d Deps) *App {
	return &App{
		cfg:          d.Config,
		ghostClient:  d.Ghost,
		extractor:    d.Extractor,
		recipeRepo:   d.Recipes,
		households:   d.Households,
		planRepo:     d.Plans,
		shoppingRepo: d.ShoppingRepo,
		metricsStore: d.Metrics,
		mealPlanner:  d.Planner,
		assistant:    d.Assistant,
		catalog:      d.Catalog,
		ingestDelay:  defaultIngestDelay,
		now:          time.Now,
	}
}

// Households exposes the household repository to front-ends.
func (a *App) Households() *household.Repository { return a.households }

// Recipes exposes the recipe repository to front-ends.
func (a *App) Recipes() *recipe.Repository { return a.recipeRepo }

func (a *App) alternativesCount() int {
	if a.cfg != nil && a.cfg.Scoring.Alternatives > 0 {
		return a.cfg.Scoring.Alternatives
	}
	return scoring.DefaultAlternatives
}

// RecordMeta persists the usage of an agent or engine run. Failures are
// logged, never returned.
func (a *App) RecordMeta(ctx context.Context, meta shared.AgentMeta) {
	if a.metricsStore == nil {
		return
	}
	if err := a.metricsStore.RecordMeta(ctx, meta); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("agent", meta.AgentName).Msg("failed to record metrics")
	}
}

// CurrentPlan returns the plan of the upcoming week, creating an empty draft
// when the user has none yet. The plan is not saved.
func (a *App) CurrentPlan(ctx context.Context, userID string) (*planner.WeekPlan, error) {
	start := planner.GetNextMonday(a.now())
	plan, err := a.planRepo.GetForWeek(ctx, userID, start)
	if err != nil {
		return nil, fmt.Errorf("failed to load plan: %w", err)
	}
	if plan == nil {
		plan = planner.NewWeekPlan(userID, start)
	}
	return plan, nil
}

// LoadPlan returns the plan with the given id, or the user's most recent
// plan when planID is empty.
func (a *App) LoadPlan(ctx context.Context, userID, planID string) (*planner.WeekPlan, error) {
	if planID != "" {
		plan, err := a.planRepo.Get(ctx, planID)
		if err != nil {
			return nil, fmt.Errorf("failed to load plan: %w", err)
		}
		if plan == nil || plan.UserID != userID {
			return nil, shared.NewInvalidInput("plan", fmt.Sprintf("plan %s not found", planID))
		}
		return plan, nil
	}

	plans, err := a.planRepo.ListRecentByUserID(ctx, userID, 1)
	if err != nil {
		return nil, fmt.Errorf("failed to load plans: %w", err)
	}
	if len(plans) == 0 {
		return nil, shared.NewInvalidInput("plan", "no plan yet, run plan first")
	}
	return &plans[0], nil
}

// PlanWeek fills the empty slots of the upcoming week for the given meal
// types (all when none) and saves the plan. It returns the plan and the
// number of slots filled.
func (a *App) PlanWeek(ctx context.Context, userID string, mealTypes ...planner.MealType) (*planner.WeekPlan, int, error) {
	log := logging.Ctx(ctx)

	plan, err := a.CurrentPlan(ctx, userID)
	if err != nil {
		return nil, 0, err
	}

	filled, err := a.mealPlanner.AutoFill(ctx, userID, plan, mealTypes...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fill plan: %w", err)
	}
	plan.UpdatedAt = a.now().UTC()
	if err := a.planRepo.Save(ctx, plan); err != nil {
		return nil, 0, fmt.Errorf("failed to save plan: %w", err)
	}

	a.RecordMeta(ctx, assistant.Meta(assistant.EngineAgent, filled))
	log.Info().Str("user", userID).Str("plan", plan.ID).Int("filled", filled).Int("planned", plan.Filled()).Msg("week planned")
	return plan, filled, nil
}

// AlternativesView is the outcome of an alternatives request.
type AlternativesView struct {
	Plan        *planner.WeekPlan
	SlotIndex   int
	Ranked      []scoring.Ranked
	Explanation *assistant.Explanation
}

// Alternatives ranks replacements for one slot of the user's plan. The plan
// is loaded by id, or the upcoming week is used when planID is empty.
func (a *App) Alternatives(ctx context.Context, userID, planID string, day int, mt planner.MealType, explain bool) (*AlternativesView, error) {
	var (
		plan *planner.WeekPlan
		err  error
	)
	if planID != "" {
		plan, err = a.LoadPlan(ctx, userID, planID)
	} else {
		plan, err = a.CurrentPlan(ctx, userID)
	}
	if err != nil {
		return nil, err
	}

	idx, err := plan.SlotIndex(day, mt)
	if err != nil {
		return nil, err
	}
	ranked, err := a.mealPlanner.SuggestForSlot(ctx, userID, plan, idx, a.alternativesCount())
	if err != nil {
		return nil, err
	}
	view := &AlternativesView{Plan: plan, SlotIndex: idx, Ranked: ranked}
	a.RecordMeta(ctx, assistant.Meta(assistant.EngineAgent, len(ranked)))

	if !explain || a.assistant == nil {
		return view, nil
	}
	prefs, err := a.households.GetPreferences(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load preferences: %w", err)
	}
	res, err := a.assistant.ExplainAlternatives(ctx, plan.Slots[idx].Label(), ranked, prefs, plan.Tally(a.mealPlanner.Engine().Table()))
	a.RecordMeta(ctx, res.Meta)
	if err != nil {
		// The ranking stands on its own; narration is best effort.
		logging.Ctx(ctx).Warn().Err(err).Msg("failed to explain alternatives")
		return view, nil
	}
	view.Explanation = &res.Explanation
	return view, nil
}

// Swap replaces the recipe of one slot with the stored recipe recipeID and
// saves the plan.
func (a *App) Swap(ctx context.Context, userID, planID string, slotIdx int, recipeID string) (*planner.WeekPlan, error) {
	plan, err := a.LoadPlan(ctx, userID, planID)
	if err != nil {
		return nil, err
	}
	rec, err := a.recipeRepo.Get(ctx, recipeID)
	if err != nil {
		return nil, fmt.Errorf("failed to load recipe: %w", err)
	}
	if rec == nil {
		return nil, shared.NewInvalidInput("recipe", fmt.Sprintf("recipe %s not found", recipeID))
	}
	if err := plan.AssignSlot(slotIdx, rec); err != nil {
		return nil, err
	}
	plan.UpdatedAt = a.now().UTC()
	if err := a.planRepo.Save(ctx, plan); err != nil {
		return nil, fmt.Errorf("failed to save plan: %w", err)
	}
	logging.Ctx(ctx).Info().Str("plan", plan.ID).Int("slot", slotIdx).Str("recipe", recipeID).Msg("slot swapped")
	return plan, nil
}

// WeekReview is a balance review plus its optional narration.
type WeekReview struct {
	Plan        *planner.WeekPlan
	Review      planner.Review
	Explanation *assistant.Explanation
}

// ReviewWeek validates the plan against the user's preferences.
func (a *App) ReviewWeek(ctx context.Context, userID, planID string, explain bool) (*WeekReview, error) {
	plan, err := a.LoadPlan(ctx, userID, planID)
	if err != nil {
		return nil, err
	}
	review, err := a.mealPlanner.Review(ctx, userID, plan)
	if err != nil {
		return nil, fmt.Errorf("failed to review plan: %w", err)
	}
	out := &WeekReview{Plan: plan, Review: review}
	if !explain || a.assistant == nil {
		return out, nil
	}

	res, err := a.assistant.ReviewWeek(ctx, plan, review)
	a.RecordMeta(ctx, res.Meta)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("failed to narrate week review")
		return out, nil
	}
	out.Explanation = &res.Explanation
	return out, nil
}

// ShoppingList builds and stores the shopping list of a plan, split by what
// the pantry already covers.
func (a *App) ShoppingList(ctx context.Context, userID, planID string) (*shopping.ShoppingList, error) {
	plan, err := a.LoadPlan(ctx, userID, planID)
	if err != nil {
		return nil, err
	}
	stock, err := a.households.GetStock(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load stock: %w", err)
	}

	list := shopping.BuildList(plan, stock)
	list.CreatedAt = a.now().UTC()
	id, err := a.shoppingRepo.Save(ctx, list)
	if err != nil {
		return nil, fmt.Errorf("failed to save shopping list: %w", err)
	}
	list.ID = id
	return list, nil
}

// RecordFeedback stores a like or dislike for a stored recipe.
func (a *App) RecordFeedback(ctx context.Context, userID, recipeID string, sentiment household.Sentiment) (*recipe.Candidate, error) {
	rec, err := a.recipeRepo.Get(ctx, recipeID)
	if err != nil {
		return nil, fmt.Errorf("failed to load recipe: %w", err)
	}
	if rec == nil {
		return nil, shared.NewInvalidInput("recipe", fmt.Sprintf("recipe %s not found", recipeID))
	}
	err = a.households.AddFeedback(ctx, userID, household.Feedback{
		RecipeID:   rec.ID,
		RecipeName: rec.Name,
		Sentiment:  sentiment,
		CreatedAt:  a.now().UTC(),
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// Usage returns the daily execution totals of the last days.
func (a *App) Usage(ctx context.Context, days int) ([]metrics.DailyUsage, error) {
	return a.metricsStore.GetDailyUsage(ctx, days)
}

// CleanupMetrics removes execution records older than days.
func (a *App) CleanupMetrics(ctx context.Context, days int) (int64, error) {
	return a.metricsStore.Cleanup(ctx, days)
}

package telegram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"balanced-meal-planner/internal/app"
	"balanced-meal-planner/internal/assistant"
	"balanced-meal-planner/internal/config"
	"balanced-meal-planner/internal/database"
	"balanced-meal-planner/internal/household"
	"balanced-meal-planner/internal/llm"
	"balanced-meal-planner/internal/metrics"
	"balanced-meal-planner/internal/planner"
	"balanced-meal-planner/internal/recipe"
	"balanced-meal-planner/internal/scoring"
	"balanced-meal-planner/internal/shared"
	"balanced-meal-planner/internal/shopping"
	"balanced-meal-planner/internal/taxonomy"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	allowedUser = int64(42)
	adminUser   = int64(1)
)

type fakeSender struct {
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.sent = append(f.sent, c)
	return tgbotapi.Message{MessageID: len(f.sent)}, nil
}

func (f *fakeSender) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeSender) texts() []string {
	var out []string
	for _, c := range f.sent {
		switch m := c.(type) {
		case tgbotapi.MessageConfig:
			out = append(out, m.Text)
		case tgbotapi.EditMessageTextConfig:
			out = append(out, m.Text)
		}
	}
	return out
}

func (f *fakeSender) last() string {
	texts := f.texts()
	if len(texts) == 0 {
		return ""
	}
	return texts[len(texts)-1]
}

type narrator struct{}

func (narrator) GenerateContent(ctx context.Context, prompt string) (llm.ContentResponse, error) {
	return llm.ContentResponse{Content: `{"summary": "Du poisson lundi", "highlights": []}`}, nil
}

func newTestBot(t *testing.T) (*Bot, *fakeSender) {
	t.Helper()
	cfg := config.Default()
	cfg.DataDir = t.TempDir()
	cfg.DatabasePath = filepath.Join(cfg.DataDir, "planner.db")
	cfg.Telegram.AllowedUserIDs = []int64{allowedUser}
	cfg.Telegram.AdminID = adminUser

	db, err := database.NewDB(cfg.DatabasePath)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	engine, err := scoring.NewEngine(taxonomy.Default())
	require.NoError(t, err)
	recipes := recipe.NewRepository(db.SQL)
	households := household.NewRepository(db.SQL, app.DefaultPreferences(cfg.Household))

	dinner := []string{"dinner"}
	for _, rec := range []recipe.Candidate{
		{ID: "saumon", Name: "Saumon en papillote", Protein: "saumon", MealTypes: dinner},
		{ID: "cabillaud", Name: "Cabillaud vapeur", Protein: "cabillaud", MealTypes: dinner},
		{ID: "dahl", Name: "Dahl de lentilles", Protein: "legumineuses", MealTypes: dinner},
		{ID: "tofu", Name: "Tofu sauté", Protein: "tofu", MealTypes: dinner},
		{ID: "poulet", Name: "Poulet rôti", Protein: "poulet", MealTypes: dinner},
		{ID: "dinde", Name: "Escalope de dinde", Protein: "dinde", MealTypes: dinner},
		{ID: "boeuf", Name: "Boeuf bourguignon", Protein: "boeuf", MealTypes: dinner},
		{ID: "porc", Name: "Rôti de porc", Protein: "porc", MealTypes: dinner},
	} {
		_, err := recipes.Save(context.Background(), rec)
		require.NoError(t, err)
	}

	application := app.NewApp(app.Deps{
		Config:       cfg,
		Recipes:      recipes,
		Households:   households,
		Plans:        planner.NewPlanRepository(db.SQL),
		ShoppingRepo: shopping.NewRepository(db.SQL),
		Metrics:      metrics.NewStore(db.SQL),
		Planner:      planner.NewPlanner(engine, recipes, households),
		Assistant:    assistant.NewAssistant(narrator{}),
	})

	api := &fakeSender{}
	return newBot(api, cfg, application, nil, NewSessionRepository(db.SQL)), api
}

func command(userID int64, text string) tgbotapi.Update {
	cmd, _, _ := strings.Cut(text, " ")
	return tgbotapi.Update{Message: &tgbotapi.Message{
		MessageID: 100,
		From:      &tgbotapi.User{ID: userID},
		Chat:      &tgbotapi.Chat{ID: userID},
		Text:      text,
		Entities:  []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(cmd)}},
	}}
}

func text(userID int64, body string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		MessageID: 101,
		From:      &tgbotapi.User{ID: userID},
		Chat:      &tgbotapi.Chat{ID: userID},
		Text:      body,
	}}
}

func TestFormatPlanMarkdown(t *testing.T) {
	plan := planner.NewWeekPlan("42", time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC))
	require.NoError(t, plan.Assign(0, planner.Dinner, &recipe.Candidate{Name: "Saumon", PrepMinutes: 10, CookMinutes: 20}))
	require.NoError(t, plan.Assign(1, planner.Lunch, &recipe.Candidate{Name: "pasta_bake"}))

	out := formatPlanMarkdown(plan)

	assert.Contains(t, out, "📅 *Week of Mon 19 Oct*")
	assert.Contains(t, out, "*Monday*\n• dinner: Saumon (30 min)")
	assert.Contains(t, out, "*Tuesday*\n• lunch: pasta\\_bake\n")
	assert.NotContains(t, out, "Nothing planned")

	empty := formatPlanMarkdown(planner.NewWeekPlan("42", plan.Start))
	assert.Contains(t, empty, "Nothing planned yet")
}

func TestFormatReview(t *testing.T) {
	review := planner.Review{
		Validation:  planner.ValidationResult{Alerts: []string{"not enough fish: 0/2 this week"}},
		Suggestions: []string{"add 2 fish meals (0/2 planned)"},
	}
	out := formatReview(review, &assistant.Explanation{Summary: "Ajoutez du poisson", Highlights: []string{"saumon"}})

	assert.Contains(t, out, "⚠️ *Balance check*\n• not enough fish: 0/2 this week")
	assert.Contains(t, out, "💡 *Suggestions*\n• add 2 fish meals (0/2 planned)")
	assert.Contains(t, out, "Ajoutez du poisson")
	assert.Contains(t, out, "_saumon_")

	assert.Contains(t, formatReview(planner.Review{Validation: planner.ValidationResult{Valid: true}}, nil), "✅ *Balanced week*")
}

func TestFormatShoppingList(t *testing.T) {
	out := formatShoppingList(&shopping.ShoppingList{Items: []string{"citron"}, InStock: []string{"riz"}})
	assert.Contains(t, out, "🛒 *Shopping List*\n\n• citron\n")
	assert.Contains(t, out, "🏠 *Already in stock*\n• riz\n")
}

func TestSwapCallbackData(t *testing.T) {
	data := swapCallbackData(123456789, 2)
	assert.LessOrEqual(t, len(data), 64)

	id, choice, err := parseSwapCallback(data)
	require.NoError(t, err)
	assert.Equal(t, int64(123456789), id)
	assert.Equal(t, 2, choice)

	for _, bad := range []string{"", "swap|1", "redo|1|2", "swap|x|1", "swap|1|-1"} {
		_, _, err := parseSwapCallback(bad)
		assert.Error(t, err, bad)
	}
}

func TestParseSlot(t *testing.T) {
	day, mt, err := parseSlot("mercredi petit dejeuner")
	require.NoError(t, err)
	assert.Equal(t, 2, day)
	assert.Equal(t, planner.Breakfast, mt)

	_, _, err = parseSlot("lundi")
	assert.True(t, shared.IsInvalidInput(err))
	_, _, err = parseSlot("someday dinner")
	assert.True(t, shared.IsInvalidInput(err))
}

func TestSplitItems(t *testing.T) {
	assert.Equal(t, []string{"riz", "pâtes", "huile d'olive"}, splitItems(" riz, pâtes;\nhuile d'olive ,, "))
	assert.Empty(t, splitItems("  "))
}

func TestUnauthorizedUserIsIgnored(t *testing.T) {
	bot, api := newTestBot(t)
	bot.handleUpdate(context.Background(), command(7, "/plan"))
	assert.Empty(t, api.sent)
}

func TestStockDialogue(t *testing.T) {
	ctx := context.Background()
	bot, api := newTestBot(t)

	bot.handleUpdate(ctx, command(allowedUser, "/stock add"))
	assert.Contains(t, api.last(), "Send the items")

	bot.handleUpdate(ctx, text(allowedUser, "riz, pâtes"))
	assert.Contains(t, api.last(), "*Pantry* (2 items)")

	stock, err := bot.app.Households().GetStock(ctx, "42")
	require.NoError(t, err)
	assert.True(t, stock.Has("riz"))

	// The session is consumed by the first answer.
	bot.handleUpdate(ctx, text(allowedUser, "beurre"))
	assert.Contains(t, api.last(), "Balanced meal planner")

	bot.handleUpdate(ctx, command(allowedUser, "/stock remove riz"))
	assert.Contains(t, api.last(), "(1 items)")

	bot.handleUpdate(ctx, command(allowedUser, "/stock clear"))
	assert.Contains(t, api.last(), "pantry is empty")

	stock, err = bot.app.Households().GetStock(ctx, "42")
	require.NoError(t, err)
	assert.Zero(t, stock.Len())
	assert.False(t, stock.Has("pâtes"))
}

func TestPlanSwapFlow(t *testing.T) {
	ctx := context.Background()
	bot, api := newTestBot(t)

	bot.handleUpdate(ctx, command(allowedUser, "/plan dinner"))
	texts := api.texts()
	require.Len(t, texts, 3)
	assert.Contains(t, texts[1], "*Monday*\n• dinner:")
	assert.Contains(t, texts[2], "only 7 meals planned")

	bot.handleUpdate(ctx, command(allowedUser, "/swap lundi diner"))
	msg, ok := api.sent[len(api.sent)-1].(tgbotapi.MessageConfig)
	require.True(t, ok)
	assert.Contains(t, msg.Text, "Alternatives for Monday dinner")
	assert.Contains(t, msg.Text, "Du poisson lundi")
	keyboard, ok := msg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok)
	require.Len(t, keyboard.InlineKeyboard, 3)

	session, err := bot.sessions.GetActive(ctx, "42", SessionSwap, time.Now())
	require.NoError(t, err)
	require.NotNil(t, session)
	chosen := session.ContextData.RecipeIDs[1]

	callback := tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb-1",
		From:    &tgbotapi.User{ID: allowedUser},
		Message: &tgbotapi.Message{MessageID: 9, Chat: &tgbotapi.Chat{ID: allowedUser}},
		Data:    *keyboard.InlineKeyboard[1][0].CallbackData,
	}}
	bot.handleUpdate(ctx, callback)
	assert.Contains(t, api.last(), "✅ *Monday dinner*")
	assert.Len(t, api.requests, 1)

	plan, err := bot.app.LoadPlan(ctx, "42", session.ContextData.PlanID)
	require.NoError(t, err)
	assert.Equal(t, chosen, plan.Slots[session.ContextData.SlotIndex].Recipe.ID)

	bot.handleUpdate(ctx, callback)
	assert.Contains(t, api.last(), "expired")

	t.Run("feedback on a planned slot", func(t *testing.T) {
		bot.handleUpdate(ctx, command(allowedUser, "/dislike lundi diner"))
		assert.Contains(t, api.last(), "👎 Noted")

		history, err := bot.app.Households().ListFeedback(ctx, "42")
		require.NoError(t, err)
		require.Len(t, history, 1)
		assert.Equal(t, chosen, history[0].RecipeID)
	})

	t.Run("shopping list", func(t *testing.T) {
		bot.handleUpdate(ctx, command(allowedUser, "/shopping"))
		assert.Contains(t, api.last(), "🛒 *Shopping List*")
	})
}

func TestMetricsCommandIsAdminOnly(t *testing.T) {
	ctx := context.Background()
	bot, api := newTestBot(t)

	bot.handleUpdate(ctx, command(allowedUser, "/metrics"))
	assert.Contains(t, api.last(), "Access Denied")

	bot.handleUpdate(ctx, command(adminUser, "/metrics"))
	assert.Contains(t, api.last(), "📊 *Usage & Health Report*")
}

func TestClipperNotConfigured(t *testing.T) {
	bot, api := newTestBot(t)
	bot.handleUpdate(context.Background(), text(allowedUser, "https://example.com/recette"))
	assert.Equal(t, "Recipe clipping is not configured.", api.last())
}

func TestHTTPHandlers(t *testing.T) {
	bot, _ := newTestBot(t)
	mux := http.NewServeMux()
	bot.RegisterHandlers(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/webhook", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader("{")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"goroutines"`)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

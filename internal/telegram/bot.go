package telegram

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"balanced-meal-planner/internal/app"
	"balanced-meal-planner/internal/clipper"
	"balanced-meal-planner/internal/config"
	"balanced-meal-planner/internal/household"
	"balanced-meal-planner/internal/logging"
	"balanced-meal-planner/internal/metrics"
	"balanced-meal-planner/internal/planner"
	"balanced-meal-planner/internal/shared"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

// sessionTTL bounds how long a swap choice or stock prompt stays answerable.
const sessionTTL = 30 * time.Minute

// handleTimeout bounds the work done for one update.
const handleTimeout = 2 * time.Minute

// sender is the subset of the Telegram API the bot uses.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Bot wraps the Telegram API, the planner use cases and the Clipper.
type Bot struct {
	api      sender
	app      *app.App
	clipper  *clipper.Clipper
	sessions *SessionRepository
	cfg      *config.Config
	log      *zerolog.Logger
	now      func() time.Time
}

// NewBot initializes the Telegram Bot and sets the Webhook.
func NewBot(cfg *config.Config, application *app.App, recipeClipper *clipper.Clipper, sessions *SessionRepository) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram api: %w", err)
	}
	log := logging.With("telegram")
	log.Info().Str("account", api.Self.UserName).Msg("authorized")

	wh, err := tgbotapi.NewWebhook(cfg.Telegram.WebhookURL)
	if err != nil {
		return nil, fmt.Errorf("failed to build webhook config: %w", err)
	}
	resp, err := api.Request(wh)
	if err != nil {
		return nil, fmt.Errorf("failed to set webhook to %s: %w", cfg.Telegram.WebhookURL, err)
	}
	log.Info().Str("response", resp.Description).Msg("webhook set")

	return newBot(api, cfg, application, recipeClipper, sessions), nil
}

func newBot(api sender, cfg *config.Config, application *app.App, recipeClipper *clipper.Clipper, sessions *SessionRepository) *Bot {
	return &Bot{
		api:      api,
		app:      application,
		clipper:  recipeClipper,
		sessions: sessions,
		cfg:      cfg,
		log:      logging.With("telegram"),
		now:      time.Now,
	}
}

// RegisterHandlers registers the webhook, health and Prometheus endpoints.
func (b *Bot) RegisterHandlers(mux *http.ServeMux) {
	mux.HandleFunc("/webhook", b.handleWebhook)
	mux.HandleFunc("/health", b.handleHealth)
	mux.Handle("/metrics", metrics.Handler())
}

func (b *Bot) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(metrics.GetSysHealth(b.cfg.DataDir)); err != nil {
		b.log.Error().Err(err).Msg("failed to encode health")
	}
}

func (b *Bot) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var update tgbotapi.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		b.log.Warn().Err(err).Msg("error parsing update")
		http.Error(w, "bad update", http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusOK)

	// Telegram retries updates that are not acknowledged quickly.
	go func() {
		ctx, cancel := context.WithTimeout(logging.ContextWithNewCorrelationID(context.Background()), handleTimeout)
		defer cancel()
		b.handleUpdate(ctx, update)
	}()
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		q := update.CallbackQuery
		if !b.isAllowed(q.From) {
			return
		}
		b.handleCallbackQuery(ctx, q)
	case update.Message != nil && update.Message.From != nil:
		if !b.isAllowed(update.Message.From) {
			return
		}
		b.processMessage(ctx, update.Message)
	}
}

func (b *Bot) isAllowed(from *tgbotapi.User) bool {
	if from == nil {
		return false
	}
	if from.ID == b.cfg.Telegram.AdminID || slices.Contains(b.cfg.Telegram.AllowedUserIDs, from.ID) {
		return true
	}
	b.log.Warn().Int64("user_id", from.ID).Str("username", from.UserName).Msg("unauthorized access attempt")
	return false
}

func userKey(from *tgbotapi.User) string {
	return strconv.FormatInt(from.ID, 10)
}

func (b *Bot) processMessage(ctx context.Context, msg *tgbotapi.Message) {
	log := logging.Ctx(ctx)
	userID := userKey(msg.From)
	chatID := msg.Chat.ID

	if msg.IsCommand() {
		args := strings.TrimSpace(msg.CommandArguments())
		log.Info().Str("user", userID).Str("command", msg.Command()).Msg("command received")
		switch msg.Command() {
		case "start", "help":
			b.reply(chatID, helpText)
		case "plan":
			b.handlePlan(ctx, userID, chatID, args)
		case "week":
			b.handleWeek(ctx, userID, chatID)
		case "swap":
			b.handleSwap(ctx, userID, chatID, args)
		case "like":
			b.handleFeedback(ctx, userID, chatID, args, household.Like)
		case "dislike":
			b.handleFeedback(ctx, userID, chatID, args, household.Dislike)
		case "stock":
			b.handleStock(ctx, userID, chatID, args)
		case "shopping":
			b.handleShopping(ctx, userID, chatID)
		case "metrics":
			b.handleMetricsRequest(ctx, msg)
		default:
			b.reply(chatID, helpText)
		}
		return
	}

	text := strings.TrimSpace(msg.Text)
	if strings.HasPrefix(text, "http://") || strings.HasPrefix(text, "https://") {
		b.handleClipperRequest(ctx, chatID, text)
		return
	}

	session, err := b.sessions.GetActive(ctx, userID, SessionStock, b.now())
	if err != nil {
		log.Error().Err(err).Msg("failed to load session")
	}
	if session != nil {
		b.applyStock(ctx, userID, chatID, session.ContextData.StockMode, splitItems(text))
		if err := b.sessions.Delete(ctx, session.ID); err != nil {
			log.Warn().Err(err).Msg("failed to delete session")
		}
		return
	}
	b.reply(chatID, helpText)
}

func (b *Bot) handlePlan(ctx context.Context, userID string, chatID int64, args string) {
	var mealTypes []planner.MealType
	for _, f := range strings.Fields(args) {
		mt, err := planner.ParseMealType(f)
		if err != nil {
			b.replyError(ctx, chatID, "planning", err)
			return
		}
		mealTypes = append(mealTypes, mt)
	}

	sent, err := b.api.Send(markdown(chatID, "🧑‍🍳 *Thinking...*\n(Scoring recipes for next week)"))
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Msg("failed to send initial reply")
		return
	}

	plan, filled, err := b.app.PlanWeek(ctx, userID, mealTypes...)
	if err != nil {
		b.editError(ctx, chatID, sent.MessageID, "planning", err)
		return
	}
	text := formatPlanMarkdown(plan)
	if filled == 0 {
		text += "\n_No empty slot left to fill._\n"
	}
	b.edit(chatID, sent.MessageID, text)

	review, err := b.app.ReviewWeek(ctx, userID, plan.ID, false)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("failed to review new plan")
		return
	}
	b.reply(chatID, formatReview(review.Review, nil))
}

func (b *Bot) handleWeek(ctx context.Context, userID string, chatID int64) {
	review, err := b.app.ReviewWeek(ctx, userID, "", true)
	if err != nil {
		b.replyError(ctx, chatID, "loading your week", err)
		return
	}
	b.reply(chatID, formatPlanMarkdown(review.Plan))
	b.reply(chatID, formatReview(review.Review, review.Explanation))
}

// parseSlot reads "<day> <meal>" arguments.
func parseSlot(args string) (int, planner.MealType, error) {
	fields := strings.Fields(args)
	if len(fields) < 2 {
		return 0, "", shared.NewInvalidInput("slot", "expected <day> <meal>, e.g. lundi diner")
	}
	day, err := planner.ParseDay(fields[0])
	if err != nil {
		return 0, "", err
	}
	mt, err := planner.ParseMealType(strings.Join(fields[1:], " "))
	if err != nil {
		return 0, "", err
	}
	return day, mt, nil
}

func (b *Bot) handleSwap(ctx context.Context, userID string, chatID int64, args string) {
	day, mt, err := parseSlot(args)
	if err != nil {
		b.replyError(ctx, chatID, "reading the slot", err)
		return
	}
	view, err := b.app.Alternatives(ctx, userID, "", day, mt, true)
	if err != nil {
		b.replyError(ctx, chatID, "finding alternatives", err)
		return
	}

	msg := markdown(chatID, formatAlternatives(view))
	if len(view.Ranked) > 0 && view.Plan.ID != "" {
		ids := make([]string, len(view.Ranked))
		for i, r := range view.Ranked {
			ids[i] = r.Recipe.ID
		}
		sessionID, err := b.sessions.Create(ctx, userID, SessionSwap, "awaiting_choice", SessionContextData{
			PlanID:    view.Plan.ID,
			SlotIndex: view.SlotIndex,
			RecipeIDs: ids,
		}, sessionTTL)
		if err != nil {
			b.replyError(ctx, chatID, "saving your choices", err)
			return
		}
		msg.ReplyMarkup = swapKeyboard(sessionID, view)
	}
	if _, err := b.api.Send(msg); err != nil {
		logging.Ctx(ctx).Error().Err(err).Msg("failed to send alternatives")
	}
}

// swapKeyboard builds one button per alternative. Callback data is capped at
// 64 bytes by Telegram, so buttons carry the session id and a choice index.
func swapKeyboard(sessionID int64, view *app.AlternativesView) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(view.Ranked))
	for i, r := range view.Ranked {
		label := fmt.Sprintf("%d. %s", i+1, r.Recipe.DisplayName())
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, swapCallbackData(sessionID, i)),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func swapCallbackData(sessionID int64, choice int) string {
	return fmt.Sprintf("%s|%d|%d", SessionSwap, sessionID, choice)
}

func parseSwapCallback(data string) (sessionID int64, choice int, err error) {
	parts := strings.Split(data, "|")
	if len(parts) != 3 || parts[0] != SessionSwap {
		return 0, 0, fmt.Errorf("unexpected callback data %q", data)
	}
	if sessionID, err = strconv.ParseInt(parts[1], 10, 64); err != nil {
		return 0, 0, fmt.Errorf("bad session id in %q: %w", data, err)
	}
	if choice, err = strconv.Atoi(parts[2]); err != nil || choice < 0 {
		return 0, 0, fmt.Errorf("bad choice in %q", data)
	}
	return sessionID, choice, nil
}

func (b *Bot) handleCallbackQuery(ctx context.Context, query *tgbotapi.CallbackQuery) {
	log := logging.Ctx(ctx)
	userID := userKey(query.From)

	// Answer callback to remove spinner
	if _, err := b.api.Request(tgbotapi.NewCallback(query.ID, "")); err != nil {
		log.Warn().Err(err).Msg("failed to answer callback")
	}
	if query.Message == nil {
		return
	}
	chatID, messageID := query.Message.Chat.ID, query.Message.MessageID

	sessionID, choice, err := parseSwapCallback(query.Data)
	if err != nil {
		log.Warn().Err(err).Msg("ignoring callback")
		return
	}
	session, err := b.sessions.Get(ctx, sessionID, userID, b.now())
	if err != nil {
		b.editError(ctx, chatID, messageID, "loading your choices", err)
		return
	}
	if session == nil || choice >= len(session.ContextData.RecipeIDs) {
		b.edit(chatID, messageID, "⌛ These alternatives have expired. Run /swap again.")
		return
	}

	data := session.ContextData
	plan, err := b.app.Swap(ctx, userID, data.PlanID, data.SlotIndex, data.RecipeIDs[choice])
	if err != nil {
		b.editError(ctx, chatID, messageID, "swapping", err)
		return
	}
	if err := b.sessions.Delete(ctx, session.ID); err != nil {
		log.Warn().Err(err).Msg("failed to delete session")
	}

	slot := plan.Slots[data.SlotIndex]
	b.edit(chatID, messageID, fmt.Sprintf("✅ *%s*: %s", slot.Label(), escape(slot.Recipe.DisplayName())))
}

func (b *Bot) handleFeedback(ctx context.Context, userID string, chatID int64, args string, sentiment household.Sentiment) {
	day, mt, err := parseSlot(args)
	if err != nil {
		b.replyError(ctx, chatID, "reading the slot", err)
		return
	}
	plan, err := b.app.LoadPlan(ctx, userID, "")
	if err != nil {
		b.replyError(ctx, chatID, "loading your week", err)
		return
	}
	idx, err := plan.SlotIndex(day, mt)
	if err != nil {
		b.replyError(ctx, chatID, "reading the slot", err)
		return
	}
	slot := plan.Slots[idx]
	if slot.Empty() || slot.Recipe.ID == "" {
		b.reply(chatID, fmt.Sprintf("Nothing is planned for %s.", slot.Label()))
		return
	}
	rec, err := b.app.RecordFeedback(ctx, userID, slot.Recipe.ID, sentiment)
	if err != nil {
		b.replyError(ctx, chatID, "saving your feedback", err)
		return
	}
	icon := "👍"
	if sentiment == household.Dislike {
		icon = "👎"
	}
	b.reply(chatID, fmt.Sprintf("%s Noted for *%s*.", icon, escape(rec.DisplayName())))
}

func (b *Bot) handleStock(ctx context.Context, userID string, chatID int64, args string) {
	mode, rest, _ := strings.Cut(args, " ")
	mode = strings.ToLower(mode)
	switch mode {
	case "":
		stock, err := b.app.Households().GetStock(ctx, userID)
		if err != nil {
			b.replyError(ctx, chatID, "loading your pantry", err)
			return
		}
		b.reply(chatID, formatStock(stock))
	case "add", "remove", "set":
		items := splitItems(rest)
		if len(items) > 0 {
			b.applyStock(ctx, userID, chatID, mode, items)
			return
		}
		if err := b.sessions.DeleteByType(ctx, userID, SessionStock); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Msg("failed to clear stock sessions")
		}
		if _, err := b.sessions.Create(ctx, userID, SessionStock, "awaiting_items", SessionContextData{StockMode: mode}, sessionTTL); err != nil {
			b.replyError(ctx, chatID, "starting the pantry update", err)
			return
		}
		b.reply(chatID, "📝 Send the items, separated by commas.")
	case "clear":
		b.applyStock(ctx, userID, chatID, "set", nil)
	default:
		b.reply(chatID, "Usage: /stock [add|remove|set|clear] <items>")
	}
}

func (b *Bot) applyStock(ctx context.Context, userID string, chatID int64, mode string, items []string) {
	households := b.app.Households()
	var err error
	switch mode {
	case "add":
		err = households.AddStock(ctx, userID, items...)
	case "remove":
		err = households.RemoveStock(ctx, userID, items...)
	default:
		err = households.SetStock(ctx, userID, household.NewStock(items...))
	}
	if err != nil {
		b.replyError(ctx, chatID, "updating your pantry", err)
		return
	}
	stock, err := households.GetStock(ctx, userID)
	if err != nil {
		b.replyError(ctx, chatID, "loading your pantry", err)
		return
	}
	b.reply(chatID, formatStock(stock))
}

func (b *Bot) handleShopping(ctx context.Context, userID string, chatID int64) {
	list, err := b.app.ShoppingList(ctx, userID, "")
	if err != nil {
		b.replyError(ctx, chatID, "building your shopping list", err)
		return
	}
	b.reply(chatID, formatShoppingList(list))
}

func (b *Bot) handleMetricsRequest(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From.ID != b.cfg.Telegram.AdminID {
		b.reply(msg.Chat.ID, "⛔ *Access Denied*: Admin only.")
		return
	}
	usage, err := b.app.Usage(ctx, 7)
	if err != nil {
		b.replyError(ctx, msg.Chat.ID, "fetching metrics", err)
		return
	}
	b.reply(msg.Chat.ID, formatUsage(usage, metrics.GetSysHealth(b.cfg.DataDir)))
}

func (b *Bot) handleClipperRequest(ctx context.Context, chatID int64, url string) {
	if b.clipper == nil {
		b.reply(chatID, "Recipe clipping is not configured.")
		return
	}
	sent, err := b.api.Send(markdown(chatID, "✂️ *Clipping recipe...*\n(Extracting and saving it)"))
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Msg("failed to send initial reply")
		return
	}

	res, err := b.clipper.ClipURL(ctx, url)
	if res != nil {
		b.app.RecordMeta(ctx, res.Meta)
	}
	if err != nil {
		b.editError(ctx, chatID, sent.MessageID, "clipping recipe", err)
		return
	}

	rec := res.Recipe
	text := fmt.Sprintf("✅ *Recipe Saved!*\n\n*Title:* %s\n*Protein:* %s", escape(rec.DisplayName()), escape(rec.Protein))
	if res.Post != nil && res.Post.URL != "" {
		text += fmt.Sprintf("\n*URL:* %s", res.Post.URL)
	}
	b.edit(chatID, sent.MessageID, text)
}

func markdown(chatID int64, text string) tgbotapi.MessageConfig {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	return msg
}

func (b *Bot) reply(chatID int64, text string) {
	if _, err := b.api.Send(markdown(chatID, text)); err != nil {
		b.log.Error().Err(err).Int64("chat", chatID).Msg("failed to send message")
	}
}

func (b *Bot) edit(chatID int64, messageID int, text string) {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	edit.ParseMode = tgbotapi.ModeMarkdown
	if _, err := b.api.Send(edit); err != nil {
		b.log.Error().Err(err).Int64("chat", chatID).Msg("failed to edit message")
	}
}

// errorText shows invalid input as is and hides internal errors.
func errorText(action string, err error) string {
	if shared.IsInvalidInput(err) {
		return fmt.Sprintf("⚠️ %s", escape(err.Error()))
	}
	safeErr := strings.ReplaceAll(err.Error(), "`", "'")
	return fmt.Sprintf("❌ *Error %s:*\n```\n%v\n```", action, safeErr)
}

func (b *Bot) replyError(ctx context.Context, chatID int64, action string, err error) {
	logging.Ctx(ctx).Error().Err(err).Str("action", action).Msg("request failed")
	b.reply(chatID, errorText(action, err))
}

func (b *Bot) editError(ctx context.Context, chatID int64, messageID int, action string, err error) {
	logging.Ctx(ctx).Error().Err(err).Str("action", action).Msg("request failed")
	b.edit(chatID, messageID, errorText(action, err))
}

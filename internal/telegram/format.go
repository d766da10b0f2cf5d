package telegram

import (
	"fmt"
	"strings"

	"balanced-meal-planner/internal/app"
	"balanced-meal-planner/internal/assistant"
	"balanced-meal-planner/internal/household"
	"balanced-meal-planner/internal/metrics"
	"balanced-meal-planner/internal/planner"
	"balanced-meal-planner/internal/shopping"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const helpText = `🍽 *Balanced meal planner*

/plan [meals] - fill next week (e.g. /plan dinner lunch)
/week - show and review your plan
/swap <day> <meal> - alternatives for a slot (e.g. /swap lundi diner)
/like <day> <meal> - you liked that meal
/dislike <day> <meal> - you did not
/stock [add|remove|set] <items> - manage your pantry
/shopping - shopping list of your plan

Send a recipe URL to clip it.`

func escape(s string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeMarkdown, s)
}

func formatPlanMarkdown(plan *planner.WeekPlan) string {
	var pb strings.Builder
	pb.WriteString(fmt.Sprintf("📅 *Week of %s*\n", plan.Start.Format("Mon 02 Jan")))

	var day string
	for _, slot := range plan.Slots {
		if slot.Empty() {
			continue
		}
		if d := slot.Date.Format("Monday"); d != day {
			day = d
			pb.WriteString(fmt.Sprintf("\n*%s*\n", day))
		}
		pb.WriteString(fmt.Sprintf("• %s: %s", slot.MealType, escape(slot.Recipe.DisplayName())))
		if total := slot.Recipe.TotalMinutes(); total > 0 {
			pb.WriteString(fmt.Sprintf(" (%d min)", total))
		}
		pb.WriteString("\n")
	}
	if plan.Filled() == 0 {
		pb.WriteString("\n_Nothing planned yet. Use /plan._\n")
	}
	return pb.String()
}

func formatReview(review planner.Review, explanation *assistant.Explanation) string {
	var sb strings.Builder
	v := review.Validation
	if v.Valid {
		sb.WriteString("✅ *Balanced week*\n")
	} else {
		sb.WriteString("⚠️ *Balance check*\n")
		for _, alert := range v.Alerts {
			sb.WriteString(fmt.Sprintf("• %s\n", escape(alert)))
		}
	}
	if len(review.Suggestions) > 0 {
		sb.WriteString("\n💡 *Suggestions*\n")
		for _, s := range review.Suggestions {
			sb.WriteString(fmt.Sprintf("• %s\n", escape(s)))
		}
	}
	writeExplanation(&sb, explanation)
	return sb.String()
}

func formatAlternatives(view *app.AlternativesView) string {
	var sb strings.Builder
	slot := view.Plan.Slots[view.SlotIndex]
	sb.WriteString(fmt.Sprintf("🔄 *Alternatives for %s*\n", slot.Label()))
	if !slot.Empty() {
		sb.WriteString(fmt.Sprintf("_Currently: %s_\n", escape(slot.Recipe.DisplayName())))
	}
	sb.WriteString("\n")
	if len(view.Ranked) == 0 {
		sb.WriteString("No alternative matches your preferences.\n")
	}
	for i, r := range view.Ranked {
		sb.WriteString(fmt.Sprintf("%d. *%s* - %d/100 (%s)\n", i+1, escape(r.Recipe.DisplayName()), r.Result.Score, escape(r.Result.Reason)))
	}
	writeExplanation(&sb, view.Explanation)
	return sb.String()
}

func writeExplanation(sb *strings.Builder, explanation *assistant.Explanation) {
	if explanation == nil || explanation.Summary == "" {
		return
	}
	sb.WriteString(fmt.Sprintf("\n🧑‍🍳 %s\n", escape(explanation.Summary)))
	for _, h := range explanation.Highlights {
		sb.WriteString(fmt.Sprintf("_%s_\n", escape(h)))
	}
}

func formatShoppingList(list *shopping.ShoppingList) string {
	var sb strings.Builder
	sb.WriteString("🛒 *Shopping List*\n\n")
	if len(list.Items) == 0 {
		sb.WriteString("_Nothing to buy._\n")
	}
	for _, item := range list.Items {
		sb.WriteString(fmt.Sprintf("• %s\n", escape(item)))
	}
	if len(list.InStock) > 0 {
		sb.WriteString("\n🏠 *Already in stock*\n")
		for _, item := range list.InStock {
			sb.WriteString(fmt.Sprintf("• %s\n", escape(item)))
		}
	}
	return sb.String()
}

func formatStock(stock household.Stock) string {
	if stock.Len() == 0 {
		return "🏠 Your pantry is empty. Add items with /stock add riz, pâtes"
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🏠 *Pantry* (%d items)\n", stock.Len()))
	for _, name := range stock.Names() {
		sb.WriteString(fmt.Sprintf("• %s\n", escape(name)))
	}
	return sb.String()
}

func formatUsage(usage []metrics.DailyUsage, health metrics.SysHealth) string {
	var sb strings.Builder
	sb.WriteString("📊 *Usage & Health Report*\n\n")

	sb.WriteString("🗓 *Recent Activity*\n")
	if len(usage) == 0 {
		sb.WriteString("_No data yet_\n")
	}
	for _, d := range usage {
		sb.WriteString(fmt.Sprintf("• *%s*: %d tokens, %d recipes scored (%d execs)\n",
			d.Date, d.TotalPrompt+d.TotalCompletion, d.TotalCandidates, d.TotalExecution))
	}

	sb.WriteString("\n🧠 *System Health*\n")
	sb.WriteString(fmt.Sprintf("• RAM: %dMB (Alloc) / %dMB (Sys)\n", health.AllocMB, health.SysMB))
	sb.WriteString(fmt.Sprintf("• Goroutines: %d\n", health.Goroutines))
	sb.WriteString(fmt.Sprintf("• Uptime: %s\n", health.Uptime))
	sb.WriteString(fmt.Sprintf("• Disk Data: %s\n", health.DataDiskSize))
	return sb.String()
}

// splitItems splits a comma or newline separated item list.
func splitItems(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == '\n' || r == ';' })
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

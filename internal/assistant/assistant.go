package assistant

import (
	"bytes"
	"context"
	"fmt"
	"text/template"
	"time"

	"balanced-meal-planner/internal/llm"
	"balanced-meal-planner/internal/shared"

	"github.com/goccy/go-json"
)

// Explanation is the model's narration of an engine result.
type Explanation struct {
	Summary    string   `json:"summary"`
	Highlights []string `json:"highlights"`
}

// Result is an Explanation plus the usage that produced it.
type Result struct {
	Explanation Explanation
	Meta        shared.AgentMeta
}

// Assistant turns engine output into short natural-language explanations.
// It never changes scores or rankings.
type Assistant struct {
	textGen llm.TextGenerator
}

// NewAssistant creates an Assistant.
func NewAssistant(textGen llm.TextGenerator) *Assistant {
	return &Assistant{textGen: textGen}
}

var funcs = template.FuncMap{
	"add": func(a, b int) int { return a + b },
}

func mustTemplate(name, body string) *template.Template {
	return template.Must(template.New(name).Funcs(funcs).Parse(body))
}

func (a *Assistant) run(ctx context.Context, agent string, tmpl *template.Template, data any) (Result, error) {
	start := time.Now()

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return Result{}, fmt.Errorf("failed to render %s prompt: %w", agent, err)
	}

	resp, err := a.textGen.GenerateContent(ctx, buf.String())
	if err != nil {
		return Result{}, fmt.Errorf("failed to get LLM response: %w", err)
	}
	meta := shared.AgentMeta{AgentName: agent, Usage: resp.Usage}

	var out Explanation
	if err := json.Unmarshal([]byte(llm.StripFences(resp.Content)), &out); err != nil {
		return Result{Meta: meta}, fmt.Errorf(
			"failed to parse %s response %w. Response: %s",
			agent,
			err,
			resp.Content,
		)
	}

	meta.Latency = time.Since(start)
	return Result{Explanation: out, Meta: meta}, nil
}

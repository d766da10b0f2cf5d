package recipe

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"text/template"
	"time"

	"balanced-meal-planner/internal/llm"
	"balanced-meal-planner/internal/shared"
	"balanced-meal-planner/internal/taxonomy"

	"github.com/goccy/go-json"
)

//go:embed extractor_prompt.md
var extractorPrompt string

var extractorTemplate = template.Must(template.New("extractor").Parse(extractorPrompt))

type extractorPromptData struct {
	Post     PostData
	Proteins []taxonomy.Entry
}

// ExtractorResult is a normalised recipe plus the LLM usage that produced it.
type ExtractorResult struct {
	Recipe Candidate
	Meta   shared.AgentMeta
}

// Extractor turns raw recipe pages into candidates with an LLM.
type Extractor struct {
	textGen llm.TextGenerator
	table   *taxonomy.Table
}

// NewExtractor creates an Extractor. The taxonomy lists the protein ids the
// model may choose from.
func NewExtractor(textGen llm.TextGenerator, table *taxonomy.Table) *Extractor {
	return &Extractor{textGen: textGen, table: table}
}

// ExtractRecipe normalises one post. The source id and version are kept so
// re-ingestion can skip unchanged posts.
func (e *Extractor) ExtractRecipe(ctx context.Context, data PostData) (ExtractorResult, error) {
	start := time.Now()

	prompt, err := buildExtractorPrompt(extractorPromptData{Post: data, Proteins: e.table.Entries()})
	if err != nil {
		return ExtractorResult{}, err
	}

	llmResp, err := e.textGen.GenerateContent(ctx, prompt)
	if err != nil {
		return ExtractorResult{}, fmt.Errorf("failed to get LLM response: %w", err)
	}

	meta := shared.AgentMeta{AgentName: "Extractor", Usage: llmResp.Usage}

	rec := Candidate{}
	if err := json.Unmarshal([]byte(llm.StripFences(llmResp.Content)), &rec); err != nil {
		return ExtractorResult{Meta: meta}, fmt.Errorf("failed to unmarshal LLM response: %w", err)
	}

	rec.ID = data.ID
	rec.UpdatedAt = data.UpdatedAt
	if rec.Name == "" {
		rec.Name = data.Title
	}
	if _, known := e.table.Lookup(rec.Protein); !known && rec.Protein != "" {
		rec.Protein = string(e.table.CategoryOf(rec.Protein))
	}
	if err := rec.Validate(); err != nil {
		return ExtractorResult{Meta: meta}, err
	}

	meta.Latency = time.Since(start)
	return ExtractorResult{Recipe: rec, Meta: meta}, nil
}

func buildExtractorPrompt(data extractorPromptData) (string, error) {
	var buf bytes.Buffer
	if err := extractorTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render extractor prompt: %w", err)
	}
	return buf.String(), nil
}

package clipper

import (
	"context"
	"fmt"
	"html"
	"net/http"
	"strings"
	"time"

	"balanced-meal-planner/internal/ghost"
	"balanced-meal-planner/internal/recipe"
	"balanced-meal-planner/internal/shared"

	"github.com/PuerkitoBio/goquery"
)

// maxContentChars caps the cleaned text handed to the model.
const maxContentChars = 20000

// RecipeSaver stores clipped recipes.
type RecipeSaver interface {
	Save(ctx context.Context, rec recipe.Candidate) (string, error)
}

// Clipper handles fetching and extracting recipes from URLs.
type Clipper struct {
	ghostClient ghost.Client
	extractor   *recipe.Extractor
	recipes     RecipeSaver
	httpClient  *http.Client
}

// ClipResult is what a clip produced. Post is nil when no blog is configured.
type ClipResult struct {
	Recipe recipe.Candidate
	Post   *ghost.Post
	Meta   shared.AgentMeta
}

// NewClipper creates a new Clipper instance. ghostClient may be nil, in
// which case recipes are only stored locally.
func NewClipper(ghostClient ghost.Client, extractor *recipe.Extractor, recipes RecipeSaver) *Clipper {
	return &Clipper{
		ghostClient: ghostClient,
		extractor:   extractor,
		recipes:     recipes,
		httpClient:  &http.Client{Timeout: 15 * time.Second},
	}
}

// ClipURL fetches the URL, extracts the recipe with the LLM, stores it and
// publishes a recipe card to Ghost.
func (c *Clipper) ClipURL(ctx context.Context, url string) (*ClipResult, error) {
	title, content, err := c.fetchAndCleanHTML(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch content: %w", err)
	}

	extracted, err := c.extractor.ExtractRecipe(ctx, recipe.PostData{
		Title:     title,
		UpdatedAt: time.Now().UTC().Format(time.RFC3339),
		HTML:      content,
	})
	if err != nil {
		return &ClipResult{Meta: extracted.Meta}, fmt.Errorf("ai extraction failed: %w", err)
	}
	result := &ClipResult{Recipe: extracted.Recipe, Meta: extracted.Meta}

	id, err := c.recipes.Save(ctx, result.Recipe)
	if err != nil {
		return result, fmt.Errorf("failed to save recipe: %w", err)
	}
	result.Recipe.ID = id

	if c.ghostClient == nil {
		return result, nil
	}
	post, err := c.ghostClient.CreatePost(ctx, result.Recipe.DisplayName(), c.formatToHTML(result.Recipe, url), true)
	if err != nil {
		return result, fmt.Errorf("failed to save to ghost: %w", err)
	}
	result.Post = post
	return result, nil
}

func (c *Clipper) fetchAndCleanHTML(ctx context.Context, url string) (string, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", "", err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("failed to fetch URL: status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", "", err
	}

	// Remove noise to save LLM tokens
	doc.Find("script, style, nav, footer, iframe, noscript, form, ads, .ads, #ads, .comments").Each(func(i int, s *goquery.Selection) {
		s.Remove()
	})

	title := strings.TrimSpace(doc.Find("h1").First().Text())
	if title == "" {
		title = strings.TrimSpace(doc.Find("title").First().Text())
	}

	text := strings.Join(strings.Fields(doc.Find("body").Text()), " ")
	if len(text) > maxContentChars {
		text = text[:maxContentChars]
	}
	return title, text, nil
}

func (c *Clipper) formatToHTML(r recipe.Candidate, sourceURL string) string {
	esc := html.EscapeString
	var sb strings.Builder
	fmt.Fprintf(&sb, "<p><i>Imported from: <a href=\"%s\">%s</a></i></p>", esc(sourceURL), esc(sourceURL))

	sb.WriteString("<h2>Ingredients</h2><ul>")
	for _, ing := range r.Ingredients {
		fmt.Fprintf(&sb, "<li>%s</li>", esc(ing))
	}
	sb.WriteString("</ul>")

	sb.WriteString("<hr>")
	fmt.Fprintf(&sb, "<p><strong>Prep Time:</strong> %d min | <strong>Cook Time:</strong> %d min", r.PrepMinutes, r.CookMinutes)
	if r.Servings > 0 {
		fmt.Fprintf(&sb, " | <strong>Servings:</strong> %d", r.Servings)
	}
	sb.WriteString("</p>")

	var tags []string
	if r.Protein != "" {
		tags = append(tags, r.Protein)
	}
	if r.BabyCompatible {
		tags = append(tags, "bébé")
	}
	if r.BatchCooking {
		tags = append(tags, "batch cooking")
	}
	if len(tags) > 0 {
		fmt.Fprintf(&sb, "<p><strong>Tags:</strong> %s</p>", esc(strings.Join(tags, ", ")))
	}
	return sb.String()
}

package ghost

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"balanced-meal-planner/internal/config"
	"balanced-meal-planner/internal/logging"

	"github.com/goccy/go-json"
	"github.com/golang-jwt/jwt/v5"
)

const (
	pageSize   = 50
	apiVersion = "v3"
	// Admin tokens are valid for at most five minutes.
	adminTokenTTL = 5 * time.Minute
)

// Post is a blog post holding one recipe.
type Post struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	HTML      string `json:"html"`
	UpdatedAt string `json:"updated_at"`
	URL       string `json:"url,omitempty"`
}

type postsEnvelope struct {
	Posts []Post `json:"posts"`
	Meta  struct {
		Pagination struct {
			Page  int  `json:"page"`
			Pages int  `json:"pages"`
			Next  *int `json:"next"`
		} `json:"pagination"`
	} `json:"meta"`
}

type newPost struct {
	Title  string   `json:"title"`
	HTML   string   `json:"html"`
	Status string   `json:"status"`
	Tags   []string `json:"tags,omitempty"`
}

// Client reads recipe posts and publishes clipped ones.
type Client interface {
	FetchRecipes(ctx context.Context) ([]Post, error)
	CreatePost(ctx context.Context, title, html string, publish bool) (*Post, error)
}

type ghostClient struct {
	httpClient *http.Client
	baseURL    string
	contentKey string
	adminKey   string
	recipeTag  string
	now        func() time.Time
}

// NewClient creates a Ghost client for the Content and Admin APIs.
func NewClient(cfg *config.Config) Client {
	return &ghostClient{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    strings.TrimRight(cfg.Ghost.URL, "/"),
		contentKey: cfg.Ghost.ContentKey,
		adminKey:   cfg.Ghost.AdminKey,
		recipeTag:  cfg.Ghost.RecipeTag,
		now:        time.Now,
	}
}

// FetchRecipes returns every recipe post, following pagination.
func (c *ghostClient) FetchRecipes(ctx context.Context) ([]Post, error) {
	var all []Post
	for page := 1; ; {
		env, err := c.fetchPage(ctx, page)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch page %d: %w", page, err)
		}
		all = append(all, env.Posts...)
		logging.Ctx(ctx).Debug().Int("page", page).Int("pages", env.Meta.Pagination.Pages).Int("posts", len(env.Posts)).Msg("ghost page fetched")

		next := env.Meta.Pagination.Next
		if next == nil || *next <= page {
			return all, nil
		}
		page = *next
	}
}

func (c *ghostClient) fetchPage(ctx context.Context, page int) (*postsEnvelope, error) {
	q := url.Values{}
	q.Set("key", c.contentKey)
	q.Set("limit", strconv.Itoa(pageSize))
	q.Set("page", strconv.Itoa(page))
	q.Set("formats", "html")
	if c.recipeTag != "" {
		q.Set("filter", "tag:"+c.recipeTag)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("content", q), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	var env postsEnvelope
	if err := c.do(req, &env, http.StatusOK); err != nil {
		return nil, fmt.Errorf("content api: %w", err)
	}
	return &env, nil
}

// CreatePost publishes (or drafts) an HTML post through the Admin API. The
// recipe tag, when configured, is attached so the next ingestion finds it.
func (c *ghostClient) CreatePost(ctx context.Context, title, html string, publish bool) (*Post, error) {
	token, err := c.adminToken()
	if err != nil {
		return nil, fmt.Errorf("failed to create admin token: %w", err)
	}

	p := newPost{Title: title, HTML: html, Status: "draft"}
	if publish {
		p.Status = "published"
	}
	if c.recipeTag != "" {
		p.Tags = []string{c.recipeTag}
	}
	body, err := json.Marshal(map[string][]newPost{"posts": {p}})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal post: %w", err)
	}

	q := url.Values{}
	q.Set("source", "html")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("admin", q), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Ghost "+token)
	req.Header.Set("Content-Type", "application/json")

	var env postsEnvelope
	if err := c.do(req, &env, http.StatusCreated, http.StatusOK); err != nil {
		return nil, fmt.Errorf("admin api: %w", err)
	}
	if len(env.Posts) == 0 {
		return nil, fmt.Errorf("admin api returned no post")
	}
	logging.Ctx(ctx).Info().Str("post", env.Posts[0].ID).Str("status", p.Status).Msg("ghost post created")
	return &env.Posts[0], nil
}

func (c *ghostClient) endpoint(api string, q url.Values) string {
	return fmt.Sprintf("%s/ghost/api/%s/%s/posts/?%s", c.baseURL, apiVersion, api, q.Encode())
}

// do executes req and decodes the JSON body into out when the status is one
// of accepted.
func (c *ghostClient) do(req *http.Request, out any, accepted ...int) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	ok := false
	for _, code := range accepted {
		ok = ok || resp.StatusCode == code
	}
	if !ok {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(errBody)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// adminToken signs a short-lived JWT with the hex secret of the id:secret
// admin key.
func (c *ghostClient) adminToken() (string, error) {
	id, secretHex, ok := strings.Cut(c.adminKey, ":")
	if !ok || id == "" || secretHex == "" {
		return "", fmt.Errorf("invalid admin key format: expected id:secret")
	}
	secret, err := hex.DecodeString(secretHex)
	if err != nil {
		return "", fmt.Errorf("failed to decode secret hex: %w", err)
	}

	now := c.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(adminTokenTTL)),
		Audience:  jwt.ClaimStrings{"/" + apiVersion + "/admin/"},
	})
	token.Header["kid"] = id
	return token.SignedString(secret)
}

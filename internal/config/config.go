package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// ConfigPathEnvVar points at an optional YAML file layered between the
// defaults and the environment.
const ConfigPathEnvVar = "CONFIG_PATH"

// Config holds the configuration for the application.
type Config struct {
	DataDir           string `koanf:"data_dir"`
	DatabasePath      string `koanf:"database_path"`
	RecipeStoragePath string `koanf:"recipe_storage_path"`
	TaxonomyPath      string `koanf:"taxonomy_path"`
	Port              string `koanf:"port"`

	Log       LogConfig       `koanf:"log"`
	LLM       LLMConfig       `koanf:"llm"`
	Ghost     GhostConfig     `koanf:"ghost"`
	Telegram  TelegramConfig  `koanf:"telegram"`
	Scoring   ScoringConfig   `koanf:"scoring"`
	Household HouseholdConfig `koanf:"household"`
}

// LogConfig selects the zerolog level and output format.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// LLMConfig holds the text-generation providers.
type LLMConfig struct {
	GeminiAPIKey string  `koanf:"gemini_api_key"`
	GeminiModel  string  `koanf:"gemini_model"`
	GroqAPIKey   string  `koanf:"groq_api_key"`
	GroqModel    string  `koanf:"groq_model"`
	Temperature  float32 `koanf:"temperature"`
}

// GhostConfig points at the blog used as recipe source.
type GhostConfig struct {
	URL        string `koanf:"url"`
	ContentKey string `koanf:"content_key"`
	AdminKey   string `koanf:"admin_key"`
	// RecipeTag restricts ingestion to posts carrying this tag and is added
	// to clipped posts. Empty means every post is a recipe.
	RecipeTag string `koanf:"recipe_tag"`
}

// TelegramConfig configures the bot front-end.
type TelegramConfig struct {
	BotToken       string  `koanf:"bot_token"`
	WebhookURL     string  `koanf:"webhook_url"`
	AllowedUserIDs []int64 `koanf:"allowed_user_ids"`
	AdminID        int64   `koanf:"admin_id"`
}

// ScoringConfig tunes the recommendation engine. Weights overrides the named
// score constants by key (for example "favorite_bonus: 20").
type ScoringConfig struct {
	Workers        int            `koanf:"workers"`
	Alternatives   int            `koanf:"alternatives"`
	Weights        map[string]int `koanf:"weights"`
	MinPlannedMeal int            `koanf:"min_planned_meals"`
}

// HouseholdConfig seeds the preferences of users who never set their own.
type HouseholdConfig struct {
	FishPerWeek       int      `koanf:"fish_per_week"`
	VegetarianPerWeek int      `koanf:"vegetarian_per_week"`
	RedMeatMax        int      `koanf:"red_meat_max"`
	ExcludedFoods     []string `koanf:"excluded_foods"`
	FavoriteFoods     []string `koanf:"favorite_foods"`
	TimeBudget        string   `koanf:"time_budget"`
	HasBaby           bool     `koanf:"has_baby"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		DataDir:           "data",
		DatabasePath:      filepath.Join("data", "planner.db"),
		RecipeStoragePath: filepath.Join("data", "recipes"),
		Port:              "8080",
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		LLM: LLMConfig{
			GeminiModel: "gemini-1.5-flash",
			GroqModel:   "llama-3.3-70b-versatile",
			Temperature: 0.2,
		},
		Scoring: ScoringConfig{
			Workers:        4,
			Alternatives:   3,
			MinPlannedMeal: 10,
		},
		Household: HouseholdConfig{
			FishPerWeek:       2,
			VegetarianPerWeek: 2,
			RedMeatMax:        2,
			TimeBudget:        "normal",
		},
	}
}

var envMappings = map[string]string{
	"data_dir":                      "data_dir",
	"database_path":                 "database_path",
	"recipe_storage_path":           "recipe_storage_path",
	"taxonomy_path":                 "taxonomy_path",
	"port":                          "port",
	"log_level":                     "log.level",
	"log_format":                    "log.format",
	"gemini_api_key":                "llm.gemini_api_key",
	"gemini_model":                  "llm.gemini_model",
	"groq_api_key":                  "llm.groq_api_key",
	"groq_model":                    "llm.groq_model",
	"llm_temperature":               "llm.temperature",
	"ghost_api_url":                 "ghost.url",
	"ghost_content_api_key":         "ghost.content_key",
	"ghost_admin_api_key":           "ghost.admin_key",
	"ghost_recipe_tag":              "ghost.recipe_tag",
	"telegram_bot_token":            "telegram.bot_token",
	"telegram_webhook_url":          "telegram.webhook_url",
	"telegram_allowed_user_ids":     "telegram.allowed_user_ids",
	"telegram_admin_id":             "telegram.admin_id",
	"scoring_workers":               "scoring.workers",
	"scoring_alternatives":          "scoring.alternatives",
	"planner_min_planned_meals":     "scoring.min_planned_meals",
	"household_fish_per_week":       "household.fish_per_week",
	"household_vegetarian_per_week": "household.vegetarian_per_week",
	"household_red_meat_max":        "household.red_meat_max",
	"household_excluded_foods":      "household.excluded_foods",
	"household_favorite_foods":      "household.favorite_foods",
	"household_time_budget":         "household.time_budget",
	"household_has_baby":            "household.has_baby",
}

var sliceConfigPaths = []string{
	"telegram.allowed_user_ids",
	"household.excluded_foods",
	"household.favorite_foods",
}

func envTransformFunc(key string) string {
	if mapped, ok := envMappings[strings.ToLower(key)]; ok {
		return mapped
	}
	return ""
}

// NewFromEnv loads defaults, then the optional CONFIG_PATH YAML file, then
// environment variables.
func NewFromEnv() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := os.Getenv(ConfigPathEnvVar); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := splitSliceFields(k); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// splitSliceFields turns comma-separated environment values into lists.
func splitSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// Validate checks values every binary depends on.
func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("DATABASE_PATH must not be empty")
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.Log.Format)
	}
	if c.Scoring.Workers < 0 {
		return fmt.Errorf("SCORING_WORKERS must be >= 0, got %d", c.Scoring.Workers)
	}
	if c.Scoring.Alternatives < 0 {
		return fmt.Errorf("SCORING_ALTERNATIVES must be >= 0, got %d", c.Scoring.Alternatives)
	}
	h := c.Household
	if h.FishPerWeek < 0 || h.VegetarianPerWeek < 0 || h.RedMeatMax < 0 {
		return fmt.Errorf("household weekly targets must be >= 0")
	}
	switch h.TimeBudget {
	case "express", "normal", "long":
	default:
		return fmt.Errorf("HOUSEHOLD_TIME_BUDGET must be express, normal or long, got %q", h.TimeBudget)
	}
	return nil
}

// RequireLLM checks that at least one model provider is configured. Gemini
// is preferred for extraction and Groq for narration; either serves both.
func (c *Config) RequireLLM() error {
	if c.LLM.GeminiAPIKey == "" && c.LLM.GroqAPIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY or GROQ_API_KEY environment variable must be set")
	}
	return nil
}

// RequireGhost checks the blog credentials. The admin key falls back to the
// content key when only one is provided.
func (c *Config) RequireGhost() error {
	if c.Ghost.URL == "" {
		return fmt.Errorf("GHOST_API_URL environment variable not set")
	}
	if c.Ghost.ContentKey == "" {
		return fmt.Errorf("GHOST_CONTENT_API_KEY environment variable not set")
	}
	if c.Ghost.AdminKey == "" {
		c.Ghost.AdminKey = c.Ghost.ContentKey
	}
	return nil
}

// RequireTelegram checks the bot settings.
func (c *Config) RequireTelegram() error {
	if c.Telegram.BotToken == "" {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN environment variable not set")
	}
	if c.Telegram.WebhookURL == "" {
		return fmt.Errorf("TELEGRAM_WEBHOOK_URL environment variable not set")
	}
	return nil
}

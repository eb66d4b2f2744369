// Package config loads server settings from the environment.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"

	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Config holds every setting the server reads at startup. Variable names are
// unprefixed (PORT, DB_DRIVER, ...).
type Config struct {
	Port     int    `envconfig:"PORT" default:"5000"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// Storage
	DBDriver    string `envconfig:"DB_DRIVER" default:"sqlite"`
	DBPath      string `envconfig:"DB_PATH" default:"data/journal.db"`
	DatabaseURL string `envconfig:"DATABASE_URL"`

	// Sessions. An empty secret disables authentication (development mode).
	JWTSecret string        `envconfig:"JWT_SECRET"`
	TokenTTL  time.Duration `envconfig:"TOKEN_TTL" default:"168h"`

	GitHubClientID     string `envconfig:"GITHUB_CLIENT_ID"`
	GitHubClientSecret string `envconfig:"GITHUB_CLIENT_SECRET"`
	GitHubCallbackURL  string `envconfig:"GITHUB_CALLBACK_URL"`

	// PublicBaseURL prefixes share links; empty yields relative links.
	PublicBaseURL string `envconfig:"PUBLIC_BASE_URL"`

	// Oracles. Without OPENAI_API_KEY the local hashing embedder is used and
	// completion and transcription report "not configured".
	OpenAIAPIKey       string        `envconfig:"OPENAI_API_KEY"`
	OpenAIBaseURL      string        `envconfig:"OPENAI_BASE_URL"`
	EmbeddingModel     string        `envconfig:"EMBEDDING_MODEL"`
	ChatModel          string        `envconfig:"CHAT_MODEL"`
	TranscriptionModel string        `envconfig:"TRANSCRIPTION_MODEL"`
	CompletionProvider string        `envconfig:"COMPLETION_PROVIDER" default:"openai"`
	AnthropicAPIKey    string        `envconfig:"ANTHROPIC_API_KEY"`
	AnthropicModel     string        `envconfig:"ANTHROPIC_MODEL"`
	UpstreamTimeout    time.Duration `envconfig:"UPSTREAM_TIMEOUT" default:"10s"`

	// Semantic search
	SearchCandidateLimit   int     `envconfig:"SEARCH_CANDIDATE_LIMIT" default:"100"`
	SearchEmbedConcurrency int     `envconfig:"SEARCH_EMBED_CONCURRENCY" default:"8"`
	SearchThreshold        float64 `envconfig:"SEARCH_THRESHOLD" default:"0.3"`
	SearchTopK             int     `envconfig:"SEARCH_TOP_K" default:"10"`
}

// Load reads the environment and validates the result.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("config: reading environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints envconfig can't express.
func (c *Config) Validate() error {
	c.DBDriver = strings.ToLower(strings.TrimSpace(c.DBDriver))
	c.CompletionProvider = strings.ToLower(strings.TrimSpace(c.CompletionProvider))

	switch c.DBDriver {
	case DriverSQLite, DriverMemory:
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("config: DATABASE_URL is required when DB_DRIVER=postgres")
		}
	default:
		return fmt.Errorf("config: unsupported DB_DRIVER %q (want sqlite, postgres or memory)", c.DBDriver)
	}

	switch c.CompletionProvider {
	case ProviderOpenAI:
	case ProviderAnthropic:
		if c.AnthropicAPIKey == "" {
			return fmt.Errorf("config: ANTHROPIC_API_KEY is required when COMPLETION_PROVIDER=anthropic")
		}
	default:
		return fmt.Errorf("config: unsupported COMPLETION_PROVIDER %q", c.CompletionProvider)
	}

	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config: PORT %d out of range", c.Port)
	}
	if c.SearchTopK <= 0 || c.SearchCandidateLimit <= 0 || c.SearchEmbedConcurrency <= 0 {
		return fmt.Errorf("config: SEARCH_TOP_K, SEARCH_CANDIDATE_LIMIT and SEARCH_EMBED_CONCURRENCY must be positive")
	}
	if c.SearchThreshold <= 0 || c.SearchThreshold >= 1 {
		return fmt.Errorf("config: SEARCH_THRESHOLD %v must be in (0, 1)", c.SearchThreshold)
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	return nil
}

func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("config: invalid LOG_LEVEL %q: %w", c.LogLevel, err)
	}
	return level, nil
}

func (c *Config) AuthEnabled() bool { return c.JWTSecret != "" }

func (c *Config) GitHubEnabled() bool {
	return c.AuthEnabled() && c.GitHubClientID != "" && c.GitHubClientSecret != ""
}

// Redacted returns log attributes that are safe to print.
func (c *Config) Redacted() []any {
	return []any{
		slog.Int("port", c.Port),
		slog.String("db_driver", c.DBDriver),
		slog.Bool("auth_enabled", c.AuthEnabled()),
		slog.Bool("github_enabled", c.GitHubEnabled()),
		slog.Bool("openai_key_present", c.OpenAIAPIKey != ""),
		slog.String("completion_provider", c.CompletionProvider),
		slog.Duration("upstream_timeout", c.UpstreamTimeout),
	}
}

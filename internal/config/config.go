// Package config provides application configuration.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ashureev/genomics-xai/internal/textgen"
)

// Config holds all application configuration.
type Config struct {
	Port        string
	FrontendURL string
	AppEnv      string
	LogLevel    slog.Level
	CatalogDSN  string
	UmapSeed    int64
	SidecarAddr string
	TextGen     TextGenConfig
	Workspace   WorkspaceConfig
	RateLimit   RateLimitConfig
	Audit       AuditConfig

	// MaxRequestBodySize caps JSON request bodies in bytes.
	MaxRequestBodySize int64
}

// TextGenConfig selects and configures the text generation provider.
type TextGenConfig struct {
	Provider  string
	Model     string
	APIKey    string
	BaseURL   string
	GrpcAddr  string
	Timeout   time.Duration
	MaxTokens int
}

// Settings converts the configuration into provider settings.
func (t TextGenConfig) Settings() textgen.Settings {
	return textgen.Settings{
		APIKey:    t.APIKey,
		BaseURL:   t.BaseURL,
		Model:     t.Model,
		Address:   t.GrpcAddr,
		MaxTokens: t.MaxTokens,
		Timeout:   t.Timeout,
	}
}

// WorkspaceConfig controls idle workspace eviction.
type WorkspaceConfig struct {
	TTL           time.Duration
	SweepInterval time.Duration
}

// RateLimitConfig bounds AI-triggering requests per visitor.
type RateLimitConfig struct {
	RequestsPerWindow int
	WindowDuration    time.Duration
}

// AuditConfig controls the NDJSON audit trail.
type AuditConfig struct {
	Enabled   bool
	Dir       string
	QueueSize int
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	provider := strings.ToLower(getEnv("TEXTGEN_PROVIDER", "gemini"))

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		FrontendURL: getEnv("FRONTEND_URL", ""),
		AppEnv:      getEnv("APP_ENV", "development"),
		LogLevel:    getEnvLevel("LOG_LEVEL", slog.LevelInfo),
		CatalogDSN:  getEnv("CATALOG_DSN", ":memory:"),
		UmapSeed:    int64(getEnvInt("UMAP_SEED", 0)),
		SidecarAddr: getEnv("SIDECAR_ADDR", ":50051"),
		TextGen: TextGenConfig{
			Provider:  provider,
			Model:     getEnv("TEXTGEN_MODEL", ""),
			APIKey:    apiKey(provider),
			BaseURL:   getEnv("TEXTGEN_BASE_URL", ""),
			GrpcAddr:  getEnv("TEXTGEN_GRPC_ADDR", "localhost:50051"),
			Timeout:   getEnvDuration("TEXTGEN_TIMEOUT", 60*time.Second),
			MaxTokens: getEnvInt("TEXTGEN_MAX_TOKENS", 1024),
		},
		Workspace: WorkspaceConfig{
			TTL:           getEnvDuration("WORKSPACE_TTL", 60*time.Minute),
			SweepInterval: getEnvDuration("WORKSPACE_SWEEP_INTERVAL", 5*time.Minute),
		},
		RateLimit: RateLimitConfig{
			RequestsPerWindow: getEnvInt("RATE_LIMIT_REQUESTS", 30),
			WindowDuration:    getEnvDuration("RATE_LIMIT_WINDOW", time.Minute),
		},
		Audit: AuditConfig{
			Enabled:   getEnvBool("AUDIT_LOG_ENABLED", false),
			Dir:       getEnv("AUDIT_LOG_PATH", "./data/logs/audit"),
			QueueSize: getEnvInt("AUDIT_LOG_QUEUE_SIZE", 1000),
		},
		MaxRequestBodySize: int64(getEnvInt("MAX_REQUEST_BODY_SIZE", 64*1024)),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set. A missing
// API key is not an error: the first call fails instead.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if _, ok := textgen.Lookup(c.TextGen.Provider); !ok {
		return fmt.Errorf("TEXTGEN_PROVIDER %q is not one of %s", c.TextGen.Provider, strings.Join(textgen.Providers(), ", "))
	}
	if c.TextGen.Timeout < 0 {
		return fmt.Errorf("TEXTGEN_TIMEOUT cannot be negative")
	}
	if c.TextGen.Provider == "grpc" && c.TextGen.GrpcAddr == "" {
		return fmt.Errorf("TEXTGEN_GRPC_ADDR cannot be empty for the grpc provider")
	}
	if c.Workspace.TTL <= 0 {
		return fmt.Errorf("WORKSPACE_TTL must be > 0")
	}
	if c.Workspace.SweepInterval <= 0 {
		return fmt.Errorf("WORKSPACE_SWEEP_INTERVAL must be > 0")
	}
	if c.RateLimit.RequestsPerWindow <= 0 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be > 0")
	}
	if c.RateLimit.WindowDuration <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be > 0")
	}
	if c.MaxRequestBodySize <= 0 {
		return fmt.Errorf("MAX_REQUEST_BODY_SIZE must be > 0")
	}
	if c.Audit.Enabled && c.Audit.Dir == "" {
		return fmt.Errorf("AUDIT_LOG_PATH cannot be empty")
	}
	if c.Audit.QueueSize <= 0 {
		return fmt.Errorf("AUDIT_LOG_QUEUE_SIZE must be > 0")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	if c.AppEnv == "production" {
		return false
	}
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

// apiKey prefers API_KEY and falls back to the provider's own variable.
func apiKey(provider string) string {
	if v := getEnv("API_KEY", ""); v != "" {
		return v
	}
	if reg, ok := textgen.Lookup(provider); ok && reg.EnvKey != "" {
		return getEnv(reg.EnvKey, "")
	}
	return ""
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}

func getEnvLevel(key string, fallback slog.Level) slog.Level {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(value))); err != nil {
		return fallback
	}
	return level
}

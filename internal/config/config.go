package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	ProviderOpenAI   = "openai"
	ProviderGoogleAI = "googleai"
)

type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	LLM       LLMConfig       `mapstructure:"llm"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Gmail     GmailConfig     `mapstructure:"gmail"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

type ServerConfig struct {
	Port           string        `mapstructure:"port"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	MaxUploadBytes int64         `mapstructure:"max_upload_bytes"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

type DatabaseConfig struct {
	DSN         string `mapstructure:"dsn"`
	AutoMigrate bool   `mapstructure:"auto_migrate"`
}

type LLMConfig struct {
	Provider     string        `mapstructure:"provider"`
	APIKey       string        `mapstructure:"api_key"`
	GeminiAPIKey string        `mapstructure:"gemini_api_key"`
	Model        string        `mapstructure:"model"`
	Temperature  float64       `mapstructure:"temperature"`
	MaxTokens    int           `mapstructure:"max_tokens"`
	Timeout      time.Duration `mapstructure:"timeout"`
	MaxLogLength int           `mapstructure:"max_log_length"`
	Breaker      BreakerConfig `mapstructure:"breaker"`
}

type BreakerConfig struct {
	Enabled          bool          `mapstructure:"enabled"`
	MaxRequests      uint32        `mapstructure:"max_requests"`
	Interval         time.Duration `mapstructure:"interval"`
	Timeout          time.Duration `mapstructure:"timeout"`
	MinRequests      uint32        `mapstructure:"min_requests"`
	FailureThreshold float64       `mapstructure:"failure_threshold"`
}

type RateLimitConfig struct {
	Enabled           bool `mapstructure:"enabled"`
	RequestsPerMinute int  `mapstructure:"requests_per_minute"`
	Burst             int  `mapstructure:"burst"`
}

type GmailConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	CredentialsFile string        `mapstructure:"credentials_file"`
	TokenFile       string        `mapstructure:"token_file"`
	PollInterval    time.Duration `mapstructure:"poll_interval"`
	Query           string        `mapstructure:"query"`
}

// envBindings maps config keys to the environment variables that may carry them.
// The first variable found wins.
var envBindings = map[string][]string{
	"log.level":              {"LOG_LEVEL"},
	"log.json":               {"LOG_JSON"},
	"server.port":            {"PORT"},
	"server.allowed_origins": {"ALLOWED_ORIGINS"},
	"database.dsn":           {"DATABASE_URL", "SUPABASE_DB_URL"},
	"database.auto_migrate":  {"DB_AUTO_MIGRATE"},
	"llm.provider":           {"LLM_PROVIDER"},
	"llm.api_key":            {"OPENAI_API_KEY"},
	"llm.gemini_api_key":     {"GEMINI_API_KEY"},
	"llm.model":              {"OPENAI_MODEL", "LLM_MODEL"},
	"llm.temperature":        {"LLM_TEMPERATURE"},
	"llm.max_tokens":         {"LLM_MAX_TOKENS"},
	"llm.timeout":            {"LLM_TIMEOUT"},
	"rate_limit.enabled":     {"RATE_LIMIT_ENABLED"},
	"gmail.enabled":          {"GMAIL_ENABLED"},
	"gmail.credentials_file": {"GMAIL_CREDENTIALS_FILE"},
	"gmail.token_file":       {"GMAIL_TOKEN_FILE"},
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)

	v.SetDefault("server.port", "8000")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:5173", "http://localhost:5174"})
	v.SetDefault("server.max_upload_bytes", 10<<20)
	v.SetDefault("server.request_timeout", 60*time.Second)

	v.SetDefault("database.dsn", "")
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("llm.provider", ProviderOpenAI)
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.gemini_api_key", "")
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.temperature", 0.3)
	v.SetDefault("llm.max_tokens", 1000)
	v.SetDefault("llm.timeout", 45*time.Second)
	v.SetDefault("llm.max_log_length", 200)
	v.SetDefault("llm.breaker.enabled", true)
	v.SetDefault("llm.breaker.max_requests", 1)
	v.SetDefault("llm.breaker.interval", 60*time.Second)
	v.SetDefault("llm.breaker.timeout", 30*time.Second)
	v.SetDefault("llm.breaker.min_requests", 3)
	v.SetDefault("llm.breaker.failure_threshold", 0.6)

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests_per_minute", 120)
	v.SetDefault("rate_limit.burst", 20)

	v.SetDefault("gmail.enabled", false)
	v.SetDefault("gmail.credentials_file", "credentials.json")
	v.SetDefault("gmail.token_file", "token.json")
	v.SetDefault("gmail.poll_interval", 15*time.Minute)
	v.SetDefault("gmail.query", "subject:(application OR interview OR update OR offer OR rejected OR status) newer_than:7d")
}

// Load reads configuration once: .env (optional), defaults, an optional
// config file and environment variables, in increasing precedence.
// An empty configFile looks for jobtracker.yaml in the working directory.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	if v == nil {
		v = viper.New()
	}
	setDefaults(v)

	for key, envs := range envBindings {
		args := append([]string{key}, envs...)
		if err := v.BindEnv(args...); err != nil {
			return nil, fmt.Errorf("bind env for %s: %w", key, err)
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("jobtracker")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.normalize()

	return &cfg, cfg.Validate()
}

func (c *Config) normalize() {
	c.LLM.Provider = strings.ToLower(strings.TrimSpace(c.LLM.Provider))
	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	c.LLM.GeminiAPIKey = strings.TrimSpace(c.LLM.GeminiAPIKey)
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)

	// ALLOWED_ORIGINS arrives as one comma separated string.
	var origins []string
	for _, o := range c.Server.AllowedOrigins {
		for _, part := range strings.Split(o, ",") {
			if part = strings.TrimSpace(part); part != "" {
				origins = append(origins, part)
			}
		}
	}
	c.Server.AllowedOrigins = origins
}

// Validate rejects settings the server cannot start with. A missing or
// malformed LLM credential is not an error: it selects fallback scoring.
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case ProviderOpenAI, ProviderGoogleAI:
	default:
		return fmt.Errorf("unsupported llm provider %q", c.LLM.Provider)
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return fmt.Errorf("llm temperature %v out of range [0,2]", c.LLM.Temperature)
	}
	if c.LLM.MaxTokens <= 0 {
		return fmt.Errorf("llm max_tokens must be positive, got %d", c.LLM.MaxTokens)
	}
	if c.Server.Port == "" {
		return errors.New("server port is required")
	}
	if c.Server.MaxUploadBytes <= 0 {
		return errors.New("server max_upload_bytes must be positive")
	}
	if c.RateLimit.Enabled && (c.RateLimit.RequestsPerMinute <= 0 || c.RateLimit.Burst <= 0) {
		return errors.New("rate limit requires positive requests_per_minute and burst")
	}
	return nil
}

// CredentialUsable reports whether the configured provider has a key in the
// expected format. The check runs once at startup.
func (c LLMConfig) CredentialUsable() bool {
	switch c.Provider {
	case ProviderOpenAI:
		return strings.HasPrefix(c.APIKey, "sk-")
	case ProviderGoogleAI:
		return strings.HasPrefix(c.GeminiAPIKey, "AIza")
	default:
		return false
	}
}

// ModelName returns the configured model or the provider default.
func (c LLMConfig) ModelName() string {
	if c.Model != "" {
		return c.Model
	}
	if c.Provider == ProviderGoogleAI {
		return "gemini-2.5-flash"
	}
	return "gpt-4o-mini"
}

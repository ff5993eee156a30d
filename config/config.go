package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/tluyben/lawyeredup/provider"
)

type (
	// Config holds settings for the flows, the provider and the API server
	Config struct {
		// Provider
		Provider      string
		Model         string // empty selects the provider's default
		MaxTokens     int
		Timeout       time.Duration
		AnthropicKey  string
		GeminiKey     string
		OpenRouterKey string

		// Flows & Library
		FlowsDir  string
		IndexPath string

		// API Server
		APIHost string
		APIPort int

		// Logging
		LogLevel  string
		LogFormat string
	}
)

const (
	ProviderAnthropic  = "anthropic"
	ProviderGemini     = "gemini"
	ProviderOpenRouter = "openrouter"

	DefaultProvider  = ProviderAnthropic
	DefaultMaxTokens = 4096
	MaxMaxTokens     = math.MaxInt32
	DefaultTimeout   = 60 * time.Second

	DefaultIndexPath = "lawyeredup.bleve"

	DefaultAPIHost = "0.0.0.0"
	DefaultAPIPort = 8080
	MaxTCPPort     = 65535

	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"
)

var (
	ErrInvalidProvider  = errors.New("invalid provider")
	ErrMissingAPIKey    = errors.New("API key for the selected provider is not set")
	ErrInvalidMaxTokens = errors.New("max tokens out of range")
	ErrInvalidTimeout   = errors.New("timeout must be positive")
	ErrInvalidAPIPort   = errors.New("invalid API port")
	ErrInvalidLogLevel  = errors.New("invalid log level")
	ErrInvalidLogFormat = errors.New("invalid log format")
	ErrInvalidValue     = errors.New("invalid environment value")
)

// NewDefaultConfig creates a configuration with defaults for every setting
// except credentials
func NewDefaultConfig() *Config {
	return &Config{
		Provider:  DefaultProvider,
		MaxTokens: DefaultMaxTokens,
		Timeout:   DefaultTimeout,
		IndexPath: DefaultIndexPath,
		APIHost:   DefaultAPIHost,
		APIPort:   DefaultAPIPort,
		LogLevel:  DefaultLogLevel,
		LogFormat: DefaultLogFormat,
	}
}

// Load reads an optional .env file and then the process environment
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("error loading %s: %w", f, err)
		}
	}
	cfg := NewDefaultConfig()
	if err := cfg.LoadFromEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromEnv overrides settings with any environment variables that are set
func (c *Config) LoadFromEnv() error {
	if v := os.Getenv("LEXFLOW_PROVIDER"); v != "" {
		c.Provider = strings.ToLower(v)
	}
	if v := os.Getenv("LEXFLOW_MODEL"); v != "" {
		c.Model = v
	}
	if err := envInt("LEXFLOW_MAX_TOKENS", &c.MaxTokens); err != nil {
		return err
	}
	if v := os.Getenv("LEXFLOW_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: LEXFLOW_TIMEOUT=%q", ErrInvalidValue, v)
		}
		c.Timeout = d
	}

	c.AnthropicKey = envOr("ANTHROPIC_API_KEY", c.AnthropicKey)
	c.GeminiKey = envOr("GEMINI_API_KEY", c.GeminiKey)
	c.OpenRouterKey = envOr("OR_KEY", c.OpenRouterKey)

	c.FlowsDir = envOr("LEXFLOW_FLOWS_DIR", c.FlowsDir)
	c.IndexPath = envOr("LEXFLOW_INDEX", c.IndexPath)

	c.APIHost = envOr("API_HOST", c.APIHost)
	if err := envInt("API_PORT", &c.APIPort); err != nil {
		return err
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = strings.ToLower(v)
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		c.LogFormat = strings.ToLower(v)
	}
	return nil
}

// Validate checks the configuration for invalid values
func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderAnthropic, ProviderGemini, ProviderOpenRouter:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidProvider, c.Provider)
	}
	if c.APIKey() == "" {
		return fmt.Errorf("%w: %s", ErrMissingAPIKey, c.Provider)
	}
	if c.MaxTokens <= 0 || c.MaxTokens > MaxMaxTokens {
		return fmt.Errorf("%w: %d", ErrInvalidMaxTokens, c.MaxTokens)
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.APIPort <= 0 || c.APIPort > MaxTCPPort {
		return fmt.Errorf("%w: %d", ErrInvalidAPIPort, c.APIPort)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidLogLevel, c.LogLevel)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidLogFormat, c.LogFormat)
	}
	return nil
}

// APIKey returns the credential for the selected provider
func (c *Config) APIKey() string {
	switch c.Provider {
	case ProviderAnthropic:
		return c.AnthropicKey
	case ProviderGemini:
		return c.GeminiKey
	case ProviderOpenRouter:
		return c.OpenRouterKey
	default:
		return ""
	}
}

// ModelName returns the configured model, or the default model of the
// selected provider when none is set
func (c *Config) ModelName() string {
	if c.Model != "" {
		return c.Model
	}
	switch c.Provider {
	case ProviderAnthropic:
		return provider.DefaultAnthropicModel
	case ProviderGemini:
		return provider.DefaultGeminiModel
	case ProviderOpenRouter:
		return provider.DefaultOpenRouterModel
	default:
		return ""
	}
}

// Addr returns the host:port the API server listens on
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.APIHost, c.APIPort)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, dst *int) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%w: %s=%q", ErrInvalidValue, key, v)
	}
	*dst = n
	return nil
}

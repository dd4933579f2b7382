package common

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Pipeline  PipelineConfig  `toml:"pipeline"`
	Output    OutputConfig    `toml:"output"`
	Reddit    RedditConfig    `toml:"reddit"`
	Logging   LoggingConfig   `toml:"logging"`
	Storage   StorageConfig   `toml:"storage"`
	Sentiment SentimentConfig `toml:"sentiment"`
	Alerts    AlertsConfig    `toml:"alerts"`
}

// PipelineConfig is the configuration surface consumed by the hotness pipeline
type PipelineConfig struct {
	Channels        []string      `toml:"channels"`
	LookbackHours   int           `toml:"lookback_hours" validate:"gt=0"`
	Limits          LimitsConfig  `toml:"limits"`
	Weights         WeightsConfig `toml:"weights"`
	Threshold       float64       `toml:"threshold"`
	TopKLinks       int           `toml:"top_k_links" validate:"gte=0"`
	TickerWhitelist []string      `toml:"ticker_whitelist"`
	TickerBlacklist []string      `toml:"ticker_blacklist"`
	Concurrency     int           `toml:"concurrency" validate:"gte=1"`
	Deadline        string        `toml:"deadline"` // Overall run deadline, e.g. "10m" (empty = none)
}

// LimitsConfig bounds how much is fetched per channel and per item
type LimitsConfig struct {
	ItemsPerChannel int `toml:"items_per_channel" validate:"gt=0"`
	RepliesPerItem  int `toml:"replies_per_item" validate:"gte=0"`
}

// WeightsConfig holds the linear hotness weights. Negative values are allowed.
type WeightsConfig struct {
	Mentions   float64 `toml:"mentions"`
	Engagement float64 `toml:"engagement"`
	Replies    float64 `toml:"replies"`
}

type OutputConfig struct {
	Path        string `toml:"path" validate:"required"`
	FailurePath string `toml:"failure_path"` // Defaults to Path
	ReportPath  string `toml:"report_path"`  // .md or .html, empty disables the report
}

// RedditConfig configures the Reddit source fetcher
type RedditConfig struct {
	BaseURL      string `toml:"base_url" validate:"required,url"`
	OAuthBaseURL string `toml:"oauth_base_url" validate:"omitempty,url"`
	TokenURL     string `toml:"token_url" validate:"omitempty,url"`
	UserAgent    string `toml:"user_agent" validate:"required"`
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RateLimit    int    `toml:"rate_limit" validate:"gte=1"` // Requests per second
	Timeout      string `toml:"timeout"`
	MaxRetries   int    `toml:"max_retries" validate:"gte=1"`
	RetryBackoff string `toml:"retry_backoff"`
	PageDelay    string `toml:"page_delay"`
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Output []string `toml:"output"` // "stdout", "file"
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

// SentimentProvider selects the LLM backing sentiment enrichment
type SentimentProvider string

const (
	SentimentProviderNone   SentimentProvider = ""
	SentimentProviderGemini SentimentProvider = "gemini"
	SentimentProviderClaude SentimentProvider = "claude"
)

type SentimentConfig struct {
	Provider     SentimentProvider `toml:"provider" validate:"omitempty,oneof=gemini claude"`
	GeminiAPIKey string            `toml:"gemini_api_key"`
	GeminiModel  string            `toml:"gemini_model"`
	ClaudeAPIKey string            `toml:"claude_api_key"`
	ClaudeModel  string            `toml:"claude_model"`
	MaxItems     int               `toml:"max_items" validate:"gte=1"`
	TTL          string            `toml:"ttl"`
	Timeout      string            `toml:"timeout"`
}

type AlertsConfig struct {
	Enabled      bool `toml:"enabled"`
	ZScoreWindow int  `toml:"zscore_window" validate:"gte=2"`
	RSIPeriod    int  `toml:"rsi_period" validate:"gte=1"`
}

// NewDefaultConfig creates a configuration with default values
func NewDefaultConfig() *Config {
	return &Config{
		Pipeline: PipelineConfig{
			Channels:      []string{"wallstreetbets", "stocks"},
			LookbackHours: 240,
			Limits: LimitsConfig{
				ItemsPerChannel: 100,
				RepliesPerItem:  200,
			},
			Weights: WeightsConfig{
				Mentions:   10.0,
				Engagement: 0.1,
				Replies:    0.5,
			},
			Threshold:       0.0,
			TopKLinks:       3,
			TickerWhitelist: []string{},
			TickerBlacklist: []string{},
			Concurrency:     4,
		},
		Output: OutputConfig{
			Path: "data/hotstocks.json",
		},
		Reddit: RedditConfig{
			BaseURL:      "https://www.reddit.com",
			OAuthBaseURL: "https://oauth.reddit.com",
			TokenURL:     "https://www.reddit.com/api/v1/access_token",
			UserAgent:    "HotStocksPipeline/0.1 (by u/anonymous)",
			RateLimit:    1,
			Timeout:      "20s",
			MaxRetries:   3,
			RetryBackoff: "800ms",
			PageDelay:    "500ms",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout"},
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data/badger",
			},
		},
		Sentiment: SentimentConfig{
			GeminiModel: "gemini-2.0-flash",
			ClaudeModel: "claude-3-5-haiku-latest",
			MaxItems:    50,
			TTL:         "5m",
			Timeout:     "60s",
		},
		Alerts: AlertsConfig{
			ZScoreWindow: 50,
			RSIPeriod:    14,
		},
	}
}

// LoadFromFiles loads configuration from multiple files with priority: default -> file1 -> file2 -> ... -> env
// Later files override earlier files. Flag overrides are applied by the caller via ApplyFlagOverrides.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, &ConfigurationError{Field: "config", Reason: fmt.Sprintf("failed to read config file %s: %v", path, err)}
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, &ConfigurationError{Field: "config", Reason: fmt.Sprintf("failed to parse config file %s (file %d of %d): %v", path, i+1, len(paths), err)}
		}
	}

	if err := applyEnvOverrides(config); err != nil {
		return nil, err
	}

	return config, nil
}

// applyEnvOverrides applies HOTSTOCKS_* environment variable overrides to config
func applyEnvOverrides(config *Config) error {
	// Pipeline configuration
	if channels := os.Getenv("HOTSTOCKS_CHANNELS"); channels != "" {
		config.Pipeline.Channels = splitList(channels)
	}
	if lookback := os.Getenv("HOTSTOCKS_LOOKBACK_HOURS"); lookback != "" {
		h, err := strconv.Atoi(lookback)
		if err != nil {
			return &ConfigurationError{Field: "HOTSTOCKS_LOOKBACK_HOURS", Reason: fmt.Sprintf("not an integer: %q", lookback)}
		}
		config.Pipeline.LookbackHours = h
	}
	if threshold := os.Getenv("HOTSTOCKS_THRESHOLD"); threshold != "" {
		v, err := strconv.ParseFloat(threshold, 64)
		if err != nil || !isFinite(v) {
			return &ConfigurationError{Field: "HOTSTOCKS_THRESHOLD", Reason: fmt.Sprintf("not a number: %q", threshold)}
		}
		config.Pipeline.Threshold = v
	}

	// Output configuration
	if path := os.Getenv("HOTSTOCKS_OUTPUT_PATH"); path != "" {
		config.Output.Path = path
	}

	// Reddit credentials
	if id := os.Getenv("HOTSTOCKS_REDDIT_CLIENT_ID"); id != "" {
		config.Reddit.ClientID = id
	}
	if secret := os.Getenv("HOTSTOCKS_REDDIT_CLIENT_SECRET"); secret != "" {
		config.Reddit.ClientSecret = secret
	}

	// Storage configuration
	if badgerPath := os.Getenv("HOTSTOCKS_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}

	// Logging configuration
	if level := os.Getenv("HOTSTOCKS_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("HOTSTOCKS_LOG_OUTPUT"); output != "" {
		if outputs := splitList(output); len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}

	// Satellites
	if provider := os.Getenv("HOTSTOCKS_SENTIMENT_PROVIDER"); provider != "" {
		config.Sentiment.Provider = SentimentProvider(strings.ToLower(strings.TrimSpace(provider)))
	}
	if enabled := os.Getenv("HOTSTOCKS_ALERTS_ENABLED"); enabled != "" {
		v, err := strconv.ParseBool(enabled)
		if err != nil {
			return &ConfigurationError{Field: "HOTSTOCKS_ALERTS_ENABLED", Reason: fmt.Sprintf("not a boolean: %q", enabled)}
		}
		config.Alerts.Enabled = v
	}

	// Sentiment API keys
	if key := os.Getenv("HOTSTOCKS_GEMINI_API_KEY"); key != "" {
		config.Sentiment.GeminiAPIKey = key
	}
	if key := os.Getenv("HOTSTOCKS_CLAUDE_API_KEY"); key != "" {
		config.Sentiment.ClaudeAPIKey = key
	} else if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" && config.Sentiment.ClaudeAPIKey == "" {
		config.Sentiment.ClaudeAPIKey = key
	}

	return nil
}

// FlagOverrides carries command-line values. Zero values leave the config untouched.
type FlagOverrides struct {
	OutputPath    string
	ReportPath    string
	Channels      string
	LookbackHours int
}

// ApplyFlagOverrides applies command-line flag overrides to config
func ApplyFlagOverrides(config *Config, flags FlagOverrides) {
	if flags.OutputPath != "" {
		config.Output.Path = flags.OutputPath
	}
	if flags.ReportPath != "" {
		config.Output.ReportPath = flags.ReportPath
	}
	if flags.Channels != "" {
		config.Pipeline.Channels = splitList(flags.Channels)
	}
	if flags.LookbackHours > 0 {
		config.Pipeline.LookbackHours = flags.LookbackHours
	}
}

// Validate checks the configuration once at the boundary.
// An empty channel list is reported as a ConfigurationError.
func (c *Config) Validate() error {
	if len(c.Pipeline.Channels) == 0 {
		return &ConfigurationError{Field: "pipeline.channels", Reason: "at least one channel is required"}
	}
	for _, ch := range c.Pipeline.Channels {
		if strings.TrimSpace(ch) == "" {
			return &ConfigurationError{Field: "pipeline.channels", Reason: "channel names must not be blank"}
		}
	}

	numbers := []struct {
		field string
		value float64
	}{
		{"pipeline.threshold", c.Pipeline.Threshold},
		{"pipeline.weights.mentions", c.Pipeline.Weights.Mentions},
		{"pipeline.weights.engagement", c.Pipeline.Weights.Engagement},
		{"pipeline.weights.replies", c.Pipeline.Weights.Replies},
	}
	for _, n := range numbers {
		if !isFinite(n.value) {
			return &ConfigurationError{Field: n.field, Reason: fmt.Sprintf("must be a finite number, got %v", n.value)}
		}
	}

	if err := validator.New().Struct(c); err != nil {
		return &ConfigurationError{Field: "config", Reason: err.Error()}
	}

	durations := map[string]string{
		"pipeline.deadline":    c.Pipeline.Deadline,
		"reddit.timeout":       c.Reddit.Timeout,
		"reddit.retry_backoff": c.Reddit.RetryBackoff,
		"reddit.page_delay":    c.Reddit.PageDelay,
		"sentiment.ttl":        c.Sentiment.TTL,
		"sentiment.timeout":    c.Sentiment.Timeout,
	}
	for field, value := range durations {
		if value == "" {
			continue
		}
		if _, err := time.ParseDuration(value); err != nil {
			return &ConfigurationError{Field: field, Reason: fmt.Sprintf("invalid duration %q", value)}
		}
	}

	return nil
}

// ParseDurationOr parses a duration string, returning fallback when empty or invalid
func ParseDurationOr(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}

// FailurePathOrDefault returns where a failure artifact should be written
func (o OutputConfig) FailurePathOrDefault() string {
	if o.FailurePath != "" {
		return o.FailurePath
	}
	return o.Path
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// splitList splits a comma-separated value, dropping blanks
func splitList(s string) []string {
	result := []string{}
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

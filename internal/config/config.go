// Package config loads kabuten's runtime configuration and the sector roster.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all kabuten configuration.
type Config struct {
	// LLM configuration
	LLM LLMConfig `yaml:"llm"`

	// Per-call timeouts for the reasoning provider
	Timeouts TimeoutsConfig `yaml:"timeouts"`

	// Concurrency and projection limits
	Limits LimitsConfig `yaml:"limits"`

	// Persistence
	Store StoreConfig `yaml:"store"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`

	// SectorsFile overrides the embedded roster when set.
	SectorsFile string `yaml:"sectors_file"`
}

// LLMConfig configures the reasoning provider.
type LLMConfig struct {
	Provider string `yaml:"provider"` // anthropic, gemini
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`
	BaseURL  string `yaml:"base_url"`
}

// TimeoutsConfig holds duration strings for each kind of reasoning call.
type TimeoutsConfig struct {
	LeafCall      string `yaml:"leaf_call"`
	EscalatedCall string `yaml:"escalated_call"`
	SynthesisCall string `yaml:"synthesis_call"`
	ChatCall      string `yaml:"chat_call"`
	SlotAcquire   string `yaml:"slot_acquire"`
}

// LimitsConfig caps outbound API usage and conversation context.
type LimitsConfig struct {
	// MaxConcurrentAPICalls bounds in-flight reasoning calls process-wide.
	MaxConcurrentAPICalls int `yaml:"max_concurrent_api_calls"`

	// MinRequestInterval is the minimum spacing between call starts.
	MinRequestInterval string `yaml:"min_request_interval"`

	// ChatHistoryWindow is how many trailing thread entries feed a chat.
	ChatHistoryWindow int `yaml:"chat_history_window"`

	// MaxWebSearches is the retrieval allowance per company sweep call.
	MaxWebSearches int `yaml:"max_web_searches"`
}

// StoreConfig configures the SQLite store.
type StoreConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
}

// Defaults used when a duration string is missing or malformed.
const (
	DefaultLeafCallTimeout      = 90 * time.Second
	DefaultEscalatedCallTimeout = 180 * time.Second
	DefaultSynthesisCallTimeout = 120 * time.Second
	DefaultChatCallTimeout      = 180 * time.Second
	DefaultSlotAcquireTimeout   = 5 * time.Minute
	DefaultMinRequestInterval   = 100 * time.Millisecond

	DefaultMaxConcurrentAPICalls = 8
	DefaultChatHistoryWindow     = 20
	DefaultMaxWebSearches        = 3
)

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider: "anthropic",
			Model:    "claude-sonnet-4-5-20250929",
			BaseURL:  "https://api.anthropic.com/v1",
		},

		Timeouts: TimeoutsConfig{
			LeafCall:      "90s",
			EscalatedCall: "180s",
			SynthesisCall: "120s",
			ChatCall:      "180s",
			SlotAcquire:   "5m",
		},

		Limits: LimitsConfig{
			MaxConcurrentAPICalls: DefaultMaxConcurrentAPICalls,
			MinRequestInterval:    "100ms",
			ChatHistoryWindow:     DefaultChatHistoryWindow,
			MaxWebSearches:        DefaultMaxWebSearches,
		},

		Store: StoreConfig{
			DatabasePath: "data/kabuten.db",
		},

		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Return defaults if config file doesn't exist
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Override with environment variables
	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
// A configured gemini provider keeps GEMINI_API_KEY; otherwise
// ANTHROPIC_API_KEY wins over GEMINI_API_KEY.
func (c *Config) applyEnvOverrides() {
	anthropicKey := os.Getenv("ANTHROPIC_API_KEY")
	geminiKey := os.Getenv("GEMINI_API_KEY")

	switch {
	case c.LLM.Provider == "gemini" && geminiKey != "":
		c.LLM.APIKey = geminiKey
	case anthropicKey != "":
		c.LLM.APIKey = anthropicKey
		c.LLM.Provider = "anthropic"
	case geminiKey != "":
		c.LLM.APIKey = geminiKey
		c.LLM.Provider = "gemini"
	}

	if model := os.Getenv("KABUTEN_MODEL"); model != "" {
		c.LLM.Model = model
	}
	if path := os.Getenv("KABUTEN_DB"); path != "" {
		c.Store.DatabasePath = path
	}
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// GetLeafCallTimeout returns the low-effort company sweep timeout.
func (c *Config) GetLeafCallTimeout() time.Duration {
	return parseDuration(c.Timeouts.LeafCall, DefaultLeafCallTimeout)
}

// GetEscalatedCallTimeout returns the high-effort company sweep timeout.
func (c *Config) GetEscalatedCallTimeout() time.Duration {
	return parseDuration(c.Timeouts.EscalatedCall, DefaultEscalatedCallTimeout)
}

// GetSynthesisCallTimeout returns the sector reduction timeout.
func (c *Config) GetSynthesisCallTimeout() time.Duration {
	return parseDuration(c.Timeouts.SynthesisCall, DefaultSynthesisCallTimeout)
}

// GetChatCallTimeout returns the conversation call timeout.
func (c *Config) GetChatCallTimeout() time.Duration {
	return parseDuration(c.Timeouts.ChatCall, DefaultChatCallTimeout)
}

// GetSlotAcquireTimeout returns how long a call may wait for an API slot.
func (c *Config) GetSlotAcquireTimeout() time.Duration {
	return parseDuration(c.Timeouts.SlotAcquire, DefaultSlotAcquireTimeout)
}

// GetMinRequestInterval returns the minimum spacing between call starts.
// An explicit "0s" disables spacing.
func (c *Config) GetMinRequestInterval() time.Duration {
	d, err := time.ParseDuration(c.Limits.MinRequestInterval)
	if err != nil || d < 0 {
		return DefaultMinRequestInterval
	}
	return d
}

// GetMaxConcurrentAPICalls returns the API slot count, at least 1.
func (c *Config) GetMaxConcurrentAPICalls() int {
	if c.Limits.MaxConcurrentAPICalls <= 0 {
		return DefaultMaxConcurrentAPICalls
	}
	return c.Limits.MaxConcurrentAPICalls
}

// GetChatHistoryWindow returns the chat projection window.
func (c *Config) GetChatHistoryWindow() int {
	if c.Limits.ChatHistoryWindow <= 0 {
		return DefaultChatHistoryWindow
	}
	return c.Limits.ChatHistoryWindow
}

// GetMaxWebSearches returns the per-call retrieval allowance.
func (c *Config) GetMaxWebSearches() int {
	if c.Limits.MaxWebSearches < 0 {
		return DefaultMaxWebSearches
	}
	return c.Limits.MaxWebSearches
}

// ValidProviders lists all supported LLM providers.
var ValidProviders = []string{"anthropic", "gemini"}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.LLM.APIKey == "" {
		return fmt.Errorf("LLM API key not configured (set ANTHROPIC_API_KEY or GEMINI_API_KEY)")
	}

	validProvider := false
	for _, p := range ValidProviders {
		if c.LLM.Provider == p {
			validProvider = true
			break
		}
	}
	if !validProvider {
		return fmt.Errorf("invalid LLM provider: %s (valid: %v)", c.LLM.Provider, ValidProviders)
	}

	if c.Limits.MaxConcurrentAPICalls < 0 {
		return fmt.Errorf("limits.max_concurrent_api_calls must not be negative")
	}

	return nil
}

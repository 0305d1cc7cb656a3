package config

import (
	"fmt"
	"os"
	"slices"
	"strings"
	"time"
)

type TelegramConfig struct {
	Token        string  `koanf:"token"`
	Debug        bool    `koanf:"debug"`
	AllowedUsers []int64 `koanf:"allowed_users"`
	AllowedChats []int64 `koanf:"allowed_chats"`
}

// IsAllowed reports whether the bot should answer at all. Empty lists
// mean an open bot.
func (c TelegramConfig) IsAllowed(userID, chatID int64) bool {
	if len(c.AllowedUsers) == 0 && len(c.AllowedChats) == 0 {
		return true
	}
	return slices.Contains(c.AllowedUsers, userID) || slices.Contains(c.AllowedChats, chatID)
}

type LoggingConfig struct {
	Level string `koanf:"level"`
	File  string `koanf:"file"`
}

func (c LoggingConfig) IsDebug() bool {
	level := strings.ToLower(c.Level)
	return level == "debug" || level == "trace"
}

type RateLimitConfig struct {
	MaxRequests int           `koanf:"max_requests"`
	Window      time.Duration `koanf:"window"`
}

func (c RateLimitConfig) Validate() error {
	if c.MaxRequests <= 0 {
		return fmt.Errorf("ratelimit.max_requests must be positive, got %d", c.MaxRequests)
	}
	if c.Window <= 0 {
		return fmt.Errorf("ratelimit.window must be positive, got %s", c.Window)
	}
	return nil
}

type HTTPConfig struct {
	Proxy string `koanf:"proxy"`
}

// GetProxy prefers the configured proxy and falls back to the
// conventional environment variables.
func (c HTTPConfig) GetProxy() string {
	if c.Proxy != "" {
		return c.Proxy
	}
	for _, name := range []string{"HTTPS_PROXY", "https_proxy", "HTTP_PROXY", "http_proxy"} {
		if proxyURL := os.Getenv(name); proxyURL != "" {
			return proxyURL
		}
	}
	return ""
}

type ModelParams struct {
	Temperature float64 `koanf:"temperature"`
	MaxTokens   int     `koanf:"max_tokens"`
	TopP        float64 `koanf:"top_p"`
}

func (p ModelParams) Validate() error {
	if p.Temperature < 0 || p.Temperature > 2 {
		return fmt.Errorf("temperature must be between 0 and 2, got %.2f", p.Temperature)
	}
	if p.MaxTokens <= 0 {
		return fmt.Errorf("max_tokens must be positive, got %d", p.MaxTokens)
	}
	if p.TopP < 0 || p.TopP > 1 {
		return fmt.Errorf("top_p must be between 0 and 1, got %.2f", p.TopP)
	}
	return nil
}

type AIProviderConfig struct {
	Type         string   `koanf:"type"` // gemini, openai or anthropic
	Name         string   `koanf:"name"`
	DisplayName  string   `koanf:"display_name"`
	BaseURL      string   `koanf:"base_url"`
	APIKey       string   `koanf:"api_key"`
	EnvAPIKey    string   `koanf:"env_api_key"`
	Model        string   `koanf:"model"`
	ImageModel   string   `koanf:"image_model"`
	AudioModel   string   `koanf:"audio_model"`
	CostTier     string   `koanf:"cost_tier"` // free or metered
	Capabilities []string `koanf:"capabilities"`
	Enabled      bool     `koanf:"enabled"`
}

// GetAPIKey returns the literal key if set, otherwise reads the
// environment variable named by env_api_key.
func (c *AIProviderConfig) GetAPIKey() string {
	if c.APIKey != "" {
		return c.APIKey
	}
	return os.Getenv(c.EnvAPIKey)
}

func (c *AIProviderConfig) GetDisplayName() string {
	if c.DisplayName != "" {
		return c.DisplayName
	}
	return c.Name
}

// PriorityConfig holds the fixed fallback order per capability. The
// registry consults these lists in order when the preferred provider is
// unavailable.
type PriorityConfig struct {
	Text   []string `koanf:"text"`
	Image  []string `koanf:"image"`
	Vision []string `koanf:"vision"`
	Audio  []string `koanf:"audio"`
}

type AIConfig struct {
	SystemPrompt    string             `koanf:"system_prompt"`
	DefaultProvider string             `koanf:"default_provider"`
	ContextWindow   int                `koanf:"context_window"`
	RequestTimeout  time.Duration      `koanf:"request_timeout"`
	Params          ModelParams        `koanf:"params"`
	Priority        PriorityConfig     `koanf:"priority"`
	Providers       []AIProviderConfig `koanf:"providers"`
}

func (c AIConfig) GetProvider(name string) *AIProviderConfig {
	for i := range c.Providers {
		if c.Providers[i].Name == name {
			return &c.Providers[i]
		}
	}
	return nil
}

func (c AIConfig) Validate() error {
	if c.ContextWindow <= 0 {
		return fmt.Errorf("ai.context_window must be positive, got %d", c.ContextWindow)
	}
	if err := c.Params.Validate(); err != nil {
		return fmt.Errorf("ai.params: %w", err)
	}
	seen := make(map[string]struct{}, len(c.Providers))
	for _, p := range c.Providers {
		if p.Name == "" {
			return fmt.Errorf("ai.providers entry without a name")
		}
		if _, dup := seen[p.Name]; dup {
			return fmt.Errorf("duplicate ai provider %q", p.Name)
		}
		seen[p.Name] = struct{}{}
	}
	return nil
}

type HistoryConfig struct {
	Retention       time.Duration `koanf:"retention"`
	CleanupInterval time.Duration `koanf:"cleanup_interval"`
}

type RemindersConfig struct {
	PollInterval time.Duration `koanf:"poll_interval"`
}

type QueueThrottleOptions struct {
	Period      time.Duration `koanf:"period"`
	Concurrency int           `koanf:"concurrency"`
	Requests    int           `koanf:"requests"`
}

type QueueOptions struct {
	Enabled    bool                 `koanf:"enabled"`
	MaxRetries int                  `koanf:"max_retries"`
	RetryDelay time.Duration        `koanf:"retry_delay"`
	Timeout    time.Duration        `koanf:"timeout"`
	Throttle   QueueThrottleOptions `koanf:"throttle"`
}

type CommandConfig struct {
	Enabled bool         `koanf:"enabled"`
	Queue   QueueOptions `koanf:"queue"`
}

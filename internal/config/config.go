package config

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
)

const (
	TELEGRAM_TOKEN         = "telegram.token"
	TELEGRAM_DEBUG         = "telegram.debug"
	RATELIMIT_MAX_REQUESTS = "ratelimit.max_requests"
	RATELIMIT_WINDOW       = "ratelimit.window"
	AI_SYSTEM_PROMPT       = "ai.system_prompt"
	AI_DEFAULT_PROVIDER    = "ai.default_provider"
	AI_CONTEXT_WINDOW      = "ai.context_window"
	AI_REQUEST_TIMEOUT     = "ai.request_timeout"
	AI_TEMPERATURE         = "ai.params.temperature"
	AI_MAX_TOKENS          = "ai.params.max_tokens"
	AI_TOP_P               = "ai.params.top_p"
	DATABASE_PATH          = "database.path"
	LOGGING_LEVEL          = "logging.level"
	LOGGING_FILE           = "logging.file"
	HTTP_PROXY             = "http.proxy"
	LOCALE_DEFAULT         = "locale.default"
	HISTORY_RETENTION      = "history.retention"
	HISTORY_CLEANUP        = "history.cleanup_interval"
	REMINDERS_POLL         = "reminders.poll_interval"
)

var defaultSQLiteParams = map[string]string{
	"_journal":      "WAL",
	"_busy_timeout": "10000",
	"_synchronous":  "NORMAL",
	"_cache":        "shared",
	"_auto_vacuum":  "INCREMENTAL",
}

type Config struct {
	k *koanf.Koanf
}

var configPath string

func init() {
	flag.StringVar(&configPath, "config", "", "Path to config file")
}

func Load() (*Config, error) {
	k := koanf.New(".")

	defaults := map[string]any{
		TELEGRAM_TOKEN:         "",
		TELEGRAM_DEBUG:         false,
		RATELIMIT_MAX_REQUESTS: 10,
		RATELIMIT_WINDOW:       60 * time.Second,
		AI_SYSTEM_PROMPT:       "",
		AI_DEFAULT_PROVIDER:    "gemini",
		AI_CONTEXT_WINDOW:      10,
		AI_REQUEST_TIMEOUT:     2 * time.Minute,
		AI_TEMPERATURE:         0.7,
		AI_MAX_TOKENS:          1500,
		AI_TOP_P:               0.95,
		DATABASE_PATH:          "polyglot.db",
		LOGGING_LEVEL:          "info",
		LOGGING_FILE:           "",
		HTTP_PROXY:             "",
		LOCALE_DEFAULT:         "en",
		HISTORY_RETENTION:      30 * 24 * time.Hour,
		HISTORY_CLEANUP:        time.Hour,
		REMINDERS_POLL:         30 * time.Second,

		"ai.priority.text":   []string{"gemini", "openai", "anthropic"},
		"ai.priority.image":  []string{"openai"},
		"ai.priority.vision": []string{"gemini", "openai", "anthropic"},
		"ai.priority.audio":  []string{"openai", "gemini"},

		"commands.start.enabled":                    true,
		"commands.start.queue.enabled":              false,
		"commands.help.enabled":                     true,
		"commands.help.queue.enabled":               false,
		"commands.chat.enabled":                     true,
		"commands.chat.queue.enabled":               true,
		"commands.chat.queue.timeout":               2 * time.Minute,
		"commands.chat.queue.throttle.period":       10 * time.Second,
		"commands.chat.queue.throttle.concurrency":  2,
		"commands.chat.queue.throttle.requests":     2,
		"commands.image.enabled":                    true,
		"commands.image.queue.enabled":              true,
		"commands.image.queue.timeout":              3 * time.Minute,
		"commands.image.queue.throttle.period":      30 * time.Second,
		"commands.image.queue.throttle.concurrency": 1,
		"commands.model.enabled":                    true,
		"commands.model.queue.enabled":              false,
		"commands.clear.enabled":                    true,
		"commands.clear.queue.enabled":              false,
		"commands.memory.enabled":                   true,
		"commands.memory.queue.enabled":             false,
		"commands.remind.enabled":                   true,
		"commands.remind.queue.enabled":             false,
		"commands.stats.enabled":                    true,
		"commands.stats.queue.enabled":              false,
		"commands.summary.enabled":                  true,
		"commands.summary.queue.enabled":            true,
		"commands.summary.queue.timeout":            2 * time.Minute,
		"commands.summary.queue.throttle.period":    20 * time.Second,
		"commands.learn.enabled":                    true,
		"commands.learn.queue.enabled":              true,
		"commands.learn.queue.timeout":              2 * time.Minute,
		"commands.learn.queue.throttle.period":      10 * time.Second,
	}
	k.Load(confmap.Provider(defaults, "."), nil)

	for _, path := range getConfigPaths() {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
				return nil, fmt.Errorf("error loading config %s: %v", path, err)
			}
			break
		}
	}

	k.Load(env.Provider("POLYGLOT_", ".", func(s string) string {
		return strings.ReplaceAll(
			strings.ToLower(strings.TrimPrefix(s, "POLYGLOT_")),
			"_", ".",
		)
	}), nil)

	cfg := &Config{k: k}

	if k.String(TELEGRAM_TOKEN) == "" {
		return nil, fmt.Errorf("telegram token is required")
	}
	if err := cfg.RateLimit().Validate(); err != nil {
		return nil, err
	}
	if err := cfg.AI().Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Telegram() TelegramConfig {
	var cfg TelegramConfig
	if err := c.k.Unmarshal("telegram", &cfg); err != nil {
		log.Fatalf("telegram config unmarshal error: %v", err)
	}
	return cfg
}

func (c *Config) RateLimit() RateLimitConfig {
	return RateLimitConfig{
		MaxRequests: c.k.Int(RATELIMIT_MAX_REQUESTS),
		Window:      c.k.Duration(RATELIMIT_WINDOW),
	}
}

func (c *Config) AI() AIConfig {
	var cfg AIConfig
	if err := c.k.Unmarshal("ai", &cfg); err != nil {
		log.Fatalf("ai config unmarshal error: %v", err)
	}
	return cfg
}

func (c *Config) Log() LoggingConfig {
	return LoggingConfig{
		Level: c.k.String(LOGGING_LEVEL),
		File:  c.k.String(LOGGING_FILE),
	}
}

func (c *Config) HTTP() HTTPConfig {
	return HTTPConfig{
		Proxy: c.k.String(HTTP_PROXY),
	}
}

func (c *Config) History() HistoryConfig {
	return HistoryConfig{
		Retention:       c.k.Duration(HISTORY_RETENTION),
		CleanupInterval: c.k.Duration(HISTORY_CLEANUP),
	}
}

func (c *Config) Reminders() RemindersConfig {
	return RemindersConfig{
		PollInterval: c.k.Duration(REMINDERS_POLL),
	}
}

func (c *Config) Locale() string {
	return c.k.String(LOCALE_DEFAULT)
}

func (c *Config) GetCommandConfig(name string) *CommandConfig {
	concurrency := c.k.Int(fmt.Sprintf("commands.%s.queue.throttle.concurrency", name))
	if concurrency == 0 {
		concurrency = 1
	}
	requests := c.k.Int(fmt.Sprintf("commands.%s.queue.throttle.requests", name))
	if requests == 0 {
		requests = 1
	}
	period := c.k.Duration(fmt.Sprintf("commands.%s.queue.throttle.period", name))
	if period == 0 {
		period = 10 * time.Second
	}
	timeout := c.k.Duration(fmt.Sprintf("commands.%s.queue.timeout", name))
	if timeout == 0 {
		timeout = time.Minute
	}
	return &CommandConfig{
		Enabled: c.k.Bool(fmt.Sprintf("commands.%s.enabled", name)),
		Queue: QueueOptions{
			Enabled:    c.k.Bool(fmt.Sprintf("commands.%s.queue.enabled", name)),
			MaxRetries: c.k.Int(fmt.Sprintf("commands.%s.queue.max_retries", name)),
			RetryDelay: c.k.Duration(fmt.Sprintf("commands.%s.queue.retry_delay", name)),
			Timeout:    timeout,
			Throttle: QueueThrottleOptions{
				Concurrency: concurrency,
				Period:      period,
				Requests:    requests,
			},
		},
	}
}

// GetDatabaseDSN builds the SQLite DSN from database.path plus the
// default pragmas, letting database.params override individual ones.
func (c *Config) GetDatabaseDSN() string {
	path := c.k.String(DATABASE_PATH)

	params := make(map[string]string, len(defaultSQLiteParams))
	for k, v := range defaultSQLiteParams {
		params[k] = v
	}
	for k, v := range c.k.StringMap("database.params") {
		params[k] = v
	}

	pairs := make([]string, 0, len(params))
	for k, v := range params {
		pairs = append(pairs, k+"="+v)
	}
	sort.Strings(pairs)

	return path + "?" + strings.Join(pairs, "&")
}

func getConfigPaths() []string {
	if configPath != "" {
		return []string{configPath}
	}

	xdgConfig := os.Getenv("XDG_CONFIG_HOME")
	if xdgConfig == "" {
		home, _ := os.UserHomeDir()
		xdgConfig = filepath.Join(home, ".config")
	}

	return []string{
		"polyglot.toml",
		"config.toml",
		filepath.Join(xdgConfig, "polyglot", "config.toml"),
		"/etc/polyglot/config.toml",
	}
}

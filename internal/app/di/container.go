package di

import (
	"net/http"

	tgbotapi "github.com/OvyFlash/telegram-bot-api"

	"github.com/vkuzmin-dev/polyglot/internal/ai"
	"github.com/vkuzmin-dev/polyglot/internal/cache"
	"github.com/vkuzmin-dev/polyglot/internal/config"
	"github.com/vkuzmin-dev/polyglot/internal/database"
	"github.com/vkuzmin-dev/polyglot/internal/dispatch"
	"github.com/vkuzmin-dev/polyglot/internal/fetch"
	"github.com/vkuzmin-dev/polyglot/internal/history"
	"github.com/vkuzmin-dev/polyglot/internal/logger"
	"github.com/vkuzmin-dev/polyglot/internal/network"
	"github.com/vkuzmin-dev/polyglot/internal/queue"
	"github.com/vkuzmin-dev/polyglot/internal/ratelimit"
	"github.com/vkuzmin-dev/polyglot/internal/service"
	"github.com/vkuzmin-dev/polyglot/internal/telegram"
)

type Container struct {
	BotClient  telegram.Client
	Logger     logger.Logger
	DB         database.Database
	Cache      cache.Cache
	Cfg        *config.Config
	Queue      *queue.Queue
	AI         *ai.ProviderRegistry
	Limiter    *ratelimit.Limiter
	History    *history.Buffer
	Dispatcher *dispatch.Dispatcher
	HttpClient *http.Client
	Localizer  *service.Localizer
	Fetcher    *fetch.Fetcher
	Analytics  *service.Analytics
	Memory     *service.Memory
	Reminders  *service.ReminderScheduler
}

// NewContainer builds the object graph bottom-up: logger, config and
// storage first, then providers, then the dispatch engine, then the
// Telegram client and services that depend on it.
func NewContainer(cfg *config.Config) (*Container, error) {
	logCfg := cfg.Log()
	l := logger.NewLogrusLogger(&logCfg)

	aiCfg := cfg.AI()
	if len(aiCfg.Providers) == 0 {
		l.Fatal("No AI providers configured")
	}

	db, err := database.NewSQLiteDB(cfg, l)
	if err != nil {
		return nil, err
	}

	memoryCache := cache.NewMemoryCache()
	dbCache := cache.NewDBCache(db)
	c := cache.NewMultiLevelCache(memoryCache, dbCache, l)
	q := queue.NewQueue(db, l)

	localizer, err := service.NewLocalizer(cfg.Locale())
	if err != nil {
		l.WithError(err).Fatal("Error create localizer")
	}

	container := &Container{
		Logger:    l,
		DB:        db,
		Cache:     c,
		Cfg:       cfg,
		Queue:     q,
		Localizer: localizer,
	}

	proxyURL := cfg.HTTP().GetProxy()
	container.HttpClient = network.SetupHTTPClient(network.NewDefaultHTTPClientConfig(proxyURL), l)

	fetchClient := network.SetupHTTPClient(network.NewFetchHTTPClientConfig(proxyURL), l)
	container.Fetcher = fetch.New(fetchClient, l)

	for _, providerCfg := range aiCfg.Providers {
		if !providerCfg.Enabled {
			continue
		}
		if err := ai.ValidateCapabilities(providerCfg); err != nil {
			return nil, err
		}
	}

	registry, err := ai.BuildRegistry(aiCfg, l, container.HttpClient)
	if err != nil {
		return nil, err
	}
	// A provider without a key stays registered but never resolves,
	// so the priority lists fall through to the next backend.
	for _, providerCfg := range aiCfg.Providers {
		if providerCfg.Enabled && providerCfg.GetAPIKey() == "" {
			l.WithField("provider", providerCfg.Name).Warn("Provider has no API key, marking unavailable")
			registry.MarkAvailable(providerCfg.Name, false)
		}
	}
	container.AI = registry

	rateCfg := cfg.RateLimit()
	container.Limiter = ratelimit.New(rateCfg.MaxRequests, rateCfg.Window)
	container.History = history.NewBuffer(aiCfg.ContextWindow)
	container.Dispatcher = dispatch.New(
		container.Limiter,
		container.History,
		registry,
		aiCfg.RequestTimeout,
		l,
	)

	api, err := tgbotapi.NewBotAPI(cfg.Telegram().Token)
	if err != nil {
		l.WithError(err).Fatal("Bot API client initialization error")
	}
	api.Debug = cfg.Telegram().Debug
	l.Info("Bot API initialized")
	container.BotClient = telegram.NewBotClient(api, l)

	container.Analytics = service.NewAnalytics(db, l)
	container.Memory = service.NewMemory(db)
	container.Reminders = service.NewReminderScheduler(
		db,
		container.BotClient,
		localizer,
		l,
		cfg.Reminders().PollInterval,
	)

	return container, nil
}

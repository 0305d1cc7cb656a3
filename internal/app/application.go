package app

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vkuzmin-dev/polyglot/internal/app/di"
	"github.com/vkuzmin-dev/polyglot/internal/commands"
	"github.com/vkuzmin-dev/polyglot/internal/commands/chat"
	"github.com/vkuzmin-dev/polyglot/internal/commands/clear"
	"github.com/vkuzmin-dev/polyglot/internal/commands/help"
	"github.com/vkuzmin-dev/polyglot/internal/commands/image"
	"github.com/vkuzmin-dev/polyglot/internal/commands/learn"
	"github.com/vkuzmin-dev/polyglot/internal/commands/memory"
	"github.com/vkuzmin-dev/polyglot/internal/commands/model"
	"github.com/vkuzmin-dev/polyglot/internal/commands/remind"
	"github.com/vkuzmin-dev/polyglot/internal/commands/start"
	"github.com/vkuzmin-dev/polyglot/internal/commands/stats"
	"github.com/vkuzmin-dev/polyglot/internal/commands/summary"
	"github.com/vkuzmin-dev/polyglot/internal/config"
	"github.com/vkuzmin-dev/polyglot/internal/core"
	"github.com/vkuzmin-dev/polyglot/internal/logger"
)

type Application struct {
	Logger logger.Logger
	cfg    *config.Config
	bot    *core.Bot
	di     *di.Container
	ctx    context.Context
	cancel context.CancelFunc
}

func New() (*Application, error) {
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	cfg, err := config.Load()
	if err != nil {
		cancel()
		return nil, err
	}

	di, err := di.NewContainer(cfg)
	if err != nil {
		cancel()
		return nil, err
	}
	di.Logger.Info("DI Container created")

	botInstance, err := core.NewBot(
		di.BotClient,
		di.Queue,
		di.Logger,
		di.DB,
		cfg,
		di.Localizer,
	)
	if err != nil {
		di.Logger.Fatal(err)
	}
	di.Logger.Info("Bot instance created")

	app := &Application{
		cfg:    cfg,
		bot:    botInstance,
		di:     di,
		Logger: di.Logger,
		ctx:    ctx,
		cancel: cancel,
	}

	app.registerCommands()
	app.watchSignals()

	return app, nil
}

func (a *Application) Start() error {
	a.Logger.Info("Starting application")
	go a.di.Reminders.Start(a.ctx)
	a.startRetentionCleaner()
	return a.bot.Start(a.ctx)
}

func (a *Application) registerCommands() {
	available := []commands.Command{
		start.New(a.di),
		help.New(a.di),
		chat.New(a.di),
		image.New(a.di),
		model.New(a.di),
		clear.New(a.di),
		memory.New(a.di),
		remind.New(a.di),
		stats.New(a.di),
		summary.New(a.di),
		learn.New(a.di),
	}
	for _, cmd := range available {
		if a.cfg.GetCommandConfig(cmd.Name()).Enabled {
			a.bot.RegisterCommand(cmd)
		}
	}
}

// watchSignals cancels the root context on SIGINT/SIGTERM so the
// update loop, queue workers and reminder scheduler stop together.
func (a *Application) watchSignals() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		a.Logger.WithField("signal", sig.String()).Info("Shutdown signal received")
		a.cancel()
	}()
}

func (a *Application) WaitForShutdown() {
	<-a.ctx.Done()
	if err := a.di.DB.Close(); err != nil {
		a.Logger.WithError(err).Error("Failed to close database")
	}
	a.Logger.Info("Application stopped")
}

// startRetentionCleaner purges the durable conversation log and
// finished queue tasks on the configured interval.
func (a *Application) startRetentionCleaner() {
	history := a.cfg.History()
	go func() {
		ticker := time.NewTicker(history.CleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-a.ctx.Done():
				return
			case <-ticker.C:
				if purged, err := a.di.DB.PurgeOldConversations(history.Retention); err != nil {
					a.Logger.WithError(err).Error("Failed to purge old conversations")
				} else if purged > 0 {
					a.Logger.WithField("purged", purged).Info("Old conversations purged")
				}
				if purged, err := a.di.DB.PurgeOldTasks(history.Retention); err != nil {
					a.Logger.WithError(err).Error("Failed to purge old tasks")
				} else if purged > 0 {
					a.Logger.WithField("purged", purged).Info("Finished tasks purged")
				}
			}
		}
	}()
}

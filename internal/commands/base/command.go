package base

import (
	"time"

	"github.com/vkuzmin-dev/polyglot/internal/app/di"
	"github.com/vkuzmin-dev/polyglot/internal/commands"
	"github.com/vkuzmin-dev/polyglot/internal/config"
	"github.com/vkuzmin-dev/polyglot/internal/database"
	"github.com/vkuzmin-dev/polyglot/internal/dispatch"
	"github.com/vkuzmin-dev/polyglot/internal/fetch"
	"github.com/vkuzmin-dev/polyglot/internal/logger"
	"github.com/vkuzmin-dev/polyglot/internal/queue"
	"github.com/vkuzmin-dev/polyglot/internal/service"
	"github.com/vkuzmin-dev/polyglot/internal/telegram"
)

// Command carries the shared collaborators every handler needs. A
// concrete command embeds it and overrides Name/Execute.
type Command struct {
	command    commands.Command
	Tg         telegram.Client
	Logger     logger.Logger
	Cfg        *config.Config
	Queue      *queue.Queue
	DB         database.Database
	Dispatcher *dispatch.Dispatcher
	Analytics  *service.Analytics
	Localizer  *service.Localizer
}

func NewCommand(cmd commands.Command, di *di.Container) *Command {
	return &Command{
		command:    cmd,
		Tg:         di.BotClient,
		Logger:     di.Logger,
		Cfg:        di.Cfg,
		Queue:      di.Queue,
		DB:         di.DB,
		Dispatcher: di.Dispatcher,
		Analytics:  di.Analytics,
		Localizer:  di.Localizer,
	}
}

func (c *Command) Name() string {
	return ""
}

func (c *Command) Aliases() []string {
	return []string{}
}

// Handle either queues the command or executes it inline, per config.
func (c *Command) Handle(update telegram.Update) error {
	cfg := c.Cfg.GetCommandConfig(c.command.Name())
	if cfg.Queue.Enabled {
		config := c.command.GetQueueConfig()
		retryDelayMillis := int64(config.RetryDelay / time.Millisecond)
		return c.Queue.Add(c.command, update,
			config.MaxRetries,
			retryDelayMillis)
	}
	return c.command.Execute(update)
}

func (c *Command) GetQueueConfig() commands.QueueConfig {
	cfg := c.Cfg.GetCommandConfig(c.command.Name())
	return commands.QueueConfig{
		MaxRetries: cfg.Queue.MaxRetries,
		RetryDelay: cfg.Queue.RetryDelay,
		Timeout:    cfg.Queue.Timeout,
		Throttle: commands.ThrottleConfig{
			Concurrency: cfg.Queue.Throttle.Concurrency,
			Period:      cfg.Queue.Throttle.Period,
			Requests:    cfg.Queue.Throttle.Requests,
		},
	}
}

func (c *Command) Execute(update telegram.Update) error {
	return nil
}

// L is shorthand for a localized message.
func (c *Command) L(messageID string, data map[string]any) string {
	return c.Localizer.Localize(messageID, data)
}

// ExtractURLsFromEntities pulls URLs out of a message using Telegram's
// own entity offsets.
func (c *Command) ExtractURLsFromEntities(text string, entities []telegram.MessageEntity) []string {
	urls := []string{}
	runes := []rune(text)
	for _, entity := range entities {
		if (entity.Type == "url" || entity.Type == "text_link") &&
			entity.Offset >= 0 &&
			entity.Length > 0 &&
			entity.Offset+entity.Length <= len(runes) {

			url := string(runes[entity.Offset : entity.Offset+entity.Length])
			if entity.Type == "text_link" && entity.URL != "" {
				url = entity.URL
			}
			if fetch.IsURL(url) {
				urls = append(urls, url)
			}
		}
	}
	return urls
}

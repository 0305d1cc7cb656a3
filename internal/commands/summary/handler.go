// Package summary fetches a web page, extracts its readable text and
// asks the text capability for a summary.
package summary

import (
	"context"
	"strings"
	"time"

	"github.com/vkuzmin-dev/polyglot/internal/ai"
	"github.com/vkuzmin-dev/polyglot/internal/app/di"
	"github.com/vkuzmin-dev/polyglot/internal/cache"
	"github.com/vkuzmin-dev/polyglot/internal/commands/base"
	"github.com/vkuzmin-dev/polyglot/internal/dispatch"
	"github.com/vkuzmin-dev/polyglot/internal/fetch"
	"github.com/vkuzmin-dev/polyglot/internal/telegram"
)

const CommandName = "summary"

const summaryPrompt = "Summarize the following web page content. " +
	"Keep the key points, drop navigation noise, answer in the language of the content.\n\n"

// Extracted page text is cached so two users sharing a link within a
// few minutes cost one fetch.
const pageCacheTTL = 15 * time.Minute

type Command struct {
	*base.Command
	fetcher *fetch.Fetcher
	cache   cache.Cache
}

func New(di *di.Container) *Command {
	cmd := &Command{
		fetcher: di.Fetcher,
		cache:   di.Cache,
	}
	cmd.Command = base.NewCommand(cmd, di)
	return cmd
}

func (c *Command) Name() string {
	return CommandName
}

func (c *Command) Aliases() []string {
	return []string{"sum", "tldr"}
}

func (c *Command) Execute(update telegram.Update) error {
	msg := update.Message
	if msg == nil || msg.From == nil {
		return nil
	}

	ctx := context.Background()
	userID := msg.From.ID
	chatID := msg.Chat.ID

	pageURL := c.targetURL(msg)
	if pageURL == "" {
		return c.reply(chatID, msg.MessageID, c.L("summary_usage", nil))
	}

	_ = c.Tg.SendChatAction(chatID, telegram.ActionTyping)

	pageText, err := c.pageText(ctx, pageURL)
	if err != nil {
		c.Logger.WithError(err).WithField("url", pageURL).Warn("Page fetch failed")
		return c.reply(chatID, msg.MessageID, c.L("summary_fetch_failed", map[string]any{
			"Error": err.Error(),
		}))
	}

	preferred, err := c.DB.GetPreferredProvider(userID)
	if err != nil {
		c.Logger.WithError(err).WithField("user_id", userID).
			Warn("Failed to load preferred provider")
	}

	result := c.Dispatcher.Invoke(ctx, dispatch.Request{
		User:       userID,
		Capability: ai.TextGeneration,
		Provider:   preferred,
		Prompt:     summaryPrompt + pageText,
	})

	switch {
	case result.IsThrottled():
		return c.reply(chatID, msg.MessageID, c.L("throttled", map[string]any{
			"Seconds": int(c.Cfg.RateLimit().Window.Seconds()),
		}))
	case result.IsUnavailable():
		return c.reply(chatID, msg.MessageID, c.L("no_provider", nil))
	case result.IsRetryable():
		return c.reply(chatID, msg.MessageID, c.L("provider_busy", nil))
	case result.IsFatal():
		return c.reply(chatID, msg.MessageID, c.L("provider_failed", nil))
	}

	reply := telegram.NewMessage(chatID, c.Tg.PrepareMarkdown(result.Text), msg.MessageID)
	reply.ParseMode = telegram.ModeMarkdown
	if _, err := c.Tg.SendWithRetry(reply, 2); err != nil {
		_, err = c.Tg.SendWithRetry(telegram.NewMessage(chatID, result.Text, msg.MessageID), 2)
		if err != nil {
			return err
		}
	}

	c.Analytics.Track(ctx, userID, CommandName, ai.TextGeneration.String(), result.Binding.Provider, result.Duration)
	return nil
}

func (c *Command) pageText(ctx context.Context, pageURL string) (string, error) {
	cacheKey := "page:" + pageURL
	if data, found := c.cache.Get(cacheKey); found {
		return string(data), nil
	}

	pageText, err := c.fetcher.PageText(ctx, pageURL)
	if err != nil {
		return "", err
	}
	if err := c.cache.Set(cacheKey, []byte(pageText), pageCacheTTL); err != nil {
		c.Logger.WithError(err).Warn("Failed to cache page text")
	}
	return pageText, nil
}

// targetURL takes the command argument when it is a URL, otherwise the
// first URL entity in the message (covers replies with just a link).
func (c *Command) targetURL(msg *telegram.MessageOriginal) string {
	args := strings.TrimSpace(msg.CommandArguments())
	if fetch.IsURL(args) {
		return args
	}
	urls := c.ExtractURLsFromEntities(msg.Text, msg.Entities)
	if len(urls) > 0 {
		return urls[0]
	}
	return ""
}

func (c *Command) reply(chatID int64, replyTo int, text string) error {
	_, err := c.Tg.Send(telegram.NewMessage(chatID, text, replyTo))
	return err
}

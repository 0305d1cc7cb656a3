// Package learn turns a topic into a short lesson or, via the /quiz
// alias, into a handful of questions on it.
package learn

import (
	"context"
	"fmt"
	"strings"

	"github.com/vkuzmin-dev/polyglot/internal/ai"
	"github.com/vkuzmin-dev/polyglot/internal/app/di"
	"github.com/vkuzmin-dev/polyglot/internal/commands/base"
	"github.com/vkuzmin-dev/polyglot/internal/dispatch"
	"github.com/vkuzmin-dev/polyglot/internal/telegram"
)

const CommandName = "learn"

const (
	lessonPrompt = "Give a short structured lesson about %q: a two-sentence overview, " +
		"three key points and one practical example. Answer in the language of the topic."
	quizPrompt = "Write a five-question quiz about %q with the answers listed at the end. " +
		"Answer in the language of the topic."
)

type Command struct {
	*base.Command
}

func New(di *di.Container) *Command {
	cmd := &Command{}
	cmd.Command = base.NewCommand(cmd, di)
	return cmd
}

func (c *Command) Name() string {
	return CommandName
}

func (c *Command) Aliases() []string {
	return []string{"quiz"}
}

func (c *Command) Execute(update telegram.Update) error {
	msg := update.Message
	if msg == nil || msg.From == nil {
		return nil
	}

	ctx := context.Background()
	userID := msg.From.ID
	chatID := msg.Chat.ID

	topic := strings.TrimSpace(msg.CommandArguments())
	if topic == "" {
		return c.reply(chatID, msg.MessageID, c.L("learn_usage", nil))
	}

	template := lessonPrompt
	if msg.Command() == "quiz" {
		template = quizPrompt
	}

	preferred, err := c.DB.GetPreferredProvider(userID)
	if err != nil {
		c.Logger.WithError(err).WithField("user_id", userID).
			Warn("Failed to load preferred provider")
	}

	_ = c.Tg.SendChatAction(chatID, telegram.ActionTyping)

	result := c.Dispatcher.Invoke(ctx, dispatch.Request{
		User:       userID,
		Capability: ai.TextGeneration,
		Provider:   preferred,
		Prompt:     fmt.Sprintf(template, topic),
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

	c.Analytics.Track(ctx, userID, msg.Command(), ai.TextGeneration.String(), result.Binding.Provider, result.Duration)
	return nil
}

func (c *Command) reply(chatID int64, replyTo int, text string) error {
	_, err := c.Tg.Send(telegram.NewMessage(chatID, text, replyTo))
	return err
}

// Package image generates pictures from a text prompt through the
// image generation capability.
package image

import (
	"context"
	"strings"

	"github.com/vkuzmin-dev/polyglot/internal/ai"
	"github.com/vkuzmin-dev/polyglot/internal/app/di"
	"github.com/vkuzmin-dev/polyglot/internal/commands/base"
	"github.com/vkuzmin-dev/polyglot/internal/dispatch"
	"github.com/vkuzmin-dev/polyglot/internal/telegram"
)

const CommandName = "image"

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
	return []string{"img", "draw"}
}

func (c *Command) Execute(update telegram.Update) error {
	msg := update.Message
	if msg == nil || msg.From == nil {
		return nil
	}

	ctx := context.Background()
	userID := msg.From.ID
	chatID := msg.Chat.ID

	prompt := strings.TrimSpace(msg.CommandArguments())
	if prompt == "" {
		return c.reply(chatID, msg.MessageID, c.L("image_usage", nil))
	}

	preferred, err := c.DB.GetPreferredProvider(userID)
	if err != nil {
		c.Logger.WithError(err).WithField("user_id", userID).
			Warn("Failed to load preferred provider")
	}

	_ = c.Tg.SendChatAction(chatID, telegram.ActionUploadPhoto)

	result := c.Dispatcher.Invoke(ctx, dispatch.Request{
		User:       userID,
		Capability: ai.ImageGeneration,
		Provider:   preferred,
		Prompt:     prompt,
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

	var file telegram.RequestFileData
	if result.Image != nil && result.Image.URL != "" {
		file = telegram.FileURL(result.Image.URL)
	} else if result.Image != nil {
		file = telegram.FileBytes{Name: "image.png", Bytes: result.Image.Data}
	} else {
		c.Logger.WithField("request_id", result.RequestID).
			Error("Image generation succeeded without an image")
		return c.reply(chatID, msg.MessageID, c.L("provider_failed", nil))
	}

	photo := telegram.NewPhotoMessage(chatID, file, c.L("image_caption", nil), msg.MessageID)
	if _, err := c.Tg.SendWithRetry(photo, 2); err != nil {
		c.Logger.WithError(err).Error("Failed to send generated image")
		return err
	}

	c.Analytics.Track(ctx, userID, CommandName, ai.ImageGeneration.String(), result.Binding.Provider, result.Duration)
	return nil
}

func (c *Command) reply(chatID int64, replyTo int, text string) error {
	_, err := c.Tg.Send(telegram.NewMessage(chatID, text, replyTo))
	return err
}

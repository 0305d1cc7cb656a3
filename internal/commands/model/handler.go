package model

import (
	"strings"

	"github.com/vkuzmin-dev/polyglot/internal/ai"
	"github.com/vkuzmin-dev/polyglot/internal/app/di"
	"github.com/vkuzmin-dev/polyglot/internal/commands/base"
	"github.com/vkuzmin-dev/polyglot/internal/logger"
	"github.com/vkuzmin-dev/polyglot/internal/telegram"
)

const CommandName = "model"

type Command struct {
	*base.Command
	ai *ai.ProviderRegistry
}

func New(di *di.Container) *Command {
	cmd := &Command{
		ai: di.AI,
	}
	cmd.Command = base.NewCommand(cmd, di)
	return cmd
}

func (c *Command) Name() string {
	return CommandName
}

func (c *Command) Aliases() []string {
	return []string{"m"}
}

func (c *Command) Execute(update telegram.Update) error {
	if update.Message == nil || update.Message.From == nil {
		return nil
	}

	userID := update.Message.From.ID
	chatID := update.Message.Chat.ID
	args := strings.TrimSpace(update.Message.CommandArguments())

	if args == "" {
		current, err := c.DB.GetPreferredProvider(userID)
		if err != nil {
			c.Logger.WithError(err).WithField("user_id", userID).
				Warn("Failed to load preferred provider")
		}
		if current == "" {
			current = c.Cfg.AI().DefaultProvider
		}

		text := c.L("model_current", map[string]any{"Provider": c.displayName(current)}) +
			"\n\n" + c.lineup()
		_, err = c.Tg.Send(telegram.NewMessage(chatID, text, update.Message.MessageID))
		return err
	}

	name := strings.ToLower(args)
	if _, err := c.ai.GetProvider(name); err != nil {
		text := c.L("model_unknown", map[string]any{"Provider": args}) +
			"\n\n" + c.lineup()
		_, err := c.Tg.Send(telegram.NewMessage(chatID, text, update.Message.MessageID))
		return err
	}

	if err := c.DB.SetPreferredProvider(userID, name); err != nil {
		c.Logger.WithError(err).WithFields(logger.Fields{
			"user_id":  userID,
			"provider": name,
		}).Error("Failed to save preferred provider")
		_, _ = c.Tg.Send(telegram.NewMessage(chatID, c.L("error", nil), update.Message.MessageID))
		return err
	}

	c.Logger.WithFields(logger.Fields{
		"user_id":  userID,
		"provider": name,
	}).Info("Preferred provider switched")

	_, err := c.Tg.Send(telegram.NewMessage(
		chatID,
		c.L("model_set", map[string]any{"Provider": c.displayName(name)}),
		update.Message.MessageID,
	))
	return err
}

func (c *Command) displayName(name string) string {
	if provider := c.Cfg.AI().GetProvider(name); provider != nil {
		return provider.GetDisplayName()
	}
	return name
}

// lineup renders the enabled providers in config order with their
// bound capabilities, cost tier and availability.
func (c *Command) lineup() string {
	var b strings.Builder
	b.WriteString(c.L("model_lineup", nil))
	b.WriteString("\n")

	for _, provider := range c.Cfg.AI().Providers {
		if !provider.Enabled {
			continue
		}
		b.WriteString("• " + provider.Name)
		if provider.GetDisplayName() != provider.Name {
			b.WriteString(" — " + provider.GetDisplayName())
		}
		for _, capability := range c.ai.Capabilities(provider.Name) {
			b.WriteString(" " + ai.CapabilityEmoji(capability))
		}
		if provider.CostTier == string(ai.CostTierFree) {
			b.WriteString(" " + ai.Free)
		}
		if !c.ai.IsAvailable(provider.Name) {
			b.WriteString(" (" + c.L("provider_unavailable_mark", nil) + ")")
		}
		b.WriteString("\n")
	}
	return b.String()
}

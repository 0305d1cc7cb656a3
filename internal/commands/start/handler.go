package start

import (
	"strings"

	"github.com/vkuzmin-dev/polyglot/internal/ai"
	"github.com/vkuzmin-dev/polyglot/internal/app/di"
	"github.com/vkuzmin-dev/polyglot/internal/commands/base"
	"github.com/vkuzmin-dev/polyglot/internal/telegram"
)

const CommandName = "start"

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

func (c *Command) Execute(update telegram.Update) error {
	if update.Message == nil || update.Message.From == nil {
		return nil
	}

	var b strings.Builder
	b.WriteString(c.L("start_welcome", map[string]any{
		"Name": update.Message.From.FirstName,
	}))
	b.WriteString("\n\n")
	b.WriteString(c.L("start_providers", nil))
	b.WriteString("\n")

	for _, provider := range c.Cfg.AI().Providers {
		if !provider.Enabled {
			continue
		}
		b.WriteString("• " + provider.GetDisplayName())
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

	_, err := c.Tg.Send(telegram.NewMessage(
		update.Message.Chat.ID,
		b.String(),
		update.Message.MessageID,
	))
	if err != nil {
		c.Logger.WithError(err).Error("Failed to send message")
		return err
	}
	return nil
}

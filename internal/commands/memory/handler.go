// Package memory exposes the durable per-user key/value store. Unlike
// conversation context, these entries survive restarts and /clear.
package memory

import (
	"strings"

	"github.com/vkuzmin-dev/polyglot/internal/app/di"
	"github.com/vkuzmin-dev/polyglot/internal/commands/base"
	"github.com/vkuzmin-dev/polyglot/internal/service"
	"github.com/vkuzmin-dev/polyglot/internal/telegram"
)

const CommandName = "memory"

type Command struct {
	*base.Command
	memory *service.Memory
}

func New(di *di.Container) *Command {
	cmd := &Command{
		memory: di.Memory,
	}
	cmd.Command = base.NewCommand(cmd, di)
	return cmd
}

func (c *Command) Name() string {
	return CommandName
}

func (c *Command) Aliases() []string {
	return []string{"mem"}
}

func (c *Command) Execute(update telegram.Update) error {
	msg := update.Message
	if msg == nil || msg.From == nil {
		return nil
	}

	userID := msg.From.ID
	chatID := msg.Chat.ID
	args := strings.Fields(msg.CommandArguments())
	if len(args) == 0 {
		return c.reply(chatID, msg.MessageID, c.L("memory_usage", nil))
	}

	switch args[0] {
	case "save":
		if len(args) < 3 {
			return c.reply(chatID, msg.MessageID, c.L("memory_usage", nil))
		}
		key := args[1]
		value := strings.Join(args[2:], " ")
		if err := c.memory.Save(userID, key, value); err != nil {
			return c.reply(chatID, msg.MessageID, err.Error())
		}
		return c.reply(chatID, msg.MessageID, c.L("memory_saved", map[string]any{"Key": key}))

	case "get":
		if len(args) != 2 {
			return c.reply(chatID, msg.MessageID, c.L("memory_usage", nil))
		}
		value, err := c.memory.Get(userID, args[1])
		if err != nil || value == "" {
			return c.reply(chatID, msg.MessageID, c.L("memory_not_found", map[string]any{"Key": args[1]}))
		}
		return c.reply(chatID, msg.MessageID, value)

	case "list":
		entries, err := c.memory.List(userID)
		if err != nil {
			c.Logger.WithError(err).Error("Failed to list memory")
			return c.reply(chatID, msg.MessageID, c.L("error", nil))
		}
		if len(entries) == 0 {
			return c.reply(chatID, msg.MessageID, c.L("memory_empty", nil))
		}
		var b strings.Builder
		b.WriteString(c.L("memory_list", nil))
		b.WriteString("\n")
		for _, entry := range entries {
			b.WriteString("• " + entry.Key + ": " + entry.Value + "\n")
		}
		return c.reply(chatID, msg.MessageID, b.String())

	case "clear":
		count, err := c.memory.Clear(userID)
		if err != nil {
			c.Logger.WithError(err).Error("Failed to clear memory")
			return c.reply(chatID, msg.MessageID, c.L("error", nil))
		}
		return c.reply(chatID, msg.MessageID, c.L("memory_cleared", map[string]any{"Count": count}))
	}

	return c.reply(chatID, msg.MessageID, c.L("memory_usage", nil))
}

func (c *Command) reply(chatID int64, replyTo int, text string) error {
	_, err := c.Tg.Send(telegram.NewMessage(chatID, text, replyTo))
	return err
}

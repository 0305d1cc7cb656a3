// Package remind schedules one-shot reminders. Rows are persisted, so
// a restart between /remind and the fire time loses nothing.
package remind

import (
	"strconv"
	"strings"
	"time"

	"github.com/vkuzmin-dev/polyglot/internal/app/di"
	"github.com/vkuzmin-dev/polyglot/internal/commands/base"
	"github.com/vkuzmin-dev/polyglot/internal/logger"
	"github.com/vkuzmin-dev/polyglot/internal/service"
	"github.com/vkuzmin-dev/polyglot/internal/telegram"
)

const CommandName = "remind"

type Command struct {
	*base.Command
	reminders *service.ReminderScheduler
}

func New(di *di.Container) *Command {
	cmd := &Command{
		reminders: di.Reminders,
	}
	cmd.Command = base.NewCommand(cmd, di)
	return cmd
}

func (c *Command) Name() string {
	return CommandName
}

func (c *Command) Aliases() []string {
	return []string{"r"}
}

func (c *Command) Execute(update telegram.Update) error {
	msg := update.Message
	if msg == nil || msg.From == nil {
		return nil
	}

	chatID := msg.Chat.ID
	args := strings.Fields(msg.CommandArguments())
	if len(args) < 2 {
		return c.reply(chatID, msg.MessageID, c.L("remind_usage", nil))
	}

	delay, err := parseDelay(args[0])
	if err != nil {
		return c.reply(chatID, msg.MessageID, c.L("remind_invalid", nil))
	}
	text := strings.Join(args[1:], " ")

	reminder, err := c.reminders.Schedule(msg.From.ID, chatID, delay, text)
	if err != nil {
		c.Logger.WithError(err).WithFields(logger.Fields{
			"user_id": msg.From.ID,
			"delay":   args[0],
		}).Warn("Failed to schedule reminder")
		return c.reply(chatID, msg.MessageID, c.L("remind_invalid", nil))
	}

	return c.reply(chatID, msg.MessageID, c.L("remind_scheduled", map[string]any{
		"At": reminder.FireAt.Format("2006-01-02 15:04"),
	}))
}

func (c *Command) reply(chatID int64, replyTo int, text string) error {
	_, err := c.Tg.Send(telegram.NewMessage(chatID, text, replyTo))
	return err
}

// parseDelay accepts the Go duration forms plus a day suffix: 90s,
// 30m, 2h, 1d.
func parseDelay(s string) (time.Duration, error) {
	if strings.HasSuffix(s, "d") {
		days, err := strconv.Atoi(strings.TrimSuffix(s, "d"))
		if err != nil {
			return 0, err
		}
		return time.Duration(days) * 24 * time.Hour, nil
	}
	return time.ParseDuration(s)
}

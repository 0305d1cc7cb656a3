package clear

import (
	"github.com/vkuzmin-dev/polyglot/internal/app/di"
	"github.com/vkuzmin-dev/polyglot/internal/commands/base"
	"github.com/vkuzmin-dev/polyglot/internal/telegram"
)

const CommandName = "clear"

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
	return []string{"reset"}
}

func (c *Command) Execute(update telegram.Update) error {
	if update.Message == nil || update.Message.From == nil {
		return nil
	}

	userID := update.Message.From.ID
	dropped := c.Dispatcher.HistoryLen(userID)
	c.Dispatcher.ClearHistory(userID)

	text := c.L("clear_empty", nil)
	if dropped > 0 {
		text = c.L("clear_done", map[string]any{"Count": dropped})
	}

	c.Logger.WithField("user_id", userID).Info("Conversation cleared")

	_, err := c.Tg.Send(telegram.NewMessage(
		update.Message.Chat.ID,
		text,
		update.Message.MessageID,
	))
	return err
}

package help

import (
	"github.com/vkuzmin-dev/polyglot/internal/app/di"
	"github.com/vkuzmin-dev/polyglot/internal/commands/base"
	"github.com/vkuzmin-dev/polyglot/internal/telegram"
)

const CommandName = "help"

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
	return []string{"h"}
}

func (c *Command) Execute(update telegram.Update) error {
	if update.Message == nil {
		return nil
	}
	_, err := c.Tg.Send(telegram.NewMessage(
		update.Message.Chat.ID,
		c.L("help", nil),
		update.Message.MessageID,
	))
	return err
}

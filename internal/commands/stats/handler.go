package stats

import (
	"sort"
	"strconv"
	"strings"

	"github.com/vkuzmin-dev/polyglot/internal/app/di"
	"github.com/vkuzmin-dev/polyglot/internal/commands/base"
	"github.com/vkuzmin-dev/polyglot/internal/telegram"
)

const CommandName = "stats"

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

func (c *Command) Execute(update telegram.Update) error {
	msg := update.Message
	if msg == nil || msg.From == nil {
		return nil
	}

	userStats, err := c.Analytics.UserStats(msg.From.ID)
	if err != nil {
		c.Logger.WithError(err).WithField("user_id", msg.From.ID).
			Error("Failed to load user stats")
		_, _ = c.Tg.Send(telegram.NewMessage(msg.Chat.ID, c.L("error", nil), msg.MessageID))
		return err
	}

	var b strings.Builder
	b.WriteString(c.L("stats_report", map[string]any{
		"Total":     userStats.TotalRequests,
		"AvgMs":     userStats.AvgDurationMs,
		"Memory":    userStats.MemoryEntries,
		"Reminders": userStats.ActiveReminders,
	}))

	if len(userStats.ByCapability) > 0 {
		b.WriteString("\n\n" + c.L("stats_by_capability", nil) + "\n")
		writeCounts(&b, userStats.ByCapability)
	}
	if len(userStats.ByProvider) > 0 {
		b.WriteString("\n" + c.L("stats_by_provider", nil) + "\n")
		writeCounts(&b, userStats.ByProvider)
	}

	_, err = c.Tg.Send(telegram.NewMessage(msg.Chat.ID, b.String(), msg.MessageID))
	return err
}

// writeCounts renders a counter map sorted by count descending, name
// ascending on ties.
func writeCounts(b *strings.Builder, counts map[string]int64) {
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if counts[names[i]] != counts[names[j]] {
			return counts[names[i]] > counts[names[j]]
		}
		return names[i] < names[j]
	})
	for _, name := range names {
		b.WriteString("• " + name + ": " + strconv.FormatInt(counts[name], 10) + "\n")
	}
}

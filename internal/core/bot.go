package core

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/vkuzmin-dev/polyglot/internal/commands"
	"github.com/vkuzmin-dev/polyglot/internal/commands/chat"
	"github.com/vkuzmin-dev/polyglot/internal/config"
	"github.com/vkuzmin-dev/polyglot/internal/database"
	"github.com/vkuzmin-dev/polyglot/internal/logger"
	"github.com/vkuzmin-dev/polyglot/internal/queue"
	"github.com/vkuzmin-dev/polyglot/internal/service"
	"github.com/vkuzmin-dev/polyglot/internal/telegram"
)

type Bot struct {
	commands  map[string]commands.Command
	logger    logger.Logger
	queue     *queue.Queue
	db        database.Database
	tg        telegram.Client
	cfg       *config.Config
	localizer *service.Localizer
}

func NewBot(
	tg telegram.Client,
	queue *queue.Queue,
	logger logger.Logger,
	db database.Database,
	cfg *config.Config,
	localizer *service.Localizer,
) (*Bot, error) {
	return &Bot{
		commands:  make(map[string]commands.Command),
		tg:        tg,
		queue:     queue,
		cfg:       cfg,
		logger:    logger,
		db:        db,
		localizer: localizer,
	}, nil
}

// Start consumes the long-polling update stream until ctx is
// cancelled. Slash commands route by name or alias; everything else a
// user can send (plain text, photos, voice, documents) falls through
// to the chat command.
func (b *Bot) Start(ctx context.Context) error {
	u := b.tg.NewUpdate(0, 60, 0)

	b.queue.RegisterHandlers(b.commands)
	go b.queue.Start(ctx, b.commands)

	updates := b.tg.GetUpdatesChan(u)

	b.logger.Info("Bot started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case update := <-updates:
			if b.cfg.Log().IsDebug() {
				jsonData, _ := json.Marshal(update)
				b.logger.WithFields(logger.Fields{
					"update_structure": string(jsonData),
				}).Debug("Received update")
			}

			msg := update.Message
			if msg == nil || msg.From == nil || msg.From.IsBot {
				continue
			}

			b.upsertUser(msg)

			if !b.cfg.Telegram().IsAllowed(msg.From.ID, msg.Chat.ID) {
				b.logger.WithFields(logger.Fields{
					"user_id":  msg.From.ID,
					"username": msg.From.UserName,
					"chat_id":  msg.Chat.ID,
				}).Warn("Unauthorized access attempt")
				continue
			}

			if msg.ForwardOrigin != nil {
				continue
			}

			commandText := msg.Text
			if commandText == "" && msg.Caption != "" {
				commandText = msg.Caption
			}

			if isCommand(commandText) {
				b.dispatchCommand(update, commandText)
				continue
			}

			// A mention addressed to this bot reads as a chat message.
			botUsername := b.tg.Self().UserName
			if b.containsBotMention(commandText, botUsername) {
				mention := "@" + botUsername
				update.Message.Text = strings.TrimSpace(stripMention(msg.Text, mention))
				update.Message.Caption = strings.TrimSpace(stripMention(msg.Caption, mention))
			}

			// Stickers, videos and other media the assistant cannot
			// read are ignored.
			if msg.Text == "" && msg.Caption == "" &&
				len(msg.Photo) == 0 && msg.Voice == nil && msg.Audio == nil && msg.Document == nil {
				continue
			}

			if cmd, ok := b.commands[chat.CommandName]; ok {
				b.handleAsync(cmd, update, msg.Chat.ID, msg.MessageID)
			}
		}
	}
}

func (b *Bot) dispatchCommand(update telegram.Update, commandText string) {
	msg := update.Message
	parts := strings.Fields(commandText)
	if len(parts) == 0 {
		return
	}
	cmdParts := strings.Split(strings.TrimPrefix(parts[0], "/"), "@")
	command := cmdParts[0]
	// Commands addressed to other bots in the chat are not ours.
	if len(cmdParts) > 1 && !strings.EqualFold(cmdParts[1], b.tg.Self().UserName) {
		return
	}

	var cmd commands.Command
	for name, c := range b.commands {
		if name == command || slices.Contains(c.Aliases(), command) {
			cmd = c
			break
		}
	}
	if cmd == nil {
		return
	}

	b.logger.WithFields(logger.Fields{
		"command":  command,
		"user_id":  msg.From.ID,
		"username": msg.From.UserName,
		"args":     msg.CommandArguments(),
	}).Info("Handling command")

	b.handleAsync(cmd, update, msg.Chat.ID, msg.MessageID)
}

func (b *Bot) handleAsync(cmd commands.Command, update telegram.Update, chatID int64, messageID int) {
	go func() {
		if err := cmd.Handle(update); err != nil {
			b.logger.WithError(err).Error("Failed to handle update")
			b.sendErrorMessage(err, chatID, messageID)
		}
	}()
}

// upsertUser keeps the users table in sync with what Telegram sends.
func (b *Bot) upsertUser(msg *telegram.MessageOriginal) {
	user := database.User{
		ID:        msg.From.ID,
		FirstName: msg.From.FirstName,
		Username:  msg.From.UserName,
		Language:  msg.From.LanguageCode,
	}

	storedUser, err := b.db.GetUser(msg.From.ID)
	if err != nil {
		if err == sql.ErrNoRows {
			b.logger.WithField("user", user).Info("Store new user")
			if err := b.db.SaveUser(user); err != nil {
				b.logger.WithError(err).WithField("user", user).Error("Error save new user")
			}
		} else {
			b.logger.WithError(err).Error("Error get user by id")
		}
		return
	}
	if !user.Equal(*storedUser) {
		if err := b.db.SaveUser(user); err != nil {
			b.logger.WithError(err).WithField("user", user).Error("Error update user")
		}
	}
}

func (b *Bot) RegisterCommand(cmd commands.Command) {
	if cmd == nil {
		b.logger.Error("Attempting to register nil command")
		return
	}

	name := cmd.Name()
	if name == "" {
		b.logger.Error("Attempting to register command with empty name")
		return
	}

	b.logger.WithFields(logger.Fields{
		"command": name,
	}).Debug("Registering command")

	b.commands[name] = cmd
}

func isCommand(commandText string) bool {
	return strings.HasPrefix(commandText, "/")
}

func stripMention(text, mention string) string {
	if text == "" {
		return text
	}
	lower := strings.ToLower(text)
	needle := strings.ToLower(mention)
	for {
		idx := strings.Index(lower, needle)
		if idx < 0 {
			return text
		}
		text = text[:idx] + text[idx+len(needle):]
		lower = lower[:idx] + lower[idx+len(needle):]
	}
}

func (b *Bot) sendErrorMessage(err error, chatID int64, messageID int) error {
	errorMsg := telegram.NewMessage(
		chatID,
		fmt.Sprintf("%s: %v", b.localizer.Localize("error", nil), err),
		messageID,
	)
	if _, sendErr := b.tg.Send(errorMsg); sendErr != nil {
		b.logger.WithError(sendErr).Error("Failed to send error message")
		return sendErr
	}
	return nil
}

func (b *Bot) GetCommands() map[string]commands.Command {
	return b.commands
}

func (b *Bot) containsBotMention(text string, botUsername string) bool {
	if !strings.Contains(text, "@") {
		return false
	}
	return strings.Contains(strings.ToLower(text), "@"+strings.ToLower(botUsername))
}

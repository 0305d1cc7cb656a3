package telegram

import (
	tgbotapi "github.com/OvyFlash/telegram-bot-api"
)

type ParseMode = string

const (
	ModeMarkdown   = "Markdown"
	ModeMarkdownV2 = "MarkdownV2"
)

type (
	MessageOriginal = tgbotapi.Message
	Update          = tgbotapi.Update
	FileURL         = tgbotapi.FileURL
	FileBytes       = tgbotapi.FileBytes
	MessageEntity   = tgbotapi.MessageEntity
	RequestFileData = tgbotapi.RequestFileData
)

type Message struct {
	MessageID int
	Chat      Chat
	Text      string
	From      User
	ReplyTo   *Message
	Command   string
}

type User struct {
	ID        int64
	FirstName string
	UserName  string
}

type Chat struct {
	ID   int64
	Type string
}

type MessageConfig interface {
	ToChattable() tgbotapi.Chattable
}

type TextMessage struct {
	ChatID              int64
	Text                string
	ReplyTo             int
	LinkPreviewDisabled bool
	ParseMode           ParseMode
}

func NewMessage(chatID int64, text string, replyTo int) TextMessage {
	return TextMessage{
		ChatID:              chatID,
		Text:                text,
		LinkPreviewDisabled: false,
		ReplyTo:             replyTo,
	}
}

func (m TextMessage) ToChattable() tgbotapi.Chattable {
	msg := tgbotapi.NewMessage(m.ChatID, m.Text)
	msg.ReplyParameters.MessageID = m.ReplyTo
	msg.ParseMode = m.ParseMode
	msg.LinkPreviewOptions.IsDisabled = m.LinkPreviewDisabled
	return msg
}

type PhotoMessage struct {
	ChatID    int64
	Photo     RequestFileData
	Caption   string
	ReplyTo   int
	ParseMode string
}

func NewPhotoMessage(chatID int64, photo RequestFileData, caption string, replyTo int) PhotoMessage {
	return PhotoMessage{
		ChatID:  chatID,
		Photo:   photo,
		Caption: caption,
		ReplyTo: replyTo,
	}
}

func (m PhotoMessage) ToChattable() tgbotapi.Chattable {
	msg := tgbotapi.NewPhoto(m.ChatID, m.Photo)
	msg.Caption = m.Caption
	msg.ReplyParameters.MessageID = m.ReplyTo
	msg.ParseMode = m.ParseMode
	return msg
}

type UpdateConfig struct {
	Offset  int
	Limit   int
	Timeout int
}

type ChatAction string

const (
	ActionTyping      ChatAction = "typing"
	ActionUploadPhoto ChatAction = "upload_photo"
)

type Client interface {
	Send(msg MessageConfig) (*Message, error)
	SendWithRetry(msg MessageConfig, maxRetryCount int) (*Message, error)
	GetFileURL(fileID string) (string, error)
	GetUpdatesChan(config UpdateConfig) <-chan tgbotapi.Update
	SendChatAction(chatID int64, action ChatAction) error
	PrepareMarkdown(text string) string
	NewUpdate(offset, timeout, limit int) UpdateConfig
	Self() User
}

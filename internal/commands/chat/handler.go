// Package chat is the main conversational command. Plain messages,
// photos, voice notes and text documents all land here; the handler
// maps them to the matching capability and replies with whatever the
// dispatch engine returns.
package chat

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/cenkalti/backoff/v4"

	"github.com/vkuzmin-dev/polyglot/internal/ai"
	"github.com/vkuzmin-dev/polyglot/internal/app/di"
	"github.com/vkuzmin-dev/polyglot/internal/commands/base"
	"github.com/vkuzmin-dev/polyglot/internal/database"
	"github.com/vkuzmin-dev/polyglot/internal/dispatch"
	"github.com/vkuzmin-dev/polyglot/internal/logger"
	"github.com/vkuzmin-dev/polyglot/internal/telegram"
)

const CommandName = "chat"

const (
	// Telegram's bot API refuses files above 20 MB anyway.
	maxDownloadBytes = 20 << 20
	maxDocumentBytes = 64 << 10
	// Extra dispatch attempts after a retryable failure.
	maxRetries = 2
)

type Command struct {
	*base.Command
	httpClient *http.Client
}

func New(di *di.Container) *Command {
	cmd := &Command{
		httpClient: di.HttpClient,
	}
	cmd.Command = base.NewCommand(cmd, di)
	return cmd
}

func (c *Command) Name() string {
	return CommandName
}

func (c *Command) Aliases() []string {
	return []string{"c", "ask"}
}

func (c *Command) Execute(update telegram.Update) error {
	msg := update.Message
	if msg == nil || msg.From == nil {
		return nil
	}

	ctx := context.Background()
	userID := msg.From.ID
	chatID := msg.Chat.ID

	req, prefix, err := c.buildRequest(ctx, msg)
	if err != nil {
		return err
	}
	if req == nil {
		return nil
	}
	req.User = userID

	preferred, err := c.DB.GetPreferredProvider(userID)
	if err != nil {
		c.Logger.WithError(err).WithField("user_id", userID).
			Warn("Failed to load preferred provider")
	}
	req.Provider = preferred

	_ = c.Tg.SendChatAction(chatID, telegram.ActionTyping)

	result := c.invoke(ctx, *req)

	switch {
	case result.IsThrottled():
		return c.replyPlain(chatID, msg.MessageID, c.L("throttled", map[string]any{
			"Seconds": int(c.Cfg.RateLimit().Window.Seconds()),
		}))
	case result.IsUnavailable():
		return c.replyPlain(chatID, msg.MessageID, c.L("no_provider", nil))
	case result.IsRetryable():
		return c.replyPlain(chatID, msg.MessageID, c.L("provider_busy", nil))
	case result.IsFatal():
		return c.replyPlain(chatID, msg.MessageID, c.L("provider_failed", nil))
	}

	text := result.Text
	if prefix != "" {
		text = prefix + "\n" + text
	}
	if err := c.replyMarkdown(chatID, msg.MessageID, text); err != nil {
		return err
	}

	if err := c.DB.SaveConversation(ctx, database.Conversation{
		UserID:     userID,
		Capability: req.Capability.String(),
		Prompt:     req.Prompt,
		Response:   result.Text,
		Provider:   result.Binding.Provider,
		RequestID:  result.RequestID,
		DurationMs: result.Duration.Milliseconds(),
	}); err != nil {
		c.Logger.WithError(err).Warn("Failed to save conversation")
	}
	c.Analytics.Track(ctx, userID, CommandName, req.Capability.String(), result.Binding.Provider, result.Duration)

	return nil
}

// buildRequest maps the inbound message to a dispatch request. A nil
// request with a nil error means the user already got a usage reply.
func (c *Command) buildRequest(ctx context.Context, msg *telegram.MessageOriginal) (*dispatch.Request, string, error) {
	chatID := msg.Chat.ID

	switch {
	case len(msg.Photo) > 0:
		// Telegram sorts sizes ascending; take the largest.
		photo := msg.Photo[len(msg.Photo)-1]
		data, err := c.download(ctx, photo.FileID)
		if err != nil {
			c.Logger.WithError(err).Error("Failed to download photo")
			return nil, "", c.replyPlain(chatID, msg.MessageID, c.L("file_download_failed", nil))
		}
		prompt := strings.TrimSpace(msg.Caption)
		if prompt == "" {
			prompt = c.L("photo_prompt_default", nil)
		}
		return &dispatch.Request{
			Capability: ai.ImageAnalysis,
			Prompt:     prompt,
			Payload:    data,
		}, "", nil

	case msg.Voice != nil:
		data, err := c.download(ctx, msg.Voice.FileID)
		if err != nil {
			c.Logger.WithError(err).Error("Failed to download voice note")
			return nil, "", c.replyPlain(chatID, msg.MessageID, c.L("file_download_failed", nil))
		}
		return &dispatch.Request{
			Capability: ai.AudioTranscription,
			Payload:    data,
			Format:     audioFormat(msg.Voice.MimeType, ""),
		}, c.L("transcript_prefix", nil), nil

	case msg.Audio != nil:
		data, err := c.download(ctx, msg.Audio.FileID)
		if err != nil {
			c.Logger.WithError(err).Error("Failed to download audio")
			return nil, "", c.replyPlain(chatID, msg.MessageID, c.L("file_download_failed", nil))
		}
		return &dispatch.Request{
			Capability: ai.AudioTranscription,
			Payload:    data,
			Format:     audioFormat(msg.Audio.MimeType, msg.Audio.FileName),
		}, c.L("transcript_prefix", nil), nil

	case msg.Document != nil:
		doc := msg.Document
		if doc.FileSize > maxDocumentBytes {
			return nil, "", c.replyPlain(chatID, msg.MessageID, c.L("document_too_large", map[string]any{
				"MaxKB": maxDocumentBytes / 1024,
			}))
		}
		if !isTextDocument(doc.MimeType, doc.FileName) {
			return nil, "", c.replyPlain(chatID, msg.MessageID, c.L("document_unsupported", nil))
		}
		data, err := c.download(ctx, doc.FileID)
		if err != nil {
			c.Logger.WithError(err).Error("Failed to download document")
			return nil, "", c.replyPlain(chatID, msg.MessageID, c.L("file_download_failed", nil))
		}
		instruction := strings.TrimSpace(msg.Caption)
		if instruction == "" {
			instruction = c.L("document_prompt_default", nil)
		}
		return &dispatch.Request{
			Capability: ai.TextGeneration,
			Prompt:     instruction + "\n\n" + string(data),
		}, "", nil
	}

	text := strings.TrimSpace(msg.Text)
	if msg.Command() != "" {
		text = strings.TrimSpace(msg.CommandArguments())
	}
	if text == "" {
		return nil, "", c.replyPlain(chatID, msg.MessageID, c.L("chat_empty", nil))
	}
	return &dispatch.Request{
		Capability: ai.TextGeneration,
		Prompt:     text,
	}, "", nil
}

// invoke runs the dispatch with bounded exponential backoff. Only a
// retryable outcome triggers another attempt; throttled, unavailable
// and fatal results return immediately.
func (c *Command) invoke(ctx context.Context, req dispatch.Request) dispatch.Result {
	var result dispatch.Result
	attempt := func() error {
		result = c.Dispatcher.Invoke(ctx, req)
		if result.IsRetryable() {
			return fmt.Errorf("retryable outcome: %s", result.Reason)
		}
		return nil
	}
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxRetries),
		ctx,
	)
	if err := backoff.Retry(attempt, policy); err != nil {
		c.Logger.WithError(err).WithFields(logger.Fields{
			"user_id":    req.User,
			"capability": req.Capability.String(),
		}).Warn("Dispatch still failing after retries")
	}
	return result
}

func (c *Command) download(ctx context.Context, fileID string) ([]byte, error) {
	fileURL, err := c.Tg.GetFileURL(fileID)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("file download failed with status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxDownloadBytes))
}

func (c *Command) replyPlain(chatID int64, replyTo int, text string) error {
	_, err := c.Tg.SendWithRetry(telegram.NewMessage(chatID, text, replyTo), 2)
	return err
}

// replyMarkdown sends the model output as Markdown and falls back to
// plain text when Telegram rejects the formatting anyway.
func (c *Command) replyMarkdown(chatID int64, replyTo int, text string) error {
	msg := telegram.NewMessage(chatID, c.Tg.PrepareMarkdown(text), replyTo)
	msg.ParseMode = telegram.ModeMarkdown
	if _, err := c.Tg.SendWithRetry(msg, 2); err == nil {
		return nil
	}
	return c.replyPlain(chatID, replyTo, text)
}

func audioFormat(mime, fileName string) string {
	switch {
	case strings.Contains(mime, "ogg"), strings.Contains(mime, "opus"):
		return "ogg"
	case strings.Contains(mime, "mpeg"), strings.Contains(mime, "mp3"):
		return "mp3"
	case strings.Contains(mime, "wav"):
		return "wav"
	case strings.Contains(mime, "mp4"), strings.Contains(mime, "m4a"):
		return "m4a"
	}
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".mp3":
		return "mp3"
	case ".wav":
		return "wav"
	case ".m4a":
		return "m4a"
	}
	return "ogg"
}

var textExtensions = map[string]bool{
	".txt":  true,
	".md":   true,
	".csv":  true,
	".json": true,
	".log":  true,
	".yaml": true,
	".yml":  true,
	".toml": true,
	".xml":  true,
	".html": true,
	".go":   true,
	".py":   true,
	".js":   true,
	".ts":   true,
	".sh":   true,
	".sql":  true,
}

func isTextDocument(mime, name string) bool {
	if strings.HasPrefix(mime, "text/") || mime == "application/json" {
		return true
	}
	return textExtensions[strings.ToLower(filepath.Ext(name))]
}

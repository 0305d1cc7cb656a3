package ai

import (
	"context"
	"encoding/base64"
	"net/http"

	"github.com/vkuzmin-dev/polyglot/internal/config"
	"github.com/vkuzmin-dev/polyglot/internal/logger"
)

const (
	defaultAnthropicBaseURL = "https://api.anthropic.com/v1"
	anthropicAPIVersion     = "2023-06-01"
)

// AnthropicClient speaks the Anthropic Messages API.
// Capabilities: text generation and image analysis.
type AnthropicClient struct {
	baseClient
	model        string
	systemPrompt string
	params       config.ModelParams
}

func NewAnthropicClient(cfg config.AIProviderConfig, aiCfg config.AIConfig, log logger.Logger, httpClient *http.Client) *AnthropicClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultAnthropicBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = "claude-3-5-haiku-latest"
	}
	return &AnthropicClient{
		baseClient: newBaseClient(cfg.Name, baseURL, map[string]string{
			"x-api-key":         cfg.GetAPIKey(),
			"anthropic-version": anthropicAPIVersion,
		}, httpClient, log),
		model:        model,
		systemPrompt: aiCfg.SystemPrompt,
		params:       aiCfg.Params,
	}
}

type anthropicImageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type anthropicBlock struct {
	Type   string                `json:"type"`
	Text   string                `json:"text,omitempty"`
	Source *anthropicImageSource `json:"source,omitempty"`
}

type anthropicMessage struct {
	Role    string           `json:"role"`
	Content []anthropicBlock `json:"content"`
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
	Temperature float64            `json:"temperature"`
	TopP        float64            `json:"top_p"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

func (c *AnthropicClient) Name() string {
	return ProviderAnthropic
}

func (c *AnthropicClient) send(ctx context.Context, messages []anthropicMessage) (string, error) {
	req := anthropicRequest{
		Model:       c.model,
		MaxTokens:   c.params.MaxTokens,
		System:      c.systemPrompt,
		Messages:    messages,
		Temperature: c.params.Temperature,
		TopP:        c.params.TopP,
	}

	var resp anthropicResponse
	if err := c.postJSON(ctx, "messages", req, &resp); err != nil {
		return "", err
	}

	var text string
	for _, block := range resp.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	if text == "" {
		return "", &ProviderError{Provider: c.name, Message: "empty response"}
	}
	return text, nil
}

func (c *AnthropicClient) Generate(ctx context.Context, prompt string, history []Turn) (string, error) {
	messages := make([]anthropicMessage, 0, len(history)+1)
	for _, turn := range history {
		messages = append(messages, anthropicMessage{
			Role:    turn.Role,
			Content: []anthropicBlock{{Type: "text", Text: turn.Content}},
		})
	}
	messages = append(messages, anthropicMessage{
		Role:    RoleUser,
		Content: []anthropicBlock{{Type: "text", Text: prompt}},
	})
	return c.send(ctx, messages)
}

func (c *AnthropicClient) GenerateImage(ctx context.Context, prompt string) (*Image, error) {
	return nil, ErrUnsupported
}

func (c *AnthropicClient) AnalyzeImage(ctx context.Context, image []byte, prompt string) (string, error) {
	if prompt == "" {
		prompt = "Describe this image."
	}
	messages := []anthropicMessage{{
		Role: RoleUser,
		Content: []anthropicBlock{
			{Type: "image", Source: &anthropicImageSource{
				Type:      "base64",
				MediaType: http.DetectContentType(image),
				Data:      base64.StdEncoding.EncodeToString(image),
			}},
			{Type: "text", Text: prompt},
		},
	}}
	return c.send(ctx, messages)
}

func (c *AnthropicClient) Transcribe(ctx context.Context, audio []byte, format string) (string, error) {
	return "", ErrUnsupported
}

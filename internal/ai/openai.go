package ai

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"

	"github.com/vkuzmin-dev/polyglot/internal/config"
	"github.com/vkuzmin-dev/polyglot/internal/logger"
)

const defaultOpenAIBaseURL = "https://api.openai.com/v1"

// OpenAIClient speaks the OpenAI REST API (and compatible gateways).
// The only backend bound to all four capabilities.
type OpenAIClient struct {
	baseClient
	model        string
	imageModel   string
	audioModel   string
	systemPrompt string
	params       config.ModelParams
}

func NewOpenAIClient(cfg config.AIProviderConfig, aiCfg config.AIConfig, log logger.Logger, httpClient *http.Client) *OpenAIClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}
	imageModel := cfg.ImageModel
	if imageModel == "" {
		imageModel = "dall-e-3"
	}
	audioModel := cfg.AudioModel
	if audioModel == "" {
		audioModel = "whisper-1"
	}
	return &OpenAIClient{
		baseClient: newBaseClient(cfg.Name, baseURL, map[string]string{
			"Authorization": "Bearer " + cfg.GetAPIKey(),
		}, httpClient, log),
		model:        model,
		imageModel:   imageModel,
		audioModel:   audioModel,
		systemPrompt: aiCfg.SystemPrompt,
		params:       aiCfg.Params,
	}
}

type openAIContent struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	ImageURL *struct {
		URL string `json:"url"`
	} `json:"image_url,omitempty"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"` // string or []openAIContent
}

type openAIChatRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	Temperature float64         `json:"temperature"`
	MaxTokens   int             `json:"max_tokens"`
	TopP        float64         `json:"top_p"`
}

type openAIChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

type openAIImageRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	N      int    `json:"n"`
	Size   string `json:"size"`
}

type openAIImageResponse struct {
	Data []struct {
		URL     string `json:"url"`
		B64JSON string `json:"b64_json"`
	} `json:"data"`
}

type openAITranscription struct {
	Text string `json:"text"`
}

func (c *OpenAIClient) Name() string {
	return ProviderOpenAI
}

func (c *OpenAIClient) chat(ctx context.Context, messages []openAIMessage) (string, error) {
	req := openAIChatRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: c.params.Temperature,
		MaxTokens:   c.params.MaxTokens,
		TopP:        c.params.TopP,
	}

	var resp openAIChatResponse
	if err := c.postJSON(ctx, "chat/completions", req, &resp); err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", &ProviderError{Provider: c.name, Message: "empty response"}
	}
	return resp.Choices[0].Message.Content, nil
}

func (c *OpenAIClient) Generate(ctx context.Context, prompt string, history []Turn) (string, error) {
	messages := make([]openAIMessage, 0, len(history)+2)
	if c.systemPrompt != "" {
		messages = append(messages, openAIMessage{Role: RoleSystem, Content: c.systemPrompt})
	}
	for _, turn := range history {
		messages = append(messages, openAIMessage{Role: turn.Role, Content: turn.Content})
	}
	messages = append(messages, openAIMessage{Role: RoleUser, Content: prompt})
	return c.chat(ctx, messages)
}

func (c *OpenAIClient) GenerateImage(ctx context.Context, prompt string) (*Image, error) {
	req := openAIImageRequest{
		Model:  c.imageModel,
		Prompt: prompt,
		N:      1,
		Size:   "1024x1024",
	}

	var resp openAIImageResponse
	if err := c.postJSON(ctx, "images/generations", req, &resp); err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, &ProviderError{Provider: c.name, Message: "empty response"}
	}

	img := &Image{URL: resp.Data[0].URL, Mime: "image/png"}
	if img.URL == "" && resp.Data[0].B64JSON != "" {
		data, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
		if err != nil {
			return nil, &ProviderError{Provider: c.name, Message: "decode image: " + err.Error(), Err: err}
		}
		img.Data = data
	}
	if img.URL == "" && len(img.Data) == 0 {
		return nil, &ProviderError{Provider: c.name, Message: "empty response"}
	}
	return img, nil
}

func (c *OpenAIClient) AnalyzeImage(ctx context.Context, image []byte, prompt string) (string, error) {
	if prompt == "" {
		prompt = "Describe this image."
	}
	dataURL := fmt.Sprintf("data:%s;base64,%s",
		http.DetectContentType(image),
		base64.StdEncoding.EncodeToString(image),
	)
	content := []openAIContent{
		{Type: "text", Text: prompt},
		{Type: "image_url", ImageURL: &struct {
			URL string `json:"url"`
		}{URL: dataURL}},
	}

	messages := make([]openAIMessage, 0, 2)
	if c.systemPrompt != "" {
		messages = append(messages, openAIMessage{Role: RoleSystem, Content: c.systemPrompt})
	}
	messages = append(messages, openAIMessage{Role: RoleUser, Content: content})
	return c.chat(ctx, messages)
}

func (c *OpenAIClient) Transcribe(ctx context.Context, audio []byte, format string) (string, error) {
	fields := map[string]string{
		"model": c.audioModel,
	}
	fileName := "audio." + format
	if format == "" {
		fileName = "audio.ogg"
	}

	var resp openAITranscription
	if err := c.postMultipart(ctx, "audio/transcriptions", fields, "file", fileName, audio, &resp); err != nil {
		return "", err
	}
	if resp.Text == "" {
		return "", &ProviderError{Provider: c.name, Message: "empty response"}
	}
	return resp.Text, nil
}

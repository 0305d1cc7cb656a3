package ai

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"

	"github.com/vkuzmin-dev/polyglot/internal/config"
	"github.com/vkuzmin-dev/polyglot/internal/logger"
)

const defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// GeminiClient speaks the Google Generative Language REST API.
// Capabilities: text generation, image analysis, audio transcription.
type GeminiClient struct {
	baseClient
	model        string
	systemPrompt string
	params       config.ModelParams
}

func NewGeminiClient(cfg config.AIProviderConfig, aiCfg config.AIConfig, log logger.Logger, httpClient *http.Client) *GeminiClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultGeminiBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = "gemini-2.0-flash"
	}
	return &GeminiClient{
		baseClient: newBaseClient(cfg.Name, baseURL, map[string]string{
			"x-goog-api-key": cfg.GetAPIKey(),
		}, httpClient, log),
		model:        model,
		systemPrompt: aiCfg.SystemPrompt,
		params:       aiCfg.Params,
	}
}

type geminiInlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inline_data,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
	TopP            float64 `json:"topP"`
}

type geminiRequest struct {
	SystemInstruction *geminiContent         `json:"system_instruction,omitempty"`
	Contents          []geminiContent        `json:"contents"`
	GenerationConfig  geminiGenerationConfig `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

func (c *GeminiClient) Name() string {
	return ProviderGemini
}

func (c *GeminiClient) generationConfig() geminiGenerationConfig {
	return geminiGenerationConfig{
		Temperature:     c.params.Temperature,
		MaxOutputTokens: c.params.MaxTokens,
		TopP:            c.params.TopP,
	}
}

// geminiRole maps conversation roles onto the two roles the API knows.
func geminiRole(role string) string {
	if role == RoleAssistant {
		return "model"
	}
	return "user"
}

func (c *GeminiClient) generate(ctx context.Context, contents []geminiContent) (string, error) {
	req := geminiRequest{
		Contents:         contents,
		GenerationConfig: c.generationConfig(),
	}
	if c.systemPrompt != "" {
		req.SystemInstruction = &geminiContent{
			Parts: []geminiPart{{Text: c.systemPrompt}},
		}
	}

	var resp geminiResponse
	path := fmt.Sprintf("models/%s:generateContent", c.model)
	if err := c.postJSON(ctx, path, req, &resp); err != nil {
		return "", err
	}

	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return "", &ProviderError{
			Provider: c.name,
			Message:  "prompt blocked: " + resp.PromptFeedback.BlockReason,
		}
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", &ProviderError{Provider: c.name, Message: "empty response"}
	}

	var text string
	for _, part := range resp.Candidates[0].Content.Parts {
		text += part.Text
	}
	return text, nil
}

func (c *GeminiClient) Generate(ctx context.Context, prompt string, history []Turn) (string, error) {
	contents := make([]geminiContent, 0, len(history)+1)
	for _, turn := range history {
		contents = append(contents, geminiContent{
			Role:  geminiRole(turn.Role),
			Parts: []geminiPart{{Text: turn.Content}},
		})
	}
	contents = append(contents, geminiContent{
		Role:  "user",
		Parts: []geminiPart{{Text: prompt}},
	})
	return c.generate(ctx, contents)
}

func (c *GeminiClient) GenerateImage(ctx context.Context, prompt string) (*Image, error) {
	return nil, ErrUnsupported
}

func (c *GeminiClient) AnalyzeImage(ctx context.Context, image []byte, prompt string) (string, error) {
	if prompt == "" {
		prompt = "Describe this image."
	}
	contents := []geminiContent{{
		Role: "user",
		Parts: []geminiPart{
			{Text: prompt},
			{InlineData: &geminiInlineData{
				MimeType: http.DetectContentType(image),
				Data:     base64.StdEncoding.EncodeToString(image),
			}},
		},
	}}
	return c.generate(ctx, contents)
}

func (c *GeminiClient) Transcribe(ctx context.Context, audio []byte, format string) (string, error) {
	contents := []geminiContent{{
		Role: "user",
		Parts: []geminiPart{
			{Text: "Transcribe this audio verbatim. Return only the transcript."},
			{InlineData: &geminiInlineData{
				MimeType: audioMimeType(format),
				Data:     base64.StdEncoding.EncodeToString(audio),
			}},
		},
	}}
	return c.generate(ctx, contents)
}

func audioMimeType(format string) string {
	switch format {
	case "ogg", "oga":
		return "audio/ogg"
	case "mp3":
		return "audio/mpeg"
	case "wav":
		return "audio/wav"
	case "m4a", "mp4":
		return "audio/mp4"
	case "flac":
		return "audio/flac"
	default:
		return "audio/" + format
	}
}

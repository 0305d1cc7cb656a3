package ai

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vkuzmin-dev/polyglot/internal/config"
	"github.com/vkuzmin-dev/polyglot/internal/logger"
)

type stubProvider struct {
	name string
}

func (p *stubProvider) Name() string { return p.name }

func (p *stubProvider) Generate(ctx context.Context, prompt string, history []Turn) (string, error) {
	return "ok", nil
}

func (p *stubProvider) GenerateImage(ctx context.Context, prompt string) (*Image, error) {
	return nil, ErrUnsupported
}

func (p *stubProvider) AnalyzeImage(ctx context.Context, image []byte, prompt string) (string, error) {
	return "", ErrUnsupported
}

func (p *stubProvider) Transcribe(ctx context.Context, audio []byte, format string) (string, error) {
	return "", ErrUnsupported
}

func newTestRegistry(t *testing.T, names ...string) *ProviderRegistry {
	t.Helper()
	r := NewProviderRegistry(logger.NewTestLogger())
	for _, name := range names {
		r.Register(name, &stubProvider{name: name})
		require.NoError(t, r.Bind(Binding{
			Capability: TextGeneration,
			Provider:   name,
		}))
	}
	return r
}

func TestResolvePreferredProvider(t *testing.T) {
	r := newTestRegistry(t, "gemini", "openai", "anthropic")

	binding, provider, err := r.Resolve(TextGeneration, "anthropic")
	require.NoError(t, err)
	assert.Equal(t, "anthropic", binding.Provider)
	assert.Equal(t, "anthropic", provider.Name())
}

func TestResolveFallsBackInPriorityOrder(t *testing.T) {
	r := newTestRegistry(t, "gemini", "openai", "anthropic")
	r.MarkAvailable("anthropic", false)

	binding, _, err := r.Resolve(TextGeneration, "anthropic")
	require.NoError(t, err)
	assert.Equal(t, "gemini", binding.Provider, "first available in priority order wins")
}

func TestResolveSkipsUnavailableHead(t *testing.T) {
	r := newTestRegistry(t, "gemini", "openai", "anthropic")
	r.MarkAvailable("gemini", false)

	binding, _, err := r.Resolve(TextGeneration, "")
	require.NoError(t, err)
	assert.Equal(t, "openai", binding.Provider)
}

func TestResolveNoneAvailable(t *testing.T) {
	r := newTestRegistry(t, "gemini", "openai")
	r.MarkAvailable("gemini", false)
	r.MarkAvailable("openai", false)

	_, _, err := r.Resolve(TextGeneration, "")
	assert.ErrorIs(t, err, ErrNoProvider)
}

func TestResolveUnboundCapability(t *testing.T) {
	r := newTestRegistry(t, "gemini")

	_, _, err := r.Resolve(ImageGeneration, "gemini")
	assert.ErrorIs(t, err, ErrNoProvider)
}

func TestMarkAvailableRestores(t *testing.T) {
	r := newTestRegistry(t, "gemini")
	r.MarkAvailable("gemini", false)

	_, _, err := r.Resolve(TextGeneration, "")
	require.ErrorIs(t, err, ErrNoProvider)

	r.MarkAvailable("gemini", true)
	binding, _, err := r.Resolve(TextGeneration, "")
	require.NoError(t, err)
	assert.Equal(t, "gemini", binding.Provider)
}

func TestMarkAvailableUnknownProviderIsNoop(t *testing.T) {
	r := newTestRegistry(t, "gemini")
	r.MarkAvailable("nope", false)

	assert.False(t, r.IsAvailable("nope"))
	assert.True(t, r.IsAvailable("gemini"))
}

func TestBindUnknownProvider(t *testing.T) {
	r := NewProviderRegistry(logger.NewTestLogger())
	err := r.Bind(Binding{Capability: TextGeneration, Provider: "ghost"})
	assert.ErrorIs(t, err, ErrProviderNotFound)
}

func TestBuildRegistryFromConfig(t *testing.T) {
	aiCfg := config.AIConfig{
		Params: config.ModelParams{Temperature: 0.7, MaxTokens: 1500, TopP: 0.95},
		Priority: config.PriorityConfig{
			Text:   []string{"gemini", "openai", "anthropic"},
			Image:  []string{"openai"},
			Vision: []string{"gemini", "openai"},
			Audio:  []string{"openai", "gemini"},
		},
		Providers: []config.AIProviderConfig{
			{Name: "gemini", Type: ProviderGemini, Enabled: true, CostTier: "free", Capabilities: []string{"text", "vision", "audio"}},
			{Name: "openai", Type: ProviderOpenAI, Enabled: true, Capabilities: []string{"text", "image", "vision", "audio"}},
			{Name: "anthropic", Type: ProviderAnthropic, Enabled: false, Capabilities: []string{"text", "vision"}},
		},
	}

	r, err := BuildRegistry(aiCfg, logger.NewTestLogger(), nil)
	require.NoError(t, err)

	text := r.Bindings(TextGeneration)
	require.Len(t, text, 2, "disabled provider must not be bound")
	assert.Equal(t, "gemini", text[0].Provider)
	assert.Equal(t, "openai", text[1].Provider)
	assert.Equal(t, CostTierFree, text[0].CostTier)
	assert.Equal(t, CostTierMetered, text[1].CostTier)

	image := r.Bindings(ImageGeneration)
	require.Len(t, image, 1)
	assert.Equal(t, "openai", image[0].Provider)

	audio := r.Bindings(AudioTranscription)
	require.Len(t, audio, 2)
	assert.Equal(t, "openai", audio[0].Provider, "audio priority order is independent of text order")

	_, _, err = r.Resolve(TextGeneration, "anthropic")
	require.NoError(t, err, "unknown preferred falls back, not errors")

	caps := r.Capabilities("gemini")
	assert.Equal(t, []Capability{TextGeneration, ImageAnalysis, AudioTranscription}, caps)
}

func TestParseCapability(t *testing.T) {
	cases := []struct {
		in   string
		want Capability
		ok   bool
	}{
		{"text", TextGeneration, true},
		{"image", ImageGeneration, true},
		{"vision", ImageAnalysis, true},
		{"audio", AudioTranscription, true},
		{"text_generation", TextGeneration, true},
		{"audio_transcription", AudioTranscription, true},
		{"video", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseCapability(tc.in)
		if tc.ok {
			require.NoError(t, err, tc.in)
			assert.Equal(t, tc.want, got)
		} else {
			assert.Error(t, err, tc.in)
		}
	}
}

func TestValidateCapabilities(t *testing.T) {
	bad := config.AIProviderConfig{Name: "x", Type: ProviderGemini, Capabilities: []string{"text", "video"}}
	assert.Error(t, ValidateCapabilities(bad))

	badType := config.AIProviderConfig{Name: "x", Type: "mistral", Capabilities: []string{"text"}}
	assert.Error(t, ValidateCapabilities(badType))

	good := config.AIProviderConfig{Name: "x", Type: ProviderOpenAI, Capabilities: []string{"text", "image"}}
	assert.NoError(t, ValidateCapabilities(good))
}

func TestProviderErrorText(t *testing.T) {
	err := &ProviderError{Provider: "gemini", StatusCode: 429, Message: "rate limit exceeded: resource exhausted"}
	assert.Equal(t, "gemini: rate limit exceeded: resource exhausted (status 429)", err.Error())

	wrapped := &ProviderError{Provider: "openai", Message: "connection failed: dial tcp", Err: errors.New("dial tcp")}
	assert.Equal(t, "openai: connection failed: dial tcp", wrapped.Error())
	assert.NotNil(t, errors.Unwrap(wrapped))
}

package ai

import (
	"context"
	"fmt"
)

// Turn is one entry in a user's conversation window.
type Turn struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp"`
}

// Capability is one of the four operations a provider can be bound to.
type Capability string

const (
	TextGeneration     Capability = "text_generation"
	ImageGeneration    Capability = "image_generation"
	ImageAnalysis      Capability = "image_analysis"
	AudioTranscription Capability = "audio_transcription"
)

// ParseCapability accepts the full capability names and the short
// aliases used in config files.
func ParseCapability(s string) (Capability, error) {
	switch s {
	case "text", string(TextGeneration):
		return TextGeneration, nil
	case "image", string(ImageGeneration):
		return ImageGeneration, nil
	case "vision", string(ImageAnalysis):
		return ImageAnalysis, nil
	case "audio", string(AudioTranscription):
		return AudioTranscription, nil
	}
	return "", fmt.Errorf("unknown capability %q", s)
}

func (c Capability) String() string {
	return string(c)
}

type CostTier string

const (
	CostTierFree    CostTier = "free"
	CostTierMetered CostTier = "metered"
)

// Binding is one (capability, provider) pair known to the registry.
// Availability is registry state, not part of the binding.
type Binding struct {
	Capability  Capability
	Provider    string
	DisplayName string
	CostTier    CostTier
}

// Image is a generated image reference: a hosted URL or raw bytes,
// depending on what the backend returned.
type Image struct {
	URL  string
	Data []byte
	Mime string
}

// Provider is the uniform surface over every AI backend. A backend
// implements all four methods; the ones its config never binds return
// ErrUnsupported and are unreachable through the registry.
type Provider interface {
	Name() string
	Generate(ctx context.Context, prompt string, history []Turn) (string, error)
	GenerateImage(ctx context.Context, prompt string) (*Image, error)
	AnalyzeImage(ctx context.Context, image []byte, prompt string) (string, error)
	Transcribe(ctx context.Context, audio []byte, format string) (string, error)
}

// ProviderError is a failed provider call. Its message carries the
// upstream error text so the dispatch layer can classify it.
type ProviderError struct {
	Provider   string
	StatusCode int
	Message    string
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: %s (status %d)", e.Provider, e.Message, e.StatusCode)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

package ai

import (
	"fmt"
	"net/http"
	"slices"

	"github.com/vkuzmin-dev/polyglot/internal/config"
	"github.com/vkuzmin-dev/polyglot/internal/logger"
)

// NewProviderFromConfig builds the concrete backend for a provider
// entry.
func NewProviderFromConfig(cfg config.AIProviderConfig, aiCfg config.AIConfig, log logger.Logger, httpClient *http.Client) (Provider, error) {
	switch cfg.Type {
	case ProviderGemini:
		return NewGeminiClient(cfg, aiCfg, log, httpClient), nil
	case ProviderOpenAI:
		return NewOpenAIClient(cfg, aiCfg, log, httpClient), nil
	case ProviderAnthropic:
		return NewAnthropicClient(cfg, aiCfg, log, httpClient), nil
	default:
		return nil, fmt.Errorf("unknown provider type %q", cfg.Type)
	}
}

// BuildRegistry registers every enabled provider and binds it to the
// capabilities it declares, in the order the priority lists dictate.
func BuildRegistry(aiCfg config.AIConfig, log logger.Logger, httpClient *http.Client) (*ProviderRegistry, error) {
	registry := NewProviderRegistry(log)

	for _, providerCfg := range aiCfg.Providers {
		if !providerCfg.Enabled {
			continue
		}
		provider, err := NewProviderFromConfig(providerCfg, aiCfg, log, httpClient)
		if err != nil {
			return nil, fmt.Errorf("provider %s: %w", providerCfg.Name, err)
		}
		registry.Register(providerCfg.Name, provider)
		log.WithFields(logger.Fields{
			"provider":     providerCfg.Name,
			"type":         providerCfg.Type,
			"capabilities": providerCfg.Capabilities,
		}).Info("Registered AI provider")
	}

	priorities := map[Capability][]string{
		TextGeneration:     aiCfg.Priority.Text,
		ImageGeneration:    aiCfg.Priority.Image,
		ImageAnalysis:      aiCfg.Priority.Vision,
		AudioTranscription: aiCfg.Priority.Audio,
	}

	for _, capability := range []Capability{TextGeneration, ImageGeneration, ImageAnalysis, AudioTranscription} {
		for _, name := range priorities[capability] {
			providerCfg := aiCfg.GetProvider(name)
			if providerCfg == nil || !providerCfg.Enabled {
				continue
			}
			if !declaresCapability(providerCfg, capability) {
				continue
			}
			binding := Binding{
				Capability:  capability,
				Provider:    providerCfg.Name,
				DisplayName: providerCfg.GetDisplayName(),
				CostTier:    costTier(providerCfg.CostTier),
			}
			if err := registry.Bind(binding); err != nil {
				return nil, err
			}
		}
	}

	return registry, nil
}

func declaresCapability(cfg *config.AIProviderConfig, capability Capability) bool {
	for _, s := range cfg.Capabilities {
		parsed, err := ParseCapability(s)
		if err != nil {
			continue
		}
		if parsed == capability {
			return true
		}
	}
	return false
}

func costTier(s string) CostTier {
	if s == string(CostTierFree) {
		return CostTierFree
	}
	return CostTierMetered
}

// ValidateCapabilities rejects config typos at startup.
func ValidateCapabilities(cfg config.AIProviderConfig) error {
	for _, s := range cfg.Capabilities {
		if _, err := ParseCapability(s); err != nil {
			return fmt.Errorf("provider %s: %w", cfg.Name, err)
		}
	}
	if !slices.Contains([]string{ProviderGemini, ProviderOpenAI, ProviderAnthropic}, cfg.Type) {
		return fmt.Errorf("provider %s: unknown type %q", cfg.Name, cfg.Type)
	}
	return nil
}

package ai

import (
	"errors"
	"fmt"
	"sync"

	"github.com/vkuzmin-dev/polyglot/internal/logger"
)

var (
	// ErrNoProvider means no bound provider for the capability is
	// currently available.
	ErrNoProvider = errors.New("no provider available for capability")
	// ErrProviderNotFound means the provider id is not registered at all.
	ErrProviderNotFound = errors.New("provider not found")
)

// ProviderRegistry maps capabilities to provider instances. Binding
// lists keep the fixed priority order from config; availability flags
// are the only runtime-mutable state.
type ProviderRegistry struct {
	mu        sync.RWMutex
	providers map[string]Provider
	bindings  map[Capability][]Binding
	available map[string]bool
	logger    logger.Logger
}

func NewProviderRegistry(log logger.Logger) *ProviderRegistry {
	return &ProviderRegistry{
		providers: make(map[string]Provider),
		bindings:  make(map[Capability][]Binding),
		available: make(map[string]bool),
		logger:    log,
	}
}

// Register installs a provider instance under its id. Instances start
// available.
func (r *ProviderRegistry) Register(name string, provider Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[name] = provider
	r.available[name] = true
}

// Bind appends a (capability, provider) binding. Call order defines
// the fallback priority for that capability.
func (r *ProviderRegistry) Bind(binding Binding) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.providers[binding.Provider]; !ok {
		return fmt.Errorf("%w: %s", ErrProviderNotFound, binding.Provider)
	}
	r.bindings[binding.Capability] = append(r.bindings[binding.Capability], binding)
	return nil
}

// Resolve picks the provider for a capability: the preferred one if it
// is bound and available, otherwise the first available binding in
// priority order. It never blocks on the network; availability is a
// flag read.
func (r *ProviderRegistry) Resolve(capability Capability, preferred string) (Binding, Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	bindings := r.bindings[capability]

	if preferred != "" {
		for _, b := range bindings {
			if b.Provider == preferred && r.available[b.Provider] {
				return b, r.providers[b.Provider], nil
			}
		}
	}

	for _, b := range bindings {
		if r.available[b.Provider] {
			return b, r.providers[b.Provider], nil
		}
	}

	return Binding{}, nil, fmt.Errorf("%w: %s", ErrNoProvider, capability)
}

// MarkAvailable toggles a provider for all its capabilities.
func (r *ProviderRegistry) MarkAvailable(name string, available bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.providers[name]; !ok {
		return
	}
	r.available[name] = available
	r.logger.WithFields(logger.Fields{
		"provider":  name,
		"available": available,
	}).Info("Provider availability changed")
}

// IsAvailable reports the current availability flag.
func (r *ProviderRegistry) IsAvailable(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.available[name]
}

// GetProvider looks an instance up by id regardless of bindings.
func (r *ProviderRegistry) GetProvider(name string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if provider, ok := r.providers[name]; ok {
		return provider, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrProviderNotFound, name)
}

// Bindings returns the priority-ordered bindings for a capability.
func (r *ProviderRegistry) Bindings(capability Capability) []Binding {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Binding{}, r.bindings[capability]...)
}

// Providers returns all registered provider ids.
func (r *ProviderRegistry) Providers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	return names
}

// Capabilities returns the capabilities a provider is bound to, in
// the order text, image, vision, audio.
func (r *ProviderRegistry) Capabilities(name string) []Capability {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var caps []Capability
	for _, capability := range []Capability{TextGeneration, ImageGeneration, ImageAnalysis, AudioTranscription} {
		for _, b := range r.bindings[capability] {
			if b.Provider == name {
				caps = append(caps, capability)
				break
			}
		}
	}
	return caps
}

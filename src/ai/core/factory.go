package core

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// DefaultProvider is used when ai.provider is empty.
const DefaultProvider = "openai"

// ErrUnknownProvider is returned by NewClient for names nothing registered.
var ErrUnknownProvider = errors.New("provider not registered")

// FactoryConfig is the ai.* configuration block handed to a provider.
type FactoryConfig struct {
	Provider string

	SystemPrompt        string
	Model               string
	Temperature         float64
	MaxCompletionTokens int

	OpenAIKey string
	ClaudeKey string
	GeminiKey string

	// BaseURL overrides the provider endpoint; used against test servers.
	BaseURL string
}

// ProviderFactory builds a summary client from the ai.* configuration.
type ProviderFactory func(FactoryConfig) (Client, error)

// registry maps lowercased provider names and aliases to factories. Provider
// packages fill it from init; src/ai/providers imports them all.
type registry struct {
	mu        sync.RWMutex
	factories map[string]ProviderFactory
}

var summaryProviders = &registry{factories: map[string]ProviderFactory{}}

func (r *registry) add(factory ProviderFactory, names ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range names {
		r.factories[strings.ToLower(strings.TrimSpace(n))] = factory
	}
}

func (r *registry) lookup(name string) ProviderFactory {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.factories[strings.ToLower(strings.TrimSpace(name))]
}

// RegisterProvider makes a provider selectable as ai.provider under name and
// each alias.
func RegisterProvider(name string, factory ProviderFactory, aliases ...string) {
	summaryProviders.add(factory, append([]string{name}, aliases...)...)
}

// Registered returns every selectable provider name, sorted.
func Registered() []string {
	summaryProviders.mu.RLock()
	defer summaryProviders.mu.RUnlock()
	names := make([]string, 0, len(summaryProviders.factories))
	for n := range summaryProviders.factories {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// NewClient builds the summary client for cfg.Provider.
func NewClient(cfg FactoryConfig) (Client, error) {
	name := cfg.Provider
	if strings.TrimSpace(name) == "" {
		name = DefaultProvider
	}
	factory := summaryProviders.lookup(name)
	if factory == nil {
		return nil, fmt.Errorf("ai: provider %q not registered: %w", name, ErrUnknownProvider)
	}
	return factory(cfg)
}

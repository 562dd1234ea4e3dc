package core

import "strings"

// summaryModels are the models used for SIMD discussion summaries when
// ai.model is left empty. Small, cheap tiers are enough: the prompt is a
// capped digest of PR comments and the output a short paragraph.
var summaryModels = []struct {
	provider string
	aliases  []string
	model    string
}{
	{provider: "openai", aliases: []string{"gpt5", "gpt"}, model: "gpt-5-mini"},
	{provider: "anthropic", aliases: []string{"claude", "haiku45"}, model: "claude-haiku-4-5"},
	{provider: "gemini", aliases: []string{"gemini25", "google"}, model: "gemini-2.5-flash"},
}

// SummaryModelFor returns the summary model for a provider name or alias,
// or "" when the provider is unknown.
func SummaryModelFor(provider string) string {
	key := strings.ToLower(strings.TrimSpace(provider))
	for _, m := range summaryModels {
		if m.provider == key {
			return m.model
		}
		for _, a := range m.aliases {
			if a == key {
				return m.model
			}
		}
	}
	return ""
}

// ResolveModelName prefers the configured model and falls back to the
// provider's summary model.
func ResolveModelName(provider, configuredModel string) string {
	if model := strings.TrimSpace(configuredModel); model != "" {
		return model
	}
	if model := SummaryModelFor(provider); model != "" {
		return model
	}
	return "unknown"
}

package core

import "context"

// Options controls model behavior; fields are optional per provider.
type Options struct {
	Model               string
	Temperature         float64
	MaxCompletionTokens int
	SystemPrompt        string
}

// Client is a provider-agnostic interface for the completions we need.
type Client interface {
	// Respond sends a single user turn and returns the model's text.
	Respond(ctx context.Context, input string, opts Options) (string, error)
	// Model is the model name requests default to.
	Model() string
}

// Merge overlays the non-zero fields of opts on base.
func Merge(base, opts Options) Options {
	out := base
	if opts.Model != "" {
		out.Model = opts.Model
	}
	if opts.Temperature != 0 {
		out.Temperature = opts.Temperature
	}
	if opts.MaxCompletionTokens != 0 {
		out.MaxCompletionTokens = opts.MaxCompletionTokens
	}
	if opts.SystemPrompt != "" {
		out.SystemPrompt = opts.SystemPrompt
	}
	return out
}

package core

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoClient struct{ model string }

func (e echoClient) Respond(_ context.Context, input string, _ Options) (string, error) {
	return input, nil
}

func (e echoClient) Model() string { return e.model }

func TestRegisterProviderAliases(t *testing.T) {
	RegisterProvider("echo-test", func(cfg FactoryConfig) (Client, error) {
		return echoClient{model: ResolveModelName(cfg.Provider, cfg.Model)}, nil
	}, "Echo-Alias")

	c, err := NewClient(FactoryConfig{Provider: "ECHO-ALIAS"})
	require.NoError(t, err)
	assert.Equal(t, "unknown", c.Model())

	out, err := c.Respond(context.Background(), "hi", Options{})
	require.NoError(t, err)
	assert.Equal(t, "hi", out)

	_, err = NewClient(FactoryConfig{Provider: "nope"})
	assert.ErrorContains(t, err, `provider "nope" not registered`)
	assert.ErrorIs(t, err, ErrUnknownProvider)
}

func TestResolveModelName(t *testing.T) {
	assert.Equal(t, "gpt-5-mini", ResolveModelName("OpenAI", ""))
	assert.Equal(t, "custom", ResolveModelName("openai", " custom "))
	assert.Equal(t, "unknown", ResolveModelName("mystery", ""))
	assert.Equal(t, "claude-haiku-4-5", ResolveModelName("Claude", ""))
	assert.Equal(t, "gemini-2.5-flash", ResolveModelName("google", ""))
}

func TestMerge(t *testing.T) {
	base := Options{Model: "a", Temperature: 0.3, MaxCompletionTokens: 500, SystemPrompt: "sys"}
	got := Merge(base, Options{Model: "b", MaxCompletionTokens: 900})
	assert.Equal(t, Options{Model: "b", Temperature: 0.3, MaxCompletionTokens: 900, SystemPrompt: "sys"}, got)
}

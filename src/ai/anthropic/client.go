package anthropic

import (
	"context"
	"fmt"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/stake-plus/simd-tracker/src/ai/core"
)

const defaultMaxTokens = 1024

func init() {
	core.RegisterProvider("anthropic", newClient, "claude", "haiku45")
}

type client struct {
	api      sdk.Client
	defaults core.Options
}

func newClient(cfg core.FactoryConfig) (core.Client, error) {
	if cfg.ClaudeKey == "" {
		return nil, fmt.Errorf("anthropic: API key not configured")
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.ClaudeKey), option.WithMaxRetries(3)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &client{
		api: sdk.NewClient(opts...),
		defaults: core.Options{
			Model:               core.ResolveModelName("anthropic", cfg.Model),
			Temperature:         cfg.Temperature,
			MaxCompletionTokens: orInt(cfg.MaxCompletionTokens, defaultMaxTokens),
			SystemPrompt:        cfg.SystemPrompt,
		},
	}, nil
}

func (c *client) Model() string { return c.defaults.Model }

func (c *client) Respond(ctx context.Context, input string, opts core.Options) (string, error) {
	merged := core.Merge(c.defaults, opts)
	params := sdk.MessageNewParams{
		Model:     sdk.Model(merged.Model),
		MaxTokens: int64(merged.MaxCompletionTokens),
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(input)),
		},
	}
	if merged.SystemPrompt != "" {
		params.System = []sdk.TextBlockParam{{Text: merged.SystemPrompt}}
	}
	if merged.Temperature != 0 {
		params.Temperature = sdk.Float(merged.Temperature)
	}

	message, err := c.api.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("anthropic API error: %w", err)
	}

	var b strings.Builder
	for _, block := range message.Content {
		if block.Type != "text" || block.Text == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(block.Text)
	}
	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", fmt.Errorf("anthropic: empty response")
	}
	return text, nil
}

func orInt(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

package gemini

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"google.golang.org/genai"

	"github.com/stake-plus/simd-tracker/src/ai/core"
)

const defaultMaxTokens = 2048

func init() {
	core.RegisterProvider("gemini", newClient, "gemini25", "google")
}

type client struct {
	apiKey   string
	baseURL  string
	defaults core.Options

	mu  sync.Mutex
	api *genai.Client
}

func newClient(cfg core.FactoryConfig) (core.Client, error) {
	if cfg.GeminiKey == "" {
		return nil, fmt.Errorf("gemini: API key not configured")
	}
	return &client{
		apiKey:  cfg.GeminiKey,
		baseURL: cfg.BaseURL,
		defaults: core.Options{
			Model:               core.ResolveModelName("gemini", cfg.Model),
			Temperature:         cfg.Temperature,
			MaxCompletionTokens: orInt(cfg.MaxCompletionTokens, defaultMaxTokens),
			SystemPrompt:        cfg.SystemPrompt,
		},
	}, nil
}

func (c *client) Model() string { return c.defaults.Model }

// ensureClient builds the SDK client on first use; it needs a context.
func (c *client) ensureClient(ctx context.Context) (*genai.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.api != nil {
		return c.api, nil
	}
	cc := &genai.ClientConfig{Backend: genai.BackendGeminiAPI, APIKey: c.apiKey}
	if c.baseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: c.baseURL}
	}
	api, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	c.api = api
	return api, nil
}

func (c *client) Respond(ctx context.Context, input string, opts core.Options) (string, error) {
	api, err := c.ensureClient(ctx)
	if err != nil {
		return "", err
	}
	merged := core.Merge(c.defaults, opts)

	config := &genai.GenerateContentConfig{MaxOutputTokens: int32(merged.MaxCompletionTokens)}
	if merged.Temperature != 0 {
		config.Temperature = genai.Ptr(float32(merged.Temperature))
	}
	if strings.TrimSpace(merged.SystemPrompt) != "" {
		config.SystemInstruction = genai.NewContentFromText(merged.SystemPrompt, genai.RoleUser)
	}

	contents := []*genai.Content{genai.NewContentFromText(input, genai.RoleUser)}
	result, err := api.Models.GenerateContent(ctx, merged.Model, contents, config)
	if err != nil {
		return "", fmt.Errorf("gemini API error: %w", err)
	}
	text := strings.TrimSpace(result.Text())
	if text == "" {
		return "", fmt.Errorf("gemini: empty response")
	}
	return text, nil
}

func orInt(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

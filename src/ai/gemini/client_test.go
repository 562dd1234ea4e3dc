package gemini

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stake-plus/simd-tracker/src/ai/core"
)

func TestRespondUsesGenerateContent(t *testing.T) {
	var path, key, body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		key = r.Header.Get("X-Goog-Api-Key")
		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		body = string(raw)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"candidates":[{"content":{"role":"model","parts":[{"text":" Reviewers favour a 2x cap. "}]},"finishReason":"STOP"}]
		}`))
	}))
	defer srv.Close()

	c, err := core.NewClient(core.FactoryConfig{
		Provider: "google", GeminiKey: "g-key", BaseURL: srv.URL, SystemPrompt: "summarise the thread",
	})
	require.NoError(t, err)
	assert.Equal(t, "gemini-2.5-flash", c.Model())

	out, err := c.Respond(context.Background(), "thread", core.Options{MaxCompletionTokens: 300})
	require.NoError(t, err)
	assert.Equal(t, "Reviewers favour a 2x cap.", out)
	assert.True(t, strings.HasSuffix(path, "/models/gemini-2.5-flash:generateContent"), path)
	assert.Equal(t, "g-key", key)
	assert.Contains(t, body, "summarise the thread")
	assert.Contains(t, body, `"maxOutputTokens":300`)
}

func TestRespondRejectsEmptyCandidate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"  "}]}}]}`))
	}))
	defer srv.Close()

	c, err := core.NewClient(core.FactoryConfig{Provider: "gemini", GeminiKey: "g-key", BaseURL: srv.URL})
	require.NoError(t, err)
	_, err = c.Respond(context.Background(), "thread", core.Options{})
	assert.ErrorContains(t, err, "empty response")
}

func TestNewClientRequiresKey(t *testing.T) {
	_, err := core.NewClient(core.FactoryConfig{Provider: "gemini"})
	assert.ErrorContains(t, err, "API key not configured")
}

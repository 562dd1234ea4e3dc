package summaries

import (
	"context"

	"github.com/stake-plus/simd-tracker/src/ai/core"
	"github.com/stake-plus/simd-tracker/src/shared/simd"
)

// NoActivitySummary is returned when there is nothing to summarise.
const NoActivitySummary = "No discussion activity yet."

// Summarizer turns a PR thread, or the delta since an existing summary, into a summary.
type Summarizer struct {
	client    core.Client
	sanitizer *Sanitizer
}

// NewSummarizer wraps an AI client.
func NewSummarizer(client core.Client) *Summarizer {
	return &Summarizer{client: client, sanitizer: NewSanitizer()}
}

// Model is the model summaries are attributed to.
func (s *Summarizer) Model() string { return s.client.Model() }

// Generate summarises msgs. With an existing summary only msgs are treated as
// new and the model is asked to fold them in. ok is false when the model output
// was refused and RejectedSummary returned in its place.
func (s *Summarizer) Generate(ctx context.Context, msgs []simd.Message, existing string) (summary string, ok bool, err error) {
	if len(msgs) == 0 {
		if existing != "" {
			return existing, true, nil
		}
		return NoActivitySummary, true, nil
	}

	thread := s.sanitizer.formatMessages(msgs)
	prompt := fullPrompt(thread)
	if existing != "" {
		prompt = incrementalPrompt(existing, thread)
	}

	out, err := s.client.Respond(ctx, prompt, core.Options{SystemPrompt: SystemPrompt})
	if err != nil {
		return "", false, err
	}
	summary, ok = ValidateOutput(out)
	return summary, ok, nil
}

package summaries

import "regexp"

const (
	maxSummaryRunes = 5000

	// RejectedSummary replaces model output that fails validation.
	RejectedSummary = "Unable to generate summary due to content validation failure."
)

var suspiciousOutput = regexp.MustCompile(`(?i)api[_-]?key|secret|password|token|credentials?`)

// ValidateOutput truncates overly long output and refuses output that looks
// like it leaked credentials. ok is false when the output was refused.
func ValidateOutput(summary string) (string, bool) {
	if suspiciousOutput.MatchString(summary) {
		return RejectedSummary, false
	}
	if r := []rune(summary); len(r) > maxSummaryRunes {
		return string(r[:maxSummaryRunes]) + "...", true
	}
	return summary, true
}

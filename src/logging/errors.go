package logging

import (
	"errors"
	"strings"
)

// ErrRateLimited marks errors caused by upstream quota exhaustion.
var ErrRateLimited = errors.New("rate limited")

// IsRateLimit reports whether err looks like an upstream rate-limit rejection.
func IsRateLimit(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "rate_limit") ||
		strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "429")
}

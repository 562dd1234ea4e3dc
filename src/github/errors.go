package github

import (
	"errors"
	"fmt"
	"net/http"

	gh "github.com/google/go-github/v68/github"

	"github.com/stake-plus/simd-tracker/src/logging"
)

var (
	// ErrRateLimited is returned when upstream rejected a call for quota reasons.
	ErrRateLimited = logging.ErrRateLimited
	// ErrNotFound is returned for missing files, PRs or discussions.
	ErrNotFound = errors.New("github: not found")
	// ErrTransient marks upstream 5xx responses.
	ErrTransient = errors.New("github: transient failure")
)

// classify maps go-github errors onto the package sentinels.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var rle *gh.RateLimitError
	var abuse *gh.AbuseRateLimitError
	if errors.As(err, &rle) || errors.As(err, &abuse) {
		return fmt.Errorf("%s: %w: %v", op, ErrRateLimited, err)
	}
	var er *gh.ErrorResponse
	if errors.As(err, &er) && er.Response != nil {
		switch code := er.Response.StatusCode; {
		case code == http.StatusNotFound:
			return fmt.Errorf("%s: %w", op, ErrNotFound)
		case code == http.StatusTooManyRequests:
			return fmt.Errorf("%s: %w: %v", op, ErrRateLimited, err)
		case code >= 500:
			return fmt.Errorf("%s: %w: %v", op, ErrTransient, err)
		}
	}
	if logging.IsRateLimit(err) {
		return fmt.Errorf("%s: %w: %v", op, ErrRateLimited, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

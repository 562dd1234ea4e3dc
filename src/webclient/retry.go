package webclient

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

type AttemptFunc func() (status int, body []byte, err error)

// DoWithRetry retries the attempt function on transport errors, 408, 429 and 5xx
// responses with exponential backoff. Other 4xx responses are returned at once.
func DoWithRetry(ctx context.Context, attempts int, initialDelay time.Duration, fn AttemptFunc) (int, []byte, error) {
	if attempts <= 0 {
		attempts = 1
	}
	if initialDelay <= 0 {
		initialDelay = 2 * time.Second
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = initialDelay
	bo.MaxInterval = 30 * time.Second
	bo.MaxElapsedTime = 0

	var (
		status int
		body   []byte
	)
	op := func() error {
		var err error
		status, body, err = fn()
		switch {
		case err == nil && status < 400:
			return nil
		case err == nil:
			err = fmt.Errorf("status %d", status)
		}
		if status != 0 && !Retryable(status) {
			return backoff.Permanent(err)
		}
		return err
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(bo, uint64(attempts-1)), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return status, body, ctxErr
		}
		return status, body, err
	}
	return status, body, nil
}

// Retryable reports whether an HTTP status is worth retrying.
func Retryable(status int) bool {
	return status == http.StatusRequestTimeout || status == http.StatusTooManyRequests || status >= 500
}

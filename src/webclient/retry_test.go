package webclient

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoWithRetryRecoversFromTransientStatus(t *testing.T) {
	calls := 0
	status, body, err := DoWithRetry(context.Background(), 3, time.Millisecond, func() (int, []byte, error) {
		calls++
		if calls < 3 {
			return http.StatusServiceUnavailable, nil, errors.New("unavailable")
		}
		return http.StatusOK, []byte("ok"), nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", string(body))
}

func TestDoWithRetryStopsOnClientError(t *testing.T) {
	calls := 0
	status, _, err := DoWithRetry(context.Background(), 5, time.Millisecond, func() (int, []byte, error) {
		calls++
		return http.StatusUnauthorized, []byte(`{"error":"bad key"}`), errors.New("status 401")
	})
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestDoWithRetryGivesUpAfterAttempts(t *testing.T) {
	calls := 0
	_, _, err := DoWithRetry(context.Background(), 2, time.Millisecond, func() (int, []byte, error) {
		calls++
		return http.StatusTooManyRequests, nil, nil
	})
	assert.Error(t, err)
	assert.Equal(t, 2, calls)
}

func TestDoWithRetryHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := DoWithRetry(ctx, 5, time.Second, func() (int, []byte, error) {
		return 0, nil, errors.New("dial failed")
	})
	assert.ErrorIs(t, err, context.Canceled)
}

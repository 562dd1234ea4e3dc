package data

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisLocker(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	ctx := context.Background()
	locker := NewRedisLocker(rdb)

	release, err := locker.Acquire(ctx, "prs", time.Minute)
	require.NoError(t, err)

	_, err = locker.Acquire(ctx, "prs", time.Minute)
	assert.ErrorIs(t, err, ErrLocked)

	release()
	release2, err := locker.Acquire(ctx, "prs", time.Minute)
	require.NoError(t, err)
	release2()
}

func TestStreamPublisher(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	ctx := context.Background()
	pub := NewStreamPublisher(rdb)
	require.NoError(t, pub.Publish(ctx, map[string]any{"job": "prs", "status": "completed"}))

	entries, err := rdb.XRange(ctx, streamEvents, "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "prs", entries[0].Values["job"])
}

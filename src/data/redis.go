package data

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	lockPrefix   = "simdtracker:lock:"
	streamEvents = "simdtracker.events"
)

// ErrLocked is returned when another run already holds the lock.
var ErrLocked = errors.New("run already in progress")

// ConnectRedis parses url and returns a connected client.
func ConnectRedis(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

// Locker guards engine runs so that a manual trigger and the scheduler do not
// walk the same data concurrently.
type Locker interface {
	Acquire(ctx context.Context, name string, ttl time.Duration) (release func(), err error)
}

// NopLocker always grants the lock.
type NopLocker struct{}

func (NopLocker) Acquire(context.Context, string, time.Duration) (func(), error) {
	return func() {}, nil
}

// RedisLocker implements Locker with SET NX and a token-checked release.
type RedisLocker struct {
	rdb *redis.Client
}

// NewRedisLocker returns a Locker backed by rdb.
func NewRedisLocker(rdb *redis.Client) *RedisLocker {
	return &RedisLocker{rdb: rdb}
}

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

func (l *RedisLocker) Acquire(ctx context.Context, name string, ttl time.Duration) (func(), error) {
	key := lockPrefix + name
	token := uuid.NewString()
	ok, err := l.rdb.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire %s: %w", name, err)
	}
	if !ok {
		return nil, ErrLocked
	}
	return func() {
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		_ = releaseScript.Run(releaseCtx, l.rdb, []string{key}, token).Err()
	}, nil
}

// Publisher emits run events for downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, payload map[string]any) error
}

// NopPublisher discards events.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, map[string]any) error { return nil }

// StreamPublisher appends events to a Redis stream.
type StreamPublisher struct {
	rdb    *redis.Client
	stream string
}

// NewStreamPublisher returns a Publisher writing to the tracker's event stream.
func NewStreamPublisher(rdb *redis.Client) *StreamPublisher {
	return &StreamPublisher{rdb: rdb, stream: streamEvents}
}

func (p *StreamPublisher) Publish(ctx context.Context, payload map[string]any) error {
	_, err := p.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: 10000,
		Approx: true,
		Values: payload,
	}).Result()
	return err
}

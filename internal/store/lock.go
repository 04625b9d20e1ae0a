package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/semaphore"
)

// Locker serializes read-modify-write cycles on a store.
type Locker interface {
	// Lock blocks until the caller owns the store or ctx is done. The
	// returned function releases the lock.
	Lock(ctx context.Context) (unlock func(), err error)
}

// LocalLocker serializes writers inside one process.
type LocalLocker struct {
	sem *semaphore.Weighted
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{sem: semaphore.NewWeighted(1)}
}

func (l *LocalLocker) Lock(ctx context.Context) (func(), error) {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("failed to acquire store lock: %w", err)
	}
	return func() { l.sem.Release(1) }, nil
}

// releaseScript deletes the lease only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// RedisLocker is a lease held in Redis, shared by every instance writing the
// same store. The lease expires after TTL so a crashed holder cannot block
// writers forever.
type RedisLocker struct {
	client *redis.Client
	key    string
	ttl    time.Duration
	retry  time.Duration
}

// NewRedisLocker connects to the Redis server at redisURL and returns a
// locker for key.
func NewRedisLocker(ctx context.Context, redisURL, key string, ttl time.Duration) (*RedisLocker, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &RedisLocker{client: client, key: key, ttl: ttl, retry: 100 * time.Millisecond}, nil
}

func (l *RedisLocker) Lock(ctx context.Context) (func(), error) {
	token := uuid.NewString()
	for {
		ok, err := l.client.SetNX(ctx, l.key, token, l.ttl).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("failed to acquire store lease %s: %w", l.key, err)
		}
		if ok {
			break
		}
		select {
		case <-time.After(l.retry):
		case <-ctx.Done():
			return nil, fmt.Errorf("failed to acquire store lease %s: %w", l.key, ctx.Err())
		}
	}

	return func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := releaseScript.Run(releaseCtx, l.client, []string{l.key}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
			slog.Warn("Failed to release store lease; it will expire on its own.", "key", l.key, "error", err)
		}
	}, nil
}

func (l *RedisLocker) Close() error {
	return l.client.Close()
}

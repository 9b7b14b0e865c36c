package lock

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock only when it still carries our token, so a
// holder whose TTL expired cannot free somebody else's lock.
var releaseScript = redis.NewScript(`
	if redis.call('GET', KEYS[1]) == ARGV[1] then
		return redis.call('DEL', KEYS[1])
	end
	return 0
`)

// RedisOptions configures a RedisLocker.
type RedisOptions struct {
	// Prefix is prepended to every key.
	Prefix string
	// TTL bounds how long a crashed holder can block a key.
	TTL time.Duration
	// RetryInterval is the pause between acquisition attempts.
	RetryInterval time.Duration
	// Logger receives release failures.
	Logger *slog.Logger
}

// RedisLocker is a Locker shared by every process talking to the same Redis.
type RedisLocker struct {
	client        redis.UniversalClient
	prefix        string
	ttl           time.Duration
	retryInterval time.Duration
	logger        *slog.Logger
}

// NewRedisLocker builds a RedisLocker with defaults for unset options.
func NewRedisLocker(client redis.UniversalClient, opts RedisOptions) *RedisLocker {
	if opts.Prefix == "" {
		opts.Prefix = "lesson-scheduler:booking:"
	}
	if opts.TTL <= 0 {
		opts.TTL = 10 * time.Second
	}
	if opts.RetryInterval <= 0 {
		opts.RetryInterval = 25 * time.Millisecond
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &RedisLocker{
		client:        client,
		prefix:        opts.Prefix,
		ttl:           opts.TTL,
		retryInterval: opts.RetryInterval,
		logger:        opts.Logger,
	}
}

// Acquire polls SET NX PX until the key is obtained or ctx is done.
func (l *RedisLocker) Acquire(ctx context.Context, key string) (Release, error) {
	redisKey := l.prefix + key
	token := uuid.NewString()

	for {
		ok, err := l.client.SetNX(ctx, redisKey, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("lock: acquire %s: %w", key, err)
		}
		if ok {
			break
		}

		timer := time.NewTimer(l.retryInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("%w: %s: %w", ErrNotAcquired, key, ctx.Err())
		case <-timer.C:
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// The request context may already be cancelled; release regardless.
			releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
			defer cancel()
			if err := releaseScript.Run(releaseCtx, l.client, []string{redisKey}, token).Err(); err != nil {
				l.logger.Warn("failed to release booking lock", "key", key, "error", err)
			}
		})
	}, nil
}

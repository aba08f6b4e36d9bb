// Package lock provides a Redis backed mutual exclusion for deployments that
// run more than one ledger instance.
package lock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrNotOwner is returned when releasing a lock that expired or was taken
// over by another holder.
var ErrNotOwner = errors.New("lock not owned by this token")

var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end
`)

// RedisLocker acquires per-key locks with SET NX PX and releases them with a
// compare-and-delete script.
type RedisLocker struct {
	client        *redis.Client
	prefix        string
	ttl           time.Duration
	retryInterval time.Duration
	logger        *slog.Logger
}

// NewRedisLocker creates a locker. ttl bounds how long a crashed holder can
// block others; retryInterval is the polling period while waiting.
func NewRedisLocker(
	client *redis.Client,
	prefix string,
	ttl, retryInterval time.Duration,
	logger *slog.Logger,
) *RedisLocker {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	if retryInterval <= 0 {
		retryInterval = 25 * time.Millisecond
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisLocker{
		client:        client,
		prefix:        prefix,
		ttl:           ttl,
		retryInterval: retryInterval,
		logger:        logger.With("context", "RedisLocker"),
	}
}

// Acquire blocks until the lock for key is held or ctx is done. The returned
// release is safe to call once.
func (l *RedisLocker) Acquire(ctx context.Context, key string) (func(), error) {
	redisKey := l.prefix + "lock:" + key
	token := uuid.NewString()

	ticker := time.NewTicker(l.retryInterval)
	defer ticker.Stop()
	for {
		ok, err := l.client.SetNX(ctx, redisKey, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire lock: %w", err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}

	return func() {
		// Release must run even when the request context is already cancelled.
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
		defer cancel()
		if err := l.release(releaseCtx, redisKey, token); err != nil {
			l.logger.Warn("failed to release lock", "key", redisKey, "error", err)
		}
	}, nil
}

func (l *RedisLocker) release(ctx context.Context, key, token string) error {
	n, err := releaseScript.Run(ctx, l.client, []string{key}, token).Int()
	if err != nil {
		return fmt.Errorf("release lock: %w", err)
	}
	if n == 0 {
		return ErrNotOwner
	}
	return nil
}

// NewRedisClient builds a client from a redis:// URL and verifies it with a
// PING.
func NewRedisClient(ctx context.Context, url string, poolSize int, dial, read, write time.Duration) (*redis.Client, error) {
	if url == "" {
		return nil, errors.New("redis: url is required")
	}
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis: invalid URL: %w", err)
	}
	if poolSize > 0 {
		opt.PoolSize = poolSize
	}
	if dial > 0 {
		opt.DialTimeout = dial
	}
	if read > 0 {
		opt.ReadTimeout = read
	}
	if write > 0 {
		opt.WriteTimeout = write
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis: connection failed: %w", err)
	}
	return client, nil
}

// Package lock provides the Redis backed admission lock used when several
// API instances share one database.
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	defaultTTL   = 10 * time.Second
	retryBackoff = 25 * time.Millisecond
)

// releaseScript deletes the key only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// ErrLockLost is reported when the lock expired before it was released.
var ErrLockLost = errors.New("lock: lock expired before release")

// RedisLocker is a SET NX PX mutex. Each holder writes a random token so an
// expired holder cannot release a lock taken over by someone else.
type RedisLocker struct {
	client *redis.Client
	ttl    time.Duration
	onLost func(key string, err error)
}

// New connects to Redis and verifies the connection.
func New(ctx context.Context, address, password string, db int, ttl time.Duration) (*RedisLocker, error) {
	const op = "lock.redis.New"

	rdb := redis.NewClient(&redis.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return NewWithClient(rdb, ttl), nil
}

// NewWithClient wraps an existing client. A non-positive ttl uses ten seconds.
func NewWithClient(client *redis.Client, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &RedisLocker{client: client, ttl: ttl}
}

// OnLost registers a callback for releases that found the lock already gone.
func (l *RedisLocker) OnLost(fn func(key string, err error)) *RedisLocker {
	l.onLost = fn
	return l
}

// Lock polls until key is acquired or ctx is done.
func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	const op = "lock.redis.Lock"

	token := uuid.NewString()
	ticker := time.NewTicker(retryBackoff)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if ok {
			return func() { l.release(key, token) }, nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%s: %w", op, ctx.Err())
		case <-ticker.C:
		}
	}
}

func (l *RedisLocker) release(key, token string) {
	const op = "lock.redis.release"

	// The caller's context may already be cancelled; release regardless.
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	deleted, err := releaseScript.Run(ctx, l.client, []string{key}, token).Int()
	if err == nil && deleted == 0 {
		err = ErrLockLost
	}
	if err != nil && l.onLost != nil {
		l.onLost(key, fmt.Errorf("%s: %w", op, err))
	}
}

// Close closes the underlying client.
func (l *RedisLocker) Close() error {
	return l.client.Close()
}

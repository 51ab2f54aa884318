package lock

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
)

func newTestLocker(t *testing.T, ttl time.Duration) *RedisLocker {
	t.Helper()

	addr := os.Getenv("RESERVATIONS_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("RESERVATIONS_TEST_REDIS_ADDR not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	locker, err := New(ctx, addr, "", 0, ttl)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(func() { _ = locker.Close() })
	return locker
}

func TestRedisLocker(t *testing.T) {
	t.Run("excludes a second holder until released", func(t *testing.T) {
		locker := newTestLocker(t, time.Second)
		key := "test:" + uuid.NewString()

		unlock, err := locker.Lock(context.Background(), key)
		if err != nil {
			t.Fatalf("Lock failed: %v", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()
		if _, err := locker.Lock(ctx, key); !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("expected deadline while held, got %v", err)
		}

		unlock()
		unlock2, err := locker.Lock(context.Background(), key)
		if err != nil {
			t.Fatalf("expected lock to be free, got %v", err)
		}
		unlock2()
	})

	t.Run("reports releases after expiry", func(t *testing.T) {
		locker := newTestLocker(t, 50*time.Millisecond)
		var lost error
		locker.OnLost(func(key string, err error) { lost = err })

		unlock, err := locker.Lock(context.Background(), "test:"+uuid.NewString())
		if err != nil {
			t.Fatalf("Lock failed: %v", err)
		}
		time.Sleep(150 * time.Millisecond)
		unlock()

		if !errors.Is(lost, ErrLockLost) {
			t.Fatalf("expected ErrLockLost, got %v", lost)
		}
	})
}

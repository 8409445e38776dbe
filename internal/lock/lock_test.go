package lock

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestRedis creates a miniredis server and a Redis locker on it.
func setupTestRedis(t *testing.T, opts RedisOptions) *Redis {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	locker, err := NewRedis(client, opts)
	require.NoError(t, err)
	return locker
}

func lockers(t *testing.T) map[string]Locker {
	return map[string]Locker{
		"local": NewLocal(),
		"redis": setupTestRedis(t, DefaultRedisOptions()),
	}
}

func TestLedgerKey(t *testing.T) {
	assert.Equal(t, "ledger:abc", LedgerKey("abc"))
}

func TestWithLock_RunsAndPropagatesError(t *testing.T) {
	for name, l := range lockers(t) {
		t.Run(name, func(t *testing.T) {
			executed := false
			err := l.WithLock(context.Background(), "test:lock", func(context.Context) error {
				executed = true
				return nil
			})
			require.NoError(t, err)
			assert.True(t, executed)

			boom := errors.New("boom")
			err = l.WithLock(context.Background(), "test:lock", func(context.Context) error {
				return boom
			})
			assert.ErrorIs(t, err, boom)

			// The lock must be free again after an error.
			err = l.WithLock(context.Background(), "test:lock", func(context.Context) error { return nil })
			assert.NoError(t, err)
		})
	}
}

func TestWithLock_SerializesSameKey(t *testing.T) {
	for name, l := range lockers(t) {
		t.Run(name, func(t *testing.T) {
			var inside, maxInside, done int32
			var wg sync.WaitGroup
			for i := 0; i < 8; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					err := l.WithLock(context.Background(), "ledger:shared", func(context.Context) error {
						n := atomic.AddInt32(&inside, 1)
						for {
							m := atomic.LoadInt32(&maxInside)
							if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
								break
							}
						}
						time.Sleep(5 * time.Millisecond)
						atomic.AddInt32(&inside, -1)
						atomic.AddInt32(&done, 1)
						return nil
					})
					assert.NoError(t, err)
				}()
			}
			wg.Wait()

			assert.Equal(t, int32(1), atomic.LoadInt32(&maxInside))
			assert.Equal(t, int32(8), atomic.LoadInt32(&done))
		})
	}
}

func TestWithLock_DifferentKeysIndependent(t *testing.T) {
	for name, l := range lockers(t) {
		t.Run(name, func(t *testing.T) {
			err := l.WithLock(context.Background(), "ledger:a", func(ctx context.Context) error {
				return l.WithLock(ctx, "ledger:b", func(context.Context) error { return nil })
			})
			assert.NoError(t, err)
		})
	}
}

func TestLocal_ContextCancelled(t *testing.T) {
	l := NewLocal()
	held := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = l.WithLock(context.Background(), "k", func(context.Context) error {
			close(held)
			<-release
			return nil
		})
	}()
	<-held

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := l.WithLock(ctx, "k", func(context.Context) error {
		t.Error("fn must not run without the lock")
		return nil
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	close(release)
}

func TestRedis_NotAcquired(t *testing.T) {
	l := setupTestRedis(t, RedisOptions{Expiry: 5 * time.Second, Tries: 2, RetryDelay: 5 * time.Millisecond})

	err := l.WithLock(context.Background(), "ledger:busy", func(ctx context.Context) error {
		return l.WithLock(ctx, "ledger:busy", func(context.Context) error {
			t.Error("fn must not run while the lock is held")
			return nil
		})
	})
	assert.ErrorIs(t, err, ErrNotAcquired)
}

func TestNewRedis_InvalidOptions(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	defer client.Close()

	tests := []struct {
		name string
		opts RedisOptions
	}{
		{"zero expiry", RedisOptions{Tries: 1}},
		{"zero tries", RedisOptions{Expiry: time.Second}},
		{"negative delay", RedisOptions{Expiry: time.Second, Tries: 1, RetryDelay: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRedis(client, tt.opts)
			assert.Error(t, err)
		})
	}
}

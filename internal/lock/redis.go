package lock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
)

// RedisOptions tunes the redsync mutex.
type RedisOptions struct {
	// Expiry bounds how long a crashed holder can block others.
	Expiry time.Duration
	// Tries is the number of acquisition attempts before ErrNotAcquired.
	Tries int
	// RetryDelay is the pause between attempts.
	RetryDelay time.Duration
}

// DefaultRedisOptions suits ledger mutations, which finish in milliseconds.
func DefaultRedisOptions() RedisOptions {
	return RedisOptions{
		Expiry:     10 * time.Second,
		Tries:      32,
		RetryDelay: 50 * time.Millisecond,
	}
}

// Redis is a distributed Locker backed by a single Redis instance.
type Redis struct {
	rs   *redsync.Redsync
	opts RedisOptions
}

// NewRedis creates a Locker on client.
func NewRedis(client redis.UniversalClient, opts RedisOptions) (*Redis, error) {
	if opts.Expiry <= 0 {
		return nil, errors.New("lock expiry must be greater than 0")
	}
	if opts.Tries < 1 {
		return nil, errors.New("lock tries must be at least 1")
	}
	if opts.RetryDelay < 0 {
		return nil, errors.New("lock retry delay cannot be negative")
	}

	return &Redis{
		rs:   redsync.New(goredis.NewPool(client)),
		opts: opts,
	}, nil
}

// WithLock acquires key in Redis, runs fn, then releases it.
func (r *Redis) WithLock(ctx context.Context, key string, fn func(context.Context) error) error {
	mutex := r.rs.NewMutex(
		key,
		redsync.WithExpiry(r.opts.Expiry),
		redsync.WithTries(r.opts.Tries),
		redsync.WithRetryDelay(r.opts.RetryDelay),
	)

	if err := mutex.LockContext(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: %s: %v", ErrNotAcquired, key, err)
	}

	defer func() {
		// Release with a fresh context so a cancelled request still unlocks.
		unlockCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
		defer cancel()
		if ok, err := mutex.UnlockContext(unlockCtx); !ok || err != nil {
			slog.WarnContext(ctx, "failed to release lock", "key", key, "unlock_ok", ok, "error", err)
		}
	}()

	return fn(ctx)
}

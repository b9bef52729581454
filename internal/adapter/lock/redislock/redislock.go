// Package redislock implements domain.AccountLock on Redis using the RedLock algorithm.
// Locks are shared by every service instance pointing at the same Redis.
package redislock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/simaogato/moneytransfer-backend/internal/domain"
)

const (
	keyPrefix    = "lock:account:"
	maxLockTries = 1000
)

var (
	// ErrLockNotHeld is returned when releasing an account this process did not lock, or whose lock expired
	ErrLockNotHeld = errors.New("account lock was not held or already expired")
	// ErrNilClient is returned when no redis client is given
	ErrNilClient = errors.New("redis client is nil")
)

// Options configures lock behaviour
type Options struct {
	// Expiry is how long a lock is held before Redis drops it
	Expiry time.Duration
	// Tries is the number of acquisition attempts before giving up
	Tries int
	// RetryDelay is the delay between attempts
	RetryDelay time.Duration
	// DriftFactor accounts for clock drift between nodes
	DriftFactor float64
}

// DefaultOptions returns defaults suited to a transfer, which completes well within a second
func DefaultOptions() Options {
	return Options{
		Expiry:      10 * time.Second,
		Tries:       32,
		RetryDelay:  50 * time.Millisecond,
		DriftFactor: 0.01,
	}
}

// Validate checks the option ranges
func (o Options) Validate() error {
	if o.Expiry <= 0 {
		return errors.New("lock expiry must be greater than 0")
	}
	if o.Tries < 1 {
		return errors.New("lock tries must be at least 1")
	}
	if o.Tries > maxLockTries {
		return fmt.Errorf("lock tries exceeds maximum of %d", maxLockTries)
	}
	if o.RetryDelay < 0 {
		return errors.New("lock retry delay cannot be negative")
	}
	if o.DriftFactor < 0 || o.DriftFactor >= 1 {
		return errors.New("lock drift factor must be between 0 (inclusive) and 1 (exclusive)")
	}
	return nil
}

// AccountLock locks accounts through redsync.
// The mutexes acquired by this process are kept so they can be released by account ID.
type AccountLock struct {
	rs     *redsync.Redsync
	opts   Options
	logger *zap.Logger

	mu   sync.Mutex
	held map[domain.AccountID]*redsync.Mutex
}

var _ domain.AccountLock = (*AccountLock)(nil)

// NewAccountLock creates a Redis backed AccountLock
func NewAccountLock(client redis.UniversalClient, opts Options, logger *zap.Logger) (*AccountLock, error) {
	if client == nil {
		return nil, ErrNilClient
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &AccountLock{
		rs:     redsync.New(goredis.NewPool(client)),
		opts:   opts,
		logger: logger,
		held:   make(map[domain.AccountID]*redsync.Mutex),
	}, nil
}

// LockAccount acquires the account lock, retrying up to Options.Tries times
func (l *AccountLock) LockAccount(ctx context.Context, accountID domain.AccountID) error {
	key := keyPrefix + accountID.String()

	mutex := l.rs.NewMutex(key,
		redsync.WithExpiry(l.opts.Expiry),
		redsync.WithTries(l.opts.Tries),
		redsync.WithRetryDelay(l.opts.RetryDelay),
		redsync.WithDriftFactor(l.opts.DriftFactor),
	)

	if err := mutex.LockContext(ctx); err != nil {
		return fmt.Errorf("failed to acquire lock %s: %w", key, err)
	}

	l.mu.Lock()
	l.held[accountID] = mutex
	l.mu.Unlock()

	l.logger.Debug("account locked", zap.String("lock_key", key))
	return nil
}

// ReleaseAccount releases a lock acquired by this process
func (l *AccountLock) ReleaseAccount(ctx context.Context, accountID domain.AccountID) error {
	l.mu.Lock()
	mutex, ok := l.held[accountID]
	delete(l.held, accountID)
	l.mu.Unlock()

	if !ok {
		return fmt.Errorf("account %s: %w", accountID, ErrLockNotHeld)
	}

	released, err := mutex.UnlockContext(ctx)
	if err != nil {
		return fmt.Errorf("account %s: %w: %v", accountID, ErrLockNotHeld, err)
	}
	if !released {
		return fmt.Errorf("account %s: %w", accountID, ErrLockNotHeld)
	}

	l.logger.Debug("account released", zap.String("lock_key", mutex.Name()))
	return nil
}

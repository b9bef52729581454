// Package memlock implements domain.AccountLock inside a single process.
package memlock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/simaogato/moneytransfer-backend/internal/domain"
)

// ErrLockNotHeld is returned when releasing an account that is not locked
var ErrLockNotHeld = errors.New("account lock was not held")

type entry struct {
	ch   chan struct{}
	refs int // holder + waiters
}

// AccountLock is a per-account mutex table. Entries are dropped once nobody holds or waits for them.
type AccountLock struct {
	mu      sync.Mutex
	entries map[domain.AccountID]*entry

	// AcquireTimeout bounds how long LockAccount waits. Zero means wait until ctx is done.
	AcquireTimeout time.Duration
}

// NewAccountLock creates a new in-process AccountLock
func NewAccountLock(acquireTimeout time.Duration) *AccountLock {
	return &AccountLock{
		entries:        make(map[domain.AccountID]*entry),
		AcquireTimeout: acquireTimeout,
	}
}

var _ domain.AccountLock = (*AccountLock)(nil)

// LockAccount blocks until the account lock is acquired, ctx is done or the timeout elapses
func (l *AccountLock) LockAccount(ctx context.Context, accountID domain.AccountID) error {
	if l.AcquireTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.AcquireTimeout)
		defer cancel()
	}

	l.mu.Lock()
	e, ok := l.entries[accountID]
	if !ok {
		e = &entry{ch: make(chan struct{}, 1)}
		l.entries[accountID] = e
	}
	e.refs++
	l.mu.Unlock()

	select {
	case e.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		l.mu.Lock()
		l.unref(accountID, e)
		l.mu.Unlock()
		return fmt.Errorf("failed to lock account %s: %w", accountID, ctx.Err())
	}
}

// ReleaseAccount releases the account lock
func (l *AccountLock) ReleaseAccount(_ context.Context, accountID domain.AccountID) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[accountID]
	if !ok {
		return fmt.Errorf("account %s: %w", accountID, ErrLockNotHeld)
	}

	select {
	case <-e.ch:
	default:
		return fmt.Errorf("account %s: %w", accountID, ErrLockNotHeld)
	}

	l.unref(accountID, e)
	return nil
}

// unref must be called with l.mu held
func (l *AccountLock) unref(accountID domain.AccountID, e *entry) {
	e.refs--
	if e.refs == 0 {
		delete(l.entries, accountID)
	}
}

// size returns the number of live entries
func (l *AccountLock) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

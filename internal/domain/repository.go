package domain

import (
	"context"
	"time"
)

// LoadAccountPort loads an account for one operation
type LoadAccountPort interface {
	// LoadAccount returns the account with its balance as of baselineDate and
	// the activities recorded after it. Returns an error wrapping
	// ErrAccountNotFound if the account does not exist.
	LoadAccount(ctx context.Context, accountID AccountID, baselineDate time.Time) (*Account, error)
}

// UpdateAccountStatePort persists the state changes of an account
type UpdateAccountStatePort interface {
	// UpdateActivities stores the activities of the account that have no ID yet
	UpdateActivities(ctx context.Context, account *Account) error
}

// AccountLock provides mutual exclusion keyed by account identity.
// Implementations may block or fail fast; the lock is not reentrant.
type AccountLock interface {
	// LockAccount acquires the lock of the given account
	LockAccount(ctx context.Context, accountID AccountID) error

	// ReleaseAccount releases a lock previously acquired with LockAccount
	ReleaseAccount(ctx context.Context, accountID AccountID) error
}

// AccountRepository creates accounts (used for bootstrap seeding)
type AccountRepository interface {
	// Exists reports whether the account is known
	Exists(ctx context.Context, accountID AccountID) (bool, error)

	// Create registers a new account with no activities
	Create(ctx context.Context, accountID AccountID) error
}

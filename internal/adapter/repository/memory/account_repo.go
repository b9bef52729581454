// Package memory keeps accounts and activities in process memory.
// It backs the server when no database is configured and the end-to-end tests of the transfer engine.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/simaogato/moneytransfer-backend/internal/domain"
)

// AccountStore implements LoadAccountPort, UpdateAccountStatePort and AccountRepository
type AccountStore struct {
	mu         sync.RWMutex
	accounts   map[domain.AccountID]struct{}
	activities []domain.Activity

	depositGuard domain.DepositGuard
}

var (
	_ domain.LoadAccountPort        = (*AccountStore)(nil)
	_ domain.UpdateAccountStatePort = (*AccountStore)(nil)
	_ domain.AccountRepository      = (*AccountStore)(nil)
)

// NewAccountStore creates an empty store. depositGuard, if not nil, is installed on every loaded account.
func NewAccountStore(depositGuard domain.DepositGuard) *AccountStore {
	return &AccountStore{
		accounts:     make(map[domain.AccountID]struct{}),
		depositGuard: depositGuard,
	}
}

// Exists reports whether the account is known
func (s *AccountStore) Exists(_ context.Context, accountID domain.AccountID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.accounts[accountID]
	return ok, nil
}

// Create registers a new account
func (s *AccountStore) Create(_ context.Context, accountID domain.AccountID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[accountID]; ok {
		return fmt.Errorf("account %s already exists", accountID)
	}
	s.accounts[accountID] = struct{}{}
	return nil
}

// LoadAccount folds the activities before baselineDate into the baseline balance and
// returns the later ones as the activity window
func (s *AccountStore) LoadAccount(_ context.Context, accountID domain.AccountID, baselineDate time.Time) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.accounts[accountID]; !ok {
		return nil, fmt.Errorf("account %s: %w", accountID, domain.ErrAccountNotFound)
	}

	baseline := domain.ZeroMoney
	window := domain.NewActivityWindow()

	for _, a := range s.activities {
		if a.OwnerAccountID != accountID {
			continue
		}
		if a.Timestamp.Before(baselineDate) {
			if a.TargetAccountID == accountID {
				baseline = baseline.Add(a.Money)
			}
			if a.SourceAccountID == accountID {
				baseline = baseline.Subtract(a.Money)
			}
			continue
		}
		window.AddActivity(a)
	}

	var opts []domain.AccountOption
	if s.depositGuard != nil {
		opts = append(opts, domain.WithDepositGuard(s.depositGuard))
	}

	return domain.NewAccount(accountID, baseline, window, opts...), nil
}

// UpdateActivities stores the new activities of the account and assigns their IDs
func (s *AccountStore) UpdateActivities(_ context.Context, account *domain.Account) error {
	if _, ok := account.ID(); !ok {
		return fmt.Errorf("cannot persist an account without ID: %w", domain.ErrPrecondition)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range account.ActivityWindow().NewActivities() {
		id := uuid.New()
		a.ID = &id
		s.activities = append(s.activities, a)
	}
	return nil
}

// ActivityCount returns the number of stored activities
func (s *AccountStore) ActivityCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.activities)
}

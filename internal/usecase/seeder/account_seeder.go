package seeder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/simaogato/moneytransfer-backend/internal/domain"
)

// SystemFundingAccountID is the fixed account opening balances are drawn from.
// Opening deposits are recorded on the funded account only, so its own history stays empty.
var SystemFundingAccountID = domain.AccountID(uuid.MustParse("00000000-0000-0000-0000-000000000001"))

// SeedAccount describes a bootstrap account
type SeedAccount struct {
	ID             domain.AccountID
	OpeningBalance domain.Money
}

// AccountSeeder makes sure bootstrap accounts exist
type AccountSeeder struct {
	repo   domain.AccountRepository
	load   domain.LoadAccountPort
	update domain.UpdateAccountStatePort
	lock   domain.AccountLock
	logger *zap.Logger
}

// NewAccountSeeder creates a new AccountSeeder instance
func NewAccountSeeder(
	repo domain.AccountRepository,
	load domain.LoadAccountPort,
	update domain.UpdateAccountStatePort,
	lock domain.AccountLock,
	logger *zap.Logger,
) *AccountSeeder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AccountSeeder{
		repo:   repo,
		load:   load,
		update: update,
		lock:   lock,
		logger: logger,
	}
}

// Seed creates the system funding account and every missing account in accounts.
// An account with a positive opening balance and no history yet receives one
// deposit from the system funding account. Accounts that already have activities
// are left untouched, so Seed is safe to run on every start and picks up an
// opening deposit that an interrupted earlier run did not record.
func (s *AccountSeeder) Seed(ctx context.Context, accounts []SeedAccount) error {
	if err := s.ensure(ctx, SystemFundingAccountID); err != nil {
		return err
	}

	for _, seed := range accounts {
		if seed.ID.IsZero() {
			return fmt.Errorf("seed account: %w", domain.ErrSourceAccountIDEmpty)
		}
		if seed.OpeningBalance.IsNegative() {
			return fmt.Errorf("seed account %s: opening balance must not be negative", seed.ID)
		}

		if err := s.ensure(ctx, seed.ID); err != nil {
			return err
		}
		if !seed.OpeningBalance.IsPositive() {
			continue
		}

		if err := s.fund(ctx, seed); err != nil {
			return fmt.Errorf("seed account %s: %w", seed.ID, err)
		}
	}

	return nil
}

// fund records the opening deposit while holding the account lock, unless the account already has history
func (s *AccountSeeder) fund(ctx context.Context, seed SeedAccount) error {
	if err := s.lock.LockAccount(ctx, seed.ID); err != nil {
		return fmt.Errorf("failed to lock account: %w", err)
	}
	defer func() {
		if releaseErr := s.lock.ReleaseAccount(context.WithoutCancel(ctx), seed.ID); releaseErr != nil {
			s.logger.Error("failed to release account lock", zap.Stringer("account_id", seed.ID), zap.Error(releaseErr))
		}
	}()

	// A zero baseline date puts the whole history into the activity window
	account, err := s.load.LoadAccount(ctx, seed.ID, time.Time{})
	if err != nil {
		return fmt.Errorf("failed to load account: %w", err)
	}
	if len(account.ActivityWindow().Activities()) > 0 {
		return nil
	}

	if !account.Deposit(seed.OpeningBalance, SystemFundingAccountID) {
		return errors.New("opening deposit rejected")
	}
	if err := s.update.UpdateActivities(ctx, account); err != nil {
		return fmt.Errorf("failed to record opening deposit: %w", err)
	}

	s.logger.Info("seeded account",
		zap.Stringer("account_id", seed.ID),
		zap.Stringer("opening_balance", seed.OpeningBalance),
	)
	return nil
}

// ensure creates the account if it does not exist yet
func (s *AccountSeeder) ensure(ctx context.Context, id domain.AccountID) error {
	exists, err := s.repo.Exists(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to check account %s: %w", id, err)
	}
	if exists {
		return nil
	}

	if err := s.repo.Create(ctx, id); err != nil {
		return fmt.Errorf("failed to create account %s: %w", id, err)
	}
	return nil
}

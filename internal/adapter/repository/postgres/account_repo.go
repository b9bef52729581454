package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/simaogato/moneytransfer-backend/internal/domain"
)

// AccountRepository implements LoadAccountPort, UpdateAccountStatePort and AccountRepository on PostgreSQL
type AccountRepository struct {
	db           *DB
	depositGuard domain.DepositGuard
}

var (
	_ domain.LoadAccountPort        = (*AccountRepository)(nil)
	_ domain.UpdateAccountStatePort = (*AccountRepository)(nil)
	_ domain.AccountRepository      = (*AccountRepository)(nil)
)

// NewAccountRepository creates a new account repository.
// depositGuard, if not nil, is installed on every loaded account.
func NewAccountRepository(db *DB, depositGuard domain.DepositGuard) *AccountRepository {
	return &AccountRepository{db: db, depositGuard: depositGuard}
}

// Exists reports whether the account row exists
func (r *AccountRepository) Exists(ctx context.Context, accountID domain.AccountID) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM accounts WHERE id = $1)`, accountID.UUID()).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check account existence: %w", err)
	}
	return exists, nil
}

// Create inserts a new account row
func (r *AccountRepository) Create(ctx context.Context, accountID domain.AccountID) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO accounts (id) VALUES ($1)`, accountID.UUID())
	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

// LoadAccount reads the account as of baselineDate: activities before it are summed
// into the baseline balance, later ones form the activity window
func (r *AccountRepository) LoadAccount(ctx context.Context, accountID domain.AccountID, baselineDate time.Time) (*domain.Account, error) {
	exists, err := r.Exists(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("account %s: %w", accountID, domain.ErrAccountNotFound)
	}

	baseline, err := r.baselineBalance(ctx, accountID, baselineDate)
	if err != nil {
		return nil, err
	}

	window, err := r.activityWindow(ctx, accountID, baselineDate)
	if err != nil {
		return nil, err
	}

	var opts []domain.AccountOption
	if r.depositGuard != nil {
		opts = append(opts, domain.WithDepositGuard(r.depositGuard))
	}

	return domain.NewAccount(accountID, baseline, window, opts...), nil
}

func (r *AccountRepository) baselineBalance(ctx context.Context, accountID domain.AccountID, baselineDate time.Time) (domain.Money, error) {
	query := `
		SELECT (
			COALESCE(SUM(CASE WHEN target_account_id = $1 THEN amount ELSE 0 END), 0) -
			COALESCE(SUM(CASE WHEN source_account_id = $1 THEN amount ELSE 0 END), 0)
		)::TEXT
		FROM activities
		WHERE owner_account_id = $1 AND timestamp < $2
	`

	var balanceStr string
	if err := r.db.QueryRowContext(ctx, query, accountID.UUID(), baselineDate).Scan(&balanceStr); err != nil {
		return domain.ZeroMoney, fmt.Errorf("failed to sum baseline balance: %w", err)
	}

	balance, err := domain.NewMoneyFromString(balanceStr)
	if err != nil {
		return domain.ZeroMoney, fmt.Errorf("failed to parse baseline balance: %w", err)
	}
	return balance, nil
}

func (r *AccountRepository) activityWindow(ctx context.Context, accountID domain.AccountID, since time.Time) (*domain.ActivityWindow, error) {
	query := `
		SELECT id, source_account_id, target_account_id, timestamp, amount::TEXT
		FROM activities
		WHERE owner_account_id = $1 AND timestamp >= $2
		ORDER BY timestamp, id
	`

	rows, err := r.db.QueryContext(ctx, query, accountID.UUID(), since)
	if err != nil {
		return nil, fmt.Errorf("failed to query activities: %w", err)
	}
	defer rows.Close()

	window := domain.NewActivityWindow()
	for rows.Next() {
		var (
			id, sourceID, targetID uuid.UUID
			timestamp              time.Time
			amountStr              string
		)
		if err := rows.Scan(&id, &sourceID, &targetID, &timestamp, &amountStr); err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}

		amount, err := domain.NewMoneyFromString(amountStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse activity amount: %w", err)
		}

		window.AddActivity(domain.Activity{
			ID:              &id,
			OwnerAccountID:  accountID,
			SourceAccountID: domain.AccountID(sourceID),
			TargetAccountID: domain.AccountID(targetID),
			Timestamp:       timestamp,
			Money:           amount,
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating activities: %w", err)
	}

	return window, nil
}

// UpdateActivities inserts the account's new activities in a single database transaction
func (r *AccountRepository) UpdateActivities(ctx context.Context, account *domain.Account) error {
	if _, ok := account.ID(); !ok {
		return fmt.Errorf("cannot persist an account without ID: %w", domain.ErrPrecondition)
	}

	newActivities := account.ActivityWindow().NewActivities()
	if len(newActivities) == 0 {
		return nil
	}

	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer dbTx.Rollback()

	insertQuery := `
		INSERT INTO activities (id, owner_account_id, source_account_id, target_account_id, timestamp, amount)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	for _, a := range newActivities {
		_, err = dbTx.ExecContext(ctx, insertQuery,
			uuid.New(),
			a.OwnerAccountID.UUID(),
			a.SourceAccountID.UUID(),
			a.TargetAccountID.UUID(),
			a.Timestamp,
			a.Money.String(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert activity: %w", err)
		}
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

package domain

import (
	"time"

	"github.com/google/uuid"
)

// AccountID identifies an account. The zero value means "no identity".
type AccountID uuid.UUID

// NewAccountID generates a random account identity
func NewAccountID() AccountID {
	return AccountID(uuid.New())
}

// ParseAccountID parses the canonical string form of an account identity
func ParseAccountID(s string) (AccountID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return AccountID{}, err
	}
	return AccountID(id), nil
}

// IsZero reports whether the identity is absent
func (id AccountID) IsZero() bool {
	return uuid.UUID(id) == uuid.Nil
}

// UUID returns the underlying uuid
func (id AccountID) UUID() uuid.UUID {
	return uuid.UUID(id)
}

func (id AccountID) String() string {
	return uuid.UUID(id).String()
}

// DepositGuard decides whether a deposit may be applied to an account.
// It is consulted after the identity check and before the activity is recorded.
type DepositGuard func(account *Account, amount Money) bool

// MaxBalanceGuard rejects deposits that would raise the balance above limit
func MaxBalanceGuard(limit Money) DepositGuard {
	return func(account *Account, amount Money) bool {
		return !account.CalculateBalance().Add(amount).IsGreaterThan(limit)
	}
}

// AccountOption customises an Account at construction time
type AccountOption func(*Account)

// WithDepositGuard installs a deposit policy on the account
func WithDepositGuard(guard DepositGuard) AccountOption {
	return func(a *Account) {
		a.depositGuard = guard
	}
}

// WithClock overrides the clock used to timestamp new activities
func WithClock(now func() time.Time) AccountOption {
	return func(a *Account) {
		a.now = now
	}
}

// Account holds a baseline balance and the window of activities observed since that baseline.
// An Account is built by the loading adapter for a single operation and is not safe for
// concurrent use; cross-operation exclusion is the AccountLock's job.
type Account struct {
	id              *AccountID
	baselineBalance Money
	activityWindow  *ActivityWindow
	depositGuard    DepositGuard
	now             func() time.Time
}

// NewAccount reconstructs an account with an identity
func NewAccount(id AccountID, baselineBalance Money, window *ActivityWindow, opts ...AccountOption) *Account {
	return newAccount(&id, baselineBalance, window, opts)
}

// NewAccountWithoutID creates an account that has not been persisted yet
func NewAccountWithoutID(baselineBalance Money, window *ActivityWindow, opts ...AccountOption) *Account {
	return newAccount(nil, baselineBalance, window, opts)
}

func newAccount(id *AccountID, baselineBalance Money, window *ActivityWindow, opts []AccountOption) *Account {
	if window == nil {
		window = NewActivityWindow()
	}
	if id != nil && id.IsZero() {
		id = nil
	}

	a := &Account{
		id:              id,
		baselineBalance: baselineBalance,
		activityWindow:  window,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// ID returns the account identity, if any
func (a *Account) ID() (AccountID, bool) {
	if a.id == nil {
		return AccountID{}, false
	}
	return *a.id, true
}

// BaselineBalance returns the balance as of the snapshot the account was loaded from
func (a *Account) BaselineBalance() Money {
	return a.baselineBalance
}

// ActivityWindow returns the activities observed since the baseline
func (a *Account) ActivityWindow() *ActivityWindow {
	return a.activityWindow
}

// CalculateBalance returns baseline + deposits - withdrawals of the window
func (a *Account) CalculateBalance() Money {
	id, ok := a.ID()
	if !ok {
		return a.baselineBalance
	}
	return a.baselineBalance.Add(a.activityWindow.CalculateBalance(id))
}

// Withdraw records a withdrawal towards targetAccountID.
// Returns false without any change if the balance would become negative.
func (a *Account) Withdraw(amount Money, targetAccountID AccountID) bool {
	id, ok := a.ID()
	if !ok {
		return false
	}

	if !a.mayWithdraw(amount) {
		return false
	}

	a.activityWindow.AddActivity(Activity{
		OwnerAccountID:  id,
		SourceAccountID: id,
		TargetAccountID: targetAccountID,
		Timestamp:       a.now(),
		Money:           amount,
	})
	return true
}

func (a *Account) mayWithdraw(amount Money) bool {
	return a.CalculateBalance().Subtract(amount).IsPositiveOrZero()
}

// Deposit records a deposit coming from sourceAccountID.
// Returns false only if the account has no identity or the deposit guard vetoes it.
func (a *Account) Deposit(amount Money, sourceAccountID AccountID) bool {
	id, ok := a.ID()
	if !ok {
		return false
	}

	if a.depositGuard != nil && !a.depositGuard(a, amount) {
		return false
	}

	a.activityWindow.AddActivity(Activity{
		OwnerAccountID:  id,
		SourceAccountID: sourceAccountID,
		TargetAccountID: id,
		Timestamp:       a.now(),
		Money:           amount,
	})
	return true
}

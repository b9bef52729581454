package transfer

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/simaogato/moneytransfer-backend/internal/domain"
)

// DefaultBaselineWindow is how far back the activity window of a loaded account reaches
const DefaultBaselineWindow = 10 * 24 * time.Hour

const tracerName = "github.com/simaogato/moneytransfer-backend/internal/usecase/transfer"

// SendMoneyService moves money between two accounts.
// It holds no mutable state, so one instance can serve concurrent transfers.
type SendMoneyService struct {
	LoadAccountPort        domain.LoadAccountPort
	AccountLock            domain.AccountLock
	UpdateAccountStatePort domain.UpdateAccountStatePort
	Policy                 domain.TransferPolicy

	// BaselineWindow is subtracted from the current time to obtain the baseline date of loaded accounts
	BaselineWindow time.Duration
	Logger         *zap.Logger
	Tracer         trace.Tracer
	Now            func() time.Time
}

// NewSendMoneyService creates a new SendMoneyService instance
func NewSendMoneyService(
	loadAccountPort domain.LoadAccountPort,
	accountLock domain.AccountLock,
	updateAccountStatePort domain.UpdateAccountStatePort,
	policy domain.TransferPolicy,
	logger *zap.Logger,
) *SendMoneyService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SendMoneyService{
		LoadAccountPort:        loadAccountPort,
		AccountLock:            accountLock,
		UpdateAccountStatePort: updateAccountStatePort,
		Policy:                 policy,
		BaselineWindow:         DefaultBaselineWindow,
		Logger:                 logger,
		Tracer:                 otel.Tracer(tracerName),
		Now:                    time.Now,
	}
}

// SendMoney transfers req.Amount from the source to the target account.
//
// The boolean reports the business outcome: false means the transfer was not
// applied (insufficient funds, rejected deposit, lock not obtained) and nothing
// was persisted. A non-nil error is either a precondition violation
// (domain.IsPrecondition) or an infrastructure failure from a collaborator.
//
// Logic:
//  1. Check the amount against the transfer policy
//  2. Check both identities are present and distinct
//  3. Load source and target as of now - BaselineWindow
//  4. Lock source, reload it, withdraw
//  5. Lock target, reload it, deposit
//  6. Persist source, then target
//  7. Release target, then source (on every path, only what was acquired)
func (s *SendMoneyService) SendMoney(ctx context.Context, req domain.TransferRequest) (ok bool, err error) {
	ctx, span := s.Tracer.Start(ctx, "transfer.SendMoney", trace.WithAttributes(
		attribute.String("transfer.source_account_id", req.SourceAccountID.String()),
		attribute.String("transfer.target_account_id", req.TargetAccountID.String()),
		attribute.String("transfer.amount", req.Amount.String()),
	))
	defer func() {
		span.SetAttributes(attribute.Bool("transfer.success", ok))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	logger := s.Logger.With(
		zap.Stringer("source_account_id", req.SourceAccountID),
		zap.Stringer("target_account_id", req.TargetAccountID),
		zap.Stringer("amount", req.Amount),
	)

	// 1. Threshold
	if err := s.Policy.CheckThreshold(req.Amount); err != nil {
		return false, err
	}

	// 2. Identities and amount
	if err := req.Validate(); err != nil {
		return false, err
	}

	// 3. Load both accounts
	baselineDate := s.Now().Add(-s.BaselineWindow)

	sourceAccount, err := s.LoadAccountPort.LoadAccount(ctx, req.SourceAccountID, baselineDate)
	if err != nil {
		return false, fmt.Errorf("failed to load source account: %w", err)
	}

	targetAccount, err := s.LoadAccountPort.LoadAccount(ctx, req.TargetAccountID, baselineDate)
	if err != nil {
		return false, fmt.Errorf("failed to load target account: %w", err)
	}

	sourceAccountID, found := sourceAccount.ID()
	if !found {
		return false, domain.ErrSourceAccountIDEmpty
	}

	targetAccountID, found := targetAccount.ID()
	if !found {
		return false, domain.ErrTargetAccountIDEmpty
	}

	// The lock is not reentrant
	if sourceAccountID == targetAccountID {
		return false, domain.ErrSameAccount
	}

	locks := newHeldLocks(s.AccountLock, logger)
	defer locks.releaseAll(ctx)

	// 4. Source leg
	if !locks.acquire(ctx, sourceAccountID) {
		return false, nil
	}

	if sourceAccount, err = s.reload(ctx, sourceAccountID, baselineDate); err != nil {
		return false, fmt.Errorf("failed to reload source account: %w", err)
	}

	if !sourceAccount.Withdraw(req.Amount, targetAccountID) {
		logger.Info("withdrawal rejected", zap.Stringer("balance", sourceAccount.CalculateBalance()))
		return false, nil
	}

	// 5. Target leg
	if !locks.acquire(ctx, targetAccountID) {
		return false, nil
	}

	if targetAccount, err = s.reload(ctx, targetAccountID, baselineDate); err != nil {
		return false, fmt.Errorf("failed to reload target account: %w", err)
	}

	if !targetAccount.Deposit(req.Amount, sourceAccountID) {
		logger.Info("deposit rejected")
		return false, nil
	}

	// 6. Persist both accounts
	if err := s.UpdateAccountStatePort.UpdateActivities(ctx, sourceAccount); err != nil {
		logger.Error("failed to persist source account", zap.Error(err))
		return false, fmt.Errorf("failed to update source account: %w", err)
	}

	if err := s.UpdateAccountStatePort.UpdateActivities(ctx, targetAccount); err != nil {
		logger.Error("failed to persist target account", zap.Error(err))
		return false, fmt.Errorf("failed to update target account: %w", err)
	}

	logger.Debug("transfer completed")

	return true, nil
}

// reload reads the account again once its lock is held, so that the leg is decided on
// the state no other transfer can change until the lock is released
func (s *SendMoneyService) reload(ctx context.Context, accountID domain.AccountID, baselineDate time.Time) (*domain.Account, error) {
	account, err := s.LoadAccountPort.LoadAccount(ctx, accountID, baselineDate)
	if err != nil {
		return nil, err
	}
	if id, ok := account.ID(); !ok || id != accountID {
		return nil, fmt.Errorf("loaded account does not match %s: %w", accountID, domain.ErrPrecondition)
	}
	return account, nil
}

// heldLocks tracks the locks acquired by one transfer so that each is released exactly once
type heldLocks struct {
	lock   domain.AccountLock
	logger *zap.Logger
	held   []domain.AccountID
}

func newHeldLocks(lock domain.AccountLock, logger *zap.Logger) *heldLocks {
	return &heldLocks{lock: lock, logger: logger}
}

// acquire locks the account and remembers it. Returns false if the lock could not be obtained.
func (h *heldLocks) acquire(ctx context.Context, accountID domain.AccountID) bool {
	if err := h.lock.LockAccount(ctx, accountID); err != nil {
		h.logger.Warn("failed to lock account", zap.Stringer("account_id", accountID), zap.Error(err))
		return false
	}
	h.held = append(h.held, accountID)
	return true
}

// releaseAll releases held locks in reverse acquisition order
func (h *heldLocks) releaseAll(ctx context.Context) {
	// Release even if the request context is already cancelled.
	ctx = context.WithoutCancel(ctx)

	for i := len(h.held) - 1; i >= 0; i-- {
		accountID := h.held[i]
		if err := h.lock.ReleaseAccount(ctx, accountID); err != nil {
			h.logger.Error("failed to release account lock", zap.Stringer("account_id", accountID), zap.Error(err))
		}
	}
	h.held = nil
}

package balance

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/simaogato/moneytransfer-backend/internal/domain"
)

// GetAccountBalanceService answers balance queries
type GetAccountBalanceService struct {
	LoadAccountPort domain.LoadAccountPort
	Tracer          trace.Tracer
	Now             func() time.Time
}

// NewGetAccountBalanceService creates a new GetAccountBalanceService instance
func NewGetAccountBalanceService(loadAccountPort domain.LoadAccountPort) *GetAccountBalanceService {
	return &GetAccountBalanceService{
		LoadAccountPort: loadAccountPort,
		Tracer:          otel.Tracer("github.com/simaogato/moneytransfer-backend/internal/usecase/balance"),
		Now:             time.Now,
	}
}

// GetAccountBalance returns the current balance of the account.
// The account is loaded with the baseline at the current time, so the whole
// history is folded into the baseline balance.
func (s *GetAccountBalanceService) GetAccountBalance(ctx context.Context, accountID domain.AccountID) (domain.Money, error) {
	ctx, span := s.Tracer.Start(ctx, "balance.GetAccountBalance", trace.WithAttributes(
		attribute.String("account_id", accountID.String()),
	))
	defer span.End()

	if accountID.IsZero() {
		return domain.ZeroMoney, fmt.Errorf("invalid account ID: %w", domain.ErrPrecondition)
	}

	account, err := s.LoadAccountPort.LoadAccount(ctx, accountID, s.Now())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return domain.ZeroMoney, fmt.Errorf("failed to load account: %w", err)
	}

	return account.CalculateBalance(), nil
}

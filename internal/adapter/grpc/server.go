package grpc

import (
	"context"
	"errors"
	"strconv"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/simaogato/moneytransfer-backend/internal/domain"
)

// MoneySender is the transfer use case as seen by the transport
type MoneySender interface {
	SendMoney(ctx context.Context, req domain.TransferRequest) (bool, error)
}

// BalanceGetter is the balance query use case as seen by the transport
type BalanceGetter interface {
	GetAccountBalance(ctx context.Context, accountID domain.AccountID) (domain.Money, error)
}

// Server implements the TransferService gRPC server
type Server struct {
	SendMoneyService  MoneySender
	GetBalanceService BalanceGetter
}

var _ TransferServiceServer = (*Server)(nil)

// NewServer creates a new gRPC server instance
func NewServer(sendMoneyService MoneySender, getBalanceService BalanceGetter) *Server {
	return &Server{
		SendMoneyService:  sendMoneyService,
		GetBalanceService: getBalanceService,
	}
}

// SendMoney handles the SendMoney RPC
func (s *Server) SendMoney(ctx context.Context, req *structpb.Struct) (*wrapperspb.BoolValue, error) {
	fields := req.GetFields()

	sourceAccountID, err := parseOptionalAccountID(fields["source_account_id"].GetStringValue())
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid source_account_id format: %v", err)
	}

	targetAccountID, err := parseOptionalAccountID(fields["target_account_id"].GetStringValue())
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid target_account_id format: %v", err)
	}

	amount, err := parseAmount(fields["amount"])
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid amount format: %v", err)
	}

	// Validation is left to the use case, which checks the threshold first
	ok, err := s.SendMoneyService.SendMoney(ctx, domain.TransferRequest{
		SourceAccountID: sourceAccountID,
		TargetAccountID: targetAccountID,
		Amount:          amount,
	})
	if err != nil {
		return nil, mapError(err)
	}

	return wrapperspb.Bool(ok), nil
}

// GetAccountBalance handles the GetAccountBalance RPC
func (s *Server) GetAccountBalance(ctx context.Context, req *wrapperspb.StringValue) (*wrapperspb.StringValue, error) {
	accountID, err := domain.ParseAccountID(req.GetValue())
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid account_id format: %v", err)
	}

	balance, err := s.GetBalanceService.GetAccountBalance(ctx, accountID)
	if err != nil {
		return nil, mapError(err)
	}

	return wrapperspb.String(balance.String()), nil
}

// parseOptionalAccountID maps an empty string to the zero ID, which the use case rejects
// with its own precondition error
func parseOptionalAccountID(raw string) (domain.AccountID, error) {
	if raw == "" {
		return domain.AccountID{}, nil
	}
	return domain.ParseAccountID(raw)
}

// parseAmount accepts the amount as a decimal string or as a whole JSON number
func parseAmount(v *structpb.Value) (domain.Money, error) {
	switch kind := v.GetKind().(type) {
	case *structpb.Value_StringValue:
		return domain.NewMoneyFromString(kind.StringValue)
	case *structpb.Value_NumberValue:
		return domain.NewMoneyFromString(strconv.FormatFloat(kind.NumberValue, 'f', -1, 64))
	default:
		return domain.ZeroMoney, errors.New("amount is required")
	}
}

// mapError converts domain errors to gRPC status errors
func mapError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case domain.IsPrecondition(err):
		return status.Errorf(codes.InvalidArgument, "%s", err.Error())
	case errors.Is(err, domain.ErrAccountNotFound):
		return status.Errorf(codes.NotFound, "%s", err.Error())
	case errors.Is(err, context.Canceled):
		return status.Errorf(codes.Canceled, "%s", err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Errorf(codes.DeadlineExceeded, "%s", err.Error())
	}

	// Default to Internal error for unknown errors
	return status.Errorf(codes.Internal, "%s", err.Error())
}

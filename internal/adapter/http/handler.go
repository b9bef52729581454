package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/simaogato/moneytransfer-backend/internal/domain"
)

// SendMoneyRequest is the body of POST /accounts/send.
// Missing account IDs are passed through so that the use case reports them.
type SendMoneyRequest struct {
	SourceAccountID string `json:"source_account_id" validate:"omitempty,uuid"`
	TargetAccountID string `json:"target_account_id" validate:"omitempty,uuid"`
	Amount          string `json:"amount" validate:"required,numeric"`
}

// SendMoneyResponse reports whether the transfer was applied
type SendMoneyResponse struct {
	Success bool `json:"success"`
}

// BalanceResponse is the body of GET /accounts/{accountID}/balance
type BalanceResponse struct {
	AccountID string `json:"account_id"`
	Balance   string `json:"balance"`
}

// SendMoney handles POST /accounts/send.
// 200 when the transfer was applied, 422 when it was rejected (insufficient funds, deposit refused, account busy).
func (h *Handler) SendMoney(w http.ResponseWriter, r *http.Request) {
	var body SendMoneyRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	if err := h.validate.Struct(body); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	req, err := body.toDomain()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ok, err := h.SendMoneyService.SendMoney(r.Context(), req)
	if err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			h.Logger.Error("send money failed", zap.Error(err))
		}
		writeError(w, status, err.Error())
		return
	}

	if !ok {
		writeJSON(w, http.StatusUnprocessableEntity, SendMoneyResponse{Success: false})
		return
	}

	writeJSON(w, http.StatusOK, SendMoneyResponse{Success: true})
}

// GetAccountBalance handles GET /accounts/{accountID}/balance
func (h *Handler) GetAccountBalance(w http.ResponseWriter, r *http.Request) {
	accountID, err := domain.ParseAccountID(chi.URLParam(r, "accountID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid account id")
		return
	}

	balance, err := h.GetBalanceService.GetAccountBalance(r.Context(), accountID)
	if err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			h.Logger.Error("get balance failed", zap.Error(err))
		}
		writeError(w, status, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, BalanceResponse{AccountID: accountID.String(), Balance: balance.String()})
}

func (b SendMoneyRequest) toDomain() (domain.TransferRequest, error) {
	var req domain.TransferRequest

	if b.SourceAccountID != "" {
		id, err := domain.ParseAccountID(b.SourceAccountID)
		if err != nil {
			return req, fmt.Errorf("invalid source_account_id: %w", err)
		}
		req.SourceAccountID = id
	}

	if b.TargetAccountID != "" {
		id, err := domain.ParseAccountID(b.TargetAccountID)
		if err != nil {
			return req, fmt.Errorf("invalid target_account_id: %w", err)
		}
		req.TargetAccountID = id
	}

	amount, err := domain.NewMoneyFromString(b.Amount)
	if err != nil {
		return req, fmt.Errorf("invalid amount: %w", err)
	}
	req.Amount = amount

	return req, nil
}

// validationMessage lists the failing fields as "field: tag"
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}

	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s: %s", fe.Field(), fe.Tag()))
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

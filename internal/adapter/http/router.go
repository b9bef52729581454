// Package http exposes the transfer and balance use cases as a JSON API.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

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

// Handler serves the account endpoints
type Handler struct {
	SendMoneyService  MoneySender
	GetBalanceService BalanceGetter
	Logger            *zap.Logger

	validate *validator.Validate
}

// NewHandler creates a new HTTP handler
func NewHandler(sendMoneyService MoneySender, getBalanceService BalanceGetter, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		SendMoneyService:  sendMoneyService,
		GetBalanceService: getBalanceService,
		Logger:            logger,
		validate:          validator.New(validator.WithRequiredStructEnabled()),
	}
}

// NewRouter mounts the endpoints. Everything under /accounts requires apiToken in the Authorization header.
//
//	GET  /healthz
//	POST /accounts/send
//	GET  /accounts/{accountID}/balance
func NewRouter(h *Handler, apiToken string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(h.Logger))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/accounts", func(r chi.Router) {
		r.Use(tokenAuth(apiToken))
		r.Post("/send", h.SendMoney)
		r.Get("/{accountID}/balance", h.GetAccountBalance)
	})

	return r
}

// tokenAuth rejects requests whose Authorization header does not carry the token,
// either bare or as a Bearer credential
func tokenAuth(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				writeError(w, http.StatusUnauthorized, "missing authorization header")
				return
			}
			if header != token && header != "Bearer "+token {
				writeError(w, http.StatusUnauthorized, "invalid token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			logger.Info("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// statusFor maps use case errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case domain.IsPrecondition(err):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrAccountNotFound):
		return http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

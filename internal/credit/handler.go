package credit

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/meridian-pos/meridian-pos/internal/platform/httpx"
	"github.com/meridian-pos/meridian-pos/internal/shared"
)

// Handler wires HTTP endpoints for customer credit.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs the credit handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers credit routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.openAccount)
	r.Get("/{id}", h.getAccount)
	r.Post("/{id}/add-credit", h.addCredit)
	r.Post("/{id}/use-credit", h.useCredit)
	r.Get("/{id}/payments", h.listPayments)
	r.Post("/{id}/payments", h.recordPayment)
}

type openAccountRequest struct {
	CustomerID  int64           `json:"customer_id"`
	CreditLimit decimal.Decimal `json:"credit_limit"`
}

type amountRequest struct {
	Amount *decimal.Decimal `json:"amount"`
}

type paymentRequest struct {
	Amount    *decimal.Decimal `json:"amount"`
	Reference string           `json:"reference_number"`
}

func (h *Handler) openAccount(w http.ResponseWriter, r *http.Request) {
	var req openAccountRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	account, err := h.service.OpenAccount(r.Context(), req.CustomerID, req.CreditLimit)
	if err != nil {
		h.respondCreditError(w, r, err, "open account")
		return
	}
	httpx.JSON(w, http.StatusCreated, account)
}

func (h *Handler) getAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := h.accountID(w, r)
	if !ok {
		return
	}
	account, err := h.service.GetAccount(r.Context(), id)
	if err != nil {
		h.respondCreditError(w, r, err, "get account")
		return
	}
	httpx.JSON(w, http.StatusOK, account)
}

func (h *Handler) addCredit(w http.ResponseWriter, r *http.Request) {
	id, ok := h.accountID(w, r)
	if !ok {
		return
	}
	var req amountRequest
	if err := httpx.DecodeJSON(r, &req); err != nil || req.Amount == nil {
		httpx.ActionError(w, "Amount is required")
		return
	}
	if _, err := h.service.AddCredit(r.Context(), id, *req.Amount); err != nil {
		if errors.Is(err, ErrInvalidAmount) {
			httpx.ActionError(w, "Amount is required")
			return
		}
		if errors.Is(err, ErrLimitExceeded) {
			httpx.ActionError(w, "Amount exceeds credit limit")
			return
		}
		h.respondCreditError(w, r, err, "add credit")
		return
	}
	httpx.Status(w, "credit added")
}

func (h *Handler) useCredit(w http.ResponseWriter, r *http.Request) {
	id, ok := h.accountID(w, r)
	if !ok {
		return
	}
	var req amountRequest
	if err := httpx.DecodeJSON(r, &req); err != nil || req.Amount == nil {
		httpx.ActionError(w, "Amount is required")
		return
	}
	result, err := h.service.UseCredit(r.Context(), id, *req.Amount)
	if err != nil {
		if errors.Is(err, ErrInvalidAmount) {
			httpx.ActionError(w, "Amount is required")
			return
		}
		h.respondCreditError(w, r, err, "use credit")
		return
	}
	if !result.Approved {
		httpx.ActionError(w, "Insufficient credit")
		return
	}
	httpx.Status(w, "credit used")
}

func (h *Handler) listPayments(w http.ResponseWriter, r *http.Request) {
	id, ok := h.accountID(w, r)
	if !ok {
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid limit")
			return
		}
		limit = parsed
	}
	payments, err := h.service.ListPayments(r.Context(), id, limit)
	if err != nil {
		h.respondCreditError(w, r, err, "list payments")
		return
	}
	httpx.JSON(w, http.StatusOK, payments)
}

func (h *Handler) recordPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := h.accountID(w, r)
	if !ok {
		return
	}
	var req paymentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil || req.Amount == nil {
		httpx.ActionError(w, "Amount is required")
		return
	}
	payment, err := h.service.RecordPayment(r.Context(), PaymentInput{
		AccountID:  id,
		Amount:     *req.Amount,
		Reference:  req.Reference,
		ReceivedBy: shared.ActorFromContext(r.Context()),
	})
	if err != nil {
		if errors.Is(err, ErrInvalidAmount) {
			httpx.ActionError(w, "Amount is required")
			return
		}
		h.respondCreditError(w, r, err, "record payment")
		return
	}
	httpx.JSON(w, http.StatusCreated, payment)
}

func (h *Handler) accountID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid account id")
		return 0, false
	}
	return id, true
}

func (h *Handler) respondCreditError(w http.ResponseWriter, r *http.Request, err error, op string) {
	switch {
	case errors.Is(err, ErrAccountNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrAccountExists):
		httpx.Problem(w, http.StatusConflict, "Duplicate", err.Error())
	case errors.Is(err, ErrInvalidAmount), errors.Is(err, ErrLimitExceeded):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error(op, slog.Any("error", err), slog.String("path", r.URL.Path))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

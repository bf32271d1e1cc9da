package sales

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-pos/meridian-pos/internal/credit"
	"github.com/meridian-pos/meridian-pos/internal/ledger"
	"github.com/meridian-pos/meridian-pos/internal/platform/httpx"
)

// Handler wires HTTP endpoints for till transactions and returns.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs the sales handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers sales routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/returns", h.listReturns)
	r.Post("/returns", h.createReturn)
	r.Get("/returns/{id}", h.getReturn)
	r.Delete("/returns/{id}", h.deleteReturn)
	r.Get("/{id}", h.get)
	r.Post("/{id}/complete", h.complete)
	r.Post("/{id}/cancel", h.cancel)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filter := TransactionFilter{Status: Status(r.URL.Query().Get("status"))}
	if v := r.URL.Query().Get("customer_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid customer_id")
			return
		}
		filter.CustomerID = id
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid limit")
			return
		}
		filter.Limit = limit
	}
	transactions, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.respondSalesError(w, r, err, "list transactions")
		return
	}
	httpx.JSON(w, http.StatusOK, transactions)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	transaction, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondSalesError(w, r, err, "get transaction")
		return
	}
	httpx.JSON(w, http.StatusOK, transaction)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var input TransactionInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	transaction, err := h.service.Create(r.Context(), input)
	if err != nil {
		h.respondSalesError(w, r, err, "create transaction")
		return
	}
	httpx.JSON(w, http.StatusCreated, transaction)
}

func (h *Handler) complete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	transaction, err := h.service.Complete(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrCreditDeclined) {
			httpx.ActionError(w, "Insufficient credit")
			return
		}
		h.respondSalesError(w, r, err, "complete transaction")
		return
	}
	httpx.JSON(w, http.StatusOK, transaction)
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if _, err := h.service.Cancel(r.Context(), id); err != nil {
		h.respondSalesError(w, r, err, "cancel transaction")
		return
	}
	httpx.Status(w, "transaction cancelled")
}

func (h *Handler) createReturn(w http.ResponseWriter, r *http.Request) {
	var ret Return
	if err := httpx.DecodeJSON(r, &ret); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	created, err := h.service.CreateReturn(r.Context(), ret)
	if err != nil {
		h.respondSalesError(w, r, err, "create return")
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) getReturn(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	ret, err := h.service.GetReturn(r.Context(), id)
	if err != nil {
		h.respondSalesError(w, r, err, "get return")
		return
	}
	httpx.JSON(w, http.StatusOK, ret)
}

func (h *Handler) listReturns(w http.ResponseWriter, r *http.Request) {
	var transactionID int64
	if v := r.URL.Query().Get("transaction_id"); v != "" {
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid transaction_id")
			return
		}
		transactionID = parsed
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
	returns, err := h.service.ListReturns(r.Context(), transactionID, limit)
	if err != nil {
		h.respondSalesError(w, r, err, "list returns")
		return
	}
	httpx.JSON(w, http.StatusOK, returns)
}

func (h *Handler) deleteReturn(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteReturn(r.Context(), id); err != nil {
		h.respondSalesError(w, r, err, "delete return")
		return
	}
	httpx.Status(w, "return deleted")
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid id")
		return 0, false
	}
	return id, true
}

func (h *Handler) respondSalesError(w http.ResponseWriter, r *http.Request, err error, op string) {
	switch {
	case errors.Is(err, ErrTransactionNotFound), errors.Is(err, ErrReturnNotFound), errors.Is(err, credit.ErrAccountNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrNoItems), errors.Is(err, ErrInvalidItem), errors.Is(err, ErrInvalidPayment), errors.Is(err, ErrCreditCustomer), errors.Is(err, ErrReturnNotCompleted):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrNotPending):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, ledger.ErrInsufficientStock):
		httpx.Problem(w, http.StatusConflict, "Insufficient Stock", err.Error())
	default:
		h.logger.Error(op, slog.Any("error", err), slog.String("path", r.URL.Path))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

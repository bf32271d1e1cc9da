package procurement

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-pos/meridian-pos/internal/ledger"
	"github.com/meridian-pos/meridian-pos/internal/platform/httpx"
)

// Handler wires HTTP endpoints for purchases.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs the procurement handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers procurement routes.
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
	filter := PurchaseFilter{Status: Status(r.URL.Query().Get("status"))}
	if v := r.URL.Query().Get("supplier_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid supplier_id")
			return
		}
		filter.SupplierID = id
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid limit")
			return
		}
		filter.Limit = limit
	}
	purchases, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.respondProcurementError(w, r, err, "list purchases")
		return
	}
	httpx.JSON(w, http.StatusOK, purchases)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	purchase, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondProcurementError(w, r, err, "get purchase")
		return
	}
	httpx.JSON(w, http.StatusOK, purchase)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var input PurchaseInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	purchase, err := h.service.Create(r.Context(), input)
	if err != nil {
		h.respondProcurementError(w, r, err, "create purchase")
		return
	}
	httpx.JSON(w, http.StatusCreated, purchase)
}

func (h *Handler) complete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	purchase, err := h.service.Complete(r.Context(), id)
	if err != nil {
		h.respondProcurementError(w, r, err, "complete purchase")
		return
	}
	httpx.JSON(w, http.StatusOK, purchase)
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if _, err := h.service.Cancel(r.Context(), id); err != nil {
		h.respondProcurementError(w, r, err, "cancel purchase")
		return
	}
	httpx.Status(w, "purchase cancelled")
}

func (h *Handler) createReturn(w http.ResponseWriter, r *http.Request) {
	var ret Return
	if err := httpx.DecodeJSON(r, &ret); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	created, err := h.service.CreateReturn(r.Context(), ret)
	if err != nil {
		h.respondProcurementError(w, r, err, "create return")
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
		h.respondProcurementError(w, r, err, "get return")
		return
	}
	httpx.JSON(w, http.StatusOK, ret)
}

func (h *Handler) listReturns(w http.ResponseWriter, r *http.Request) {
	var purchaseID int64
	if v := r.URL.Query().Get("purchase_id"); v != "" {
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid purchase_id")
			return
		}
		purchaseID = parsed
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
	returns, err := h.service.ListReturns(r.Context(), purchaseID, limit)
	if err != nil {
		h.respondProcurementError(w, r, err, "list returns")
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
		h.respondProcurementError(w, r, err, "delete return")
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

func (h *Handler) respondProcurementError(w http.ResponseWriter, r *http.Request, err error, op string) {
	switch {
	case errors.Is(err, ErrPurchaseNotFound), errors.Is(err, ErrReturnNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrNoItems), errors.Is(err, ErrInvalidItem), errors.Is(err, ErrInvalidSupplier), errors.Is(err, ErrReturnNotCompleted):
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

package receipts

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-pos/meridian-pos/internal/platform/httpx"
)

// Handler wires HTTP endpoints for receipts.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs the receipt handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers receipt routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
	r.Post("/{id}/print", h.print)
	r.Post("/{id}/void", h.void)
}

type voidRequest struct {
	Reason string `json:"void_reason"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filter := ListFilter{}
	if v := r.URL.Query().Get("void_status"); v != "" {
		voided, err := strconv.ParseBool(v)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid void_status")
			return
		}
		filter.Voided = &voided
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid limit")
			return
		}
		filter.Limit = limit
	}
	receipts, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.respondReceiptError(w, r, err, "list receipts")
		return
	}
	httpx.JSON(w, http.StatusOK, receipts)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.receiptID(w, r)
	if !ok {
		return
	}
	receipt, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondReceiptError(w, r, err, "get receipt")
		return
	}
	httpx.JSON(w, http.StatusOK, receipt)
}

func (h *Handler) print(w http.ResponseWriter, r *http.Request) {
	id, ok := h.receiptID(w, r)
	if !ok {
		return
	}
	if _, err := h.service.Print(r.Context(), id); err != nil {
		if errors.Is(err, ErrReceiptVoided) {
			httpx.ActionError(w, "Cannot print voided receipt")
			return
		}
		h.respondReceiptError(w, r, err, "print receipt")
		return
	}
	httpx.Status(w, "receipt printed")
}

func (h *Handler) void(w http.ResponseWriter, r *http.Request) {
	id, ok := h.receiptID(w, r)
	if !ok {
		return
	}
	var req voidRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.ActionError(w, "Void reason is required")
		return
	}
	if _, err := h.service.Void(r.Context(), id, req.Reason); err != nil {
		if errors.Is(err, ErrReasonRequired) {
			httpx.ActionError(w, "Void reason is required")
			return
		}
		h.respondReceiptError(w, r, err, "void receipt")
		return
	}
	httpx.Status(w, "receipt voided")
}

func (h *Handler) receiptID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid receipt id")
		return 0, false
	}
	return id, true
}

func (h *Handler) respondReceiptError(w http.ResponseWriter, r *http.Request, err error, op string) {
	switch {
	case errors.Is(err, ErrReceiptNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrReceiptExists):
		httpx.Problem(w, http.StatusConflict, "Duplicate", err.Error())
	default:
		h.logger.Error(op, slog.Any("error", err), slog.String("path", r.URL.Path))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

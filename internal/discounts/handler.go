package discounts

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-pos/meridian-pos/internal/platform/httpx"
)

// Handler wires HTTP endpoints for discounts.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs the discounts handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers discount routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/active", h.listActive)
	r.Get("/{id}", h.get)
	r.Put("/{id}", h.update)
	r.Delete("/{id}", h.delete)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid limit")
			return
		}
		limit = parsed
	}
	discounts, err := h.service.List(r.Context(), limit)
	if err != nil {
		h.respondDiscountError(w, r, err, "list discounts")
		return
	}
	httpx.JSON(w, http.StatusOK, discounts)
}

func (h *Handler) listActive(w http.ResponseWriter, r *http.Request) {
	discounts, err := h.service.ListActive(r.Context())
	if err != nil {
		h.respondDiscountError(w, r, err, "list active discounts")
		return
	}
	httpx.JSON(w, http.StatusOK, discounts)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	discount, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondDiscountError(w, r, err, "get discount")
		return
	}
	httpx.JSON(w, http.StatusOK, discount)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var discount Discount
	if err := httpx.DecodeJSON(r, &discount); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	created, err := h.service.Create(r.Context(), discount)
	if err != nil {
		h.respondDiscountError(w, r, err, "create discount")
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var discount Discount
	if err := httpx.DecodeJSON(r, &discount); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.service.Update(r.Context(), id, discount); err != nil {
		h.respondDiscountError(w, r, err, "update discount")
		return
	}
	httpx.Status(w, "discount updated")
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.respondDiscountError(w, r, err, "delete discount")
		return
	}
	httpx.Status(w, "discount deleted")
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid discount id")
		return 0, false
	}
	return id, true
}

func (h *Handler) respondDiscountError(w http.ResponseWriter, r *http.Request, err error, op string) {
	switch {
	case errors.Is(err, ErrDiscountNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrInvalidWindow), errors.Is(err, ErrInvalidPercent), errors.Is(err, ErrInvalidScope), errors.Is(err, ErrInvalidName), errors.Is(err, ErrProductsRequired):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error(op, slog.Any("error", err), slog.String("path", r.URL.Path))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

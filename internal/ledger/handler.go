package ledger

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-pos/meridian-pos/internal/platform/httpx"
	"github.com/meridian-pos/meridian-pos/internal/shared"
)

// Handler wires HTTP endpoints for the stock ledger.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs the ledger handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers ledger routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/movements", h.recordMovement)
	r.Get("/movements", h.listMovements)
	r.Get("/items", h.listItems)
	r.Get("/items/{id}", h.getItem)
	r.Post("/items/{id}/update-count", h.updateCount)
	r.Get("/products/{id}/available", h.availableQuantity)
	r.Get("/products/{id}/stock-by-location", h.stockByLocation)
}

type movementRequest struct {
	ProductID      int64      `json:"product_id"`
	MovementType   string     `json:"movement_type"`
	Quantity       int64      `json:"quantity"`
	Reference      string     `json:"reference_number,omitempty"`
	FromLocationID int64      `json:"from_location_id"`
	ToLocationID   int64      `json:"to_location_id,omitempty"`
	BatchNumber    string     `json:"batch_number,omitempty"`
	ExpiryDate     *time.Time `json:"expiry_date,omitempty"`
}

type updateCountRequest struct {
	Quantity *int64 `json:"quantity"`
}

func (h *Handler) recordMovement(w http.ResponseWriter, r *http.Request) {
	var req movementRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	movement, err := h.service.RecordMovement(r.Context(), MovementInput{
		ProductID:      req.ProductID,
		Type:           MovementType(req.MovementType),
		Quantity:       req.Quantity,
		Reference:      req.Reference,
		FromLocationID: req.FromLocationID,
		ToLocationID:   req.ToLocationID,
		BatchNumber:    req.BatchNumber,
		ExpiryDate:     req.ExpiryDate,
		ActorID:        shared.ActorFromContext(r.Context()),
	})
	if err != nil {
		h.respondLedgerError(w, r, err, "record movement")
		return
	}
	httpx.JSON(w, http.StatusCreated, movement)
}

func (h *Handler) listMovements(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := MovementFilter{Type: MovementType(q.Get("movement_type"))}
	if v := q.Get("product_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid product_id")
			return
		}
		filter.ProductID = id
	}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid limit")
			return
		}
		filter.Limit = limit
	}
	movements, err := h.service.ListMovements(r.Context(), filter)
	if err != nil {
		h.respondLedgerError(w, r, err, "list movements")
		return
	}
	httpx.JSON(w, http.StatusOK, movements)
}

func (h *Handler) listItems(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var filter ItemFilter
	if v := q.Get("product_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid product_id")
			return
		}
		filter.ProductID = id
	}
	if v := q.Get("location_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid location_id")
			return
		}
		filter.LocationID = id
	}
	items, err := h.service.ListItems(r.Context(), filter)
	if err != nil {
		h.respondLedgerError(w, r, err, "list items")
		return
	}
	httpx.JSON(w, http.StatusOK, items)
}

func (h *Handler) getItem(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid item id")
		return
	}
	item, err := h.service.GetItem(r.Context(), id)
	if err != nil {
		h.respondLedgerError(w, r, err, "get item")
		return
	}
	httpx.JSON(w, http.StatusOK, item)
}

func (h *Handler) updateCount(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid item id")
		return
	}
	var req updateCountRequest
	if err := httpx.DecodeJSON(r, &req); err != nil || req.Quantity == nil {
		httpx.ActionError(w, "Quantity is required")
		return
	}
	if _, err := h.service.UpdateCount(r.Context(), id, *req.Quantity, shared.ActorFromContext(r.Context())); err != nil {
		if errors.Is(err, ErrNegativeCount) {
			httpx.ActionError(w, "Quantity must not be negative")
			return
		}
		h.respondLedgerError(w, r, err, "update count")
		return
	}
	httpx.Status(w, "quantity updated")
}

func (h *Handler) availableQuantity(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid product id")
		return
	}
	available, err := h.service.AvailableQuantity(r.Context(), id)
	if err != nil {
		h.respondLedgerError(w, r, err, "available quantity")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]int64{"product_id": id, "available": available})
}

func (h *Handler) stockByLocation(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid product id")
		return
	}
	stocks, err := h.service.StockByLocation(r.Context(), id)
	if err != nil {
		h.respondLedgerError(w, r, err, "stock by location")
		return
	}
	httpx.JSON(w, http.StatusOK, stocks)
}

func (h *Handler) respondLedgerError(w http.ResponseWriter, r *http.Request, err error, op string) {
	switch {
	case errors.Is(err, ErrInsufficientStock):
		httpx.Problem(w, http.StatusConflict, "Insufficient Stock", err.Error())
	case errors.Is(err, ErrInvalidQuantity), errors.Is(err, ErrInvalidLocation), errors.Is(err, ErrNegativeCount):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrItemNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, shared.ErrIdempotencyConflict):
		httpx.Problem(w, http.StatusConflict, "Duplicate", err.Error())
	default:
		h.logger.Error(op, slog.Any("error", err), slog.String("path", r.URL.Path))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

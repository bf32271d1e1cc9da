package reports

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-pos/meridian-pos/internal/platform/httpx"
)

// Handler wires HTTP endpoints for reports, schedules and the dashboard.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs the reports handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers report routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.generate)
	r.Get("/metrics", h.metrics)
	r.Get("/monthly-sales/{year}", h.monthlySales)
	r.Get("/schedules", h.listSchedules)
	r.Post("/schedules", h.createSchedule)
	r.Get("/schedules/{id}", h.getSchedule)
	r.Post("/schedules/{id}/toggle", h.toggleSchedule)
	r.Delete("/schedules/{id}", h.deleteSchedule)
	r.Get("/{id}", h.get)
	r.Delete("/{id}", h.delete)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	var limit int32
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.ParseInt(v, 10, 32)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid limit")
			return
		}
		limit = int32(parsed)
	}
	reports, err := h.service.List(r.Context(), r.URL.Query().Get("report_type"), limit)
	if err != nil {
		h.respondReportError(w, r, err, "list reports")
		return
	}
	httpx.JSON(w, http.StatusOK, reports)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	report, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondReportError(w, r, err, "get report")
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) generate(w http.ResponseWriter, r *http.Request) {
	var report Report
	if err := httpx.DecodeJSON(r, &report); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	created, err := h.service.Generate(r.Context(), report)
	if err != nil {
		h.respondReportError(w, r, err, "generate report")
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.respondReportError(w, r, err, "delete report")
		return
	}
	httpx.Status(w, "report deleted")
}

func (h *Handler) metrics(w http.ResponseWriter, r *http.Request) {
	metrics, err := h.service.Metrics(r.Context())
	if err != nil {
		h.respondReportError(w, r, err, "dashboard metrics")
		return
	}
	httpx.JSON(w, http.StatusOK, metrics)
}

func (h *Handler) monthlySales(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid year")
		return
	}
	summary, err := h.service.MonthlySales(r.Context(), year)
	if err != nil {
		h.respondReportError(w, r, err, "monthly sales")
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

func (h *Handler) listSchedules(w http.ResponseWriter, r *http.Request) {
	schedules, err := h.service.ListSchedules(r.Context())
	if err != nil {
		h.respondReportError(w, r, err, "list schedules")
		return
	}
	httpx.JSON(w, http.StatusOK, schedules)
}

func (h *Handler) createSchedule(w http.ResponseWriter, r *http.Request) {
	var schedule Schedule
	if err := httpx.DecodeJSON(r, &schedule); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	created, err := h.service.CreateSchedule(r.Context(), schedule)
	if err != nil {
		h.respondReportError(w, r, err, "create schedule")
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) getSchedule(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	schedule, err := h.service.GetSchedule(r.Context(), id)
	if err != nil {
		h.respondReportError(w, r, err, "get schedule")
		return
	}
	httpx.JSON(w, http.StatusOK, schedule)
}

func (h *Handler) toggleSchedule(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	schedule, err := h.service.ToggleSchedule(r.Context(), id)
	if err != nil {
		h.respondReportError(w, r, err, "toggle schedule")
		return
	}
	httpx.JSON(w, http.StatusOK, schedule)
}

func (h *Handler) deleteSchedule(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteSchedule(r.Context(), id); err != nil {
		h.respondReportError(w, r, err, "delete schedule")
		return
	}
	httpx.Status(w, "schedule deleted")
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid id")
		return 0, false
	}
	return id, true
}

func (h *Handler) respondReportError(w http.ResponseWriter, r *http.Request, err error, op string) {
	switch {
	case errors.Is(err, ErrReportNotFound), errors.Is(err, ErrScheduleNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrInvalidType), errors.Is(err, ErrInvalidRange),
		errors.Is(err, ErrInvalidFrequency), errors.Is(err, ErrInvalidYear):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error(op, slog.Any("error", err), slog.String("path", r.URL.Path))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

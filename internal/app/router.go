package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/meridian-pos/meridian-pos/internal/credit"
	"github.com/meridian-pos/meridian-pos/internal/discounts"
	"github.com/meridian-pos/meridian-pos/internal/expenses"
	"github.com/meridian-pos/meridian-pos/internal/ledger"
	"github.com/meridian-pos/meridian-pos/internal/masterdata/locations"
	"github.com/meridian-pos/meridian-pos/internal/masterdata/lookups"
	"github.com/meridian-pos/meridian-pos/internal/masterdata/products"
	"github.com/meridian-pos/meridian-pos/internal/masterdata/suppliers"
	"github.com/meridian-pos/meridian-pos/internal/observability"
	"github.com/meridian-pos/meridian-pos/internal/procurement"
	"github.com/meridian-pos/meridian-pos/internal/receipts"
	"github.com/meridian-pos/meridian-pos/internal/reports"
	"github.com/meridian-pos/meridian-pos/internal/sales"
	"github.com/meridian-pos/meridian-pos/internal/sales/customers"
	"github.com/meridian-pos/meridian-pos/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger *slog.Logger
	Config *Config

	LedgerHandler      *ledger.Handler
	CreditHandler      *credit.Handler
	ReceiptsHandler    *receipts.Handler
	ProductsHandler    *products.Handler
	LookupsService     *lookups.Service
	SuppliersHandler   *suppliers.Handler
	LocationsHandler   *locations.Handler
	CustomersHandler   *customers.Handler
	SalesHandler       *sales.Handler
	ProcurementHandler *procurement.Handler
	ExpensesHandler    *expenses.Handler
	DiscountsHandler   *discounts.Handler
	ReportsHandler     *reports.Handler
	JobHandler         *jobs.Handler

	Metrics *observability.Metrics
}

// NewRouter constructs the chi.Router with application defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/inventory", params.LedgerHandler.MountRoutes)
	r.Route("/credits", params.CreditHandler.MountRoutes)
	r.Route("/receipts", params.ReceiptsHandler.MountRoutes)
	r.Route("/products", params.ProductsHandler.MountRoutes)
	if params.LookupsService != nil {
		r.Route("/brands", lookups.NewHandler(params.Logger, params.LookupsService, lookups.KindBrand).MountRoutes)
		r.Route("/categories", lookups.NewHandler(params.Logger, params.LookupsService, lookups.KindCategory).MountRoutes)
		r.Route("/units", lookups.NewHandler(params.Logger, params.LookupsService, lookups.KindUnit).MountRoutes)
	}
	r.Route("/suppliers", params.SuppliersHandler.MountRoutes)
	r.Route("/locations", params.LocationsHandler.MountRoutes)
	r.Route("/customers", params.CustomersHandler.MountRoutes)
	r.Route("/sales", params.SalesHandler.MountRoutes)
	r.Route("/purchases", params.ProcurementHandler.MountRoutes)
	r.Route("/expenses", params.ExpensesHandler.MountRoutes)
	r.Route("/discounts", params.DiscountsHandler.MountRoutes)
	r.Route("/reports", params.ReportsHandler.MountRoutes)
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}

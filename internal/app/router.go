package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pharmaflow/pharmaflow/internal/customers"
	"github.com/pharmaflow/pharmaflow/internal/deliveries"
	"github.com/pharmaflow/pharmaflow/internal/finance"
	"github.com/pharmaflow/pharmaflow/internal/inventory"
	"github.com/pharmaflow/pharmaflow/internal/orders"
	"github.com/pharmaflow/pharmaflow/internal/payments"
	"github.com/pharmaflow/pharmaflow/internal/platform/httpx"
	"github.com/pharmaflow/pharmaflow/internal/summary"
)

// Handlers collects the module handlers the router mounts.
type Handlers struct {
	Customers  *customers.Handler
	Orders     *orders.Handler
	Payments   *payments.Handler
	Deliveries *deliveries.Handler
	Finance    *finance.Handler
	Inventory  *inventory.Handler
	Summary    *summary.Handler
}

// NewRouter assembles the HTTP surface: the shared middleware stack, a
// health probe, and every module mounted under /api/v1.
func NewRouter(logger *slog.Logger, cfg *Config, h Handlers) chi.Router {
	r := chi.NewRouter()
	r.Use(MiddlewareStack(MiddlewareConfig{Logger: logger, Config: cfg})...)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		customers.MountRoutes(r, h.Customers)
		orders.MountRoutes(r, h.Orders)
		payments.MountRoutes(r, h.Payments)
		deliveries.MountRoutes(r, h.Deliveries)
		finance.MountRoutes(r, h.Finance)
		inventory.MountRoutes(r, h.Inventory)
		summary.MountRoutes(r, h.Summary)
	})

	return r
}

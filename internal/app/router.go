package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/comptoir-erp/comptoir/internal/accounting/journals"
	"github.com/comptoir-erp/comptoir/internal/checkout"
	"github.com/comptoir-erp/comptoir/internal/inventory"
	"github.com/comptoir-erp/comptoir/internal/masterdata/products"
	"github.com/comptoir-erp/comptoir/internal/masterdata/services"
	"github.com/comptoir-erp/comptoir/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger    *slog.Logger
	Config    *Config
	Checkout  *checkout.Handler
	Journals  *journals.Handler
	Inventory *inventory.Handler
	Products  *products.Handler
	Services  *services.Handler
	Jobs      *jobs.Handler
}

// NewRouter constructs the chi.Router with Comptoir defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger: params.Logger,
		Config: params.Config,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(api chi.Router) {
		api.Route("/sales", params.Checkout.MountRoutes)
		api.Route("/journals", params.Journals.MountRoutes)
		api.Route("/stock", params.Inventory.MountRoutes)
		api.Route("/products", params.Products.MountRoutes)
		api.Route("/services", params.Services.MountRoutes)
		if params.Jobs != nil {
			api.Route("/jobs", params.Jobs.MountRoutes)
		}
	})

	return r
}

package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/almacen-erp/almacen-erp/internal/auth"
	"github.com/almacen-erp/almacen-erp/internal/billing"
	"github.com/almacen-erp/almacen-erp/internal/credit"
	"github.com/almacen-erp/almacen-erp/internal/masterdata"
	"github.com/almacen-erp/almacen-erp/internal/shared"
	"github.com/almacen-erp/almacen-erp/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger            *slog.Logger
	Config            *Config
	Sessions          *shared.SessionStore
	AuthHandler       *auth.Handler
	BillingHandler    *billing.Handler
	CreditHandler     *credit.Handler
	MasterDataHandler *masterdata.Handler
	JobsHandler       *jobs.Handler
}

// NewRouter constructs the chi.Router with application defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:   params.Logger,
		Config:   params.Config,
		Sessions: params.Sessions,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api", func(api chi.Router) {
		params.AuthHandler.MountRoutes(api)

		api.Group(func(protected chi.Router) {
			protected.Use(RequireAuth(params.Logger, params.Sessions))

			params.BillingHandler.MountRoutes(protected)
			params.CreditHandler.MountRoutes(protected)
			params.MasterDataHandler.MountRoutes(protected)

			protected.Group(func(admin chi.Router) {
				admin.Use(RequireRole(auth.RoleAdmin))
				params.JobsHandler.MountRoutes(admin)
			})
		})
	})

	return r
}

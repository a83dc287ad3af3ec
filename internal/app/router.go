package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	audithttp "github.com/mealbridge/mealbridge/internal/audit/http"
	"github.com/mealbridge/mealbridge/internal/authz"
	"github.com/mealbridge/mealbridge/internal/observability"
	"github.com/mealbridge/mealbridge/internal/roles"
	"github.com/mealbridge/mealbridge/internal/users"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger             *slog.Logger
	Config             *Config
	Gate               authz.Middleware
	RolesHandler       *roles.Handler
	UsersHandler       *users.Handler
	AuditHandler       *audithttp.Handler
	PermissionsHandler *authz.PermissionsHandler
	Metrics            *observability.Metrics
}

// NewRouter constructs the chi.Router for the administrative surface.
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

	if params.RolesHandler != nil {
		r.Route("/roles", func(r chi.Router) {
			params.RolesHandler.MountRoutes(r, params.Gate)
		})
	}
	if params.UsersHandler != nil {
		r.Route("/users", func(r chi.Router) {
			params.UsersHandler.MountRoutes(r, params.Gate)
		})
	}
	if params.PermissionsHandler != nil {
		r.Route("/permissions", func(r chi.Router) {
			params.PermissionsHandler.MountRoutes(r, params.Gate)
		})
	}
	if params.AuditHandler != nil {
		r.Route("/audit-logs", func(r chi.Router) {
			params.AuditHandler.MountRoutes(r, params.Gate)
		})
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}

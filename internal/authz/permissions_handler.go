package authz

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mealbridge/mealbridge/internal/catalog"
	"github.com/mealbridge/mealbridge/internal/platform/httpx"
)

// PermissionsHandler serves the static permission catalog so administrative
// UIs can render human labels.
type PermissionsHandler struct {
	logger *slog.Logger
}

// NewPermissionsHandler builds a PermissionsHandler instance.
func NewPermissionsHandler(logger *slog.Logger) *PermissionsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &PermissionsHandler{logger: logger}
}

// MountRoutes registers permission routes.
func (h *PermissionsHandler) MountRoutes(r chi.Router, gate Middleware) {
	r.Group(func(r chi.Router) {
		r.Use(gate.RequireAny(catalog.PermPermissionsView))
		r.Get("/", h.listPermissions)
	})
}

func (h *PermissionsHandler) listPermissions(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, map[string]any{"data": catalog.All()})
}

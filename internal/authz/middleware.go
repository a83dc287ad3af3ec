package authz

import (
	"net/http"

	"github.com/mealbridge/mealbridge/internal/catalog"
	"github.com/mealbridge/mealbridge/internal/platform/httpx"
	"github.com/mealbridge/mealbridge/internal/shared"
)

// Middleware wires authorization gates for HTTP handlers. A denied check is
// always a plain 403 with no hint about which permission was missing.
type Middleware struct {
	Engine *Engine
}

// RequireAny ensures the current actor has at least one of the required
// permissions. With no permissions configured the gate is a pass-through.
func (m Middleware) RequireAny(perms ...catalog.Permission) func(http.Handler) http.Handler {
	return m.require(perms, ModeAny)
}

// RequireAll ensures the current actor has all required permissions.
func (m Middleware) RequireAll(perms ...catalog.Permission) func(http.Handler) http.Handler {
	return m.require(perms, ModeAll)
}

func (m Middleware) require(perms []catalog.Permission, mode Mode) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(perms) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			actor, ok := shared.ActorFromContext(r.Context())
			if !ok {
				httpx.RespondError(w, httpx.ErrForbidden)
				return
			}
			if !m.Engine.HasPermission(r.Context(), actor.ID, perms, mode) {
				httpx.RespondError(w, httpx.ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	ctrl "github.com/dropDatabas3/authcore/internal/http/controllers/health"
)

// HealthRouterDeps contains the dependencies for the health routes.
type HealthRouterDeps struct {
	Controllers *ctrl.Controllers
}

// RegisterHealthRoutes registers the readiness endpoint.
func RegisterHealthRoutes(r chi.Router, deps HealthRouterDeps) {
	r.Method(http.MethodGet, "/healthz", http.HandlerFunc(deps.Controllers.Health.Healthz))
}

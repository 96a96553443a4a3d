// Package router assembles the HTTP routing table. Each route family has a
// Register function so server wiring can pick what it mounts; New builds the
// full table for the service binary.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	authctrl "github.com/dropDatabas3/authcore/internal/http/controllers/auth"
	healthctrl "github.com/dropDatabas3/authcore/internal/http/controllers/health"
	httperrors "github.com/dropDatabas3/authcore/internal/http/errors"
	mw "github.com/dropDatabas3/authcore/internal/http/middlewares"
)

// Deps contains everything the full routing table needs.
type Deps struct {
	Auth   *authctrl.Controllers
	Health *healthctrl.Controllers

	// Authorizer resolves session credentials for protected routes.
	Authorizer mw.Authorizer

	// InitiateLimiter throttles login attempts per client IP. Optional.
	InitiateLimiter mw.RateLimiter

	// Metrics is the Prometheus scrape handler. Nil disables /metrics.
	Metrics http.Handler
}

// New builds the router with all route families registered. Unknown paths
// and wrong methods answer JSON like every other endpoint.
func New(deps Deps) *chi.Mux {
	r := chi.NewRouter()

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httperrors.WriteError(w, httperrors.ErrRouteNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		httperrors.WriteError(w, httperrors.ErrMethodNotAllowed)
	})

	RegisterAuthRoutes(r, AuthRouterDeps{
		Controllers:     deps.Auth,
		Authorizer:      deps.Authorizer,
		InitiateLimiter: deps.InitiateLimiter,
	})
	RegisterHealthRoutes(r, HealthRouterDeps{
		Controllers: deps.Health,
	})

	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}

	return r
}

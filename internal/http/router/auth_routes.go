package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	ctrl "github.com/dropDatabas3/authcore/internal/http/controllers/auth"
	mw "github.com/dropDatabas3/authcore/internal/http/middlewares"
)

// AuthRouterDeps contains the dependencies for the auth routes.
type AuthRouterDeps struct {
	Controllers *ctrl.Controllers
	Authorizer  mw.Authorizer
	// InitiateLimiter throttles login attempts per client IP. Optional.
	InitiateLimiter mw.RateLimiter
}

// RegisterAuthRoutes registers the login flow endpoints.
func RegisterAuthRoutes(r chi.Router, deps AuthRouterDeps) {
	c := deps.Controllers

	// GET/POST /auth/initiate - start a login attempt (GET for OAuth
	// redirects, POST for trusted providers)
	initiate := authHandler(c.Initiate.Initiate, initiateLimit(deps.InitiateLimiter)...)
	r.Method(http.MethodGet, "/auth/initiate", initiate)
	r.Method(http.MethodPost, "/auth/initiate", initiate)

	// GET /auth/callback - finish the OAuth round trip
	r.Method(http.MethodGet, "/auth/callback", authHandler(c.Callback.Callback))

	// GET /auth/me - current session introspection
	r.Method(http.MethodGet, "/auth/me", authHandler(c.Me.Me, mw.RequireSession(deps.Authorizer)))

	// POST /auth/logout - clear the session cookie
	r.Method(http.MethodPost, "/auth/logout", authHandler(c.Logout.Logout))

	// GET /auth/providers - list configured providers
	r.Method(http.MethodGet, "/auth/providers", authHandler(c.Providers.GetProviders))
}

// authHandler chains the middlewares every auth endpoint shares. Responses
// on these routes carry credentials or identity data, so they are never
// cacheable.
func authHandler(hf http.HandlerFunc, extra ...mw.Middleware) http.Handler {
	chain := []mw.Middleware{mw.WithNoStore()}
	chain = append(chain, extra...)
	return mw.ChainFunc(hf, chain...)
}

// initiateLimit builds the per-IP throttle for login attempts. Keys on IP
// alone so the request body stays unread.
func initiateLimit(limiter mw.RateLimiter) []mw.Middleware {
	if limiter == nil {
		return nil
	}
	return []mw.Middleware{
		mw.WithRateLimit(mw.RateLimitConfig{
			Limiter: limiter,
			KeyFunc: mw.IPOnlyRateKey,
		}),
	}
}

package middlewares

import (
	"errors"
	"net/http"

	httperrors "github.com/dropDatabas3/authcore/internal/http/errors"
	"github.com/dropDatabas3/authcore/internal/session"
)

// Authorizer resolves the session credential carried by a request.
// The auth service implements it; keeping the interface here avoids a
// middleware -> service dependency.
type Authorizer interface {
	Authorize(r *http.Request, required bool) (*session.Payload, error)
}

// RequireSession validates the session credential (bearer header or session
// cookie) and stores the payload in the context. Responds 401 when the
// credential is missing, invalid or expired.
func RequireSession(az Authorizer) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			payload, err := az.Authorize(r, true)
			if err != nil {
				writeAuthError(w, err)
				return
			}

			ctx := WithSession(r.Context(), payload)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeAuthError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrExpired):
		w.Header().Set("WWW-Authenticate", `Bearer realm="authcore", error="invalid_token", error_description="token expired"`)
		httperrors.WriteError(w, httperrors.ErrSessionExpired)
	case errors.Is(err, session.ErrNoSecret):
		httperrors.WriteError(w, httperrors.ErrConfiguration.WithCause(err))
	default:
		w.Header().Set("WWW-Authenticate", `Bearer realm="authcore", error="invalid_token"`)
		httperrors.WriteError(w, httperrors.ErrUnauthorized)
	}
}

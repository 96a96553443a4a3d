package auth

import (
	"errors"
	"net/http"

	httpx "github.com/dropDatabas3/authcore/internal/http"
	httperrors "github.com/dropDatabas3/authcore/internal/http/errors"
	svc "github.com/dropDatabas3/authcore/internal/http/services/auth"
	"github.com/dropDatabas3/authcore/internal/oauth"
	"github.com/dropDatabas3/authcore/internal/observability/logger"
	"github.com/dropDatabas3/authcore/internal/security/origin"
	"github.com/dropDatabas3/authcore/internal/session"
)

// writeFlowError maps flow service errors onto the HTTP error taxonomy.
// Provider-reported errors keep their verbatim text; everything unexpected
// collapses to a generic 500 without leaking internals.
func writeFlowError(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *httperrors.AppError

	switch {
	case errors.Is(err, svc.ErrMissingProvider):
		appErr = httperrors.ErrBadRequest.WithDetail("provider parameter is required")
	case errors.Is(err, svc.ErrMissingCode):
		appErr = httperrors.ErrBadRequest.WithDetail("code parameter is required")
	case errors.Is(err, svc.ErrMissingState):
		appErr = httperrors.ErrBadRequest.WithDetail("state parameter is required")
	case errors.Is(err, svc.ErrProviderError):
		detail := ""
		var pre *svc.ProviderRedirectError
		if errors.As(err, &pre) {
			detail = pre.Detail()
		}
		appErr = httperrors.ErrProviderError.WithDetail(detail)
	case errors.Is(err, svc.ErrInvalidState):
		appErr = httperrors.ErrInvalidState
	case errors.Is(err, svc.ErrUnknownProvider):
		appErr = httperrors.ErrUnknownProvider
	case errors.Is(err, svc.ErrMethodNotAllowed):
		w.Header().Set("Allow", http.MethodPost)
		appErr = httperrors.ErrMethodNotAllowed
	case errors.Is(err, origin.ErrMismatch):
		appErr = httperrors.ErrForbidden
	case errors.Is(err, svc.ErrAuthenticationFailed):
		appErr = httperrors.ErrInvalidCredentials
	case errors.Is(err, oauth.ErrExchangeFailed), errors.Is(err, oauth.ErrTenantRejected):
		appErr = httperrors.ErrUpstreamExchange
	case errors.Is(err, svc.ErrProviderNotConfigured), errors.Is(err, session.ErrNoSecret):
		appErr = httperrors.ErrConfiguration
	default:
		appErr = httperrors.FromError(err)
	}

	httpx.RecordLoginFailure(appErr.Code)

	log := logger.From(r.Context()).With(logger.Layer("controller"))
	if appErr.HTTPStatus >= http.StatusInternalServerError {
		log.Error("login flow failed", logger.Err(err))
	} else {
		log.Warn("login flow rejected", logger.Err(err))
	}
	httperrors.WriteError(w, appErr)
}

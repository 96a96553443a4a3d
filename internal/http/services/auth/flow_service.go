package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/dropDatabas3/authcore/internal/oauth"
	"github.com/dropDatabas3/authcore/internal/session"
)

// FlowService drives the login flow: the initiate and complete halves of the
// OAuth round trip, the synchronous trusted-provider path, and the session
// checks protected routes rely on.
//
// Initiate, Complete and Logout write cookies to w themselves; status code
// and body stay with the controller.
type FlowService interface {
	// Initiate starts a login attempt. OAuth providers produce a redirect
	// URL plus the ephemeral cookies; trusted providers authenticate
	// synchronously and produce the normalized user.
	Initiate(w http.ResponseWriter, r *http.Request) (*FlowResult, error)

	// Complete finishes the OAuth round trip after the provider redirected
	// back with code and state.
	Complete(w http.ResponseWriter, r *http.Request) (*FlowResult, error)

	// Authorize resolves the session credential carried by the request,
	// bearer header first, then the session cookie. With required=false a
	// missing or invalid credential yields (nil, nil).
	Authorize(r *http.Request, required bool) (*session.Payload, error)

	// Logout clears the session cookie. Same-origin only.
	Logout(w http.ResponseWriter, r *http.Request) error

	// Providers lists the configured provider identifiers, OAuth and
	// trusted respectively, both sorted.
	Providers() (oauthIDs, trustedNames []string)
}

// FlowResult is the successful outcome of Initiate or Complete.
// Exactly one of RedirectURL and User is set.
type FlowResult struct {
	RedirectURL string
	User        *oauth.User
}

// PostAuthHook lets the application remap or enrich the normalized user
// after the provider authenticated it, before the session is issued.
// Returning a non-nil user replaces the original; (nil, nil) keeps it.
type PostAuthHook func(ctx context.Context, u *oauth.User) (*oauth.User, error)

// ErrorHook is notified of every failure while completing a login.
// It runs fire-and-forget: panics and errors inside it are swallowed.
type ErrorHook func(ctx context.Context, err error)

// Errors for the flow service.
var (
	ErrMissingProvider       = errors.New("missing provider parameter")
	ErrUnknownProvider       = errors.New("unknown provider")
	ErrMethodNotAllowed      = errors.New("trusted providers require POST")
	ErrAuthenticationFailed  = errors.New("authentication failed")
	ErrMissingCode           = errors.New("missing code parameter")
	ErrMissingState          = errors.New("missing state parameter")
	ErrInvalidState          = errors.New("state validation failed")
	ErrProviderError         = errors.New("provider returned an error")
	ErrProviderNotConfigured = errors.New("provider not configured")
	ErrNoSession             = errors.New("no session credential")
)

// ProviderRedirectError carries the error a provider reported on its redirect
// back, verbatim, so the response can surface exactly what the provider said.
// It matches ErrProviderError under errors.Is.
type ProviderRedirectError struct {
	Code        string
	Description string
}

func (e *ProviderRedirectError) Error() string {
	return "provider returned an error: " + e.Detail()
}

func (e *ProviderRedirectError) Is(target error) bool { return target == ErrProviderError }

// Detail renders the provider's own words, code first.
func (e *ProviderRedirectError) Detail() string {
	if e.Description == "" {
		return e.Code
	}
	return e.Code + ": " + e.Description
}

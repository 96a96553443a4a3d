// Package oauth defines the provider abstraction the login flow is driven
// through. Each supported provider ships as a self-contained descriptor in a
// subpackage; the flow only ever talks to the Descriptor interface, so adding
// a provider never touches the orchestration.
package oauth

import (
	"context"
	"errors"
	"strings"
)

// Config holds the per-provider application settings. Read-only after
// construction; ClientSecret must never reach a log line.
type Config struct {
	ClientID     string
	ClientSecret string
	// Scopes are appended to the descriptor defaults, space-joined on the wire.
	Scopes []string
	// RedirectURI overrides the default <baseURL>/auth/callback when set.
	RedirectURI string
	// AllowedTenants restricts multi-tenant providers to these tenant IDs.
	AllowedTenants []string
}

// User is the provider-agnostic identity produced from heterogeneous
// provider payloads. (Provider, AccountID) is the stable identity pair.
// Raw carries the untouched provider payload and is never interpreted here.
type User struct {
	Provider  string         `json:"provider"`
	AccountID string         `json:"providerAccountId"`
	Email     *string        `json:"email"`
	Name      *string        `json:"name"`
	Avatar    *string        `json:"avatar"`
	Raw       map[string]any `json:"raw,omitempty"`
}

// Token is the credential returned by a provider's token endpoint.
type Token struct {
	AccessToken string
	TokenType   string
	Scope       string
}

// Typed failures surfaced by descriptor capabilities.
var (
	// ErrExchangeFailed wraps any non-2xx or malformed token-endpoint response.
	ErrExchangeFailed = errors.New("token exchange failed")
	// ErrTenantRejected means the issued token's tenant claim is absent or not
	// in the configured allow-list.
	ErrTenantRejected = errors.New("tenant not allowed")
	// ErrUserFetchFailed wraps a failed primary userinfo call. Secondary
	// lookups never produce it; they degrade their field to nil instead.
	ErrUserFetchFailed = errors.New("user fetch failed")
)

// Descriptor describes one OAuth provider's endpoints and capabilities.
// Implementations are stateless and shared across concurrent requests.
type Descriptor interface {
	// ID is the provider identifier used in routes, cookies and sessions.
	ID() string
	// AuthorizeURL resolves the authorization endpoint; may depend on cfg
	// (tenant-scoped endpoints).
	AuthorizeURL(cfg Config) string
	// TokenURL resolves the token endpoint; may depend on cfg.
	TokenURL(cfg Config) string
	// DefaultScopes are always requested, before any configured extras.
	DefaultScopes() []string
	// ExchangeCode posts the authorization code and PKCE verifier to the
	// token endpoint. Non-2xx and error-bearing bodies return a failure
	// wrapping ErrExchangeFailed (or ErrTenantRejected).
	ExchangeCode(ctx context.Context, code, verifier, redirectURI string, cfg Config) (*Token, error)
	// FetchUser loads and normalizes the user behind an access token.
	FetchUser(ctx context.Context, accessToken string) (*User, error)
}

// ScopeString merges descriptor defaults with configured scopes into the wire
// scope parameter: defaults first, then extras, space-joined. Duplicates are
// kept as-is.
func ScopeString(d Descriptor, cfg Config) string {
	all := make([]string, 0, len(d.DefaultScopes())+len(cfg.Scopes))
	all = append(all, d.DefaultScopes()...)
	all = append(all, cfg.Scopes...)
	return strings.Join(all, " ")
}

// StringPtr adapts a provider payload field to the nullable User fields.
// Empty input maps to nil (JSON null).
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Package origin validates that state-mutating requests without
// provider-issued state come from the application's own origin.
package origin

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// ErrMismatch indicates a request origin that does not match the
// application origin.
var ErrMismatch = errors.New("origin: request origin mismatch")

// Guard compares request Origin/Referer headers against one allowed origin.
type Guard struct {
	origin string // canonical "scheme://host[:port]"
}

// NewGuard builds a guard for the application base URL.
func NewGuard(baseURL string) (*Guard, error) {
	o, err := canonical(baseURL)
	if err != nil {
		return nil, fmt.Errorf("origin: invalid base URL %q: %w", baseURL, err)
	}
	return &Guard{origin: o}, nil
}

// Check validates the request's Origin and Referer headers. Each header
// that is present must carry the application origin. Requests with neither
// header pass: some legitimate clients omit both, and the state binding on
// the OAuth path does not rely on this guard.
func (g *Guard) Check(r *http.Request) error {
	for _, h := range []string{"Origin", "Referer"} {
		v := strings.TrimSpace(r.Header.Get(h))
		if v == "" {
			continue
		}
		got, err := canonical(v)
		if err != nil || got != g.origin {
			return fmt.Errorf("%w: %s %q not allowed", ErrMismatch, strings.ToLower(h), v)
		}
	}
	return nil
}

// canonical reduces a URL to its origin: lowercase scheme://host[:port].
func canonical(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("missing scheme or host in %q", raw)
	}
	return strings.ToLower(u.Scheme) + "://" + strings.ToLower(u.Host), nil
}

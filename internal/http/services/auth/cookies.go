package auth

import (
	"net/http"
	"strings"
	"time"

	"github.com/dropDatabas3/authcore/internal/observability/logger"
)

// ephemeralTTL bounds how long a pending authorization attempt stays valid.
const ephemeralTTL = 5 * time.Minute

// SessionCookieConfig describes the cookie that carries the session token.
type SessionCookieConfig struct {
	Name     string
	Domain   string
	Path     string
	SameSite string
	Secure   bool
	HTTPOnly bool
	TTL      time.Duration
}

func parseSameSite(s string) http.SameSite {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "lax":
		return http.SameSiteLaxMode
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}

func buildSessionCookie(cfg SessionCookieConfig, value string) *http.Cookie {
	sameSite := parseSameSite(cfg.SameSite)
	if sameSite == http.SameSiteNoneMode && !cfg.Secure {
		logger.L().Warn("session cookie with SameSite=None requires Secure; browsers will reject it",
			logger.Component("auth"))
	}
	path := cfg.Path
	if path == "" {
		path = "/"
	}
	c := &http.Cookie{
		Name:     cfg.Name,
		Value:    value,
		Path:     path,
		Expires:  time.Now().Add(cfg.TTL),
		MaxAge:   int(cfg.TTL.Seconds()),
		HttpOnly: cfg.HTTPOnly,
		Secure:   cfg.Secure,
		SameSite: sameSite,
	}
	if cfg.Domain != "" {
		c.Domain = cfg.Domain
	}
	return c
}

func buildSessionDeletionCookie(cfg SessionCookieConfig) *http.Cookie {
	path := cfg.Path
	if path == "" {
		path = "/"
	}
	c := &http.Cookie{
		Name:     cfg.Name,
		Value:    "",
		Path:     path,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: cfg.HTTPOnly,
		Secure:   cfg.Secure,
		SameSite: parseSameSite(cfg.SameSite),
	}
	if cfg.Domain != "" {
		c.Domain = cfg.Domain
	}
	return c
}

// Ephemeral cookies (PKCE verifier, state nonce) are scoped to the callback
// path so they never travel with unrelated requests.
func buildEphemeralCookie(name, value, path string, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		MaxAge:   int(ephemeralTTL.Seconds()),
		Expires:  time.Now().Add(ephemeralTTL),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}

func buildEphemeralDeletionCookie(name, path string, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     path,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}

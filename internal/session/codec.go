// Package session signs and verifies the stateless session credential issued
// after a successful login. No server-side session store exists; the token is
// the session.
package session

import (
	"errors"
	"strings"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
)

// DefaultTTL is the session lifetime when none is configured.
const DefaultTTL = time.Hour

// Errors for token verification.
var (
	ErrNoSecret = errors.New("session secret missing")
	ErrInvalid  = errors.New("invalid session token")
	ErrExpired  = errors.New("session token expired")
)

// Payload is the verified identity carried by a session token.
// Subject is always derived from Provider and AccountID, never set on its own.
type Payload struct {
	Subject   string `json:"sub"`
	Provider  string `json:"provider"`
	AccountID string `json:"providerAccountId"`
}

// Subject derives the session subject for a provider/account pair.
func Subject(provider, accountID string) string {
	return provider + ":" + accountID
}

// NewPayload builds a Payload with its derived subject.
func NewPayload(provider, accountID string) Payload {
	return Payload{
		Subject:   Subject(provider, accountID),
		Provider:  provider,
		AccountID: accountID,
	}
}

type sessionClaims struct {
	Provider  string `json:"provider"`
	AccountID string `json:"providerAccountId"`
	jwtv5.RegisteredClaims
}

// Codec signs and verifies session tokens with an HMAC-SHA256 secret.
type Codec struct {
	secret []byte
	ttl    time.Duration
}

// NewCodec builds a Codec. ttl <= 0 falls back to DefaultTTL.
func NewCodec(secret string, ttl time.Duration) (*Codec, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, ErrNoSecret
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Codec{secret: []byte(secret), ttl: ttl}, nil
}

// TTL returns the configured session lifetime.
func (c *Codec) TTL() time.Duration {
	return c.ttl
}

// Issue signs a session token for the payload's provider/account pair.
// The sub claim is re-derived here so it can never drift from the pair.
func (c *Codec) Issue(p Payload) (string, error) {
	if p.Provider == "" || p.AccountID == "" {
		return "", ErrInvalid
	}
	now := time.Now().UTC()
	claims := sessionClaims{
		Provider:  p.Provider,
		AccountID: p.AccountID,
		RegisteredClaims: jwtv5.RegisteredClaims{
			Subject:   Subject(p.Provider, p.AccountID),
			IssuedAt:  jwtv5.NewNumericDate(now),
			NotBefore: jwtv5.NewNumericDate(now),
			ExpiresAt: jwtv5.NewNumericDate(now.Add(c.ttl)),
		},
	}
	tk := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims)
	tk.Header["typ"] = "JWT"
	return tk.SignedString(c.secret)
}

// Verify checks signature and expiry and returns the payload.
// Malformed and expired tokens come back as ErrInvalid/ErrExpired, never a panic.
func (c *Codec) Verify(token string) (*Payload, error) {
	if strings.TrimSpace(token) == "" {
		return nil, ErrInvalid
	}
	var claims sessionClaims
	tk, err := jwtv5.ParseWithClaims(token, &claims,
		func(*jwtv5.Token) (any, error) { return c.secret, nil },
		jwtv5.WithValidMethods([]string{"HS256"}),
	)
	if err != nil {
		if errors.Is(err, jwtv5.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, ErrInvalid
	}
	if !tk.Valid || claims.Provider == "" || claims.AccountID == "" {
		return nil, ErrInvalid
	}
	p := NewPayload(claims.Provider, claims.AccountID)
	return &p, nil
}

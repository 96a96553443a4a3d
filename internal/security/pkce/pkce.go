// Package pkce implements Proof Key for Code Exchange (RFC 7636) with the
// S256 challenge method.
package pkce

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"

	tokens "github.com/dropDatabas3/authcore/internal/security/token"
)

// Method is the only challenge method advertised to providers.
const Method = "S256"

// verifierBytes gives 43 base64url characters, the RFC 7636 minimum.
const verifierBytes = 32

// Pair is a verifier/challenge pair for one authorization attempt.
// The verifier stays with the initiating party (cookie); only the challenge
// travels to the provider during initiation.
type Pair struct {
	Verifier  string
	Challenge string
}

// Generate creates a fresh verifier and its S256 challenge.
func Generate() (Pair, error) {
	v, err := tokens.GenerateOpaqueToken(verifierBytes)
	if err != nil {
		return Pair{}, fmt.Errorf("generate code verifier: %w", err)
	}
	return Pair{Verifier: v, Challenge: Challenge(v)}, nil
}

// Challenge computes the S256 challenge for a verifier:
// base64url(sha256(verifier)) without padding.
func Challenge(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// Verify reports whether verifier hashes to challenge, in constant time.
func Verify(verifier, challenge string) bool {
	return subtle.ConstantTimeCompare([]byte(Challenge(verifier)), []byte(challenge)) == 1
}

package auth

import (
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// stateParam is the value round-tripped through the provider's state
// parameter. The provider id rides along so the callback can resolve the
// per-provider cookies before anything else; the nonce binds the callback
// to the browser that initiated the attempt.
type stateParam struct {
	Provider string `json:"provider"`
	State    string `json:"state"`
}

func encodeStateParam(provider, nonce string) string {
	b, _ := json.Marshal(stateParam{Provider: provider, State: nonce})
	return base64.RawURLEncoding.EncodeToString(b)
}

func decodeStateParam(raw string) (*stateParam, error) {
	b, err := base64.RawURLEncoding.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("decode state: %w", err)
	}
	var sp stateParam
	if err := json.Unmarshal(b, &sp); err != nil {
		return nil, fmt.Errorf("decode state: %w", err)
	}
	if sp.Provider == "" || sp.State == "" {
		return nil, fmt.Errorf("decode state: empty provider or nonce")
	}
	return &sp, nil
}

// Ephemeral cookie names are scoped per provider so two concurrent
// attempts against different providers do not clobber each other.
func stateCookieName(provider string) string { return "oauth_state_" + provider }
func pkceCookieName(provider string) string  { return "pkce_" + provider }

func nonceEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

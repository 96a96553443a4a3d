package auth

// MeResponse is the response for GET /auth/me.
// It mirrors the verified session payload, nothing more: the flow never
// stores profile data, so profile fields have no place here.
type MeResponse struct {
	Subject           string `json:"sub"`
	Provider          string `json:"provider"`
	ProviderAccountID string `json:"providerAccountId"`
}

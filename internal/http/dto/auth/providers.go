package auth

// ProvidersResponse is the response for GET /auth/providers. OAuth and
// trusted providers are listed separately because clients drive them
// differently: OAuth ids start a redirect, trusted names take a POST.
type ProvidersResponse struct {
	Providers []string `json:"providers"`
	Trusted   []string `json:"trusted"`
}

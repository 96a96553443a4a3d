// Package microsoft implements the Microsoft identity platform (Entra ID)
// descriptor. Endpoints are tenant-scoped when exactly one tenant is allowed;
// otherwise logins go through /common and the issued token's tenant claim is
// checked against the allow-list after the exchange.
package microsoft

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"

	"github.com/dropDatabas3/authcore/internal/oauth"
)

// ID is the provider identifier.
const ID = "microsoft"

const (
	defaultLoginBaseURL = "https://login.microsoftonline.com"
	defaultGraphBaseURL = "https://graph.microsoft.com"

	// commonTenant serves logins when zero or multiple tenants are allowed.
	commonTenant = "common"
)

// Descriptor is the Microsoft provider. Stateless; safe for concurrent use.
type Descriptor struct {
	loginBaseURL string
	graphBaseURL string
	http         *http.Client
}

// New creates the Microsoft descriptor with production endpoints.
func New() *Descriptor {
	return &Descriptor{
		loginBaseURL: defaultLoginBaseURL,
		graphBaseURL: defaultGraphBaseURL,
		http:         &http.Client{Timeout: 10 * time.Second},
	}
}

// ID implements oauth.Descriptor.
func (d *Descriptor) ID() string { return ID }

// tenantSegment picks the endpoint tenant: a single allowed tenant scopes the
// endpoints to it, anything else goes through /common.
func tenantSegment(cfg oauth.Config) string {
	if len(cfg.AllowedTenants) == 1 {
		return cfg.AllowedTenants[0]
	}
	return commonTenant
}

// AuthorizeURL implements oauth.Descriptor.
func (d *Descriptor) AuthorizeURL(cfg oauth.Config) string {
	return d.loginBaseURL + "/" + tenantSegment(cfg) + "/oauth2/v2.0/authorize"
}

// TokenURL implements oauth.Descriptor.
func (d *Descriptor) TokenURL(cfg oauth.Config) string {
	return d.loginBaseURL + "/" + tenantSegment(cfg) + "/oauth2/v2.0/token"
}

// DefaultScopes implements oauth.Descriptor.
func (d *Descriptor) DefaultScopes() []string {
	return []string{"openid", "profile", "email", "User.Read"}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	Scope       string `json:"scope"`
	ExpiresIn   int    `json:"expires_in"`
	IDToken     string `json:"id_token"`
}

// ExchangeCode implements oauth.Descriptor. After a /common exchange with two
// or more allowed tenants, the access token's tid claim must be in the list.
func (d *Descriptor) ExchangeCode(ctx context.Context, code, verifier, redirectURI string, cfg oauth.Config) (*oauth.Token, error) {
	form := url.Values{}
	form.Set("client_id", cfg.ClientID)
	form.Set("client_secret", cfg.ClientSecret)
	form.Set("code", code)
	form.Set("redirect_uri", redirectURI)
	form.Set("grant_type", "authorization_code")
	form.Set("code_verifier", verifier)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.TokenURL(cfg), strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", oauth.ErrExchangeFailed, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := d.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", oauth.ErrExchangeFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var b struct {
			Error            string `json:"error"`
			ErrorDescription string `json:"error_description"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&b)
		return nil, fmt.Errorf("%w: token http %d: %s %s", oauth.ErrExchangeFailed, resp.StatusCode, b.Error, b.ErrorDescription)
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, fmt.Errorf("%w: decode token response: %v", oauth.ErrExchangeFailed, err)
	}
	if tr.AccessToken == "" {
		return nil, fmt.Errorf("%w: no access_token in response", oauth.ErrExchangeFailed)
	}

	if err := checkTenant(tr.AccessToken, cfg.AllowedTenants); err != nil {
		return nil, err
	}

	return &oauth.Token{AccessToken: tr.AccessToken, TokenType: tr.TokenType, Scope: tr.Scope}, nil
}

// checkTenant enforces the allow-list for /common logins. With zero entries
// any tenant is accepted; with one the endpoint itself is already scoped.
func checkTenant(accessToken string, allowed []string) error {
	if len(allowed) < 2 {
		return nil
	}
	tid := tenantClaim(accessToken)
	if tid == "" {
		return fmt.Errorf("%w: token has no tid claim", oauth.ErrTenantRejected)
	}
	for _, t := range allowed {
		if t == tid {
			return nil
		}
	}
	return fmt.Errorf("%w: tenant %s not in allow-list", oauth.ErrTenantRejected, tid)
}

// tenantClaim decodes the tid claim without verifying the signature. The
// token was just received from the token endpoint over TLS; only routing
// information is read from it.
func tenantClaim(accessToken string) string {
	claims := jwtv5.MapClaims{}
	parser := jwtv5.NewParser()
	if _, _, err := parser.ParseUnverified(accessToken, claims); err != nil {
		return ""
	}
	tid, _ := claims["tid"].(string)
	return tid
}

type meResponse struct {
	ID                string `json:"id"`
	DisplayName       string `json:"displayName"`
	Mail              string `json:"mail"`
	UserPrincipalName string `json:"userPrincipalName"`
}

// FetchUser implements oauth.Descriptor. /me is authoritative; the photo
// lookup is best effort and degrades the avatar to null on any failure.
func (d *Descriptor) FetchUser(ctx context.Context, accessToken string) (*oauth.User, error) {
	body, err := d.graphGet(ctx, "/v1.0/me", accessToken, "")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", oauth.ErrUserFetchFailed, err)
	}

	var me meResponse
	if err := json.Unmarshal(body, &me); err != nil {
		return nil, fmt.Errorf("%w: decode me: %v", oauth.ErrUserFetchFailed, err)
	}
	if me.ID == "" {
		return nil, fmt.Errorf("%w: me response has no id", oauth.ErrUserFetchFailed)
	}
	var raw map[string]any
	_ = json.Unmarshal(body, &raw)

	email := me.Mail
	if email == "" {
		email = me.UserPrincipalName
	}

	return &oauth.User{
		Provider:  ID,
		AccountID: me.ID,
		Email:     oauth.StringPtr(email),
		Name:      oauth.StringPtr(me.DisplayName),
		Avatar:    oauth.StringPtr(d.lookupPhoto(ctx, accessToken)),
		Raw:       raw,
	}, nil
}

// lookupPhoto fetches the small profile photo and inlines it as a data URI.
// Returns "" on any failure (no photo set, permission missing, network).
func (d *Descriptor) lookupPhoto(ctx context.Context, accessToken string) string {
	body, err := d.graphGet(ctx, "/v1.0/me/photos/48x48/$value", accessToken, "image/jpeg")
	if err != nil || len(body) == 0 {
		return ""
	}
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(body)
}

func (d *Descriptor) graphGet(ctx context.Context, path, accessToken, accept string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.graphBaseURL+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	if accept != "" {
		req.Header.Set("Accept", accept)
	}

	resp, err := d.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("graph status %d for %s", resp.StatusCode, path)
	}
	return io.ReadAll(io.LimitReader(resp.Body, 1<<20))
}

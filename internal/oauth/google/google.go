// Package google implements the Google OAuth 2.0 / OpenID Connect descriptor.
// Identity comes from the userinfo endpoint; the id_token is only read for
// the hosted-domain claim when a Workspace allow-list is configured.
package google

import (
	"context"
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
const ID = "google"

const (
	defaultAuthorizeURL = "https://accounts.google.com/o/oauth2/v2/auth"
	defaultTokenURL     = "https://oauth2.googleapis.com/token"
	defaultUserinfoURL  = "https://openidconnect.googleapis.com/v1/userinfo"
)

// Descriptor is the Google provider. Stateless; safe for concurrent use.
type Descriptor struct {
	authorizeURL string
	tokenURL     string
	userinfoURL  string
	http         *http.Client
}

// New creates the Google descriptor with production endpoints.
func New() *Descriptor {
	return &Descriptor{
		authorizeURL: defaultAuthorizeURL,
		tokenURL:     defaultTokenURL,
		userinfoURL:  defaultUserinfoURL,
		http:         &http.Client{Timeout: 10 * time.Second},
	}
}

// ID implements oauth.Descriptor.
func (d *Descriptor) ID() string { return ID }

// AuthorizeURL implements oauth.Descriptor. Google serves every account
// through the same endpoints; Workspace restrictions are enforced after the
// exchange.
func (d *Descriptor) AuthorizeURL(oauth.Config) string { return d.authorizeURL }

// TokenURL implements oauth.Descriptor.
func (d *Descriptor) TokenURL(oauth.Config) string { return d.tokenURL }

// DefaultScopes implements oauth.Descriptor.
func (d *Descriptor) DefaultScopes() []string {
	return []string{"openid", "email", "profile"}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	Scope       string `json:"scope"`
	ExpiresIn   int    `json:"expires_in"`
	IDToken     string `json:"id_token"`
}

// ExchangeCode implements oauth.Descriptor. With a configured allow-list the
// id_token's hd claim (the Workspace hosted domain) must be in it.
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

	if err := checkHostedDomain(tr.IDToken, cfg.AllowedTenants); err != nil {
		return nil, err
	}

	return &oauth.Token{AccessToken: tr.AccessToken, TokenType: tr.TokenType, Scope: tr.Scope}, nil
}

// checkHostedDomain enforces the Workspace allow-list. Personal accounts
// carry no hd claim and are rejected whenever a list is configured.
func checkHostedDomain(idToken string, allowed []string) error {
	if len(allowed) == 0 {
		return nil
	}
	hd := hostedDomainClaim(idToken)
	if hd == "" {
		return fmt.Errorf("%w: id_token has no hd claim", oauth.ErrTenantRejected)
	}
	for _, a := range allowed {
		if strings.EqualFold(a, hd) {
			return nil
		}
	}
	return fmt.Errorf("%w: domain %s not in allow-list", oauth.ErrTenantRejected, hd)
}

// hostedDomainClaim decodes the hd claim without verifying the signature.
// The token was just received from the token endpoint over TLS; only routing
// information is read from it.
func hostedDomainClaim(idToken string) string {
	if idToken == "" {
		return ""
	}
	claims := jwtv5.MapClaims{}
	parser := jwtv5.NewParser()
	if _, _, err := parser.ParseUnverified(idToken, claims); err != nil {
		return ""
	}
	hd, _ := claims["hd"].(string)
	return hd
}

type userinfoResponse struct {
	Sub           string `json:"sub"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Picture       string `json:"picture"`
}

// FetchUser implements oauth.Descriptor.
func (d *Descriptor) FetchUser(ctx context.Context, accessToken string) (*oauth.User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.userinfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", oauth.ErrUserFetchFailed, err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := d.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", oauth.ErrUserFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: userinfo status %d", oauth.ErrUserFetchFailed, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", oauth.ErrUserFetchFailed, err)
	}

	var u userinfoResponse
	if err := json.Unmarshal(body, &u); err != nil {
		return nil, fmt.Errorf("%w: decode userinfo: %v", oauth.ErrUserFetchFailed, err)
	}
	if u.Sub == "" {
		return nil, fmt.Errorf("%w: userinfo has no sub", oauth.ErrUserFetchFailed)
	}
	var raw map[string]any
	_ = json.Unmarshal(body, &raw)

	return &oauth.User{
		Provider:  ID,
		AccountID: u.Sub,
		Email:     oauth.StringPtr(u.Email),
		Name:      oauth.StringPtr(u.Name),
		Avatar:    oauth.StringPtr(u.Picture),
		Raw:       raw,
	}, nil
}

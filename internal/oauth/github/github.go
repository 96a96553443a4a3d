// Package github implements the GitHub OAuth 2.0 descriptor.
// GitHub issues plain OAuth tokens without ID tokens, so user identity comes
// from the REST API, with a secondary call for users whose email is private.
package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dropDatabas3/authcore/internal/oauth"
)

// ID is the provider identifier.
const ID = "github"

const (
	defaultBaseURL    = "https://github.com"
	defaultAPIBaseURL = "https://api.github.com"
)

// Descriptor is the GitHub provider. Stateless; safe for concurrent use.
type Descriptor struct {
	baseURL    string
	apiBaseURL string
	http       *http.Client
}

// New creates the GitHub descriptor with production endpoints.
func New() *Descriptor {
	return &Descriptor{
		baseURL:    defaultBaseURL,
		apiBaseURL: defaultAPIBaseURL,
		http:       &http.Client{Timeout: 10 * time.Second},
	}
}

// ID implements oauth.Descriptor.
func (d *Descriptor) ID() string { return ID }

// AuthorizeURL implements oauth.Descriptor. GitHub has a single tenant, so
// the config never changes the endpoint.
func (d *Descriptor) AuthorizeURL(oauth.Config) string {
	return d.baseURL + "/login/oauth/authorize"
}

// TokenURL implements oauth.Descriptor.
func (d *Descriptor) TokenURL(oauth.Config) string {
	return d.baseURL + "/login/oauth/access_token"
}

// DefaultScopes implements oauth.Descriptor.
func (d *Descriptor) DefaultScopes() []string {
	return []string{"read:user", "user:email"}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	Scope       string `json:"scope"`
	Error       string `json:"error,omitempty"`
	ErrorDesc   string `json:"error_description,omitempty"`
}

// ExchangeCode implements oauth.Descriptor. GitHub answers errors with a 200
// and an error field in the JSON body, so both channels are checked.
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
	req.Header.Set("Accept", "application/json")

	resp, err := d.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", oauth.ErrExchangeFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("%w: token endpoint status %d: %s", oauth.ErrExchangeFailed, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, fmt.Errorf("%w: decode token response: %v", oauth.ErrExchangeFailed, err)
	}
	if tr.Error != "" {
		return nil, fmt.Errorf("%w: %s %s", oauth.ErrExchangeFailed, tr.Error, tr.ErrorDesc)
	}
	if tr.AccessToken == "" {
		return nil, fmt.Errorf("%w: no access_token in response", oauth.ErrExchangeFailed)
	}

	return &oauth.Token{AccessToken: tr.AccessToken, TokenType: tr.TokenType, Scope: tr.Scope}, nil
}

type userResponse struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar_url"`
}

type emailResponse struct {
	Email    string `json:"email"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}

// FetchUser implements oauth.Descriptor. The /user call is authoritative; the
// /user/emails call is best effort and only runs when the profile email is
// private. Its failure degrades email to null instead of failing the login.
func (d *Descriptor) FetchUser(ctx context.Context, accessToken string) (*oauth.User, error) {
	body, err := d.apiGet(ctx, "/user", accessToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", oauth.ErrUserFetchFailed, err)
	}

	var u userResponse
	if err := json.Unmarshal(body, &u); err != nil {
		return nil, fmt.Errorf("%w: decode user: %v", oauth.ErrUserFetchFailed, err)
	}
	var raw map[string]any
	_ = json.Unmarshal(body, &raw)

	email := u.Email
	if email == "" {
		email = d.lookupEmail(ctx, accessToken)
	}

	return &oauth.User{
		Provider:  ID,
		AccountID: strconv.FormatInt(u.ID, 10),
		Email:     oauth.StringPtr(email),
		Name:      oauth.StringPtr(u.Name),
		Avatar:    oauth.StringPtr(u.AvatarURL),
		Raw:       raw,
	}, nil
}

// lookupEmail resolves the best candidate from /user/emails:
// primary+verified, then primary, then the first entry. Any failure returns
// "" so the caller degrades the field to null.
func (d *Descriptor) lookupEmail(ctx context.Context, accessToken string) string {
	body, err := d.apiGet(ctx, "/user/emails", accessToken)
	if err != nil {
		return ""
	}
	var emails []emailResponse
	if err := json.Unmarshal(body, &emails); err != nil {
		return ""
	}
	for _, e := range emails {
		if e.Primary && e.Verified {
			return e.Email
		}
	}
	for _, e := range emails {
		if e.Primary {
			return e.Email
		}
	}
	if len(emails) > 0 {
		return emails[0].Email
	}
	return ""
}

func (d *Descriptor) apiGet(ctx context.Context, path, accessToken string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.apiBaseURL+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := d.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("github api status %d for %s", resp.StatusCode, path)
	}
	return io.ReadAll(io.LimitReader(resp.Body, 1<<20))
}

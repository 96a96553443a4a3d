package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/authcore/internal/oauth"
	"github.com/dropDatabas3/authcore/internal/security/origin"
	"github.com/dropDatabas3/authcore/internal/security/pkce"
	"github.com/dropDatabas3/authcore/internal/session"
	"github.com/dropDatabas3/authcore/internal/trusted"
)

const (
	testBaseURL = "https://app.example.com"
	testSecret  = "0123456789abcdef0123456789abcdef"
)

type fakeDescriptor struct {
	id       string
	scopes   []string
	exchange func(ctx context.Context, code, verifier, redirectURI string, cfg oauth.Config) (*oauth.Token, error)
	fetch    func(ctx context.Context, accessToken string) (*oauth.User, error)

	exchangeCalls int
	fetchCalls    int
}

func (f *fakeDescriptor) ID() string                       { return f.id }
func (f *fakeDescriptor) AuthorizeURL(oauth.Config) string { return "https://idp.example.com/authorize" }
func (f *fakeDescriptor) TokenURL(oauth.Config) string     { return "https://idp.example.com/token" }
func (f *fakeDescriptor) DefaultScopes() []string          { return f.scopes }

func (f *fakeDescriptor) ExchangeCode(ctx context.Context, code, verifier, redirectURI string, cfg oauth.Config) (*oauth.Token, error) {
	f.exchangeCalls++
	if f.exchange != nil {
		return f.exchange(ctx, code, verifier, redirectURI, cfg)
	}
	return &oauth.Token{AccessToken: "at-test", TokenType: "bearer"}, nil
}

func (f *fakeDescriptor) FetchUser(ctx context.Context, accessToken string) (*oauth.User, error) {
	f.fetchCalls++
	if f.fetch != nil {
		return f.fetch(ctx, accessToken)
	}
	return &oauth.User{Provider: f.id, AccountID: "acct-1"}, nil
}

type env struct {
	svc   FlowService
	desc  *fakeDescriptor
	codec *session.Codec

	trustedCalls  int
	gotArgs       [][]any
	trustedResult *oauth.User
	trustedErr    error
}

func newEnv(t *testing.T, mutate ...func(*Deps)) *env {
	t.Helper()
	e := &env{
		desc:          &fakeDescriptor{id: "fake", scopes: []string{"email", "profile"}},
		trustedResult: &oauth.User{Provider: "pw", AccountID: "alice-1"},
	}
	codec, err := session.NewCodec(testSecret, time.Hour)
	require.NoError(t, err)
	e.codec = codec

	tr := trusted.NewRegistry()
	require.NoError(t, tr.Register("pw", func(ctx context.Context, args []any) (*oauth.User, error) {
		e.trustedCalls++
		e.gotArgs = append(e.gotArgs, args)
		return e.trustedResult, e.trustedErr
	}))

	d := Deps{
		BaseURL:   testBaseURL,
		Providers: oauth.NewRegistry(e.desc),
		Configs: map[string]oauth.Config{
			"fake": {ClientID: "cid", ClientSecret: "csec", Scopes: []string{"extra"}},
		},
		Trusted:  tr,
		Sessions: codec,
		Cookie:   SessionCookieConfig{Name: "sid", Path: "/", SameSite: "lax", HTTPOnly: true, TTL: time.Hour},
	}
	for _, m := range mutate {
		m(&d)
	}
	e.svc, err = NewFlowService(d)
	require.NoError(t, err)
	return e
}

func findCookie(cs []*http.Cookie, name string) *http.Cookie {
	for _, c := range cs {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func callbackRequest(provider, nonce, verifier, state, code string) *http.Request {
	v := url.Values{}
	if code != "" {
		v.Set("code", code)
	}
	if state != "" {
		v.Set("state", state)
	}
	r := httptest.NewRequest(http.MethodGet, "/auth/callback?"+v.Encode(), nil)
	if nonce != "" {
		r.AddCookie(&http.Cookie{Name: stateCookieName(provider), Value: nonce})
	}
	if verifier != "" {
		r.AddCookie(&http.Cookie{Name: pkceCookieName(provider), Value: verifier})
	}
	return r
}

func TestInitiateOAuth(t *testing.T) {
	e := newEnv(t)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/auth/initiate?provider=fake", nil)

	res, err := e.svc.Initiate(rec, req)
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Nil(t, res.User)

	loc, err := url.Parse(res.RedirectURL)
	require.NoError(t, err)
	assert.Equal(t, "idp.example.com", loc.Host)
	assert.Equal(t, "/authorize", loc.Path)

	q := loc.Query()
	assert.Equal(t, "cid", q.Get("client_id"))
	assert.Equal(t, testBaseURL+"/auth/callback", q.Get("redirect_uri"))
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "email profile extra", q.Get("scope"), "defaults first, then configured extras")
	assert.Equal(t, "S256", q.Get("code_challenge_method"))

	cookies := rec.Result().Cookies()
	stateCk := findCookie(cookies, "oauth_state_fake")
	pkceCk := findCookie(cookies, "pkce_fake")
	require.NotNil(t, stateCk)
	require.NotNil(t, pkceCk)
	for _, c := range []*http.Cookie{stateCk, pkceCk} {
		assert.True(t, c.HttpOnly, c.Name)
		assert.True(t, c.Secure, c.Name)
		assert.Equal(t, "/auth/callback", c.Path, c.Name)
		assert.Equal(t, 300, c.MaxAge, c.Name)
	}

	sp, err := decodeStateParam(q.Get("state"))
	require.NoError(t, err)
	assert.Equal(t, "fake", sp.Provider)
	assert.Equal(t, stateCk.Value, sp.State, "state parameter carries the cookie nonce")
	assert.Equal(t, pkce.Challenge(pkceCk.Value), q.Get("code_challenge"),
		"challenge derives from the verifier cookie")

	assert.Nil(t, findCookie(cookies, "sid"), "no session before the callback")
}

func TestInitiateOAuthRedirectOverride(t *testing.T) {
	e := newEnv(t, func(d *Deps) {
		cfg := d.Configs["fake"]
		cfg.RedirectURI = "https://other.example.com/cb"
		d.Configs["fake"] = cfg
	})
	rec := httptest.NewRecorder()
	res, err := e.svc.Initiate(rec, httptest.NewRequest(http.MethodGet, "/auth/initiate?provider=fake", nil))
	require.NoError(t, err)

	loc, err := url.Parse(res.RedirectURL)
	require.NoError(t, err)
	assert.Equal(t, "https://other.example.com/cb", loc.Query().Get("redirect_uri"))
}

func TestInitiateDispatch(t *testing.T) {
	t.Run("missing_provider", func(t *testing.T) {
		e := newEnv(t)
		_, err := e.svc.Initiate(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/auth/initiate", nil))
		assert.ErrorIs(t, err, ErrMissingProvider)
	})
	t.Run("unknown_provider", func(t *testing.T) {
		e := newEnv(t)
		_, err := e.svc.Initiate(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/auth/initiate?provider=ghost", nil))
		assert.ErrorIs(t, err, ErrUnknownProvider)
	})
	t.Run("registered_without_config", func(t *testing.T) {
		e := newEnv(t, func(d *Deps) { d.Configs = map[string]oauth.Config{} })
		_, err := e.svc.Initiate(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/auth/initiate?provider=fake", nil))
		assert.ErrorIs(t, err, ErrProviderNotConfigured)
	})
}

func TestInitiateTrusted(t *testing.T) {
	post := func(body string) *http.Request {
		r := httptest.NewRequest(http.MethodPost, "/auth/initiate?provider=pw", strings.NewReader(body))
		r.Header.Set("Origin", testBaseURL)
		r.Header.Set("Content-Type", "application/json")
		return r
	}

	t.Run("success_issues_session", func(t *testing.T) {
		e := newEnv(t)
		rec := httptest.NewRecorder()
		res, err := e.svc.Initiate(rec, post(`{"args":["alice","s3cret"]}`))
		require.NoError(t, err)
		require.NotNil(t, res.User)
		assert.Equal(t, "pw", res.User.Provider)
		assert.Empty(t, res.RedirectURL)

		require.Equal(t, 1, e.trustedCalls)
		assert.Equal(t, []any{"alice", "s3cret"}, e.gotArgs[0])

		sid := findCookie(rec.Result().Cookies(), "sid")
		require.NotNil(t, sid)
		p, err := e.codec.Verify(sid.Value)
		require.NoError(t, err)
		assert.Equal(t, "pw:alice-1", p.Subject)
	})

	t.Run("get_rejected", func(t *testing.T) {
		e := newEnv(t)
		r := httptest.NewRequest(http.MethodGet, "/auth/initiate?provider=pw", nil)
		r.Header.Set("Origin", testBaseURL)
		_, err := e.svc.Initiate(httptest.NewRecorder(), r)
		assert.ErrorIs(t, err, ErrMethodNotAllowed)
		assert.Zero(t, e.trustedCalls)
	})

	t.Run("cross_origin_never_reaches_authenticate", func(t *testing.T) {
		e := newEnv(t)
		r := post(`{"args":["alice","s3cret"]}`)
		r.Header.Set("Origin", "https://evil.example.com")
		rec := httptest.NewRecorder()
		_, err := e.svc.Initiate(rec, r)
		assert.ErrorIs(t, err, origin.ErrMismatch)
		assert.Zero(t, e.trustedCalls)
		assert.Nil(t, findCookie(rec.Result().Cookies(), "sid"))
	})

	t.Run("cross_site_referer_rejected", func(t *testing.T) {
		e := newEnv(t)
		r := post(`{"args":["alice","s3cret"]}`)
		r.Header.Del("Origin")
		r.Header.Set("Referer", "https://evil.example.com/login")
		_, err := e.svc.Initiate(httptest.NewRecorder(), r)
		assert.ErrorIs(t, err, origin.ErrMismatch)
		assert.Zero(t, e.trustedCalls)
	})

	t.Run("nil_result_is_authentication_failure", func(t *testing.T) {
		e := newEnv(t)
		e.trustedResult = nil
		rec := httptest.NewRecorder()
		_, err := e.svc.Initiate(rec, post(`{"args":["alice","wrong"]}`))
		assert.ErrorIs(t, err, ErrAuthenticationFailed)
		assert.Nil(t, findCookie(rec.Result().Cookies(), "sid"))
	})

	t.Run("error_is_authentication_failure", func(t *testing.T) {
		e := newEnv(t)
		e.trustedResult = nil
		e.trustedErr = errors.New("directory unavailable")
		_, err := e.svc.Initiate(httptest.NewRecorder(), post(`{"args":["alice","s3cret"]}`))
		assert.ErrorIs(t, err, ErrAuthenticationFailed)
	})

	t.Run("missing_body_means_empty_args", func(t *testing.T) {
		e := newEnv(t)
		r := httptest.NewRequest(http.MethodPost, "/auth/initiate?provider=pw", nil)
		r.Header.Set("Origin", testBaseURL)
		_, err := e.svc.Initiate(httptest.NewRecorder(), r)
		require.NoError(t, err)
		require.Equal(t, 1, e.trustedCalls)
		assert.Empty(t, e.gotArgs[0])
	})

	t.Run("garbage_body_means_empty_args", func(t *testing.T) {
		e := newEnv(t)
		_, err := e.svc.Initiate(httptest.NewRecorder(), post(`this is not json`))
		require.NoError(t, err)
		require.Equal(t, 1, e.trustedCalls)
		assert.Empty(t, e.gotArgs[0])
	})
}

func TestCompleteSuccess(t *testing.T) {
	e := newEnv(t)
	var gotCode, gotVerifier, gotRedirect, gotToken string
	e.desc.exchange = func(_ context.Context, code, verifier, redirectURI string, cfg oauth.Config) (*oauth.Token, error) {
		gotCode, gotVerifier, gotRedirect = code, verifier, redirectURI
		assert.Equal(t, "cid", cfg.ClientID)
		return &oauth.Token{AccessToken: "at-42", TokenType: "bearer"}, nil
	}
	e.desc.fetch = func(_ context.Context, accessToken string) (*oauth.User, error) {
		gotToken = accessToken
		return &oauth.User{Provider: "fake", AccountID: "acct-9"}, nil
	}

	nonce := "nonce-1234567890"
	verifier := "verifier-1234567890"
	rec := httptest.NewRecorder()
	req := callbackRequest("fake", nonce, verifier, encodeStateParam("fake", nonce), "code-7")

	res, err := e.svc.Complete(rec, req)
	require.NoError(t, err)
	require.NotNil(t, res.User)
	assert.Equal(t, "acct-9", res.User.AccountID)

	assert.Equal(t, "code-7", gotCode)
	assert.Equal(t, verifier, gotVerifier, "verifier comes from the cookie, not the wire")
	assert.Equal(t, testBaseURL+"/auth/callback", gotRedirect)
	assert.Equal(t, "at-42", gotToken)

	cookies := rec.Result().Cookies()
	for _, name := range []string{"oauth_state_fake", "pkce_fake"} {
		del := findCookie(cookies, name)
		require.NotNil(t, del, name)
		assert.Empty(t, del.Value, name)
		assert.Less(t, del.MaxAge, 0, name)
	}
	sid := findCookie(cookies, "sid")
	require.NotNil(t, sid)
	p, err := e.codec.Verify(sid.Value)
	require.NoError(t, err)
	assert.Equal(t, "fake:acct-9", p.Subject)
}

func TestCompleteFailures(t *testing.T) {
	nonce := "nonce-abc"
	verifier := "verifier-abc"

	cases := []struct {
		name       string
		req        func() *http.Request
		wantErr    error
		deletedFor string
		wantDetail string
	}{
		{
			name: "provider_error_param",
			req: func() *http.Request {
				return httptest.NewRequest(http.MethodGet,
					"/auth/callback?error=access_denied&error_description=user+said+no", nil)
			},
			wantErr:    ErrProviderError,
			wantDetail: "access_denied: user said no",
		},
		{
			name: "missing_code",
			req: func() *http.Request {
				return callbackRequest("fake", nonce, verifier, encodeStateParam("fake", nonce), "")
			},
			wantErr: ErrMissingCode,
		},
		{
			name: "missing_state",
			req: func() *http.Request {
				return callbackRequest("fake", nonce, verifier, "", "code-1")
			},
			wantErr: ErrMissingState,
		},
		{
			name: "malformed_state",
			req: func() *http.Request {
				return callbackRequest("fake", nonce, verifier, "!!!not-base64!!!", "code-1")
			},
			wantErr: ErrInvalidState,
		},
		{
			name: "nonce_mismatch",
			req: func() *http.Request {
				return callbackRequest("fake", "different-nonce", verifier, encodeStateParam("fake", nonce), "code-1")
			},
			wantErr:    ErrInvalidState,
			deletedFor: "fake",
		},
		{
			name: "missing_state_cookie",
			req: func() *http.Request {
				return callbackRequest("fake", "", verifier, encodeStateParam("fake", nonce), "code-1")
			},
			wantErr:    ErrInvalidState,
			deletedFor: "fake",
		},
		{
			name: "missing_verifier_cookie",
			req: func() *http.Request {
				return callbackRequest("fake", nonce, "", encodeStateParam("fake", nonce), "code-1")
			},
			wantErr:    ErrInvalidState,
			deletedFor: "fake",
		},
		{
			name: "unknown_provider_in_state",
			req: func() *http.Request {
				return callbackRequest("ghost", nonce, verifier, encodeStateParam("ghost", nonce), "code-1")
			},
			wantErr:    ErrUnknownProvider,
			deletedFor: "ghost",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := newEnv(t)
			rec := httptest.NewRecorder()
			res, err := e.svc.Complete(rec, tc.req())
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.wantErr)
			assert.Nil(t, res)
			assert.Zero(t, e.desc.exchangeCalls, "exchange must not run")
			if tc.wantDetail != "" {
				assert.Contains(t, err.Error(), tc.wantDetail)
			}

			cookies := rec.Result().Cookies()
			if tc.deletedFor != "" {
				for _, name := range []string{stateCookieName(tc.deletedFor), pkceCookieName(tc.deletedFor)} {
					del := findCookie(cookies, name)
					require.NotNil(t, del, name)
					assert.Less(t, del.MaxAge, 0, name)
				}
			}
			assert.Nil(t, findCookie(cookies, "sid"))
		})
	}
}

func TestCompleteUpstreamFailures(t *testing.T) {
	nonce := "nonce-up"
	verifier := "verifier-up"
	ok := func() *http.Request {
		return callbackRequest("fake", nonce, verifier, encodeStateParam("fake", nonce), "code-1")
	}

	t.Run("exchange_failed", func(t *testing.T) {
		e := newEnv(t)
		e.desc.exchange = func(context.Context, string, string, string, oauth.Config) (*oauth.Token, error) {
			return nil, fmt.Errorf("%w: status 400", oauth.ErrExchangeFailed)
		}
		rec := httptest.NewRecorder()
		_, err := e.svc.Complete(rec, ok())
		assert.ErrorIs(t, err, oauth.ErrExchangeFailed)
		assert.Zero(t, e.desc.fetchCalls)
		assert.Nil(t, findCookie(rec.Result().Cookies(), "sid"))
		assert.NotNil(t, findCookie(rec.Result().Cookies(), "oauth_state_fake"), "attempt still consumed")
	})

	t.Run("tenant_rejected", func(t *testing.T) {
		e := newEnv(t)
		e.desc.exchange = func(context.Context, string, string, string, oauth.Config) (*oauth.Token, error) {
			return nil, fmt.Errorf("%w: tenant not allowed", oauth.ErrTenantRejected)
		}
		_, err := e.svc.Complete(httptest.NewRecorder(), ok())
		assert.ErrorIs(t, err, oauth.ErrTenantRejected)
	})

	t.Run("user_fetch_failed", func(t *testing.T) {
		e := newEnv(t)
		e.desc.fetch = func(context.Context, string) (*oauth.User, error) {
			return nil, fmt.Errorf("%w: status 503", oauth.ErrUserFetchFailed)
		}
		rec := httptest.NewRecorder()
		_, err := e.svc.Complete(rec, ok())
		assert.ErrorIs(t, err, oauth.ErrUserFetchFailed)
		assert.Nil(t, findCookie(rec.Result().Cookies(), "sid"))
	})
}

func TestCompleteWithoutSessionConfig(t *testing.T) {
	e := newEnv(t, func(d *Deps) { d.Sessions = nil })
	nonce := "nonce-nosess"
	rec := httptest.NewRecorder()
	res, err := e.svc.Complete(rec, callbackRequest("fake", nonce, "verifier-x", encodeStateParam("fake", nonce), "code-1"))
	require.NoError(t, err)
	require.NotNil(t, res.User)
	assert.Nil(t, findCookie(rec.Result().Cookies(), "sid"), "no session config, no cookie")
}

func TestCompleteErrorHook(t *testing.T) {
	t.Run("fires_on_failure", func(t *testing.T) {
		errCh := make(chan error, 1)
		e := newEnv(t, func(d *Deps) {
			d.OnError = func(_ context.Context, err error) { errCh <- err }
		})
		req := callbackRequest("fake", "other", "verifier-x", encodeStateParam("fake", "nonce-x"), "code-1")
		_, err := e.svc.Complete(httptest.NewRecorder(), req)
		require.Error(t, err)

		select {
		case hookErr := <-errCh:
			assert.ErrorIs(t, hookErr, ErrInvalidState)
		case <-time.After(2 * time.Second):
			t.Fatal("error hook was not invoked")
		}
	})

	t.Run("silent_on_success", func(t *testing.T) {
		errCh := make(chan error, 1)
		e := newEnv(t, func(d *Deps) {
			d.OnError = func(_ context.Context, err error) { errCh <- err }
		})
		nonce := "nonce-ok"
		_, err := e.svc.Complete(httptest.NewRecorder(),
			callbackRequest("fake", nonce, "verifier-x", encodeStateParam("fake", nonce), "code-1"))
		require.NoError(t, err)

		select {
		case hookErr := <-errCh:
			t.Fatalf("error hook invoked on success: %v", hookErr)
		case <-time.After(100 * time.Millisecond):
		}
	})

	t.Run("hook_panic_is_contained", func(t *testing.T) {
		done := make(chan struct{})
		e := newEnv(t, func(d *Deps) {
			d.OnError = func(context.Context, error) {
				defer close(done)
				panic("hook blew up")
			}
		})
		req := callbackRequest("fake", "other", "verifier-x", encodeStateParam("fake", "nonce-x"), "code-1")
		_, err := e.svc.Complete(httptest.NewRecorder(), req)
		require.Error(t, err)
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("hook never ran")
		}
	})
}

func TestPostAuthHook(t *testing.T) {
	post := func() *http.Request {
		r := httptest.NewRequest(http.MethodPost, "/auth/initiate?provider=pw",
			strings.NewReader(`{"args":["alice","s3cret"]}`))
		r.Header.Set("Origin", testBaseURL)
		return r
	}

	t.Run("remaps_user_before_session", func(t *testing.T) {
		e := newEnv(t, func(d *Deps) {
			d.PostAuth = func(_ context.Context, u *oauth.User) (*oauth.User, error) {
				return &oauth.User{Provider: u.Provider, AccountID: "internal-7"}, nil
			}
		})
		rec := httptest.NewRecorder()
		res, err := e.svc.Initiate(rec, post())
		require.NoError(t, err)
		assert.Equal(t, "internal-7", res.User.AccountID)

		sid := findCookie(rec.Result().Cookies(), "sid")
		require.NotNil(t, sid)
		p, err := e.codec.Verify(sid.Value)
		require.NoError(t, err)
		assert.Equal(t, "pw:internal-7", p.Subject)
	})

	t.Run("nil_keeps_original", func(t *testing.T) {
		e := newEnv(t, func(d *Deps) {
			d.PostAuth = func(context.Context, *oauth.User) (*oauth.User, error) { return nil, nil }
		})
		res, err := e.svc.Initiate(httptest.NewRecorder(), post())
		require.NoError(t, err)
		assert.Equal(t, "alice-1", res.User.AccountID)
	})

	t.Run("hook_error_fails_login", func(t *testing.T) {
		e := newEnv(t, func(d *Deps) {
			d.PostAuth = func(context.Context, *oauth.User) (*oauth.User, error) {
				return nil, errors.New("account suspended")
			}
		})
		rec := httptest.NewRecorder()
		_, err := e.svc.Initiate(rec, post())
		require.Error(t, err)
		assert.Nil(t, findCookie(rec.Result().Cookies(), "sid"))
	})
}

func TestAuthorize(t *testing.T) {
	e := newEnv(t)
	issue := func(t *testing.T, provider, account string) string {
		t.Helper()
		tk, err := e.codec.Issue(session.NewPayload(provider, account))
		require.NoError(t, err)
		return tk
	}

	t.Run("no_credential_optional", func(t *testing.T) {
		p, err := e.svc.Authorize(httptest.NewRequest(http.MethodGet, "/auth/me", nil), false)
		require.NoError(t, err)
		assert.Nil(t, p)
	})

	t.Run("no_credential_required", func(t *testing.T) {
		_, err := e.svc.Authorize(httptest.NewRequest(http.MethodGet, "/auth/me", nil), true)
		assert.ErrorIs(t, err, ErrNoSession)
	})

	t.Run("cookie_credential", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
		r.AddCookie(&http.Cookie{Name: "sid", Value: issue(t, "fake", "acct-1")})
		p, err := e.svc.Authorize(r, true)
		require.NoError(t, err)
		assert.Equal(t, "fake:acct-1", p.Subject)
	})

	t.Run("bearer_wins_over_cookie", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
		r.Header.Set("Authorization", "Bearer "+issue(t, "fake", "header-1"))
		r.AddCookie(&http.Cookie{Name: "sid", Value: issue(t, "fake", "cookie-1")})
		p, err := e.svc.Authorize(r, true)
		require.NoError(t, err)
		assert.Equal(t, "header-1", p.AccountID)
	})

	t.Run("invalid_token_required", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
		r.AddCookie(&http.Cookie{Name: "sid", Value: "garbage"})
		_, err := e.svc.Authorize(r, true)
		assert.ErrorIs(t, err, session.ErrInvalid)
	})

	t.Run("invalid_token_optional", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
		r.AddCookie(&http.Cookie{Name: "sid", Value: "garbage"})
		p, err := e.svc.Authorize(r, false)
		require.NoError(t, err)
		assert.Nil(t, p)
	})

	t.Run("expired_token_required", func(t *testing.T) {
		short, err := session.NewCodec(testSecret, time.Nanosecond)
		require.NoError(t, err)
		se := newEnv(t, func(d *Deps) { d.Sessions = short })
		tk, err := short.Issue(session.NewPayload("fake", "acct-1"))
		require.NoError(t, err)
		time.Sleep(10 * time.Millisecond)

		r := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
		r.Header.Set("Authorization", "Bearer "+tk)
		_, err = se.svc.Authorize(r, true)
		assert.ErrorIs(t, err, session.ErrExpired)
	})

	t.Run("no_session_config_fails_even_optional", func(t *testing.T) {
		ne := newEnv(t, func(d *Deps) { d.Sessions = nil })
		_, err := ne.svc.Authorize(httptest.NewRequest(http.MethodGet, "/auth/me", nil), false)
		assert.ErrorIs(t, err, session.ErrNoSecret)
	})
}

func TestLogout(t *testing.T) {
	t.Run("clears_cookie", func(t *testing.T) {
		e := newEnv(t)
		r := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
		r.Header.Set("Origin", testBaseURL)
		rec := httptest.NewRecorder()
		require.NoError(t, e.svc.Logout(rec, r))

		sid := findCookie(rec.Result().Cookies(), "sid")
		require.NotNil(t, sid)
		assert.Empty(t, sid.Value)
		assert.Less(t, sid.MaxAge, 0)
	})

	t.Run("cross_origin_rejected", func(t *testing.T) {
		e := newEnv(t)
		r := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
		r.Header.Set("Origin", "https://evil.example.com")
		rec := httptest.NewRecorder()
		err := e.svc.Logout(rec, r)
		assert.ErrorIs(t, err, origin.ErrMismatch)
		assert.Nil(t, findCookie(rec.Result().Cookies(), "sid"))
	})
}

func TestNewFlowServiceValidation(t *testing.T) {
	t.Run("id_collision", func(t *testing.T) {
		desc := &fakeDescriptor{id: "dup"}
		tr := trusted.NewRegistry()
		require.NoError(t, tr.Register("dup", func(context.Context, []any) (*oauth.User, error) { return nil, nil }))
		_, err := NewFlowService(Deps{
			BaseURL:   testBaseURL,
			Providers: oauth.NewRegistry(desc),
			Trusted:   tr,
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "both OAuth and trusted")
	})

	t.Run("base_url_required", func(t *testing.T) {
		_, err := NewFlowService(Deps{})
		require.Error(t, err)
	})

	t.Run("base_url_must_be_absolute", func(t *testing.T) {
		_, err := NewFlowService(Deps{BaseURL: "/just/a/path"})
		require.Error(t, err)
	})
}

func TestProviders(t *testing.T) {
	e := newEnv(t)
	oauthIDs, trustedNames := e.svc.Providers()
	assert.Equal(t, []string{"fake"}, oauthIDs)
	assert.Equal(t, []string{"pw"}, trustedNames)
}

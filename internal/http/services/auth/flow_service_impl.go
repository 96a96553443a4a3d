package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/dropDatabas3/authcore/internal/oauth"
	"github.com/dropDatabas3/authcore/internal/observability/logger"
	"github.com/dropDatabas3/authcore/internal/security/origin"
	"github.com/dropDatabas3/authcore/internal/security/pkce"
	tokens "github.com/dropDatabas3/authcore/internal/security/token"
	"github.com/dropDatabas3/authcore/internal/session"
	"github.com/dropDatabas3/authcore/internal/trusted"
	"github.com/dropDatabas3/authcore/internal/util"
)

// nonceBytes gives the state nonce the same entropy as the PKCE verifier.
const nonceBytes = 32

// maxTrustedBody caps how much of a trusted-provider request body is read.
const maxTrustedBody = 1 << 20

// Deps carries everything the flow service needs. Providers and Trusted may
// be nil when a deployment runs only one kind; Sessions nil disables session
// issuance and makes Authorize fail fast.
type Deps struct {
	BaseURL   string
	Providers *oauth.Registry
	Configs   map[string]oauth.Config
	Trusted   *trusted.Registry
	Origin    *origin.Guard
	Sessions  *session.Codec
	Cookie    SessionCookieConfig
	PostAuth  PostAuthHook
	OnError   ErrorHook
}

type flowService struct {
	callbackURL  string
	callbackPath string
	secure       bool
	providers    *oauth.Registry
	configs      map[string]oauth.Config
	trusted      *trusted.Registry
	origin       *origin.Guard
	sessions     *session.Codec
	cookie       SessionCookieConfig
	postAuth     PostAuthHook
	onError      ErrorHook
}

// NewFlowService validates the wiring and builds the service. A provider id
// registered as both OAuth and trusted is a construction error, not a
// runtime one.
func NewFlowService(d Deps) (FlowService, error) {
	base := strings.TrimRight(strings.TrimSpace(d.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("auth: base URL is required")
	}
	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("auth: base URL %q must be absolute", d.BaseURL)
	}

	guard := d.Origin
	if guard == nil {
		guard, err = origin.NewGuard(base)
		if err != nil {
			return nil, fmt.Errorf("auth: %w", err)
		}
	}

	providers := d.Providers
	if providers == nil {
		providers = oauth.NewRegistry()
	}
	trustedReg := d.Trusted
	if trustedReg == nil {
		trustedReg = trusted.NewRegistry()
	}
	for _, name := range trustedReg.Names() {
		if _, clash := providers.Get(name); clash {
			return nil, fmt.Errorf("auth: provider id %q is registered as both OAuth and trusted", name)
		}
	}

	cookie := d.Cookie
	if cookie.Name == "" {
		cookie.Name = "sid"
	}
	if cookie.TTL <= 0 {
		if d.Sessions != nil {
			cookie.TTL = d.Sessions.TTL()
		} else {
			cookie.TTL = session.DefaultTTL
		}
	}

	return &flowService{
		callbackURL:  base + "/auth/callback",
		callbackPath: strings.TrimRight(u.Path, "/") + "/auth/callback",
		secure:       strings.EqualFold(u.Scheme, "https"),
		providers:    providers,
		configs:      d.Configs,
		trusted:      trustedReg,
		origin:       guard,
		sessions:     d.Sessions,
		cookie:       cookie,
		postAuth:     d.PostAuth,
		onError:      d.OnError,
	}, nil
}

func (s *flowService) Initiate(w http.ResponseWriter, r *http.Request) (*FlowResult, error) {
	id := r.URL.Query().Get("provider")
	if id == "" {
		return nil, ErrMissingProvider
	}
	if desc, ok := s.providers.Get(id); ok {
		if _, haveCfg := s.configs[id]; !haveCfg {
			return nil, fmt.Errorf("%w: %s", ErrProviderNotConfigured, id)
		}
		return s.initiateOAuth(w, r, desc)
	}
	if fn, ok := s.trusted.Get(id); ok {
		return s.initiateTrusted(w, r, id, fn)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, id)
}

func (s *flowService) initiateOAuth(w http.ResponseWriter, r *http.Request, desc oauth.Descriptor) (*FlowResult, error) {
	cfg := s.configs[desc.ID()]

	pair, err := pkce.Generate()
	if err != nil {
		return nil, err
	}
	nonce, err := tokens.GenerateOpaqueToken(nonceBytes)
	if err != nil {
		return nil, fmt.Errorf("generate state nonce: %w", err)
	}

	http.SetCookie(w, buildEphemeralCookie(pkceCookieName(desc.ID()), pair.Verifier, s.callbackPath, s.secure))
	http.SetCookie(w, buildEphemeralCookie(stateCookieName(desc.ID()), nonce, s.callbackPath, s.secure))

	q := url.Values{}
	q.Set("client_id", cfg.ClientID)
	q.Set("redirect_uri", s.redirectURI(cfg))
	q.Set("response_type", "code")
	q.Set("scope", oauth.ScopeString(desc, cfg))
	q.Set("state", encodeStateParam(desc.ID(), nonce))
	q.Set("code_challenge", pair.Challenge)
	q.Set("code_challenge_method", pkce.Method)

	authorizeURL := desc.AuthorizeURL(cfg)
	sep := "?"
	if strings.Contains(authorizeURL, "?") {
		sep = "&"
	}

	logger.From(r.Context()).Info("authorization redirect issued",
		logger.Provider(desc.ID()), logger.String("state", util.MaskToken(nonce)))
	return &FlowResult{RedirectURL: authorizeURL + sep + q.Encode()}, nil
}

func (s *flowService) initiateTrusted(w http.ResponseWriter, r *http.Request, name string, fn trusted.AuthenticateFunc) (*FlowResult, error) {
	if r.Method != http.MethodPost {
		return nil, fmt.Errorf("%w: got %s", ErrMethodNotAllowed, r.Method)
	}
	if err := s.origin.Check(r); err != nil {
		return nil, err
	}

	u, err := fn(r.Context(), parseArgs(r))
	if err != nil {
		logger.From(r.Context()).Warn("trusted authentication failed",
			logger.Provider(name), logger.Err(err))
		return nil, fmt.Errorf("%w: %s", ErrAuthenticationFailed, name)
	}
	if u == nil {
		return nil, fmt.Errorf("%w: %s", ErrAuthenticationFailed, name)
	}
	// The session subject derives from the dispatch id, not from whatever
	// the authenticate function happened to set.
	u.Provider = name
	return s.finishLogin(r.Context(), w, u)
}

// parseArgs reads the {"args": [...]} body of a trusted-provider request.
// A missing or unparseable body is an empty argument list, so probes cannot
// tell malformed requests apart from failed credentials.
func parseArgs(r *http.Request) []any {
	if r.Body == nil {
		return nil
	}
	var body struct {
		Args []any `json:"args"`
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, maxTrustedBody)).Decode(&body); err != nil {
		return nil
	}
	return body.Args
}

func (s *flowService) Complete(w http.ResponseWriter, r *http.Request) (*FlowResult, error) {
	res, err := s.complete(w, r)
	if err != nil {
		s.fireErrorHook(r.Context(), err)
	}
	return res, err
}

func (s *flowService) complete(w http.ResponseWriter, r *http.Request) (*FlowResult, error) {
	q := r.URL.Query()

	if e := q.Get("error"); e != "" {
		return nil, &ProviderRedirectError{Code: e, Description: q.Get("error_description")}
	}
	code := q.Get("code")
	state := q.Get("state")
	if code == "" {
		return nil, ErrMissingCode
	}
	if state == "" {
		return nil, ErrMissingState
	}

	sp, err := decodeStateParam(state)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidState, err)
	}

	// The attempt is consumed the moment the provider is resolvable,
	// success or failure alike.
	stateCk, _ := r.Cookie(stateCookieName(sp.Provider))
	pkceCk, _ := r.Cookie(pkceCookieName(sp.Provider))
	http.SetCookie(w, buildEphemeralDeletionCookie(stateCookieName(sp.Provider), s.callbackPath, s.secure))
	http.SetCookie(w, buildEphemeralDeletionCookie(pkceCookieName(sp.Provider), s.callbackPath, s.secure))

	if stateCk == nil || !nonceEqual(stateCk.Value, sp.State) {
		want := ""
		if stateCk != nil {
			want = stateCk.Value
		}
		// Masked prefixes still tell a stale cookie from a forged state.
		logger.From(r.Context()).Warn("state nonce mismatch",
			logger.Provider(sp.Provider),
			logger.String("want", util.MaskToken(want)),
			logger.String("got", util.MaskToken(sp.State)))
		return nil, fmt.Errorf("%w: nonce mismatch", ErrInvalidState)
	}
	if pkceCk == nil || pkceCk.Value == "" {
		return nil, fmt.Errorf("%w: missing code verifier", ErrInvalidState)
	}

	desc, ok := s.providers.Get(sp.Provider)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, sp.Provider)
	}
	cfg, ok := s.configs[sp.Provider]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProviderNotConfigured, sp.Provider)
	}

	tok, err := desc.ExchangeCode(r.Context(), code, pkceCk.Value, s.redirectURI(cfg), cfg)
	if err != nil {
		return nil, err
	}
	u, err := desc.FetchUser(r.Context(), tok.AccessToken)
	if err != nil {
		return nil, err
	}
	u.Provider = desc.ID()
	return s.finishLogin(r.Context(), w, u)
}

// finishLogin runs the post-auth hook and, when sessions are configured,
// issues the token and sets its cookie. Shared by both provider kinds.
func (s *flowService) finishLogin(ctx context.Context, w http.ResponseWriter, u *oauth.User) (*FlowResult, error) {
	if s.postAuth != nil {
		mapped, err := s.postAuth(ctx, u)
		if err != nil {
			return nil, fmt.Errorf("post-auth hook: %w", err)
		}
		if mapped != nil {
			u = mapped
		}
	}
	if s.sessions != nil {
		tok, err := s.sessions.Issue(session.NewPayload(u.Provider, u.AccountID))
		if err != nil {
			return nil, fmt.Errorf("issue session: %w", err)
		}
		http.SetCookie(w, buildSessionCookie(s.cookie, tok))
	}
	fields := []zap.Field{logger.Provider(u.Provider), logger.AccountID(u.AccountID)}
	if u.Email != nil && *u.Email != "" {
		fields = append(fields, logger.Email(util.MaskEmail(*u.Email)))
	}
	logger.From(ctx).Info("login completed", fields...)
	return &FlowResult{User: u}, nil
}

func (s *flowService) Authorize(r *http.Request, required bool) (*session.Payload, error) {
	if s.sessions == nil {
		// Fail fast even on optional checks. Protecting routes without a
		// session secret is a misconfiguration, not an anonymous visit.
		return nil, session.ErrNoSecret
	}
	raw := bearerToken(r)
	if raw == "" {
		if ck, err := r.Cookie(s.cookie.Name); err == nil {
			raw = ck.Value
		}
	}
	if raw == "" {
		if required {
			return nil, ErrNoSession
		}
		return nil, nil
	}
	p, err := s.sessions.Verify(raw)
	if err != nil {
		if required {
			return nil, err
		}
		return nil, nil
	}
	return p, nil
}

func (s *flowService) Logout(w http.ResponseWriter, r *http.Request) error {
	if err := s.origin.Check(r); err != nil {
		return err
	}
	http.SetCookie(w, buildSessionDeletionCookie(s.cookie))
	return nil
}

func (s *flowService) Providers() (oauthIDs, trustedNames []string) {
	ids := make([]string, 0, len(s.configs))
	for _, id := range s.providers.IDs() {
		if _, ok := s.configs[id]; ok {
			ids = append(ids, id)
		}
	}
	return ids, s.trusted.Names()
}

func (s *flowService) redirectURI(cfg oauth.Config) string {
	if cfg.RedirectURI != "" {
		return cfg.RedirectURI
	}
	return s.callbackURL
}

// fireErrorHook notifies the application of a failed completion without
// letting the hook touch the response: it runs on a detached context and
// its panics are contained.
func (s *flowService) fireErrorHook(ctx context.Context, err error) {
	if s.onError == nil {
		return
	}
	hookCtx := context.WithoutCancel(ctx)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				logger.L().Error("error hook panicked",
					logger.Component("auth"), logger.Any("panic", rec))
			}
		}()
		s.onError(hookCtx, err)
	}()
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(h) > len(prefix) && strings.EqualFold(h[:len(prefix)], prefix) {
		return strings.TrimSpace(h[len(prefix):])
	}
	return ""
}

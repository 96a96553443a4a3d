package main

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dropDatabas3/authcore/internal/cache"
	"github.com/dropDatabas3/authcore/internal/config"
	httpx "github.com/dropDatabas3/authcore/internal/http"
	authctrl "github.com/dropDatabas3/authcore/internal/http/controllers/auth"
	healthctrl "github.com/dropDatabas3/authcore/internal/http/controllers/health"
	mw "github.com/dropDatabas3/authcore/internal/http/middlewares"
	"github.com/dropDatabas3/authcore/internal/http/router"
	authsvc "github.com/dropDatabas3/authcore/internal/http/services/auth"
	healthsvc "github.com/dropDatabas3/authcore/internal/http/services/health"
	"github.com/dropDatabas3/authcore/internal/oauth"
	"github.com/dropDatabas3/authcore/internal/oauth/github"
	"github.com/dropDatabas3/authcore/internal/oauth/google"
	"github.com/dropDatabas3/authcore/internal/oauth/microsoft"
	"github.com/dropDatabas3/authcore/internal/observability/logger"
	"github.com/dropDatabas3/authcore/internal/rate"
	"github.com/dropDatabas3/authcore/internal/security/password"
	"github.com/dropDatabas3/authcore/internal/security/secretbox"
	token "github.com/dropDatabas3/authcore/internal/security/token"
	"github.com/dropDatabas3/authcore/internal/session"
	"github.com/dropDatabas3/authcore/internal/trusted"
)

// version is stamped at build time: -ldflags "-X main.version=v1.2.3"
var version = "dev"

func main() {
	_ = godotenv.Load()

	var configPath string

	root := &cobra.Command{
		Use:   "authcore",
		Short: "Login service: OAuth authorization code with PKCE, trusted providers, signed sessions",
	}
	root.PersistentFlags().StringVar(&configPath, "config", envOr("AUTHCORE_CONFIG", "config.yaml"), "path to config.yaml (env AUTHCORE_CONFIG)")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP service",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(configPath)
		},
	}

	var keyBytes int
	genkeyCmd := &cobra.Command{
		Use:   "genkey",
		Short: "Generate a random session secret",
		RunE: func(cmd *cobra.Command, args []string) error {
			if keyBytes < 16 {
				return fmt.Errorf("--bytes must be at least 16")
			}
			k, err := token.GenerateOpaqueToken(keyBytes)
			if err != nil {
				return err
			}
			fmt.Println(k)
			return nil
		},
	}
	genkeyCmd.Flags().IntVar(&keyBytes, "bytes", 32, "secret length in bytes before encoding")

	var (
		hashpwPlain     string
		hashpwMinLen    int
		hashpwBlacklist string
	)
	hashpwCmd := &cobra.Command{
		Use:   "hashpw",
		Short: "Hash a password (argon2id) for trusted.password.users",
		RunE: func(cmd *cobra.Command, args []string) error {
			plain := hashpwPlain
			if plain == "" {
				fmt.Fprint(os.Stderr, "password: ")
				sc := bufio.NewScanner(os.Stdin)
				if sc.Scan() {
					plain = strings.TrimSpace(sc.Text())
				}
			}
			if plain == "" {
				return fmt.Errorf("empty password (use --password or pipe it on stdin)")
			}

			policy := password.Policy{MinLength: hashpwMinLen}
			if ok, reasons := policy.Validate(plain); !ok {
				return fmt.Errorf("password rejected: %s", strings.Join(reasons, ", "))
			}
			bl, err := password.LoadBlacklist(hashpwBlacklist)
			if err != nil {
				return fmt.Errorf("load blacklist: %w", err)
			}
			if bl.Contains(plain) {
				return fmt.Errorf("password rejected: blacklisted")
			}

			phc, err := password.Hash(password.Default, plain)
			if err != nil {
				return err
			}
			fmt.Println(phc)
			return nil
		},
	}
	hashpwCmd.Flags().StringVar(&hashpwPlain, "password", "", "password to hash (falls back to stdin)")
	hashpwCmd.Flags().IntVar(&hashpwMinLen, "min-length", 8, "minimum password length")
	hashpwCmd.Flags().StringVar(&hashpwBlacklist, "blacklist", "", "newline-separated list of banned passwords")

	var (
		encValue   string
		encDecrypt bool
	)
	encCmd := &cobra.Command{
		Use:   "enc",
		Short: "Encrypt a secret for config.yaml with SECRETBOX_MASTER_KEY",
		Long: `Encrypt a secret with the key in SECRETBOX_MASTER_KEY and print it in the
"enc:" form accepted by the client_secret, session.secret and redis
password fields. --decrypt reverses it, to check a value already in the file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			value := encValue
			if value == "" {
				fmt.Fprint(os.Stderr, "value: ")
				sc := bufio.NewScanner(os.Stdin)
				if sc.Scan() {
					value = strings.TrimSpace(sc.Text())
				}
			}
			if value == "" {
				return fmt.Errorf("empty value (use --value or pipe it on stdin)")
			}

			box, err := secretbox.FromEnv()
			if err != nil {
				return err
			}
			out := ""
			if encDecrypt {
				out, err = box.Decrypt(value)
			} else {
				out, err = box.Encrypt(value)
			}
			if err != nil {
				return err
			}
			fmt.Println(out)
			return nil
		},
	}
	encCmd.Flags().StringVar(&encValue, "value", "", "value to process (falls back to stdin)")
	encCmd.Flags().BoolVar(&encDecrypt, "decrypt", false, "decrypt instead of encrypt")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version)
		},
	}

	root.AddCommand(serveCmd, genkeyCmd, hashpwCmd, encCmd, versionCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func serve(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger.Init(logger.Config{
		Env:         logEnv(cfg.App.Env),
		Level:       cfg.Log.Level,
		ServiceName: "authcore",
		Version:     version,
	})
	defer func() { _ = logger.Sync() }()
	log := logger.L().Named("main")

	cacheClient, err := cache.New(cache.Config{
		Driver:   cfg.Cache.Kind,
		Host:     cfg.Cache.Redis.Host,
		Port:     cfg.Cache.Redis.Port,
		Password: cfg.Cache.Redis.Password,
		DB:       cfg.Cache.Redis.DB,
		Prefix:   cfg.Cache.Redis.Prefix,
	})
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	defer cacheClient.Close()

	var defaultLimiter, initiateLimiter mw.RateLimiter
	if cfg.Rate.Enabled {
		// Windows were validated at load.
		window, _ := time.ParseDuration(cfg.Rate.Window)
		initiateWindow, _ := time.ParseDuration(cfg.Rate.Initiate.Window)
		defaultLimiter = limiterAdapter{rate.NewFixedWindowLimiter(cacheClient, "rl:", cfg.Rate.MaxRequests, window)}
		initiateLimiter = limiterAdapter{rate.NewFixedWindowLimiter(cacheClient, "rl:init:", cfg.Rate.Initiate.Limit, initiateWindow)}
	}

	registry := oauth.NewRegistry(github.New(), google.New(), microsoft.New())
	configs := make(map[string]oauth.Config)
	for id, p := range map[string]config.ProviderSettings{
		github.ID:    cfg.Providers.GitHub,
		google.ID:    cfg.Providers.Google,
		microsoft.ID: cfg.Providers.Microsoft,
	} {
		if !p.Enabled {
			continue
		}
		configs[id] = oauth.Config{
			ClientID:       p.ClientID,
			ClientSecret:   p.ClientSecret,
			Scopes:         p.Scopes,
			RedirectURI:    p.RedirectURL,
			AllowedTenants: p.AllowedTenants,
		}
	}

	trustedReg := trusted.NewRegistry()
	if cfg.Trusted.Password.Enabled {
		dir := trusted.NewDirectory()
		for _, u := range cfg.Trusted.Password.Users {
			dir.AddHashed(trusted.DirectoryUser{
				AccountID: u.AccountID,
				Username:  u.Username,
				Hash:      u.PasswordHash,
				Email:     u.Email,
				Name:      u.Name,
			})
		}
		if err := trustedReg.Register(trusted.PasswordProviderID, dir.Authenticate); err != nil {
			return err
		}
	}

	var codec *session.Codec
	if strings.TrimSpace(cfg.Session.Secret) != "" {
		codec, err = session.NewCodec(cfg.Session.Secret, cfg.SessionTTL())
		if err != nil {
			return fmt.Errorf("session codec: %w", err)
		}
	} else {
		log.Warn("session.secret is empty, logins will not issue a session cookie")
	}

	baseURL := cfg.Server.BaseURL
	if strings.TrimSpace(baseURL) == "" {
		// Only reachable with zero providers enabled (validated at load);
		// the URL then only shapes cookie paths.
		baseURL = "http://localhost:8080"
	}

	flow, err := authsvc.NewFlowService(authsvc.Deps{
		BaseURL:   baseURL,
		Providers: registry,
		Configs:   configs,
		Trusted:   trustedReg,
		Sessions:  codec,
		Cookie: authsvc.SessionCookieConfig{
			Name:     cfg.Session.Cookie.Name,
			Domain:   cfg.Session.Cookie.Domain,
			Path:     cfg.Session.Cookie.Path,
			SameSite: cfg.Session.Cookie.SameSite,
			Secure:   cfg.Session.Cookie.Secure,
			HTTPOnly: cfg.SessionHTTPOnly(),
			TTL:      cfg.SessionTTL(),
		},
	})
	if err != nil {
		return fmt.Errorf("flow service: %w", err)
	}

	healthServices := healthsvc.NewServices(healthsvc.Deps{
		Cache:            cacheClient,
		Version:          version,
		SessionsEnabled:  codec != nil,
		OAuthProviders:   len(configs),
		TrustedProviders: len(trustedReg.Names()),
	})

	var metricsHandler http.Handler
	if cfg.Metrics.Enabled {
		h, err := httpx.RegisterMetrics(prometheus.DefaultRegisterer)
		if err != nil {
			return fmt.Errorf("metrics: %w", err)
		}
		metricsHandler = h
	}

	rt := router.New(router.Deps{
		Auth:            authctrl.NewControllers(flow),
		Health:          healthctrl.NewControllers(healthServices),
		Authorizer:      flow,
		InitiateLimiter: initiateLimiter,
		Metrics:         metricsHandler,
	})

	loggingMW := mw.WithLogging()
	if strings.EqualFold(cfg.Log.Level, "debug") {
		loggingMW = mw.WithDebugLogging()
	}

	handler := mw.Chain(rt,
		mw.WithRequestID(),
		loggingMW,
		mw.WithRecover(),
		httpx.WithMetrics,
		mw.WithRateLimit(mw.RateLimitConfig{
			Limiter:   defaultLimiter,
			KeyFunc:   mw.IPPathRateKey,
			Whitelist: []string{"/healthz", "/metrics"},
		}),
		mw.WithSecurityHeaders(),
		mw.WithCORS(cfg.Server.CORSAllowedOrigins),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	oauthIDs, trustedNames := flow.Providers()
	log.Info("starting http server",
		zap.String("addr", cfg.Server.Addr),
		zap.Strings("oauth_providers", oauthIDs),
		zap.Strings("trusted_providers", trustedNames),
		zap.Bool("sessions", codec != nil),
		zap.Bool("metrics", cfg.Metrics.Enabled),
	)

	srv := httpx.NewServer(cfg.Server.Addr, handler)
	return srv.Run(ctx, 10*time.Second)
}

// limiterAdapter bridges the rate package limiter to the middleware interface.
type limiterAdapter struct {
	l rate.Limiter
}

func (a limiterAdapter) Allow(ctx context.Context, key string) (mw.RateLimitResult, error) {
	res, err := a.l.Allow(ctx, key)
	if err != nil {
		return mw.RateLimitResult{}, err
	}
	return mw.RateLimitResult{
		Allowed:     res.Allowed,
		Remaining:   res.Remaining,
		RetryAfter:  res.RetryAfter,
		WindowTTL:   res.WindowTTL,
		CurrentHits: res.CurrentHits,
	}, nil
}

// logEnv maps the app environment to a logger encoder profile.
func logEnv(appEnv string) string {
	switch strings.ToLower(strings.TrimSpace(appEnv)) {
	case "prod", "production", "staging":
		return "prod"
	default:
		return "dev"
	}
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

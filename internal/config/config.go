package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dropDatabas3/authcore/internal/security/secretbox"
	"github.com/dropDatabas3/authcore/internal/validation"
)

// ProviderSettings holds the application-side settings of one OAuth provider.
// ClientSecret is a secret: never log it.
type ProviderSettings struct {
	Enabled        bool     `yaml:"enabled"`
	ClientID       string   `yaml:"client_id"`
	ClientSecret   string   `yaml:"client_secret"`
	RedirectURL    string   `yaml:"redirect_url"` // empty => <server.base_url>/auth/callback
	Scopes         []string `yaml:"scopes"`       // appended to the provider defaults
	AllowedTenants []string `yaml:"allowed_tenants"`
}

// TrustedUser is one entry of the built-in password directory.
type TrustedUser struct {
	AccountID    string `yaml:"account_id"`
	Username     string `yaml:"username"`
	PasswordHash string `yaml:"password_hash"` // argon2id PHC string (see the hashpw command)
	Email        string `yaml:"email"`
	Name         string `yaml:"name"`
}

type Config struct {
	App struct {
		// dev | staging | prod
		Env string `yaml:"app_env"`
	} `yaml:"app"`

	Server struct {
		Addr               string   `yaml:"addr"`
		BaseURL            string   `yaml:"base_url"`
		CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
	} `yaml:"server"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`

	Cache struct {
		Kind  string `yaml:"kind"` // memory | redis
		Redis struct {
			Host     string `yaml:"host"`
			Port     int    `yaml:"port"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix"`
		} `yaml:"redis"`
	} `yaml:"cache"`

	Session struct {
		Secret string `yaml:"secret"` // secret, never logged; empty disables session issuance
		TTL    string `yaml:"ttl"`
		Cookie struct {
			Name     string `yaml:"name"`
			Domain   string `yaml:"domain"`
			Path     string `yaml:"path"`
			SameSite string `yaml:"samesite"`
			Secure   bool   `yaml:"secure"`
			HTTPOnly *bool  `yaml:"http_only"` // default true
		} `yaml:"cookie"`
	} `yaml:"session"`

	Providers struct {
		GitHub    ProviderSettings `yaml:"github"`
		Google    ProviderSettings `yaml:"google"`
		Microsoft ProviderSettings `yaml:"microsoft"`
	} `yaml:"providers"`

	Trusted struct {
		Password struct {
			Enabled bool          `yaml:"enabled"`
			Users   []TrustedUser `yaml:"users"`
		} `yaml:"password"`
	} `yaml:"trusted"`

	Rate struct {
		Enabled     bool   `yaml:"enabled"`
		Window      string `yaml:"window"`
		MaxRequests int    `yaml:"max_requests"`

		// Stricter limit for the login entry point
		Initiate struct {
			Limit  int    `yaml:"limit"`
			Window string `yaml:"window"`
		} `yaml:"initiate"`
	} `yaml:"rate"`

	Metrics struct {
		Enabled bool `yaml:"enabled"`
	} `yaml:"metrics"`
}

// SessionTTL returns the parsed session lifetime.
func (c *Config) SessionTTL() time.Duration {
	d, err := time.ParseDuration(c.Session.TTL)
	if err != nil || d <= 0 {
		return time.Hour
	}
	return d
}

// SessionHTTPOnly resolves the http_only flag, defaulting to true.
func (c *Config) SessionHTTPOnly() bool {
	if c.Session.Cookie.HTTPOnly == nil {
		return true
	}
	return *c.Session.Cookie.HTTPOnly
}

func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}

	// sane defaults
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Cache.Kind == "" {
		c.Cache.Kind = "memory"
	}
	if c.Session.TTL == "" {
		c.Session.TTL = "1h"
	}
	if c.Session.Cookie.Name == "" {
		c.Session.Cookie.Name = "sid"
	}
	if c.Session.Cookie.Path == "" {
		c.Session.Cookie.Path = "/"
	}
	if c.Session.Cookie.SameSite == "" {
		c.Session.Cookie.SameSite = "Lax"
	}
	if c.Rate.Window == "" {
		c.Rate.Window = "1m"
	}
	if c.Rate.MaxRequests == 0 {
		c.Rate.MaxRequests = 60
	}
	if c.Rate.Initiate.Limit == 0 {
		c.Rate.Initiate.Limit = 10
	}
	if c.Rate.Initiate.Window == "" {
		c.Rate.Initiate.Window = "1m"
	}

	c.applyEnvOverrides()

	if err := c.decryptSecrets(); err != nil {
		return nil, err
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}

	return &c, nil
}

// decryptSecrets opens any "enc:" prefixed secret value with the master key
// from SECRETBOX_MASTER_KEY (see the enc command). Plain values pass through,
// and the key is only required when at least one value is encrypted.
func (c *Config) decryptSecrets() error {
	targets := map[string]*string{
		"session.secret":                    &c.Session.Secret,
		"cache.redis.password":              &c.Cache.Redis.Password,
		"providers.github.client_secret":    &c.Providers.GitHub.ClientSecret,
		"providers.google.client_secret":    &c.Providers.Google.ClientSecret,
		"providers.microsoft.client_secret": &c.Providers.Microsoft.ClientSecret,
	}

	var box *secretbox.Box
	for name, v := range targets {
		if !secretbox.IsEncrypted(*v) {
			continue
		}
		if box == nil {
			b, err := secretbox.FromEnv()
			if err != nil {
				return fmt.Errorf("config: %s is encrypted: %w", name, err)
			}
			box = b
		}
		plain, err := box.Decrypt(*v)
		if err != nil {
			return fmt.Errorf("config: decrypt %s: %w", name, err)
		}
		*v = plain
	}
	return nil
}

// ---- Env helpers ----

func getEnvStr(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}
func getEnvInt(key string) (int, bool) {
	if s, ok := getEnvStr(key); ok {
		if i, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return i, true
		}
	}
	return 0, false
}
func getEnvBool(key string) (bool, bool) {
	if s, ok := getEnvStr(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
			return b, true
		}
	}
	return false, false
}
func getEnvCSV(key string) ([]string, bool) {
	if s, ok := getEnvStr(key); ok {
		if strings.TrimSpace(s) == "" {
			return []string{}, true
		}
		parts := strings.Split(s, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				out = append(out, p)
			}
		}
		return out, true
	}
	return nil, false
}

// applyEnvOverrides lets environment variables override config.yaml.
func (c *Config) applyEnvOverrides() {
	// APP
	if v, ok := getEnvStr("APP_ENV"); ok {
		c.App.Env = strings.ToLower(v)
	}

	// SERVER
	if v, ok := getEnvStr("SERVER_ADDR"); ok {
		c.Server.Addr = v
	}
	if v, ok := getEnvStr("SERVER_BASE_URL"); ok {
		c.Server.BaseURL = v
	}
	if v, ok := getEnvCSV("SERVER_CORS_ALLOWED_ORIGINS"); ok {
		c.Server.CORSAllowedOrigins = v
	}

	// LOG
	if v, ok := getEnvStr("LOG_LEVEL"); ok {
		c.Log.Level = strings.ToLower(v)
	}

	// CACHE
	if v, ok := getEnvStr("CACHE_KIND"); ok {
		c.Cache.Kind = v
	}
	if v, ok := getEnvStr("REDIS_HOST"); ok {
		c.Cache.Redis.Host = v
	}
	if v, ok := getEnvInt("REDIS_PORT"); ok {
		c.Cache.Redis.Port = v
	}
	if v, ok := getEnvStr("REDIS_PASSWORD"); ok {
		c.Cache.Redis.Password = v
	}
	if v, ok := getEnvInt("REDIS_DB"); ok {
		c.Cache.Redis.DB = v
	}
	if v, ok := getEnvStr("REDIS_PREFIX"); ok {
		c.Cache.Redis.Prefix = v
	}

	// SESSION
	if v, ok := getEnvStr("SESSION_SECRET"); ok {
		c.Session.Secret = v
	}
	if v, ok := getEnvStr("SESSION_TTL"); ok {
		c.Session.TTL = v
	}
	if v, ok := getEnvStr("SESSION_COOKIE_NAME"); ok {
		c.Session.Cookie.Name = v
	}
	if v, ok := getEnvStr("SESSION_COOKIE_DOMAIN"); ok {
		c.Session.Cookie.Domain = v
	}
	if v, ok := getEnvStr("SESSION_COOKIE_PATH"); ok {
		c.Session.Cookie.Path = v
	}
	if v, ok := getEnvStr("SESSION_COOKIE_SAMESITE"); ok {
		c.Session.Cookie.SameSite = v
	}
	if v, ok := getEnvBool("SESSION_COOKIE_SECURE"); ok {
		c.Session.Cookie.Secure = v
	}
	if v, ok := getEnvBool("SESSION_COOKIE_HTTP_ONLY"); ok {
		c.Session.Cookie.HTTPOnly = &v
	}

	// PROVIDERS
	applyProviderEnv("GITHUB", &c.Providers.GitHub)
	applyProviderEnv("GOOGLE", &c.Providers.Google)
	applyProviderEnv("MICROSOFT", &c.Providers.Microsoft)

	// TRUSTED
	if v, ok := getEnvBool("TRUSTED_PASSWORD_ENABLED"); ok {
		c.Trusted.Password.Enabled = v
	}

	// RATE
	if v, ok := getEnvBool("RATE_ENABLED"); ok {
		c.Rate.Enabled = v
	}
	if v, ok := getEnvStr("RATE_WINDOW"); ok {
		c.Rate.Window = v
	}
	if v, ok := getEnvInt("RATE_MAX_REQUESTS"); ok {
		c.Rate.MaxRequests = v
	}
	if v, ok := getEnvInt("RATE_INITIATE_LIMIT"); ok {
		c.Rate.Initiate.Limit = v
	}
	if v, ok := getEnvStr("RATE_INITIATE_WINDOW"); ok {
		c.Rate.Initiate.Window = v
	}

	// METRICS
	if v, ok := getEnvBool("METRICS_ENABLED"); ok {
		c.Metrics.Enabled = v
	}
}

func applyProviderEnv(prefix string, p *ProviderSettings) {
	if v, ok := getEnvBool(prefix + "_ENABLED"); ok {
		p.Enabled = v
	}
	if v, ok := getEnvStr(prefix + "_CLIENT_ID"); ok {
		p.ClientID = v
	}
	if v, ok := getEnvStr(prefix + "_CLIENT_SECRET"); ok {
		p.ClientSecret = v
	}
	if v, ok := getEnvStr(prefix + "_REDIRECT_URL"); ok {
		p.RedirectURL = v
	}
	if v, ok := getEnvCSV(prefix + "_SCOPES"); ok && len(v) > 0 {
		p.Scopes = v
	}
	if v, ok := getEnvCSV(prefix + "_ALLOWED_TENANTS"); ok {
		p.AllowedTenants = v
	}
}

// Validate checks the critical configuration values.
func (c *Config) Validate() error {
	anyProvider := c.Providers.GitHub.Enabled || c.Providers.Google.Enabled || c.Providers.Microsoft.Enabled || c.Trusted.Password.Enabled

	if anyProvider {
		if strings.TrimSpace(c.Server.BaseURL) == "" {
			return fmt.Errorf("config: server.base_url is required when a provider is enabled")
		}
		u, err := url.Parse(c.Server.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("config: server.base_url %q is not an absolute URL", c.Server.BaseURL)
		}
	}

	for name, p := range map[string]ProviderSettings{
		"github":    c.Providers.GitHub,
		"google":    c.Providers.Google,
		"microsoft": c.Providers.Microsoft,
	} {
		if !p.Enabled {
			continue
		}
		if strings.TrimSpace(p.ClientID) == "" {
			return fmt.Errorf("config: providers.%s.client_id is required", name)
		}
		if strings.TrimSpace(p.ClientSecret) == "" {
			return fmt.Errorf("config: providers.%s.client_secret is required", name)
		}
		for _, s := range p.Scopes {
			if !validation.ValidScopeToken(s) {
				return fmt.Errorf("config: providers.%s.scopes: %q is not a valid OAuth scope token", name, s)
			}
		}
	}

	if c.Trusted.Password.Enabled {
		for i, u := range c.Trusted.Password.Users {
			if strings.TrimSpace(u.Username) == "" {
				return fmt.Errorf("config: trusted.password.users[%d]: username is required", i)
			}
			if strings.TrimSpace(u.PasswordHash) == "" {
				return fmt.Errorf("config: trusted.password.users[%d]: password_hash is required", i)
			}
		}
	}

	switch strings.ToLower(c.Session.Cookie.SameSite) {
	case "", "lax", "strict", "none":
	default:
		return fmt.Errorf("config: session.cookie.samesite %q must be lax, strict or none", c.Session.Cookie.SameSite)
	}

	if _, err := time.ParseDuration(c.Session.TTL); err != nil {
		return fmt.Errorf("config: session.ttl: %w", err)
	}
	if _, err := time.ParseDuration(c.Rate.Window); err != nil {
		return fmt.Errorf("config: rate.window: %w", err)
	}
	if _, err := time.ParseDuration(c.Rate.Initiate.Window); err != nil {
		return fmt.Errorf("config: rate.initiate.window: %w", err)
	}

	return nil
}

package authkit

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config defines a public type used by authkit APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	JWT       JWTConfig
	Refresh   RefreshConfig
	Password  PasswordConfig
	RateLimit RateLimitConfig
	Cookie    CookieConfig
	Security  SecurityConfig
	Audit     AuditConfig
	Metrics   MetricsConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig configures access-token signing and verification. Secret signs
// new tokens; FallbackSecrets are verify-only and exist so previously
// issued tokens survive a signing-key rotation.
type JWTConfig struct {
	Secret          string        `env:"JWT_SECRET"`
	FallbackSecrets []string      `env:"JWT_SECRET_FALLBACKS"`
	AccessTTL       time.Duration `env:"ACCESS_TOKEN_TTL"`
	Issuer          string        `env:"JWT_ISSUER"`
	Leeway          time.Duration `env:"JWT_LEEWAY"`
}

// RefreshConfig configures the refresh-token lifetime.
type RefreshConfig struct {
	TTLDays int `env:"REFRESH_TOKEN_TTL_DAYS"`
}

// PasswordConfig configures the bcrypt cost. Zero selects the library
// default.
type PasswordConfig struct {
	Cost int `env:"BCRYPT_COST"`
}

/*
====================================
RATE LIMIT CONFIG
====================================
*/

// RateLimitConfig bounds login attempts per client key within a fixed
// window. Every attempt counts against the budget, successful or not.
type RateLimitConfig struct {
	Enabled     bool          `env:"LOGIN_RATE_LIMIT_ENABLED"`
	MaxAttempts int           `env:"LOGIN_MAX_ATTEMPTS"`
	Window      time.Duration `env:"LOGIN_ATTEMPT_WINDOW"`
}

/*
====================================
COOKIE CONFIG
====================================
*/

// CookieConfig configures the optional cookie transport for access tokens.
// When Enabled, the HTTP layer sets and reads the named cookie; bearer
// headers keep working regardless.
type CookieConfig struct {
	Enabled  bool   `env:"AUTH_COOKIE_ENABLED"`
	Name     string `env:"AUTH_COOKIE_NAME"`
	Domain   string `env:"AUTH_COOKIE_DOMAIN"`
	Path     string `env:"AUTH_COOKIE_PATH"`
	Secure   bool   `env:"AUTH_COOKIE_SECURE"`
	SameSite string `env:"AUTH_COOKIE_SAMESITE"` // "lax", "strict", or "none"
}

// SameSiteMode maps the configured SameSite string to the net/http
// constant. Unknown values fall back to Lax.
func (c CookieConfig) SameSiteMode() http.SameSite {
	switch strings.ToLower(c.SameSite) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}

/*
====================================
SECURITY CONFIG
====================================
*/

// SecurityConfig defines a public type used by authkit APIs.
//
// SecurityConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type SecurityConfig struct {
	ProductionMode bool `env:"PRODUCTION_MODE"`
	// RequireAccountCheck re-resolves the token subject against the
	// UserProvider on every verification, so deleted accounts are rejected
	// before access-token expiry.
	RequireAccountCheck bool `env:"VERIFY_ACCOUNT_CHECK"`
	// TrustProxyHeaders lets the HTTP layer take the client address from
	// X-Forwarded-For or X-Real-Ip. Enable only behind a proxy that
	// controls those headers.
	TrustProxyHeaders bool `env:"TRUST_PROXY_HEADERS"`
}

// AuditConfig defines a public type used by authkit APIs.
//
// AuditConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditConfig struct {
	Enabled    bool `env:"AUDIT_ENABLED"`
	BufferSize int  `env:"AUDIT_BUFFER_SIZE"`
	DropIfFull bool `env:"AUDIT_DROP_IF_FULL"`
}

// MetricsConfig defines a public type used by authkit APIs.
//
// MetricsConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricsConfig struct {
	Enabled                 bool `env:"METRICS_ENABLED"`
	EnableLatencyHistograms bool `env:"METRICS_LATENCY_HISTOGRAMS"`
}

/*
====================================
DEFAULT CONFIG
====================================
*/

const devSecret = "dev-secret"

func defaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			Secret:    devSecret,
			AccessTTL: 15 * time.Minute,
			Issuer:    "amaeats",
			Leeway:    30 * time.Second,
		},
		Refresh: RefreshConfig{
			TTLDays: 7,
		},
		Password: PasswordConfig{
			Cost: 0,
		},
		RateLimit: RateLimitConfig{
			Enabled:     true,
			MaxAttempts: 5,
			Window:      15 * time.Minute,
		},
		Cookie: CookieConfig{
			Enabled:  false,
			Name:     "access_token",
			Path:     "/",
			Secure:   true,
			SameSite: "lax",
		},
		Security: SecurityConfig{
			ProductionMode:      false,
			RequireAccountCheck: false,
			TrustProxyHeaders:   false,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

// ConfigFromEnv layers environment variables over the defaults.
// JWT_SECRET_FALLBACKS is a comma-separated list, oldest last.
func ConfigFromEnv() (Config, error) {
	cfg := defaultConfig()
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

func cloneConfig(cfg Config) Config {
	out := cfg
	if len(cfg.JWT.FallbackSecrets) > 0 {
		out.JWT.FallbackSecrets = make([]string, len(cfg.JWT.FallbackSecrets))
		copy(out.JWT.FallbackSecrets, cfg.JWT.FallbackSecrets)
	}
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate describes the validate operation and its observable behavior.
//
// Validate may return an error when input validation, dependency calls, or security checks fail.
// Validate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return errors.New("JWT Secret is required")
	}
	if c.JWT.AccessTTL <= 0 {
		return errors.New("JWT AccessTTL must be > 0")
	}
	if c.JWT.Leeway < 0 {
		return errors.New("JWT Leeway must be >= 0")
	}
	for _, fallback := range c.JWT.FallbackSecrets {
		if fallback == "" {
			return errors.New("JWT FallbackSecrets must not contain empty entries")
		}
	}

	if c.Refresh.TTLDays <= 0 {
		return errors.New("Refresh TTLDays must be > 0")
	}

	if c.Password.Cost < 0 {
		return errors.New("Password Cost must be >= 0")
	}

	if c.RateLimit.Enabled {
		if c.RateLimit.MaxAttempts <= 0 {
			return errors.New("RateLimit MaxAttempts must be > 0 when rate limiting is enabled")
		}
		if c.RateLimit.Window <= 0 {
			return errors.New("RateLimit Window must be > 0 when rate limiting is enabled")
		}
	}

	if c.Cookie.Enabled {
		if c.Cookie.Name == "" {
			return errors.New("Cookie Name is required when cookie transport is enabled")
		}
		switch strings.ToLower(c.Cookie.SameSite) {
		case "", "lax", "strict", "none":
			// valid
		default:
			return errors.New("Cookie SameSite must be lax, strict, or none")
		}
	}

	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	if c.Security.ProductionMode {
		if c.JWT.Secret == devSecret {
			return errors.New("ProductionMode forbids the development secret")
		}
		if len(c.JWT.Secret) < 32 {
			return errors.New("ProductionMode requires JWT Secret length >= 32 bytes")
		}
		if c.JWT.AccessTTL > time.Hour {
			return errors.New("ProductionMode requires JWT AccessTTL <= 1h")
		}
		if c.Cookie.Enabled && !c.Cookie.Secure {
			return errors.New("ProductionMode requires Secure cookies when cookie transport is enabled")
		}
	}

	return nil
}

// Warnings reports configuration smells that are tolerated outside
// production mode. Callers typically log each entry at startup.
func (c *Config) Warnings() []string {
	var warnings []string
	if c.JWT.Secret == devSecret {
		warnings = append(warnings, "JWT_SECRET is the development default; set a real secret")
	} else if len(c.JWT.Secret) < 32 {
		warnings = append(warnings, "JWT_SECRET is shorter than 32 bytes")
	}
	if c.Cookie.Enabled && !c.Cookie.Secure && strings.EqualFold(c.Cookie.SameSite, "none") {
		warnings = append(warnings, "SameSite=None cookies require Secure; browsers will reject this combination")
	}
	return warnings
}

package authkit

import (
	"strings"
	"testing"
	"time"
)

func TestDefaultConfigValidates(t *testing.T) {
	cfg := defaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config must validate: %v", err)
	}
}

func TestConfigValidation(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "empty secret",
			mutate:  func(c *Config) { c.JWT.Secret = "" },
			wantErr: "Secret",
		},
		{
			name:    "zero access ttl",
			mutate:  func(c *Config) { c.JWT.AccessTTL = 0 },
			wantErr: "AccessTTL",
		},
		{
			name:    "negative leeway",
			mutate:  func(c *Config) { c.JWT.Leeway = -time.Second },
			wantErr: "Leeway",
		},
		{
			name:    "empty fallback entry",
			mutate:  func(c *Config) { c.JWT.FallbackSecrets = []string{"ok", ""} },
			wantErr: "FallbackSecrets",
		},
		{
			name:    "zero refresh ttl",
			mutate:  func(c *Config) { c.Refresh.TTLDays = 0 },
			wantErr: "TTLDays",
		},
		{
			name:    "rate limit without budget",
			mutate:  func(c *Config) { c.RateLimit.MaxAttempts = 0 },
			wantErr: "MaxAttempts",
		},
		{
			name: "cookie without name",
			mutate: func(c *Config) {
				c.Cookie.Enabled = true
				c.Cookie.Name = ""
			},
			wantErr: "Cookie Name",
		},
		{
			name: "bad samesite",
			mutate: func(c *Config) {
				c.Cookie.Enabled = true
				c.Cookie.SameSite = "sideways"
			},
			wantErr: "SameSite",
		},
		{
			name: "audit without buffer",
			mutate: func(c *Config) {
				c.Audit.Enabled = true
				c.Audit.BufferSize = 0
			},
			wantErr: "BufferSize",
		},
		{
			name:    "production with dev secret",
			mutate:  func(c *Config) { c.Security.ProductionMode = true },
			wantErr: "development secret",
		},
		{
			name: "production with short secret",
			mutate: func(c *Config) {
				c.Security.ProductionMode = true
				c.JWT.Secret = "short"
			},
			wantErr: ">= 32",
		},
		{
			name: "production with insecure cookie",
			mutate: func(c *Config) {
				c.Security.ProductionMode = true
				c.JWT.Secret = testSecret
				c.Cookie.Enabled = true
				c.Cookie.Secure = false
			},
			wantErr: "Secure cookies",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := defaultConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("error %q does not mention %q", err, tc.wantErr)
			}
		})
	}
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("JWT_SECRET", "env-secret-value-0123456789abcdef")
	t.Setenv("JWT_SECRET_FALLBACKS", "old-secret-one,old-secret-two")
	t.Setenv("REFRESH_TOKEN_TTL_DAYS", "30")
	t.Setenv("ACCESS_TOKEN_TTL", "5m")
	t.Setenv("LOGIN_MAX_ATTEMPTS", "10")
	t.Setenv("TRUST_PROXY_HEADERS", "true")

	cfg, err := ConfigFromEnv()
	if err != nil {
		t.Fatalf("config from env: %v", err)
	}

	if cfg.JWT.Secret != "env-secret-value-0123456789abcdef" {
		t.Fatalf("unexpected secret %q", cfg.JWT.Secret)
	}
	if len(cfg.JWT.FallbackSecrets) != 2 || cfg.JWT.FallbackSecrets[0] != "old-secret-one" {
		t.Fatalf("unexpected fallbacks %v", cfg.JWT.FallbackSecrets)
	}
	if cfg.Refresh.TTLDays != 30 {
		t.Fatalf("unexpected refresh ttl %d", cfg.Refresh.TTLDays)
	}
	if cfg.JWT.AccessTTL != 5*time.Minute {
		t.Fatalf("unexpected access ttl %s", cfg.JWT.AccessTTL)
	}
	if cfg.RateLimit.MaxAttempts != 10 {
		t.Fatalf("unexpected max attempts %d", cfg.RateLimit.MaxAttempts)
	}
	if !cfg.Security.TrustProxyHeaders {
		t.Fatal("expected TrustProxyHeaders from env")
	}
	// Unset vars keep their defaults.
	if !cfg.RateLimit.Enabled || cfg.RateLimit.Window != 15*time.Minute {
		t.Fatalf("unexpected rate limit defaults %+v", cfg.RateLimit)
	}
}

func TestConfigWarnings(t *testing.T) {
	cfg := defaultConfig()
	warnings := cfg.Warnings()
	if len(warnings) == 0 {
		t.Fatal("dev secret must produce a warning")
	}

	cfg.JWT.Secret = testSecret
	cfg.Cookie.Enabled = true
	cfg.Cookie.Secure = false
	cfg.Cookie.SameSite = "none"
	warnings = cfg.Warnings()
	found := false
	for _, w := range warnings {
		if strings.Contains(w, "SameSite") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected SameSite warning, got %v", warnings)
	}

	cfg.Cookie.Secure = true
	if ws := cfg.Warnings(); len(ws) != 0 {
		t.Fatalf("expected no warnings, got %v", ws)
	}
}

func TestConfigCloneIsolation(t *testing.T) {
	cfg := defaultConfig()
	cfg.JWT.FallbackSecrets = []string{"a", "b"}

	clone := cloneConfig(cfg)
	clone.JWT.FallbackSecrets[0] = "mutated"

	if cfg.JWT.FallbackSecrets[0] != "a" {
		t.Fatal("clone must not share the fallback slice")
	}
}

func TestBuilderRequiresUserProvider(t *testing.T) {
	_, err := New().WithConfig(testConfig()).Build()
	if err == nil || !strings.Contains(err.Error(), "user provider") {
		t.Fatalf("expected user provider error, got %v", err)
	}
}

func TestBuilderSingleUse(t *testing.T) {
	b := New().WithConfig(testConfig()).WithUserProvider(newFakeUserProvider())
	engine, err := b.Build()
	if err != nil {
		t.Fatalf("first build: %v", err)
	}
	defer engine.Close()

	if _, err := b.Build(); err == nil {
		t.Fatal("second build must fail")
	}
}

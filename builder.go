package authkit

import (
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/amaeats/authkit/internal/rate"
	"github.com/amaeats/authkit/jwt"
	"github.com/amaeats/authkit/password"
	"github.com/amaeats/authkit/refresh"
)

// Builder defines a public type used by authkit APIs.
//
// Builder instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	refreshStore refresh.Store
	userProvider UserProvider
	auditSink    AuditSink

	built bool
}

// New starts a builder with the default configuration.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the builder's configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis supplies the Redis client backing the shared login rate
// limiter. Without one, limiting falls back to a per-process counter.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithRefreshStore supplies the persistence layer for refresh tokens.
// Without one, an in-memory store is used; sessions then end with the
// process.
func (b *Builder) WithRefreshStore(store refresh.Store) *Builder {
	b.refreshStore = store
	return b
}

// WithUserProvider supplies the account lookup implementation. Required.
func (b *Builder) WithUserProvider(up UserProvider) *Builder {
	b.userProvider = up
	return b
}

// WithAuditSink supplies the audit event consumer. Only consulted when
// audit is enabled in the configuration.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithMetricsEnabled toggles the in-process metrics counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the verification latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build describes the build operation and its observable behavior.
//
// Build may return an error when input validation, dependency calls, or security checks fail.
// Build does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.userProvider == nil {
		return nil, errors.New("user provider required")
	}

	store := b.refreshStore
	if store == nil {
		store = refresh.NewMemoryStore()
	}

	var limiter rate.Limiter
	if cfg.RateLimit.Enabled {
		limiterCfg := rate.Config{
			Window:      cfg.RateLimit.Window,
			MaxAttempts: cfg.RateLimit.MaxAttempts,
		}
		if b.redis != nil {
			limiter = rate.NewRedis(b.redis, limiterCfg)
		} else {
			limiter = rate.NewMemory(limiterCfg)
		}
	}

	fallbacks := make([][]byte, 0, len(cfg.JWT.FallbackSecrets))
	for _, secret := range cfg.JWT.FallbackSecrets {
		fallbacks = append(fallbacks, []byte(secret))
	}

	jm, err := jwt.NewManager(jwt.Config{
		AccessTTL:       cfg.JWT.AccessTTL,
		Secret:          []byte(cfg.JWT.Secret),
		FallbackSecrets: fallbacks,
		Issuer:          cfg.JWT.Issuer,
		Leeway:          cfg.JWT.Leeway,
	})
	if err != nil {
		return nil, err
	}

	hasher, err := password.NewHasher(password.Config{
		Cost: cfg.Password.Cost,
	})
	if err != nil {
		return nil, err
	}

	engine := &Engine{
		config:       cfg,
		jwtManager:   jm,
		hasher:       hasher,
		refreshStore: store,
		limiter:      limiter,
		userProvider: b.userProvider,
		audit:        newAuditDispatcher(cfg.Audit, b.auditSink),
		metrics:      NewMetrics(cfg.Metrics),
	}

	b.built = true

	return engine, nil
}

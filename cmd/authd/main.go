// Command authd serves the amaeats authentication API.
//
// Configuration comes from the environment. DATABASE_URL selects the
// Postgres refresh-token store and user provider; without it the daemon
// runs on in-memory stores and seeds a single demo account, which is
// only useful for local development. REDIS_ADDR enables the shared
// login rate limiter.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	authkit "github.com/amaeats/authkit"
	"github.com/amaeats/authkit/httpapi"
	"github.com/amaeats/authkit/metrics/export/prometheus"
	"github.com/amaeats/authkit/middleware"
	"github.com/amaeats/authkit/password"
	"github.com/amaeats/authkit/refresh"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("authd exited", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	cfg, err := authkit.ConfigFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	for _, warning := range cfg.Warnings() {
		logger.Warn(warning)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	builder := authkit.New().WithConfig(cfg)

	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		defer func() { _ = client.Close() }()
		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("ping redis %s: %w", addr, err)
		}
		builder.WithRedis(client)
		logger.Info("rate limiting via redis", "addr", addr)
	} else {
		logger.Info("rate limiting is per-process; set REDIS_ADDR to share the budget")
	}

	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		pool, err := pgxpool.New(ctx, dsn)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer pool.Close()

		if err := migrate(ctx, dsn); err != nil {
			return err
		}

		builder.WithRefreshStore(refresh.NewPostgresStore(pool))
		builder.WithUserProvider(newPostgresUserProvider(pool))
		logger.Info("refresh tokens stored in postgres")
	} else {
		if cfg.Security.ProductionMode {
			return errors.New("DATABASE_URL is required in production mode")
		}
		provider, err := seedDemoProvider(cfg)
		if err != nil {
			return err
		}
		builder.WithUserProvider(provider)
		logger.Warn("no DATABASE_URL; using in-memory stores with a demo account")
	}

	if cfg.Audit.Enabled {
		builder.WithAuditSink(authkit.NewJSONWriterSink(os.Stdout))
	}

	engine, err := builder.Build()
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}
	defer engine.Close()

	mux := http.NewServeMux()
	httpapi.NewHandler(engine, cfg, logger).Routes(mux)
	if cfg.Metrics.Enabled {
		mux.Handle("GET /metrics", prometheus.NewPrometheusExporter(engine).Handler())
	}

	requestID := middleware.RequestID
	if cfg.Security.TrustProxyHeaders {
		requestID = middleware.RequestIDTrustProxy
	}
	handler := requestID()(middleware.RequestLogger(logger)(mux))

	listenAddr := os.Getenv("LISTEN_ADDR")
	if listenAddr == "" {
		listenAddr = ":8080"
	}

	server := &http.Server{
		Addr:              listenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", listenAddr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// migrate applies the refresh-token schema over a short-lived stdlib
// connection; the pgx pool is reserved for runtime queries.
func migrate(ctx context.Context, dsn string) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("open migration connection: %w", err)
	}
	defer func() { _ = db.Close() }()
	if err := refresh.Migrate(ctx, db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func seedDemoProvider(cfg authkit.Config) (*memoryUserProvider, error) {
	email := os.Getenv("DEMO_USER_EMAIL")
	if email == "" {
		email = "demo@amaeats.local"
	}
	pass := os.Getenv("DEMO_USER_PASSWORD")
	if pass == "" {
		pass = "demo-password"
	}

	hasher, err := password.NewHasher(password.Config{Cost: cfg.Password.Cost})
	if err != nil {
		return nil, fmt.Errorf("init hasher: %w", err)
	}
	hash, err := hasher.Hash(pass)
	if err != nil {
		return nil, fmt.Errorf("hash demo password: %w", err)
	}

	provider := newMemoryUserProvider()
	provider.Put(authkit.UserRecord{
		UserID:       "demo-user",
		Email:        authkit.NormalizeEmail(email),
		Role:         "admin",
		PasswordHash: hash,
	})
	return provider, nil
}

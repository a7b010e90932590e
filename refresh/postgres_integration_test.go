//go:build integration
// +build integration

package refresh

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
)

func newIntegrationStore(t *testing.T) (*PostgresStore, func()) {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Fatalf("open migration connection: %v", err)
	}
	if err := Migrate(ctx, db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	_ = db.Close()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("open pool: %v", err)
	}

	return NewPostgresStore(pool), func() {
		_, _ = pool.Exec(ctx, "TRUNCATE refresh_tokens")
		pool.Close()
	}
}

func TestPostgresStoreRotateRaceSingleWinner(t *testing.T) {
	store, cleanup := newIntegrationStore(t)
	defer cleanup()

	ctx := context.Background()
	current := makeToken("race-user", time.Hour)
	if err := store.Create(ctx, current); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	const workers = 16
	start := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(workers)

	results := make(chan error, workers)
	for i := 0; i < workers; i++ {
		successor := makeToken("race-user", time.Hour)
		go func(next Token) {
			defer wg.Done()
			<-start
			results <- store.Rotate(ctx, current.ID, next)
		}(successor)
	}

	close(start)
	wg.Wait()
	close(results)

	success := 0
	for err := range results {
		switch {
		case err == nil:
			success++
		case errors.Is(err, ErrRevoked):
		default:
			t.Fatalf("unexpected rotate error: %v", err)
		}
	}

	if success != 1 {
		t.Fatalf("expected exactly one winner, got %d", success)
	}
}

func TestPostgresStoreLifecycle(t *testing.T) {
	store, cleanup := newIntegrationStore(t)
	defer cleanup()

	ctx := context.Background()
	token := makeToken("u1", time.Hour)
	if err := store.Create(ctx, token); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	found, err := store.FindByHash(ctx, token.TokenHash)
	if err != nil {
		t.Fatalf("FindByHash failed: %v", err)
	}
	if found.Revoked() {
		t.Fatal("fresh record must be live")
	}

	if err := store.Revoke(ctx, token.ID); err != nil {
		t.Fatalf("Revoke failed: %v", err)
	}
	revoked, err := store.FindByHash(ctx, token.TokenHash)
	if err != nil {
		t.Fatalf("revoked records must stay findable: %v", err)
	}
	if !revoked.Revoked() {
		t.Fatal("revoked-at must be set")
	}

	if err := store.Rotate(ctx, uuid.NewString(), makeToken("u1", time.Hour)); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

package refresh

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pressly/goose/v3"

	"github.com/amaeats/authkit/refresh/migrations"
)

// PostgresStore is the production [Store]. Rotation atomicity rests on the
// database: the revoke step is a conditional update inside a transaction, so
// concurrent redemptions of the same record are serialized by the row lock
// and exactly one commits.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore binds a store to the given connection pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Migrate applies the embedded schema migrations. It takes a database/sql
// handle because goose drives migrations over the stdlib interface; runtime
// queries use the pgx pool.
func Migrate(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return fmt.Errorf("refresh store migrate: %w", err)
	}
	if err := goose.UpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("refresh store migrate: %w", err)
	}
	return nil
}

// Create inserts a new record.
func (s *PostgresStore) Create(ctx context.Context, token Token) error {
	query := `
		INSERT INTO refresh_tokens (id, user_id, token_hash, expires_at, revoked_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := s.pool.Exec(ctx, query, token.ID, token.UserID, token.TokenHash, token.ExpiresAt, token.RevokedAt); err != nil {
		return fmt.Errorf("refresh store create: %w", err)
	}
	return nil
}

// FindByHash returns the record matching the hash, revoked or not.
func (s *PostgresStore) FindByHash(ctx context.Context, hash string) (*Token, error) {
	query := `
		SELECT id, user_id, token_hash, expires_at, revoked_at, created_at
		FROM refresh_tokens
		WHERE token_hash = $1
	`
	var token Token
	err := s.pool.QueryRow(ctx, query, hash).Scan(
		&token.ID,
		&token.UserID,
		&token.TokenHash,
		&token.ExpiresAt,
		&token.RevokedAt,
		&token.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("refresh store find: %w", err)
	}
	return &token, nil
}

// Rotate revokes currentID and inserts successor in one transaction. The
// conditional update is the race arbiter: the loser's update matches zero
// rows and nothing it did is committed.
func (s *PostgresStore) Rotate(ctx context.Context, currentID string, successor Token) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("refresh store rotate: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `
		UPDATE refresh_tokens
		SET revoked_at = now()
		WHERE id = $1 AND revoked_at IS NULL
	`, currentID)
	if err != nil {
		return fmt.Errorf("refresh store rotate: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := tx.QueryRow(ctx, `
			SELECT EXISTS (SELECT 1 FROM refresh_tokens WHERE id = $1)
		`, currentID).Scan(&exists); err != nil {
			return fmt.Errorf("refresh store rotate: %w", err)
		}
		if !exists {
			return ErrNotFound
		}
		return ErrRevoked
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO refresh_tokens (id, user_id, token_hash, expires_at, revoked_at)
		VALUES ($1, $2, $3, $4, $5)
	`, successor.ID, successor.UserID, successor.TokenHash, successor.ExpiresAt, successor.RevokedAt); err != nil {
		return fmt.Errorf("refresh store rotate: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("refresh store rotate: %w", err)
	}
	return nil
}

// Revoke sets revoked-at if still null. Matching zero rows is not an error.
func (s *PostgresStore) Revoke(ctx context.Context, id string) error {
	if _, err := s.pool.Exec(ctx, `
		UPDATE refresh_tokens
		SET revoked_at = now()
		WHERE id = $1 AND revoked_at IS NULL
	`, id); err != nil {
		return fmt.Errorf("refresh store revoke: %w", err)
	}
	return nil
}

// RevokeAllForUser revokes every live record owned by the user.
func (s *PostgresStore) RevokeAllForUser(ctx context.Context, userID string) error {
	if _, err := s.pool.Exec(ctx, `
		UPDATE refresh_tokens
		SET revoked_at = now()
		WHERE user_id = $1 AND revoked_at IS NULL
	`, userID); err != nil {
		return fmt.Errorf("refresh store revoke all: %w", err)
	}
	return nil
}

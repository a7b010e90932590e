package main

import (
	"context"
	"errors"
	"fmt"
	"sync"

	authkit "github.com/amaeats/authkit"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// postgresUserProvider resolves accounts from the platform users table.
type postgresUserProvider struct {
	pool *pgxpool.Pool
}

func newPostgresUserProvider(pool *pgxpool.Pool) *postgresUserProvider {
	return &postgresUserProvider{pool: pool}
}

func (p *postgresUserProvider) GetUserByEmail(ctx context.Context, email string) (authkit.UserRecord, error) {
	return p.scanUser(p.pool.QueryRow(ctx,
		`SELECT id, email, role, password_hash FROM users WHERE email = $1`, email))
}

func (p *postgresUserProvider) GetUserByID(ctx context.Context, userID string) (authkit.UserRecord, error) {
	return p.scanUser(p.pool.QueryRow(ctx,
		`SELECT id, email, role, password_hash FROM users WHERE id = $1`, userID))
}

func (p *postgresUserProvider) scanUser(row pgx.Row) (authkit.UserRecord, error) {
	var user authkit.UserRecord
	err := row.Scan(&user.UserID, &user.Email, &user.Role, &user.PasswordHash)
	if errors.Is(err, pgx.ErrNoRows) {
		return authkit.UserRecord{}, authkit.ErrUserNotFound
	}
	if err != nil {
		return authkit.UserRecord{}, fmt.Errorf("query user: %w", err)
	}
	return user, nil
}

// memoryUserProvider backs local development runs without a database.
type memoryUserProvider struct {
	mu      sync.RWMutex
	byID    map[string]authkit.UserRecord
	byEmail map[string]string
}

func newMemoryUserProvider() *memoryUserProvider {
	return &memoryUserProvider{
		byID:    make(map[string]authkit.UserRecord),
		byEmail: make(map[string]string),
	}
}

func (p *memoryUserProvider) Put(user authkit.UserRecord) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.byID[user.UserID] = user
	p.byEmail[user.Email] = user.UserID
}

func (p *memoryUserProvider) GetUserByEmail(_ context.Context, email string) (authkit.UserRecord, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	id, ok := p.byEmail[email]
	if !ok {
		return authkit.UserRecord{}, authkit.ErrUserNotFound
	}
	return p.byID[id], nil
}

func (p *memoryUserProvider) GetUserByID(_ context.Context, userID string) (authkit.UserRecord, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	user, ok := p.byID[userID]
	if !ok {
		return authkit.UserRecord{}, authkit.ErrUserNotFound
	}
	return user, nil
}

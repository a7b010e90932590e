package authkit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/amaeats/authkit/password"
)

const (
	testPassword = "correct-password-123"
	testSecret   = "unit-test-signing-secret-0123456789"
)

var errProviderNotFound = errors.New("provider: not found")

type fakeUserProvider struct {
	mu      sync.Mutex
	byEmail map[string]UserRecord
	byID    map[string]UserRecord
}

func newFakeUserProvider() *fakeUserProvider {
	return &fakeUserProvider{
		byEmail: make(map[string]UserRecord),
		byID:    make(map[string]UserRecord),
	}
}

func (p *fakeUserProvider) add(user UserRecord) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.byEmail[user.Email] = user
	p.byID[user.UserID] = user
}

func (p *fakeUserProvider) remove(userID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	user, ok := p.byID[userID]
	if !ok {
		return
	}
	delete(p.byID, userID)
	delete(p.byEmail, user.Email)
}

func (p *fakeUserProvider) GetUserByEmail(_ context.Context, email string) (UserRecord, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	user, ok := p.byEmail[email]
	if !ok {
		return UserRecord{}, errProviderNotFound
	}
	return user, nil
}

func (p *fakeUserProvider) GetUserByID(_ context.Context, userID string) (UserRecord, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	user, ok := p.byID[userID]
	if !ok {
		return UserRecord{}, errProviderNotFound
	}
	return user, nil
}

func testConfig() Config {
	cfg := defaultConfig()
	cfg.JWT.Secret = testSecret
	cfg.Password.Cost = 4
	cfg.Metrics.Enabled = true
	return cfg
}

func hashPassword(t testing.TB, plain string) string {
	t.Helper()
	hasher, err := password.NewHasher(password.Config{Cost: 4})
	if err != nil {
		t.Fatalf("new hasher: %v", err)
	}
	hash, err := hasher.Hash(plain)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return hash
}

func seedUser(t testing.TB, up *fakeUserProvider, userID, email, role string) UserRecord {
	t.Helper()
	user := UserRecord{
		UserID:       userID,
		Email:        email,
		Role:         role,
		PasswordHash: hashPassword(t, testPassword),
	}
	up.add(user)
	return user
}

func newTestEngine(t *testing.T, cfg Config, up *fakeUserProvider) *Engine {
	t.Helper()
	engine, err := New().
		WithConfig(cfg).
		WithUserProvider(up).
		Build()
	if err != nil {
		t.Fatalf("build engine: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine
}

func newRedisTestEngine(t *testing.T, cfg Config, up *fakeUserProvider) (*Engine, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	engine, err := New().
		WithConfig(cfg).
		WithRedis(client).
		WithUserProvider(up).
		Build()
	if err != nil {
		t.Fatalf("build engine: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine, mr
}

func waitForAudit(t *testing.T, sink *ChannelSink, eventType string) AuditEvent {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case event := <-sink.Events():
			if event.EventType == eventType {
				return event
			}
		case <-deadline:
			t.Fatalf("timed out waiting for audit event %q", eventType)
		}
	}
}

package authkit

import (
	"context"
	"errors"
	"testing"
)

func TestLogoutRevokesToken(t *testing.T) {
	up := newFakeUserProvider()
	seedUser(t, up, "u1", "alice@example.com", "user")
	engine := newTestEngine(t, testConfig(), up)

	result, err := engine.Login(context.Background(), "alice@example.com", testPassword)
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	if err := engine.Logout(context.Background(), result.RefreshToken); err != nil {
		t.Fatalf("logout failed: %v", err)
	}

	if _, err := engine.Refresh(context.Background(), result.RefreshToken); !errors.Is(err, ErrRefreshRevoked) {
		t.Fatalf("refresh after logout: got %v, want ErrRefreshRevoked", err)
	}
}

func TestLogoutIsSilent(t *testing.T) {
	up := newFakeUserProvider()
	seedUser(t, up, "u1", "alice@example.com", "user")
	engine := newTestEngine(t, testConfig(), up)

	// Unknown, empty, and double logouts all succeed quietly.
	if err := engine.Logout(context.Background(), "never-issued-token"); err != nil {
		t.Fatalf("unknown token logout: %v", err)
	}
	if err := engine.Logout(context.Background(), ""); err != nil {
		t.Fatalf("empty token logout: %v", err)
	}

	result, err := engine.Login(context.Background(), "alice@example.com", testPassword)
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if err := engine.Logout(context.Background(), result.RefreshToken); err != nil {
		t.Fatalf("first logout: %v", err)
	}
	if err := engine.Logout(context.Background(), result.RefreshToken); err != nil {
		t.Fatalf("second logout: %v", err)
	}
}

func TestLogoutAll(t *testing.T) {
	up := newFakeUserProvider()
	seedUser(t, up, "u1", "alice@example.com", "user")
	seedUser(t, up, "u2", "bob@example.com", "user")
	engine := newTestEngine(t, testConfig(), up)

	aliceFirst, err := engine.Login(context.Background(), "alice@example.com", testPassword)
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	aliceSecond, err := engine.Login(context.Background(), "alice@example.com", testPassword)
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	bob, err := engine.Login(context.Background(), "bob@example.com", testPassword)
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	if err := engine.LogoutAll(context.Background(), "u1"); err != nil {
		t.Fatalf("logout all failed: %v", err)
	}

	if _, err := engine.Refresh(context.Background(), aliceFirst.RefreshToken); !errors.Is(err, ErrRefreshRevoked) {
		t.Fatalf("alice session 1: got %v, want ErrRefreshRevoked", err)
	}
	if _, err := engine.Refresh(context.Background(), aliceSecond.RefreshToken); !errors.Is(err, ErrRefreshRevoked) {
		t.Fatalf("alice session 2: got %v, want ErrRefreshRevoked", err)
	}
	if _, err := engine.Refresh(context.Background(), bob.RefreshToken); err != nil {
		t.Fatalf("bob's session must survive: %v", err)
	}
}

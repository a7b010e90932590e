package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	authkit "github.com/amaeats/authkit"
	"github.com/amaeats/authkit/password"
	"github.com/amaeats/authkit/scope"
)

const testPassword = "correct-password-123"

type staticUserProvider struct {
	users map[string]authkit.UserRecord
}

func (p *staticUserProvider) GetUserByEmail(_ context.Context, email string) (authkit.UserRecord, error) {
	for _, user := range p.users {
		if user.Email == email {
			return user, nil
		}
	}
	return authkit.UserRecord{}, authkit.ErrUserNotFound
}

func (p *staticUserProvider) GetUserByID(_ context.Context, userID string) (authkit.UserRecord, error) {
	user, ok := p.users[userID]
	if !ok {
		return authkit.UserRecord{}, authkit.ErrUserNotFound
	}
	return user, nil
}

func newTestEngine(t *testing.T) *authkit.Engine {
	t.Helper()

	hasher, err := password.NewHasher(password.Config{Cost: 4})
	if err != nil {
		t.Fatalf("new hasher: %v", err)
	}
	hash, err := hasher.Hash(testPassword)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}

	cfg := authkit.Config{
		JWT: authkit.JWTConfig{
			Secret:    "middleware-test-secret-0123456789ab",
			AccessTTL: 15 * time.Minute,
			Issuer:    "amaeats",
			Leeway:    30 * time.Second,
		},
		Refresh:  authkit.RefreshConfig{TTLDays: 7},
		Password: authkit.PasswordConfig{Cost: 4},
		RateLimit: authkit.RateLimitConfig{
			Enabled:     true,
			MaxAttempts: 100,
			Window:      15 * time.Minute,
		},
	}

	provider := &staticUserProvider{users: map[string]authkit.UserRecord{
		"u1": {UserID: "u1", Email: "alice@example.com", Role: "user", PasswordHash: hash},
		"u2": {UserID: "u2", Email: "root@example.com", Role: "admin", PasswordHash: hash},
	}}

	engine, err := authkit.New().
		WithConfig(cfg).
		WithUserProvider(provider).
		Build()
	if err != nil {
		t.Fatalf("build engine: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine
}

func loginToken(t *testing.T, engine *authkit.Engine, email string) string {
	t.Helper()
	result, err := engine.Login(context.Background(), email, testPassword)
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	return result.AccessToken
}

func echoPrincipal(t *testing.T) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, ok := PrincipalFromContext(r.Context())
		if !ok {
			t.Fatal("handler reached without principal")
		}
		w.Header().Set("X-User-Id", principal.UserID)
		w.WriteHeader(http.StatusOK)
	})
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return body
}

func TestAuthenticateBearer(t *testing.T) {
	engine := newTestEngine(t)
	token := loginToken(t, engine, "alice@example.com")
	handler := Authenticate(engine)(echoPrincipal(t))

	req := httptest.NewRequest(http.MethodGet, "/orders", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status %d, body %s", rec.Code, rec.Body)
	}
	if rec.Header().Get("X-User-Id") != "u1" {
		t.Fatalf("unexpected user id %q", rec.Header().Get("X-User-Id"))
	}
}

func TestAuthenticateBearerSchemeCaseInsensitive(t *testing.T) {
	engine := newTestEngine(t)
	token := loginToken(t, engine, "alice@example.com")
	handler := Authenticate(engine)(echoPrincipal(t))

	for _, scheme := range []string{"bearer", "BEARER", "BeArEr"} {
		req := httptest.NewRequest(http.MethodGet, "/orders", nil)
		req.Header.Set("Authorization", scheme+" "+token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("%s scheme: status %d, body %s", scheme, rec.Code, rec.Body)
		}
	}
}

func TestAuthenticateRejections(t *testing.T) {
	engine := newTestEngine(t)
	handler := Authenticate(engine)(echoPrincipal(t))

	cases := []struct {
		name     string
		header   string
		wantCode string
	}{
		{"missing", "", CodeMissingToken},
		{"wrong scheme", "Basic abc123", CodeInvalidAuthHeader},
		{"bare bearer", "Bearer ", CodeInvalidAuthHeader},
		{"extra parts", "Bearer a b", CodeInvalidAuthHeader},
		{"garbage token", "Bearer not.a.jwt", CodeInvalidToken},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/orders", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("status %d, want 401", rec.Code)
			}
			if body := decodeError(t, rec); body.Code != tc.wantCode {
				t.Fatalf("code %q, want %q", body.Code, tc.wantCode)
			}
		})
	}
}

func TestAuthenticateCookieFallback(t *testing.T) {
	engine := newTestEngine(t)
	token := loginToken(t, engine, "alice@example.com")
	handler := AuthenticateCookie(engine, "access_token")(echoPrincipal(t))

	// No header: the cookie authenticates.
	req := httptest.NewRequest(http.MethodGet, "/orders", nil)
	req.AddCookie(&http.Cookie{Name: "access_token", Value: token})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("cookie auth: status %d, body %s", rec.Code, rec.Body)
	}

	// A malformed header wins over a valid cookie.
	req = httptest.NewRequest(http.MethodGet, "/orders", nil)
	req.Header.Set("Authorization", "Basic nope")
	req.AddCookie(&http.Cookie{Name: "access_token", Value: token})
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("malformed header with cookie: status %d, want 401", rec.Code)
	}
	if body := decodeError(t, rec); body.Code != CodeInvalidAuthHeader {
		t.Fatalf("code %q, want %q", body.Code, CodeInvalidAuthHeader)
	}

	// Bearer-only middleware ignores the cookie entirely.
	bearerOnly := Authenticate(engine)(echoPrincipal(t))
	req = httptest.NewRequest(http.MethodGet, "/orders", nil)
	req.AddCookie(&http.Cookie{Name: "access_token", Value: token})
	rec = httptest.NewRecorder()
	bearerOnly.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bearer-only with cookie: status %d, want 401", rec.Code)
	}
}

func TestRequireScope(t *testing.T) {
	engine := newTestEngine(t)
	userToken := loginToken(t, engine, "alice@example.com")
	adminToken := loginToken(t, engine, "root@example.com")

	protected := Authenticate(engine)(RequireScope(engine, "admin:write")(echoPrincipal(t)))

	req := httptest.NewRequest(http.MethodPost, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+userToken)
	rec := httptest.NewRecorder()
	protected.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("user against admin scope: status %d, want 403", rec.Code)
	}
	if body := decodeError(t, rec); body.Code != CodeForbidden {
		t.Fatalf("code %q, want %q", body.Code, CodeForbidden)
	}

	req = httptest.NewRequest(http.MethodPost, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	rec = httptest.NewRecorder()
	protected.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("admin wildcard: status %d, want 200", rec.Code)
	}
}

func TestRequireScopeWithoutPrincipal(t *testing.T) {
	engine := newTestEngine(t)
	handler := RequireScope(engine, "orders:read")(echoPrincipal(t))

	req := httptest.NewRequest(http.MethodGet, "/orders", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status %d, want 401", rec.Code)
	}
	if body := decodeError(t, rec); body.Code != CodeUnauthenticated {
		t.Fatalf("code %q, want %q", body.Code, CodeUnauthenticated)
	}
}

func TestRequireSelfOrRole(t *testing.T) {
	engine := newTestEngine(t)
	userToken := loginToken(t, engine, "alice@example.com")
	adminToken := loginToken(t, engine, "root@example.com")

	mux := http.NewServeMux()
	mux.Handle("GET /users/{id}/orders",
		Authenticate(engine)(RequireSelfOrRole(engine, "id")(echoPrincipal(t))))

	get := func(token, path string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		return rec
	}

	if rec := get(userToken, "/users/u1/orders"); rec.Code != http.StatusOK {
		t.Fatalf("self access: status %d, want 200", rec.Code)
	}
	if rec := get(userToken, "/users/u2/orders"); rec.Code != http.StatusForbidden {
		t.Fatalf("cross-user access: status %d, want 403", rec.Code)
	}
	if rec := get(adminToken, "/users/u1/orders"); rec.Code != http.StatusOK {
		t.Fatalf("admin override: status %d, want 200", rec.Code)
	}
}

func TestRequestID(t *testing.T) {
	var seen string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = authkit.RequestIDFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	handler := RequestID()(inner)

	// Generated when absent.
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if seen == "" || rec.Header().Get("X-Request-Id") != seen {
		t.Fatalf("generated id mismatch: context %q header %q", seen, rec.Header().Get("X-Request-Id"))
	}

	// Echoed when supplied.
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-Id", "req-42")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if seen != "req-42" || rec.Header().Get("X-Request-Id") != "req-42" {
		t.Fatalf("echoed id mismatch: context %q header %q", seen, rec.Header().Get("X-Request-Id"))
	}
}

func TestClientIPFromProxyHeaders(t *testing.T) {
	var seen string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = authkit.ClientIPFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})

	newReq := func() *http.Request {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:54321"
		return req
	}

	// Without proxy trust the socket address wins over any header.
	req := newReq()
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	RequestID()(inner).ServeHTTP(httptest.NewRecorder(), req)
	if seen != "10.0.0.1" {
		t.Fatalf("untrusted proxy: got %q, want 10.0.0.1", seen)
	}

	// With proxy trust the first X-Forwarded-For hop is the client.
	trusted := RequestIDTrustProxy()(inner)
	req = newReq()
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	trusted.ServeHTTP(httptest.NewRecorder(), req)
	if seen != "203.0.113.7" {
		t.Fatalf("x-forwarded-for: got %q, want 203.0.113.7", seen)
	}

	// X-Real-Ip applies when X-Forwarded-For is absent.
	req = newReq()
	req.Header.Set("X-Real-Ip", "198.51.100.4")
	trusted.ServeHTTP(httptest.NewRecorder(), req)
	if seen != "198.51.100.4" {
		t.Fatalf("x-real-ip: got %q, want 198.51.100.4", seen)
	}

	// No headers at all still falls back to the socket address.
	trusted.ServeHTTP(httptest.NewRecorder(), newReq())
	if seen != "10.0.0.1" {
		t.Fatalf("fallback: got %q, want 10.0.0.1", seen)
	}
}

func TestWriteAuthErrorRetryAfter(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	rec := httptest.NewRecorder()

	WriteAuthError(rec, req, &authkit.RateLimitError{RetryAfter: 90 * time.Second})

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status %d, want 429", rec.Code)
	}
	if got := rec.Header().Get("Retry-After"); got != "90" {
		t.Fatalf("Retry-After %q, want 90", got)
	}
	if body := decodeError(t, rec); body.Code != CodeRateLimited {
		t.Fatalf("code %q, want %q", body.Code, CodeRateLimited)
	}
}

func TestRequireRole(t *testing.T) {
	engine := newTestEngine(t)
	userToken := loginToken(t, engine, "alice@example.com")

	handler := Authenticate(engine)(RequireRole(engine, scope.RoleUser, scope.RoleAdmin)(echoPrincipal(t)))

	req := httptest.NewRequest(http.MethodGet, "/profile", nil)
	req.Header.Set("Authorization", "Bearer "+userToken)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("user against user gate: status %d, want 200", rec.Code)
	}

	adminOnly := Authenticate(engine)(RequireRole(engine)(echoPrincipal(t)))
	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+userToken)
	rec = httptest.NewRecorder()
	adminOnly.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("user against admin gate: status %d, want 403", rec.Code)
	}
}

package authkit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/amaeats/authkit/internal/rate"
	"github.com/amaeats/authkit/jwt"
	"github.com/amaeats/authkit/password"
	"github.com/amaeats/authkit/refresh"
	"github.com/amaeats/authkit/scope"
)

// Engine defines a public type used by authkit APIs.
//
// Engine instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Engine struct {
	config       Config
	jwtManager   *jwt.Manager
	hasher       *password.Hasher
	refreshStore refresh.Store
	limiter      rate.Limiter
	userProvider UserProvider
	audit        *auditDispatcher
	metrics      *Metrics
}

// Close flushes and stops the audit dispatcher.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped reports how many audit events were discarded under
// backpressure.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot copies the engine's counters and histograms.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// Metrics exposes the engine's metrics for exporter bridges.
func (e *Engine) Metrics() *Metrics {
	if e == nil {
		return nil
	}
	return e.metrics
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// NormalizeEmail lowercases and trims an email so lookups and rate-limit
// keys agree on one canonical form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Login describes the login operation and its observable behavior.
//
// Login may return an error when input validation, dependency calls, or security checks fail.
// Login does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Login(ctx context.Context, email, pass string) (*LoginResult, error) {
	if e == nil || e.userProvider == nil || e.jwtManager == nil {
		return nil, ErrEngineNotReady
	}

	email = NormalizeEmail(email)
	ip := ClientIPFromContext(ctx)

	if e.limiter != nil {
		// The budget belongs to the client address so one caller cannot
		// dodge it by rotating emails. Email is the key only when no
		// address was attached to the context.
		key := ip
		if key == "" {
			key = email
		}
		result, err := e.limiter.Allow(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("%w: login limiter: %v", ErrStoreUnavailable, err)
		}
		if result.Limited {
			e.metricInc(MetricLoginRateLimited)
			e.emitAudit(ctx, auditEventLoginRateLimited, false, "", email, ErrLoginRateLimited, nil)
			e.emitRateLimit(ctx, "login", email)
			return nil, &RateLimitError{RetryAfter: result.RetryAfter}
		}
	}

	if email == "" || pass == "" {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, "", email, ErrInvalidCredentials, func() map[string]string {
			return map[string]string{"reason": "empty_credentials"}
		})
		return nil, ErrInvalidCredentials
	}

	user, err := e.userProvider.GetUserByEmail(ctx, email)
	if err != nil {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, "", email, ErrInvalidCredentials, func() map[string]string {
			return map[string]string{"reason": "user_not_found"}
		})
		return nil, ErrInvalidCredentials
	}

	ok, err := e.hasher.Verify(pass, user.PasswordHash)
	if err != nil || !ok {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, user.UserID, email, ErrInvalidCredentials, func() map[string]string {
			return map[string]string{"reason": "password_mismatch"}
		})
		return nil, ErrInvalidCredentials
	}
	pass = ""

	result, err := e.issueTokenPair(ctx, user)
	if err != nil {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, user.UserID, email, err, nil)
		return nil, err
	}

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLoginSuccess, true, user.UserID, email, nil, nil)

	return result, nil
}

// Refresh rotates a refresh token: the presented token is revoked and a
// successor plus a fresh access token are issued in its place. A token that
// loses a concurrent rotation race is reported as revoked, the same as any
// other reuse.
func (e *Engine) Refresh(ctx context.Context, rawToken string) (*LoginResult, error) {
	if e == nil || e.userProvider == nil || e.jwtManager == nil {
		return nil, ErrEngineNotReady
	}
	if rawToken == "" {
		e.metricInc(MetricRefreshFailure)
		return nil, ErrRefreshInvalid
	}

	current, err := e.refreshStore.FindByHash(ctx, refresh.HashValue(rawToken))
	if err != nil {
		if errors.Is(err, refresh.ErrNotFound) {
			e.metricInc(MetricRefreshFailure)
			e.emitAudit(ctx, auditEventRefreshInvalid, false, "", "", ErrRefreshInvalid, nil)
			return nil, ErrRefreshInvalid
		}
		return nil, fmt.Errorf("%w: refresh lookup: %v", ErrStoreUnavailable, err)
	}

	if current.Revoked() {
		e.metricInc(MetricRefreshFailure)
		e.metricInc(MetricRefreshReuseDetected)
		e.emitAudit(ctx, auditEventRefreshReuse, false, current.UserID, "", ErrRefreshRevoked, nil)
		return nil, ErrRefreshRevoked
	}

	if current.Expired(time.Now()) {
		// Lazy revocation keeps expired rows from staying presentable.
		_ = e.refreshStore.Revoke(context.WithoutCancel(ctx), current.ID)
		e.metricInc(MetricRefreshFailure)
		e.metricInc(MetricRefreshExpired)
		e.emitAudit(ctx, auditEventRefreshExpired, false, current.UserID, "", ErrRefreshExpired, nil)
		return nil, ErrRefreshExpired
	}

	user, err := e.userProvider.GetUserByID(ctx, current.UserID)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, current.UserID, "", ErrUserNotFound, func() map[string]string {
			return map[string]string{"reason": "user_not_found"}
		})
		return nil, ErrUserNotFound
	}

	rawSuccessor, err := refresh.NewRawValue()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	successor := refresh.Token{
		ID:        uuid.NewString(),
		UserID:    user.UserID,
		TokenHash: refresh.HashValue(rawSuccessor),
		ExpiresAt: now.Add(e.refreshTTL()),
		CreatedAt: now,
	}

	// The revoke and insert must land together even if the caller goes
	// away mid-rotation.
	err = e.refreshStore.Rotate(context.WithoutCancel(ctx), current.ID, successor)
	if err != nil {
		switch {
		case errors.Is(err, refresh.ErrRevoked):
			e.metricInc(MetricRefreshFailure)
			e.metricInc(MetricRefreshReuseDetected)
			e.emitAudit(ctx, auditEventRefreshReuse, false, current.UserID, "", ErrRefreshRevoked, nil)
			return nil, ErrRefreshRevoked
		case errors.Is(err, refresh.ErrNotFound):
			e.metricInc(MetricRefreshFailure)
			return nil, ErrRefreshInvalid
		default:
			return nil, fmt.Errorf("%w: refresh rotation: %v", ErrStoreUnavailable, err)
		}
	}

	access, scopes, err := e.mintAccess(user)
	if err != nil {
		return nil, err
	}

	e.metricInc(MetricRefreshSuccess)
	e.emitAudit(ctx, auditEventRefreshSuccess, true, user.UserID, user.Email, nil, nil)

	return &LoginResult{
		AccessToken:      access,
		RefreshToken:     rawSuccessor,
		RefreshExpiresAt: successor.ExpiresAt,
		Scopes:           scopes,
		User:             e.principalFor(user, scopes),
	}, nil
}

// Logout revokes the refresh token if it resolves to a live record. It
// never reports whether the token existed: unknown, expired, and
// already-revoked tokens all return nil.
func (e *Engine) Logout(ctx context.Context, rawToken string) error {
	if e == nil || e.refreshStore == nil {
		return ErrEngineNotReady
	}
	if rawToken == "" {
		return nil
	}

	token, err := e.refreshStore.FindByHash(ctx, refresh.HashValue(rawToken))
	if err != nil {
		return nil
	}

	_ = e.refreshStore.Revoke(context.WithoutCancel(ctx), token.ID)

	e.metricInc(MetricLogout)
	e.emitAudit(ctx, auditEventLogout, true, token.UserID, "", nil, nil)

	return nil
}

// LogoutAll revokes every live refresh token belonging to the user.
func (e *Engine) LogoutAll(ctx context.Context, userID string) error {
	if e == nil || e.refreshStore == nil {
		return ErrEngineNotReady
	}
	if userID == "" {
		return ErrUserNotFound
	}

	if err := e.refreshStore.RevokeAllForUser(ctx, userID); err != nil {
		return fmt.Errorf("%w: revoke all: %v", ErrStoreUnavailable, err)
	}

	e.metricInc(MetricLogoutAll)
	e.emitAudit(ctx, auditEventLogoutAll, true, userID, "", nil, nil)

	return nil
}

// VerifyAccess parses and verifies an access token and returns the
// principal it authenticates. When account re-checking is configured, the
// subject must still resolve through the UserProvider.
func (e *Engine) VerifyAccess(ctx context.Context, tokenStr string) (*Principal, error) {
	if e == nil || e.jwtManager == nil {
		return nil, ErrEngineNotReady
	}

	start := time.Now()
	principal, err := e.verifyAccess(ctx, tokenStr)
	if e.metrics.LatencyEnabled() {
		e.metrics.Observe(MetricVerifyLatency, time.Since(start))
	}
	return principal, err
}

func (e *Engine) verifyAccess(ctx context.Context, tokenStr string) (*Principal, error) {
	if tokenStr == "" {
		e.metricInc(MetricVerifyFailure)
		e.emitAudit(ctx, auditEventVerifyFailure, false, "", "", ErrMissingToken, nil)
		return nil, ErrMissingToken
	}

	claims, err := e.jwtManager.ParseAccess(tokenStr)
	if err != nil {
		e.metricInc(MetricVerifyFailure)
		if errors.Is(err, jwt.ErrExpired) {
			e.emitAudit(ctx, auditEventVerifyFailure, false, "", "", ErrTokenExpired, nil)
			return nil, ErrTokenExpired
		}
		e.emitAudit(ctx, auditEventVerifyFailure, false, "", "", ErrTokenInvalid, nil)
		return nil, ErrTokenInvalid
	}

	if e.config.Security.RequireAccountCheck && e.userProvider != nil {
		if _, err := e.userProvider.GetUserByID(ctx, claims.Subject); err != nil {
			e.metricInc(MetricVerifyFailure)
			e.emitAudit(ctx, auditEventVerifyFailure, false, claims.Subject, claims.Email, ErrUserNotFound, nil)
			return nil, ErrUserNotFound
		}
	}

	e.metricInc(MetricVerifySuccess)

	return &Principal{
		UserID: claims.Subject,
		Email:  claims.Email,
		Role:   scope.ParseRole(claims.Role),
		Scopes: claims.Scopes,
	}, nil
}

// Authorize enforces a scope requirement against a verified principal.
func (e *Engine) Authorize(ctx context.Context, p *Principal, requiredScope string) error {
	if p == nil {
		return ErrUnauthenticated
	}
	if !p.HasScope(requiredScope) {
		e.metricInc(MetricPermissionDenied)
		e.emitAudit(ctx, auditEventPermissionDenied, false, p.UserID, p.Email, ErrPermissionDenied, func() map[string]string {
			return map[string]string{"required_scope": requiredScope}
		})
		return ErrPermissionDenied
	}
	return nil
}

// AuthorizeRole enforces a role requirement. With no allowed roles listed,
// only admins pass.
func (e *Engine) AuthorizeRole(ctx context.Context, p *Principal, allowed ...scope.Role) error {
	if p == nil {
		return ErrUnauthenticated
	}
	if !scope.HasRole(string(p.Role), allowed...) {
		e.metricInc(MetricPermissionDenied)
		e.emitAudit(ctx, auditEventPermissionDenied, false, p.UserID, p.Email, ErrPermissionDenied, func() map[string]string {
			return map[string]string{"role": string(p.Role)}
		})
		return ErrPermissionDenied
	}
	return nil
}

func (e *Engine) refreshTTL() time.Duration {
	days := e.config.Refresh.TTLDays
	if days <= 0 {
		days = 7
	}
	return time.Duration(days) * 24 * time.Hour
}

func (e *Engine) mintAccess(user UserRecord) (string, []string, error) {
	role := string(scope.ParseRole(user.Role))
	scopes := scope.ScopesFor(user.Role)
	access, err := e.jwtManager.CreateAccess(user.UserID, user.Email, role, scopes)
	if err != nil {
		return "", nil, err
	}
	return access, scopes, nil
}

func (e *Engine) principalFor(user UserRecord, scopes []string) Principal {
	return Principal{
		UserID: user.UserID,
		Email:  user.Email,
		Role:   scope.ParseRole(user.Role),
		Scopes: scopes,
	}
}

func (e *Engine) issueTokenPair(ctx context.Context, user UserRecord) (*LoginResult, error) {
	access, scopes, err := e.mintAccess(user)
	if err != nil {
		return nil, err
	}

	raw, err := refresh.NewRawValue()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	token := refresh.Token{
		ID:        uuid.NewString(),
		UserID:    user.UserID,
		TokenHash: refresh.HashValue(raw),
		ExpiresAt: now.Add(e.refreshTTL()),
		CreatedAt: now,
	}

	if err := e.refreshStore.Create(context.WithoutCancel(ctx), token); err != nil {
		return nil, fmt.Errorf("%w: refresh create: %v", ErrStoreUnavailable, err)
	}

	return &LoginResult{
		AccessToken:      access,
		RefreshToken:     raw,
		RefreshExpiresAt: token.ExpiresAt,
		Scopes:           scopes,
		User:             e.principalFor(user, scopes),
	}, nil
}

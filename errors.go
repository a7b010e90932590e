package authkit

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidCredentials is returned by Login for unknown emails and
	// password mismatches alike.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserNotFound is returned when a token's subject no longer resolves
	// to an account.
	ErrUserNotFound = errors.New("user not found")
	// ErrLoginRateLimited is returned when the login attempt budget for a
	// client key is exhausted.
	ErrLoginRateLimited = errors.New("login rate limited")
	// ErrMissingToken is returned when no credential was presented at all.
	ErrMissingToken = errors.New("missing token")
	// ErrInvalidAuthHeader is returned when an Authorization header is
	// present but not a well-formed bearer scheme.
	ErrInvalidAuthHeader = errors.New("invalid authorization header")
	// ErrTokenInvalid is returned for access tokens that fail verification
	// for any reason other than expiry.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrTokenExpired is returned for structurally valid access tokens whose
	// expiry has passed.
	ErrTokenExpired = errors.New("token expired")
	// ErrRefreshInvalid is returned when a presented refresh token matches no
	// stored record.
	ErrRefreshInvalid = errors.New("invalid refresh token")
	// ErrRefreshRevoked is returned when a presented refresh token was
	// already consumed or revoked. Presenting one is treated as reuse.
	ErrRefreshRevoked = errors.New("refresh token revoked")
	// ErrRefreshExpired is returned when a presented refresh token exists but
	// its lifetime has elapsed.
	ErrRefreshExpired = errors.New("refresh token expired")
	// ErrPermissionDenied is returned when an authenticated principal lacks
	// the scope or role an operation requires.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrUnauthenticated is returned when an operation requires a principal
	// and none is present.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrEngineNotReady is returned when an Engine method is called on a nil
	// or incompletely built engine.
	ErrEngineNotReady = errors.New("engine not initialized")
	// ErrStoreUnavailable wraps backend failures from the refresh store or
	// rate limiter.
	ErrStoreUnavailable = errors.New("auth backend unavailable")
)

// RateLimitError carries the remaining cooldown alongside the
// [ErrLoginRateLimited] identity, so callers can surface an exact
// Retry-After without string parsing.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("login rate limited, retry after %s", e.RetryAfter)
}

// Is makes errors.Is(err, ErrLoginRateLimited) hold for rate limit errors.
func (e *RateLimitError) Is(target error) bool {
	return target == ErrLoginRateLimited
}

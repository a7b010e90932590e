package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	authkit "github.com/amaeats/authkit"
)

// Wire error codes. These are part of the public API contract and must not
// change without a client migration.
const (
	CodeMissingToken       = "MISSING_TOKEN"
	CodeInvalidToken       = "INVALID_TOKEN"
	CodeInvalidAuthHeader  = "INVALID_AUTH_HEADER"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeUserNotFound       = "USER_NOT_FOUND"
	CodeUnauthenticated    = "UNAUTHENTICATED"
	CodeForbidden          = "FORBIDDEN"
	CodeRateLimited        = "RATE_LIMITED"
	CodeUnavailable        = "SERVICE_UNAVAILABLE"
	CodeInternal           = "INTERNAL_ERROR"
)

type errorBody struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"requestId,omitempty"`
}

// WriteError writes the JSON error envelope {code, message, requestId}.
func WriteError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{
		Code:      code,
		Message:   message,
		RequestID: authkit.RequestIDFromContext(r.Context()),
	})
}

// WriteAuthError maps an engine error to its wire status and code. Rate
// limit errors additionally carry a Retry-After header in whole seconds,
// rounded up.
func WriteAuthError(w http.ResponseWriter, r *http.Request, err error) {
	var rle *authkit.RateLimitError
	if errors.As(err, &rle) {
		secs := int(rle.RetryAfter.Seconds())
		if secs < 1 {
			secs = 1
		}
		w.Header().Set("Retry-After", strconv.Itoa(secs))
		WriteError(w, r, http.StatusTooManyRequests, CodeRateLimited, "too many attempts, try again later")
		return
	}

	switch {
	case errors.Is(err, authkit.ErrMissingToken):
		WriteError(w, r, http.StatusUnauthorized, CodeMissingToken, "authentication required")
	case errors.Is(err, authkit.ErrInvalidAuthHeader):
		WriteError(w, r, http.StatusUnauthorized, CodeInvalidAuthHeader, "malformed authorization header")
	case errors.Is(err, authkit.ErrTokenExpired),
		errors.Is(err, authkit.ErrTokenInvalid),
		errors.Is(err, authkit.ErrRefreshInvalid),
		errors.Is(err, authkit.ErrRefreshRevoked),
		errors.Is(err, authkit.ErrRefreshExpired):
		WriteError(w, r, http.StatusUnauthorized, CodeInvalidToken, "invalid or expired token")
	case errors.Is(err, authkit.ErrInvalidCredentials):
		WriteError(w, r, http.StatusUnauthorized, CodeInvalidCredentials, "invalid credentials")
	case errors.Is(err, authkit.ErrUserNotFound):
		WriteError(w, r, http.StatusUnauthorized, CodeUserNotFound, "user not found")
	case errors.Is(err, authkit.ErrUnauthenticated):
		WriteError(w, r, http.StatusUnauthorized, CodeUnauthenticated, "authentication required")
	case errors.Is(err, authkit.ErrLoginRateLimited):
		WriteError(w, r, http.StatusTooManyRequests, CodeRateLimited, "too many attempts, try again later")
	case errors.Is(err, authkit.ErrPermissionDenied):
		WriteError(w, r, http.StatusForbidden, CodeForbidden, "insufficient permissions")
	case errors.Is(err, authkit.ErrStoreUnavailable):
		WriteError(w, r, http.StatusServiceUnavailable, CodeUnavailable, "service temporarily unavailable")
	default:
		WriteError(w, r, http.StatusInternalServerError, CodeInternal, "internal error")
	}
}

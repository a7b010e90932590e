package middleware

import (
	"context"
	"net/http"
	"strings"

	authkit "github.com/amaeats/authkit"
)

type principalContextKey struct{}

// PrincipalFromContext returns the principal injected by [Authenticate] or
// [AuthenticateCookie].
func PrincipalFromContext(ctx context.Context) (*authkit.Principal, bool) {
	p, ok := ctx.Value(principalContextKey{}).(*authkit.Principal)
	return p, ok
}

// WithPrincipal injects a principal into ctx. Exported for handler tests.
func WithPrincipal(ctx context.Context, p *authkit.Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// Authenticate verifies the bearer token from the Authorization header and
// injects the resulting principal into the request context.
func Authenticate(engine *authkit.Engine) func(http.Handler) http.Handler {
	return authenticate(engine, "")
}

// AuthenticateCookie behaves like [Authenticate] but falls back to the
// named access cookie when no Authorization header is present. A malformed
// Authorization header is rejected without consulting the cookie.
func AuthenticateCookie(engine *authkit.Engine, cookieName string) func(http.Handler) http.Handler {
	return authenticate(engine, cookieName)
}

func authenticate(engine *authkit.Engine, cookieName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				WriteError(w, r, http.StatusInternalServerError, CodeInternal, "internal error")
				return
			}

			token, err := resolveToken(r, cookieName)
			if err != nil {
				WriteAuthError(w, r, err)
				return
			}

			principal, err := engine.VerifyAccess(r.Context(), token)
			if err != nil {
				WriteAuthError(w, r, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
		})
	}
}

// resolveToken extracts the access token: the Authorization header when
// present (well-formed or a hard error), otherwise the cookie when one is
// configured.
func resolveToken(r *http.Request, cookieName string) (string, error) {
	header := r.Header.Get("Authorization")
	if header != "" {
		token, ok := bearerToken(header)
		if !ok {
			return "", authkit.ErrInvalidAuthHeader
		}
		return token, nil
	}

	if cookieName != "" {
		cookie, err := r.Cookie(cookieName)
		if err == nil && cookie.Value != "" {
			return cookie.Value, nil
		}
	}

	return "", authkit.ErrMissingToken
}

func bearerToken(value string) (string, bool) {
	// The auth scheme is case-insensitive, so "bearer" and "BEARER"
	// carry tokens too.
	const bearer = "Bearer "
	if len(value) < len(bearer) || !strings.EqualFold(value[:len(bearer)], bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" || strings.ContainsAny(token, " \t") {
		return "", false
	}

	return token, true
}

package middleware

import (
	"net/http"

	authkit "github.com/amaeats/authkit"
	"github.com/amaeats/authkit/scope"
)

// RequireScope gates the wrapped handler on one scope. It must run after
// an authentication guard.
func RequireScope(engine *authkit.Engine, required string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := PrincipalFromContext(r.Context())
			if !ok {
				WriteAuthError(w, r, authkit.ErrUnauthenticated)
				return
			}

			if err := engine.Authorize(r.Context(), principal, required); err != nil {
				WriteAuthError(w, r, err)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireRole gates the wrapped handler on role membership. With no roles
// listed, only admins pass.
func RequireRole(engine *authkit.Engine, allowed ...scope.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := PrincipalFromContext(r.Context())
			if !ok {
				WriteAuthError(w, r, authkit.ErrUnauthenticated)
				return
			}

			if err := engine.AuthorizeRole(r.Context(), principal, allowed...); err != nil {
				WriteAuthError(w, r, err)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireSelfOrRole lets a request through when the named path parameter
// equals the principal's own user ID, or when the principal holds one of
// the allowed roles. Routes must be registered with a {param} pattern.
func RequireSelfOrRole(engine *authkit.Engine, param string, allowed ...scope.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := PrincipalFromContext(r.Context())
			if !ok {
				WriteAuthError(w, r, authkit.ErrUnauthenticated)
				return
			}

			if r.PathValue(param) == principal.UserID && principal.UserID != "" {
				next.ServeHTTP(w, r)
				return
			}

			if err := engine.AuthorizeRole(r.Context(), principal, allowed...); err != nil {
				WriteAuthError(w, r, err)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

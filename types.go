package authkit

import (
	"context"
	"time"

	"github.com/amaeats/authkit/scope"
)

// UserRecord is the account record returned by [UserProvider]. PasswordHash
// is a bcrypt hash; Role is matched against the closed role catalog, with
// unknown values treated as the baseline user role.
type UserRecord struct {
	UserID       string
	Email        string
	Role         string
	PasswordHash string
}

// UserProvider is the interface callers implement to integrate authkit with
// their user database. Any non-nil lookup error is treated as an unknown
// user; the engine never inspects provider error values.
type UserProvider interface {
	GetUserByEmail(ctx context.Context, email string) (UserRecord, error)
	GetUserByID(ctx context.Context, userID string) (UserRecord, error)
}

// Principal is the authenticated identity attached to a verified request.
type Principal struct {
	UserID string
	Email  string
	Role   scope.Role
	Scopes []string
}

// HasScope reports whether the principal holds the required scope, honoring
// the wildcard grant.
func (p *Principal) HasScope(required string) bool {
	if p == nil {
		return false
	}
	return scope.HasScope(p.Scopes, required)
}

// LoginResult is returned by [Engine.Login] and [Engine.Refresh]. The
// refresh token is the only copy of its plaintext; the engine stores a hash.
type LoginResult struct {
	AccessToken      string
	RefreshToken     string
	RefreshExpiresAt time.Time
	Scopes           []string
	User             Principal
}

package refresh

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"time"
)

// rawValueSize is the entropy of a raw refresh value in bytes. 48 bytes
// comfortably clears the 256-bit floor.
const rawValueSize = 48

var (
	// ErrNotFound reports that no record matches the presented hash or ID.
	ErrNotFound = errors.New("refresh token not found")
	// ErrRevoked reports a record whose revoked-at is already set, either
	// by an explicit revocation or as the losing side of a rotation race.
	ErrRevoked = errors.New("refresh token revoked")
)

// Token is one persisted refresh credential. Only the hash of the raw value
// is ever stored; RevokedAt is the single mutable field.
type Token struct {
	ID        string
	UserID    string
	TokenHash string
	ExpiresAt time.Time
	RevokedAt *time.Time
	CreatedAt time.Time
}

// Expired reports whether the record's own expiry has passed.
func (t *Token) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// Revoked reports whether revoked-at has been set.
func (t *Token) Revoked() bool {
	return t.RevokedAt != nil
}

// Store is the persistence contract for refresh tokens. Implementations
// must make Rotate atomic: under concurrent redemption of the same record,
// exactly one caller succeeds and the rest observe [ErrRevoked].
type Store interface {
	// Create inserts a new record. The raw value is never passed in.
	Create(ctx context.Context, token Token) error

	// FindByHash returns the record matching the hash, revoked or not.
	// Absent records yield [ErrNotFound].
	FindByHash(ctx context.Context, hash string) (*Token, error)

	// Rotate sets revoked-at on the record identified by currentID and
	// inserts successor in one atomic operation. If revoked-at is already
	// set, nothing is written and [ErrRevoked] is returned.
	Rotate(ctx context.Context, currentID string, successor Token) error

	// Revoke sets revoked-at on the record if it is still null. Revoking
	// an already-revoked or absent record is not an error.
	Revoke(ctx context.Context, id string) error

	// RevokeAllForUser sets revoked-at on every live record owned by the
	// user.
	RevokeAllForUser(ctx context.Context, userID string) error
}

// NewRawValue generates a raw refresh value from a cryptographically secure
// source. The value is handed to the client exactly once and is never
// recoverable from storage.
func NewRawValue() (string, error) {
	var raw [rawValueSize]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw[:]), nil
}

// HashValue computes the storage hash of a raw refresh value.
func HashValue(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// Package refresh owns the refresh-token data model and its persistence
// contract: opaque single-use credentials whose raw value is returned to the
// client exactly once and whose stores retain only a one-way hash.
//
// # Token format
//
// The raw value is 48 cryptographically random bytes, base64url-encoded.
// Stores index tokens by their SHA-256 hex hash; the raw value never touches
// persistent storage.
//
// # Rotation contract
//
// [Store.Rotate] revokes the current record and creates its successor as one
// atomic operation. Under concurrent redemption of the same raw value at
// most one caller wins; every loser observes [ErrRevoked]. Records are never
// deleted: revocation only sets the revoked-at timestamp, preserving the
// chain for audit and replay detection.
//
// # What this package must NOT do
//
//   - Mint access tokens or consult the scope catalog.
//   - Decide rotation policy. The engine sequences lookups, lazy expiry,
//     and reuse handling; stores only guarantee atomicity.
package refresh

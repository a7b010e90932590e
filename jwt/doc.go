// Package jwt manages access-token issuance and verification for the authkit
// engine: HS256 signing under a single current secret and verification against
// an ordered registry of current plus verify-only fallback secrets, so signing
// keys rotate without invalidating live sessions.
//
// # Secret registry semantics
//
// Verification tries the current secret first and walks the fallbacks in
// order, stopping at the first non-mismatch outcome. Expiry is a token
// property, never a secret property: an expired token fails with
// [ErrExpired] immediately and is never retried against other secrets.
//
// # What this package must NOT do
//
//   - Sign with anything but the current secret (fallbacks are verify-only).
//   - Access stores or perform I/O.
//   - Surface which secret generation a token belonged to.
package jwt

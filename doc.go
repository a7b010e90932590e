// Package authkit provides the authentication and session subsystem for a
// multi-tenant delivery platform: JWT access tokens with rotation-safe
// verification, hashed single-use refresh tokens, a role-to-scope catalog,
// and login rate limiting.
//
// Engine methods are safe to call from multiple goroutines after
// initialization through [Builder.Build].
//
// # Architecture boundaries
//
// authkit is the public surface. It exposes [Engine], [Builder], [Config],
// and value types (Principal, LoginResult, AuditEvent). Token encoding,
// refresh persistence, and rate limiting live in sub-packages; HTTP
// plumbing lives in middleware and httpapi.
//
// # What this package must NOT do
//
//   - Expose Redis or Postgres handles in its public API beyond builder
//     injection points.
//   - Return refresh-token plaintext from anything but the issuing call.
//   - Reveal which configured secret verified a token, or whether a
//     rejected login failed on the email or the password.
//
// # Performance contract
//
// VerifyAccess is the hot path. Without account re-checking enabled it
// completes on CPU alone: no store round-trips. Login and Refresh are
// allowed one rate-limiter round-trip and one refresh-store transaction.
package authkit

// Package middleware exposes net/http adapters for authkit: request
// authentication over bearer headers and cookies, scope and role gates, and
// request plumbing (correlation IDs, access logging).
//
// # Guards
//
//   - [Authenticate]: bearer-header verification.
//   - [AuthenticateCookie]: bearer first, falling back to the access cookie
//     when no Authorization header is present at all.
//   - [RequireScope]: scope gate over the authenticated principal.
//   - [RequireSelfOrRole]: path-parameter ownership check with a role
//     override.
//
// Each guard resolves the credential, calls the engine, and injects the
// resulting [authkit.Principal] into the request context.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It does NOT
// implement authentication logic itself; all decisions are delegated to
// Engine.VerifyAccess and the Authorize helpers.
//
// # What this package must NOT do
//
//   - Parse or create JWTs directly (delegates to Engine).
//   - Fall back to the cookie when a malformed Authorization header is
//     present; a broken header is rejected outright.
//   - Leak which check failed beyond the wire error code contract.
package middleware

// Package httpapi exposes the authentication endpoints over net/http:
// login, refresh, logout, logout-all, and the identity probe. It owns the
// JSON wire shapes and the optional HttpOnly access-token cookie; all
// decisions are delegated to the engine.
//
// # What this package must NOT do
//
//   - Reveal through logout whether a refresh token existed.
//   - Echo the access token in the response body when the cookie transport
//     is active.
//   - Touch the refresh store or token codecs directly.
package httpapi

// Package rate provides the fixed-window login limiter keyed per client.
//
// # Window semantics
//
// Fixed-window counters: every attempt increments, the window TTL is set on
// the first hit, and exceeding the threshold reports the remaining window as
// the retry-after duration. Counters are approximate across instances by
// design; the Redis limiter shares state for horizontal scale, the memory
// limiter is per-process.
//
// # What this package must NOT do
//
//   - Decide which routes are throttled (the HTTP layer opts in per route).
//   - Be imported outside the authkit module.
package rate

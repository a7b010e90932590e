package rate

import "errors"

var (
	// ErrRateLimited reports that the client key exhausted its attempt budget.
	ErrRateLimited = errors.New("rate limited")
	// ErrRedisUnavailable reports a failed round-trip to the counter store.
	ErrRedisUnavailable = errors.New("redis unavailable")
)

package rate

import "errors"

var (
	// ErrRedisUnavailable wraps backend failures from the Redis limiter.
	ErrRedisUnavailable = errors.New("redis unavailable")
	// ErrInvalidConfig is returned when a limiter is built with a non-positive budget or window.
	ErrInvalidConfig = errors.New("invalid rate limit configuration")
)

package rate

import "errors"

var (
	// ErrRedisUnavailable is an exported constant or variable used by the authentication core.
	ErrRedisUnavailable = errors.New("redis unavailable")
)

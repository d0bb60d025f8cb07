package errx

import (
	"errors"
	"net/http"

	"github.com/redis/go-redis/v9"
)

// WrapRedis maps Redis errors onto AppError. redis.Nil is a miss, not an outage,
// and callers are expected to handle it before wrapping.
func WrapRedis(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, redis.Nil) {
		return New(err, KindInvalidInput, http.StatusNotFound, RedisErrorMessage)
	}
	return New(err, KindStoreUnavailable, http.StatusBadGateway, RedisErrorMessage)
}

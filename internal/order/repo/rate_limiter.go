package repo

import (
	"context"
	"fmt"
	"time"

	errx "github.com/Chative-core-poc-v1/orderbot/internal/core/error"
	"github.com/Chative-core-poc-v1/orderbot/internal/order/model"
	"github.com/redis/go-redis/v9"
)

const rateWindow = time.Hour

// RedisRateLimiter is a fixed one hour window per conversation.
type RedisRateLimiter struct {
	rdb redis.Cmdable
}

func NewRedisRateLimiter(rdb redis.Cmdable) *RedisRateLimiter {
	return &RedisRateLimiter{rdb: rdb}
}

func (r *RedisRateLimiter) Allow(ctx context.Context, conversationID string, limit int) (bool, error) {
	if limit <= 0 {
		return true, nil
	}
	key := fmt.Sprintf("rate:%s", conversationID)

	// the first message opens the window; the count and its expiry commit together
	var incr *redis.IntCmd
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.ExpireNX(ctx, key, rateWindow)
		return nil
	})
	if err != nil {
		return false, errx.WrapRedis(err)
	}
	return incr.Val() <= int64(limit), nil
}

var _ model.RateLimiter = (*RedisRateLimiter)(nil)

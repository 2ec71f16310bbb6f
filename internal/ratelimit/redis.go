package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is a Redis-backed Limiter so concurrent replicas share counters.
// It uses one INCR window per granularity; windows are fixed rather than
// strictly sliding, which is the standard trade for a single atomic
// counter per key.
type Redis struct {
	client *redis.Client
}

// NewRedis creates a Redis-backed limiter from a connection URL.
func NewRedis(url string) (*Redis, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return &Redis{client: redis.NewClient(opt)}, nil
}

// Allow increments both window counters atomically and checks them
// against the limits. Rejected attempts still count toward the windows;
// the increment-then-check shape keeps the operation a single pipeline.
func (r *Redis) Allow(ctx context.Context, key string, perMinute, perHour int) (bool, error) {
	now := time.Now()
	minuteKey := fmt.Sprintf("ratelimit:%s:m:%s", key, now.Format("2006-01-02T15:04"))
	hourKey := fmt.Sprintf("ratelimit:%s:h:%s", key, now.Format("2006-01-02T15"))

	pipe := r.client.TxPipeline()
	minuteCount := pipe.Incr(ctx, minuteKey)
	pipe.Expire(ctx, minuteKey, 2*time.Minute)
	hourCount := pipe.Incr(ctx, hourKey)
	pipe.Expire(ctx, hourKey, 2*time.Hour)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}

	if minuteCount.Val() > int64(perMinute) || hourCount.Val() > int64(perHour) {
		return false, nil
	}
	return true, nil
}

// Close releases the Redis connection.
func (r *Redis) Close() error {
	return r.client.Close()
}

package api

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

type redisRateCounter interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	ExpireNX(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
}

// incrWithTTL 自增计数键并保证其带有 TTL，窗口过后自动清零。
// ExpireNX 只在键尚无 TTL 时生效，即使首次 INCR 后进程崩溃也不会留下永久键。
func incrWithTTL(ctx context.Context, client redisRateCounter, key string, ttl time.Duration) (int64, error) {
	count, err := client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	_ = client.ExpireNX(ctx, key, ttl).Err()
	return count, nil
}

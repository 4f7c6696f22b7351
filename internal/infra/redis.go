// README: Redis client initialization for the fare cache.
package infra

import (
	"context"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// NewRedis returns nil when addr is empty, which disables caching. An
// unreachable server is logged but not fatal since the cache falls back to
// the underlying fare source.
func NewRedis(ctx context.Context, addr string) *redis.Client {
	if addr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		slog.WarnContext(ctx, "redis unreachable, fare cache degraded", "addr", addr, "err", err)
	}
	return client
}

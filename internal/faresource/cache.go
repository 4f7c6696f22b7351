// README: Redis read-through cache in front of any fare source.
package faresource

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"trainfare/internal/modules/pricing"
)

const fareKeyPrefix = "faresource:fare:%s:%s:%s"

// CachedSource caches base fares per route and travel date. Unavailable
// results and errors are never cached. Redis failures fall back to the
// wrapped source.
type CachedSource struct {
	next  pricing.FareSource
	redis *redis.Client
	ttl   time.Duration
}

func NewCachedSource(next pricing.FareSource, client *redis.Client, ttl time.Duration) *CachedSource {
	return &CachedSource{next: next, redis: client, ttl: ttl}
}

func (c *CachedSource) BaseFare(ctx context.Context, trip pricing.TripDetails) (float64, error) {
	key := fareKey(trip)

	val, err := c.redis.Get(ctx, key).Result()
	switch {
	case err == nil:
		if fare, perr := strconv.ParseFloat(val, 64); perr == nil && fare >= 0 {
			return fare, nil
		}
		slog.WarnContext(ctx, "discarding bad fare cache entry", "key", key, "value", val)
	case err != redis.Nil:
		slog.WarnContext(ctx, "fare cache read failed", "key", key, "err", err)
	}

	fare, err := c.next.BaseFare(ctx, trip)
	if err != nil || fare < 0 {
		return fare, err
	}
	if err := c.redis.Set(ctx, key, strconv.FormatFloat(fare, 'f', -1, 64), c.ttl).Err(); err != nil {
		slog.WarnContext(ctx, "fare cache write failed", "key", key, "err", err)
	}
	return fare, nil
}

func fareKey(trip pricing.TripDetails) string {
	return fmt.Sprintf(fareKeyPrefix,
		normalizeCity(trip.Origin),
		normalizeCity(trip.Destination),
		trip.When.Format("2006-01-02"),
	)
}

func normalizeCity(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), " ", "_")
}

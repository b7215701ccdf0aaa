package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/poupacompra/nfce-scraper/internal/nfce"
)

// Redis is a result cache backed by a Redis instance, for deployments that
// run more than one scraper replica. Entries live under prefix and expire via
// Redis TTLs; max-size bounding is delegated to Redis' own maxmemory policy.
// Hit/miss counters are process-local.
type Redis struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	logger *zap.Logger

	hits   atomic.Int64
	misses atomic.Int64
}

// NewRedis connects to addr and verifies the connection with a ping.
func NewRedis(ctx context.Context, addr string, db int, prefix string, ttl time.Duration, logger *zap.Logger) (*Redis, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, DB: db})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return &Redis{client: client, prefix: prefix, ttl: ttl, logger: logger}, nil
}

func (r *Redis) key(url string) string {
	return r.prefix + ":" + Key(url)
}

// GetOrCompute returns the cached receipt for url when present, otherwise
// computes and stores it. A Redis read error is treated as a miss.
func (r *Redis) GetOrCompute(ctx context.Context, url string, compute func(context.Context) (*nfce.Receipt, error)) (*nfce.Receipt, bool, error) {
	key := r.key(url)

	payload, err := r.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var receipt nfce.Receipt
		if unmarshalErr := json.Unmarshal(payload, &receipt); unmarshalErr == nil {
			r.hits.Add(1)
			return &receipt, true, nil
		}
		r.logger.Warn("corrupt cache entry, recomputing", zap.String("key", key))
	case errors.Is(err, redis.Nil):
	default:
		r.logger.Warn("redis get failed, treating as miss", zap.Error(err))
	}
	r.misses.Add(1)

	receipt, err := compute(ctx)
	if err != nil {
		return nil, false, err
	}

	payload, err = json.Marshal(receipt)
	if err != nil {
		return nil, false, fmt.Errorf("marshal receipt for cache: %w", err)
	}
	if err := r.client.Set(ctx, key, payload, r.ttl).Err(); err != nil {
		r.logger.Warn("redis set failed", zap.Error(err))
	}
	return receipt, false, nil
}

// Clear deletes every entry under the prefix and reports how many went away.
func (r *Redis) Clear(ctx context.Context) int {
	removed := 0
	iter := r.client.Scan(ctx, 0, r.prefix+":*", 100).Iterator()
	for iter.Next(ctx) {
		if err := r.client.Del(ctx, iter.Val()).Err(); err != nil {
			r.logger.Warn("redis del failed", zap.String("key", iter.Val()), zap.Error(err))
			continue
		}
		removed++
	}
	if err := iter.Err(); err != nil {
		r.logger.Warn("redis scan failed", zap.Error(err))
	}
	r.logger.Info("cache cleared", zap.Int("removed", removed))
	return removed
}

// Stats snapshots occupancy (via a prefix scan) and the local counters.
func (r *Redis) Stats(ctx context.Context) nfce.CacheStats {
	entries := 0
	iter := r.client.Scan(ctx, 0, r.prefix+":*", 100).Iterator()
	for iter.Next(ctx) {
		entries++
	}

	hits := r.hits.Load()
	misses := r.misses.Load()
	stats := nfce.CacheStats{
		Entries:    entries,
		TTLSeconds: int64(r.ttl / time.Second),
		Hits:       hits,
		Misses:     misses,
	}
	if total := hits + misses; total > 0 {
		stats.HitRate = float64(hits) / float64(total)
	}
	return stats
}

// Close releases the Redis connection.
func (r *Redis) Close() error {
	return r.client.Close()
}

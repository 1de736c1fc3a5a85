package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore externalizes the sliding windows to a shared redis so multiple
// instances see the same counts. Each key is a sorted set of request
// timestamps scored by unix milliseconds; the set expires one window after
// its last hit.
//
// Check-then-record is not atomic across the two commands, so two concurrent
// requests can both pass at the ceiling. That matches the stated single-user
// serial-handling assumption; the store only widens visibility.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

const redisKeyPrefix = "ratelimit:"

func (r *RedisStore) Hit(ctx context.Context, key string, window time.Duration, max int, now time.Time) (bool, error) {
	rkey := redisKeyPrefix + key
	cutoff := strconv.FormatInt(now.Add(-window).UnixMilli(), 10)

	pipe := r.client.Pipeline()
	pipe.ZRemRangeByScore(ctx, rkey, "-inf", cutoff)
	card := pipe.ZCard(ctx, rkey)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("rate-limit window read: %w", err)
	}
	if card.Val() >= int64(max) {
		return false, nil
	}

	member := strconv.FormatInt(now.UnixNano(), 10)
	pipe = r.client.Pipeline()
	pipe.ZAdd(ctx, rkey, redis.Z{Score: float64(now.UnixMilli()), Member: member})
	pipe.PExpire(ctx, rkey, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("rate-limit window write: %w", err)
	}
	return true, nil
}

func (r *RedisStore) Usage(ctx context.Context, key string, window time.Duration, now time.Time) (WindowUsage, error) {
	rkey := redisKeyPrefix + key
	cutoff := strconv.FormatInt(now.Add(-window).UnixMilli(), 10)

	pipe := r.client.Pipeline()
	pipe.ZRemRangeByScore(ctx, rkey, "-inf", cutoff)
	card := pipe.ZCard(ctx, rkey)
	oldest := pipe.ZRangeWithScores(ctx, rkey, 0, 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return WindowUsage{}, fmt.Errorf("rate-limit usage read: %w", err)
	}

	usage := WindowUsage{Used: int(card.Val())}
	if entries := oldest.Val(); len(entries) > 0 {
		usage.OldestAt = time.UnixMilli(int64(entries[0].Score))
	}
	return usage, nil
}

// Cleanup is a no-op for redis: per-key TTLs reclaim idle windows.
func (r *RedisStore) Cleanup(context.Context, time.Time) (int, error) {
	return 0, nil
}

var _ Store = (*RedisStore)(nil)
var _ Store = (*MemoryStore)(nil)

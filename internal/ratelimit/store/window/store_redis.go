package window

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"loannote/internal/ratelimit/models"
)

// RedisStore implements WindowStore over a sorted set per key, scored by
// request time in nanoseconds. Use it when several replicas must share one
// window; a single process should prefer MemoryStore.
type RedisStore struct {
	client *redis.Client
	prefix string
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, prefix: "loannote:window:"}
}

func (s *RedisStore) key(k string) string {
	return s.prefix + k
}

// Allow prunes and counts in one pipeline, then records the request if it is
// under the limit. The count and the append are separate round trips, so two
// replicas racing on the same key can briefly overshoot by one; the widget's
// traffic makes that acceptable against the cost of scripting.
func (s *RedisStore) Allow(ctx context.Context, key string, limit int, window time.Duration) (*models.Decision, error) {
	now := time.Now()
	cutoff := strconv.FormatInt(now.Add(-window).UnixNano(), 10)
	rk := s.key(key)

	pipe := s.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, rk, "0", cutoff)
	card := pipe.ZCard(ctx, rk)
	oldest := pipe.ZRangeWithScores(ctx, rk, 0, 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("prune window for %q: %w", key, err)
	}

	count := int(card.Val())
	if count >= limit {
		resetAt := now.Add(window)
		if entries := oldest.Val(); len(entries) > 0 {
			resetAt = time.Unix(0, int64(entries[0].Score)).Add(window)
		}
		return &models.Decision{
			Allowed:    false,
			Limit:      limit,
			Remaining:  0,
			ResetAt:    resetAt,
			RetryAfter: retryAfterSeconds(now, resetAt),
		}, nil
	}

	record := s.client.TxPipeline()
	record.ZAdd(ctx, rk, redis.Z{
		Score:  float64(now.UnixNano()),
		Member: strconv.FormatInt(now.UnixNano(), 10),
	})
	record.Expire(ctx, rk, window)
	if _, err := record.Exec(ctx); err != nil {
		return nil, fmt.Errorf("record request for %q: %w", key, err)
	}

	resetAt := now.Add(window)
	if entries := oldest.Val(); len(entries) > 0 {
		resetAt = time.Unix(0, int64(entries[0].Score)).Add(window)
	}
	return &models.Decision{
		Allowed:   true,
		Limit:     limit,
		Remaining: limit - count - 1,
		ResetAt:   resetAt,
	}, nil
}

// Reset clears the window for a key.
func (s *RedisStore) Reset(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.key(key)).Err()
}

// Count returns the number of requests currently inside the key's window.
func (s *RedisStore) Count(ctx context.Context, key string, window time.Duration) (int, error) {
	now := time.Now()
	cutoff := strconv.FormatInt(now.Add(-window).UnixNano(), 10)
	rk := s.key(key)

	pipe := s.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, rk, "0", cutoff)
	card := pipe.ZCard(ctx, rk)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("count window for %q: %w", key, err)
	}
	return int(card.Val()), nil
}

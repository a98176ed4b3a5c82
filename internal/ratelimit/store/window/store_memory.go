package window

import (
	"context"
	"sync"
	"time"

	"loannote/internal/ratelimit/models"
)

// MemoryStore implements WindowStore with per-key timestamp slices behind a
// single mutex. The mutex makes the prune-check-append sequence atomic, so
// two concurrent requests can never both slip under the limit.
type MemoryStore struct {
	mu      sync.Mutex
	windows map[string][]time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{windows: make(map[string][]time.Time)}
}

// Allow checks the key's window and records the request if it is admitted.
// Pruning is lazy: stale timestamps are discarded only when their key is
// checked, never by a background sweep.
func (s *MemoryStore) Allow(ctx context.Context, key string, limit int, window time.Duration) (*models.Decision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	stamps := prune(s.windows[key], now.Add(-window))

	if len(stamps) >= limit {
		s.windows[key] = stamps
		resetAt := stamps[0].Add(window)
		return &models.Decision{
			Allowed:    false,
			Limit:      limit,
			Remaining:  0,
			ResetAt:    resetAt,
			RetryAfter: retryAfterSeconds(now, resetAt),
		}, nil
	}

	if len(stamps) == 0 {
		// Drop the stale entry so idle clients don't pin map slots forever.
		delete(s.windows, key)
	}

	stamps = append(stamps, now)
	s.windows[key] = stamps

	return &models.Decision{
		Allowed:   true,
		Limit:     limit,
		Remaining: limit - len(stamps),
		ResetAt:   stamps[0].Add(window),
	}, nil
}

// Reset clears the window for a key.
func (s *MemoryStore) Reset(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.windows, key)
	return nil
}

// Count returns the number of requests currently inside the key's window.
func (s *MemoryStore) Count(ctx context.Context, key string, window time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stamps := prune(s.windows[key], time.Now().Add(-window))
	if len(stamps) == 0 {
		delete(s.windows, key)
	} else {
		s.windows[key] = stamps
	}
	return len(stamps), nil
}

// prune drops timestamps at or before the cutoff. Slices stay ordered, so a
// single scan finds the first surviving entry.
func prune(stamps []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for ; i < len(stamps); i++ {
		if stamps[i].After(cutoff) {
			break
		}
	}
	return stamps[i:]
}

func retryAfterSeconds(now, resetAt time.Time) int {
	secs := int(resetAt.Sub(now).Seconds())
	if secs < 1 {
		secs = 1
	}
	return secs
}

// Package ports defines the storage interface for the ratelimit module, so
// the service can run against in-memory state or Redis without caring which.
package ports

import (
	"context"
	"time"

	"loannote/internal/ratelimit/models"
)

// WindowStore manages sliding-window request counters keyed by client.
type WindowStore interface {
	// Allow prunes the key's window, then either records the request and
	// admits it or rejects without recording. The prune-check-append
	// sequence is atomic per key.
	Allow(ctx context.Context, key string, limit int, window time.Duration) (*models.Decision, error)

	// Reset clears the window for a key.
	Reset(ctx context.Context, key string) error

	// Count returns the number of requests currently inside the key's window.
	Count(ctx context.Context, key string, window time.Duration) (int, error)
}

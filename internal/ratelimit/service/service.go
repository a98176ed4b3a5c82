package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"loannote/internal/ratelimit/metrics"
	"loannote/internal/ratelimit/models"
	"loannote/internal/ratelimit/ports"
	"loannote/pkg/requestcontext"
)

// Service applies one sliding-window rule to every client of the notification
// endpoint. It owns the window store explicitly; nothing else in the process
// touches that state.
type Service struct {
	store   ports.WindowStore
	limit   int
	window  time.Duration
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func New(store ports.WindowStore, limit int, window time.Duration, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("window store is required")
	}
	if limit <= 0 {
		return nil, errors.New("limit must be positive")
	}
	if window <= 0 {
		return nil, errors.New("window must be positive")
	}

	svc := &Service{store: store, limit: limit, window: window}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Admit decides whether a request from clientID may proceed, recording it
// when admitted. Rejections are logged with enough context to audit abuse.
func (s *Service) Admit(ctx context.Context, clientID string) (*models.Decision, error) {
	if clientID == "" {
		clientID = "unknown"
	}

	decision, err := s.store.Allow(ctx, clientID, s.limit, s.window)
	if err != nil {
		return nil, err
	}

	if decision.Allowed {
		if s.metrics != nil {
			s.metrics.IncrementAllowed()
		}
		return decision, nil
	}

	if s.metrics != nil {
		s.metrics.IncrementRejected()
	}
	if s.logger != nil {
		s.logger.InfoContext(ctx, "rate_limit_exceeded",
			"client_ip", clientID,
			"limit", s.limit,
			"window_seconds", int(s.window.Seconds()),
			"retry_after", decision.RetryAfter,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
	return decision, nil
}

package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"loannote/internal/ratelimit/models"
	"loannote/pkg/httputil"
	"loannote/pkg/middleware/metadata"
)

// Limiter is what the middleware needs from the rate-limit service.
type Limiter interface {
	Admit(ctx context.Context, clientID string) (*models.Decision, error)
}

type Middleware struct {
	limiter Limiter
	logger  *slog.Logger
}

func New(limiter Limiter, logger *slog.Logger) *Middleware {
	return &Middleware{limiter: limiter, logger: logger}
}

// RateLimit gates the wrapped handler per client IP. It runs before the body
// is read, so a throttled client costs nothing beyond the window check.
func (m *Middleware) RateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		ip := metadata.GetClientIP(ctx)

		decision, err := m.limiter.Admit(ctx, ip)
		if err != nil {
			// Fail open: a broken store should not take the endpoint down.
			m.logger.ErrorContext(ctx, "rate limit check failed", "error", err, "client_ip", ip)
			next.ServeHTTP(w, r)
			return
		}

		addRateLimitHeaders(w, decision)

		if !decision.Allowed {
			writeRateLimitExceeded(w, decision)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func addRateLimitHeaders(w http.ResponseWriter, decision *models.Decision) {
	if decision == nil {
		return
	}
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(decision.ResetAt.Unix(), 10))
}

func writeRateLimitExceeded(w http.ResponseWriter, decision *models.Decision) {
	w.Header().Set("Retry-After", strconv.Itoa(decision.RetryAfter))
	httputil.WriteJSON(w, http.StatusTooManyRequests, &models.RejectedResponse{
		Success:    false,
		Error:      "Rate limit exceeded. Please try again later.",
		RetryAfter: decision.RetryAfter,
	})
}

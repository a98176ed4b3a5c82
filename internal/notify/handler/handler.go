package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"loannote/internal/notify/metrics"
	"loannote/internal/notify/models"
	dErrors "loannote/pkg/domainerrors"
	"loannote/pkg/httputil"
	"loannote/pkg/middleware/metadata"
	"loannote/pkg/requestcontext"
)

// maxBodyBytes caps the submission body before any of it is read.
const maxBodyBytes = 10_000

// Service defines the dispatch operation the handler depends on.
type Service interface {
	Dispatch(ctx context.Context, req models.LoanNotificationRequest) models.NotificationResult
}

// Handler wires the loan-notification endpoint to the dispatcher.
type Handler struct {
	service Service
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func New(service Service, logger *slog.Logger, m *metrics.Metrics) *Handler {
	return &Handler{service: service, logger: logger, metrics: m}
}

// Register mounts the notification endpoint on the router. Rate limiting is
// applied by the router so it runs before the body is touched.
func (h *Handler) Register(r chi.Router) {
	r.Post("/api/loan-notification", h.HandleSubmit)
}

// HandleSubmit handles POST /api/loan-notification: decode, validate,
// sanitize, dispatch. Every outcome is a JSON body with an explicit success
// flag; nothing here may panic through to the server.
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	defer func() {
		if rec := recover(); rec != nil {
			h.logger.ErrorContext(ctx, "panic in loan notification handler",
				"panic", rec,
				"request_id", requestID,
			)
			httputil.WriteJSON(w, http.StatusInternalServerError,
				models.FailureResult("internal server error"))
		}
	}()

	var req models.LoanNotificationRequest
	if err := httputil.DecodeJSON(w, r, &req, maxBodyBytes); err != nil {
		h.reject(ctx, w, err, requestID)
		return
	}

	if err := req.Validate(); err != nil {
		h.reject(ctx, w, err, requestID)
		return
	}

	req.Sanitize()

	result := h.service.Dispatch(ctx, req)

	status := http.StatusOK
	if !result.Success {
		status = http.StatusInternalServerError
	}

	h.logger.InfoContext(ctx, "loan submission processed",
		"request_id", requestID,
		"client_ip", metadata.GetClientIP(ctx),
		"success", result.Success,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	httputil.WriteJSON(w, status, result)
}

func (h *Handler) reject(ctx context.Context, w http.ResponseWriter, err error, requestID string) {
	if h.metrics != nil {
		h.metrics.IncrementRejected()
	}

	code := dErrors.CodeOf(err)
	h.logger.InfoContext(ctx, "loan submission rejected",
		"request_id", requestID,
		"client_ip", metadata.GetClientIP(ctx),
		"code", string(code),
		"reason", dErrors.DescriptionOf(err),
	)

	httputil.WriteJSON(w, dErrors.HTTPStatus(code), models.FailureResult(dErrors.DescriptionOf(err)))
}

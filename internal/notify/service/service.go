package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"loannote/internal/notify/metrics"
	"loannote/internal/notify/models"
	"loannote/internal/platform/mailrelay"
	"loannote/pkg/requestcontext"
)

// timestampLayout renders the loan time as day/month/year hour:minute, the
// format the admin notices have always used.
const timestampLayout = "02/01/2006 15:04"

// Mailer is the outbound mail collaborator. *mailrelay.Client satisfies it;
// tests substitute an httptest-backed client.
type Mailer interface {
	Send(ctx context.Context, msg mailrelay.Message) error
}

// Service builds the admin notice for a sanitized loan submission and
// classifies the relay's answer. Dispatch never lets a transport failure
// escape as an error; every outcome becomes a NotificationResult.
type Service struct {
	mailer     Mailer
	adminEmail string
	logger     *slog.Logger
	metrics    *metrics.Metrics
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

func New(mailer Mailer, adminEmail string, opts ...Option) (*Service, error) {
	if mailer == nil {
		return nil, errors.New("mailer is required")
	}

	svc := &Service{mailer: mailer, adminEmail: adminEmail}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Dispatch sends the notice for one loan event. Fields must already be
// sanitized; they are embedded in markup as-is.
func (s *Service) Dispatch(ctx context.Context, req models.LoanNotificationRequest) models.NotificationResult {
	if s.adminEmail == "" {
		if s.logger != nil {
			s.logger.WarnContext(ctx, "notification dropped: ADMIN_EMAIL not configured",
				"request_id", requestcontext.RequestID(ctx))
		}
		return s.failure("notification recipient is not configured")
	}

	when := requestcontext.Now(ctx).Format(timestampLayout)
	msg := mailrelay.Message{
		To:      s.adminEmail,
		Subject: "New Book Loan: " + req.BookTitle,
		Text:    textBody(req, when),
		HTML:    htmlBody(req, when),
	}

	// Single attempt; the outcome goes straight back to the caller.
	err := s.mailer.Send(ctx, msg)
	if err == nil {
		if s.metrics != nil {
			s.metrics.IncrementSent()
		}
		if s.logger != nil {
			s.logger.InfoContext(ctx, "loan notification sent",
				"book_title", req.BookTitle,
				"admin_email", s.adminEmail,
				"request_id", requestcontext.RequestID(ctx),
			)
		}
		return models.SuccessResult("Notification sent successfully")
	}

	var apiErr *mailrelay.APIError
	if errors.As(err, &apiErr) {
		reason := apiErr.Reason
		if reason == "" {
			reason = "service error: " + strconv.Itoa(apiErr.Status)
		}
		if s.logger != nil {
			s.logger.ErrorContext(ctx, "mail relay rejected notification",
				"status", apiErr.Status,
				"reason", reason,
				"request_id", requestcontext.RequestID(ctx),
			)
		}
		return s.failure(reason)
	}

	if s.logger != nil {
		s.logger.ErrorContext(ctx, "mail relay transport failure",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
	return s.failure(fmt.Sprintf("notification delivery failed: %v", err))
}

func (s *Service) failure(reason string) models.NotificationResult {
	if s.metrics != nil {
		s.metrics.IncrementFailures()
	}
	return models.FailureResult(reason)
}

func textBody(req models.LoanNotificationRequest, when string) string {
	return fmt.Sprintf(
		"A new book loan was recorded.\n\n"+
			"Book: %s\n"+
			"Author: %s\n"+
			"Borrower: %s\n"+
			"Email: %s\n"+
			"Time: %s\n",
		req.BookTitle, req.BookAuthor, req.BorrowerName, req.BorrowerEmail, when,
	)
}

func htmlBody(req models.LoanNotificationRequest, when string) string {
	return fmt.Sprintf(
		"<h2>New Book Loan</h2>"+
			"<table>"+
			"<tr><td><strong>Book</strong></td><td>%s</td></tr>"+
			"<tr><td><strong>Author</strong></td><td>%s</td></tr>"+
			"<tr><td><strong>Borrower</strong></td><td>%s</td></tr>"+
			"<tr><td><strong>Email</strong></td><td>%s</td></tr>"+
			"<tr><td><strong>Time</strong></td><td>%s</td></tr>"+
			"</table>",
		req.BookTitle, req.BookAuthor, req.BorrowerName, req.BorrowerEmail, when,
	)
}

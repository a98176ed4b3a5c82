package handler_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	notifyhandler "loannote/internal/notify/handler"
	"loannote/internal/notify/models"
	notifyservice "loannote/internal/notify/service"
	"loannote/internal/platform/mailrelay"
	"loannote/internal/platform/staticfiles"
	rlmiddleware "loannote/internal/ratelimit/middleware"
	rlservice "loannote/internal/ratelimit/service"
	"loannote/internal/ratelimit/store/window"
	httptransport "loannote/internal/transport/http"
)

const (
	testRateLimit  = 3
	testRateWindow = 300 * time.Second
)

// SubmitSuite runs the whole stack: chi router, middleware chain, real
// in-memory window store, real dispatcher, and an httptest mail relay.
type SubmitSuite struct {
	suite.Suite

	router http.Handler
	relay  *httptest.Server

	relayStatus int
	relayBody   string
	relaySent   []mailrelay.Message

	adminEmail string
}

func TestSubmitSuite(t *testing.T) {
	suite.Run(t, new(SubmitSuite))
}

func (s *SubmitSuite) SetupTest() {
	s.relayStatus = http.StatusOK
	s.relayBody = ""
	s.relaySent = nil
	s.adminEmail = "admin@example.com"

	s.relay = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var msg mailrelay.Message
		require.NoError(s.T(), json.NewDecoder(r.Body).Decode(&msg))
		s.relaySent = append(s.relaySent, msg)
		w.WriteHeader(s.relayStatus)
		if s.relayBody != "" {
			_, _ = w.Write([]byte(s.relayBody))
		}
	}))

	s.buildRouter()
}

func (s *SubmitSuite) TearDownTest() {
	s.relay.Close()
}

// buildRouter re-wires the stack; tests that change adminEmail call it again.
func (s *SubmitSuite) buildRouter() {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	limiter, err := rlservice.New(window.NewMemoryStore(), testRateLimit, testRateWindow,
		rlservice.WithLogger(logger))
	require.NoError(s.T(), err)

	relayClient := mailrelay.New(mailrelay.Config{
		BaseURL: s.relay.URL,
		APIKey:  "test-key",
		From:    "Library <no-reply@lib.local>",
	})

	dispatcher, err := notifyservice.New(relayClient, s.adminEmail,
		notifyservice.WithLogger(logger))
	require.NoError(s.T(), err)

	staticDir := s.T().TempDir()
	require.NoError(s.T(), os.WriteFile(filepath.Join(staticDir, "index.html"),
		[]byte("<html>widget</html>"), 0o644))

	s.router = httptransport.NewRouter(httptransport.Deps{
		Notify:    notifyhandler.New(dispatcher, logger, nil),
		RateLimit: rlmiddleware.New(limiter, logger),
		Static:    staticfiles.New(staticDir),
	})
}

func (s *SubmitSuite) submit(body string, clientIP string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/loan-notification",
		strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if clientIP != "" {
		req.Header.Set("X-Forwarded-For", clientIP)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *SubmitSuite) decodeResult(rec *httptest.ResponseRecorder) models.NotificationResult {
	var result models.NotificationResult
	require.NoError(s.T(), json.NewDecoder(rec.Body).Decode(&result))
	return result
}

const validBody = `{"book_title":"Dune","book_author":"Herbert","borrower_name":"Ana","borrower_email":"ana@example.com"}`

func (s *SubmitSuite) TestValidSubmission() {
	rec := s.submit(validBody, "198.51.100.1")

	s.Equal(http.StatusOK, rec.Code)
	result := s.decodeResult(rec)
	s.True(result.Success)
	s.Equal("Notification sent successfully", result.Message)

	s.Require().Len(s.relaySent, 1)
	msg := s.relaySent[0]
	s.Equal("admin@example.com", msg.To)
	s.Equal("New Book Loan: Dune", msg.Subject)
	s.Equal("Library <no-reply@lib.local>", msg.From)
}

func (s *SubmitSuite) TestFieldOrderDoesNotMatter() {
	reordered := `{"borrower_email":"ana@example.com","borrower_name":"Ana","book_author":"Herbert","book_title":"Dune"}`

	first := s.submit(validBody, "198.51.100.2")
	second := s.submit(reordered, "198.51.100.3")

	s.Equal(first.Code, second.Code)
	s.Equal(s.decodeResult(first), s.decodeResult(second))
}

func (s *SubmitSuite) TestMissingField() {
	body := `{"book_title":"Dune","book_author":"Herbert","borrower_name":"Ana"}`
	rec := s.submit(body, "198.51.100.4")

	s.Equal(http.StatusBadRequest, rec.Code)
	result := s.decodeResult(rec)
	s.False(result.Success)
	s.Equal("Missing required field: borrower_email", result.Error)
	s.Empty(s.relaySent)
}

func (s *SubmitSuite) TestInvalidEmail() {
	body := `{"book_title":"Dune","book_author":"Herbert","borrower_name":"Ana","borrower_email":"not-an-email"}`
	rec := s.submit(body, "198.51.100.5")

	s.Equal(http.StatusBadRequest, rec.Code)
	result := s.decodeResult(rec)
	s.False(result.Success)
	s.Equal("Invalid borrower email format", result.Error)
}

func (s *SubmitSuite) TestInvalidJSON() {
	rec := s.submit(`{"book_title": `, "198.51.100.6")

	s.Equal(http.StatusBadRequest, rec.Code)
	result := s.decodeResult(rec)
	s.False(result.Success)
	s.Equal("Invalid JSON", result.Error)
}

func (s *SubmitSuite) TestTrailingDataAfterBody() {
	rec := s.submit(validBody+`{"book_title":"again"}`, "198.51.100.15")

	s.Equal(http.StatusBadRequest, rec.Code)
	result := s.decodeResult(rec)
	s.False(result.Success)
	s.Equal("Invalid JSON", result.Error)
	s.Empty(s.relaySent)
}

func (s *SubmitSuite) TestOversizedBody() {
	padding := strings.Repeat("x", 11_000)
	body := fmt.Sprintf(`{"book_title":"Dune","book_author":"Herbert","borrower_name":"Ana","borrower_email":"ana@example.com","padding":%q}`, padding)
	rec := s.submit(body, "198.51.100.7")

	s.Equal(http.StatusRequestEntityTooLarge, rec.Code)
	result := s.decodeResult(rec)
	s.False(result.Success)
	s.Equal("Request too large", result.Error)
}

func (s *SubmitSuite) TestRateLimiting() {
	const ip = "198.51.100.8"

	for i := range testRateLimit {
		rec := s.submit(validBody, ip)
		s.Equal(http.StatusOK, rec.Code, "request %d should pass", i+1)
	}

	// 4th inside the window is rejected regardless of body validity.
	rec := s.submit(`{"not even": "valid"`, ip)
	s.Equal(http.StatusTooManyRequests, rec.Code)
	s.NotEmpty(rec.Header().Get("Retry-After"))

	var body map[string]any
	require.NoError(s.T(), json.NewDecoder(rec.Body).Decode(&body))
	s.Equal(false, body["success"])
	s.Contains(body["error"], "Rate limit exceeded")

	// Other clients are unaffected.
	other := s.submit(validBody, "198.51.100.9")
	s.Equal(http.StatusOK, other.Code)
}

func (s *SubmitSuite) TestRateLimitHeaders() {
	rec := s.submit(validBody, "198.51.100.10")

	s.Equal(fmt.Sprint(testRateLimit), rec.Header().Get("X-RateLimit-Limit"))
	s.Equal(fmt.Sprint(testRateLimit-1), rec.Header().Get("X-RateLimit-Remaining"))
	s.NotEmpty(rec.Header().Get("X-RateLimit-Reset"))
}

func (s *SubmitSuite) TestSanitizedFieldsReachTheRelay() {
	body := `{"book_title":"  <b>Dune</b> ","book_author":"Frank 'Herbert'","borrower_name":"\"Ana\" <Lima>","borrower_email":"ana@example.com"}`
	rec := s.submit(body, "198.51.100.11")

	s.Equal(http.StatusOK, rec.Code)
	s.Require().Len(s.relaySent, 1)

	msg := s.relaySent[0]
	s.Equal("New Book Loan: bDune/b", msg.Subject)
	for _, rendered := range []string{msg.Subject, msg.Text} {
		for _, forbidden := range []string{"<b>", "'", `"`} {
			s.NotContains(rendered, forbidden)
		}
	}
	s.Contains(msg.Text, "Borrower: Ana Lima")
}

func (s *SubmitSuite) TestRelayFailureMapsTo500() {
	s.relayStatus = http.StatusUnprocessableEntity
	s.relayBody = `{"message":"invalid recipient"}`

	rec := s.submit(validBody, "198.51.100.12")

	s.Equal(http.StatusInternalServerError, rec.Code)
	result := s.decodeResult(rec)
	s.False(result.Success)
	s.Equal("invalid recipient", result.Error)
}

func (s *SubmitSuite) TestMissingAdminEmail() {
	s.adminEmail = ""
	s.buildRouter()

	rec := s.submit(validBody, "198.51.100.13")

	s.Equal(http.StatusInternalServerError, rec.Code)
	result := s.decodeResult(rec)
	s.False(result.Success)
	s.Equal("notification recipient is not configured", result.Error)
	s.Empty(s.relaySent, "relay must not be contacted without a recipient")
}

func (s *SubmitSuite) TestResponseHeaders() {
	rec := s.submit(validBody, "198.51.100.14")

	s.Equal("*", rec.Header().Get("Access-Control-Allow-Origin"))
	s.Equal("GET, POST, OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))
	s.Equal("Content-Type", rec.Header().Get("Access-Control-Allow-Headers"))
	s.Equal("no-cache, no-store, must-revalidate", rec.Header().Get("Cache-Control"))
	s.Equal("no-cache", rec.Header().Get("Pragma"))
	s.Equal("0", rec.Header().Get("Expires"))
	s.NotEmpty(rec.Header().Get("X-Request-ID"))
}

func (s *SubmitSuite) TestPreflight() {
	req := httptest.NewRequest(http.MethodOptions, "/api/loan-notification", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	s.Equal(http.StatusOK, rec.Code)
	s.Empty(rec.Body.String())
	s.Equal("*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func (s *SubmitSuite) TestUnknownPostPath() {
	req := httptest.NewRequest(http.MethodPost, "/api/unknown", strings.NewReader("{}"))
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	s.Equal(http.StatusNotFound, rec.Code)

	var body map[string]any
	require.NoError(s.T(), json.NewDecoder(rec.Body).Decode(&body))
	s.Equal(false, body["success"])
}

func (s *SubmitSuite) TestStaticFallback() {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	s.Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), "widget")
	s.Equal("no-cache, no-store, must-revalidate", rec.Header().Get("Cache-Control"))
}

func (s *SubmitSuite) TestHealthz() {
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	s.Equal(http.StatusOK, rec.Code)
}

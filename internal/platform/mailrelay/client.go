// Package mailrelay is the HTTP client for the hosted mail API that delivers
// administrator notifications. The relay accepts a JSON message and answers
// with a status code plus, on failure, a structured error body.
package mailrelay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Message is the outbound payload. Both renderings of the notice travel in a
// single call; the relay picks per recipient capabilities.
type Message struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Text    string `json:"text"`
	HTML    string `json:"html"`
}

// APIError is a non-success reply from the relay.
type APIError struct {
	Status int
	Reason string
}

func (e *APIError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("mail relay rejected message (status %d): %s", e.Status, e.Reason)
	}
	return fmt.Sprintf("mail relay rejected message (status %d)", e.Status)
}

type Config struct {
	BaseURL string
	APIKey  string
	From    string
	Timeout time.Duration
}

// Client talks to the relay. The embedded http.Client carries the configured
// timeout so a stalled relay cannot pin request-handling goroutines.
type Client struct {
	baseURL string
	apiKey  string
	from    string
	httpc   *http.Client
}

func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		from:    cfg.From,
		httpc:   &http.Client{Timeout: timeout},
	}
}

// Send submits the message in one attempt. A non-2xx reply returns *APIError
// with the relay's reason when its body is structured; transport failures
// return wrapped errors.
func (c *Client) Send(ctx context.Context, msg Message) error {
	if msg.From == "" {
		msg.From = c.from
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode mail message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/emails", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build mail request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("mail relay unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	return &APIError{Status: resp.StatusCode, Reason: extractReason(resp.Body)}
}

// extractReason pulls a human-readable reason out of a structured error body.
// Relays in the wild use either "message" or "error"; anything else is
// treated as unstructured.
func extractReason(body io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil {
		return ""
	}

	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return ""
	}
	if payload.Message != "" {
		return payload.Message
	}
	return payload.Error
}

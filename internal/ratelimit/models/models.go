package models

import "time"

// Decision is the outcome of one sliding-window check.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter int // seconds
}

// RejectedResponse is the API body written when a client is throttled. It
// uses the same success/error envelope as the notification endpoint so
// callers branch on one shape.
type RejectedResponse struct {
	Success    bool   `json:"success"`
	Error      string `json:"error"`
	RetryAfter int    `json:"retry_after,omitempty"`
}

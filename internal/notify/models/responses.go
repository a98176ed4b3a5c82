package models

// NotificationResult reports the outcome of one dispatch attempt. It is also
// the HTTP response body, verbatim: clients branch on Success, not on the
// status code alone.
type NotificationResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

func SuccessResult(message string) NotificationResult {
	return NotificationResult{Success: true, Message: message}
}

func FailureResult(reason string) NotificationResult {
	return NotificationResult{Success: false, Error: reason}
}

// Package httputil centralizes JSON encoding and decoding for HTTP handlers so
// every endpoint produces the same envelope and classifies body failures the
// same way.
package httputil

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	dErrors "loannote/pkg/domainerrors"
)

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// DecodeJSON reads the request body into v, capping it at maxBytes before any
// read happens. An oversized body yields CodePayloadTooLarge; anything that is
// not exactly one well-formed JSON value yields CodeBadRequest.
func DecodeJSON(w http.ResponseWriter, r *http.Request, v any, maxBytes int64) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		return classifyBodyError(err)
	}

	// Decode stops at the end of the first value; anything after it means
	// the body was not a single JSON object.
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return dErrors.New(dErrors.CodeBadRequest, "Invalid JSON")
		}
		return classifyBodyError(err)
	}
	return nil
}

func classifyBodyError(err error) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return dErrors.Wrap(err, dErrors.CodePayloadTooLarge, "Request too large")
	}
	return dErrors.Wrap(err, dErrors.CodeBadRequest, "Invalid JSON")
}

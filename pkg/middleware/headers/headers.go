// Package headers decorates every response with the headers the embedded
// widget depends on: permissive CORS so the catalog iframe can call the API
// from any origin, and cache suppression so stale assets never stick inside
// the iframe.
package headers

import "net/http"

// Decorate sets CORS and cache-control headers on all responses and
// short-circuits OPTIONS preflights with an empty 200.
func Decorate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type")
		h.Set("Cache-Control", "no-cache, no-store, must-revalidate")
		h.Set("Pragma", "no-cache")
		h.Set("Expires", "0")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

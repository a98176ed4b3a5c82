// Package httptransport assembles the public HTTP surface: the notification
// API, the metrics endpoint, and the static widget fallback.
package httptransport

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	notifyhandler "loannote/internal/notify/handler"
	rlmiddleware "loannote/internal/ratelimit/middleware"
	"loannote/pkg/httputil"
	"loannote/pkg/middleware/headers"
	"loannote/pkg/middleware/metadata"
	"loannote/pkg/middleware/requestid"
)

// Deps are the wired components the router mounts.
type Deps struct {
	Notify    *notifyhandler.Handler
	RateLimit *rlmiddleware.Middleware
	Static    http.Handler
}

// NewRouter builds the chi router. Order matters: request IDs and client
// metadata are set first so everything downstream can log and key on them;
// the widget headers run on every response, including preflights and static
// files; rate limiting guards only the API route so asset fetches are never
// throttled.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(requestid.RequestID)
	r.Use(metadata.ClientMetadata)
	r.Use(headers.Decorate)

	r.Get("/healthz", handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(deps.RateLimit.RateLimit)
		deps.Notify.Register(r)
	})

	// Everything unmatched is the static collaborator's problem: it serves
	// GET/HEAD from disk and answers other methods with a JSON 404.
	r.NotFound(deps.Static.ServeHTTP)
	r.MethodNotAllowed(deps.Static.ServeHTTP)

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Package staticfiles serves the widget's HTML and assets from a fixed local
// directory. It doubles as the router's fallback: anything that is not a
// recognized API call lands here.
package staticfiles

import (
	"net/http"

	dErrors "loannote/pkg/domainerrors"
	"loannote/pkg/httputil"
)

type Handler struct {
	fs http.Handler
}

func New(dir string) *Handler {
	return &Handler{fs: http.FileServer(http.Dir(dir))}
}

// ServeHTTP serves files for GET/HEAD and answers other methods with a JSON
// 404, matching the API's envelope so widget clients can always decode the
// body.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		httputil.WriteJSON(w, dErrors.HTTPStatus(dErrors.CodeNotFound), map[string]any{
			"success": false,
			"error":   "Not found",
		})
		return
	}

	h.fs.ServeHTTP(w, r)
}

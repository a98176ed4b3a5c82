package requestid

import (
	"net/http"

	"github.com/google/uuid"

	"loannote/pkg/requestcontext"
)

// Header is the request/response header carrying the request ID.
const Header = "X-Request-ID"

// RequestID assigns every request an ID, honoring one supplied by a trusted
// front proxy, and echoes it on the response so log lines can be correlated
// with client reports.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(Header)
		if id == "" {
			id = uuid.NewString()
		}

		w.Header().Set(Header, id)
		ctx := requestcontext.WithRequestID(r.Context(), id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

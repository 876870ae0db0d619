package metrics

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// UnmatchedRoute labels requests that no chi route matched, so arbitrary
// paths cannot inflate label cardinality.
const UnmatchedRoute = "unmatched"

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (w *statusRecorder) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// RequestMiddleware counts status API requests and error responses
// (status >= 400) per chi route pattern, e.g. "/recordings/{name}".
func RequestMiddleware(m *Metrics) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			route := routePattern(r)
			m.IncRequests(route)
			if rec.status >= 400 {
				m.IncErrors(route)
			}
		})
	}
}

// routePattern is only known once the router has matched, so it is read
// after the request has been served.
func routePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return UnmatchedRoute
	}
	if p := rctx.RoutePattern(); p != "" {
		return p
	}
	return UnmatchedRoute
}

// Package middleware holds the HTTP middleware wrapped around the search API.
// It covers request ids, Prometheus metrics, timeouts, CORS, per-client rate
// limiting and the admin key guard.
package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/spotlight/pkg/metrics"
)

// Metrics records request count, latency and in-flight requests. A nil m
// disables it.
func Metrics(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if m == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			done := m.TrackInFlight()
			defer done()

			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w}
			next.ServeHTTP(rec, r)
			m.ObserveHTTP(r.Method, normalizePath(r.URL.Path), rec.code(), time.Since(start))
		})
	}
}

// statusRecorder remembers the first status written. Zero means the handler
// never called WriteHeader, which net/http treats as 200.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	if s.status == 0 {
		s.status = code
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) code() int {
	if s.status == 0 {
		return http.StatusOK
	}
	return s.status
}

// normalizePath collapses the source name in /api/v1/sources/{name} so the
// label set stays bounded.
func normalizePath(path string) string {
	const sources = "/api/v1/sources/"
	rest, ok := strings.CutPrefix(path, sources)
	switch {
	case !ok || rest == "":
		return path
	case strings.HasSuffix(rest, "/changes"):
		return sources + "{name}/changes"
	default:
		return sources + "{name}"
	}
}

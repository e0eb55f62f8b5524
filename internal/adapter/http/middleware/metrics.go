package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/iho/fxledger/internal/infrastructure/metrics"
)

// MetricsMiddleware records request counts and latency.
type MetricsMiddleware struct {
	metrics *metrics.Metrics
}

// NewMetricsMiddleware creates a new MetricsMiddleware.
func NewMetricsMiddleware(m *metrics.Metrics) *MetricsMiddleware {
	return &MetricsMiddleware{metrics: m}
}

// Wrap wraps an http.Handler with metrics recording.
func (m *MetricsMiddleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapped := &metricsRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		path := normalizePath(r.URL.Path)
		m.metrics.HTTPRequests.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.statusCode)).Inc()
		m.metrics.HTTPDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

type metricsRecorder struct {
	http.ResponseWriter

	statusCode int
}

func (r *metricsRecorder) WriteHeader(code int) {
	r.statusCode = code
	r.ResponseWriter.WriteHeader(code)
}

// collections whose child segment is an entity ID, not a sub-resource
var idCollections = map[string]struct{}{
	"transactions":    {},
	"vault-transfers": {},
	"branches":        {},
	"holders":         {},
}

// fixed child routes that must not be mistaken for IDs
var literalChildren = map[string]struct{}{
	"income":   {},
	"expense":  {},
	"exchange": {},
	"transfer": {},
}

// normalizePath replaces entity IDs with a placeholder to keep metric
// cardinality bounded.
func normalizePath(path string) string {
	segments := strings.Split(path, "/")
	for i := 0; i < len(segments)-1; i++ {
		if _, ok := idCollections[segments[i]]; !ok {
			continue
		}
		if _, ok := literalChildren[segments[i+1]]; ok || segments[i+1] == "" {
			continue
		}
		segments[i+1] = ":id"
	}
	return strings.Join(segments, "/")
}

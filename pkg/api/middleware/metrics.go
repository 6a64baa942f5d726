package middleware

import (
	"net/http"
	"strconv"
	"time"
)

// MetricsRecorder is an interface for recording HTTP metrics
type MetricsRecorder interface {
	RecordHTTPRequest(method, path, status string, duration time.Duration)
	RecordHTTPResponseSize(method, path string, size int)
	IncRequestsInFlight()
	DecRequestsInFlight()
}

// unmatchedRoute labels requests no mux pattern matched, keeping label
// cardinality bounded.
const unmatchedRoute = "unmatched"

func routeLabel(r *http.Request) string {
	if r.Pattern != "" {
		return r.Pattern
	}
	return unmatchedRoute
}

// Metrics creates middleware that tracks HTTP request metrics. Requests are
// labelled with the ServeMux pattern that handled them.
func Metrics(recorder MetricsRecorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if recorder == nil {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()

			recorder.IncRequestsInFlight()
			defer recorder.DecRequestsInFlight()

			rec := newStatusRecorder(w)
			next.ServeHTTP(rec, r)

			route := routeLabel(r)
			recorder.RecordHTTPRequest(r.Method, route, strconv.Itoa(rec.statusCode), time.Since(start))
			recorder.RecordHTTPResponseSize(r.Method, route, rec.bytesWritten)
		})
	}
}

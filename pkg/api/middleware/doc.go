// Package middleware provides HTTP middleware components for the pathfinder API server.
//
// The middleware package is organized into separate files by concern:
//
//   - recovery.go: Panic recovery middleware
//   - request_id.go: Request ID generation and tracking middleware
//   - logging.go: Structured request logging middleware
//   - metrics.go: HTTP metrics collection middleware
//   - ratelimit.go: Per-client rate limiting built on golang.org/x/time/rate
//   - trusted_proxy.go: Client IP extraction behind trusted proxies
//   - body_limit.go: Request body size limiting middleware
//
// All middleware follows the standard pattern: func(http.Handler) http.Handler
// and is combined with Chain:
//
//	handler := middleware.Chain(mux,
//		middleware.PanicRecovery(logger),
//		middleware.RequestID(),
//		middleware.Logging(logger),
//	)
package middleware

import (
	"encoding/json"
	"net/http"
)

// Chain wraps h so the first middleware is outermost.
func Chain(h http.Handler, mws ...func(http.Handler) http.Handler) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		if mws[i] != nil {
			h = mws[i](h)
		}
	}
	return h
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

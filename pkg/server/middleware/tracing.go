package middleware

import (
	"net/http"

	"odd-hq/decisioning/pkg/telemetry/tracing"
)

// Tracing extracts the W3C trace context of incoming requests so spans
// started by handlers join the caller's trace.
func Tracing(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := tracing.Extract(r.Context(), r.Header)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"odd-hq/decisioning/pkg/telemetry/logging"
)

// RequestIDHeader carries the request ID on requests and responses.
const RequestIDHeader = "X-Request-ID"

// PoweredByHeader identifies the service on every response, including
// error responses.
const PoweredByHeader = "X-Powered-By"

// PoweredBy is the PoweredByHeader value.
const PoweredBy = "odd-decisioning"

// RequestID reuses the X-Request-ID header of the request or generates a
// new one, stores it in the context for logging and echoes it on the
// response with the identifying headers.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		w.Header().Set(RequestIDHeader, requestID)
		w.Header().Set(PoweredByHeader, PoweredBy)

		ctx := logging.WithRequestID(r.Context(), requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestID returns the request ID stored by RequestID.
func GetRequestID(r *http.Request) string {
	return logging.GetRequestID(r.Context())
}

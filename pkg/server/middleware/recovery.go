package middleware

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
)

var errInternal = errors.New("internal error")

// Recovery turns a handler panic into a 500 plain-text response. The
// identifying headers already set on the response are kept.
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "server.http")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.ErrorContext(r.Context(), "panic in handler",
						"error", rec,
						"method", r.Method,
						"path", r.URL.Path,
						"stack", string(debug.Stack()),
					)
					WriteError(w, r, errInternal)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// WriteError writes a 500 response whose body names the request method and
// the error.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	h := w.Header()
	h.Del("Set-Cookie")
	h.Set("Content-Type", "text/plain; charset=utf-8")
	h.Set(PoweredByHeader, PoweredBy)
	w.WriteHeader(http.StatusInternalServerError)
	_, _ = fmt.Fprintf(w, "%s: %s", r.Method, err.Error())
}

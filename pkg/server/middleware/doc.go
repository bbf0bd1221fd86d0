// Package middleware provides the HTTP middleware chain of the decide
// server: request IDs, trace context extraction, request logging, panic
// recovery and CORS. RateLimit keeps a token bucket per visitor and is
// applied to individual routes.
//
// Handlers are wrapped innermost first:
//
//	handler = middleware.CORS(origins)(handler)
//	handler = middleware.RequestID(handler)
//	handler = middleware.Tracing(handler)
//	handler = middleware.Logging(logger)(handler)
//	handler = middleware.Recovery(logger)(handler)
package middleware

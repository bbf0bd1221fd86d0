// Package server exposes a decisioning client over HTTP.
//
// Routes:
//
//	GET|POST /decide   decide for a page URL and return the response envelope
//	GET      /...      proxy the origin page and apply the decisions to it
//	GET      /health   liveness
//	GET      /ready    readiness (rules loaded, history reachable)
//	GET      /version  build information
//	GET      /metrics  Prometheus metrics, when configured
//
// Both decision routes read the visitor ECID from the X-ADOBE-ECID cookie
// and set it again from the response. Failures answer 500 with a plain-text
// body and keep the identifying headers. With server.rate_limit set, each
// visitor is limited on the decision routes and answered 429 when over.
package server

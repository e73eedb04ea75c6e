// Package middleware holds the net/http middleware applied in front of the
// riskintel HTTP API. Every middleware has the standard signature so the
// stack covers Gin routes and anything else mounted on the server mux.
package middleware

import "net/http"

// Middleware wraps an http.Handler.
type Middleware func(http.Handler) http.Handler

// Chain composes middleware. The first one is outermost.
func Chain(middlewares ...Middleware) Middleware {
	return func(final http.Handler) http.Handler {
		for i := len(middlewares) - 1; i >= 0; i-- {
			final = middlewares[i](final)
		}
		return final
	}
}

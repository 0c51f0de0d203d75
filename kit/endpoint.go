// Package kit holds the small transport-agnostic plumbing shared by the HTTP
// and MCP surfaces: the Endpoint abstraction, middleware chaining, and
// request-scoped context values.
package kit

import "context"

// Endpoint is a single transport-agnostic operation. Both the HTTP handlers
// and the MCP tools decode into a typed request and call one of these.
type Endpoint func(ctx context.Context, req any) (any, error)

// Middleware wraps an Endpoint.
type Middleware func(Endpoint) Endpoint

// Chain composes middlewares so the first listed runs outermost.
func Chain(mws ...Middleware) Middleware {
	return func(next Endpoint) Endpoint {
		for i := len(mws) - 1; i >= 0; i-- {
			next = mws[i](next)
		}
		return next
	}
}

package provider

// Middleware wraps a Provider. Wrappers embed the inner Provider so every
// method except the ones they override delegates unchanged.
type Middleware func(Provider) Provider

// Chain composes middlewares. The first one is outermost.
//
// Chain(a, b, c)(p) is equivalent to a(b(c(p))).
func Chain(middlewares ...Middleware) Middleware {
	return func(inner Provider) Provider {
		for i := len(middlewares) - 1; i >= 0; i-- {
			inner = middlewares[i](inner)
		}
		return inner
	}
}

// Package provider defines the contract every intelligence backend
// implements and the machinery the dispatcher builds on: a shared Base
// implementation, a tiered Registry, startup resolution and middleware.
//
// Concrete providers embed *Base and route Complete through Base.Execute,
// which applies the capability gate, the fixed rate window and the
// per-attempt timeout:
//
//	type myProvider struct{ *provider.Base }
//
//	func (p *myProvider) Complete(ctx context.Context, req *provider.Request) (*provider.Response, error) {
//	    return p.Execute(ctx, req, p.call)
//	}
//
// Providers are created from configuration through factories keyed by kind
// and grouped into tiers (primary, secondary, fallback):
//
//	reg := provider.NewRegistry()
//	reg.RegisterFactory("offline", offline.Factory)
//	p, _ := reg.Create(provider.Config{Kind: "offline", Enabled: true})
//	_ = reg.Add(p)
//	active, _ := provider.Resolve(reg, "openai", "offline")
//
// # Middleware
//
// Middleware wraps a Provider. Use Chain to compose them:
//
//	wrapped := provider.Chain(
//	    provider.WithLogging(log),
//	    provider.WithMetrics(metrics),
//	    provider.WithTracing(),
//	)(p)
package provider

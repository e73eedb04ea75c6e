package provider

import "context"

// Provider is the contract every intelligence backend implements.
// Concrete providers normally embed *Base and implement Complete by
// delegating to Base.Execute.
type Provider interface {
	// ID returns the provider's unique registry key.
	ID() string
	// Name returns the display name reported in response metadata.
	Name() string
	// Tier returns the priority tier the provider belongs to.
	Tier() Tier
	// Enabled reports the configuration enabled flag.
	Enabled() bool
	// Capabilities returns the declared request types and flags.
	Capabilities() Capabilities

	// Init prepares the provider (dial, validate credentials). Called once by the service.
	Init(ctx context.Context) error
	// Close releases resources. Must be safe to call more than once.
	Close(ctx context.Context) error

	// IsAvailable checks enabled flag, rate window and optional health probe, in that order.
	IsAvailable(ctx context.Context) bool
	// Complete executes the request. Failures are returned as an error or an
	// unsuccessful Response; both are treated the same by the dispatcher.
	Complete(ctx context.Context, req *Request) (*Response, error)
	// Status returns a snapshot of health counters and rate window state.
	Status() Status
}

// Factory creates a provider instance from configuration.
type Factory func(cfg Config) (Provider, error)

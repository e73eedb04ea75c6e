// Package orchestrator is the dispatcher that sits between callers and the
// provider registry. A Service is constructed explicitly by the host
// application and shared by reference; it holds no global state.
//
// One call to Request makes at most two provider attempts: the active
// provider, then, on a retryable failure, the configured fallback.
//
// Basic usage:
//
//	svc := orchestrator.New(cfg,
//	    orchestrator.WithFactory(openai.Kind, openai.Factory),
//	    orchestrator.WithMetrics(metrics),
//	)
//	if err := svc.Initialize(ctx); err != nil {
//	    return err
//	}
//	defer svc.Destroy(ctx)
//
//	resp := svc.Request(ctx, orchestrator.Input{
//	    Type: provider.TypeRiskCommentary,
//	    Data: map[string]any{"company": "Acme"},
//	    Options: provider.Options{Cache: true},
//	})
//
// Request never returns a Go error. Failures are carried in Response.Error
// as a normalized *errors.AppError.
package orchestrator

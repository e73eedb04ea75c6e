// Package observability wires OpenTelemetry tracing and metrics for the
// dispatch path, and aggregates provider health.
//
// Setup installs OTLP/HTTP exporters from a Config and returns one
// shutdown func:
//
//	shutdown, err := observability.Setup(ctx, cfg, "riskintel", version, env)
//	defer shutdown(ctx)
//	metrics, err := observability.NewMetrics(observability.Meter("riskintel"))
//
// Each logical request runs inside an Operation, each provider attempt
// inside a provider span:
//
//	ctx, op := observability.StartOperation(ctx, req.ID, string(req.Type), metrics)
//	defer op.End(ctx, resp.Metadata.Provider, code)
package observability

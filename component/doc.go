// Package component manages the lifecycle of the service's long-lived
// parts: the orchestrator, the event stream and the HTTP server.
//
// A Registry starts components in registration order, rolls back the
// started ones when a later start fails, and stops them in reverse.
package component

// Package bootstrap runs the riskintel process: it loads nothing itself but
// takes a validated config, initializes logging, starts the registered
// components in order, runs lifecycle hooks and shuts down on SIGINT or
// SIGTERM.
package bootstrap

// Package version reports the build of the running binary.
//
// Version, commit and build time can be stamped at link time:
//
//	go build -ldflags "-X github.com/kbukum/riskintel/version.Version=1.4.0" ./cmd/riskintel
package version

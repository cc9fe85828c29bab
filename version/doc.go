// Package version reports relay's build metadata.
//
// Release builds set the variables with -ldflags:
//
//	go build -ldflags "-X github.com/kbukum/relay/version.Version=1.4.0 -X github.com/kbukum/relay/version.Commit=$(git rev-parse --short HEAD)"
//
// Unset values fall back to the VCS stamp embedded by the go command.
package version

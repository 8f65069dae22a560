// Package cmdtest holds module-wide metadata for the cmdtest command harness.
package cmdtest

// Version is the release version, overridden at build time with
// -ldflags "-X github.com/deixis/cmdtest.Version=...".
var Version = "dev"

// Package version holds the build version, set at link time.
package version

// Version is overridden via -ldflags at release build time.
var Version = "dev"

package version

// Version is the current application version.
// Overridden at build time via -ldflags "-X impactgo/pkg/version.Version=...".
var Version = "0.3.0"

package config

// These variables are set at build time via ldflags for release builds.
// Default values are used for local development builds.
var Version = "dev"
var BuildTime = "unknown"
var GitCommit = "unknown"

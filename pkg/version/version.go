package version

// Set at build time via -ldflags.
var (
	Version   = "0.3.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

package static

// Set at build time with -ldflags
var (
	Version = "dev"
	Commit  = "none"
)

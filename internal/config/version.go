package config

// Version is the wikiroute binary version.
// Set at build time via: -ldflags "-X github.com/wikiroute/wikiroute/internal/config.Version=<tag>"
// Defaults to "dev" when built without ldflags.
var Version = "dev"

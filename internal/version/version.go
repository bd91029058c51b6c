package version

// Version is the application version, overridable at build time via
// -ldflags "-X echolot/internal/version.Version=...".
var Version = "0.1.0"

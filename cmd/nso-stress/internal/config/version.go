package config

var (
	// Version is the nso-stress version number, which is injected during build time.
	Version = "0.0.0"

	// CommitHash is the nso-stress git commit hash, which is injected during build time.
	CommitHash = ""

	// BuildTimestamp is the timestamp at which nso-stress was built, injected during build time.
	BuildTimestamp = ""

	// Branch is the git branch from which nso-stress was built, injected during build time.
	Branch = ""
)

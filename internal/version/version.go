// Package version holds the build identity of greetd.
package version

// Overridden at build time:
// go build -ldflags "-X greetd/internal/version.Version=1.0.0 -X greetd/internal/version.Commit=abc123"
var (
	// Version is the semantic version of greetd
	Version = "0.3.0"

	// Commit is the git commit hash (set at build time)
	Commit = "unknown"

	// BuildDate is the build timestamp (set at build time)
	BuildDate = "unknown"
)

// Info returns the version with a short commit suffix when one is known.
func Info() string {
	if Commit != "unknown" && len(Commit) > 7 {
		return Version + " (" + Commit[:7] + ")"
	}
	return Version
}

// Full returns the multi-line form printed by `greetd version`.
func Full() string {
	return "greetd version " + Version + "\n" +
		"Commit: " + Commit + "\n" +
		"Built: " + BuildDate
}

// Package version provides information about the build version of the service.
package version

// BuildInfo holds version information about the service build.
type BuildInfo struct {
	Service string `json:"service"`
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
}

// Info returns the build information. The version, commit, and date variables
// are intended to be set at build time using -ldflags.
func Info() BuildInfo {
	// Set via -ldflags "-X 'sift/internal/core/version.version=v0.0.1'
	// -X 'sift/internal/core/version.commit=abcd' -X 'sift/internal/core/version.date=2025-09-02'"
	return BuildInfo{
		Service: "sift",
		Version: version,
		Commit:  commit,
		Date:    date,
	}
}

// String renders a one-line banner, e.g. "sift v0.1.0 (abcd, 2025-09-02)"
func (b BuildInfo) String() string {
	return b.Service + " " + b.Version + " (" + b.Commit + ", " + b.Date + ")"
}

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

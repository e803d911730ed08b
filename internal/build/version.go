// Package build holds version information stamped at build time with
// -ldflags "-X github.com/drummonds/gosign/internal/build.Version=...".
package build

var (
	// Version is the release version, "dev" when built from source.
	Version = "dev"
	// Date is the build date in YYYY-MM-DD form.
	Date = ""
)

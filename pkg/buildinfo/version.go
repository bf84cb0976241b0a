// Package buildinfo holds the version stamped into the easyupdate binary.
//
// Set the variables with ldflags:
//
//	go build -ldflags "-X github.com/extsync/easyupdate/pkg/buildinfo.Version=v0.3.0 \
//	    -X github.com/extsync/easyupdate/pkg/buildinfo.Commit=$(git rev-parse HEAD) \
//	    -X github.com/extsync/easyupdate/pkg/buildinfo.Date=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
package buildinfo

import "fmt"

var (
	// Version is the release tag, "dev" for local builds.
	Version = "dev"

	// Commit is the git commit SHA.
	Commit = "none"

	// Date is the build timestamp.
	Date = "unknown"
)

// String returns the formatted build information.
func String() string {
	return fmt.Sprintf("version: %s\ncommit: %s\nbuilt: %s", Version, Commit, Date)
}

// Template returns the version template used by the root command.
func Template() string {
	return fmt.Sprintf("{{.Name}} %s (commit %s, built %s)\n", Version, Commit, Date)
}

// UserAgent identifies registry requests.
func UserAgent() string {
	return "easyupdate/" + Version
}

// Package pypi provides an HTTP client for the Python Package Index JSON
// API (https://pypi.org/pypi/{name}/json).
//
// [Client.FetchPackage] returns the latest release of a project together
// with its requires_dist entries. [Client.Resolve] turns those entries
// into dependency edges by evaluating each PEP 508 marker against the
// client's [marker.Environment]: requirements whose marker is false,
// including every extra-only requirement, are dropped. Requirements that
// fail to parse are logged and skipped.
//
// When the release's sdist file name differs from "name-version.tar.gz",
// Resolve attaches a source_tmpl option so a newly added extension can
// download the right file.
//
// [marker.Environment]: github.com/extsync/easyupdate/pkg/marker.Environment
package pypi

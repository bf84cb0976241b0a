package integrations

import (
	"errors"
	"net/http"
	"regexp"
	"strings"
	"time"
)

// DefaultHTTPTimeout bounds a single registry request.
const DefaultHTTPTimeout = 30 * time.Second

var (
	// ErrNotFound is returned when a package doesn't exist in the registry.
	ErrNotFound = errors.New("resource not found")

	// ErrNetwork is returned for HTTP failures (timeouts, connection errors,
	// unexpected status codes, malformed payloads).
	ErrNetwork = errors.New("network error")
)

// DepKind is the metadata field a dependency edge was read from. It is
// kept for diagnostics only.
type DepKind string

const (
	KindDepends      DepKind = "Depends"
	KindImports      DepKind = "Imports"
	KindLinkingTo    DepKind = "LinkingTo"
	KindRequiresDist DepKind = "RequiresDist"
)

// Dependency is one outgoing edge of a package.
type Dependency struct {
	Name string
	Kind DepKind
}

// Option is an ecosystem-specific entry option, such as a source_tmpl
// for a Python package whose sdist name differs from the project name.
type Option struct {
	Key   string
	Value string
}

// Package is the registry-neutral answer to a lookup.
type Package struct {
	Name         string       // Name as published by the registry
	Version      string       // Authoritative (latest) version
	Title        string       // One-line description
	URL          string       // Landing page
	Registry     string       // Registry that answered, e.g. "cran"
	Dependencies []Dependency // Edges in registry order
	Options      []Option     // Entry options for newly added extensions
}

// NewHTTPClient creates an HTTP client with the given per-request timeout.
// A zero timeout selects [DefaultHTTPTimeout].
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultHTTPTimeout
	}
	return &http.Client{Timeout: timeout}
}

var pep503Separators = regexp.MustCompile(`[-_.]+`)

// NormalizePkgName converts a Python distribution name to its PEP 503
// canonical form: lower case with runs of "-", "_" and "." folded to "-".
func NormalizePkgName(name string) string {
	return pep503Separators.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "-")
}

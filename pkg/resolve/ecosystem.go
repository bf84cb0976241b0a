package resolve

import (
	"github.com/extsync/easyupdate/pkg/integrations"
)

// Ecosystem holds the naming rules of one package universe.
type Ecosystem struct {
	Name string

	// Normalize maps a package name to its identity key.
	Normalize func(string) string

	// Excluded names are never looked up, expanded or added.
	Excluded map[string]bool
}

// Key returns the identity key of name.
func (e Ecosystem) Key(name string) string {
	if e.Normalize == nil {
		return name
	}
	return e.Normalize(name)
}

// IsExcluded reports whether name belongs to the exclusion set.
func (e Ecosystem) IsExcluded(name string) bool {
	return e.Excluded[e.Key(name)]
}

// R names are case sensitive; packages shipped with R itself are excluded.
var R = Ecosystem{
	Name:      "R",
	Normalize: func(s string) string { return s },
	Excluded: set("R", "base", "compiler", "datasets", "graphics", "grDevices", "grid",
		"methods", "parallel", "splines", "stats", "stats4", "tcltk", "tools", "utils"),
}

// Python names follow PEP 503; standard-library backports are excluded.
var Python = Ecosystem{
	Name:      "Python",
	Normalize: integrations.NormalizePkgName,
	Excluded: set("argparse", "asyncio", "typing", "sys", "functools32", "enum34",
		"future", "configparser"),
}

func set(names ...string) map[string]bool {
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[n] = true
	}
	return m
}

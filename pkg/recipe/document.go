package recipe

import (
	"path/filepath"
	"strings"

	"github.com/extsync/easyupdate/pkg/resolve"
)

// Ecosystem selects the registries and naming rules for a recipe.
type Ecosystem string

const (
	EcosystemUnknown Ecosystem = ""
	EcosystemR       Ecosystem = "R"
	EcosystemPython  Ecosystem = "Python"
)

// Option is one entry of an extension's options dict, value rendered
// in Python syntax.
type Option struct {
	Key   string
	Value string
}

// Extension is one declared exts_list entry.
type Extension struct {
	Name       string   // Name with templates resolved
	RawName    string   // Name as written in the source
	Version    string   // Version with templates resolved, "" for bare entries
	RawVersion string   // Version as written in the source
	Options    []Option // Options dict, in source order
	Bare       bool     // Entry is a plain string without version
}

// Toolchain names the compiler toolchain of a recipe.
type Toolchain struct {
	Name    string
	Version string
}

// IsSystem reports whether the toolchain is EasyBuild's system toolchain.
func (t Toolchain) IsSystem() bool {
	return strings.EqualFold(t.Name, "system") || t.Name == ""
}

func (t Toolchain) String() string {
	if t.IsSystem() {
		return "system"
	}
	return t.Name + "-" + t.Version
}

// Dependency is one entry of the dependencies list.
type Dependency struct {
	Name          string
	Version       string
	VersionSuffix string
	Toolchain     *Toolchain // Explicit toolchain, nil means the recipe's
}

// Document is a loaded easyconfig.
type Document struct {
	Path             string
	Name             string
	Version          string
	VersionSuffix    string
	Toolchain        Toolchain
	Easyblock        string
	ExtsDefaultClass string
	Ecosystem        Ecosystem
	Extensions       []Extension
	Dependencies     []Dependency
	PythonVersion    string // Full version of the Python the extensions target
	RVersion         string
	BiocVersion      string // local_biocver, R recipes only
	Source           []byte // Original file contents

	// Baseline holds extension names provided by build dependencies.
	// It is filled by [Locator.Baseline].
	Baseline []string
}

// ModuleName is the EasyBuild module name, e.g.
// "R-bundle-CRAN-2023.12-foss-2023a".
func (d *Document) ModuleName() string {
	name := d.Name + "-" + d.Version
	if !d.Toolchain.IsSystem() {
		name += "-" + d.Toolchain.String()
	}
	return name + Interpolate(d.VersionSuffix, d.Templates())
}

// FileNameMatches reports whether the recipe file is named after its
// module.
func (d *Document) FileNameMatches() bool {
	return strings.TrimSuffix(filepath.Base(d.Path), ".eb") == d.ModuleName()
}

// OutputPath is the sibling file the rewritten recipe is written to.
func (d *Document) OutputPath() string {
	return strings.TrimSuffix(d.Path, ".eb") + ".update"
}

// Declarations converts the extensions to resolver input.
func (d *Document) Declarations() []resolve.Declaration {
	decls := make([]resolve.Declaration, len(d.Extensions))
	for i, e := range d.Extensions {
		decls[i] = resolve.Declaration{Name: e.Name, Version: e.Version, Bare: e.Bare}
	}
	return decls
}

// ResolveEcosystem returns the naming rules of the recipe's ecosystem.
func (d *Document) ResolveEcosystem() (resolve.Ecosystem, bool) {
	switch d.Ecosystem {
	case EcosystemR:
		return resolve.R, true
	case EcosystemPython:
		return resolve.Python, true
	}
	return resolve.Ecosystem{}, false
}

// Templates returns the EasyBuild template values known for the recipe.
func (d *Document) Templates() map[string]string {
	t := map[string]string{
		"name":          d.Name,
		"namelower":     strings.ToLower(d.Name),
		"nameletter":    firstLetter(d.Name),
		"version":       d.Version,
		"versionsuffix": d.VersionSuffix,
	}
	if d.PythonVersion != "" {
		t["pyver"] = d.PythonVersion
		t["pyshortver"] = shortVersion(d.PythonVersion)
	}
	if d.RVersion != "" {
		t["rver"] = d.RVersion
		t["rshortver"] = shortVersion(d.RVersion)
	}
	return t
}

// Interpolate replaces %(key)s templates in s. Unknown templates are
// left untouched.
func Interpolate(s string, templates map[string]string) string {
	if !strings.Contains(s, "%(") {
		return s
	}
	var b strings.Builder
	for {
		start := strings.Index(s, "%(")
		if start < 0 {
			break
		}
		end := strings.Index(s[start:], ")s")
		if end < 0 {
			break
		}
		key := s[start+2 : start+end]
		b.WriteString(s[:start])
		if v, ok := templates[key]; ok {
			b.WriteString(v)
		} else {
			b.WriteString(s[start : start+end+2])
		}
		s = s[start+end+2:]
	}
	b.WriteString(s)
	return b.String()
}

// DetectEcosystem decides between R and Python from the recipe name,
// its easyblock or exts_defaultclass.
func DetectEcosystem(name, easyblock, defaultClass string) Ecosystem {
	switch {
	case name == "R":
		return EcosystemR
	case name == "Python":
		return EcosystemPython
	case easyblock == "PythonPackage" || easyblock == "PythonBundle":
		return EcosystemPython
	case easyblock == "RPackage":
		return EcosystemR
	case defaultClass == "RPackage":
		return EcosystemR
	case defaultClass == "PythonPackage":
		return EcosystemPython
	}
	return EcosystemUnknown
}

func firstLetter(s string) string {
	if s == "" {
		return ""
	}
	return strings.ToLower(s[:1])
}

func shortVersion(v string) string {
	parts := strings.SplitN(v, ".", 3)
	if len(parts) < 2 {
		return v
	}
	return parts[0] + "." + parts[1]
}

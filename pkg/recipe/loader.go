package recipe

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"go.starlark.net/resolve"
	"go.starlark.net/starlark"

	apperr "github.com/extsync/easyupdate/pkg/errors"
)

// maxUndefinedRounds bounds the predeclare-and-retry loop.
const maxUndefinedRounds = 32

func init() {
	// Easyconfigs reassign globals and use top-level if/for.
	resolve.AllowGlobalReassign = true
	resolve.AllowSet = true
	resolve.AllowRecursion = true
}

// constants mirrors the EasyBuild names easyconfigs use most.
var constants = map[string]string{
	"SOURCE_TAR_GZ":       "%(name)s-%(version)s.tar.gz",
	"SOURCE_TGZ":          "%(name)s-%(version)s.tgz",
	"SOURCE_TAR_BZ2":      "%(name)s-%(version)s.tar.bz2",
	"SOURCE_TAR_XZ":       "%(name)s-%(version)s.tar.xz",
	"SOURCE_ZIP":          "%(name)s-%(version)s.zip",
	"SOURCE_WHL":          "%(name)s-%(version)s-py2.py3-none-any.whl",
	"SOURCE_PY3_WHL":      "%(name)s-%(version)s-py3-none-any.whl",
	"SOURCELOWER_TAR_GZ":  "%(namelower)s-%(version)s.tar.gz",
	"SOURCELOWER_TGZ":     "%(namelower)s-%(version)s.tgz",
	"SOURCELOWER_TAR_BZ2": "%(namelower)s-%(version)s.tar.bz2",
	"SOURCELOWER_TAR_XZ":  "%(namelower)s-%(version)s.tar.xz",
	"SOURCELOWER_ZIP":     "%(namelower)s-%(version)s.zip",
	"SHLIB_EXT":           "so",
	"GITHUB_SOURCE":       "https://github.com/%(github_account)s/%(name)s/archive",
	"GITHUB_LOWER_SOURCE": "https://github.com/%(github_account)s/%(namelower)s/archive",
	"GITHUB_RELEASE":      "https://github.com/%(github_account)s/%(name)s/releases/download/v%(version)s",
	"PYPI_SOURCE":         "https://pypi.python.org/packages/source/%(nameletter)s/%(name)s",
	"PYPI_LOWER_SOURCE":   "https://pypi.python.org/packages/source/%(nameletterlower)s/%(namelower)s",
	"SOURCEFORGE_SOURCE":  "https://download.sourceforge.net/%(namelower)s",
	"GNU_SOURCE":          "https://ftpmirror.gnu.org/gnu/%(namelower)s",
	"CRAN_SOURCE":         "https://cran.r-project.org/src/contrib",
}

// LoadOptions tunes [Load].
type LoadOptions struct {
	// Ecosystem overrides language detection when set.
	Ecosystem Ecosystem
}

// Load reads and evaluates the easyconfig at path.
func Load(path string, opts LoadOptions) (*Document, error) {
	if err := apperr.ValidateRecipePath(path); err != nil {
		return nil, err
	}
	src, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.Wrap(apperr.ErrCodeFileNotFound, err, "recipe %s", path)
		}
		return nil, apperr.Wrap(apperr.ErrCodeInvalidPath, err, "read recipe %s", path)
	}
	doc, err := Parse(path, src)
	if err != nil {
		return nil, err
	}
	if opts.Ecosystem != EcosystemUnknown {
		doc.Ecosystem = opts.Ecosystem
	}
	return doc, nil
}

// Parse evaluates src as an easyconfig named path.
func Parse(path string, src []byte) (*Document, error) {
	globals, err := evaluate(path, src)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrCodeInvalidRecipe, err, "evaluate %s", path)
	}

	doc := &Document{
		Path:             path,
		Source:           src,
		Name:             stringGlobal(globals, "name"),
		Version:          stringGlobal(globals, "version"),
		VersionSuffix:    stringGlobal(globals, "versionsuffix"),
		Easyblock:        stringGlobal(globals, "easyblock"),
		ExtsDefaultClass: stringGlobal(globals, "exts_defaultclass"),
		BiocVersion:      stringGlobal(globals, "local_biocver"),
	}
	if doc.Name == "" {
		return nil, apperr.New(apperr.ErrCodeInvalidRecipe, "%s: name is not set", path)
	}
	doc.Ecosystem = DetectEcosystem(doc.Name, doc.Easyblock, doc.ExtsDefaultClass)
	if tc, ok := toolchain(globals["toolchain"]); ok {
		doc.Toolchain = tc
	}

	if deps, ok := globals["dependencies"]; ok {
		doc.Dependencies, err = dependencies(deps)
		if err != nil {
			return nil, apperr.Wrap(apperr.ErrCodeInvalidRecipe, err, "%s: dependencies", path)
		}
	}
	switch doc.Name {
	case "Python":
		doc.PythonVersion = doc.Version
	case "R":
		doc.RVersion = doc.Version
	}
	for _, dep := range doc.Dependencies {
		switch dep.Name {
		case "Python":
			doc.PythonVersion = dep.Version
		case "R":
			doc.RVersion = dep.Version
		}
	}

	if exts, ok := globals["exts_list"]; ok {
		doc.Extensions, err = extensions(exts, doc.Templates())
		if err != nil {
			return nil, apperr.Wrap(apperr.ErrCodeInvalidRecipe, err, "%s: exts_list", path)
		}
	}
	return doc, nil
}

// evaluate runs src, predeclaring names the file reads but never defines
// until it resolves.
func evaluate(path string, src []byte) (starlark.StringDict, error) {
	predeclared := starlark.StringDict{}
	for k, v := range constants {
		predeclared[k] = starlark.String(v)
	}
	predeclared["SYSTEM"] = systemToolchain()

	thread := &starlark.Thread{Name: path, Print: func(*starlark.Thread, string) {}}
	for round := 0; ; round++ {
		globals, err := starlark.ExecFile(thread, path, src, predeclared)
		if err == nil {
			return globals, nil
		}
		names := undefinedNames(err)
		if len(names) == 0 || round == maxUndefinedRounds {
			return nil, err
		}
		for _, n := range names {
			predeclared[n] = starlark.String(n)
		}
	}
}

// undefinedNames returns the identifiers err complains about, or nil if
// err has any other cause.
func undefinedNames(err error) []string {
	var list resolve.ErrorList
	if !errors.As(err, &list) {
		return nil
	}
	var names []string
	for _, e := range list {
		n, ok := strings.CutPrefix(e.Msg, "undefined: ")
		if !ok {
			return nil
		}
		if i := strings.Index(n, " "); i >= 0 {
			n = n[:i] // "(did you mean ...?)"
		}
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func systemToolchain() *starlark.Dict {
	d := starlark.NewDict(2)
	_ = d.SetKey(starlark.String("name"), starlark.String("system"))
	_ = d.SetKey(starlark.String("version"), starlark.String("system"))
	return d
}

func stringGlobal(globals starlark.StringDict, name string) string {
	if v, ok := globals[name]; ok {
		if s, ok := starlark.AsString(v); ok {
			return s
		}
	}
	return ""
}

func toolchain(v starlark.Value) (Toolchain, bool) {
	d, ok := v.(*starlark.Dict)
	if !ok {
		return Toolchain{}, false
	}
	return Toolchain{Name: dictString(d, "name"), Version: dictString(d, "version")}, true
}

func dictString(d *starlark.Dict, key string) string {
	v, found, err := d.Get(starlark.String(key))
	if err != nil || !found {
		return ""
	}
	s, _ := starlark.AsString(v)
	return s
}

func dependencies(v starlark.Value) ([]Dependency, error) {
	list, ok := v.(starlark.Indexable)
	if !ok {
		return nil, fmt.Errorf("want a list, got %s", v.Type())
	}
	var deps []Dependency
	for i := 0; i < list.Len(); i++ {
		tuple, ok := list.Index(i).(starlark.Tuple)
		if !ok || len(tuple) < 2 {
			return nil, fmt.Errorf("entry %d: want a (name, version, ...) tuple, got %s", i, list.Index(i))
		}
		dep := Dependency{}
		dep.Name, _ = starlark.AsString(tuple[0])
		dep.Version, _ = starlark.AsString(tuple[1])
		if len(tuple) > 2 {
			dep.VersionSuffix, _ = starlark.AsString(tuple[2])
		}
		if len(tuple) > 3 {
			switch t := tuple[3].(type) {
			case *starlark.Dict:
				tc, _ := toolchain(t)
				dep.Toolchain = &tc
			case starlark.Tuple:
				if len(t) == 2 {
					tc := Toolchain{}
					tc.Name, _ = starlark.AsString(t[0])
					tc.Version, _ = starlark.AsString(t[1])
					dep.Toolchain = &tc
				}
			case starlark.Bool:
				if t {
					dep.Toolchain = &Toolchain{Name: "system", Version: "system"}
				}
			}
		}
		deps = append(deps, dep)
	}
	return deps, nil
}

func extensions(v starlark.Value, templates map[string]string) ([]Extension, error) {
	list, ok := v.(starlark.Indexable)
	if !ok {
		return nil, fmt.Errorf("want a list, got %s", v.Type())
	}
	exts := make([]Extension, 0, list.Len())
	for i := 0; i < list.Len(); i++ {
		item := list.Index(i)
		if s, ok := starlark.AsString(item); ok {
			exts = append(exts, Extension{Name: Interpolate(s, templates), RawName: s, Bare: true})
			continue
		}
		tuple, ok := item.(starlark.Tuple)
		if !ok || len(tuple) == 0 {
			return nil, fmt.Errorf("entry %d: unexpected %s", i, item.Type())
		}
		raw, ok := starlark.AsString(tuple[0])
		if !ok {
			return nil, fmt.Errorf("entry %d: name is %s, want string", i, tuple[0].Type())
		}
		ext := Extension{Name: Interpolate(raw, templates), RawName: raw}
		if len(tuple) == 1 {
			ext.Bare = true
			exts = append(exts, ext)
			continue
		}
		ext.RawVersion, _ = starlark.AsString(tuple[1])
		ext.Version = Interpolate(ext.RawVersion, templates)
		if len(tuple) > 2 {
			if d, ok := tuple[2].(*starlark.Dict); ok {
				for _, kv := range d.Items() {
					key, _ := starlark.AsString(kv[0])
					ext.Options = append(ext.Options, Option{Key: key, Value: kv[1].String()})
				}
			}
		}
		exts = append(exts, ext)
	}
	return exts, nil
}

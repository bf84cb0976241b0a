package recipe

import (
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/charmbracelet/log"

	apperr "github.com/extsync/easyupdate/pkg/errors"
)

// Locator finds dependency easyconfigs on the robot search path.
type Locator struct {
	paths  []string
	logger *log.Logger
}

// NewLocator searches robotPaths in order. A nil logger discards output.
func NewLocator(robotPaths []string, logger *log.Logger) *Locator {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Locator{paths: robotPaths, logger: logger}
}

// FileName is the easyconfig file name a dependency is published under.
func FileName(doc *Document, dep Dependency) string {
	tc := doc.Toolchain
	if dep.Toolchain != nil {
		tc = *dep.Toolchain
	}
	name := dep.Name + "-" + dep.Version
	if !tc.IsSystem() {
		name += "-" + tc.String()
	}
	return name + Interpolate(dep.VersionSuffix, doc.Templates()) + ".eb"
}

// Find returns the path of dep's easyconfig. The recipe's own directory
// is searched after the robot paths. When the exact file name is absent
// any toolchain build of the same version is accepted.
func (l *Locator) Find(doc *Document, dep Dependency) (string, error) {
	file := FileName(doc, dep)
	roots := append(append([]string(nil), l.paths...), filepath.Dir(doc.Path))
	letter := firstLetter(dep.Name)

	for _, root := range roots {
		for _, dir := range []string{filepath.Join(root, letter, dep.Name), filepath.Join(root, dep.Name), root} {
			p := filepath.Join(dir, file)
			if info, err := os.Stat(p); err == nil && !info.IsDir() {
				return p, nil
			}
		}
	}

	suffix := Interpolate(dep.VersionSuffix, doc.Templates())
	for _, root := range roots {
		pattern := filepath.Join(root, letter, dep.Name, dep.Name+"-"+dep.Version+"-*"+suffix+".eb")
		matches, _ := filepath.Glob(pattern)
		if len(matches) > 0 {
			sort.Strings(matches)
			return matches[0], nil
		}
	}
	return "", apperr.New(apperr.ErrCodeFileNotFound, "easyconfig %s not found", file)
}

// Baseline loads the easyconfigs of doc's dependencies and records the
// extensions they provide in doc.Baseline. Dependencies whose recipe
// cannot be found or evaluated are skipped with a warning. The Python
// and R versions are inherited from dependencies when doc pins neither.
func (l *Locator) Baseline(doc *Document) {
	seen := make(map[string]bool)
	add := func(name string) {
		if name != "" && !seen[name] {
			seen[name] = true
			doc.Baseline = append(doc.Baseline, name)
		}
	}

	for _, dep := range doc.Dependencies {
		path, err := l.Find(doc, dep)
		if err != nil {
			l.logger.Warn("dependency recipe not found", "dependency", dep.Name, "version", dep.Version, "file", FileName(doc, dep))
			continue
		}
		dd, err := Load(path, LoadOptions{})
		if err != nil {
			l.logger.Warn("skipping dependency recipe", "path", path, "err", apperr.UserMessage(err))
			continue
		}
		l.logger.Debug("loaded dependency recipe", "path", path, "extensions", len(dd.Extensions))

		if dd.Easyblock == "PythonPackage" {
			add(dd.Name)
		}
		for _, ext := range dd.Extensions {
			add(ext.Name)
		}
		if doc.PythonVersion == "" {
			doc.PythonVersion = dd.PythonVersion
		}
		if doc.RVersion == "" {
			doc.RVersion = dd.RVersion
		}
	}
}

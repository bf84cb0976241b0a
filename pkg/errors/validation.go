package errors

import (
	"path/filepath"
	"regexp"
	"strings"
	"unicode"
)

// ValidatePackageName rejects names that are empty, overly long or that
// carry control characters or path separators. Ecosystem rules are
// applied on top by the specific validators.
func ValidatePackageName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidPackage, "package name cannot be empty")
	}

	if len(name) > 256 {
		return New(ErrCodeInvalidPackage, "package name too long (max 256 characters)")
	}

	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidPackage, "package name contains invalid control characters")
		}
	}

	for _, pattern := range []string{"..", "/", "\\"} {
		if strings.Contains(name, pattern) {
			return New(ErrCodeInvalidPackage, "package name contains invalid characters: %q", pattern)
		}
	}

	return nil
}

// rPackageNameRegex follows "Writing R Extensions": letters, digits and
// periods, starting with a letter and not ending in a period.
var rPackageNameRegex = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9.]*[A-Za-z0-9]$`)

// ValidateRPackageName validates a CRAN or Bioconductor package name.
func ValidateRPackageName(name string) error {
	if err := ValidatePackageName(name); err != nil {
		return err
	}
	if !rPackageNameRegex.MatchString(name) {
		return New(ErrCodeInvalidPackage, "invalid R package name: %q", name)
	}
	return nil
}

var pythonPackageNameRegex = regexp.MustCompile(`^([A-Za-z0-9]|[A-Za-z0-9][A-Za-z0-9._-]*[A-Za-z0-9])$`)

// ValidatePythonPackageName validates a Python distribution name per PEP 508.
func ValidatePythonPackageName(name string) error {
	if err := ValidatePackageName(name); err != nil {
		return err
	}

	if !pythonPackageNameRegex.MatchString(name) {
		return New(ErrCodeInvalidPackage, "invalid Python package name: %q", name)
	}

	return nil
}

// ValidateRecipePath checks that path names an easyconfig file.
func ValidateRecipePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "recipe path cannot be empty")
	}
	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "recipe path contains invalid characters")
		}
	}
	if filepath.Ext(path) != ".eb" {
		return New(ErrCodeInvalidPath, "recipe %q must have the .eb extension", filepath.Base(path))
	}
	return nil
}

// ValidateURL ensures rawURL uses the http or https scheme.
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidInput, "URL cannot be empty")
	}

	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return New(ErrCodeInvalidInput, "URL must use http or https scheme")
	}

	return nil
}

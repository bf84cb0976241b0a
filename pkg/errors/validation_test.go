package errors

import (
	"testing"
)

func TestValidatePackageName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid simple", "requests", false},
		{"valid with dash", "my-package", false},
		{"valid with dot", "data.table", false},

		{"empty", "", true},
		{"too long", string(make([]byte, 300)), true},
		{"path traversal", "foo/../bar", true},
		{"slash", "foo/bar", true},
		{"backslash", "foo\\bar", true},
		{"control char", "foo\x01bar", true},
		{"newline", "foo\nbar", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePackageName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePackageName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateRPackageName(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
	}{
		{"Rcpp", false},
		{"data.table", false},
		{"BiocGenerics", false},
		{"R6", false},
		{"1pkg", true},
		{"pkg.", true},
		{"my_pkg", true},
		{"my-pkg", true},
		{"x", true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			err := ValidateRPackageName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateRPackageName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidatePythonPackageName(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
	}{
		{"requests", false},
		{"typing_extensions", false},
		{"zope.interface", false},
		{"a", false},
		{"-leading", true},
		{"trailing-", true},
		{"with space", true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			err := ValidatePythonPackageName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePythonPackageName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateRecipePath(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
	}{
		{"R-bundle-CRAN-2023.12-foss-2023a.eb", false},
		{"/abs/path/Python-3.11.3-GCCcore-12.3.0.eb", false},
		{"", true},
		{"recipe.yaml", true},
		{"bad\x00.eb", true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			err := ValidateRecipePath(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateRecipePath(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !Is(err, ErrCodeInvalidPath) {
				t.Errorf("error code = %v, want %v", GetCode(err), ErrCodeInvalidPath)
			}
		})
	}
}

func TestValidateURL(t *testing.T) {
	for _, u := range []string{"https://pypi.org/pypi", "http://localhost:8080"} {
		if err := ValidateURL(u); err != nil {
			t.Errorf("ValidateURL(%q) = %v", u, err)
		}
	}
	for _, u := range []string{"", "ftp://cran.r-project.org", "pypi.org"} {
		if err := ValidateURL(u); err == nil {
			t.Errorf("ValidateURL(%q) succeeded", u)
		}
	}
}

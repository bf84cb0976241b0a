package marker

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseRequirement(t *testing.T) {
	tests := []struct {
		input     string
		name      string
		extras    []string
		specifier string
		url       string
		hasMarker bool
	}{
		{"A", "A", nil, "", "", false},
		{"A.B-C_D", "A.B-C_D", nil, "", "", false},
		{"name<=1", "name", nil, "<=1", "", false},
		{"name>=3,<2", "name", nil, ">=3,<2", "", false},
		{"keepalive (>=0.5); extra == 'keepalive'", "keepalive", nil, ">=0.5", "", true},
		{"name@http://foo.com", "name", nil, "", "http://foo.com", false},
		{"name [fred,bar] @ http://foo.com ; python_version=='2.7'", "name", []string{"fred", "bar"}, "", "http://foo.com", true},
		{"name[quux, strange];python_version<'2.7' and platform_version=='2'", "name", []string{"quux", "strange"}, "", "", true},
		{"pytest!=8.1.*,>=6; extra == \"test\"", "pytest", nil, "!=8.1.*,>=6", "", true},
		{"  requests >= 2.0 ", "requests", nil, ">=2.0", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			req, err := ParseRequirement(tt.input)
			if err != nil {
				t.Fatalf("ParseRequirement(%q) error: %v", tt.input, err)
			}
			if req.Name != tt.name {
				t.Errorf("Name = %q, want %q", req.Name, tt.name)
			}
			if diff := cmp.Diff(tt.extras, req.Extras); diff != "" {
				t.Errorf("Extras mismatch (-want +got):\n%s", diff)
			}
			if req.Specifier != tt.specifier {
				t.Errorf("Specifier = %q, want %q", req.Specifier, tt.specifier)
			}
			if req.URL != tt.url {
				t.Errorf("URL = %q, want %q", req.URL, tt.url)
			}
			if (req.Marker != nil) != tt.hasMarker {
				t.Errorf("Marker present = %v, want %v", req.Marker != nil, tt.hasMarker)
			}
		})
	}
}

func TestParseRequirement_Invalid(t *testing.T) {
	inputs := []string{
		"",
		"-foo",
		"foo; ",
		"foo; python_version <",
		"foo; python_version < '3.8",
		"foo; unknown_var == 'x'",
		"foo; (python_version < '3.8'",
		"foo [bar",
		"foo (>=1.0",
		"foo >= 1.0 2.0",
		"foo; python_version ?? '3'",
	}
	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			_, err := ParseRequirement(in)
			if err == nil {
				t.Fatalf("ParseRequirement(%q) succeeded, want error", in)
			}
			var se *SyntaxError
			if !errors.As(err, &se) {
				t.Errorf("error %v is not a *SyntaxError", err)
			}
		})
	}
}

func TestMarkerPrecedence(t *testing.T) {
	env := Environment{"os_name": "c"}
	tests := []struct {
		marker string
		want   bool
	}{
		// (a and b) or c
		{"os_name=='a' and os_name=='b' or os_name=='c'", true},
		// a and (b or c)
		{"os_name=='a' and (os_name=='b' or os_name=='c')", false},
		// a or (b and c)
		{"os_name=='a' or os_name=='b' and os_name=='c'", false},
		// (a or b) and c
		{"(os_name=='a' or os_name=='c') and os_name=='c'", true},
	}
	for _, tt := range tests {
		t.Run(tt.marker, func(t *testing.T) {
			expr, err := ParseMarker(tt.marker)
			if err != nil {
				t.Fatalf("ParseMarker: %v", err)
			}
			if got := expr.Evaluate(env); got != tt.want {
				t.Errorf("Evaluate(%s) = %v, want %v", expr, got, tt.want)
			}
		})
	}
}

func TestRequirementApplies(t *testing.T) {
	env := NewEnvironment("3.11.4")
	tests := []struct {
		req  string
		want bool
	}{
		{`foo>=1; extra == "test"`, false},
		{`packaging`, true},
		{`typing-extensions>=3.6.4; python_version < "3.8"`, false},
		{`importlib-metadata>=4.11.4; python_version < "3.12"`, true},
		{`importlib-resources>=1.3; python_version < "3.9" and extra == "test"`, false},
		{`tomli; python_version < "3.11"`, false},
		{`exceptiongroup; python_version <= "3.11"`, true},
		{`SecretStorage>=3.2; sys_platform == "linux"`, true},
		{`pywin32-ctypes>=0.2.0; sys_platform == "win32"`, false},
		{`colorama; os_name == "nt" or platform_system == "Windows"`, false},
		{`uvloop; platform_system != "Windows" and implementation_name == "cpython"`, true},
		{`dataclasses; python_version ~= "3.6"`, true},
		{`backport; python_version ~= "3.6.0"`, false},
		{`oldlib; python_version == "3.*"`, true},
		{`oldlib; python_version != "3.11.*"`, false},
		{`oldlib; python_version != "3.10.*"`, true},
		{`newlib; python_full_version >= "3.11.4"`, true},
		{`legacy; "3.8" > python_version`, false},
		{`linux-only; "linux" in sys_platform`, true},
		{`no-win; "win" not in sys_platform`, true},
		{`pkg; extra == "None"`, true},
	}
	for _, tt := range tests {
		t.Run(tt.req, func(t *testing.T) {
			req, err := ParseRequirement(tt.req)
			if err != nil {
				t.Fatalf("ParseRequirement: %v", err)
			}
			if got := req.Applies(env); got != tt.want {
				t.Errorf("Applies() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestVersionCompareOrdersNumerically(t *testing.T) {
	// A plain string comparison would put "3.10" before "3.8".
	if !compare(">", "3.10", "3.8") {
		t.Error(`compare(">", "3.10", "3.8") = false, want true`)
	}
	if compare("<", "3.10", "3.9") {
		t.Error(`compare("<", "3.10", "3.9") = true, want false`)
	}
}

func TestEnvironmentWith(t *testing.T) {
	env := NewEnvironment("3.12")
	mac := env.With("sys_platform", "darwin")
	if env["sys_platform"] != "linux" {
		t.Errorf("With mutated the receiver: %q", env["sys_platform"])
	}
	if mac["sys_platform"] != "darwin" {
		t.Errorf("With did not set value: %q", mac["sys_platform"])
	}
	if got := env.With("sys_platform", "")["sys_platform"]; got != "linux" {
		t.Errorf("empty value should keep the default, got %q", got)
	}
	if env["python_full_version"] != "3.12.0" {
		t.Errorf("python_full_version = %q, want 3.12.0", env["python_full_version"])
	}
}

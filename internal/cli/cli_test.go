package cli

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/cobra"

	apperr "github.com/extsync/easyupdate/pkg/errors"
	"github.com/extsync/easyupdate/pkg/report"
)

const bundleRecipe = `easyblock = 'Bundle'

name = 'R-bundle-Test'
version = '1.0'

toolchain = {'name': 'foss', 'version': '2023a'}

exts_defaultclass = 'RPackage'

exts_list = [
    ('foo', '1.0', {
        'checksums': ['abc'],
    }),
    ('glue', '1.6.2'),
]

moduleclass = 'lang'
`

const updatedRecipe = `easyblock = 'Bundle'

name = 'R-bundle-Test'
version = '1.0'

toolchain = {'name': 'foss', 'version': '2023a'}

exts_defaultclass = 'RPackage'

exts_list = [
    ('foo', '1.1', {
    }),
    ('glue', '1.6.2'),
    ('bar', '0.5'),
]

moduleclass = 'lang'
`

func cranServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/foo":
			w.Write([]byte(`{"Package": "foo", "Version": "1.1", "Title": "Frobnicate Objects", "License": "MIT",
				"Imports": {"bar": "*", "stats": "*", "ghost": "*"}}`))
		case "/bar":
			w.Write([]byte(`{"Package": "bar", "Version": "0.5", "Title": "Bar Utilities", "License": "GPL-2"}`))
		case "/glue":
			w.Write([]byte(`{"Package": "glue", "Version": "1.6.2", "Title": "Interpreted String Literals", "License": "MIT"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func pypiServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/zope.interface/json" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`{
			"info": {"name": "zope.interface", "version": "6.1", "summary": "Interfaces for Python",
				"requires_dist": ["setuptools", "coverage>=5; extra == \"test\""]},
			"urls": [],
			"releases": {"6.1": [{"filename": "zope_interface-6.1.tar.gz", "packagetype": "sdist"}]}
		}`))
	}))
	t.Cleanup(server.Close)
	return server
}

// testEnv isolates configuration and points the registries at test
// servers.
func testEnv(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("EASYBUILD_ROBOT_PATHS", "")
	t.Setenv("EASYUPDATE_CRAN_URL", cranServer(t).URL)
	t.Setenv("EASYUPDATE_PYPI_URL", pypiServer(t).URL)
	t.Setenv("EASYUPDATE_RETRY_ATTEMPTS", "1")
}

func writeRecipe(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	c := New(io.Discard, LogInfo)
	c.Out = &out
	c.Err = io.Discard
	root := c.RootCommand()
	root.SetArgs(args)
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	err := root.ExecuteContext(context.Background())
	if cerr := c.Close(); err == nil {
		err = cerr
	}
	return out.String(), err
}

func TestUpdate(t *testing.T) {
	testEnv(t)
	path := writeRecipe(t, "R-bundle-Test-1.0-foss-2023a.eb", bundleRecipe)
	reportPath := filepath.Join(t.TempDir(), "report.toml")

	out, err := execute(t, "update", path, "--report", reportPath)
	if err != nil {
		t.Fatalf("update error: %v", err)
	}

	got, err := os.ReadFile(strings.TrimSuffix(path, ".eb") + ".update")
	if err != nil {
		t.Fatalf("output not written: %v", err)
	}
	if diff := cmp.Diff(updatedRecipe, string(got)); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
	if src, _ := os.ReadFile(path); string(src) != bundleRecipe {
		t.Error("input recipe was modified")
	}
	if !strings.Contains(out, "Updated R-bundle-Test-1.0-foss-2023a") {
		t.Errorf("missing success line in:\n%s", out)
	}

	rep, err := report.Load(reportPath)
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if rep.Summary.Updated != 1 || rep.Summary.Added != 1 || rep.Summary.Removed != 1 {
		t.Errorf("report summary = %+v", rep.Summary)
	}
	if rep.RunID == "" || rep.Ecosystem != "R" {
		t.Errorf("report header = %q, %q", rep.RunID, rep.Ecosystem)
	}
}

func TestUpdateDryRun(t *testing.T) {
	testEnv(t)
	path := writeRecipe(t, "R-bundle-Test-1.0-foss-2023a.eb", bundleRecipe)

	out, err := execute(t, "update", "--dry-run", path)
	if err != nil {
		t.Fatalf("update error: %v", err)
	}
	if _, err := os.Stat(strings.TrimSuffix(path, ".eb") + ".update"); !os.IsNotExist(err) {
		t.Error("dry run wrote the output file")
	}
	if !strings.Contains(out, "Dry run") {
		t.Errorf("missing dry run notice in:\n%s", out)
	}
}

func TestUpdateVerbose(t *testing.T) {
	testEnv(t)
	path := writeRecipe(t, "R-bundle-Test-1.0-foss-2023a.eb", bundleRecipe)

	out, err := execute(t, "update", "-v", path)
	if err != nil {
		t.Fatalf("update error: %v", err)
	}
	for _, want := range []string{
		"foo : 1.0 -> 1.1 (update)",
		"bar : 0.5 (add, required by foo)",
		"ghost : (remove, required by foo)",
		"glue : 1.6.2 (keep)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
}

func TestUpdateErrors(t *testing.T) {
	testEnv(t)
	unknown := writeRecipe(t, "Tool-1.0.eb", "name = 'Tool'\nversion = '1.0'\ntoolchain = SYSTEM\nexts_list = []\n")

	tests := []struct {
		name string
		args []string
		code apperr.Code
	}{
		{"wrong extension", []string{"update", "recipe.txt"}, apperr.ErrCodeInvalidPath},
		{"missing recipe", []string{"update", filepath.Join(t.TempDir(), "none-1.0.eb")}, apperr.ErrCodeFileNotFound},
		{"unknown language", []string{"update", unknown}, apperr.ErrCodeUnsupported},
		{"bad language flag", []string{"update", "--language", "perl", unknown}, apperr.ErrCodeInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			if !apperr.Is(err, tt.code) {
				t.Errorf("error = %v, want code %s", err, tt.code)
			}
			if apperr.ExitCode(err) != 1 {
				t.Errorf("ExitCode = %d, want 1", apperr.ExitCode(err))
			}
		})
	}
}

func TestDepGraph(t *testing.T) {
	testEnv(t)
	path := writeRecipe(t, "R-bundle-Test-1.0-foss-2023a.eb", bundleRecipe)

	out, err := execute(t, "dep-graph", path)
	if err != nil {
		t.Fatalf("dep-graph error: %v", err)
	}
	for _, want := range []string{
		"digraph G {",
		`"R-bundle-Test-1.0-foss-2023a" -> "foo";`,
		`"foo" -> "bar";`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
}

func TestDescription(t *testing.T) {
	testEnv(t)
	path := writeRecipe(t, "R-bundle-Test-1.0-foss-2023a.eb", bundleRecipe)

	out, err := execute(t, "description", path)
	if err != nil {
		t.Fatalf("description error: %v", err)
	}
	for _, want := range []string{"Frobnicate Objects", "Interpreted String Literals", "1.1"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
}

func TestSearch(t *testing.T) {
	testEnv(t)

	out, err := execute(t, "search-cran", "foo")
	if err != nil {
		t.Fatalf("search-cran error: %v", err)
	}
	if !strings.Contains(out, "Frobnicate Objects") || !strings.Contains(out, "bar") {
		t.Errorf("search-cran output:\n%s", out)
	}

	if _, err := execute(t, "search-cran", "nothere"); !apperr.Is(err, apperr.ErrCodePackageNotFound) {
		t.Errorf("search-cran missing package error = %v", err)
	}

	out, err = execute(t, "search-pypi", "zope.interface")
	if err != nil {
		t.Fatalf("search-pypi error: %v", err)
	}
	for _, want := range []string{"Interfaces for Python", "setuptools", "zope_interface-%(version)s.tar.gz"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
	if strings.Contains(out, "coverage") {
		t.Errorf("extra-only requirement listed:\n%s", out)
	}
}

func TestMetricsFile(t *testing.T) {
	testEnv(t)
	path := writeRecipe(t, "R-bundle-Test-1.0-foss-2023a.eb", bundleRecipe)
	metricsPath := filepath.Join(t.TempDir(), "easyupdate.prom")

	if _, err := execute(t, "update", "--dry-run", "--metrics", metricsPath, path); err != nil {
		t.Fatalf("update error: %v", err)
	}
	data, err := os.ReadFile(metricsPath)
	if err != nil {
		t.Fatalf("metrics not written: %v", err)
	}
	for _, want := range []string{
		`easyupdate_lookups_total{outcome="ok",registry="cran"}`,
		`easyupdate_decisions_total{decision="update",ecosystem="R"} 1`,
		"easyupdate_resolution_nodes",
	} {
		if !strings.Contains(string(data), want) {
			t.Errorf("metrics missing %q:\n%s", want, data)
		}
	}
}

func TestCompletion(t *testing.T) {
	t.Setenv("EASYUPDATE_WORKERS", "0")

	out, err := execute(t, "completion", "bash")
	if err != nil {
		t.Fatalf("completion error: %v", err)
	}
	if !strings.Contains(out, "__start_easyupdate") {
		t.Errorf("bash completion missing entry point:\n%.200s", out)
	}

	cmd := New(io.Discard, LogInfo).RootCommand()
	update, _, err := cmd.Find([]string{"update"})
	if err != nil {
		t.Fatal(err)
	}
	exts, directive := update.ValidArgsFunction(update, nil, "")
	if diff := cmp.Diff([]string{"eb"}, exts); diff != "" || directive != cobra.ShellCompDirectiveFilterFileExt {
		t.Errorf("update completion = %v, %v", exts, directive)
	}
}

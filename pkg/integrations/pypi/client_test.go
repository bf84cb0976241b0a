package pypi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/extsync/easyupdate/pkg/cache"
	"github.com/extsync/easyupdate/pkg/httputil"
	"github.com/extsync/easyupdate/pkg/integrations"
	"github.com/extsync/easyupdate/pkg/marker"
)

func TestClient_Resolve(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/keyring/json" {
			http.NotFound(w, r)
			return
		}
		resp := apiResponse{
			Info: apiInfo{
				Name:    "keyring",
				Version: "24.3.0",
				Summary: "Store and access your passwords safely.",
				RequiresDist: []string{
					`jaraco.classes`,
					`importlib-metadata>=4.11.4; python_version < "3.12"`,
					`importlib-resources; python_version < "3.9"`,
					`SecretStorage>=3.2; sys_platform == "linux"`,
					`jeepney>=0.4.2; sys_platform == "linux"`,
					`pywin32-ctypes>=0.2.0; sys_platform == "win32"`,
					`sphinx>=3.5; extra == "docs"`,
					`pytest>=6; extra == "testing"`,
					`jaraco_classes>=3`,
					`broken ((`,
				},
			},
			URLs: []apiFile{
				{Filename: "keyring-24.3.0-py3-none-any.whl", PackageType: "bdist_wheel"},
				{Filename: "keyring-24.3.0.tar.gz", PackageType: "sdist"},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	c := testClient(t, server.URL)
	pkg, err := c.Resolve(context.Background(), "keyring", "23.0.0")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if pkg.Version != "24.3.0" {
		t.Errorf("Version = %q", pkg.Version)
	}
	var names []string
	for _, d := range pkg.Dependencies {
		if d.Kind != integrations.KindRequiresDist {
			t.Errorf("%s kind = %s", d.Name, d.Kind)
		}
		names = append(names, d.Name)
	}
	want := []string{"jaraco.classes", "importlib-metadata", "SecretStorage", "jeepney"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Errorf("dependencies mismatch (-want +got):\n%s", diff)
	}
	if len(pkg.Options) != 0 {
		t.Errorf("Options = %v, want none for a matching sdist", pkg.Options)
	}
}

func TestClient_ResolveSourceTemplate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"info": {"name": "zope.interface", "version": "6.1", "requires_dist": null},
			"urls": [],
			"releases": {"6.1": [{"filename": "zope_interface-6.1.tar.gz", "packagetype": "sdist"}]}
		}`))
	}))
	defer server.Close()

	pkg, err := testClient(t, server.URL).Resolve(context.Background(), "zope.interface", "")
	if err != nil {
		t.Fatal(err)
	}
	want := []integrations.Option{{Key: "source_tmpl", Value: "zope_interface-%(version)s.tar.gz"}}
	if diff := cmp.Diff(want, pkg.Options); diff != "" {
		t.Errorf("Options mismatch (-want +got):\n%s", diff)
	}
}

func TestClient_FetchPackage_NotFound(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	_, err := testClient(t, server.URL).FetchPackage(context.Background(), "missing-pkg", true)
	if !errors.Is(err, integrations.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestClient_ExtraMarkerDropsEdge(t *testing.T) {
	c := NewClient(nil, 0, "", marker.NewEnvironment("3.11"))
	deps := c.Dependencies(&PackageInfo{Name: "x", RequiresDist: []string{`foo>=1; extra == "test"`}})
	if len(deps) != 0 {
		t.Errorf("deps = %v, want none", deps)
	}
}

func TestSourceTemplate(t *testing.T) {
	tests := []struct {
		name, version, file string
		want                string
	}{
		{"requests", "2.31.0", "requests-2.31.0.tar.gz", ""},
		{"requests", "2.31.0", "", ""},
		{"typing-extensions", "4.9.0", "typing_extensions-4.9.0.tar.gz", "typing_extensions-%(version)s.tar.gz"},
		{"zope.interface", "6.1", "zope_interface-6.1.tar.gz", "zope_interface-%(version)s.tar.gz"},
		{"PyYAML", "6.0.1", "pyyaml-6.0.1.tar.gz", "pyyaml-%(version)s.tar.gz"},
		{"wheelonly", "1.0", "wheelonly-1.0.zip", "%(name)s-%(version)s.zip"},
		{"odd", "1.0", "something-else-1.0.tar.gz", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SourceTemplate(tt.name, tt.version, tt.file); got != tt.want {
				t.Errorf("SourceTemplate(%q, %q, %q) = %q, want %q", tt.name, tt.version, tt.file, got, tt.want)
			}
		})
	}
}

func testClient(t *testing.T, serverURL string) *Client {
	t.Helper()
	return NewClient(cache.NewMemoryCache(), time.Hour, serverURL, marker.NewEnvironment("3.11"),
		integrations.WithRetry(httputil.Policy{Attempts: 1}))
}

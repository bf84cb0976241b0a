package pypi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/extsync/easyupdate/pkg/cache"
	"github.com/extsync/easyupdate/pkg/integrations"
	"github.com/extsync/easyupdate/pkg/marker"
)

// DefaultURL is the public PyPI JSON API root.
const DefaultURL = "https://pypi.org/pypi"

// PackageInfo holds metadata of the latest release of a project.
type PackageInfo struct {
	Name         string   `json:"name"`          // Project name as published
	Version      string   `json:"version"`       // Latest version
	Summary      string   `json:"summary"`       // One-line description
	HomePage     string   `json:"home_page"`     // May be empty
	ProjectURL   string   `json:"project_url"`   // PyPI landing page
	RequiresDist []string `json:"requires_dist"` // Raw PEP 508 requirements
	SdistFile    string   `json:"sdist_file"`    // sdist file name of Version, empty if none
}

// Client provides access to the PyPI JSON API.
//
// All methods are safe for concurrent use.
type Client struct {
	*integrations.Client
	baseURL string
	env     marker.Environment
	logger  *log.Logger
}

// NewClient creates a PyPI client evaluating markers in env. An empty
// baseURL selects [DefaultURL].
func NewClient(backend cache.Cache, cacheTTL time.Duration, baseURL string, env marker.Environment, opts ...integrations.ClientOption) *Client {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	return &Client{
		Client:  integrations.NewClient(backend, "pypi", cacheTTL, nil, opts...),
		baseURL: strings.TrimRight(baseURL, "/"),
		env:     env,
		logger:  log.New(io.Discard),
	}
}

// SetLogger directs warnings about unparsable requirements to logger.
func (c *Client) SetLogger(logger *log.Logger) {
	if logger != nil {
		c.logger = logger
	}
}

// Name identifies the registry in logs and reports.
func (c *Client) Name() string { return "pypi" }

// Environment returns the marker environment requirements are evaluated in.
func (c *Client) Environment() marker.Environment { return c.env }

// FetchPackage retrieves the latest release of a project. PyPI resolves
// non-normalized names itself, so pkg is sent as given.
//
// Returns [integrations.ErrNotFound] if the project doesn't exist and
// [integrations.ErrNetwork] for HTTP or payload failures.
func (c *Client) FetchPackage(ctx context.Context, pkg string, refresh bool) (*PackageInfo, error) {
	var info PackageInfo
	err := c.Cached(ctx, integrations.NormalizePkgName(pkg), refresh, &info, func() error {
		return c.fetch(ctx, pkg, &info)
	})
	if err != nil {
		return nil, err
	}
	return &info, nil
}

// Resolve implements the registry contract used by the resolver.
func (c *Client) Resolve(ctx context.Context, name, declaredVersion string) (*integrations.Package, error) {
	info, err := c.FetchPackage(ctx, name, false)
	if err != nil {
		return nil, err
	}
	pkg := &integrations.Package{
		Name:         info.Name,
		Version:      info.Version,
		Title:        info.Summary,
		URL:          info.ProjectURL,
		Registry:     c.Name(),
		Dependencies: c.Dependencies(info),
	}
	if tmpl := SourceTemplate(name, info.Version, info.SdistFile); tmpl != "" {
		pkg.Options = append(pkg.Options, integrations.Option{Key: "source_tmpl", Value: tmpl})
	}
	return pkg, nil
}

// Dependencies evaluates the requirements of info in the client's
// environment and returns the applicable ones, deduplicated by
// normalized name and kept in declaration order.
func (c *Client) Dependencies(info *PackageInfo) []integrations.Dependency {
	seen := make(map[string]bool)
	var deps []integrations.Dependency
	for _, raw := range info.RequiresDist {
		req, err := marker.ParseRequirement(raw)
		if err != nil {
			c.logger.Warn("skipping unparsable requirement", "package", info.Name, "requirement", raw, "err", err)
			continue
		}
		if !req.Applies(c.env) {
			continue
		}
		key := integrations.NormalizePkgName(req.Name)
		if seen[key] {
			continue
		}
		seen[key] = true
		deps = append(deps, integrations.Dependency{Name: req.Name, Kind: integrations.KindRequiresDist})
	}
	return deps
}

func (c *Client) fetch(ctx context.Context, pkg string, info *PackageInfo) error {
	var data apiResponse
	if err := c.Get(ctx, fmt.Sprintf("%s/%s/json", c.baseURL, url.PathEscape(pkg)), &data); err != nil {
		if errors.Is(err, integrations.ErrNotFound) {
			return fmt.Errorf("%w: pypi package %s", err, pkg)
		}
		return err
	}
	if data.Info.Version == "" {
		return fmt.Errorf("%w: pypi package %s has no version", integrations.ErrNetwork, pkg)
	}

	*info = PackageInfo{
		Name:         data.Info.Name,
		Version:      data.Info.Version,
		Summary:      strings.TrimSpace(data.Info.Summary),
		HomePage:     data.Info.HomePage,
		ProjectURL:   data.Info.ProjectURL,
		RequiresDist: data.Info.RequiresDist,
		SdistFile:    sdistFile(data.URLs, data.Releases[data.Info.Version]),
	}
	return nil
}

type apiResponse struct {
	Info     apiInfo              `json:"info"`
	URLs     []apiFile            `json:"urls"`
	Releases map[string][]apiFile `json:"releases"`
}

type apiInfo struct {
	Name         string   `json:"name"`
	Version      string   `json:"version"`
	Summary      string   `json:"summary"`
	HomePage     string   `json:"home_page"`
	ProjectURL   string   `json:"project_url"`
	RequiresDist []string `json:"requires_dist"`
}

type apiFile struct {
	Filename    string `json:"filename"`
	PackageType string `json:"packagetype"`
	URL         string `json:"url"`
}

func sdistFile(groups ...[]apiFile) string {
	for _, files := range groups {
		for _, f := range files {
			if f.PackageType == "sdist" {
				return f.Filename
			}
		}
	}
	return ""
}

// SourceTemplate returns the source_tmpl an extension entry needs when
// the sdist file name of name-version is not "name-version.tar.gz".
// It returns "" when no template is needed or none of the known
// spellings matches.
func SourceTemplate(name, version, filename string) string {
	if filename == "" || filename == name+"-"+version+".tar.gz" {
		return ""
	}
	candidates := []string{
		strings.ReplaceAll(name, "-", "_"),
		strings.ReplaceAll(name, ".", "_"),
		strings.ReplaceAll(strings.ReplaceAll(name, "-", "_"), ".", "_"),
		strings.ToLower(name),
		strings.ToLower(strings.ReplaceAll(name, "-", "_")),
	}
	for _, stem := range candidates {
		if stem != name && filename == stem+"-"+version+".tar.gz" {
			return stem + "-%(version)s.tar.gz"
		}
	}
	for _, ext := range []string{".zip", ".tar.bz2", ".tgz"} {
		if filename == name+"-"+version+ext {
			return "%(name)s-%(version)s" + ext
		}
	}
	return ""
}

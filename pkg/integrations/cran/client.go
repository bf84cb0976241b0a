package cran

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/extsync/easyupdate/pkg/cache"
	"github.com/extsync/easyupdate/pkg/integrations"
)

// DefaultURL is the public crandb endpoint.
const DefaultURL = "https://crandb.r-pkg.org"

// ErrBasePackage marks a package that is part of the R distribution.
var ErrBasePackage = errors.New("part of base R")

// PackageInfo holds the DESCRIPTION fields the resolver needs.
type PackageInfo struct {
	Name      string   `json:"name"`
	Version   string   `json:"version"`
	Title     string   `json:"title"`
	License   string   `json:"license"`
	URL       string   `json:"url"`
	Depends   []string `json:"depends,omitempty"`
	Imports   []string `json:"imports,omitempty"`
	LinkingTo []string `json:"linking_to,omitempty"`
}

// IsBase reports whether the package ships with R.
func (p *PackageInfo) IsBase() bool {
	return strings.Contains(p.License, "Part of R")
}

// Dependencies returns Depends, Imports and LinkingTo edges in that order.
func (p *PackageInfo) Dependencies() []integrations.Dependency {
	var deps []integrations.Dependency
	for _, f := range []struct {
		names []string
		kind  integrations.DepKind
	}{
		{p.Depends, integrations.KindDepends},
		{p.Imports, integrations.KindImports},
		{p.LinkingTo, integrations.KindLinkingTo},
	} {
		for _, n := range f.names {
			deps = append(deps, integrations.Dependency{Name: n, Kind: f.kind})
		}
	}
	return deps
}

// Client queries crandb.
type Client struct {
	*integrations.Client
	baseURL string
}

// NewClient creates a CRAN client. An empty baseURL selects [DefaultURL].
func NewClient(backend cache.Cache, cacheTTL time.Duration, baseURL string, opts ...integrations.ClientOption) *Client {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	return &Client{
		Client:  integrations.NewClient(backend, "cran", cacheTTL, nil, opts...),
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Name identifies the registry in logs and reports.
func (c *Client) Name() string { return "cran" }

// FetchPackage retrieves the latest metadata for an R package. R names
// are case sensitive and used verbatim.
//
// Returns [integrations.ErrNotFound] for unknown packages and
// [integrations.ErrNetwork] for transport or payload failures.
func (c *Client) FetchPackage(ctx context.Context, name string, refresh bool) (*PackageInfo, error) {
	var info PackageInfo
	err := c.Cached(ctx, name, refresh, &info, func() error {
		return c.fetch(ctx, name, &info)
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
	if info.IsBase() {
		return nil, fmt.Errorf("%w: %s", ErrBasePackage, name)
	}
	return &integrations.Package{
		Name:         info.Name,
		Version:      info.Version,
		Title:        info.Title,
		URL:          PackageURL(info.Name),
		Registry:     c.Name(),
		Dependencies: info.Dependencies(),
	}, nil
}

// PackageURL is the CRAN landing page of name.
func PackageURL(name string) string {
	return "https://cran.r-project.org/web/packages/" + name + "/index.html"
}

func (c *Client) fetch(ctx context.Context, name string, info *PackageInfo) error {
	data, err := c.GetBytes(ctx, c.baseURL+"/"+url.PathEscape(name))
	if err != nil {
		if errors.Is(err, integrations.ErrNotFound) {
			return fmt.Errorf("%w: cran package %s", err, name)
		}
		return err
	}
	parsed, err := parseDescription(data)
	if err != nil {
		return fmt.Errorf("%w: cran package %s: %v", integrations.ErrNetwork, name, err)
	}
	if parsed.Version == "" {
		// crandb answers unknown names with an error document.
		return fmt.Errorf("%w: cran package %s", integrations.ErrNotFound, name)
	}
	*info = *parsed
	return nil
}

type description struct {
	Package   string          `json:"Package"`
	Version   string          `json:"Version"`
	Title     string          `json:"Title"`
	License   string          `json:"License"`
	URL       string          `json:"URL"`
	Depends   json.RawMessage `json:"Depends"`
	Imports   json.RawMessage `json:"Imports"`
	LinkingTo json.RawMessage `json:"LinkingTo"`
}

func parseDescription(data []byte) (*PackageInfo, error) {
	var d description
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, err
	}
	info := &PackageInfo{
		Name:    d.Package,
		Version: d.Version,
		Title:   strings.Join(strings.Fields(d.Title), " "),
		License: d.License,
		URL:     d.URL,
	}
	var err error
	if info.Depends, err = orderedKeys(d.Depends); err != nil {
		return nil, fmt.Errorf("Depends: %w", err)
	}
	if info.Imports, err = orderedKeys(d.Imports); err != nil {
		return nil, fmt.Errorf("Imports: %w", err)
	}
	if info.LinkingTo, err = orderedKeys(d.LinkingTo); err != nil {
		return nil, fmt.Errorf("LinkingTo: %w", err)
	}
	return info, nil
}

// orderedKeys returns the member names of a JSON object in document order.
// Absent or null fields yield nil.
func orderedKeys(raw json.RawMessage) ([]string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("expected object, got %v", tok)
	}
	var keys []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected token %v", tok)
		}
		keys = append(keys, key)
		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return nil, err
		}
	}
	return keys, nil
}

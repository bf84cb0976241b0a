package bioconductor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/extsync/easyupdate/pkg/cache"
	"github.com/extsync/easyupdate/pkg/integrations"
)

// DefaultURL is the root of the Bioconductor package repositories.
const DefaultURL = "https://bioconductor.org/packages"

// Views are the repository views indexed for a release, in lookup order.
var Views = []string{"bioc", "data/annotation", "data/experiment"}

// Entry is one package of the index.
type Entry struct {
	Name      string
	Version   string
	Title     string
	View      string
	Depends   []string
	Imports   []string
	LinkingTo []string
}

// Dependencies returns Depends, Imports and LinkingTo edges in that order.
func (e *Entry) Dependencies() []integrations.Dependency {
	var deps []integrations.Dependency
	for _, n := range e.Depends {
		deps = append(deps, integrations.Dependency{Name: n, Kind: integrations.KindDepends})
	}
	for _, n := range e.Imports {
		deps = append(deps, integrations.Dependency{Name: n, Kind: integrations.KindImports})
	}
	for _, n := range e.LinkingTo {
		deps = append(deps, integrations.Dependency{Name: n, Kind: integrations.KindLinkingTo})
	}
	return deps
}

// Client serves lookups from the index of one release. The index is
// built on first use and read-only afterwards.
type Client struct {
	*integrations.Client
	baseURL string
	release string
	logger  *log.Logger

	once    sync.Once
	index   map[string]*Entry
	loadErr error
}

// NewClient creates a client for release (e.g. "3.18"). An empty baseURL
// selects [DefaultURL]; a nil logger discards warnings.
func NewClient(backend cache.Cache, cacheTTL time.Duration, baseURL, release string, logger *log.Logger, opts ...integrations.ClientOption) *Client {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Client{
		Client:  integrations.NewClient(backend, "bioc", cacheTTL, nil, opts...),
		baseURL: strings.TrimRight(baseURL, "/"),
		release: release,
		logger:  logger,
	}
}

// Name identifies the registry in logs and reports.
func (c *Client) Name() string { return "bioconductor" }

// Release returns the Bioconductor release this client indexes.
func (c *Client) Release() string { return c.release }

// Lookup returns the index entry for name. The first call loads the
// index; if loading failed every call returns [integrations.ErrNetwork].
func (c *Client) Lookup(ctx context.Context, name string) (*Entry, error) {
	c.once.Do(func() { c.index, c.loadErr = c.load(ctx) })
	if c.loadErr != nil {
		return nil, c.loadErr
	}
	e, ok := c.index[name]
	if !ok {
		return nil, fmt.Errorf("%w: bioconductor package %s", integrations.ErrNotFound, name)
	}
	return e, nil
}

// Len reports the number of indexed packages, loading the index if needed.
func (c *Client) Len(ctx context.Context) (int, error) {
	if _, err := c.Lookup(ctx, ""); err != nil && !errors.Is(err, integrations.ErrNotFound) {
		return 0, err
	}
	return len(c.index), nil
}

// Resolve implements the registry contract used by the resolver.
func (c *Client) Resolve(ctx context.Context, name, declaredVersion string) (*integrations.Package, error) {
	e, err := c.Lookup(ctx, name)
	if err != nil {
		return nil, err
	}
	return &integrations.Package{
		Name:         e.Name,
		Version:      e.Version,
		Title:        e.Title,
		URL:          fmt.Sprintf("https://bioconductor.org/packages/%s/%s/html/%s.html", c.release, e.View, e.Name),
		Registry:     c.Name(),
		Dependencies: e.Dependencies(),
	}, nil
}

func (c *Client) load(ctx context.Context) (map[string]*Entry, error) {
	if c.release == "" {
		return nil, fmt.Errorf("%w: no bioconductor release configured", integrations.ErrNetwork)
	}
	index := make(map[string]*Entry)
	for _, view := range Views {
		text, err := c.packagesFile(ctx, view)
		if err != nil {
			c.logger.Warn("bioconductor index unavailable, falling back to CRAN", "release", c.release, "view", view, "err", err)
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("%w: bioconductor %s %s index: %v", integrations.ErrNetwork, c.release, view, err)
		}
		for _, rec := range parseDCF(text) {
			name := rec["Package"]
			if name == "" || rec["Version"] == "" {
				continue
			}
			if _, dup := index[name]; dup {
				continue
			}
			index[name] = &Entry{
				Name:      name,
				Version:   rec["Version"],
				Title:     rec["Title"],
				View:      view,
				Depends:   parseDependencyList(rec["Depends"]),
				Imports:   parseDependencyList(rec["Imports"]),
				LinkingTo: parseDependencyList(rec["LinkingTo"]),
			}
		}
		c.addTitles(ctx, view, index)
	}
	c.logger.Debug("loaded bioconductor index", "release", c.release, "packages", len(index))
	return index, nil
}

func (c *Client) packagesFile(ctx context.Context, view string) (string, error) {
	url := fmt.Sprintf("%s/%s/%s/src/contrib/PACKAGES", c.baseURL, c.release, view)
	var text string
	err := c.Cached(ctx, c.release+"/"+view, false, &text, func() error {
		var err error
		text, err = c.GetText(ctx, url)
		return err
	})
	return text, err
}

type jsonPackage struct {
	Title string `json:"Title"`
}

// addTitles fills titles from packages.json. The file is optional: the
// PACKAGES index stays authoritative for versions and edges.
func (c *Client) addTitles(ctx context.Context, view string, index map[string]*Entry) {
	url := fmt.Sprintf("%s/json/%s/%s/packages.json", c.baseURL, c.release, view)
	var meta map[string]jsonPackage
	err := c.Cached(ctx, "json/"+c.release+"/"+view, false, &meta, func() error {
		return c.Get(ctx, url, &meta)
	})
	if err != nil {
		c.logger.Debug("no bioconductor titles", "view", view, "err", err)
		return
	}
	for name, m := range meta {
		if e, ok := index[name]; ok && m.Title != "" {
			e.Title = strings.Join(strings.Fields(m.Title), " ")
		}
	}
}

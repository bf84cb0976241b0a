package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	apperr "github.com/extsync/easyupdate/pkg/errors"
	"github.com/extsync/easyupdate/pkg/cache"
	"github.com/extsync/easyupdate/pkg/integrations"
	"github.com/extsync/easyupdate/pkg/integrations/bioconductor"
	"github.com/extsync/easyupdate/pkg/integrations/cran"
	"github.com/extsync/easyupdate/pkg/integrations/pypi"
	"github.com/extsync/easyupdate/pkg/recipe"
	"github.com/extsync/easyupdate/pkg/resolve"
)

// responseTTL outlives any single run; the cache is in memory only.
const responseTTL = time.Hour

// fallbackPythonVersion is used for marker evaluation when neither the
// recipe nor its dependencies pin Python.
const fallbackPythonVersion = "3"

// recipeOpts are the flags shared by commands that take a recipe.
type recipeOpts struct {
	language string
}

func (o *recipeOpts) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.language, "language", "", "extension language, R or Python (default: detect from the recipe)")
}

func (o *recipeOpts) loadOptions() (recipe.LoadOptions, error) {
	switch strings.ToLower(o.language) {
	case "":
		return recipe.LoadOptions{}, nil
	case "r":
		return recipe.LoadOptions{Ecosystem: recipe.EcosystemR}, nil
	case "python", "py":
		return recipe.LoadOptions{Ecosystem: recipe.EcosystemPython}, nil
	}
	return recipe.LoadOptions{}, apperr.New(apperr.ErrCodeInvalidInput, "unknown language %q (want R or Python)", o.language)
}

// loadRecipe loads path and the baseline provided by its dependencies.
func (c *CLI) loadRecipe(ctx context.Context, path string, opts recipeOpts) (*recipe.Document, error) {
	logger := loggerFromContext(ctx)

	lo, err := opts.loadOptions()
	if err != nil {
		return nil, err
	}
	doc, err := recipe.Load(path, lo)
	if err != nil {
		return nil, err
	}
	if !doc.FileNameMatches() {
		logger.Warn("file name does not match module name", "file", filepath.Base(path), "expected", doc.ModuleName()+".eb")
	}

	recipe.NewLocator(c.cfg.RobotPaths, logger).Baseline(doc)
	logger.Debug("recipe loaded",
		"module", doc.ModuleName(),
		"ecosystem", doc.Ecosystem,
		"extensions", len(doc.Extensions),
		"baseline", len(doc.Baseline),
		"python", doc.PythonVersion,
		"bioconductor", doc.BiocVersion,
	)
	return doc, nil
}

// registryFor builds the registry chain for doc's ecosystem.
func (c *CLI) registryFor(ctx context.Context, doc *recipe.Document) (resolve.Registry, resolve.Ecosystem, error) {
	logger := loggerFromContext(ctx)
	eco, ok := doc.ResolveEcosystem()
	if !ok {
		return nil, resolve.Ecosystem{}, apperr.New(apperr.ErrCodeUnsupported,
			"cannot tell whether %s bundles R or Python extensions; use --language", filepath.Base(doc.Path))
	}

	backend := cache.NewMemoryCache()
	opts := c.clientOptions()

	if eco.Name == resolve.R.Name {
		chain := resolve.Chain{}
		if doc.BiocVersion != "" {
			chain = append(chain, bioconductor.NewClient(backend, responseTTL, c.cfg.BioconductorURL, doc.BiocVersion, logger, opts...))
		}
		chain = append(chain, cran.NewClient(backend, responseTTL, c.cfg.CRANURL, opts...))
		return chain, eco, nil
	}

	pyver := doc.PythonVersion
	if pyver == "" {
		logger.Warn("no Python version found, evaluating markers for Python 3", "recipe", filepath.Base(doc.Path))
		pyver = fallbackPythonVersion
	}
	client := pypi.NewClient(backend, responseTTL, c.cfg.PyPIURL, c.cfg.MarkerEnvironment(pyver), opts...)
	client.SetLogger(logger)
	return client, eco, nil
}

func (c *CLI) clientOptions() []integrations.ClientOption {
	return []integrations.ClientOption{
		integrations.WithRetry(c.cfg.RetryPolicy()),
		integrations.WithTimeout(c.cfg.HTTPTimeout),
	}
}

// resolveRecipe runs the resolution engine over doc. In verbose mode every
// record is printed as it is decided; otherwise a spinner counts them.
func (c *CLI) resolveRecipe(ctx context.Context, doc *recipe.Document) (*resolve.Run, error) {
	logger := loggerFromContext(ctx)
	reg, eco, err := c.registryFor(ctx, doc)
	if err != nil {
		return nil, err
	}

	prog := newProgress(logger)
	var spinner *Spinner
	records := 0
	onRecord := func(rec resolve.Record) {
		records++
		if c.flags.verbose {
			printStatus(c.Out, rec)
			return
		}
		spinner.SetMessage(fmt.Sprintf("Resolving %s (%d packages)", doc.Name, records))
	}
	if !c.flags.verbose {
		spinner = newSpinner(ctx, c.Err, "Resolving "+doc.Name)
		spinner.Start()
	}

	engine := resolve.New(reg, eco, resolve.Options{
		Workers:  c.cfg.Workers,
		Logger:   logger,
		Progress: onRecord,
	})
	run, err := engine.Resolve(ctx, resolve.Input{Declared: doc.Declarations(), Baseline: doc.Baseline})
	if spinner != nil {
		spinner.Stop()
	}
	if err != nil {
		return nil, err
	}
	prog.done(fmt.Sprintf("Resolved %d packages via %s", len(run.Nodes()), reg.Name()))
	return run, nil
}

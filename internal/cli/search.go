package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	apperr "github.com/extsync/easyupdate/pkg/errors"
	"github.com/extsync/easyupdate/pkg/cache"
	"github.com/extsync/easyupdate/pkg/integrations"
	"github.com/extsync/easyupdate/pkg/integrations/cran"
	"github.com/extsync/easyupdate/pkg/integrations/pypi"
)

// searchCRANCommand creates the search-cran command.
func (c *CLI) searchCRANCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "search-cran <package>",
		Short: "Show CRAN metadata of a package",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runSearchCRAN(cmd.Context(), args[0])
		},
	}
}

func (c *CLI) runSearchCRAN(ctx context.Context, name string) error {
	if err := apperr.ValidateRPackageName(name); err != nil {
		return err
	}
	client := cran.NewClient(cache.NewNullCache(), 0, c.cfg.CRANURL, c.clientOptions()...)
	info, err := client.FetchPackage(ctx, name, true)
	if err != nil {
		return lookupError(err, "CRAN", name)
	}

	fmt.Fprintln(c.Out, StyleTitle.Render(info.Name))
	printKeyValue(c.Out, "Version", info.Version)
	printKeyValue(c.Out, "Title", info.Title)
	printKeyValue(c.Out, "License", info.License)
	if info.URL != "" {
		printKeyValue(c.Out, "URL", StyleLink.Render(info.URL))
	}
	if info.IsBase() {
		printKeyValue(c.Out, "Base package", "yes")
	}
	printDependencies(c, info.Dependencies())
	return nil
}

type searchPyPIOpts struct {
	python string
}

// searchPyPICommand creates the search-pypi command.
func (c *CLI) searchPyPICommand() *cobra.Command {
	var opts searchPyPIOpts

	cmd := &cobra.Command{
		Use:   "search-pypi <package>",
		Short: "Show PyPI metadata of a package",
		Long: `Show PyPI metadata of a package.

Requirements are listed after evaluating their environment markers for
the Python version given with --python.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runSearchPyPI(cmd.Context(), args[0], opts)
		},
	}
	cmd.Flags().StringVar(&opts.python, "python", "3.11", "Python version for marker evaluation")
	return cmd
}

func (c *CLI) runSearchPyPI(ctx context.Context, name string, opts searchPyPIOpts) error {
	if err := apperr.ValidatePythonPackageName(name); err != nil {
		return err
	}
	client := pypi.NewClient(cache.NewNullCache(), 0, c.cfg.PyPIURL, c.cfg.MarkerEnvironment(opts.python), c.clientOptions()...)
	client.SetLogger(loggerFromContext(ctx))
	info, err := client.FetchPackage(ctx, name, true)
	if err != nil {
		return lookupError(err, "PyPI", name)
	}

	fmt.Fprintln(c.Out, StyleTitle.Render(info.Name))
	printKeyValue(c.Out, "Version", info.Version)
	printKeyValue(c.Out, "Summary", info.Summary)
	if info.HomePage != "" {
		printKeyValue(c.Out, "Home page", StyleLink.Render(info.HomePage))
	}
	if info.SdistFile != "" {
		printKeyValue(c.Out, "Source", info.SdistFile)
		if tmpl := pypi.SourceTemplate(info.Name, info.Version, info.SdistFile); tmpl != "" {
			printKeyValue(c.Out, "source_tmpl", tmpl)
		}
	}
	printDependencies(c, client.Dependencies(info))
	return nil
}

func printDependencies(c *CLI, deps []integrations.Dependency) {
	if len(deps) == 0 {
		return
	}
	t := newTable("Dependency", "Field")
	for _, d := range deps {
		t.Row(d.Name, string(d.Kind))
	}
	fmt.Fprintln(c.Out, t.Render())
}

func lookupError(err error, registry, name string) error {
	if apperr.GetCode(err) != "" {
		return err
	}
	if errors.Is(err, integrations.ErrNotFound) {
		return apperr.Wrap(apperr.ErrCodePackageNotFound, err, "%s has no package %q", registry, name)
	}
	return apperr.Wrap(apperr.ErrCodeNetwork, err, "querying %s for %q", registry, name)
}

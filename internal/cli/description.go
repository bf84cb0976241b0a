package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/extsync/easyupdate/pkg/integrations"
	"github.com/extsync/easyupdate/pkg/resolve"
)

// descriptionCommand creates the description command.
func (c *CLI) descriptionCommand() *cobra.Command {
	var opts recipeOpts

	cmd := &cobra.Command{
		Use:               "description <recipe.eb>",
		Short:             "List the extensions of a recipe with their registry titles",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeRecipe,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runDescription(cmd.Context(), args[0], opts)
		},
	}
	opts.register(cmd)
	return cmd
}

// describedExt is one row of the description table.
type describedExt struct {
	name    string
	version string
	latest  string
	title   string
	source  string
}

func (c *CLI) runDescription(ctx context.Context, path string, opts recipeOpts) error {
	logger := loggerFromContext(ctx)

	doc, err := c.loadRecipe(ctx, path, opts)
	if err != nil {
		return err
	}
	reg, eco, err := c.registryFor(ctx, doc)
	if err != nil {
		return err
	}

	rows := make([]describedExt, len(doc.Extensions))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.Workers)
	for i, ext := range doc.Extensions {
		rows[i] = describedExt{name: ext.Name, version: ext.Version}
		if eco.IsExcluded(ext.Name) {
			rows[i].title = "(provided by the interpreter)"
			continue
		}
		g.Go(func() error {
			pkg, err := reg.Resolve(gctx, ext.Name, ext.Version)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				logger.Debug("no description", "name", ext.Name, "outcome", resolve.Classify(err))
				rows[i].title = describeError(err)
				return nil
			}
			rows[i].latest = pkg.Version
			rows[i].title = pkg.Title
			rows[i].source = pkg.Registry
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	t := newTable("Extension", "Version", "Latest", "Source", "Title")
	for _, r := range rows {
		latest := r.latest
		if latest != "" && latest != r.version {
			latest = StyleWarning.Render(latest)
		}
		t.Row(r.name, r.version, latest, r.source, r.title)
	}
	fmt.Fprintln(c.Out, StyleTitle.Render(doc.ModuleName()))
	fmt.Fprintln(c.Out, t.Render())
	return nil
}

func describeError(err error) string {
	switch {
	case errors.Is(err, integrations.ErrNotFound):
		return StyleDim.Render("(not found)")
	case resolve.Classify(err) == resolve.OutcomeBase:
		return StyleDim.Render("(base package)")
	}
	return StyleDim.Render("(lookup failed)")
}

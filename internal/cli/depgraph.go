package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/extsync/easyupdate/pkg/depgraph"
)

type depGraphOpts struct {
	recipeOpts
	svg      string
	detailed bool
}

// depGraphCommand creates the dep-graph command.
func (c *CLI) depGraphCommand() *cobra.Command {
	var opts depGraphOpts

	cmd := &cobra.Command{
		Use:   "dep-graph <recipe.eb>",
		Short: "Print the dependency graph of a recipe's extensions",
		Long: `Print the dependency graph of a recipe's extensions as Graphviz DOT.

Nodes are colored by the decision an update would take. Use --svg to
render the graph instead.`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeRecipe,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runDepGraph(cmd.Context(), args[0], opts)
		},
	}

	opts.register(cmd)
	cmd.Flags().StringVar(&opts.svg, "svg", "", "render to this SVG file instead of printing DOT")
	cmd.Flags().BoolVar(&opts.detailed, "detailed", false, "show versions and decisions in node labels")

	return cmd
}

func (c *CLI) runDepGraph(ctx context.Context, path string, opts depGraphOpts) error {
	logger := loggerFromContext(ctx)

	doc, err := c.loadRecipe(ctx, path, opts.recipeOpts)
	if err != nil {
		return err
	}
	run, err := c.resolveRecipe(ctx, doc)
	if err != nil {
		return err
	}

	g := depgraph.FromRun(run, doc.ModuleName())
	dot := depgraph.ToDOT(g, depgraph.Options{Detailed: opts.detailed})
	if opts.svg == "" {
		_, err := fmt.Fprint(c.Out, dot)
		return err
	}

	svg, err := depgraph.RenderSVG(ctx, dot)
	if err != nil {
		return err
	}
	if err := writeFileAtomic(opts.svg, svg); err != nil {
		return err
	}
	logger.Debug("rendered graph", "nodes", g.NodeCount(), "bytes", len(svg))
	printSuccess(c.Out, "Rendered %d packages", g.NodeCount())
	printFile(c.Out, opts.svg)
	return nil
}

package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	apperr "github.com/extsync/easyupdate/pkg/errors"
	"github.com/extsync/easyupdate/pkg/patch"
	"github.com/extsync/easyupdate/pkg/report"
)

type updateOpts struct {
	recipeOpts
	report string
	dryRun bool
}

// updateCommand creates the update command.
func (c *CLI) updateCommand() *cobra.Command {
	var opts updateOpts

	cmd := &cobra.Command{
		Use:   "update <recipe.eb>",
		Short: "Update the exts_list of a recipe",
		Long: `Update the exts_list of a recipe.

Every extension is looked up on CRAN and Bioconductor (R) or PyPI (Python).
Newer versions replace the declared ones and drop their checksums; missing
dependencies are appended to the end of the list. Extensions already
provided by a build dependency are reported as duplicates and, with
--drop-duplicates, removed.

The result is written next to the recipe as <recipe>.update; the recipe
itself is never modified.`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeRecipe,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runUpdate(cmd.Context(), args[0], opts)
		},
	}

	opts.register(cmd)
	cmd.Flags().StringVar(&opts.report, "report", "", "write a TOML report of every decision to this file")
	cmd.Flags().Bool("drop-duplicates", false, "remove extensions provided by build dependencies")
	cmd.Flags().BoolVarP(&opts.dryRun, "dry-run", "n", false, "resolve and patch without writing the output file")

	return cmd
}

func (c *CLI) runUpdate(ctx context.Context, path string, opts updateOpts) error {
	logger := loggerFromContext(ctx)
	started := time.Now()

	doc, err := c.loadRecipe(ctx, path, opts.recipeOpts)
	if err != nil {
		return err
	}
	run, err := c.resolveRecipe(ctx, doc)
	if err != nil {
		return err
	}

	plan, err := patch.NewPlan(doc.Extensions, run, patch.PlanOptions{DropDuplicates: c.cfg.DropDuplicates})
	if err != nil {
		return apperr.Wrap(apperr.ErrCodeInternal, err, "planning patch")
	}
	res, err := patch.Apply(doc.Source, plan)
	if err != nil {
		return err
	}
	logger.Debug("patch applied", "spans", len(res.Spans), "substituted", res.Counts.Substituted, "added", res.Counts.Added)

	out := doc.OutputPath()
	if !opts.dryRun {
		if err := writeFileAtomic(out, res.Output); err != nil {
			return err
		}
	}

	summary := run.Summary()
	printSummary(c.Out, summary, res.Counts)
	if summary.Removed > 0 {
		printWarning(c.Out, "%d required packages could not be resolved and were not added", summary.Removed)
	}
	switch {
	case opts.dryRun:
		printInfo(c.Out, "Dry run, %s not written", filepath.Base(out))
	case res.Counts.Changed():
		printSuccess(c.Out, "Updated %s", doc.ModuleName())
		printFile(c.Out, out)
	default:
		printInfo(c.Out, "%s is up to date", doc.ModuleName())
		printFile(c.Out, out)
	}

	if opts.report != "" {
		rep := report.New(report.Input{
			RunID:     c.runID,
			StartedAt: started,
			Document:  doc,
			Run:       run,
			Result:    res,
			Output:    out,
			DryRun:    opts.dryRun,
		})
		if err := report.Save(opts.report, rep); err != nil {
			return err
		}
		printFile(c.Out, opts.report)
	}
	return nil
}

// writeFileAtomic writes data to a temporary file in path's directory and
// renames it into place.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return apperr.Wrap(apperr.ErrCodeInvalidPath, err, "create output in %s", dir)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename to %s: %w", path, err)
	}
	return nil
}

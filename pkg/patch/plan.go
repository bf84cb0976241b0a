package patch

import (
	"fmt"

	"github.com/extsync/easyupdate/pkg/recipe"
	"github.com/extsync/easyupdate/pkg/resolve"
)

// PlanOptions tunes [NewPlan].
type PlanOptions struct {
	// DropDuplicates removes declared entries that a build dependency
	// already provides.
	DropDuplicates bool
	Format         Format
}

// NewPlan pairs the recipe's extensions with the run's declared records.
// Both must be in recipe order and of equal length.
func NewPlan(exts []recipe.Extension, run *resolve.Run, opts PlanOptions) (Plan, error) {
	if len(exts) != len(run.Declared) {
		return Plan{}, fmt.Errorf("plan: %d extensions but %d declared records", len(exts), len(run.Declared))
	}
	plan := Plan{Format: opts.Format}
	for i, ext := range exts {
		rec := run.Declared[i]
		e := Entry{
			Name:     ext.RawName,
			Version:  ext.RawVersion,
			Bare:     ext.Bare,
			Decision: rec.Decision,
		}
		switch {
		case rec.Decision == resolve.Remove,
			rec.Decision == resolve.Duplicate && opts.DropDuplicates:
			e.Action = Drop
		case rec.NewVersion() != "":
			e.Action = Substitute
			e.NewVersion = rec.NewVersion()
		}
		plan.Entries = append(plan.Entries, e)
	}
	for _, n := range run.Adds() {
		plan.Additions = append(plan.Additions, Addition{Name: n.Name, Version: n.ResolvedVersion, Options: n.Options})
	}
	return plan, nil
}

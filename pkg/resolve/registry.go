package resolve

import (
	"context"
	"errors"
	"strings"

	"github.com/extsync/easyupdate/pkg/integrations"
	"github.com/extsync/easyupdate/pkg/integrations/cran"
)

// Registry answers lookups for one ecosystem.
//
// Resolve returns the package, or an error that [Classify] maps to an
// [Outcome]. Implementations must be safe for concurrent use.
type Registry interface {
	Name() string
	Resolve(ctx context.Context, name, declaredVersion string) (*integrations.Package, error)
}

// Outcome is the classified result of a lookup.
type Outcome int

const (
	OutcomeOK Outcome = iota
	OutcomeNotFound
	OutcomeTransport
	OutcomeBase
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeNotFound:
		return "not_found"
	case OutcomeBase:
		return "base"
	}
	return "transport"
}

// Classify maps a lookup error to its outcome. Anything that is neither
// a not-found answer nor a base package counts as a transport failure.
func Classify(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, cran.ErrBasePackage):
		return OutcomeBase
	case errors.Is(err, integrations.ErrNotFound):
		return OutcomeNotFound
	}
	return OutcomeTransport
}

// Chain asks registries in order. Only not-found and transport outcomes
// fall through to the next registry; the last error is returned.
type Chain []Registry

// Name joins the member names, e.g. "bioconductor+cran".
func (c Chain) Name() string {
	names := make([]string, len(c))
	for i, r := range c {
		names[i] = r.Name()
	}
	return strings.Join(names, "+")
}

func (c Chain) Resolve(ctx context.Context, name, declaredVersion string) (*integrations.Package, error) {
	err := error(integrations.ErrNotFound)
	for _, r := range c {
		var pkg *integrations.Package
		pkg, err = r.Resolve(ctx, name, declaredVersion)
		switch Classify(err) {
		case OutcomeOK:
			return pkg, nil
		case OutcomeBase:
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
	return nil, err
}

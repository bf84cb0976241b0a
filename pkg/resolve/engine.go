package resolve

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/extsync/easyupdate/pkg/observability"
)

// DefaultWorkers bounds concurrent registry lookups.
const DefaultWorkers = 8

// Options configures an [Engine].
type Options struct {
	Workers  int          // Concurrent lookups (default: 8)
	Logger   *log.Logger  // Warnings about dropped dependencies (optional)
	Progress func(Record) // Called for every record in walk order (optional)
}

// WithDefaults returns a copy of Options with zero values replaced by defaults.
func (o Options) WithDefaults() Options {
	opts := o
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	if opts.Progress == nil {
		opts.Progress = func(Record) {}
	}
	return opts
}

// Input is what the engine needs from a recipe.
type Input struct {
	Declared []Declaration // exts_list entries in recipe order
	Baseline []string      // Names provided by build dependencies
}

// Engine resolves recipes of one ecosystem against one registry.
type Engine struct {
	registry Registry
	eco      Ecosystem
	opts     Options
}

// New creates an engine. The registry is typically a [Chain].
func New(registry Registry, eco Ecosystem, opts Options) *Engine {
	return &Engine{registry: registry, eco: eco, opts: opts.WithDefaults()}
}

// Resolve walks in and returns the decided run. It fails only when ctx
// is cancelled; lookup failures become Keep or Remove decisions.
func (e *Engine) Resolve(ctx context.Context, in Input) (*Run, error) {
	began := time.Now()
	w := &walker{
		ctx:      ctx,
		eco:      e.eco,
		opts:     e.opts,
		lk:       newLookups(ctx, e.registry, e.opts.Workers),
		run:      newRun(e.eco),
		inFlight: make(map[string]bool),
		baseline: make(map[string]bool, len(in.Baseline)),
		declared: make(map[string]string, len(in.Declared)),
		bare:     make(map[string]bool),
	}
	for _, name := range in.Baseline {
		w.baseline[e.eco.Key(name)] = true
	}
	for _, d := range in.Declared {
		key := e.eco.Key(d.Name)
		if d.Bare {
			w.bare[key] = true
		} else if _, ok := w.declared[key]; !ok {
			w.declared[key] = d.Version
		}
	}

	err := w.walk(in.Declared)
	w.lk.close()
	w.run.Elapsed = time.Since(began)
	observability.Resolve().OnRunComplete(ctx, e.eco.Name, len(w.run.nodes), w.run.Elapsed, err)
	if err != nil {
		return nil, err
	}
	e.opts.Logger.Debug("resolution finished", "ecosystem", e.eco.Name, "nodes", len(w.run.nodes), "records", len(w.run.Records), "elapsed", w.run.Elapsed)
	return w.run, nil
}

type walker struct {
	ctx  context.Context
	eco  Ecosystem
	opts Options
	lk   *lookups
	run  *Run

	inFlight map[string]bool
	baseline map[string]bool
	declared map[string]string // Versioned entries of the recipe
	bare     map[string]bool   // Unversioned entries of the recipe
}

func (w *walker) walk(decls []Declaration) error {
	for _, d := range decls {
		if !d.Bare {
			w.prefetch(d.Name)
		}
	}
	for _, d := range decls {
		var rec Record
		if w.eco.IsExcluded(d.Name) {
			rec = w.emit(Record{Name: d.Name, Decision: Keep})
		} else {
			var err error
			if rec, err = w.visit(d.Name, d.Version, d.Bare, Origin{}, 0); err != nil {
				return err
			}
		}
		w.run.Declared = append(w.run.Declared, DeclaredRecord{Declaration: d, Decision: rec.Decision, Node: rec.Node})
	}
	return nil
}

// prefetch starts the lookup of name unless the walk will not need it.
func (w *walker) prefetch(name string) {
	key := w.eco.Key(name)
	if w.eco.Excluded[key] || w.baseline[key] || w.bare[key] || w.inFlight[key] || w.run.index[key] != nil {
		return
	}
	w.lk.start(key, name, w.declared[key])
}

func (w *walker) visit(name, version string, bare bool, origin Origin, depth int) (Record, error) {
	if err := w.ctx.Err(); err != nil {
		return Record{}, err
	}
	key := w.eco.Key(name)
	rec := Record{Name: name, Origin: origin, Depth: depth}

	switch {
	case w.baseline[key]:
		rec.Decision = Duplicate
		return w.emit(rec), nil
	case w.run.index[key] != nil:
		rec.Decision = Processed
		rec.Node = w.run.index[key]
		return w.emit(rec), nil
	case w.inFlight[key]:
		rec.Decision = Reordered
		return w.emit(rec), nil
	}

	node := &Node{Name: name, DeclaredVersion: version, Origin: origin, Depth: depth}
	_, versioned := w.declared[key]
	if bare || (w.bare[key] && !versioned) {
		node.Decision = Keep
		return w.finish(key, node, rec), nil
	}
	declared := versioned || origin.IsDeclared()

	w.inFlight[key] = true
	pkg, err := w.lk.wait(key, name, version)
	if err != nil && w.ctx.Err() != nil {
		return Record{}, w.ctx.Err()
	}

	switch outcome := Classify(err); outcome {
	case OutcomeOK:
		node.ResolvedVersion = pkg.Version
		node.Title = pkg.Title
		node.Source = pkg.Registry
		node.Options = pkg.Options
		switch {
		case version == "" && !declared:
			node.Decision = Add
		case version == pkg.Version:
			node.Decision = Keep
		default:
			node.Decision = Update
			node.OriginalVersion = version
		}
		for _, dep := range pkg.Dependencies {
			if !w.eco.IsExcluded(dep.Name) {
				node.Edges = append(node.Edges, Edge{Name: dep.Name, Kind: dep.Kind})
			}
		}
		if err := w.expand(node); err != nil {
			return Record{}, err
		}
	case OutcomeBase:
		if declared {
			node.Decision = Keep
		} else {
			node.Decision = Remove
			w.opts.Logger.Debug("skipping base package", "name", name, "required_by", origin.Parent)
		}
	default:
		if declared {
			node.Decision = Keep
			w.opts.Logger.Warn("lookup failed, keeping declared version", "name", name, "version", version, "outcome", outcome, "err", err)
		} else {
			node.Decision = Remove
			w.opts.Logger.Warn("dropping dependency", "name", name, "required_by", origin.Parent, "outcome", outcome)
		}
	}

	delete(w.inFlight, key)
	return w.finish(key, node, rec), nil
}

// expand visits the edges of node in registry order, after starting the
// lookups of all of them.
func (w *walker) expand(node *Node) error {
	for _, e := range node.Edges {
		w.prefetch(e.Name)
	}
	for _, e := range node.Edges {
		key := w.eco.Key(e.Name)
		origin := Origin{Parent: node.Name, Kind: e.Kind}
		if _, err := w.visit(e.Name, w.declared[key], false, origin, node.Depth+1); err != nil {
			return err
		}
	}
	return nil
}

func (w *walker) finish(key string, node *Node, rec Record) Record {
	w.run.add(key, node)
	rec.Decision = node.Decision
	rec.Node = node
	return w.emit(rec)
}

func (w *walker) emit(rec Record) Record {
	w.run.Records = append(w.run.Records, rec)
	observability.Resolve().OnDecision(w.ctx, w.eco.Name, rec.Decision.String())
	w.opts.Progress(rec)
	return rec
}

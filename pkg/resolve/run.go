package resolve

import (
	"fmt"
	"time"
)

// Run is the outcome of one resolution. It owns all of its nodes.
type Run struct {
	Ecosystem string

	// Records lists every encounter in walk order.
	Records []Record

	// Declared has one record per exts_list entry, in recipe order.
	Declared []DeclaredRecord

	Elapsed time.Duration

	nodes []*Node
	index map[string]*Node
	key   func(string) string
}

func newRun(eco Ecosystem) *Run {
	return &Run{Ecosystem: eco.Name, index: make(map[string]*Node), key: eco.Key}
}

func (r *Run) add(key string, n *Node) {
	r.index[key] = n
	r.nodes = append(r.nodes, n)
}

// Nodes returns the decided nodes in the order they became terminal.
func (r *Run) Nodes() []*Node { return r.nodes }

// Node looks up the node decided for name.
func (r *Run) Node(name string) (*Node, bool) {
	n, ok := r.index[r.key(name)]
	return n, ok
}

// Adds returns the nodes to append to the recipe. Dependencies precede
// the packages that need them.
func (r *Run) Adds() []*Node {
	var adds []*Node
	for _, n := range r.nodes {
		if n.Decision == Add {
			adds = append(adds, n)
		}
	}
	return adds
}

// Summary counts decisions over all records.
type Summary struct {
	Kept      int
	Updated   int
	Added     int
	Duplicate int
	Processed int
	Reordered int
	Removed   int
}

// Summary tallies the run's records.
func (r *Run) Summary() Summary {
	var s Summary
	for _, rec := range r.Records {
		switch rec.Decision {
		case Keep:
			s.Kept++
		case Update:
			s.Updated++
		case Add:
			s.Added++
		case Duplicate:
			s.Duplicate++
		case Processed:
			s.Processed++
		case Reordered:
			s.Reordered++
		case Remove:
			s.Removed++
		}
	}
	return s
}

// Changed reports whether the recipe needs rewriting.
func (s Summary) Changed() bool {
	return s.Updated > 0 || s.Added > 0
}

// StatusLine renders rec the way verbose output shows it, e.g.
// "Rcpp : 1.0.10 -> 1.0.11 (update)".
func StatusLine(rec Record) string {
	n := rec.Node
	switch {
	case n == nil:
		return fmt.Sprintf("%s : (%s)", rec.Name, rec.Decision)
	case rec.Decision == Update:
		return fmt.Sprintf("%s : %s -> %s (%s)", rec.Name, n.OriginalVersion, n.ResolvedVersion, rec.Decision)
	case rec.Decision == Add:
		return fmt.Sprintf("%s : %s (%s, required by %s)", rec.Name, n.ResolvedVersion, rec.Decision, rec.Origin.Parent)
	case rec.Decision == Remove:
		return fmt.Sprintf("%s : (%s, required by %s)", rec.Name, rec.Decision, rec.Origin.Parent)
	}
	return fmt.Sprintf("%s : %s (%s)", rec.Name, n.Version(), rec.Decision)
}

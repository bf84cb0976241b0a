// Package depgraph turns a resolution run into a dependency graph and
// renders it as Graphviz DOT or SVG.
package depgraph

import (
	"errors"

	"github.com/extsync/easyupdate/pkg/resolve"
)

var (
	// ErrInvalidNodeID is returned by [Graph.AddNode] for an empty ID.
	ErrInvalidNodeID = errors.New("node ID must not be empty")

	// ErrDuplicateNodeID is returned by [Graph.AddNode] when the ID exists.
	ErrDuplicateNodeID = errors.New("duplicate node ID")

	// ErrUnknownNode is returned by [Graph.AddEdge] when an endpoint is
	// missing.
	ErrUnknownNode = errors.New("unknown node")
)

// Node is a package in the graph.
type Node struct {
	ID       string
	Version  string
	Decision string // resolve decision, empty for the recipe root
	Depth    int
	Title    string
}

// Edge is a dependency from From to To.
type Edge struct {
	From string
	To   string
	Kind string
}

// Graph is a directed dependency graph. Unlike a recipe's build order it
// may contain cycles. Nodes keep their insertion order.
type Graph struct {
	nodes    map[string]*Node
	order    []string
	edges    []Edge
	outgoing map[string][]string
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{nodes: make(map[string]*Node), outgoing: make(map[string][]string)}
}

// AddNode inserts n.
func (g *Graph) AddNode(n Node) error {
	if n.ID == "" {
		return ErrInvalidNodeID
	}
	if _, ok := g.nodes[n.ID]; ok {
		return ErrDuplicateNodeID
	}
	g.nodes[n.ID] = &n
	g.order = append(g.order, n.ID)
	return nil
}

// AddEdge inserts e. Both endpoints must exist.
func (g *Graph) AddEdge(e Edge) error {
	if _, ok := g.nodes[e.From]; !ok {
		return ErrUnknownNode
	}
	if _, ok := g.nodes[e.To]; !ok {
		return ErrUnknownNode
	}
	g.edges = append(g.edges, e)
	g.outgoing[e.From] = append(g.outgoing[e.From], e.To)
	return nil
}

// Node returns the node with id.
func (g *Graph) Node(id string) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Nodes returns all nodes in insertion order.
func (g *Graph) Nodes() []*Node {
	out := make([]*Node, len(g.order))
	for i, id := range g.order {
		out[i] = g.nodes[id]
	}
	return out
}

// Edges returns all edges in insertion order.
func (g *Graph) Edges() []Edge { return g.edges }

// Children returns the targets of id's outgoing edges.
func (g *Graph) Children(id string) []string { return g.outgoing[id] }

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// FromRun builds the graph of run. root, when non-empty, names a node
// for the recipe itself with an edge to every declared extension.
// Baseline hits appear as duplicate nodes; excluded packages are absent.
func FromRun(run *resolve.Run, root string) *Graph {
	g := New()
	if root != "" {
		_ = g.AddNode(Node{ID: root, Depth: -1})
	}
	for _, n := range run.Nodes() {
		_ = g.AddNode(Node{ID: n.Name, Version: n.Version(), Decision: n.Decision.String(), Depth: n.Depth, Title: n.Title})
	}
	for _, rec := range run.Records {
		if rec.Decision == resolve.Duplicate {
			_ = g.AddNode(Node{ID: rec.Name, Decision: rec.Decision.String(), Depth: rec.Depth})
		}
	}

	id := func(name string) string {
		if n, ok := run.Node(name); ok {
			return n.Name
		}
		return name
	}
	if root != "" {
		for _, d := range run.Declared {
			_ = g.AddEdge(Edge{From: root, To: id(d.Name), Kind: "declared"})
		}
	}
	for _, n := range run.Nodes() {
		for _, e := range n.Edges {
			_ = g.AddEdge(Edge{From: n.Name, To: id(e.Name), Kind: string(e.Kind)})
		}
	}
	return g
}

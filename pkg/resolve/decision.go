package resolve

import (
	"github.com/extsync/easyupdate/pkg/integrations"
)

// Decision is the terminal state of an encountered package.
type Decision int

const (
	Keep Decision = iota
	Update
	Add
	Duplicate
	Processed
	Reordered
	Remove
)

var decisionNames = [...]string{"keep", "update", "add", "duplicate", "processed", "reordered", "remove"}

func (d Decision) String() string {
	if int(d) < len(decisionNames) {
		return decisionNames[d]
	}
	return "unknown"
}

// Edge is one dependency of a node.
type Edge struct {
	Name string
	Kind integrations.DepKind
}

// Origin records how a node was discovered. A zero Parent means the node
// is declared in the recipe.
type Origin struct {
	Parent string
	Kind   integrations.DepKind
}

// IsDeclared reports whether the node came from the recipe itself.
func (o Origin) IsDeclared() bool { return o.Parent == "" }

func (o Origin) String() string {
	if o.IsDeclared() {
		return "declared"
	}
	return o.Parent + " (" + string(o.Kind) + ")"
}

// Node is a package that was looked up (or deliberately not looked up)
// during a run. Nodes are owned by their [Run].
type Node struct {
	Name            string
	DeclaredVersion string // Version in the recipe, empty if undeclared or bare
	ResolvedVersion string // Registry version, empty if the lookup failed
	OriginalVersion string // Declared version replaced by an Update
	Edges           []Edge
	Origin          Origin
	Decision        Decision
	Depth           int
	Title           string
	Source          string // Registry that answered
	Options         []integrations.Option
}

// Version is the version the recipe carries after the run.
func (n *Node) Version() string {
	switch n.Decision {
	case Update, Add:
		return n.ResolvedVersion
	}
	return n.DeclaredVersion
}

// Record is one encounter of a name during the walk. Several records may
// share a Node: Processed records point at the node decided earlier.
type Record struct {
	Name     string
	Decision Decision
	Origin   Origin
	Depth    int
	Node     *Node // Canonical node; nil for Duplicate and Reordered
}

// Declaration is one exts_list entry handed to the engine.
type Declaration struct {
	Name    string
	Version string
	Bare    bool
}

// DeclaredRecord pairs a recipe entry with its outcome. Entries are kept
// in recipe order.
type DeclaredRecord struct {
	Declaration
	Decision Decision
	Node     *Node // Canonical node; nil for Duplicate and Reordered
}

// NewVersion returns the version the entry must be rewritten to, or ""
// when it stays as written. A Processed entry inherits the update of the
// node decided earlier under the same name.
func (r DeclaredRecord) NewVersion() string {
	if r.Node == nil || r.Bare {
		return ""
	}
	switch r.Decision {
	case Update, Processed:
		if r.Node.Decision == Update && r.Node.ResolvedVersion != r.Version {
			return r.Node.ResolvedVersion
		}
	}
	return ""
}

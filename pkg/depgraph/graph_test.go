package depgraph

import (
	"context"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/extsync/easyupdate/pkg/integrations"
	"github.com/extsync/easyupdate/pkg/resolve"
)

type mapRegistry map[string]*integrations.Package

func (m mapRegistry) Name() string { return "map" }

func (m mapRegistry) Resolve(_ context.Context, name, _ string) (*integrations.Package, error) {
	if p, ok := m[name]; ok {
		return p, nil
	}
	return nil, integrations.ErrNotFound
}

func testRun(t *testing.T) *resolve.Run {
	t.Helper()
	reg := mapRegistry{
		"A": {Name: "A", Version: "2", Dependencies: []integrations.Dependency{
			{Name: "B", Kind: integrations.KindImports},
			{Name: "Rcpp", Kind: integrations.KindLinkingTo},
		}},
		"B": {Name: "B", Version: "1", Dependencies: []integrations.Dependency{
			{Name: "A", Kind: integrations.KindDepends},
		}},
	}
	run, err := resolve.New(reg, resolve.R, resolve.Options{}).Resolve(context.Background(), resolve.Input{
		Declared: []resolve.Declaration{{Name: "A", Version: "1"}},
		Baseline: []string{"Rcpp"},
	})
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	return run
}

func TestFromRun(t *testing.T) {
	g := FromRun(testRun(t), "Bundle")

	var ids []string
	for _, n := range g.Nodes() {
		ids = append(ids, n.ID+":"+n.Decision)
	}
	want := []string{"Bundle:", "B:add", "A:update", "Rcpp:duplicate"}
	if diff := cmp.Diff(want, ids); diff != "" {
		t.Errorf("nodes mismatch (-want +got):\n%s", diff)
	}

	wantEdges := []Edge{
		{From: "Bundle", To: "A", Kind: "declared"},
		{From: "B", To: "A", Kind: "Depends"},
		{From: "A", To: "B", Kind: "Imports"},
		{From: "A", To: "Rcpp", Kind: "LinkingTo"},
	}
	if diff := cmp.Diff(wantEdges, g.Edges()); diff != "" {
		t.Errorf("edges mismatch (-want +got):\n%s", diff)
	}
}

func TestFromRunWithoutRoot(t *testing.T) {
	g := FromRun(testRun(t), "")
	if _, ok := g.Node("Bundle"); ok {
		t.Error("unexpected root node")
	}
	if g.NodeCount() != 3 {
		t.Errorf("NodeCount() = %d, want 3", g.NodeCount())
	}
}

func TestGraphErrors(t *testing.T) {
	g := New()
	if err := g.AddNode(Node{}); err != ErrInvalidNodeID {
		t.Errorf("AddNode(empty) = %v", err)
	}
	if err := g.AddNode(Node{ID: "a"}); err != nil {
		t.Fatal(err)
	}
	if err := g.AddNode(Node{ID: "a"}); err != ErrDuplicateNodeID {
		t.Errorf("AddNode(dup) = %v", err)
	}
	if err := g.AddEdge(Edge{From: "a", To: "b"}); err != ErrUnknownNode {
		t.Errorf("AddEdge(unknown) = %v", err)
	}
}

func TestToDOT(t *testing.T) {
	dot := ToDOT(FromRun(testRun(t), "Bundle"), Options{})
	for _, want := range []string{
		"digraph G {",
		`"Bundle" [label="Bundle", shape=folder, fillcolor=lightsteelblue];`,
		`"A" [label="A", fillcolor=lightgoldenrod1];`,
		`"Rcpp" [label="Rcpp", fillcolor=lightgrey, style="rounded,filled,dashed"];`,
		`"A" -> "B";`,
		`"A" -> "Rcpp" [style=dashed];`,
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("DOT missing %q:\n%s", want, dot)
		}
	}
}

func TestToDOTDetailed(t *testing.T) {
	dot := ToDOT(FromRun(testRun(t), ""), Options{Detailed: true})
	if !strings.Contains(dot, `label="A\n2\n(update)"`) {
		t.Errorf("detailed label missing:\n%s", dot)
	}
}

func TestNormalizeViewBox(t *testing.T) {
	in := []byte(`<svg width="10pt" height="20pt" viewBox="0.00 0.00 10.00 20.00"><g/></svg>`)
	got := string(normalizeViewBox(in))
	want := `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 10.00 20.00" width="10" height="20"><g/></svg>`
	if got != want {
		t.Errorf("normalizeViewBox() = %s", got)
	}
	if string(normalizeViewBox([]byte("<svg>"))) != "<svg>" {
		t.Error("svg without viewBox changed")
	}
}

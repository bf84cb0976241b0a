package resolve

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/extsync/easyupdate/pkg/integrations"
	"github.com/extsync/easyupdate/pkg/integrations/cran"
)

type stubRegistry struct {
	name   string
	pkgs   map[string]*integrations.Package
	errs   map[string]error
	jitter bool

	mu    sync.Mutex
	calls map[string]int
}

func newStub(pkgs ...*integrations.Package) *stubRegistry {
	s := &stubRegistry{
		name:  "stub",
		pkgs:  make(map[string]*integrations.Package),
		errs:  make(map[string]error),
		calls: make(map[string]int),
	}
	for _, p := range pkgs {
		s.pkgs[p.Name] = p
	}
	return s
}

func pkg(name, version string, deps ...string) *integrations.Package {
	p := &integrations.Package{Name: name, Version: version, Title: name + " title", Registry: "stub"}
	for _, d := range deps {
		p.Dependencies = append(p.Dependencies, integrations.Dependency{Name: d, Kind: integrations.KindImports})
	}
	return p
}

func (s *stubRegistry) Name() string { return s.name }

func (s *stubRegistry) Resolve(ctx context.Context, name, _ string) (*integrations.Package, error) {
	s.mu.Lock()
	s.calls[name]++
	s.mu.Unlock()

	if s.jitter {
		h := fnv.New32a()
		h.Write([]byte(name))
		select {
		case <-time.After(time.Duration(h.Sum32()%5) * time.Millisecond):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err, ok := s.errs[name]; ok {
		return nil, err
	}
	if p, ok := s.pkgs[name]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, integrations.ErrNotFound
}

func (s *stubRegistry) callCount(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[name]
}

func declare(pairs ...string) []Declaration {
	var out []Declaration
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, Declaration{Name: pairs[i], Version: pairs[i+1]})
	}
	return out
}

func resolveR(t *testing.T, reg Registry, in Input) *Run {
	t.Helper()
	run, err := New(reg, R, Options{Workers: 4}).Resolve(context.Background(), in)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	return run
}

type outcome struct {
	Name     string
	Decision string
}

func outcomes(recs []Record) []outcome {
	out := make([]outcome, len(recs))
	for i, r := range recs {
		out[i] = outcome{r.Name, r.Decision.String()}
	}
	return out
}

func TestResolveUpdateAndKeep(t *testing.T) {
	reg := newStub(pkg("foo", "1.2.0"), pkg("baz", "3.0"))
	reg.errs["bar"] = fmt.Errorf("%w: 503", integrations.ErrNetwork)

	run := resolveR(t, reg, Input{Declared: declare("foo", "1.0.0", "bar", "2.0", "baz", "3.0")})

	want := []outcome{{"foo", "update"}, {"bar", "keep"}, {"baz", "keep"}}
	if diff := cmp.Diff(want, outcomes(run.Records)); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}
	foo := run.Declared[0]
	if foo.NewVersion() != "1.2.0" || foo.Node.OriginalVersion != "1.0.0" {
		t.Errorf("foo: new %q original %q", foo.NewVersion(), foo.Node.OriginalVersion)
	}
	if got := run.Declared[1].NewVersion(); got != "" {
		t.Errorf("bar after transport error has new version %q", got)
	}
	s := run.Summary()
	if s.Updated != 1 || s.Kept != 2 || !s.Changed() {
		t.Errorf("Summary() = %+v", s)
	}
}

func TestResolveCycle(t *testing.T) {
	reg := newStub(pkg("A", "1", "B"), pkg("B", "1", "C"), pkg("C", "1", "A"))

	run := resolveR(t, reg, Input{Declared: declare("A", "1")})

	want := []outcome{{"A", "reordered"}, {"C", "add"}, {"B", "add"}, {"A", "keep"}}
	if diff := cmp.Diff(want, outcomes(run.Records)); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}
	if got := run.Summary().Reordered; got != 1 {
		t.Errorf("Reordered = %d, want 1", got)
	}
}

func TestResolveBaselineDuplicate(t *testing.T) {
	reg := newStub(pkg("pandas", "2.1.0", "numpy", "python-dateutil"), pkg("numpy", "1.26.0"), pkg("python-dateutil", "2.8.2"))

	run, err := New(reg, Python, Options{}).Resolve(context.Background(), Input{
		Declared: declare("pandas", "2.1.0"),
		Baseline: []string{"NumPy"},
	})
	if err != nil {
		t.Fatal(err)
	}

	n, ok := run.Node("numpy")
	if ok {
		t.Errorf("numpy entered visited with decision %s", n.Decision)
	}
	for _, rec := range run.Records {
		if rec.Name == "numpy" && rec.Decision != Duplicate {
			t.Errorf("numpy decision = %s, want duplicate", rec.Decision)
		}
	}
	if reg.callCount("numpy") != 0 {
		t.Error("baseline package was looked up")
	}
	adds := run.Adds()
	if len(adds) != 1 || adds[0].Name != "python-dateutil" {
		t.Errorf("Adds() = %v", adds)
	}
}

func TestResolveProcessedAndSingleLookup(t *testing.T) {
	reg := newStub(pkg("foo", "1", "shared"), pkg("bar", "1", "shared"), pkg("shared", "2"))
	reg.jitter = true

	run := resolveR(t, reg, Input{Declared: declare("foo", "1", "bar", "1")})

	want := []outcome{{"shared", "add"}, {"foo", "keep"}, {"shared", "processed"}, {"bar", "keep"}}
	if diff := cmp.Diff(want, outcomes(run.Records)); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}
	for _, name := range []string{"foo", "bar", "shared"} {
		if c := reg.callCount(name); c != 1 {
			t.Errorf("%s looked up %d times, want 1", name, c)
		}
	}
}

func TestResolveTransitiveReachesDeclared(t *testing.T) {
	reg := newStub(pkg("foo", "1.0", "bar"), pkg("bar", "2.0"))

	run := resolveR(t, reg, Input{Declared: declare("foo", "1.0", "bar", "1.5")})

	bar := run.Declared[1]
	if bar.Decision != Processed {
		t.Fatalf("declared bar decision = %s, want processed", bar.Decision)
	}
	if bar.Node.Decision != Update || bar.NewVersion() != "2.0" {
		t.Errorf("canonical bar = %s, NewVersion() = %q", bar.Node.Decision, bar.NewVersion())
	}
	if len(run.Adds()) != 0 {
		t.Errorf("declared package was added: %v", run.Adds())
	}
}

func TestResolveFailurePolicy(t *testing.T) {
	reg := newStub(pkg("top", "1", "gone", "flaky", "basepkg", "stats"))
	reg.errs["flaky"] = integrations.ErrNetwork
	reg.errs["basepkg"] = fmt.Errorf("%w: basepkg", cran.ErrBasePackage)
	reg.errs["declbase"] = cran.ErrBasePackage

	run := resolveR(t, reg, Input{Declared: declare("top", "1", "missing", "0.1", "declbase", "1.0")})

	want := []outcome{
		{"gone", "remove"}, {"flaky", "remove"}, {"basepkg", "remove"}, {"top", "keep"},
		{"missing", "keep"}, {"declbase", "keep"},
	}
	if diff := cmp.Diff(want, outcomes(run.Records)); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}
	if reg.callCount("stats") != 0 {
		t.Error("excluded package was looked up")
	}
	top, _ := run.Node("top")
	for _, e := range top.Edges {
		if e.Name == "stats" {
			t.Error("excluded package kept as edge")
		}
	}
	if got := run.Records[0].Origin.Parent; got != "top" {
		t.Errorf("gone required by %q, want top", got)
	}
}

func TestResolveBareAndExcludedDeclarations(t *testing.T) {
	reg := newStub(pkg("foo", "1", "tools", "legacy"))

	run := resolveR(t, reg, Input{Declared: []Declaration{
		{Name: "base", Bare: true},
		{Name: "legacy", Bare: true},
		{Name: "foo", Version: "1"},
	}})

	want := []outcome{{"base", "keep"}, {"legacy", "keep"}, {"legacy", "processed"}, {"foo", "keep"}}
	if diff := cmp.Diff(want, outcomes(run.Records)); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}
	if reg.callCount("legacy") != 0 || reg.callCount("base") != 0 {
		t.Error("bare entries must not be looked up")
	}
}

func TestResolveAddsDependenciesFirst(t *testing.T) {
	reg := newStub(pkg("x", "1", "y"), pkg("y", "1", "z"), pkg("z", "1"))

	run := resolveR(t, reg, Input{Declared: declare("x", "1")})

	var names []string
	for _, n := range run.Adds() {
		names = append(names, n.Name)
	}
	if diff := cmp.Diff([]string{"z", "y"}, names); diff != "" {
		t.Errorf("Adds() order mismatch (-want +got):\n%s", diff)
	}
	z, _ := run.Node("z")
	if z.Depth != 2 || z.Origin.Parent != "y" {
		t.Errorf("z depth %d parent %q", z.Depth, z.Origin.Parent)
	}
}

func TestResolvePythonNormalization(t *testing.T) {
	reg := newStub(pkg("Flask", "3.0.0", "jinja2", "Werkzeug"), pkg("Jinja2", "3.1.2"), pkg("werkzeug", "3.0.1"))
	reg.pkgs["jinja2"] = reg.pkgs["Jinja2"]
	reg.pkgs["Werkzeug"] = reg.pkgs["werkzeug"]

	run, err := New(reg, Python, Options{}).Resolve(context.Background(), Input{
		Declared: declare("Flask", "2.3.0", "Jinja2", "3.1.2", "werkzeug", "2.3.7"),
	})
	if err != nil {
		t.Fatal(err)
	}
	want := []outcome{
		{"jinja2", "keep"}, {"Werkzeug", "update"}, {"Flask", "update"},
		{"Jinja2", "processed"}, {"werkzeug", "processed"},
	}
	if diff := cmp.Diff(want, outcomes(run.Records)); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}
	if got := run.Declared[2].NewVersion(); got != "3.0.1" {
		t.Errorf("werkzeug NewVersion() = %q, want 3.0.1", got)
	}
}

func TestResolveDeterministic(t *testing.T) {
	build := func() *stubRegistry {
		reg := newStub(
			pkg("a", "2", "c", "d", "e"), pkg("b", "2", "e", "f"),
			pkg("c", "1", "g"), pkg("d", "1", "g", "h"), pkg("e", "1"),
			pkg("f", "1", "a"), pkg("g", "1"), pkg("h", "1", "c"),
		)
		reg.jitter = true
		return reg
	}
	in := Input{Declared: declare("a", "1", "b", "1", "c", "1")}

	first := outcomes(resolveR(t, build(), in).Records)
	for i := 0; i < 5; i++ {
		again := outcomes(resolveR(t, build(), in).Records)
		if diff := cmp.Diff(first, again); diff != "" {
			t.Fatalf("run %d differs (-first +again):\n%s", i, diff)
		}
	}
}

func TestResolveIdempotent(t *testing.T) {
	reg := newStub(pkg("foo", "1.2.0", "dep"), pkg("dep", "0.3"))
	run := resolveR(t, reg, Input{Declared: declare("foo", "1.0.0")})

	// Feed the decided versions back in as the new recipe.
	var next []Declaration
	for _, n := range run.Adds() {
		next = append(next, Declaration{Name: n.Name, Version: n.ResolvedVersion})
	}
	for _, d := range run.Declared {
		v := d.Version
		if nv := d.NewVersion(); nv != "" {
			v = nv
		}
		next = append(next, Declaration{Name: d.Name, Version: v})
	}

	again := resolveR(t, reg, Input{Declared: next})
	s := again.Summary()
	if s.Updated != 0 || s.Added != 0 {
		t.Errorf("second run summary = %+v, want no updates or adds", s)
	}
}

type blockingRegistry struct{ started chan struct{} }

func (b *blockingRegistry) Name() string { return "blocking" }

func (b *blockingRegistry) Resolve(ctx context.Context, name, _ string) (*integrations.Package, error) {
	select {
	case b.started <- struct{}{}:
	default:
	}
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestResolveCancelled(t *testing.T) {
	reg := &blockingRegistry{started: make(chan struct{}, 1)}
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-reg.started
		cancel()
	}()

	run, err := New(reg, R, Options{Workers: 2}).Resolve(ctx, Input{Declared: declare("a", "1", "b", "1", "c", "1")})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Resolve() error = %v, want context.Canceled", err)
	}
	if run != nil {
		t.Error("cancelled run returned a partial result")
	}
}

func TestStatusLine(t *testing.T) {
	node := &Node{Name: "Rcpp", DeclaredVersion: "1.0.10", OriginalVersion: "1.0.10", ResolvedVersion: "1.0.11", Decision: Update}
	tests := []struct {
		rec  Record
		want string
	}{
		{Record{Name: "Rcpp", Decision: Update, Node: node}, "Rcpp : 1.0.10 -> 1.0.11 (update)"},
		{Record{Name: "numpy", Decision: Duplicate}, "numpy : (duplicate)"},
		{Record{Name: "Rcpp", Decision: Processed, Node: node}, "Rcpp : 1.0.11 (processed)"},
		{Record{Name: "cli", Decision: Add, Origin: Origin{Parent: "rlang"}, Node: &Node{ResolvedVersion: "3.6.1", Decision: Add}}, "cli : 3.6.1 (add, required by rlang)"},
	}
	for _, tt := range tests {
		if got := StatusLine(tt.rec); got != tt.want {
			t.Errorf("StatusLine() = %q, want %q", got, tt.want)
		}
	}
}

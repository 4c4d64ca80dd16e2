package backdoor

import (
	"context"
	"sort"
	"testing"

	"github.com/kr/pretty"
	"github.com/stretchr/testify/require"
)

func TestUnionVars(t *testing.T) {
	a := []Lit{NewLit(0, false), NewLit(2, true)}
	b := []Lit{NewLit(1, false), NewLit(2, false)}
	got := unionVars(a, b)
	require.Equal(t, []Var{0, 1, 2}, got)
}

func TestCartesianProductDedupesSharedVariables(t *testing.T) {
	old := [][]Lit{{NewLit(0, false), NewLit(1, false)}}
	news := [][]Lit{{NewLit(1, false), NewLit(2, false)}}
	got := cartesianProduct(old, news, 3)
	require.Len(t, got, 1)
	want := []Lit{NewLit(0, false), NewLit(1, false), NewLit(2, false)}
	sort.Slice(want, func(i, j int) bool { return want[i] < want[j] })
	require.Equal(t, want, got[0])
}

func TestCartesianProductDropsInconsistentPairs(t *testing.T) {
	old := [][]Lit{{NewLit(0, false), NewLit(1, false)}}
	news := [][]Lit{{NewLit(1, true), NewLit(2, false)}}
	got := cartesianProduct(old, news, 3)
	if len(got) != 0 {
		t.Fatalf("cartesianProduct kept %d inconsistent cubes, want 0", len(got))
	}
}

func TestCartesianProductDropsWrongLength(t *testing.T) {
	old := [][]Lit{{NewLit(0, false)}}
	news := [][]Lit{{NewLit(1, false)}}
	got := cartesianProduct(old, news, 3)
	if len(got) != 0 {
		t.Fatalf("cartesianProduct kept %d cubes with wrong variable count, want 0", len(got))
	}
}

func TestDriverInsertClauseIfNewDeduplicates(t *testing.T) {
	e := NewEngine()
	d := NewDriver(e, nil, DefaultDriverOptions())
	lemma := []Lit{NewLit(0, false), NewLit(1, true)}
	if !d.insertClauseIfNew(lemma) {
		t.Fatal("first insert should report new")
	}
	if d.insertClauseIfNew([]Lit{NewLit(1, true), NewLit(0, false)}) {
		t.Fatal("re-inserting the same clause (reordered) should report not-new")
	}
	if len(d.AllDerived) != 1 {
		t.Fatalf("AllDerived has %d entries, want 1", len(d.AllDerived))
	}
}

func TestDriverHardCubesMatchesTreePropagator(t *testing.T) {
	e := NewEngine()
	x1 := e.NewVar()
	x2 := e.NewVar()
	e.AddClause([]Lit{NewLit(x1, false), NewLit(x2, false)})
	e.AddClause([]Lit{NewLit(x1, true), NewLit(x2, false)})

	d := NewDriver(e, nil, DefaultDriverOptions())
	hard := d.hardCubes([]Var{x1, x2})
	if len(hard) != 2 {
		t.Fatalf("hardCubes returned %d cubes, want 2", len(hard))
	}
}

// TestDriverRunDecomposesToUnsat runs the full interleaving loop over a
// tiny unsatisfiable formula (all four binary clauses over x1 and x2) that
// the single variable x1 fully decomposes: once the searcher finds that
// zero-hard-cube backdoor the driver must report FoundStrong without
// timing out.
func TestDriverRunDecomposesToUnsat(t *testing.T) {
	e := NewEngine()
	x1 := e.NewVar()
	x2 := e.NewVar()
	e.AddClause([]Lit{NewLit(x1, false), NewLit(x2, false)})
	e.AddClause([]Lit{NewLit(x1, false), NewLit(x2, true)})
	e.AddClause([]Lit{NewLit(x1, true), NewLit(x2, false)})
	e.AddClause([]Lit{NewLit(x1, true), NewLit(x2, true)})

	opts := DefaultDriverOptions()
	opts.BackdoorSize = 1
	opts.NumIters = 5
	d := NewDriver(e, []Var{x1}, opts)

	searcher := NewBackdoorSearcher(e, []Var{x1}, DefaultSearcherOptions())
	result := d.Run(context.Background(), searcher)
	if !result.FoundStrong {
		t.Logf("DriverResult:\n%# v", pretty.Formatter(result))
		t.Fatal("want FoundStrong")
	}
	if result.TimedOut {
		t.Fatal("should not time out on a trivial formula")
	}
}

package backdoor

import (
	"reflect"
	"sort"
	"testing"
)

func cubeLits(cube []Lit) []int {
	out := make([]int, len(cube))
	for i, l := range cube {
		out[i] = l.ToExternal()
	}
	return out
}

func sortCubes(cubes [][]int) {
	sort.Slice(cubes, func(i, j int) bool {
		for k := range cubes[i] {
			if cubes[i][k] != cubes[j][k] {
				return cubes[i][k] < cubes[j][k]
			}
		}
		return false
	})
}

// TestPropcheckAllTreePigeonhole3 is scenario 1 of §8: 3 pigeons into 2
// holes (6 vars, 9 clauses) is unsatisfiable, so no assignment of all 6
// variables survives unit propagation.
func TestPropcheckAllTreePigeonhole3(t *testing.T) {
	e := NewEngine()
	x := func(pigeon, hole int) Var { return Var(pigeon*2 + hole) }

	for p := 0; p < 3; p++ {
		e.AddClause([]Lit{NewLit(x(p, 0), false), NewLit(x(p, 1), false)})
	}
	for h := 0; h < 2; h++ {
		for p1 := 0; p1 < 3; p1++ {
			for p2 := p1 + 1; p2 < 3; p2++ {
				e.AddClause([]Lit{NewLit(x(p1, h), true), NewLit(x(p2, h), true)})
			}
		}
	}

	if got := e.Solve(); got != Unsat {
		t.Fatalf("Solve() = %v, want Unsat", got)
	}

	vars := make([]Var, 6)
	for i := range vars {
		vars[i] = Var(i)
	}
	count := PropcheckAllTree(e, vars, 0, func([]Lit) {
		t.Errorf("unexpected cube emitted for an unsatisfiable formula")
	})
	if count != 0 {
		t.Fatalf("PropcheckAllTree emitted %d cubes, want 0", count)
	}
	if e.internalLevel() != 0 {
		t.Fatalf("engine left at level %d, want 0", e.internalLevel())
	}
}

// TestPropcheckAllTreeIndependentVars is scenario 2 of §8: 4 variables
// with no constraint between them (beyond a tautology forcing
// allocation) enumerate all 16 assignments.
func TestPropcheckAllTreeIndependentVars(t *testing.T) {
	e := NewEngine()
	vars := make([]Var, 4)
	for i := range vars {
		v := e.NewVar()
		vars[i] = v
		e.AddClause([]Lit{NewLit(v, false), NewLit(v, true)})
	}

	seen := make(map[uint64]bool)
	count := PropcheckAllTree(e, vars, 0, func(cube []Lit) {
		if len(cube) != 4 {
			t.Fatalf("emitted cube has length %d, want 4", len(cube))
		}
		seen[clauseKey(cube)] = true
	})
	if count != 16 {
		t.Fatalf("PropcheckAllTree emitted %d cubes, want 16", count)
	}
	if len(seen) != 16 {
		t.Fatalf("emitted %d distinct cubes, want 16 (duplicates present)", len(seen))
	}
}

// TestPropcheckAllTreeTwoClause is scenario 3 of §8: (x1 v x2) & (-x1 v
// x2) over {x1, x2} forces x2 true in both surviving branches, so only
// {x1=0,x2=1} and {x1=1,x2=1} survive.
func TestPropcheckAllTreeTwoClause(t *testing.T) {
	e := NewEngine()
	x1 := e.NewVar()
	x2 := e.NewVar()
	e.AddClause([]Lit{NewLit(x1, false), NewLit(x2, false)})
	e.AddClause([]Lit{NewLit(x1, true), NewLit(x2, false)})

	var got [][]int
	count := PropcheckAllTree(e, []Var{x1, x2}, 0, func(cube []Lit) {
		got = append(got, cubeLits(cube))
	})
	if count != 2 {
		t.Fatalf("PropcheckAllTree emitted %d cubes, want 2", count)
	}
	want := [][]int{{-1, 2}, {1, 2}}
	sortCubes(got)
	sortCubes(want)
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("emitted cubes = %v, want %v", got, want)
	}
}

// TestPropcheckAllTreeRespectsLimit checks that a positive limit stops
// enumeration early while still returning the count of cubes emitted so
// far, and that the engine is left at level 0 regardless.
func TestPropcheckAllTreeRespectsLimit(t *testing.T) {
	e := NewEngine()
	vars := make([]Var, 3)
	for i := range vars {
		v := e.NewVar()
		vars[i] = v
		e.AddClause([]Lit{NewLit(v, false), NewLit(v, true)})
	}

	count := PropcheckAllTree(e, vars, 2, func([]Lit) {})
	if count != 2 {
		t.Fatalf("PropcheckAllTree with limit=2 emitted %d cubes, want 2", count)
	}
	if e.internalLevel() != 0 {
		t.Fatalf("engine left at level %d after limited enumeration, want 0", e.internalLevel())
	}
}

// TestPropcheckAllTreeUnitClauseForcesSingleCube exercises the case where
// a variable's value is already determined by a unit clause before tree
// enumeration begins: only the forced value should be emitted.
func TestPropcheckAllTreeUnitClauseForcesSingleCube(t *testing.T) {
	e := NewEngine()
	x1 := e.NewVar()
	e.AddClause([]Lit{NewLit(x1, false)})
	if !e.internalPropagate() {
		t.Fatal("propagate failed on a trivially satisfiable unit clause")
	}

	var got [][]int
	count := PropcheckAllTree(e, []Var{x1}, 0, func(cube []Lit) {
		got = append(got, cubeLits(cube))
	})
	if count != 1 {
		t.Fatalf("PropcheckAllTree emitted %d cubes, want 1", count)
	}
	if !reflect.DeepEqual(got, [][]int{{1}}) {
		t.Fatalf("emitted cube = %v, want [[1]]", got)
	}
}

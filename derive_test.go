package backdoor

import (
	"reflect"
	"sort"
	"testing"
)

func clauseExternal(c []Lit) []int {
	out := make([]int, len(c))
	for i, l := range c {
		out[i] = l.ToExternal()
	}
	return out
}

func sortClausesExternal(cs [][]int) {
	sort.Slice(cs, func(i, j int) bool {
		if len(cs[i]) != len(cs[j]) {
			return len(cs[i]) < len(cs[j])
		}
		for k := range cs[i] {
			if cs[i][k] != cs[j][k] {
				return cs[i][k] < cs[j][k]
			}
		}
		return false
	})
}

// TestDeriveClausesBinary is scenario 4 of §8: cubes (+x1,+x2), (+x1,-x2),
// (-x1,+x2) over the same variable order leave the (-x1,-x2) sign pattern
// unrealized, so the binary clause (x1 v x2) must be derived.
func TestDeriveClausesBinary(t *testing.T) {
	x1, x2 := Var(0), Var(1)
	cubes := [][]Lit{
		{NewLit(x1, false), NewLit(x2, false)},
		{NewLit(x1, false), NewLit(x2, true)},
		{NewLit(x1, true), NewLit(x2, false)},
	}
	derived := DeriveClauses(cubes, false)

	var got [][]int
	for _, c := range derived {
		got = append(got, clauseExternal(c))
	}
	sortClausesExternal(got)
	want := [][]int{{1, 2}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("DeriveClauses = %v, want %v", got, want)
	}
}

// TestDeriveClausesUnits checks that a variable never appearing with one
// sign across the cube set derives the corresponding unit clause.
func TestDeriveClausesUnits(t *testing.T) {
	x1, x2 := Var(0), Var(1)
	cubes := [][]Lit{
		{NewLit(x1, false), NewLit(x2, false)},
		{NewLit(x1, false), NewLit(x2, true)},
	}
	derived := DeriveClauses(cubes, false)

	var got [][]int
	for _, c := range derived {
		got = append(got, clauseExternal(c))
	}
	sortClausesExternal(got)
	want := [][]int{{1}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("DeriveClauses = %v, want %v", got, want)
	}
}

// TestDeriveClausesIdempotent is the §8 "Idempotence" property: running
// the deriver twice on the same input yields the same output.
func TestDeriveClausesIdempotent(t *testing.T) {
	x1, x2, x3 := Var(0), Var(1), Var(2)
	cubes := [][]Lit{
		{NewLit(x1, false), NewLit(x2, false), NewLit(x3, false)},
		{NewLit(x1, false), NewLit(x2, true), NewLit(x3, false)},
		{NewLit(x1, true), NewLit(x2, false), NewLit(x3, true)},
	}
	first := DeriveClauses(cubes, true)
	second := DeriveClauses(cubes, true)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("DeriveClauses is not idempotent: %v != %v", first, second)
	}
}

// TestDeriveClausesSoundness is the §8 "Derivation soundness" property:
// no cube in the input falsifies a derived clause (every derived clause
// is satisfied by every input cube, since the cube's literals match the
// clause's variables exactly and at least one must differ in sign from
// the all-false sign pattern that has zero count).
func TestDeriveClausesSoundness(t *testing.T) {
	x1, x2, x3 := Var(0), Var(1), Var(2)
	cubes := [][]Lit{
		{NewLit(x1, false), NewLit(x2, false), NewLit(x3, true)},
		{NewLit(x1, true), NewLit(x2, false), NewLit(x3, true)},
		{NewLit(x1, true), NewLit(x2, true), NewLit(x3, true)},
	}
	derived := DeriveClauses(cubes, true)
	for _, clause := range derived {
		for _, cube := range cubes {
			if cubeFalsifies(cube, clause) {
				t.Fatalf("cube %v falsifies derived clause %v", clauseExternal(cube), clauseExternal(clause))
			}
		}
	}
}

func cubeFalsifies(cube []Lit, clause []Lit) bool {
	cubeVal := make(map[Var]bool, len(cube))
	for _, l := range cube {
		cubeVal[l.Var()] = !l.Negated()
	}
	for _, l := range clause {
		if cubeVal[l.Var()] == !l.Negated() {
			return false
		}
	}
	return true
}

func TestDeriveClausesEmpty(t *testing.T) {
	if got := DeriveClauses(nil, false); got != nil {
		t.Fatalf("DeriveClauses(nil, false) = %v, want nil", got)
	}
}

func TestDeriveClausesPanicsOnMismatchedLength(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on mismatched cube lengths")
		}
	}()
	x1, x2 := Var(0), Var(1)
	DeriveClauses([][]Lit{
		{NewLit(x1, false)},
		{NewLit(x1, false), NewLit(x2, false)},
	}, false)
}

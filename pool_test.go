package backdoor

import "testing"

func TestPropcheckNumPropagated(t *testing.T) {
	e := NewEngine()
	x1 := e.NewVar()
	x2 := e.NewVar()
	e.AddClause([]Lit{NewLit(x1, true), NewLit(x2, false)}) // x1 -> x2

	ok, n := e.PropcheckNumPropagated(NewLit(x1, false))
	if !ok {
		t.Fatal("PropcheckNumPropagated(x1) reported conflict, want consistent")
	}
	if n != 1 {
		t.Fatalf("PropcheckNumPropagated(x1) forced %d further literals, want 1 (x2)", n)
	}
	if e.internalLevel() != 0 {
		t.Fatalf("engine left at level %d, want 0", e.internalLevel())
	}
}

func TestPropcheckNumPropagatedConflict(t *testing.T) {
	e := NewEngine()
	x1 := e.NewVar()
	e.AddClause([]Lit{NewLit(x1, false)})

	ok, n := e.PropcheckNumPropagated(NewLit(x1, true))
	if ok {
		t.Fatalf("PropcheckNumPropagated(-x1) reported consistent (n=%d), want conflict given unit clause (x1)", n)
	}
}

func TestBuildPoolFiltersInactiveAndBanned(t *testing.T) {
	e := NewEngine()
	vars := make([]Var, 5)
	for i := range vars {
		vars[i] = e.NewVar()
	}
	banned := map[Var]bool{vars[1]: true}

	pool := BuildPool(e, vars, banned, 0)
	if len(pool) != 4 {
		t.Fatalf("BuildPool pool size = %d, want 4", len(pool))
	}
	for _, v := range pool {
		if v == vars[1] {
			t.Fatalf("BuildPool kept banned variable %v", v)
		}
	}
}

func TestBuildPoolRespectsLimit(t *testing.T) {
	e := NewEngine()
	vars := make([]Var, 6)
	for i := range vars {
		vars[i] = e.NewVar()
	}
	pool := BuildPool(e, vars, nil, 3)
	if len(pool) != 3 {
		t.Fatalf("BuildPool with limit=3 returned %d variables, want 3", len(pool))
	}
}

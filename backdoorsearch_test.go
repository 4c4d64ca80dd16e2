package backdoor

import "testing"

func TestFitnessLess(t *testing.T) {
	better := Fitness{Value: 0.1, Rho: 0.9, NumHard: 2}
	worse := Fitness{Value: 0.5, Rho: 0.5, NumHard: 8}
	if !better.Less(worse) {
		t.Fatal("lower Value should be Less")
	}
	if worse.Less(better) {
		t.Fatal("higher Value should not be Less")
	}
	if !better.LessEqual(better) {
		t.Fatal("a fitness must be LessEqual itself")
	}
}

func TestFitnessCacheKeyOrderIndependent(t *testing.T) {
	a := fitnessCacheKey([]Var{3, 1, 2})
	b := fitnessCacheKey([]Var{1, 2, 3})
	if a != b {
		t.Fatalf("fitnessCacheKey should be order-independent: %d != %d", a, b)
	}
}

// TestBackdoorSearcherRunFindsStrongBackdoor exercises the full (1+1)-ES
// loop on a tiny unsatisfiable formula (all four binary clauses over x1
// and x2) where the single variable x1 already fully determines
// satisfiability via unit propagation: both polarities of x1 conflict, so
// a backdoor of size 1 has zero hard cubes.
func TestBackdoorSearcherRunFindsStrongBackdoor(t *testing.T) {
	e := NewEngine()
	x1 := e.NewVar()
	x2 := e.NewVar()
	e.AddClause([]Lit{NewLit(x1, false), NewLit(x2, false)})
	e.AddClause([]Lit{NewLit(x1, false), NewLit(x2, true)})
	e.AddClause([]Lit{NewLit(x1, true), NewLit(x2, false)})
	e.AddClause([]Lit{NewLit(x1, true), NewLit(x2, true)})

	opts := DefaultSearcherOptions()
	opts.Seed = 1
	s := NewBackdoorSearcher(e, []Var{x1}, opts)

	result := s.Run(1, 5, 0, 0, 0, 0)
	if result.BestFitness.NumHard != 0 {
		t.Fatalf("BestFitness.NumHard = %d, want 0 for a strong backdoor", result.BestFitness.NumHard)
	}
	if len(result.BestVariables) != 1 || result.BestVariables[0] != x1 {
		t.Fatalf("BestVariables = %v, want [%v]", result.BestVariables, x1)
	}
}

// TestBackdoorSearcherRunFitnessMonotone is the §8 "Fitness monotone in
// best" property: across iterations, the recorded best fitness's Value
// never increases.
func TestBackdoorSearcherRunFitnessMonotone(t *testing.T) {
	e := NewEngine()
	vars := make([]Var, 4)
	for i := range vars {
		vars[i] = e.NewVar()
	}
	e.AddClause([]Lit{NewLit(vars[0], false), NewLit(vars[1], false)})
	e.AddClause([]Lit{NewLit(vars[1], true), NewLit(vars[2], false)})

	opts := DefaultSearcherOptions()
	opts.Seed = 7
	s := NewBackdoorSearcher(e, vars, opts)
	result := s.Run(2, 30, 5, 0, 0, 0)

	best := result.Records[0].Fitness.Value
	for _, rec := range result.Records[1:] {
		running := best
		if rec.Fitness.Value < running {
			running = rec.Fitness.Value
		}
		if running > best {
			t.Fatalf("running best increased: %v -> %v", best, running)
		}
		best = running
	}
	if result.BestFitness.Value > result.Records[0].Fitness.Value {
		t.Fatalf("final BestFitness.Value %v is worse than the initial fitness %v", result.BestFitness.Value, result.Records[0].Fitness.Value)
	}
}

package backdoor

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"sort"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/gosuri/uilive"
	"github.com/sirupsen/logrus"
)

// DriverOptions configures the interleaving driver (§4.G): repeated
// rounds of backdoor search, clause derivation, cube-product
// construction, trie-based filtering, and bounded CDCL solving.
type DriverOptions struct {
	BackdoorSize        int
	NumIters            int
	StagnationLimit     int
	NumConflictsPerCube int64
	DeriveTernary       bool
	MaxProduct          int
	BudgetFilter        int64
	FactorBudgetFilter  float64
	BudgetSolve         int64
	FactorBudgetSolve   float64
	UseSortedFiltering  bool
	TimeLimit           time.Duration
	Seed                int64

	// DerivedClausesWriter, if non-nil, receives one line per newly
	// derived clause (DIMACS clause syntax terminated by " 0"), mirroring
	// the original tool's derived_clauses.txt (§6 "External Interfaces").
	DerivedClausesWriter io.Writer

	// ShowProgress starts a live-updating terminal line reporting each
	// round's derivation/filtering status, out of scope for the pure
	// deriver (§1 boundary) but useful at the driver/CLI boundary for a
	// long-running interleaving loop.
	ShowProgress bool
}

// DefaultDriverOptions mirrors the original tool's CLI defaults.
func DefaultDriverOptions() DriverOptions {
	return DriverOptions{
		BackdoorSize:        10,
		NumIters:             2000,
		NumConflictsPerCube:  1000,
		MaxProduct:           10000,
		BudgetFilter:         100000,
		FactorBudgetFilter:   1.0,
		BudgetSolve:          10000,
		FactorBudgetSolve:    1.1,
		Seed:                 42,
	}
}

// Driver runs the interleaving search/derive/product/filter/solve loop
// over a single CDCL engine (§4.G).
type Driver struct {
	Engine      *Engine
	Pool        []Var
	Options     DriverOptions
	AllClauses  map[uint64]bool
	AllDerived  [][]Lit
	rng         *rand.Rand
	log         *logrus.Entry
	progress    *uilive.Writer
}

// NewDriver builds a driver over an already-loaded engine (original
// clauses must already be added) and a candidate variable pool.
func NewDriver(e *Engine, pool []Var, opts DriverOptions) *Driver {
	return &Driver{
		Engine:     e,
		Pool:       pool,
		Options:    opts,
		AllClauses: make(map[uint64]bool),
		rng:        rand.New(rand.NewSource(opts.Seed)),
		log:        logrus.WithField("component", "driver"),
	}
}

// RegisterClause marks an existing (original) clause as already present,
// so later derivation rounds don't re-add or re-report it.
func (d *Driver) RegisterClause(lits []Lit) {
	d.AllClauses[clauseKey(lits)] = true
}

// clauseKey hashes the sorted literal tuple with xxhash, matching the
// searcher's use of the same library for its fitness-cache key.
func clauseKey(lits []Lit) uint64 {
	sorted := append([]Lit(nil), lits...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	b := make([]byte, 0, 4*len(sorted))
	for _, l := range sorted {
		b = append(b, []byte(fmt.Sprintf("%d,", l))...)
	}
	return xxhash.Sum64(b)
}

// insertClauseIfNew adds lemma to the engine (and to AllDerived)
// if it has not been seen before, writing it to DerivedClausesWriter and
// returning whether it was new.
func (d *Driver) insertClauseIfNew(lemma []Lit) bool {
	sorted := append([]Lit(nil), lemma...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	key := clauseKey(sorted)
	if d.AllClauses[key] {
		return false
	}
	d.AllClauses[key] = true
	d.AllDerived = append(d.AllDerived, sorted)
	if d.Options.DerivedClausesWriter != nil {
		for _, l := range sorted {
			fmt.Fprintf(d.Options.DerivedClausesWriter, "%d ", l.ToExternal())
		}
		fmt.Fprintln(d.Options.DerivedClausesWriter, "0")
	}
	d.Engine.AddClause(sorted)
	return true
}

// DriverResult summarizes one full interleaving run (§4.G).
type DriverResult struct {
	Rounds        int
	DerivedTotal  int
	FoundStrong   bool
	StrongBackdoor []Var
	// TimedOut is set when Run exits because Options.TimeLimit elapsed
	// before the formula was fully decomposed (§5 "Timeouts", C.5): the
	// caller should report Unknown rather than Unsat.
	TimedOut bool
	// ProductSize is the cube product's size at the moment Run returned,
	// reported for the CLI's metrics table.
	ProductSize int
	// Verdict is the outcome once Run has something conclusive to report:
	// Unsat on a full decomposition (FoundStrong or an empty hard-cube
	// set) or on step 9's bounded solve proving the current clause set
	// unsatisfiable, Sat when that bounded solve finds a model (callers
	// should dump it via WriteModel before the engine state changes
	// further), and Interrupted (the zero value) when Run returned
	// without a verdict (TimedOut is then set).
	Verdict Result
}

// Run executes the interleaving loop until either the formula is fully
// decided (no hard cubes remain after a round), a round's bounded solve
// returns Sat or Unsat (reported in Verdict), the configured time limit
// elapses, or ctx is cancelled (§C.5 "only-preprocess / time-limit early
// exit"): the last two exits are reported as TimedOut so the caller treats them
// the same way (Unknown verdict, keep whatever was derived so far).
func (d *Driver) Run(ctx context.Context, searcher *BackdoorSearcher) DriverResult {
	start := time.Now()
	cubesProduct := [][]Lit{{}}
	budgetFilter := d.Options.BudgetFilter
	budgetSolve := d.Options.BudgetSolve

	if d.Options.ShowProgress {
		d.progress = uilive.New()
		d.progress.Start()
		defer d.progress.Stop()
	}

	round := 0
	for {
		round++
		d.log.Infof("round %d", round)
		if d.progress != nil {
			fmt.Fprintf(d.progress, "round %d: product size %d\n", round, len(cubesProduct))
		}

		if d.Options.TimeLimit > 0 && time.Since(start) > d.Options.TimeLimit {
			d.log.Infof("time limit (%s) reached", d.Options.TimeLimit)
			return DriverResult{Rounds: round - 1, DerivedTotal: len(d.AllDerived), TimedOut: true, ProductSize: len(cubesProduct)}
		}
		select {
		case <-ctx.Done():
			d.log.Info("context cancelled")
			return DriverResult{Rounds: round - 1, DerivedTotal: len(d.AllDerived), TimedOut: true, ProductSize: len(cubesProduct)}
		default:
		}

		result := searcher.Run(
			d.Options.BackdoorSize,
			d.Options.NumIters,
			d.Options.StagnationLimit,
			float64((uint64(1)<<uint(d.Options.BackdoorSize))-1)/float64(uint64(1)<<uint(d.Options.BackdoorSize)),
			0,
			0,
		)
		if result.BestFitness.NumHard == 0 {
			d.log.Warn("found a strong backdoor")
			return DriverResult{Rounds: round, DerivedTotal: len(d.AllDerived), FoundStrong: true, StrongBackdoor: result.BestVariables, ProductSize: len(cubesProduct), Verdict: Unsat}
		}

		hard := d.hardCubes(result.BestVariables)
		d.log.Debugf("backdoor %v has %d hard cubes", result.BestVariables, len(hard))

		if len(hard) == 0 {
			d.log.Infof("no more cubes to solve after %d rounds", round)
			return DriverResult{Rounds: round, DerivedTotal: len(d.AllDerived), ProductSize: len(cubesProduct), Verdict: Unsat}
		}

		if len(hard) == 1 {
			d.log.Infof("adding %d units to the engine", len(hard[0]))
			for _, l := range hard[0] {
				d.insertClauseIfNew([]Lit{l})
			}
			continue
		}

		d.deriveAndInsert(hard, "backdoor cubes")

		variables := unionVars(cubesProduct[0], hard[0])
		cubesProduct = cartesianProduct(cubesProduct, hard, len(variables))
		d.log.Infof("product now has %d cubes over %d variables", len(cubesProduct), len(variables))

		trie := BuildTrie(variables, cubesProduct)
		filtered := PropcheckAllTrie(d.Engine, variables, trie)
		d.log.Infof("filtered %d -> %d cubes via trie", trie.NumLeaves(), len(filtered))
		cubesProduct = filtered

		d.deriveAndInsert(cubesProduct, "trie-filtered cubes")

		if len(cubesProduct) > d.Options.MaxProduct {
			d.log.Infof("too many cubes in the product (%d > %d), restarting", len(cubesProduct), d.Options.MaxProduct)
			cubesProduct = [][]Lit{{}}
			budgetFilter = int64(float64(budgetFilter) * d.Options.FactorBudgetFilter)
			continue
		}

		if d.Options.UseSortedFiltering {
			cubesProduct = d.sortedFilter(cubesProduct, variables, budgetFilter)
		} else {
			cubesProduct = d.shuffledFilter(cubesProduct, budgetFilter)
		}

		d.deriveAndInsert(cubesProduct, "solver-filtered survivors")

		budgetFilter = int64(float64(budgetFilter) * d.Options.FactorBudgetFilter)

		d.Engine.ResetAssumptions()
		d.Engine.Limit("conflicts", budgetSolve)
		switch d.Engine.Solve() {
		case Sat:
			d.log.Info("bounded solve found a satisfying assignment")
			if d.progress != nil {
				fmt.Fprintln(d.progress, "bounded solve: SAT")
			}
			return DriverResult{Rounds: round, DerivedTotal: len(d.AllDerived), ProductSize: len(cubesProduct), Verdict: Sat}
		case Unsat:
			d.log.Info("bounded solve proved the formula unsatisfiable")
			return DriverResult{Rounds: round, DerivedTotal: len(d.AllDerived), ProductSize: len(cubesProduct), Verdict: Unsat}
		case Interrupted:
			budgetSolve = int64(float64(budgetSolve) * d.Options.FactorBudgetSolve)
		}
	}
}

// hardCubes collects the backdoor's hard tasks: the assignments over
// backdoor not refuted by unit propagation alone (§4.G "get_hard_tasks"),
// via the same tree propagator the searcher uses to score fitness, so the
// returned count always matches result.BestFitness.NumHard.
func (d *Driver) hardCubes(backdoor []Var) [][]Lit {
	var hard [][]Lit
	PropcheckAllTree(d.Engine, backdoor, 0, func(cube []Lit) {
		c := make([]Lit, len(cube))
		copy(c, cube)
		hard = append(hard, c)
	})
	return hard
}

func (d *Driver) deriveAndInsert(cubes [][]Lit, label string) {
	d.log.Infof("deriving clauses for %d %s...", len(cubes), label)
	if d.progress != nil {
		fmt.Fprintf(d.progress, "deriving clauses for %d %s...\n", len(cubes), label)
	}
	derived := DeriveClauses(cubes, d.Options.DeriveTernary)
	newCount := 0
	for _, lemma := range derived {
		if d.insertClauseIfNew(lemma) {
			newCount++
		}
	}
	d.log.Infof("derived %d new clauses out of %d candidates", newCount, len(derived))
	if d.progress != nil {
		fmt.Fprintf(d.progress, "derived %d new clauses out of %d candidates (%s)\n", newCount, len(derived), label)
	}
}

func unionVars(a, b []Lit) []Var {
	seen := make(map[Var]bool)
	var out []Var
	for _, l := range a {
		if !seen[l.Var()] {
			seen[l.Var()] = true
			out = append(out, l.Var())
		}
	}
	for _, l := range b {
		if !seen[l.Var()] {
			seen[l.Var()] = true
			out = append(out, l.Var())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// cartesianProduct concatenates each cube of old with each cube of new,
// deduplicating by variable (a literal present in both cubes is kept
// once) and discarding any concatenation where the two cubes disagree on
// a shared variable's sign, matching concat_cubes plus the interleaving
// loop's consistency check. The surviving cube's variable set must equal
// wantLen (the union of old's and new's variables) or it is dropped as
// malformed.
func cartesianProduct(old, new [][]Lit, wantLen int) [][]Lit {
	out := make([][]Lit, 0, len(old)*len(new))
	for _, o := range old {
		for _, n := range new {
			seen := make(map[Var]Lit, len(o)+len(n))
			consistent := true
			merge := func(lits []Lit) {
				for _, l := range lits {
					if prev, ok := seen[l.Var()]; ok {
						if prev != l {
							consistent = false
						}
						continue
					}
					seen[l.Var()] = l
				}
			}
			merge(o)
			merge(n)
			if !consistent || len(seen) != wantLen {
				continue
			}
			cube := make([]Lit, 0, len(seen))
			for _, l := range seen {
				cube = append(cube, l)
			}
			sort.Slice(cube, func(i, j int) bool { return cube[i] < cube[j] })
			out = append(out, cube)
		}
	}
	return out
}

// shuffledFilter solves each cube (in random order) under a small
// per-cube conflict budget, dropping cubes proven UNSAT and deriving a
// lemma from the failed-assumption core when one is short enough to be
// worth keeping (§4.G "novel sorted filtering" fallback path).
func (d *Driver) shuffledFilter(cubes [][]Lit, conflictBudget int64) [][]Lit {
	order := d.rng.Perm(len(cubes))
	budgetStart := d.Engine.Conflicts()
	inBudget := true
	var kept [][]Lit
	for _, idx := range order {
		cube := cubes[idx]
		if inBudget && d.Engine.Conflicts()-budgetStart > conflictBudget {
			inBudget = false
		}
		if !inBudget {
			kept = append(kept, cube)
			continue
		}
		for _, l := range cube {
			d.Engine.Assume(l)
		}
		d.Engine.Limit("conflicts", d.Options.NumConflictsPerCube)
		switch d.Engine.Solve() {
		case Interrupted:
			kept = append(kept, cube)
		case Unsat:
			var lemma []Lit
			for _, l := range cube {
				if d.Engine.Failed(l) {
					lemma = append(lemma, l.Neg())
				}
			}
			if len(lemma) <= 5 {
				d.insertClauseIfNew(lemma)
			}
		case Sat:
			panic("backdoor: unexpected SAT while filtering cubes")
		}
	}
	return kept
}

// sortedFilter is the degree-based cube scoring alternative (§4.G "use
// sorted filtering"): cubes sharing a pairwise sign combination that no
// other surviving cube has any more get a strong priority boost, since
// refuting them is likely to expose a derivable binary clause.
func (d *Driver) sortedFilter(cubes [][]Lit, variables []Var, conflictBudget int64) [][]Lit {
	n := len(variables)
	type pairKey struct{ a, b Lit }
	degree := make(map[pairKey]int64)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			for _, cube := range cubes {
				degree[pairKey{cube[i], cube[j]}]++
			}
		}
	}

	score := func(cube []Lit) float64 {
		var s float64
		for i := 0; i < len(cube); i++ {
			for j := i + 1; j < len(cube); j++ {
				if deg := degree[pairKey{cube[i], cube[j]}]; deg != 0 {
					s += 1.0 / float64(deg)
					if deg == 1 {
						s += 50.0
					}
				}
			}
		}
		return s
	}

	remaining := append([][]Lit(nil), cubes...)
	var indet [][]Lit
	budgetStart := d.Engine.Conflicts()

	for len(remaining) > 0 {
		if d.Engine.Conflicts()-budgetStart > conflictBudget {
			d.log.Info("budget exhausted")
			break
		}

		bestIdx, bestScore := 0, -1.0
		for i, cube := range remaining {
			s := score(cube)
			if s > bestScore {
				bestScore = s
				bestIdx = i
			}
		}
		best := remaining[bestIdx]
		remaining[bestIdx] = remaining[len(remaining)-1]
		remaining = remaining[:len(remaining)-1]

		if bestScore <= 0 {
			indet = append(indet, best)
			break
		}

		for _, l := range best {
			d.Engine.Assume(l)
		}
		d.Engine.Limit("conflicts", d.Options.NumConflictsPerCube)
		switch d.Engine.Solve() {
		case Unsat:
			var lemma []Lit
			for _, l := range best {
				if d.Engine.Failed(l) {
					lemma = append(lemma, l.Neg())
				}
			}
			if len(lemma) <= 5 {
				d.insertClauseIfNew(lemma)
			}

			for i := 0; i < len(best); i++ {
				for j := i + 1; j < len(best); j++ {
					k := pairKey{best[i], best[j]}
					if degree[k] == 0 {
						continue
					}
					degree[k]--
					if degree[k] == 0 {
						// No surviving cube realizes this sign combination
						// any more: the pair is refuted outright.
						d.insertClauseIfNew([]Lit{best[i].Neg(), best[j].Neg()})
					}
				}
			}
		case Interrupted:
			for i := 0; i < len(best); i++ {
				for j := i + 1; j < len(best); j++ {
					degree[pairKey{best[i], best[j]}] = 0
				}
			}
			indet = append(indet, best)
		case Sat:
			panic("backdoor: unexpected SAT while sorted-filtering cubes")
		}
	}

	return append(remaining, indet...)
}

package backdoor

import "sort"

// learnGuard tracks the growing threshold that triggers learnt-clause
// database reduction (§4.C.5). The exact growth policy is left
// implementation-defined by §9 ("any monotone schedule that bounds learnt
// clauses is acceptable"); this one starts at a fraction of the original
// clause count and grows by a fixed increment every time reduction fires,
// the same shape minisat-style solvers use.
type learnGuard struct {
	threshold int
	increment int
}

func newLearnGuard() learnGuard {
	return learnGuard{threshold: 1000, increment: 500}
}

func (g *learnGuard) reset(numClauses int) {
	g.threshold = numClauses/3 + 1000
	if g.threshold < 1000 {
		g.threshold = 1000
	}
	g.increment = 500
}

func (g *learnGuard) shouldReduce(numLearnts int) bool {
	return numLearnts > g.threshold
}

func (g *learnGuard) onReduced() {
	g.threshold += g.increment
}

// ResetLearnGuard reinitializes the reduceDB threshold from the current
// clause count; NewBackdoorSearcher calls this once when a search episode
// is set up, mirroring the Rust Algorithm::new's
// "solver.learning_guard.reset(solver.num_clauses())".
func (e *Engine) ResetLearnGuard() {
	e.learnGuard.reset(e.origClauses)
}

// reduceLearntsIfNeeded sorts learnt clauses by ascending activity and
// marks the lower half deleted, except clauses that are currently a reason
// on the trail and clauses of at most two literals, which are kept.
// Deleted clauses are detached from the watch lists; original clauses are
// never touched.
func (e *Engine) reduceLearntsIfNeeded() {
	if !e.learnGuard.shouldReduce(len(e.learnts)) {
		return
	}

	inUse := make(map[ClauseRef]bool)
	for _, l := range e.assign.trail {
		if r := e.assign.reason(l.Var()); r != noReason {
			inUse[r] = true
		}
	}

	sort.Slice(e.learnts, func(i, j int) bool {
		return e.clause(e.learnts[i]).activity < e.clause(e.learnts[j]).activity
	})

	half := len(e.learnts) / 2
	kept := e.learnts[:0]
	for i, cref := range e.learnts {
		c := e.clause(cref)
		if i < half && !inUse[cref] && c.Len() > 2 {
			c.deleted = true
			e.detach(cref)
			continue
		}
		kept = append(kept, cref)
	}
	e.learnts = kept
	e.learnGuard.onReduced()
}

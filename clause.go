package backdoor

// ClauseRef is an opaque handle into the clause arena. Using an index rather
// than a pointer (§9 "Cyclic references") sidesteps cycles between clauses
// and the assignments that reference them as reasons.
type ClauseRef uint32

// noReason marks a decision variable (one with no reason clause).
const noReason ClauseRef = ^ClauseRef(0)

// FixedStatus is the result of evaluating a clause purely against the
// decision-level-0 (root) assignment.
type FixedStatus int

const (
	FixedUndef FixedStatus = iota
	FixedSat
	FixedUnsat
)

// Clause is an ordered sequence of literals stored in the engine's central
// arena. Invariant (§3): a non-deleted clause of length >= 2 has its first
// two literals registered in the watch lists of those two literals.
type Clause struct {
	lits     []Lit
	learnt   bool
	deleted  bool
	activity float64
}

func newClause(lits []Lit, learnt bool) *Clause {
	// Copy defensively: callers may reuse the backing slice.
	owned := make([]Lit, len(lits))
	copy(owned, lits)
	return &Clause{lits: owned, learnt: learnt}
}

// Len returns the number of literals in the clause.
func (c *Clause) Len() int { return len(c.lits) }

// Lits returns the clause's literals. The returned slice must not be
// retained across a call that mutates the clause (the watch-swap code in
// propagate.go mutates lits[0] and lits[1] in place).
func (c *Clause) Lits() []Lit { return c.lits }

// Learnt reports whether this clause was derived by conflict analysis
// (true) as opposed to supplied by ingestion or the clause deriver (false
// for original-formula and derived-lemma clauses alike; only 1-UIP learnts
// are "learnt" in the CDCL-engine sense and are the only ones eligible for
// learnt-database reduction).
func (c *Clause) Learnt() bool { return c.learnt }

// containsFixed reports Sat if any literal is true at decision level 0,
// Unsat if every literal is false at decision level 0, else Undef. Used for
// clause-database hygiene; it never mutates the clause or assignment.
func (c *Clause) containsFixed(a *assignment) FixedStatus {
	allFalse := true
	for _, l := range c.lits {
		v := a.value(l)
		if v != LUndef && a.level(l.Var()) > 0 {
			v = LUndef
		}
		if v == LUndef {
			allFalse = false
			continue
		}
		if v == LTrue {
			return FixedSat
		}
	}
	if allFalse {
		return FixedUnsat
	}
	return FixedUndef
}

// isTautology reports whether lits contains both a literal and its negation.
func isTautology(lits []Lit) bool {
	seen := make(map[Lit]bool, len(lits))
	for _, l := range lits {
		if seen[l.Neg()] {
			return true
		}
		seen[l] = true
	}
	return false
}

// dedupLits removes duplicate literals in place, preserving order of first
// occurrence. Duplicate literals in an input clause are accepted, not an
// error (§4.C.5 failure semantics).
func dedupLits(lits []Lit) []Lit {
	seen := make(map[Lit]bool, len(lits))
	out := lits[:0]
	for _, l := range lits {
		if seen[l] {
			continue
		}
		seen[l] = true
		out = append(out, l)
	}
	return out
}

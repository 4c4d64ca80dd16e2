package backdoor

// clause returns the clause referenced by cref.
func (e *Engine) clause(cref ClauseRef) *Clause { return e.arena[cref] }

// attach registers a clause's first two literals in the watch lists, using
// the other watched literal as the blocker (§3 "Watch list").
func (e *Engine) attach(cref ClauseRef) {
	c := e.clause(cref)
	if c.Len() == 1 {
		return // unit clauses are never watched; they propagate immediately
	}
	e.watches.add(c.lits[0].Neg(), cref, c.lits[1])
	e.watches.add(c.lits[1].Neg(), cref, c.lits[0])
}

// detach removes a clause from the watch lists of its first two literals.
func (e *Engine) detach(cref ClauseRef) {
	c := e.clause(cref)
	if c.Len() == 1 {
		return
	}
	e.watches.remove(c.lits[0].Neg(), cref)
	e.watches.remove(c.lits[1].Neg(), cref)
}

// AddClause adds a clause to the database. Duplicate literals within the
// clause are silently deduplicated and tautological clauses (containing
// both l and not(l)) are silently dropped — the clause is simply not
// added and AddClause still returns true, since dropping a tautology does
// not change the formula's satisfiability (§4.C "Failure semantics").
//
// It returns false if the engine can already determine the formula is
// unsatisfiable as a result of adding this clause (e.g. it adds an empty
// or already-falsified-at-level-0 clause); once false is returned every
// future Solve call returns Unsat without search.
func (e *Engine) AddClause(lits []Lit) bool {
	return e.addClauseLearnt(lits, false)
}

func (e *Engine) addClauseLearnt(lits []Lit, learnt bool) bool {
	if !e.ok {
		return false
	}
	for _, l := range lits {
		e.ensureVar(l.Var())
	}
	lits = dedupLits(append([]Lit(nil), lits...))
	if isTautology(lits) {
		return true
	}

	// Drop literals already false at level 0; if one is already true at
	// level 0 the whole clause is satisfied and can be skipped entirely.
	if e.assign.decisionLevel() == 0 {
		filtered := lits[:0]
		for _, l := range lits {
			v := e.assign.value(l)
			if v == LTrue {
				return true
			}
			if v == LFalse {
				continue
			}
			filtered = append(filtered, l)
		}
		lits = filtered
	}

	switch len(lits) {
	case 0:
		e.ok = false
		return false
	case 1:
		if e.assign.value(lits[0]) == LFalse {
			e.ok = false
			return false
		}
		if e.assign.value(lits[0]) == LUndef {
			e.assign.enqueue(lits[0], noReason)
			e.order.remove(lits[0].Var())
		}
		if !learnt {
			e.origClauses++
		}
		if !e.propagateAfterAdd() {
			e.ok = false
			return false
		}
		return true
	}

	cref := ClauseRef(len(e.arena))
	c := newClause(lits, learnt)
	e.arena = append(e.arena, c)
	e.attach(cref)
	if learnt {
		e.learnts = append(e.learnts, cref)
		e.bumpClauseActivity(c)
	} else {
		e.origClauses++
	}
	return true
}

// propagateAfterAdd runs propagation after a unit clause is added outside
// of the main search loop (e.g. while ingesting the original formula).
func (e *Engine) propagateAfterAdd() bool {
	conflict := e.propagate()
	return conflict == noReason
}

// bumpClauseActivity increases c's activity and rescales the whole learnt
// database if the activity would overflow, mirroring the analogous
// variable-activity rescaling in bumpVarActivity.
func (e *Engine) bumpClauseActivity(c *Clause) {
	c.activity += e.clauseInc
	if c.activity > 1e100 {
		for _, cref := range e.learnts {
			e.clause(cref).activity *= 1e-100
		}
		e.clauseInc *= 1e-100
	}
}

func (e *Engine) decayClauseActivity() {
	e.clauseInc /= e.clauseDecay
}

package backdoor

// Solve runs the CDCL search loop (§4.C.3, §4.C.4). Queued assumptions are
// pushed as forced decisions first; if that derives a conflict, the
// responsible assumptions are marked failed (queryable via Failed) and
// Solve returns Unsat for this call without touching the rest of the
// formula's satisfiability. Assumptions are always consumed and cleared,
// whether or not Solve reaches a verdict.
func (e *Engine) Solve() Result {
	assumps := e.assumptions
	e.assumptions = nil
	for l := range e.assumeFailed {
		delete(e.assumeFailed, l)
	}

	if !e.ok {
		return Unsat
	}
	if e.assign.decisionLevel() != 0 {
		e.internalBacktrack(0)
	}

	if ok := e.pushAssumptions(assumps); !ok {
		e.internalBacktrack(0)
		return Unsat
	}

	for {
		budget := e.luby.next()
		res := e.search(e.conflicts+budget, assumps)
		if res == nil {
			e.restarts++
			continue
		}
		return *res
	}
}

// pushAssumptions enqueues every assumption literal as a forced decision
// and propagates after each. It returns false if propagation conflicts,
// having first populated assumeFailed via analyzeFinal.
func (e *Engine) pushAssumptions(assumps []Lit) bool {
	for _, l := range assumps {
		v := e.assign.value(l)
		if v == LTrue {
			continue
		}
		if v == LFalse {
			for _, core := range e.analyzeFinal(l) {
				e.assumeFailed[core] = true
			}
			e.assumeFailed[l] = true
			return false
		}
		e.internalAssumeDecision(l)
		e.decisions++
		if cref := e.propagate(); cref != noReason {
			for _, core := range e.analyzeFinalFromConflict(cref) {
				e.assumeFailed[core] = true
			}
			return false
		}
	}
	return true
}

// search runs the inner loop (§4.C.3) until a verdict is reached or the
// given absolute conflict count is exceeded, in which case it returns nil
// to signal the outer Solve loop to restart with a larger budget.
func (e *Engine) search(conflictBudget int64, assumps []Lit) *Result {
	for {
		cref := e.propagate()
		if cref != noReason {
			e.conflicts++
			if e.limitExceeded(LimitConflicts, e.conflicts) {
				e.internalBacktrack(0)
				r := Interrupted
				return &r
			}
			if e.assign.decisionLevel() == 0 {
				e.ok = false
				r := Unsat
				return &r
			}

			learnt, btLevel := e.analyzeConflict(cref)
			e.internalBacktrack(btLevel)
			e.decayVarActivity()
			e.decayClauseActivity()
			e.assertLearnt(learnt)
			e.reduceLearntsIfNeeded()
			continue
		}

		// A backjump or restart may have undone some assumptions; put
		// them back before deciding on any other variable.
		if !e.pushAssumptions(assumps) {
			e.internalBacktrack(0)
			r := Unsat
			return &r
		}

		if e.order.Len() == 0 {
			r := Sat
			return &r
		}

		if e.conflicts >= conflictBudget {
			e.internalBacktrack(0)
			return nil
		}
		if e.limitExceeded(LimitDecisions, e.decisions) {
			e.internalBacktrack(0)
			r := Interrupted
			return &r
		}

		v, ok := e.order.popMax()
		if !ok {
			r := Sat
			return &r
		}
		if e.assign.valueVar(v) != LUndef {
			continue
		}
		// Default phase is false unless a prior assignment recorded a
		// different polarity preference for this variable.
		l := NewLit(v, !e.assign.vars[v].polarity)
		e.decisions++
		e.assign.newDecisionLevel()
		e.assign.enqueue(l, noReason)
	}
}

// assertLearnt adds the freshly derived lemma to the clause database and
// immediately enqueues its asserting literal (learnt[0]) at the
// just-backjumped-to level, exactly as 1-UIP analysis requires.
func (e *Engine) assertLearnt(learnt []Lit) {
	if len(learnt) == 1 {
		e.assign.enqueue(learnt[0], noReason)
		e.order.remove(learnt[0].Var())
		if e.assign.decisionLevel() == 0 {
			e.origClauses++ // unit learnt clauses behave like root facts
		}
		return
	}
	cref := ClauseRef(len(e.arena))
	c := newClause(learnt, true)
	e.arena = append(e.arena, c)
	e.attach(cref)
	e.learnts = append(e.learnts, cref)
	e.bumpClauseActivity(c)
	e.assign.enqueue(learnt[0], cref)
	e.order.remove(learnt[0].Var())
}

// analyzeFinal computes the assumption-core responsible for l already
// being false when it was about to be assumed: l's negation was already
// implied, so we walk the implication graph backward from trail entries
// reachable from not(l), collecting the decisions (which, during the
// assumption-push phase, are themselves assumption literals).
func (e *Engine) analyzeFinal(l Lit) []Lit {
	seen := make(map[Var]bool)
	seen[l.Var()] = true
	var out []Lit
	for i := len(e.assign.trail) - 1; i >= 0; i-- {
		t := e.assign.trail[i]
		v := t.Var()
		if !seen[v] {
			continue
		}
		if e.assign.isDecision(v) {
			out = append(out, t)
		} else {
			c := e.clause(e.assign.reason(v))
			for _, q := range c.lits[1:] {
				if e.assign.level(q.Var()) > 0 {
					seen[q.Var()] = true
				}
			}
		}
		seen[v] = false
	}
	return out
}

// analyzeFinalFromConflict is analyzeFinal seeded from a full conflicting
// clause (every current-level literal of the conflict is false, so all of
// them are starting points for the backward walk) rather than a single
// not-yet-assigned literal.
func (e *Engine) analyzeFinalFromConflict(cref ClauseRef) []Lit {
	seen := make(map[Var]bool)
	c := e.clause(cref)
	for _, q := range c.lits {
		if e.assign.level(q.Var()) > 0 {
			seen[q.Var()] = true
		}
	}
	var out []Lit
	for i := len(e.assign.trail) - 1; i >= 0; i-- {
		t := e.assign.trail[i]
		v := t.Var()
		if !seen[v] {
			continue
		}
		if e.assign.isDecision(v) {
			out = append(out, t)
		} else {
			c := e.clause(e.assign.reason(v))
			for _, q := range c.lits[1:] {
				if e.assign.level(q.Var()) > 0 {
					seen[q.Var()] = true
				}
			}
		}
		seen[v] = false
	}
	return out
}

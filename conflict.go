package backdoor

// analyzeConflict implements 1-UIP conflict analysis (§4.C.2). Starting
// from the conflicting clause, it repeatedly resolves the current learnt
// clause against the reason of the most recent current-level literal on
// the trail until exactly one current-level literal remains; that
// literal, negated, becomes the asserting literal at index 0. It returns
// the learnt clause and the backtrack level to jump to (0 if the clause
// is a unit).
func (e *Engine) analyzeConflict(confl ClauseRef) ([]Lit, int) {
	seen := make(map[Var]bool)
	var learnt []Lit
	learnt = append(learnt, 0) // placeholder for the asserting literal

	curLevel := e.assign.decisionLevel()
	pathCount := 0
	trailIdx := len(e.assign.trail) - 1
	var p Lit
	havP := false

	for {
		c := e.clause(confl)
		for _, q := range c.lits {
			if havP && q.Var() == p.Var() {
				continue
			}
			v := q.Var()
			if seen[v] {
				continue
			}
			if e.assign.level(v) == 0 {
				continue
			}
			seen[v] = true
			e.bumpVarActivity(v)
			if e.assign.level(v) >= curLevel {
				pathCount++
			} else {
				learnt = append(learnt, q)
			}
		}

		// Find the next seen literal on the trail, walking backward.
		for !seen[e.assign.trail[trailIdx].Var()] {
			trailIdx--
		}
		p = e.assign.trail[trailIdx]
		seen[p.Var()] = false
		pathCount--
		trailIdx--
		havP = true
		if pathCount <= 0 {
			break
		}
		confl = e.assign.reason(p.Var())
	}

	learnt[0] = p.Neg()

	learnt = e.minimizeLearnt(learnt, seen)

	// Backtrack level: max level among non-asserting literals, else 0.
	btLevel := 0
	if len(learnt) > 1 {
		maxI := 1
		for i := 2; i < len(learnt); i++ {
			if e.assign.level(learnt[i].Var()) > e.assign.level(learnt[maxI].Var()) {
				maxI = i
			}
		}
		learnt[1], learnt[maxI] = learnt[maxI], learnt[1]
		btLevel = e.assign.level(learnt[1].Var())
	}
	return learnt, btLevel
}

// minimizeLearnt applies basic local (self-subsuming) minimization: a
// literal (other than the asserting one) is dropped from the lemma if
// every other literal of its reason clause is already present in the
// lemma (tracked via `seen`, ignoring decision-level-0 literals).
func (e *Engine) minimizeLearnt(learnt []Lit, seen map[Var]bool) []Lit {
	// Re-mark all lemma literals as seen for the redundancy check.
	for _, l := range learnt {
		seen[l.Var()] = true
	}

	out := learnt[:1]
	for _, l := range learnt[1:] {
		if e.literalRedundant(l, seen) {
			continue
		}
		out = append(out, l)
	}
	return out
}

// literalRedundant reports whether l's reason clause is "covered" by the
// literals already marked seen, i.e. every other literal of the reason is
// either decision-level 0 or already in the lemma.
func (e *Engine) literalRedundant(l Lit, seen map[Var]bool) bool {
	reason := e.assign.reason(l.Var())
	if reason == noReason {
		return false
	}
	c := e.clause(reason)
	for _, q := range c.lits {
		if q == l.Neg() || q == l {
			continue
		}
		v := q.Var()
		if e.assign.level(v) == 0 {
			continue
		}
		if !seen[v] {
			return false
		}
	}
	return true
}

// bumpVarActivity increases v's VSIDS activity and rescales every
// variable's activity (and the increment) if it would otherwise overflow.
func (e *Engine) bumpVarActivity(v Var) {
	e.activity[v] += e.varInc
	if e.activity[v] > 1e100 {
		for i := range e.activity {
			e.activity[i] *= 1e-100
		}
		e.varInc *= 1e-100
	}
	e.order.update(v)
}

func (e *Engine) decayVarActivity() {
	e.varInc /= e.varDecay
}

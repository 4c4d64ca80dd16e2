package backdoor

// propagate performs unit propagation via two-watched literals with the
// blocker optimization (§4.C.1). It processes the trail from
// e.propQueueHead to its end, returning noReason if propagation reaches a
// fixpoint with no conflict, or the conflicting clause's ClauseRef
// otherwise. On conflict, propQueueHead is advanced to the trail end so
// that subsequent calls are no-ops until the caller backtracks.
func (e *Engine) propagate() ClauseRef {
	for e.propQueueHead < len(e.assign.trail) {
		l := e.assign.trail[e.propQueueHead]
		e.propQueueHead++
		e.propagations++

		falseLit := l.Neg()
		watchers := e.watches.at(l)

		keep := watchers[:0]
		conflict := noReason
		for i := 0; i < len(watchers); i++ {
			w := watchers[i]
			if e.assign.value(w.blocker) == LTrue {
				keep = append(keep, w)
				continue
			}
			c := e.clause(w.cref)

			// Normalize so that lits[1] is the watched (now false)
			// literal and lits[0] is the other watch.
			if c.lits[0] == falseLit {
				c.lits[0], c.lits[1] = c.lits[1], c.lits[0]
			}
			other := c.lits[0]
			otherVal := e.assign.value(other)
			if other != w.blocker && otherVal == LTrue {
				keep = append(keep, watcher{cref: w.cref, blocker: other})
				continue
			}

			// Search for a new literal to watch among lits[2:].
			replaced := false
			for j := 2; j < len(c.lits); j++ {
				cand := c.lits[j]
				if e.assign.value(cand) != LFalse {
					c.lits[1], c.lits[j] = c.lits[j], c.lits[1]
					e.watches.add(cand.Neg(), w.cref, other)
					replaced = true
					break
				}
			}
			if replaced {
				continue
			}

			// No replacement: clause is unit (other) or conflicting.
			keep = append(keep, w)
			if otherVal == LFalse {
				conflict = w.cref
				// Copy the remaining watchers verbatim; we stop
				// scanning this list but must leave it consistent.
				keep = append(keep, watchers[i+1:]...)
				break
			}
			e.assign.enqueue(other, w.cref)
			e.order.remove(other.Var())
		}
		e.watches.setAt(l, keep)

		if conflict != noReason {
			// Advance the queue head to the trail end so further
			// propagate() calls are no-ops until backtrack.
			e.propQueueHead = len(e.assign.trail)
			return conflict
		}
	}
	return noReason
}

// internalPropagate runs propagate() and reports whether it succeeded
// (true) or hit a conflict (false), recording the conflicting clause in
// e.conflictClause for conflict analysis to consume. This is the
// primitive the tree propagator (§4.D) calls directly.
func (e *Engine) internalPropagate() bool {
	cref := e.propagate()
	if cref == noReason {
		e.hasConflict = false
		return true
	}
	e.hasConflict = true
	e.conflictClause = cref
	return false
}

// internalBacktrack undoes the trail back to the given decision level,
// re-inserting unassigned variables into the variable order and resetting
// the propagation queue head. It is also used directly by the tree
// propagator.
func (e *Engine) internalBacktrack(level int) {
	e.assign.undoUntil(level, func(l Lit) {
		e.order.insert(l.Var())
	})
	e.propQueueHead = len(e.assign.trail)
	e.hasConflict = false
}

// internalAssumeDecision pushes a new decision level and enqueues lit as a
// decision (no reason clause), without propagating.
func (e *Engine) internalAssumeDecision(l Lit) {
	e.assign.newDecisionLevel()
	e.assign.enqueue(l, noReason)
	e.order.remove(l.Var())
}

// internalPushDummyLevel opens a new decision level with nothing enqueued
// on it. The tree propagator (§4.D) uses this to keep
// engine.internalLevel() tracking its recursion depth exactly when a
// branch's literal is already determined (by an earlier decision or by
// propagation) and there is nothing new to assume: backtracking past an
// empty level is a no-op for the trail, since its trailLim entry equals
// the trail length at the time it was opened.
func (e *Engine) internalPushDummyLevel() {
	e.assign.newDecisionLevel()
}

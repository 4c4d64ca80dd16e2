package backdoor

import (
	"sort"

	"github.com/gosuri/uilive"
	"github.com/sirupsen/logrus"
)

// PropcheckNumPropagated assumes lit as a forced decision at level 0,
// propagates, and reports whether the result was consistent and how many
// further literals got forced onto the trail as a side effect (not
// counting lit itself). If lit already has a value at level 0 nothing is
// assumed: a false lit reports a conflict, a true one zero propagations.
// The engine is left at level 0 afterward regardless of the outcome. It is
// the cheap propagation-counting primitive the pool heuristic (§4.F "pool
// limiting") builds on.
func (e *Engine) PropcheckNumPropagated(lit Lit) (ok bool, numPropagated int) {
	if e.internalLevel() != 0 {
		e.internalBacktrack(0)
	}
	switch e.internalVal(lit) {
	case LFalse:
		return false, 0
	case LTrue:
		return true, 0
	}
	before := len(e.assign.trail)
	e.internalAssumeDecision(lit)
	consistent := e.internalPropagate()
	after := len(e.assign.trail)
	e.internalBacktrack(0)
	if !consistent {
		return false, 0
	}
	return true, after - before - 1
}

// BuildPool assembles the candidate variable pool for the evolutionary
// backdoor search (§4.F): it starts from global, keeps only variables the
// engine still considers active (§4.C "Freeze/Melt"), drops any variable
// in banned, and, if limit is positive and the remaining pool is larger
// than limit, scores every surviving variable with
// h(v) = propagated(+v) * propagated(-v) and keeps only the top limit
// variables by that score (ties broken by keeping the variable that comes
// first in global, as a stable sort on descending score does).
//
// This mirrors BackdoorSearcher::run's pool-construction preamble: the
// heuristic rewards variables whose assumption forces a lot of further
// propagation in either polarity, since those are more likely to
// participate in a small hitting-set backdoor.
func BuildPool(e *Engine, global []Var, banned map[Var]bool, limit int) []Var {
	pool := make([]Var, 0, len(global))
	for _, v := range global {
		if !e.IsActive(v) {
			continue
		}
		if banned != nil && banned[v] {
			continue
		}
		pool = append(pool, v)
	}

	if limit <= 0 || len(pool) <= limit {
		return pool
	}

	log := logrus.WithField("component", "pool")
	log.Debugf("limiting the pool of %d variables to %d", len(pool), limit)

	progress := uilive.New()
	progress.Start()
	defer progress.Stop()

	type scored struct {
		v Var
		h int64
	}
	scores := make([]scored, len(pool))
	for i, v := range pool {
		_, posProp := e.PropcheckNumPropagated(NewLit(v, false))
		_, negProp := e.PropcheckNumPropagated(NewLit(v, true))
		scores[i] = scored{v: v, h: int64(posProp) * int64(negProp)}
		if i%64 == 0 || i == len(pool)-1 {
			progress.Write([]byte(""))
		}
	}

	sort.SliceStable(scores, func(i, j int) bool { return scores[i].h > scores[j].h })
	kept := scores[:limit]
	out := make([]Var, limit)
	for i, s := range kept {
		out[i] = s.v
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })

	log.Debugf("pool limited to %d variables", len(out))
	return out
}

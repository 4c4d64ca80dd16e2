// Package backdoor implements a SAT-backed backdoor discovery and
// incremental decomposition engine: an incremental CDCL solver, a trie-based
// bulk propagation filter, a tree propagation enumerator, a clause deriver,
// an evolutionary backdoor searcher, and the driver that interleaves them.
package backdoor

import (
	"fmt"
)

// Result is the outcome of a (possibly budget-limited) solver invocation.
type Result int

const (
	// Interrupted means the configured conflict/decision/preprocessing
	// budget was exhausted before a verdict was reached. It is a soft
	// failure (§7): never returned as an error, always as this sentinel.
	Interrupted Result = iota
	Sat
	Unsat
)

func (r Result) String() string {
	switch r {
	case Sat:
		return "SAT"
	case Unsat:
		return "UNSAT"
	default:
		return "INTERRUPTED"
	}
}

// limitKind names the three budget counters an Engine can be bounded by
// (§4.C "limit(name, n)").
type limitKind string

const (
	LimitConflicts      limitKind = "conflicts"
	LimitDecisions      limitKind = "decisions"
	LimitPreprocessing  limitKind = "preprocessing"
)

// Engine is the incremental CDCL SAT engine (§4.C). It owns the clause
// arena, watch lists, assignment, trail, and variable order; it is the
// single mutable aggregate of the package, as recommended by §9 ("expose
// only a mutable Engine in public APIs").
type Engine struct {
	assign  *assignment
	watches *watchLists
	arena   []*Clause

	origClauses int // count of non-learnt clauses; these are never deleted

	learnts []ClauseRef

	order    *varOrder
	activity []float64
	varInc   float64
	varDecay float64

	clauseInc   float64
	clauseDecay float64

	propQueueHead int

	assumptions    []Lit
	assumeFailed   map[Lit]bool
	conflictClause ClauseRef
	hasConflict    bool

	limits  map[limitKind]int64
	unboundedLimits map[limitKind]bool

	conflicts    int64
	decisions    int64
	propagations int64
	restarts     int64

	luby lubyGenerator

	learnGuard learnGuard

	// ok is latched false once the engine has derived the empty clause at
	// decision level 0 (formula proven UNSAT unconditionally); every
	// subsequent Solve call returns Unsat immediately.
	ok bool
}

// NewEngine creates an empty incremental CDCL engine.
func NewEngine() *Engine {
	e := &Engine{
		assign:          newAssignment(),
		watches:         newWatchLists(0),
		assumeFailed:    make(map[Lit]bool),
		limits:          make(map[limitKind]int64),
		unboundedLimits: map[limitKind]bool{LimitConflicts: true, LimitDecisions: true, LimitPreprocessing: true},
		varInc:          1.0,
		varDecay:        0.95,
		clauseInc:       1.0,
		clauseDecay:     0.999,
		ok:              true,
	}
	e.order = newVarOrder(e.activity)
	e.luby = newLubyGenerator(2.0, 100)
	e.learnGuard = newLearnGuard()
	return e
}

// NewVar allocates a fresh variable, growing all per-variable and
// per-literal structures to accommodate it.
func (e *Engine) NewVar() Var {
	v := e.assign.newVar()
	e.activity = append(e.activity, 0)
	e.order.activity = e.activity
	e.watches.grow(2 * e.assign.numVars())
	e.order.insert(v)
	return v
}

// NumVars returns the number of variables allocated so far.
func (e *Engine) NumVars() int { return e.assign.numVars() }

func (e *Engine) ensureVar(v Var) {
	for Var(e.assign.numVars()) <= v {
		e.NewVar()
	}
}

// Conflicts, Decisions, Propagations and Restarts report the running
// counters named in §4.C.
func (e *Engine) Conflicts() int64    { return e.conflicts }
func (e *Engine) Decisions() int64    { return e.decisions }
func (e *Engine) Propagations() int64 { return e.propagations }
func (e *Engine) Restarts() int64     { return e.restarts }
func (e *Engine) NumClauses() int     { return e.origClauses }
func (e *Engine) NumLearnts() int     { return len(e.learnts) }

// Limit bounds the named counter relative to its value at the time of the
// call: the engine's search loop treats the budget as exhausted once the
// counter has grown by n since then, returning Interrupted.
// n <= 0 removes the bound (unbounded).
func (e *Engine) Limit(name string, n int64) {
	k := limitKind(name)
	if n <= 0 {
		e.unboundedLimits[k] = true
		return
	}
	e.unboundedLimits[k] = false
	switch k {
	case LimitConflicts:
		n += e.conflicts
	case LimitDecisions:
		n += e.decisions
	}
	e.limits[k] = n
}

func (e *Engine) limitExceeded(k limitKind, counter int64) bool {
	if e.unboundedLimits[k] {
		return false
	}
	return counter >= e.limits[k]
}

// Freeze protects the variable underlying lit from being eliminated by a
// future preprocessor pass (§4.C). This engine performs no elimination, so
// Freeze/Melt only record the flag for API compatibility with external
// collaborators and §4.D's freeze-for-duration contract.
func (e *Engine) Freeze(l Lit) { e.ensureVar(l.Var()); e.assign.vars[l.Var()].frozen = true }

// Melt releases a variable previously frozen with Freeze.
func (e *Engine) Melt(l Lit) { e.ensureVar(l.Var()); e.assign.vars[l.Var()].frozen = false }

// IsActive reports whether v is still an active decision variable (not
// permanently fixed out of the search by elimination). This engine never
// eliminates variables, so every allocated variable is active.
func (e *Engine) IsActive(v Var) bool { return e.assign.vars[v].active }

// Val reports the current truth value of lit: True or False. It is a
// contract violation to call Val on a literal whose variable is currently
// unassigned.
func (e *Engine) Val(l Lit) LBool {
	v := e.assign.value(l)
	if v == LUndef {
		panic(fmt.Sprintf("backdoor: Val called on unassigned literal %v", l))
	}
	return v
}

// internalVal returns the literal's value, possibly LUndef, without the
// Val contract's panic — used internally by the tree propagator and by
// callers that need to distinguish "unassigned" from "false".
func (e *Engine) internalVal(l Lit) LBool { return e.assign.value(l) }

// internalLevel returns the engine's current decision level.
func (e *Engine) internalLevel() int { return e.assign.decisionLevel() }

// Failed reports whether lit is part of the unsatisfiable core implied by
// the most recent failing set of assumptions (§4.C.4).
func (e *Engine) Failed(l Lit) bool { return e.assumeFailed[l] }

// Assume queues an assumption literal to be treated as a forced decision
// by the next Solve call.
func (e *Engine) Assume(l Lit) {
	e.ensureVar(l.Var())
	e.assumptions = append(e.assumptions, l)
}

// ResetAssumptions clears any queued assumptions without solving.
func (e *Engine) ResetAssumptions() {
	e.assumptions = e.assumptions[:0]
}

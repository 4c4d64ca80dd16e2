package backdoor

// treeState names the three states of the propcheckAllTree state machine
// (§4.D, §9 "Coroutine-like enumeration").
type treeState int

const (
	stateDescending treeState = iota
	stateAscending
	statePropagating
)

// cubeSign is the sign convention used while walking the tree: signNeg
// is the branch tried first at a position (the negative literal),
// signPos is tried second (the positive literal) once signNeg has been
// exhausted. The ascending state treats these as the two digits of a
// binary counter over cube[0..k-1], carrying leftward once a position's
// signPos branch is also exhausted.
type cubeSign int8

const (
	signNeg cubeSign = -1
	signPos cubeSign = 1
)

// PropcheckAllTree enumerates every assignment of vars not refuted by unit
// propagation alone (§4.D). It emits each surviving cube (as a signed
// literal slice, using vars' order) via emit, stopping early once limit
// valid assignments have been emitted (limit <= 0 means unbounded). It
// returns the number of cubes emitted.
//
// Preconditions/invariants upheld: every variable in vars is frozen for
// the call's duration and melted afterward; if the engine has already
// proved the formula UNSAT it returns 0 at once; if the engine is already
// at a positive decision level on entry it is first backtracked to 0 and
// propagated (returning 0 immediately if that conflicts, i.e. the formula
// is already UNSAT); at every point e.internalLevel() <= len(vars); on
// return the engine is at level 0.
func PropcheckAllTree(e *Engine, vars []Var, limit int, emit func(cube []Lit)) int {
	for _, v := range vars {
		e.Freeze(NewLit(v, false))
	}
	defer func() {
		for _, v := range vars {
			e.Melt(NewLit(v, false))
		}
	}()

	if !e.ok {
		e.internalBacktrack(0)
		return 0
	}
	if e.internalLevel() != 0 {
		e.internalBacktrack(0)
		if !e.internalPropagate() {
			return 0
		}
	} else {
		if !e.internalPropagate() {
			return 0
		}
	}

	k := len(vars)
	cube := make([]cubeSign, k)
	for i := range cube {
		cube[i] = signNeg
	}

	count := 0
	state := stateDescending
	level := 0 // current recursion level ℓ, i.e. index into cube/vars

	for {
		switch state {
		case stateDescending:
			if level == k {
				out := make([]Lit, k)
				for i, v := range vars {
					out[i] = NewLit(v, cube[i] == signNeg)
				}
				emit(out)
				count++
				if limit > 0 && count >= limit {
					e.internalBacktrack(0)
					return count
				}
				state = stateAscending
				continue
			}
			lit := signedLit(vars[level], cube[level])
			switch e.internalVal(lit) {
			case LTrue:
				// Already implied true: nothing to assume, but a dummy
				// level keeps internalLevel() == level (our depth
				// counter) in lockstep.
				e.internalPushDummyLevel()
				level++
				state = stateDescending
			case LFalse:
				// Already implied false: this branch is inconsistent, and
				// we have not opened an engine level for it. Ascending
				// identifies the failed position via cube[level-1], so we
				// still advance the local depth counter past it (with no
				// matching internalLevel() change) before handing off.
				level++
				state = stateAscending
			default:
				// Open the level before propagating so internalLevel()
				// tracks level even if propagation conflicts.
				e.internalAssumeDecision(lit)
				level++
				state = statePropagating
			}

		case statePropagating:
			if e.internalPropagate() {
				state = stateDescending
			} else {
				state = stateAscending
			}

		case stateAscending:
			i := level
			for i > 0 && cube[i-1] == signPos {
				i--
			}
			if i == 0 {
				e.internalBacktrack(0)
				return count
			}
			cube[i-1] = signPos
			for j := i; j < k; j++ {
				cube[j] = signNeg
			}
			e.internalBacktrack(i - 1)
			level = i - 1
			state = stateDescending
		}
	}
}

// signedLit returns the literal for vars[level] under the current trial
// sign, using the same sign-to-literal mapping as the final emit in
// PropcheckAllTree: signNeg tries (and reports) the negative literal
// first, signPos the positive one. Keeping both mappings identical is
// what lets a cube's emitted literals be exactly the ones that were
// assumed and propagated without conflict.
func signedLit(v Var, sign cubeSign) Lit {
	return NewLit(v, sign == signNeg)
}


package backdoor

// luby computes the classic Luby restart sequence value for 1-based index
// i: 1,1,2,1,1,2,4,1,1,2,1,1,2,4,8,... (§8 concrete scenario 6).
func luby(i uint64) uint64 {
	k := 1
	for (uint64(1)<<uint(k))-1 < i {
		k++
	}
	if i == (uint64(1)<<uint(k))-1 {
		return uint64(1) << uint(k-1)
	}
	return luby(i - (uint64(1)<<uint(k-1)) + 1)
}

// lubyGenerator produces successive restart conflict-budgets following
// Luby(2.0)*unit (§4.C.3: "a restart budget via Luby(2.0) x 100
// conflicts"). The base of the Luby recurrence itself is fixed at 2 (the
// "2.0" in the spec names the conventional Luby base, not a tunable); unit
// scales the sequence.
type lubyGenerator struct {
	index uint64 // 0-based; luby() wants 1-based
	unit  uint64
}

func newLubyGenerator(base float64, unit uint64) lubyGenerator {
	_ = base // documented as fixed at 2.0; kept as a parameter for clarity at call sites
	return lubyGenerator{index: 0, unit: unit}
}

// next returns the next restart budget (in conflicts) and advances the
// sequence.
func (g *lubyGenerator) next() int64 {
	g.index++
	return int64(luby(g.index) * g.unit)
}

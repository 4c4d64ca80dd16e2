package backdoor

import (
	"sort"

	"github.com/sirupsen/logrus"
)

// DeriveClauses inspects a collection of cubes sharing the same variable
// ordering (§4.E "Clause derivation") and returns every clause implied by
// the absence of a sign pattern: for each subset of size 1 (and 2, and
// optionally 3) of the shared variables, it counts how many cubes realize
// each sign combination, and emits the negated combination as a clause
// whenever its count is zero. An empty hard yields nil. Every cube must
// have the same length and the same variable at each position; DeriveClauses
// panics otherwise, matching the teacher's use of defensive asserts at
// trust boundaries within a single build.
//
// The result is sorted first by clause length, then lexicographically by
// packed literal value, so repeated derivations over the same cube set are
// deterministic.
func DeriveClauses(hard [][]Lit, deriveTernary bool) [][]Lit {
	if len(hard) == 0 {
		return nil
	}
	n := len(hard[0])
	for _, cube := range hard {
		if len(cube) != n {
			panic("backdoor: DeriveClauses: all cubes must have equal length")
		}
		for i, l := range cube {
			if l.Var() != hard[0][i].Var() {
				panic("backdoor: DeriveClauses: all cubes must share the same variable order")
			}
		}
	}

	log := logrus.WithField("component", "derive")

	var derived [][]Lit

	type unitCount struct{ pos, neg int }
	counts := make([]unitCount, n)
	for _, cube := range hard {
		for i, l := range cube {
			if l.Negated() {
				counts[i].neg++
			} else {
				counts[i].pos++
			}
		}
	}
	for i := 0; i < n; i++ {
		v := hard[0][i].Var()
		c := counts[i]
		if c.pos == 0 {
			clause := []Lit{NewLit(v, true)}
			log.Debugf("variable %s is never positive |= clause %v", v, clause)
			derived = append(derived, clause)
		}
		if c.neg == 0 {
			clause := []Lit{NewLit(v, false)}
			log.Debugf("variable %s is never negative |= clause %v", v, clause)
			derived = append(derived, clause)
		}
	}

	// pairCount indexes by (pp, pn, np, nn) for i<j, where the first
	// component of each label names cube[i]'s sign and the second
	// cube[j]'s.
	type pairCount struct{ pp, pn, np, nn int }
	pairKey := func(i, j int) int { return i*n + j }
	pairs := make(map[int]pairCount)

	for i := 0; i < n; i++ {
		ci := counts[i]
		if ci.pos == 0 || ci.neg == 0 {
			continue
		}
		for j := i + 1; j < n; j++ {
			cj := counts[j]
			if cj.pos == 0 || cj.neg == 0 {
				continue
			}
			var pc pairCount
			for _, cube := range hard {
				switch {
				case !cube[i].Negated() && !cube[j].Negated():
					pc.pp++
				case !cube[i].Negated() && cube[j].Negated():
					pc.pn++
				case cube[i].Negated() && !cube[j].Negated():
					pc.np++
				default:
					pc.nn++
				}
			}
			pairs[pairKey(i, j)] = pc

			a, b := hard[0][i].Var(), hard[0][j].Var()
			if pc.pp == 0 {
				derived = append(derived, []Lit{NewLit(a, true), NewLit(b, true)})
			}
			if pc.pn == 0 {
				derived = append(derived, []Lit{NewLit(a, true), NewLit(b, false)})
			}
			if pc.np == 0 {
				derived = append(derived, []Lit{NewLit(a, false), NewLit(b, true)})
			}
			if pc.nn == 0 {
				derived = append(derived, []Lit{NewLit(a, false), NewLit(b, false)})
			}
		}
	}

	if deriveTernary && n >= 3 {
		for i := 0; i < n; i++ {
			ci := counts[i]
			if ci.pos == 0 || ci.neg == 0 {
				continue
			}
			for j := i + 1; j < n; j++ {
				cj := counts[j]
				if cj.pos == 0 || cj.neg == 0 {
					continue
				}
				pij, ok := pairs[pairKey(i, j)]
				if !ok || pij.pp == 0 || pij.pn == 0 || pij.np == 0 || pij.nn == 0 {
					continue
				}
				for k := j + 1; k < n; k++ {
					ck := counts[k]
					if ck.pos == 0 || ck.neg == 0 {
						continue
					}
					pik, ok := pairs[pairKey(i, k)]
					if !ok || pik.pp == 0 || pik.pn == 0 || pik.np == 0 || pik.nn == 0 {
						continue
					}
					pjk, ok := pairs[pairKey(j, k)]
					if !ok || pjk.pp == 0 || pjk.pn == 0 || pjk.np == 0 || pjk.nn == 0 {
						continue
					}

					var tri [8]int
					for _, cube := range hard {
						idx := 0
						if cube[i].Negated() {
							idx |= 4
						}
						if cube[j].Negated() {
							idx |= 2
						}
						if cube[k].Negated() {
							idx |= 1
						}
						tri[idx]++
					}

					a, b, c := hard[0][i].Var(), hard[0][j].Var(), hard[0][k].Var()
					// idx's bits record the absent pattern's sign per
					// variable (1 = negated); the derived clause must
					// complement each bit, matching the binary branch above.
					signs := [2]bool{true, false} // bit 0 (positive) -> negated; bit 1 (negated) -> positive
					for idx := 0; idx < 8; idx++ {
						if tri[idx] != 0 {
							continue
						}
						clause := []Lit{
							NewLit(a, signs[(idx>>2)&1]),
							NewLit(b, signs[(idx>>1)&1]),
							NewLit(c, signs[idx&1]),
						}
						derived = append(derived, clause)
					}
				}
			}
		}
	}

	for _, clause := range derived {
		sort.Slice(clause, func(i, j int) bool { return clause[i] < clause[j] })
	}
	sort.Slice(derived, func(i, j int) bool {
		if len(derived[i]) != len(derived[j]) {
			return len(derived[i]) < len(derived[j])
		}
		for k := range derived[i] {
			if derived[i][k] != derived[j][k] {
				return derived[i][k] < derived[j][k]
			}
		}
		return false
	})

	log.Infof("derived %d clauses from %d cubes over %d variables", len(derived), len(hard), n)
	return derived
}

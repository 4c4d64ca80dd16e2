package backdoor

import (
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"
)

// Fitness is the evaluation of a candidate backdoor: the fraction of
// assignments over its variables that unit propagation alone cannot
// refute (§4.F "Fitness"). Value is 1-Rho, kept alongside Rho so lower
// Value always means a better (smaller) backdoor candidate, matching the
// (1+1) strategy's "mutated <= current" acceptance rule.
type Fitness struct {
	Value   float64
	Rho     float64
	NumHard uint64
}

// Less orders fitness values so that smaller is better: fewer hard (i.e.
// unrefuted) cubes is a stronger backdoor candidate.
func (f Fitness) Less(other Fitness) bool {
	if f.Value != other.Value {
		return f.Value < other.Value
	}
	if f.Rho != other.Rho {
		return f.Rho > other.Rho
	}
	return f.NumHard < other.NumHard
}

func (f Fitness) LessEqual(other Fitness) bool {
	return !other.Less(f)
}

// SearcherOptions configures a BackdoorSearcher (§4.F).
type SearcherOptions struct {
	Seed            int64
	BanUsedVariables bool
	CacheSize       int
}

// DefaultSearcherOptions mirrors the original implementation's defaults.
func DefaultSearcherOptions() SearcherOptions {
	return SearcherOptions{Seed: 42, BanUsedVariables: false, CacheSize: 1 << 16}
}

// BackdoorSearcher runs a (1+1) evolutionary strategy over fixed-size
// variable subsets, using PropcheckAllTree-derived fitness as the
// objective (§4.F). It is not safe for concurrent use.
type BackdoorSearcher struct {
	Engine     *Engine
	GlobalPool []Var
	banned     map[Var]bool
	rng        *rand.Rand
	cache      *lru.Cache[uint64, Fitness]
	CacheHits  int
	CacheMisses int
	Options    SearcherOptions
}

// NewBackdoorSearcher builds a searcher over the given engine and
// candidate pool.
func NewBackdoorSearcher(e *Engine, pool []Var, opts SearcherOptions) *BackdoorSearcher {
	if opts.CacheSize <= 0 {
		opts.CacheSize = 1 << 16
	}
	cache, err := lru.New[uint64, Fitness](opts.CacheSize)
	if err != nil {
		panic(fmt.Sprintf("backdoor: failed to allocate fitness cache: %v", err))
	}
	e.ResetLearnGuard()
	return &BackdoorSearcher{
		Engine:     e,
		GlobalPool: pool,
		banned:     make(map[Var]bool),
		rng:        rand.New(rand.NewSource(opts.Seed)),
		cache:      cache,
		Options:    opts,
	}
}

// SearchRecord is one iteration's (instance, fitness) pair, kept for
// result reporting and analysis (§4.F "Record").
type SearchRecord struct {
	Iteration int
	Variables []Var
	Fitness   Fitness
}

// SearchResult summarizes a completed Run (§4.F "RunResult").
type SearchResult struct {
	BestIteration int
	BestVariables []Var
	BestFitness   Fitness
	Elapsed       time.Duration
	Records       []SearchRecord
}

// Run executes the (1+1)-ES for numIter iterations over backdoors of the
// given size (§4.F). stagnationLimit, if positive, triggers a full
// reinitialization once that many iterations in a row failed to improve
// on the running best; maxRho, if positive, stops the search early (after
// minIter iterations) once the best candidate's rho reaches it;
// poolLimit, if positive, caps the candidate pool via BuildPool's
// propagation heuristic before the search begins.
func (s *BackdoorSearcher) Run(backdoorSize, numIter int, stagnationLimit int, maxRho float64, minIter int, poolLimit int) SearchResult {
	start := time.Now()
	log := logrus.WithField("component", "searcher")
	log.Infof("running EA for %d iterations with backdoor size %d", numIter, backdoorSize)

	pool := BuildPool(s.Engine, s.GlobalPool, s.banned, poolLimit)
	if len(pool) < backdoorSize {
		panic(fmt.Sprintf("backdoor: pool size must be at least %d, but the pool contains only %d elements", backdoorSize, len(pool)))
	}

	instance := s.initialInstance(backdoorSize, pool)
	fitness := s.calculateFitness(instance, nil)
	log.Infof("initial fitness: %+v", fitness)

	bestIteration := 0
	bestInstance := append([]Var(nil), instance...)
	bestFitness := fitness

	records := []SearchRecord{{Iteration: 0, Variables: append([]Var(nil), instance...), Fitness: fitness}}

	numStagnation := 0

	for i := 1; i <= numIter; i++ {
		if maxRho > 0 && i > minIter && bestFitness.Rho >= maxRho {
			log.Debugf("reached maximum required rho %.3f >= %.3f", bestFitness.Rho, maxRho)
			break
		}

		var mutated []Var
		if stagnationLimit > 0 && numStagnation >= stagnationLimit {
			numStagnation = 0
			mutated = s.initialInstance(backdoorSize, pool)
		} else {
			mutated = append([]Var(nil), instance...)
			s.mutate(mutated, pool)
		}

		mutatedFitness := s.calculateFitness(mutated, &bestFitness)
		records = append(records, SearchRecord{Iteration: i, Variables: append([]Var(nil), mutated...), Fitness: mutatedFitness})

		if mutatedFitness.Less(bestFitness) {
			bestIteration = i
			bestInstance = append([]Var(nil), mutated...)
			bestFitness = mutatedFitness
			numStagnation = 0
		} else {
			numStagnation++
		}

		if mutatedFitness.LessEqual(fitness) {
			instance = mutated
			fitness = mutatedFitness
		}
	}

	log.Infof("best iteration: %d / %d", bestIteration, numIter)
	log.Infof("best variables: %s", formatVars(bestInstance))
	log.Infof("best fitness: %+v", bestFitness)
	log.Debugf("cache hits: %d, misses: %d", s.CacheHits, s.CacheMisses)

	if s.Options.BanUsedVariables {
		for _, v := range bestInstance {
			s.banned[v] = true
		}
	}
	s.cache.Purge()

	return SearchResult{
		BestIteration: bestIteration,
		BestVariables: bestInstance,
		BestFitness:   bestFitness,
		Elapsed:       time.Since(start),
		Records:       records,
	}
}

// Ban marks vars as excluded from future pool construction, in addition
// to whatever BanUsedVariables accumulates during Run (§4.F "allow/ban
// lists").
func (s *BackdoorSearcher) Ban(vars []Var) {
	for _, v := range vars {
		s.banned[v] = true
	}
}

func (s *BackdoorSearcher) initialInstance(size int, pool []Var) []Var {
	idx := s.rng.Perm(len(pool))[:size]
	out := make([]Var, size)
	for i, p := range idx {
		out[i] = pool[p]
	}
	return out
}

// fitnessCacheKey hashes the sorted variable tuple with xxhash so the LRU
// cache keys on a fixed-size uint64 rather than growing one string per
// distinct candidate.
func fitnessCacheKey(vars []Var) uint64 {
	sorted := append([]Var(nil), vars...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	var b strings.Builder
	for i, v := range sorted {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "%d", v)
	}
	return xxhash.Sum64String(b.String())
}

func (s *BackdoorSearcher) calculateFitness(vars []Var, best *Fitness) Fitness {
	key := fitnessCacheKey(vars)
	if fit, ok := s.cache.Get(key); ok {
		s.CacheHits++
		return fit
	}
	s.CacheMisses++

	if len(vars) >= 32 {
		panic("backdoor: backdoor size must be less than 32 to enumerate assignments")
	}

	limit := 0
	if best != nil {
		limit = int(best.NumHard) + 1
	}
	numHard := uint64(PropcheckAllTree(s.Engine, vars, limit, func([]Lit) {}))
	numTotal := uint64(1) << uint(len(vars))
	rho := 1.0 - float64(numHard)/float64(numTotal)
	fit := Fitness{Value: 1.0 - rho, Rho: rho, NumHard: numHard}

	s.cache.Add(key, fit)
	return fit
}

// mutate resamples each position of instance independently with
// probability 1/len(instance) (a Bernoulli(1/n) mutation, matching the
// (1+1)-ES mutation operator of §4.F), substituting fresh variables drawn
// without replacement from pool minus the current instance, while keeping
// the backdoor's size fixed.
func (s *BackdoorSearcher) mutate(instance []Var, pool []Var) {
	n := len(instance)
	p := 1.0 / float64(n)

	var toReplace []int
	for i := 0; i < n; i++ {
		if s.rng.Float64() < p {
			toReplace = append(toReplace, i)
		}
	}
	if len(toReplace) == 0 {
		return
	}

	inInstance := make(map[Var]bool, n)
	for _, v := range instance {
		inInstance[v] = true
	}
	var other []Var
	for _, v := range pool {
		if !inInstance[v] {
			other = append(other, v)
		}
	}
	s.rng.Shuffle(len(other), func(i, j int) { other[i], other[j] = other[j], other[i] })
	if len(toReplace) > len(other) {
		toReplace = toReplace[:len(other)]
	}
	for k, i := range toReplace {
		instance[i] = other[k]
	}
}

func formatVars(vars []Var) string {
	parts := make([]string, len(vars))
	for i, v := range vars {
		parts[i] = fmt.Sprintf("%d", v+1)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

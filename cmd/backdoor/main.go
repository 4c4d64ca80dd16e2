// Command backdoor reads a DIMACS CNF problem and searches it for small
// backdoor sets, interleaving the evolutionary searcher with clause
// derivation and bounded CDCL solving until the formula is either
// decomposed to unsatisfiability or the configured time limit elapses.
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	backdoor "github.com/Lipen/sat-nexus-sub000"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

type cliFlags struct {
	verbose             bool
	backdoorSize        int
	numIters            int
	numConflicts        int64
	seed                int64
	allow               string
	ban                 string
	banUsed             bool
	stagnationLimit     int
	deriveTernary       bool
	maxProduct          int
	budgetFilter        int64
	factorBudgetFilter  float64
	budgetSolve         int64
	factorBudgetSolve   float64
	useSortedFiltering  bool
	timeLimit           time.Duration
	cubesPath           string
	derivedClausesPath  string
	modelPath           string
	modelCNFPath        string
	showProgress        bool
}

func newRootCmd() *cobra.Command {
	var f cliFlags
	cmd := &cobra.Command{
		Use:   "backdoor [input.cnf]",
		Short: "Search a CNF formula for backdoor sets and decompose it to UNSAT",
		Long: `Backdoor reads a single problem specification in the DIMACS CNF
format (optionally gzip-compressed) and runs the interleaving
search/derive/product/filter/solve loop over it, writing out any
clauses, cubes, and model it produces along the way.

If no input file is given, backdoor reads from standard input.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var input string
			if len(args) == 1 {
				input = args[0]
			}
			return run(cmd.Context(), input, f)
		},
	}

	flags := cmd.Flags()
	flags.BoolVarP(&f.verbose, "verbose", "v", false, "enable debug logging")
	flags.IntVar(&f.backdoorSize, "backdoor-size", 10, "number of variables in a candidate backdoor")
	flags.IntVar(&f.numIters, "num-iters", 2000, "number of (1+1)-ES iterations per search round")
	flags.Int64Var(&f.numConflicts, "num-conflicts", 1000, "conflict budget per filtered cube")
	flags.Int64Var(&f.seed, "seed", 42, "PRNG seed for search and filtering")
	flags.StringVar(&f.allow, "allow", "", "restrict the candidate pool to this variable list")
	flags.StringVar(&f.ban, "ban", "", "exclude this variable list from the candidate pool")
	flags.BoolVar(&f.banUsed, "ban-used", false, "ban every variable used in a found backdoor from later rounds")
	flags.IntVar(&f.stagnationLimit, "stagnation-limit", 0, "reinitialize the EA instance after this many non-improving iterations (0 disables)")
	flags.BoolVar(&f.deriveTernary, "derive-ternary", false, "also derive 3-literal clauses")
	flags.IntVar(&f.maxProduct, "max-product", 10000, "restart the cube product once it exceeds this size")
	flags.Int64Var(&f.budgetFilter, "budget-filter", 100000, "initial conflict budget for per-round cube filtering")
	flags.Float64Var(&f.factorBudgetFilter, "factor-budget-filter", 1.0, "growth factor applied to budget-filter after each round")
	flags.Int64Var(&f.budgetSolve, "budget-solve", 10000, "initial conflict budget for the final bounded solve")
	flags.Float64Var(&f.factorBudgetSolve, "factor-budget-solve", 1.1, "growth factor applied to budget-solve after each round")
	flags.BoolVar(&f.useSortedFiltering, "use-sorted-filtering", false, "use degree-based sorted filtering instead of shuffled filtering")
	flags.DurationVar(&f.timeLimit, "time-limit", 0, "wall-clock budget for the whole run (0 disables)")
	flags.StringVar(&f.cubesPath, "cubes-file", "", "write the final backdoor's hard cubes here (DIMACS cube format)")
	flags.StringVar(&f.derivedClausesPath, "derived-clauses-file", "", "append every newly derived clause here")
	flags.StringVar(&f.modelPath, "model-file", "", "write a SAT model here (space-separated literals)")
	flags.StringVar(&f.modelCNFPath, "model-cnf-file", "", "write a SAT model here (one unit clause per line)")
	flags.BoolVar(&f.showProgress, "show-progress", false, "show a live-updating progress line during the run")

	return cmd
}

func run(ctx context.Context, input string, f cliFlags) error {
	log := logrus.StandardLogger()
	backdoor.ConfigureLogging(log, f.verbose)
	entry := backdoor.NewEpisodeLogger(log)

	e := backdoor.NewEngine()

	var clauses [][]backdoor.Lit
	var err error
	if input == "" {
		clauses, err = loadFromStdin(e)
	} else {
		clauses, err = backdoor.LoadDIMACSClauses(e, input)
	}
	if err != nil {
		return fmt.Errorf("load input: %w", err)
	}
	for _, c := range clauses {
		e.AddClause(c)
	}
	entry.Infof("loaded %d clauses over %d variables", len(clauses), e.NumVars())

	collector := backdoor.NewCollector()

	allowed, err := resolvePool(e, f.allow)
	if err != nil {
		return fmt.Errorf("resolve --allow: %w", err)
	}
	banned, err := backdoor.ParseVarList(f.ban)
	if err != nil {
		return fmt.Errorf("resolve --ban: %w", err)
	}

	driverOpts := backdoor.DriverOptions{
		BackdoorSize:        f.backdoorSize,
		NumIters:            f.numIters,
		StagnationLimit:     f.stagnationLimit,
		NumConflictsPerCube: f.numConflicts,
		DeriveTernary:       f.deriveTernary,
		MaxProduct:          f.maxProduct,
		BudgetFilter:        f.budgetFilter,
		FactorBudgetFilter:  f.factorBudgetFilter,
		BudgetSolve:         f.budgetSolve,
		FactorBudgetSolve:   f.factorBudgetSolve,
		UseSortedFiltering:  f.useSortedFiltering,
		TimeLimit:           f.timeLimit,
		Seed:                f.seed,
		ShowProgress:        f.showProgress,
	}

	if f.derivedClausesPath != "" {
		w, file, err := backdoor.CreateLineWriter(f.derivedClausesPath)
		if err != nil {
			return fmt.Errorf("open %s: %w", f.derivedClausesPath, err)
		}
		defer func() {
			w.Flush()
			file.Close()
		}()
		driverOpts.DerivedClausesWriter = w
	}

	driver := backdoor.NewDriver(e, allowed, driverOpts)
	for _, c := range clauses {
		driver.RegisterClause(c)
	}

	searcherOpts := backdoor.DefaultSearcherOptions()
	searcherOpts.Seed = f.seed
	searcherOpts.BanUsedVariables = f.banUsed
	searcher := backdoor.NewBackdoorSearcher(e, allowed, searcherOpts)
	searcher.Ban(banned)

	result := driver.Run(ctx, searcher)
	collector.RecordEngine(e)
	collector.RecordDriver(result.ProductSize, searcher.CacheHits, searcher.CacheMisses, driverOpts.BudgetFilter)

	if table := collector.Render(); table != "" {
		fmt.Println(table)
	}

	switch {
	case result.TimedOut:
		fmt.Println("UNKNOWN")
		return nil
	case result.Verdict == backdoor.Sat:
		fmt.Println("SAT")
		return writeModel(e, f.modelPath, f.modelCNFPath)
	case result.FoundStrong:
		fmt.Println("UNSAT")
		return writeCubes(e, result.StrongBackdoor, f.cubesPath)
	default:
		fmt.Println("UNSAT")
		return nil
	}
}

func loadFromStdin(e *backdoor.Engine) ([][]backdoor.Lit, error) {
	raw, err := backdoor.ParseDIMACS(os.Stdin)
	if err != nil {
		return nil, err
	}
	clauses := make([][]backdoor.Lit, len(raw))
	for i, rc := range raw {
		lits := make([]backdoor.Lit, len(rc))
		for j, n := range rc {
			lits[j] = backdoor.LitFromExternal(n)
		}
		clauses[i] = lits
	}
	return clauses, nil
}

func resolvePool(e *backdoor.Engine, allow string) ([]backdoor.Var, error) {
	if allow == "" {
		pool := make([]backdoor.Var, e.NumVars())
		for i := range pool {
			pool[i] = backdoor.Var(i)
		}
		return pool, nil
	}
	vars, err := backdoor.ParseVarList(allow)
	if err != nil {
		return nil, err
	}
	pool := vars[:0]
	for _, v := range vars {
		if int(v) < e.NumVars() {
			pool = append(pool, v)
		}
	}
	return pool, nil
}

func writeCubes(e *backdoor.Engine, backdoorVars []backdoor.Var, path string) error {
	if path == "" || len(backdoorVars) == 0 {
		return nil
	}
	var hard [][]backdoor.Lit
	backdoor.PropcheckAllTree(e, backdoorVars, 0, func(cube []backdoor.Lit) {
		c := make([]backdoor.Lit, len(cube))
		copy(c, cube)
		hard = append(hard, c)
	})
	w, file, err := backdoor.CreateLineWriter(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()
	if err := backdoor.WriteCubesFile(w, hard); err != nil {
		return err
	}
	return w.Flush()
}

func writeModel(e *backdoor.Engine, txtPath, cnfPath string) error {
	if txtPath == "" && cnfPath == "" {
		return nil
	}

	var txtWriter *bufio.Writer
	if txtPath != "" {
		w, file, err := backdoor.CreateLineWriter(txtPath)
		if err != nil {
			return fmt.Errorf("open %s: %w", txtPath, err)
		}
		defer file.Close()
		txtWriter = w
	} else {
		txtWriter = bufio.NewWriter(io.Discard)
	}

	// cnfWriter is left as a nil io.Writer (not a typed nil *bufio.Writer)
	// when unused, matching WriteModel's "cnfWriter != nil" nil check.
	var cnfWriter io.Writer
	var cnfBuf *bufio.Writer
	if cnfPath != "" {
		w, file, err := backdoor.CreateLineWriter(cnfPath)
		if err != nil {
			return fmt.Errorf("open %s: %w", cnfPath, err)
		}
		defer file.Close()
		cnfBuf = w
		cnfWriter = w
	}

	if err := backdoor.WriteModel(txtWriter, cnfWriter, e); err != nil {
		return err
	}
	if err := txtWriter.Flush(); err != nil {
		return err
	}
	if cnfBuf != nil {
		return cnfBuf.Flush()
	}
	return nil
}

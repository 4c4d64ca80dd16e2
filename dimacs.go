package backdoor

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// ParseDIMACS parses text in the DIMACS CNF format into clauses of
// external (signed, 1-based) integer literals, tolerating a few common
// variations: comment lines ('c') may appear anywhere, not only in the
// preamble, and the problem line may be missing entirely. This is the
// same tolerant grammar the teacher's parser accepts, extended to report
// errors with %w-wrapped context per the ambient error-handling
// convention (§7).
func ParseDIMACS(r io.Reader) ([][]int, error) {
	var problem struct {
		vars    int
		clauses int
	}
	var clauses [][]int
	var clause []int
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 1024*1024), 16*1024*1024)
	for s.Scan() {
		line := s.Text()
		if len(line) == 0 || line[0] == 'c' {
			continue
		}
		if line == "%" {
			break
		}
		if line[0] == 'p' {
			if len(clauses) > 0 {
				return nil, fmt.Errorf("parse DIMACS: problem line appears after clauses")
			}
			if problem.vars > 0 {
				return nil, fmt.Errorf("parse DIMACS: multiple problem lines")
			}
			fields := strings.Fields(line)
			if len(fields) != 4 {
				return nil, fmt.Errorf("parse DIMACS: malformed problem line %q", line)
			}
			if fields[1] != "cnf" {
				return nil, fmt.Errorf("parse DIMACS: only cnf supported, got %q", fields[1])
			}
			var err error
			problem.vars, err = strconv.Atoi(fields[2])
			if err != nil {
				return nil, fmt.Errorf("parse DIMACS: malformed #vars: %w", err)
			}
			problem.clauses, err = strconv.Atoi(fields[3])
			if err != nil {
				return nil, fmt.Errorf("parse DIMACS: malformed #clauses: %w", err)
			}
			continue
		}
		for _, field := range strings.Fields(line) {
			n, err := strconv.Atoi(field)
			if err != nil {
				return nil, fmt.Errorf("parse DIMACS: invalid literal %q: %w", field, err)
			}
			if n == 0 {
				clauses = append(clauses, clause)
				clause = nil
			} else {
				clause = append(clause, n)
			}
		}
	}
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("parse DIMACS: %w", err)
	}
	if len(clause) > 0 {
		clauses = append(clauses, clause)
	}
	if problem.vars > 0 && len(clauses) != problem.clauses {
		return nil, fmt.Errorf("parse DIMACS: problem line specifies %d clauses, found %d", problem.clauses, len(clauses))
	}
	return clauses, nil
}

// OpenDIMACS opens path for reading, transparently decompressing it
// through gzip when the name ends in ".gz" (§6 "gzip-tolerant"). The
// returned closer must be closed by the caller once done reading.
func OpenDIMACS(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if !strings.HasSuffix(path, ".gz") {
		return f, nil
	}
	gz, err := gzip.NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return &gzipReadCloser{gz: gz, f: f}, nil
}

type gzipReadCloser struct {
	gz *gzip.Reader
	f  *os.File
}

func (g *gzipReadCloser) Read(p []byte) (int, error) { return g.gz.Read(p) }

func (g *gzipReadCloser) Close() error {
	gzErr := g.gz.Close()
	fErr := g.f.Close()
	if gzErr != nil {
		return gzErr
	}
	return fErr
}

// LoadDIMACSClauses reads path (gzip-tolerant) and converts every clause
// into internal literals via e.NewVar-backed allocation, ensuring
// variables exist up to the maximum one referenced.
func LoadDIMACSClauses(e *Engine, path string) ([][]Lit, error) {
	r, err := OpenDIMACS(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	raw, err := ParseDIMACS(r)
	if err != nil {
		return nil, err
	}

	clauses := make([][]Lit, len(raw))
	for i, rc := range raw {
		lits := make([]Lit, len(rc))
		for j, n := range rc {
			l := LitFromExternal(n)
			e.ensureVar(l.Var())
			lits[j] = l
		}
		clauses[i] = lits
	}
	return clauses, nil
}

// WriteDIMACS writes clauses (internal literals) in DIMACS CNF format,
// with a problem line sized from numVars.
func WriteDIMACS(w io.Writer, numVars int, clauses [][]Lit) error {
	if _, err := fmt.Fprintf(w, "p cnf %d %d\n", numVars, len(clauses)); err != nil {
		return err
	}
	for _, c := range clauses {
		for _, l := range c {
			if _, err := fmt.Fprintf(w, "%d ", l.ToExternal()); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintln(w, "0"); err != nil {
			return err
		}
	}
	return nil
}

// CreateLineWriter creates (or truncates) path and returns a buffered
// writer over it (the caller flushes it before closing the file), matching the teacher-adjacent original tool's
// create_line_writer helper used for cubes.txt/derived_clauses.txt.
func CreateLineWriter(path string) (*bufio.Writer, *os.File, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("create %s: %w", path, err)
	}
	return bufio.NewWriter(f), f, nil
}

// WriteCubesFile writes one DIMACS-style cube line per cube ("a ... 0"),
// the format the original tool's cubes.txt uses for a backdoor's hard
// tasks (§6, supplemented feature C.2).
func WriteCubesFile(w io.Writer, cubes [][]Lit) error {
	for _, cube := range cubes {
		if _, err := io.WriteString(w, "a "); err != nil {
			return err
		}
		for _, l := range cube {
			if _, err := fmt.Fprintf(w, "%d ", l.ToExternal()); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintln(w, "0"); err != nil {
			return err
		}
	}
	return nil
}

// WriteModel writes a satisfying assignment in two formats understood by
// downstream tooling (§6, supplemented feature C.3): model.txt is one
// "v <lit> ... 0" line (the DIMACS SAT-solver convention), model.cnf is
// the assignment re-expressed as unit clauses.
func WriteModel(txtWriter, cnfWriter io.Writer, e *Engine) error {
	n := e.NumVars()
	if _, err := io.WriteString(txtWriter, "v "); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		v := Var(i)
		val := e.assign.valueVar(v)
		lit := NewLit(v, val == LFalse)
		if _, err := fmt.Fprintf(txtWriter, "%d ", lit.ToExternal()); err != nil {
			return err
		}
		if cnfWriter != nil {
			if _, err := fmt.Fprintf(cnfWriter, "%d 0\n", lit.ToExternal()); err != nil {
				return err
			}
		}
	}
	if _, err := fmt.Fprintln(txtWriter, "0"); err != nil {
		return err
	}
	return nil
}

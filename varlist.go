package backdoor

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/hashicorp/go-multierror"
)

// ParseVarList parses a variable-list expression (§6 "External
// Interfaces"): a comma-separated sequence of either a single 1-based
// index ("5"), an inclusive interval ("3-7"), or an indirection to a
// newline-delimited file of further indices/intervals ("@file.txt"). No
// example repo in the retrieval pack offers a ready-made parser for this
// small DSL, so it is hand-rolled against the standard library (see
// DESIGN.md).
//
// Malformed tokens are collected rather than aborting at the first one,
// using go-multierror the way nomad's command-line validators report
// every bad flag value in one pass.
func ParseVarList(expr string) ([]Var, error) {
	var out []Var
	var errs *multierror.Error
	for _, tok := range strings.Split(expr, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		if strings.HasPrefix(tok, "@") {
			vars, err := parseVarListFile(tok[1:])
			if err != nil {
				errs = multierror.Append(errs, err)
				continue
			}
			out = append(out, vars...)
			continue
		}
		vars, err := parseVarListToken(tok)
		if err != nil {
			errs = multierror.Append(errs, err)
			continue
		}
		out = append(out, vars...)
	}
	if err := errs.ErrorOrNil(); err != nil {
		return nil, err
	}
	return out, nil
}

func parseVarListToken(tok string) ([]Var, error) {
	if a, b, ok := strings.Cut(tok, "-"); ok && a != "" && b != "" {
		lo, err := strconv.Atoi(a)
		if err != nil {
			return nil, fmt.Errorf("parse var list: malformed interval %q: %w", tok, err)
		}
		hi, err := strconv.Atoi(b)
		if err != nil {
			return nil, fmt.Errorf("parse var list: malformed interval %q: %w", tok, err)
		}
		if lo <= 0 || hi < lo {
			return nil, fmt.Errorf("parse var list: invalid interval %q", tok)
		}
		vars := make([]Var, 0, hi-lo+1)
		for i := lo; i <= hi; i++ {
			vars = append(vars, Var(i-1))
		}
		return vars, nil
	}
	n, err := strconv.Atoi(tok)
	if err != nil {
		return nil, fmt.Errorf("parse var list: invalid index %q: %w", tok, err)
	}
	if n <= 0 {
		return nil, fmt.Errorf("parse var list: index %q must be positive", tok)
	}
	return []Var{Var(n - 1)}, nil
}

func parseVarListFile(path string) ([]Var, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("parse var list: open %s: %w", path, err)
	}
	defer f.Close()

	var out []Var
	var errs *multierror.Error
	s := bufio.NewScanner(f)
	for s.Scan() {
		line := strings.TrimSpace(s.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		vars, err := ParseVarList(line)
		if err != nil {
			errs = multierror.Append(errs, err)
			continue
		}
		out = append(out, vars...)
	}
	if err := s.Err(); err != nil {
		errs = multierror.Append(errs, fmt.Errorf("parse var list: reading %s: %w", path, err))
	}
	if err := errs.ErrorOrNil(); err != nil {
		return nil, err
	}
	return out, nil
}

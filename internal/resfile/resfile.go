// Package resfile reads Serpent result files (*_res.m). Each numeric
// assignment of the first output block becomes either metadata or a
// quantity of (value, relative error) pairs.
package resfile

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/signalnine/fomstat/internal/result"
)

var ErrParse = errors.New("resfile: parse error")

// ParseError locates a malformed or incomplete result file.
type ParseError struct {
	Path string
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %v", e.Path, e.Line, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// DefaultMatrixPattern matches scattering matrices and test matrices.
var DefaultMatrixPattern = regexp.MustCompile(`(_SP?[0-7]|_SCATTP?[0-7]|_MAT)$`)

var (
	defaultCycleFields = []string{"CYCLE_IDX", "CYCLES"}
	defaultCPUFields   = []string{"TOT_CPU_TIME", "CPU_TIME"}
)

type Options struct {
	// CycleField and CPUField override the metadata names. The first
	// number of the named assignment is used.
	CycleField string
	CPUField   string
	// MatrixPattern selects quantities stored as square matrices.
	MatrixPattern *regexp.Regexp
}

var assignRe = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_]*)\s*\(\s*idx\s*,\s*(\[\s*1\s*:\s*(\d+)\s*\]|\d+)\s*\)\s*=\s*(.*?)\s*;$`)

// Parse reads one result file from disk.
func Parse(path string, opts *Options) (*result.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening result file: %w", err)
	}
	defer f.Close()
	return ParseReader(path, f, opts)
}

// ParseReader parses r, using name as the record's filename.
func ParseReader(name string, r io.Reader, opts *Options) (*result.Record, error) {
	if opts == nil {
		opts = &Options{}
	}
	matrixRe := opts.MatrixPattern
	if matrixRe == nil {
		matrixRe = DefaultMatrixPattern
	}

	numbers := map[string][]float64{}
	var quantities []*result.Quantity

	fail := func(line int, format string, args ...any) error {
		return &ParseError{Path: name, Line: line, Err: fmt.Errorf("%w: "+format, append([]any{ErrParse}, args...)...)}
	}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)

	var (
		lineNo    int
		stmt      strings.Builder
		stmtStart int
		headers   int
	)
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if stmt.Len() == 0 {
			if line == "" || strings.HasPrefix(line, "%") {
				continue
			}
			if strings.HasPrefix(line, "if (exist(") || strings.HasPrefix(line, "if(exist(") {
				headers++
				if headers > 1 {
					break
				}
				continue
			}
			if isBoilerplate(line) {
				continue
			}
			stmtStart = lineNo
		} else {
			stmt.WriteByte(' ')
		}
		stmt.WriteString(line)
		text := stmt.String()
		if !strings.HasSuffix(text, ";") || strings.Count(text, "[") != strings.Count(text, "]") {
			continue
		}
		stmt.Reset()

		m := assignRe.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		label, rhs := m[1], m[4]
		if strings.HasPrefix(rhs, "'") {
			continue
		}
		declared := 1
		if m[3] != "" {
			declared, _ = strconv.Atoi(m[3])
		}
		vals, err := parseNumbers(rhs)
		if err != nil {
			return nil, fail(stmtStart, "%s: %v", label, err)
		}
		if len(vals) != declared {
			return nil, fail(stmtStart, "%s declares %d values but has %d", label, declared, len(vals))
		}
		if _, seen := numbers[label]; seen {
			continue
		}
		numbers[label] = vals

		if m[3] == "" || len(vals)%2 != 0 {
			continue
		}
		pairs := make([]result.Pair, len(vals)/2)
		for i := range pairs {
			pairs[i] = result.Pair{Value: vals[2*i], Error: vals[2*i+1]}
		}
		q := result.NewVector(label, pairs)
		if matrixRe.MatchString(label) {
			if n := isqrt(len(pairs)); n*n == len(pairs) {
				q, _ = result.NewMatrix(label, n, n, pairs)
			}
		}
		quantities = append(quantities, q)
	}
	if err := sc.Err(); err != nil {
		return nil, &ParseError{Path: name, Line: lineNo, Err: fmt.Errorf("%w: %v", ErrParse, err)}
	}
	if stmt.Len() > 0 {
		return nil, fail(stmtStart, "unterminated statement")
	}

	cycleVal, cycleField, ok := lookup(numbers, opts.CycleField, defaultCycleFields)
	if !ok {
		return nil, fail(0, "missing cycle field %s", cycleField)
	}
	if cycleVal != math.Trunc(cycleVal) || cycleVal < 0 {
		return nil, fail(0, "%s is not a cycle number: %g", cycleField, cycleVal)
	}
	cpu, cpuField, ok := lookup(numbers, opts.CPUField, defaultCPUFields)
	if !ok {
		return nil, fail(0, "missing cpu time field %s", cpuField)
	}
	if !(cpu > 0) {
		return nil, fail(0, "%s must be positive, got %g", cpuField, cpu)
	}

	rec, err := result.NewRecord(name, int(cycleVal), cpu, quantities)
	if err != nil {
		return nil, &ParseError{Path: name, Err: fmt.Errorf("%w: %w", ErrParse, err)}
	}
	return rec, nil
}

func isBoilerplate(line string) bool {
	switch {
	case strings.HasPrefix(line, "idx"),
		strings.HasPrefix(line, "else"),
		strings.HasPrefix(line, "end"):
		return true
	}
	return false
}

func parseNumbers(rhs string) ([]float64, error) {
	body := rhs
	if strings.HasPrefix(rhs, "[") {
		if !strings.HasSuffix(rhs, "]") {
			return nil, fmt.Errorf("unbalanced brackets")
		}
		body = rhs[1 : len(rhs)-1]
	}
	fields := strings.Fields(body)
	out := make([]float64, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("bad number %q", f)
		}
		out = append(out, v)
	}
	return out, nil
}

func lookup(numbers map[string][]float64, field string, fallbacks []string) (float64, string, bool) {
	candidates := fallbacks
	if field != "" {
		candidates = []string{field}
	}
	for _, c := range candidates {
		if vals, ok := numbers[c]; ok && len(vals) > 0 {
			return vals[0], c, true
		}
	}
	return 0, strings.Join(candidates, "/"), false
}

func isqrt(n int) int {
	r := int(math.Sqrt(float64(n)))
	for r*r > n {
		r--
	}
	for (r+1)*(r+1) <= n {
		r++
	}
	return r
}

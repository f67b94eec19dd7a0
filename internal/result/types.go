package result

import (
	"cmp"
	"errors"
	"fmt"
	"math"
	"sort"
)

var (
	ErrNotFound        = errors.New("result: directory not found")
	ErrInvalidEntry    = errors.New("result: invalid entry")
	ErrInvalidRecord   = errors.New("result: invalid record")
	ErrUnknownQuantity = errors.New("result: unknown quantity")
)

// Pair is one tallied value and its relative statistical error.
type Pair struct {
	Value float64 `json:"value"`
	Error float64 `json:"error"`
}

// Quantity is a named vector or matrix of pairs. Pairs are stored row-major
// and indexed from zero; the 1-based public indexing lives in Entry.
type Quantity struct {
	Name   string
	Rows   int
	Cols   int
	Matrix bool
	Pairs  []Pair
}

// NewVector returns a 1 x len(pairs) quantity.
func NewVector(name string, pairs []Pair) *Quantity {
	return &Quantity{Name: name, Rows: 1, Cols: len(pairs), Pairs: pairs}
}

// NewMatrix returns a rows x cols quantity over row-major pairs.
func NewMatrix(name string, rows, cols int, pairs []Pair) (*Quantity, error) {
	if rows < 1 || cols < 1 || rows*cols != len(pairs) {
		return nil, fmt.Errorf("%w: %s has %d pairs, not %dx%d", ErrInvalidRecord, name, len(pairs), rows, cols)
	}
	return &Quantity{Name: name, Rows: rows, Cols: cols, Matrix: true, Pairs: pairs}, nil
}

func (q *Quantity) Len() int { return len(q.Pairs) }

// SameShape reports whether q and o can be compared entry by entry.
func (q *Quantity) SameShape(o *Quantity) bool {
	return q.Matrix == o.Matrix && q.Rows == o.Rows && q.Cols == o.Cols
}

func (q *Quantity) Shape() string {
	if q.Matrix {
		return fmt.Sprintf("%dx%d", q.Rows, q.Cols)
	}
	return fmt.Sprintf("%d", q.Cols)
}

// Record is one parsed result file. It is never modified after NewRecord.
type Record struct {
	Filename string
	Cycle    int
	CPUTime  float64

	quantities map[string]*Quantity
}

func NewRecord(filename string, cycle int, cpuTime float64, quantities []*Quantity) (*Record, error) {
	if cycle < 0 {
		return nil, fmt.Errorf("%w: %s: negative cycle %d", ErrInvalidRecord, filename, cycle)
	}
	if !(cpuTime > 0) || math.IsInf(cpuTime, 0) {
		return nil, fmt.Errorf("%w: %s: cpu time must be positive, got %g", ErrInvalidRecord, filename, cpuTime)
	}
	byName := make(map[string]*Quantity, len(quantities))
	for _, q := range quantities {
		if q == nil || q.Name == "" {
			return nil, fmt.Errorf("%w: %s: unnamed quantity", ErrInvalidRecord, filename)
		}
		if _, dup := byName[q.Name]; dup {
			return nil, fmt.Errorf("%w: %s: duplicate quantity %s", ErrInvalidRecord, filename, q.Name)
		}
		if q.Rows*q.Cols != len(q.Pairs) || len(q.Pairs) == 0 {
			return nil, fmt.Errorf("%w: %s: quantity %s shape %s does not fit %d pairs", ErrInvalidRecord, filename, q.Name, q.Shape(), len(q.Pairs))
		}
		for i, p := range q.Pairs {
			if p.Error < 0 || math.IsNaN(p.Error) {
				return nil, fmt.Errorf("%w: %s: quantity %s entry %d has error %g", ErrInvalidRecord, filename, q.Name, i+1, p.Error)
			}
		}
		cp := *q
		cp.Pairs = append([]Pair(nil), q.Pairs...)
		byName[q.Name] = &cp
	}
	return &Record{Filename: filename, Cycle: cycle, CPUTime: cpuTime, quantities: byName}, nil
}

// Quantity returns a copy of the named quantity.
func (r *Record) Quantity(name string) (*Quantity, error) {
	q, ok := r.quantities[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s in %s", ErrUnknownQuantity, name, r.Filename)
	}
	cp := *q
	cp.Pairs = append([]Pair(nil), q.Pairs...)
	return &cp, nil
}

// Get returns the pairs addressed by e, in entry order.
func (r *Record) Get(name string, e Entry) ([]Pair, error) {
	q, ok := r.quantities[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s in %s", ErrUnknownQuantity, name, r.Filename)
	}
	idx, err := e.Resolve(q)
	if err != nil {
		return nil, err
	}
	out := make([]Pair, len(idx))
	for i, k := range idx {
		out[i] = q.Pairs[k]
	}
	return out, nil
}

// Names returns the quantity names in sorted order.
func (r *Record) Names() []string {
	names := make([]string, 0, len(r.quantities))
	for n := range r.quantities {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Compare orders records by cycle, falling back to filename for equal cycles.
func Compare(a, b *Record) int {
	if c := cmp.Compare(a.Cycle, b.Cycle); c != 0 {
		return c
	}
	return cmp.Compare(a.Filename, b.Filename)
}

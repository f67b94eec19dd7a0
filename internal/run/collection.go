package run

import (
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"slices"

	"github.com/montanaflynn/stats"
	"github.com/signalnine/fomstat/internal/resfile"
	"github.com/signalnine/fomstat/internal/result"
	"github.com/signalnine/fomstat/internal/runner"
)

var (
	ErrNotFound        = result.ErrNotFound
	ErrEmptyRun        = errors.New("run: no result files")
	ErrInvalidParams   = errors.New("run: invalid params")
	ErrUnknownParam    = errors.New("run: unknown param")
	ErrInconsistentRun = errors.New("run: records disagree on quantities")
)

// Collection is the cycle-ordered set of records produced by one run.
type Collection struct {
	records []*result.Record
	params  Params
	source  string
}

type LoadOpts struct {
	Params Params
	// Pattern selects result files by base name; result.DefaultPattern if empty.
	Pattern string
	// Workers bounds concurrent parsing; values below 1 parse serially.
	Workers int
	Parser  resfile.Options
	Logger  *log.Logger
}

// Load parses every result file in dir into a Collection.
func Load(dir string, opts *LoadOpts) (*Collection, error) {
	if opts == nil {
		opts = &LoadOpts{}
	}
	files, err := result.ListFiles(dir, opts.Pattern)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyRun, dir)
	}

	records, errs := runner.Map(opts.Workers, files, func(path string) (*result.Record, error) {
		if opts.Logger != nil {
			opts.Logger.Printf("loading %s", path)
		}
		return resfile.Parse(path, &opts.Parser)
	})
	if err := runner.FirstError(errs); err != nil {
		return nil, err
	}

	c, err := New(filepath.Dir(files[0]), records, opts.Params)
	if err != nil {
		return nil, err
	}
	if opts.Logger != nil {
		for i := 1; i < len(c.records); i++ {
			if c.records[i].Cycle == c.records[i-1].Cycle {
				opts.Logger.Printf("warning: %s and %s both report cycle %d", c.records[i-1].Filename, c.records[i].Filename, c.records[i].Cycle)
			}
		}
		opts.Logger.Printf("loaded %d files from %s", c.Len(), c.source)
	}
	return c, nil
}

// New builds a Collection from already parsed records.
func New(source string, records []*result.Record, params Params) (*Collection, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyRun, source)
	}
	params, err := NewParams(params...)
	if err != nil {
		return nil, err
	}
	sorted := slices.Clone(records)
	slices.SortStableFunc(sorted, result.Compare)

	ref := sorted[0]
	refNames := ref.Names()
	for _, rec := range sorted[1:] {
		if !slices.Equal(rec.Names(), refNames) {
			return nil, fmt.Errorf("%w: %s has %v, %s has %v", ErrInconsistentRun, ref.Filename, refNames, rec.Filename, rec.Names())
		}
		for _, name := range refNames {
			a, _ := ref.Quantity(name)
			b, _ := rec.Quantity(name)
			if !a.SameShape(b) {
				return nil, fmt.Errorf("%w: %s is %s in %s but %s in %s", ErrInconsistentRun, name, a.Shape(), ref.Filename, b.Shape(), rec.Filename)
			}
		}
	}
	return &Collection{records: sorted, params: params, source: source}, nil
}

func (c *Collection) Len() int       { return len(c.records) }
func (c *Collection) Source() string { return c.source }
func (c *Collection) Params() Params { return slices.Clone(c.params) }

// Param returns the value of a named run parameter.
func (c *Collection) Param(name string) (any, error) { return c.params.Get(name) }

// Records returns the records in cycle order.
func (c *Collection) Records() []*result.Record { return slices.Clone(c.records) }

// Last returns the record with the highest cycle.
func (c *Collection) Last() *result.Record { return c.records[len(c.records)-1] }

func (c *Collection) Filenames() []string {
	out := make([]string, len(c.records))
	for i, r := range c.records {
		out[i] = r.Filename
	}
	return out
}

// Quantities lists the quantity names shared by every record.
func (c *Collection) Quantities() []string { return c.records[0].Names() }

// Quantity describes the shape of a quantity, taken from the first record.
func (c *Collection) Quantity(name string) (*result.Quantity, error) {
	return c.records[0].Quantity(name)
}

// Pairs returns, per record, the pairs addressed by e.
func (c *Collection) Pairs(name string, e result.Entry) ([][]result.Pair, error) {
	out := make([][]result.Pair, len(c.records))
	for i, r := range c.records {
		p, err := r.Get(name, e)
		if err != nil {
			return nil, err
		}
		out[i] = p
	}
	return out, nil
}

func (c *Collection) single(name string, e result.Entry) ([]result.Pair, error) {
	if e.Len() != 1 {
		return nil, fmt.Errorf("%w: expected a single group or cell, got %q", result.ErrInvalidEntry, e.String())
	}
	rows, err := c.Pairs(name, e)
	if err != nil {
		return nil, err
	}
	out := make([]result.Pair, len(rows))
	for i, r := range rows {
		out[i] = r[0]
	}
	return out, nil
}

// ErrorSeries returns the relative error of one entry per record.
func (c *Collection) ErrorSeries(name string, e result.Entry) ([]float64, error) {
	pairs, err := c.single(name, e)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(pairs))
	for i, p := range pairs {
		out[i] = p.Error
	}
	return out, nil
}

// ValueSeries returns the value of one entry per record.
func (c *Collection) ValueSeries(name string, e result.Entry) ([]float64, error) {
	pairs, err := c.single(name, e)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(pairs))
	for i, p := range pairs {
		out[i] = p.Value
	}
	return out, nil
}

func (c *Collection) CPUSeries() []float64 {
	out := make([]float64, len(c.records))
	for i, r := range c.records {
		out[i] = r.CPUTime
	}
	return out
}

func (c *Collection) CycleSeries() []int {
	out := make([]int, len(c.records))
	for i, r := range c.records {
		out[i] = r.Cycle
	}
	return out
}

// CycVCPU is the cycle throughput between consecutive records,
// Δcycle/Δcpu. Equal cpu times give ±Inf or NaN.
func (c *Collection) CycVCPU() []float64 {
	if len(c.records) < 2 {
		return nil
	}
	out := make([]float64, len(c.records)-1)
	for i := 1; i < len(c.records); i++ {
		prev, cur := c.records[i-1], c.records[i]
		out[i-1] = float64(cur.Cycle-prev.Cycle) / (cur.CPUTime - prev.CPUTime)
	}
	return out
}

// MeanCycVCPU averages CycVCPU; it needs at least two records.
func (c *Collection) MeanCycVCPU() (float64, error) {
	ratios := c.CycVCPU()
	if len(ratios) == 0 {
		return 0, fmt.Errorf("%w: cycle throughput needs two records, %s has %d", ErrEmptyRun, c.source, c.Len())
	}
	return stats.Mean(ratios)
}

func (c *Collection) String() string {
	s := fmt.Sprintf("%d result files loaded from: %s", c.Len(), c.source)
	for _, p := range c.params {
		s += fmt.Sprintf("\n\t%s:\t%v", p.Name, p.Value)
	}
	return s
}

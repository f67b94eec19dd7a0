// Package multirun compares the runs of a parametric study. Each run
// contributes one representative statistic per quantity entry; the
// aggregator reports the elementwise mean and population standard
// deviation across runs.
package multirun

import (
	"context"
	"errors"
	"fmt"

	"github.com/signalnine/fomstat/internal/fom"
	"github.com/signalnine/fomstat/internal/result"
	"github.com/signalnine/fomstat/internal/run"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

var (
	ErrMismatchedLength = errors.New("multirun: directories and params differ in length")
	ErrShapeMismatch    = errors.New("multirun: quantity shape differs between runs")
	ErrNoRuns           = errors.New("multirun: no runs")
)

// StatKind selects the per-run statistic.
type StatKind int

const (
	// StatFOM is the FOM of the final cycle.
	StatFOM StatKind = iota
	// StatError is the relative error of the final cycle.
	StatError
	// StatValue is the tallied value of the final cycle.
	StatValue
	// StatAverageFOM is the mean FOM over the trailing LastN cycles.
	StatAverageFOM
)

func (k StatKind) String() string {
	switch k {
	case StatError:
		return "error"
	case StatValue:
		return "value"
	case StatAverageFOM:
		return "average"
	default:
		return "fom"
	}
}

// ParseStatKind accepts fom, error, value or average.
func ParseStatKind(s string) (StatKind, error) {
	switch s {
	case "", "fom":
		return StatFOM, nil
	case "error":
		return StatError, nil
	case "value":
		return StatValue, nil
	case "average", "avg":
		return StatAverageFOM, nil
	}
	return StatFOM, fmt.Errorf("unknown statistic %q (want fom, error, value or average)", s)
}

type Stat struct {
	Kind  StatKind
	Basis fom.Basis
	// LastN is the trailing window of StatAverageFOM; zero averages all cycles.
	LastN int
}

type Opts struct {
	Load *run.LoadOpts
	// Parallel bounds how many runs load at once.
	Parallel int
}

// Aggregator owns the runs of one study, in the order they were given.
type Aggregator struct {
	runs []*run.Collection
}

// New loads one run per directory, tagging each with its params.
func New(ctx context.Context, dirs []string, params []run.Params, opts *Opts) (*Aggregator, error) {
	if len(dirs) != len(params) {
		return nil, fmt.Errorf("%w: %d directories, %d param sets", ErrMismatchedLength, len(dirs), len(params))
	}
	if len(dirs) == 0 {
		return nil, ErrNoRuns
	}
	if opts == nil {
		opts = &Opts{}
	}
	base := run.LoadOpts{}
	if opts.Load != nil {
		base = *opts.Load
	}

	runs := make([]*run.Collection, len(dirs))
	g, ctx := errgroup.WithContext(ctx)
	if opts.Parallel > 0 {
		g.SetLimit(opts.Parallel)
	}
	for i, dir := range dirs {
		i, dir := i, dir
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			lo := base
			lo.Params = params[i]
			c, err := run.Load(dir, &lo)
			if err != nil {
				return fmt.Errorf("loading run %s: %w", dir, err)
			}
			runs[i] = c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &Aggregator{runs: runs}, nil
}

// FromRuns wraps runs that are already loaded.
func FromRuns(runs ...*run.Collection) (*Aggregator, error) {
	if len(runs) == 0 {
		return nil, ErrNoRuns
	}
	return &Aggregator{runs: append([]*run.Collection(nil), runs...)}, nil
}

func (a *Aggregator) Len() int                { return len(a.runs) }
func (a *Aggregator) Runs() []*run.Collection { return append([]*run.Collection(nil), a.runs...) }

// shape returns the quantity layout shared by every run.
func (a *Aggregator) shape(quantity string) (*result.Quantity, error) {
	ref, err := a.runs[0].Quantity(quantity)
	if err != nil {
		return nil, err
	}
	for _, r := range a.runs[1:] {
		q, err := r.Quantity(quantity)
		if err != nil {
			return nil, err
		}
		if !q.SameShape(ref) {
			return nil, fmt.Errorf("%w: %s is %s in %s but %s in %s", ErrShapeMismatch, quantity, ref.Shape(), a.runs[0].Source(), q.Shape(), r.Source())
		}
	}
	return ref, nil
}

// statistic evaluates s for every pair of the quantity in one run.
func statistic(c *run.Collection, q *result.Quantity, s Stat) ([]float64, error) {
	out := make([]float64, q.Len())
	last := c.Last()
	switch s.Kind {
	case StatError, StatValue, StatFOM:
		pairs, err := last.Get(q.Name, allGroups(q))
		if err != nil {
			return nil, err
		}
		cost := last.CPUTime
		if s.Basis == fom.Cycles {
			cost = float64(last.Cycle)
		}
		if s.Kind == StatFOM {
			if err := fom.CheckCost(cost); err != nil {
				return nil, fmt.Errorf("%s: %w", last.Filename, err)
			}
		}
		for i, p := range pairs {
			switch s.Kind {
			case StatError:
				out[i] = p.Error
			case StatValue:
				out[i] = p.Value
			default:
				out[i] = fom.Value(cost, p.Error*p.Error)
			}
		}
	case StatAverageFOM:
		eng := fom.New(c)
		for i := range out {
			v, err := eng.Average(q.Name, result.Group(i+1), s.LastN, fom.Options{Basis: s.Basis})
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
	default:
		return nil, fmt.Errorf("unknown statistic %d", s.Kind)
	}
	return out, nil
}

func allGroups(q *result.Quantity) result.Entry {
	gs := make([]int, q.Len())
	for i := range gs {
		gs[i] = i + 1
	}
	return result.Groups(gs...)
}

// samples returns, per flat entry, the statistic of every run.
func (a *Aggregator) samples(quantity string, s Stat) (*result.Quantity, [][]float64, error) {
	q, err := a.shape(quantity)
	if err != nil {
		return nil, nil, err
	}
	cols := make([][]float64, q.Len())
	for i := range cols {
		cols[i] = make([]float64, len(a.runs))
	}
	for r, c := range a.runs {
		vals, err := statistic(c, q, s)
		if err != nil {
			return nil, nil, fmt.Errorf("run %s: %w", c.Source(), err)
		}
		for i, v := range vals {
			cols[i][r] = v
		}
	}
	return q, cols, nil
}

func (a *Aggregator) reduce(quantity string, s Stat, f func([]float64) float64) (*mat.Dense, error) {
	q, cols, err := a.samples(quantity, s)
	if err != nil {
		return nil, err
	}
	data := make([]float64, len(cols))
	for i, xs := range cols {
		if allZero(xs) {
			continue
		}
		data[i] = f(xs)
	}
	return mat.NewDense(q.Rows, q.Cols, data), nil
}

func allZero(xs []float64) bool {
	for _, x := range xs {
		if x != 0 {
			return false
		}
	}
	return true
}

// Mean is the elementwise mean of the statistic across runs, shaped like
// the quantity (vectors are 1 x G).
func (a *Aggregator) Mean(quantity string, s Stat) (*mat.Dense, error) {
	return a.reduce(quantity, s, func(xs []float64) float64 { return stat.Mean(xs, nil) })
}

// Stdev is the elementwise population standard deviation across runs.
func (a *Aggregator) Stdev(quantity string, s Stat) (*mat.Dense, error) {
	return a.reduce(quantity, s, func(xs []float64) float64 {
		_, sd := stat.PopMeanStdDev(xs, nil)
		return sd
	})
}

// CPU returns the mean and population standard deviation of the final cpu
// time of each run.
func (a *Aggregator) CPU() (mean, stdev float64) {
	xs := make([]float64, len(a.runs))
	for i, r := range a.runs {
		xs[i] = r.Last().CPUTime
	}
	return stat.PopMeanStdDev(xs, nil)
}

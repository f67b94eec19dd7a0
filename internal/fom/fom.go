// Package fom computes Figure-of-Merit series, FOM = 1/(cost * error^2),
// and their statistics over one run.
package fom

import (
	"errors"
	"fmt"
	"math"

	"github.com/montanaflynn/stats"
	"github.com/signalnine/fomstat/internal/result"
	"github.com/signalnine/fomstat/internal/run"
)

var (
	ErrInvalidWindow = errors.New("fom: invalid window")
	ErrInvalidFactor = errors.New("fom: invalid correction factor")
	ErrInvalidCost   = errors.New("fom: non-positive cost")
)

// Basis selects the cost a FOM is normalised by.
type Basis int

const (
	CPU Basis = iota
	Cycles
)

func (b Basis) String() string {
	if b == Cycles {
		return "cycle"
	}
	return "cpu"
}

// ParseBasis accepts "cpu" or "cycle".
func ParseBasis(s string) (Basis, error) {
	switch s {
	case "", "cpu":
		return CPU, nil
	case "cycle", "cycles":
		return Cycles, nil
	}
	return CPU, fmt.Errorf("unknown cost basis %q (want cpu or cycle)", s)
}

// Axis selects the first column of a data table.
type Axis int

const (
	AxisCycle Axis = iota
	AxisCPU
)

type Options struct {
	Basis Basis
	// Cap keeps the leading records whose cost is at most Cap. Zero disables it.
	Cap float64
}

// Value is the FOM of one tally; a zero error contributes no FOM.
func Value(cost, errSq float64) float64 {
	if errSq == 0 {
		return 0
	}
	return 1 / (cost * errSq)
}

// Engine derives FOM quantities from a run. It holds no state of its own.
type Engine struct {
	run *run.Collection
}

func New(c *run.Collection) *Engine { return &Engine{run: c} }

func (e *Engine) Run() *run.Collection { return e.run }

func (e *Engine) cost(basis Basis) []float64 {
	if basis == Cycles {
		cyc := e.run.CycleSeries()
		out := make([]float64, len(cyc))
		for i, c := range cyc {
			out[i] = float64(c)
		}
		return out
	}
	return e.run.CPUSeries()
}

// capped returns how many leading records fit under the cap. Every kept
// record must have a positive cost.
func capped(cost []float64, limit float64) (int, error) {
	if limit < 0 || math.IsNaN(limit) {
		return 0, fmt.Errorf("%w: cap must not be negative, got %g", ErrInvalidWindow, limit)
	}
	n := len(cost)
	if limit > 0 {
		n = 0
		for n < len(cost) && cost[n] <= limit {
			n++
		}
	}
	for i, c := range cost[:n] {
		if err := CheckCost(c); err != nil {
			return 0, fmt.Errorf("record %d: %w", i+1, err)
		}
	}
	return n, nil
}

// CheckCost rejects costs a FOM cannot be normalised by, such as cycle 0.
func CheckCost(cost float64) error {
	if !(cost > 0) || math.IsInf(cost, 0) {
		return fmt.Errorf("%w: %g", ErrInvalidCost, cost)
	}
	return nil
}

// FOM returns one FOM per record for the single coordinate entry.
func (e *Engine) FOM(quantity string, entry result.Entry, opts Options) ([]float64, error) {
	errs, err := e.run.ErrorSeries(quantity, entry)
	if err != nil {
		return nil, err
	}
	cost := e.cost(opts.Basis)
	n, err := capped(cost, opts.Cap)
	if err != nil {
		return nil, err
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = Value(cost[i], errs[i]*errs[i])
	}
	return out, nil
}

// FOMCorrected replaces measured cpu time with cycle cost scaled by factor:
// factor / (cycle * error^2).
func (e *Engine) FOMCorrected(quantity string, entry result.Entry, factor float64) ([]float64, error) {
	if err := checkFactor(factor); err != nil {
		return nil, err
	}
	raw, err := e.FOM(quantity, entry, Options{Basis: Cycles})
	if err != nil {
		return nil, err
	}
	for i := range raw {
		raw[i] *= factor
	}
	return raw, nil
}

func checkFactor(factor float64) error {
	if !(factor > 0) || math.IsInf(factor, 0) {
		return fmt.Errorf("%w: %g", ErrInvalidFactor, factor)
	}
	return nil
}

// Variance is the population variance of the FOM series after dropping
// the first skip records.
func (e *Engine) Variance(quantity string, entry result.Entry, opts Options, skip int) (float64, error) {
	series, err := e.FOM(quantity, entry, opts)
	if err != nil {
		return 0, err
	}
	return variance(series, skip)
}

// Std is the population standard deviation of the FOM series without its
// first record, which carries the start-up transient.
func (e *Engine) Std(quantity string, entry result.Entry, opts Options) (float64, error) {
	series, err := e.FOM(quantity, entry, opts)
	if err != nil {
		return 0, err
	}
	return std(series)
}

func (e *Engine) StdCorrected(quantity string, entry result.Entry, factor float64) (float64, error) {
	series, err := e.FOMCorrected(quantity, entry, factor)
	if err != nil {
		return 0, err
	}
	return std(series)
}

func std(series []float64) (float64, error) {
	skip := 1
	if len(series) == 1 {
		skip = 0
	}
	v, err := variance(series, skip)
	if err != nil {
		return 0, err
	}
	return math.Sqrt(v), nil
}

func variance(series []float64, skip int) (float64, error) {
	if skip < 0 || skip >= len(series) {
		return 0, fmt.Errorf("%w: cannot skip %d of %d records", ErrInvalidWindow, skip, len(series))
	}
	return stats.PopulationVariance(series[skip:])
}

// Average is the mean FOM over the trailing lastN records, or over all of
// them when lastN is zero.
func (e *Engine) Average(quantity string, entry result.Entry, lastN int, opts Options) (float64, error) {
	series, err := e.FOM(quantity, entry, opts)
	if err != nil {
		return 0, err
	}
	return trailingMean(series, lastN)
}

func trailingMean(series []float64, lastN int) (float64, error) {
	if lastN < 0 || lastN > len(series) {
		return 0, fmt.Errorf("%w: last %d of %d records", ErrInvalidWindow, lastN, len(series))
	}
	if lastN == 0 {
		lastN = len(series)
	}
	if lastN == 0 {
		return 0, fmt.Errorf("%w: no records under the cap", ErrInvalidWindow)
	}
	return stats.Mean(series[len(series)-lastN:])
}

package fom

import (
	"fmt"

	"github.com/signalnine/fomstat/internal/result"
)

// Table holds one row per record. The first column is the x axis.
type Table struct {
	Columns []string    `json:"columns"`
	Rows    [][]float64 `json:"rows"`
}

// Column returns column i across all rows.
func (t *Table) Column(i int) []float64 {
	out := make([]float64, len(t.Rows))
	for r, row := range t.Rows {
		out[r] = row[i]
	}
	return out
}

func (e *Engine) axis(a Axis) (string, []float64) {
	if a == AxisCPU {
		return "cpu_time", e.run.CPUSeries()
	}
	return "cycle", e.cost(Cycles)
}

// Data tabulates the FOM (or the raw relative error) of every coordinate of
// entry, one row per record.
func (e *Engine) Data(quantity string, entry result.Entry, axis Axis, fom bool, opts Options) (*Table, error) {
	rows, err := e.run.Pairs(quantity, entry)
	if err != nil {
		return nil, err
	}
	cost := e.cost(opts.Basis)
	n, err := capped(cost, opts.Cap)
	if err != nil {
		return nil, err
	}
	label, xs := e.axis(axis)

	t := &Table{Columns: append([]string{label}, entry.Labels(quantity)...)}
	for i := 0; i < n; i++ {
		row := make([]float64, 0, len(rows[i])+1)
		row = append(row, xs[i])
		for _, p := range rows[i] {
			if fom {
				row = append(row, Value(cost[i], p.Error*p.Error))
			} else {
				row = append(row, p.Error)
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// DataCorrected tabulates factor / (cycle * error^2) for every coordinate of
// entry. limit caps the cycle cost.
func (e *Engine) DataCorrected(quantity string, entry result.Entry, axis Axis, factor, limit float64) (*Table, error) {
	if err := checkFactor(factor); err != nil {
		return nil, err
	}
	t, err := e.Data(quantity, entry, axis, true, Options{Basis: Cycles, Cap: limit})
	if err != nil {
		return nil, err
	}
	for _, row := range t.Rows {
		for j := 1; j < len(row); j++ {
			row[j] *= factor
		}
	}
	return t, nil
}

// Collapse sums the coordinates of entry per record: squared errors turned
// into a FOM when fom is set, plain errors otherwise. Groups address the
// flattened quantity, so Groups(1, 3, 2) on a 2x2 matrix collapses the
// (1,1), (2,1) and (1,2) cells.
func (e *Engine) Collapse(quantity string, entry result.Entry, fom bool, opts Options) (*Table, error) {
	rows, err := e.run.Pairs(quantity, entry)
	if err != nil {
		return nil, err
	}
	cost := e.cost(opts.Basis)
	n, err := capped(cost, opts.Cap)
	if err != nil {
		return nil, err
	}
	_, cyc := e.axis(AxisCycle)

	col := fmt.Sprintf("%s[%s]", quantity, entry.String())
	t := &Table{Columns: []string{"cycle", col}}
	for i := 0; i < n; i++ {
		var sum float64
		for _, p := range rows[i] {
			if fom {
				sum += p.Error * p.Error
			} else {
				sum += p.Error
			}
		}
		if fom {
			sum = Value(cost[i], sum)
		}
		t.Rows = append(t.Rows, []float64{cyc[i], sum})
	}
	return t, nil
}

// CollapseAverage is the trailing mean of the collapsed FOM.
func (e *Engine) CollapseAverage(quantity string, entry result.Entry, lastN int, opts Options) (float64, error) {
	t, err := e.Collapse(quantity, entry, true, opts)
	if err != nil {
		return 0, err
	}
	return trailingMean(t.Column(1), lastN)
}

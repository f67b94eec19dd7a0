package multirun

import (
	"github.com/signalnine/fomstat/internal/result"
	"github.com/signalnine/fomstat/internal/run"
)

// StudyRow is one run of a study table.
type StudyRow struct {
	Source string     `json:"source"`
	Params run.Params `json:"params"`
	Values []float64  `json:"values"`
}

// StudyTable lays the statistic of each requested entry out per run.
type StudyTable struct {
	Quantity string     `json:"quantity"`
	Stat     string     `json:"stat"`
	Params   []string   `json:"params"`
	Columns  []string   `json:"columns"`
	Rows     []StudyRow `json:"rows"`
}

// Table evaluates s for the coordinates of entry in every run.
func (a *Aggregator) Table(quantity string, entry result.Entry, s Stat) (*StudyTable, error) {
	q, err := a.shape(quantity)
	if err != nil {
		return nil, err
	}
	idx, err := entry.Resolve(q)
	if err != nil {
		return nil, err
	}

	t := &StudyTable{
		Quantity: quantity,
		Stat:     s.Kind.String(),
		Params:   paramNames(a.runs),
		Columns:  entry.Labels(quantity),
	}
	for _, c := range a.runs {
		vals, err := statistic(c, q, s)
		if err != nil {
			return nil, err
		}
		row := StudyRow{Source: c.Source(), Params: c.Params(), Values: make([]float64, len(idx))}
		for i, k := range idx {
			row.Values[i] = vals[k]
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// paramNames is the union of parameter names in first-seen order.
func paramNames(runs []*run.Collection) []string {
	seen := map[string]bool{}
	var names []string
	for _, r := range runs {
		for _, n := range r.Params().Names() {
			if !seen[n] {
				seen[n] = true
				names = append(names, n)
			}
		}
	}
	return names
}

package report

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/signalnine/fomstat/internal/multirun"
	"github.com/signalnine/fomstat/internal/result"
	"github.com/signalnine/fomstat/internal/run"
	"gonum.org/v1/gonum/mat"
)

var ErrUnknownFormat = errors.New("report: unknown format")

// Formats lists the accepted output formats.
var Formats = []string{"table", "markdown", "json", "csv", "xlsx"}

// Request names one quantity of a study summary. A nil Entry omits the
// per-run table.
type Request struct {
	Quantity string
	Entry    *result.Entry
	Stat     multirun.Stat
}

type QuantitySummary struct {
	Name  string               `json:"name"`
	Stat  string               `json:"stat"`
	Basis string               `json:"basis"`
	Mean  [][]float64          `json:"mean"`
	Stdev [][]float64          `json:"stdev"`
	Table *multirun.StudyTable `json:"table,omitempty"`
}

type Summary struct {
	Runs       int               `json:"runs"`
	CPUMean    float64           `json:"cpu_mean"`
	CPUStdev   float64           `json:"cpu_stdev"`
	Quantities []QuantitySummary `json:"quantities"`
}

// Summarize evaluates every request against the aggregated runs.
func Summarize(agg *multirun.Aggregator, reqs []Request) (*Summary, error) {
	s := &Summary{Runs: agg.Len()}
	s.CPUMean, s.CPUStdev = agg.CPU()
	for _, r := range reqs {
		mean, err := agg.Mean(r.Quantity, r.Stat)
		if err != nil {
			return nil, fmt.Errorf("quantity %s: %w", r.Quantity, err)
		}
		sd, err := agg.Stdev(r.Quantity, r.Stat)
		if err != nil {
			return nil, fmt.Errorf("quantity %s: %w", r.Quantity, err)
		}
		qs := QuantitySummary{
			Name:  r.Quantity,
			Stat:  r.Stat.Kind.String(),
			Basis: r.Stat.Basis.String(),
			Mean:  rows(mean),
			Stdev: rows(sd),
		}
		if r.Entry != nil {
			tbl, err := agg.Table(r.Quantity, *r.Entry, r.Stat)
			if err != nil {
				return nil, fmt.Errorf("quantity %s: %w", r.Quantity, err)
			}
			qs.Table = tbl
		}
		s.Quantities = append(s.Quantities, qs)
	}
	return s, nil
}

func rows(m *mat.Dense) [][]float64 {
	r, _ := m.Dims()
	out := make([][]float64, r)
	for i := range out {
		out[i] = mat.Row(nil, i, m)
	}
	return out
}

// Generate renders a study summary.
func Generate(s *Summary, format string, w io.Writer) error {
	switch format {
	case "", "table":
		return writeTable(s, w)
	case "markdown":
		return writeMarkdown(s, w)
	case "json":
		return writeJSON(s, w)
	case "csv":
		return writeCSV(s, w)
	case "xlsx":
		return writeXLSX(s, w)
	}
	return fmt.Errorf("%w %q (want %s)", ErrUnknownFormat, format, strings.Join(Formats, ", "))
}

func num(v float64) string { return strconv.FormatFloat(v, 'g', 8, 64) }

func paramValue(p run.Params, name string) string {
	v, err := p.Get(name)
	if err != nil {
		return "-"
	}
	return fmt.Sprint(v)
}

func writeTable(s *Summary, w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "RUNS\t%d\n", s.Runs)
	fmt.Fprintf(tw, "CPU TIME\t%s ± %s\n", num(s.CPUMean), num(s.CPUStdev))
	for _, q := range s.Quantities {
		fmt.Fprintf(tw, "\n%s (%s, %s)\n", q.Name, q.Stat, q.Basis)
		fmt.Fprintln(tw, "ROW\tCOL\tMEAN\tSTDEV")
		fmt.Fprintln(tw, strings.Repeat("-", 48))
		for i := range q.Mean {
			for j := range q.Mean[i] {
				fmt.Fprintf(tw, "%d\t%d\t%s\t%s\n", i+1, j+1, num(q.Mean[i][j]), num(q.Stdev[i][j]))
			}
		}
		if q.Table == nil {
			continue
		}
		fmt.Fprintln(tw)
		header := append([]string{"SOURCE"}, q.Table.Params...)
		header = append(header, q.Table.Columns...)
		fmt.Fprintln(tw, strings.Join(header, "\t"))
		for _, r := range q.Table.Rows {
			fmt.Fprintln(tw, strings.Join(studyRow(q.Table, r), "\t"))
		}
	}
	return tw.Flush()
}

func studyRow(t *multirun.StudyTable, r multirun.StudyRow) []string {
	cells := []string{r.Source}
	for _, p := range t.Params {
		cells = append(cells, paramValue(r.Params, p))
	}
	for _, v := range r.Values {
		cells = append(cells, num(v))
	}
	return cells
}

func writeMarkdown(s *Summary, w io.Writer) error {
	fmt.Fprintf(w, "**Runs:** %d  \n**CPU time:** %s ± %s\n", s.Runs, num(s.CPUMean), num(s.CPUStdev))
	for _, q := range s.Quantities {
		fmt.Fprintf(w, "\n### %s (%s, %s)\n\n", q.Name, q.Stat, q.Basis)
		fmt.Fprintln(w, "| Row | Col | Mean | Stdev |")
		fmt.Fprintln(w, "|---|---|---|---|")
		for i := range q.Mean {
			for j := range q.Mean[i] {
				fmt.Fprintf(w, "| %d | %d | %s | %s |\n", i+1, j+1, num(q.Mean[i][j]), num(q.Stdev[i][j]))
			}
		}
		if q.Table == nil {
			continue
		}
		header := append([]string{"Source"}, q.Table.Params...)
		header = append(header, q.Table.Columns...)
		fmt.Fprintf(w, "\n| %s |\n", strings.Join(header, " | "))
		fmt.Fprintf(w, "|%s\n", strings.Repeat("---|", len(header)))
		for _, r := range q.Table.Rows {
			fmt.Fprintf(w, "| %s |\n", strings.Join(studyRow(q.Table, r), " | "))
		}
	}
	return nil
}

func writeJSON(v any, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeCSV emits one long-format row per quantity cell.
func writeCSV(s *Summary, w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"quantity", "stat", "basis", "row", "col", "mean", "stdev"}); err != nil {
		return err
	}
	cpu := []string{"CPU_TIME", "final", "cpu", "1", "1", num(s.CPUMean), num(s.CPUStdev)}
	if err := cw.Write(cpu); err != nil {
		return err
	}
	for _, q := range s.Quantities {
		for i := range q.Mean {
			for j := range q.Mean[i] {
				rec := []string{q.Name, q.Stat, q.Basis, strconv.Itoa(i + 1), strconv.Itoa(j + 1), num(q.Mean[i][j]), num(q.Stdev[i][j])}
				if err := cw.Write(rec); err != nil {
					return err
				}
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

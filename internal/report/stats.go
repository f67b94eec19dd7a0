package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// StatRow holds the convergence statistics of one coordinate of a run.
// StdCorrected is nil when no correction factor could be derived.
type StatRow struct {
	Label        string   `json:"label"`
	Final        float64  `json:"final"`
	Average      float64  `json:"average"`
	Std          float64  `json:"std"`
	Variance     float64  `json:"variance"`
	StdCorrected *float64 `json:"std_corrected,omitempty"`
}

var statColumns = []string{"entry", "final", "average", "std", "variance", "std_corrected"}

func (r StatRow) cells() []string {
	corrected := "-"
	if r.StdCorrected != nil {
		corrected = num(*r.StdCorrected)
	}
	return []string{r.Label, num(r.Final), num(r.Average), num(r.Std), num(r.Variance), corrected}
}

// WriteStats renders one line per coordinate.
func WriteStats(rows []StatRow, format string, w io.Writer) error {
	switch format {
	case "", "table":
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, strings.ToUpper(strings.Join(statColumns, "\t")))
		for _, r := range rows {
			fmt.Fprintln(tw, strings.Join(r.cells(), "\t"))
		}
		return tw.Flush()
	case "markdown":
		fmt.Fprintf(w, "| %s |\n", strings.Join(statColumns, " | "))
		fmt.Fprintf(w, "|%s\n", strings.Repeat("---|", len(statColumns)))
		for _, r := range rows {
			fmt.Fprintf(w, "| %s |\n", strings.Join(r.cells(), " | "))
		}
		return nil
	case "json":
		return writeJSON(rows, w)
	case "csv":
		cw := csv.NewWriter(w)
		if err := cw.Write(statColumns); err != nil {
			return err
		}
		for _, r := range rows {
			if err := cw.Write(r.cells()); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	case "xlsx":
		f, err := newWorkbook(dataSheet)
		if err != nil {
			return err
		}
		header := make([]any, len(statColumns))
		for i, c := range statColumns {
			header[i] = c
		}
		if err := setRow(f, dataSheet, 1, header...); err != nil {
			f.Close()
			return err
		}
		for i, r := range rows {
			var corrected any = "-"
			if r.StdCorrected != nil {
				corrected = *r.StdCorrected
			}
			if err := setRow(f, dataSheet, i+2, r.Label, r.Final, r.Average, r.Std, r.Variance, corrected); err != nil {
				f.Close()
				return err
			}
		}
		return flush(f, w)
	}
	return fmt.Errorf("%w %q (want %s)", ErrUnknownFormat, format, strings.Join(Formats, ", "))
}

package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/signalnine/fomstat/internal/fom"
)

// WriteTable renders a per-record table as produced by fom.Engine.
func WriteTable(t *fom.Table, format string, w io.Writer) error {
	switch format {
	case "", "table":
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, strings.ToUpper(strings.Join(t.Columns, "\t")))
		for _, row := range t.Rows {
			fmt.Fprintln(tw, strings.Join(formatRow(row), "\t"))
		}
		return tw.Flush()
	case "markdown":
		fmt.Fprintf(w, "| %s |\n", strings.Join(t.Columns, " | "))
		fmt.Fprintf(w, "|%s\n", strings.Repeat("---|", len(t.Columns)))
		for _, row := range t.Rows {
			fmt.Fprintf(w, "| %s |\n", strings.Join(formatRow(row), " | "))
		}
		return nil
	case "json":
		return writeJSON(t, w)
	case "csv":
		cw := csv.NewWriter(w)
		if err := cw.Write(t.Columns); err != nil {
			return err
		}
		for _, row := range t.Rows {
			if err := cw.Write(formatRow(row)); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	case "xlsx":
		return writeTableXLSX(t, w)
	}
	return fmt.Errorf("%w %q (want %s)", ErrUnknownFormat, format, strings.Join(Formats, ", "))
}

func formatRow(row []float64) []string {
	out := make([]string, len(row))
	for i, v := range row {
		out[i] = num(v)
	}
	return out
}

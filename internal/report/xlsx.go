package report

import (
	"fmt"
	"io"

	"github.com/signalnine/fomstat/internal/fom"
	"github.com/xuri/excelize/v2"
)

const (
	summarySheet = "summary"
	dataSheet    = "data"
	// excel limits sheet names to 31 characters
	maxSheetName = 31
)

func setRow(f *excelize.File, sheet string, row int, vals ...any) error {
	for i, v := range vals {
		cell, err := excelize.CoordinatesToCellName(i+1, row)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return err
		}
	}
	return nil
}

func newWorkbook(first string) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", first); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

func flush(f *excelize.File, w io.Writer) error {
	defer f.Close()
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

func writeTableXLSX(t *fom.Table, w io.Writer) error {
	f, err := newWorkbook(dataSheet)
	if err != nil {
		return err
	}
	header := make([]any, len(t.Columns))
	for i, c := range t.Columns {
		header[i] = c
	}
	if err := setRow(f, dataSheet, 1, header...); err != nil {
		f.Close()
		return err
	}
	for r, row := range t.Rows {
		vals := make([]any, len(row))
		for i, v := range row {
			vals[i] = v
		}
		if err := setRow(f, dataSheet, r+2, vals...); err != nil {
			f.Close()
			return err
		}
	}
	return flush(f, w)
}

// sheetName is unique per quantity position; names may repeat in a study.
func sheetName(i int, name string) string {
	s := fmt.Sprintf("%d_%s", i+1, name)
	if len(s) > maxSheetName {
		s = s[:maxSheetName]
	}
	return s
}

// writeXLSX puts the run count and cpu time on the summary sheet and one
// sheet per quantity: the mean/stdev cells, then the per-run table.
func writeXLSX(s *Summary, w io.Writer) error {
	f, err := newWorkbook(summarySheet)
	if err != nil {
		return err
	}
	if err := fillWorkbook(f, s); err != nil {
		f.Close()
		return err
	}
	return flush(f, w)
}

func fillWorkbook(f *excelize.File, s *Summary) error {
	if err := setRow(f, summarySheet, 1, "runs", s.Runs); err != nil {
		return err
	}
	if err := setRow(f, summarySheet, 2, "cpu_mean", s.CPUMean); err != nil {
		return err
	}
	if err := setRow(f, summarySheet, 3, "cpu_stdev", s.CPUStdev); err != nil {
		return err
	}
	if err := setRow(f, summarySheet, 5, "sheet", "quantity", "stat", "basis"); err != nil {
		return err
	}

	for i, q := range s.Quantities {
		name := sheetName(i, q.Name)
		if err := setRow(f, summarySheet, 6+i, name, q.Name, q.Stat, q.Basis); err != nil {
			return err
		}
		if _, err := f.NewSheet(name); err != nil {
			return err
		}
		if err := setRow(f, name, 1, "row", "col", "mean", "stdev"); err != nil {
			return err
		}
		row := 2
		for r := range q.Mean {
			for c := range q.Mean[r] {
				if err := setRow(f, name, row, r+1, c+1, q.Mean[r][c], q.Stdev[r][c]); err != nil {
					return err
				}
				row++
			}
		}
		if q.Table == nil {
			continue
		}
		row++
		header := []any{"source"}
		for _, p := range q.Table.Params {
			header = append(header, p)
		}
		for _, c := range q.Table.Columns {
			header = append(header, c)
		}
		if err := setRow(f, name, row, header...); err != nil {
			return err
		}
		for _, sr := range q.Table.Rows {
			row++
			vals := []any{sr.Source}
			for _, p := range q.Table.Params {
				if v, err := sr.Params.Get(p); err == nil {
					vals = append(vals, v)
				} else {
					vals = append(vals, "-")
				}
			}
			for _, v := range sr.Values {
				vals = append(vals, v)
			}
			if err := setRow(f, name, row, vals...); err != nil {
				return err
			}
		}
	}
	return nil
}

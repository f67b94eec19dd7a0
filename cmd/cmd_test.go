package cmd

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/signalnine/fomstat/internal/fom"
	"github.com/signalnine/fomstat/internal/report"
	"github.com/signalnine/fomstat/internal/result"
	"github.com/signalnine/fomstat/internal/run"
)

const (
	fixtureRun   = "../testdata/fom_data"
	fixtureStudy = "../testdata/study.yaml"
)

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	root := NewRootCmd()
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func near(a, b float64) bool {
	return math.Abs(a-b) <= 1e-9*math.Max(math.Abs(a), math.Abs(b))
}

func TestParseAxis(t *testing.T) {
	tests := []struct {
		in   string
		want fom.Axis
	}{
		{"", fom.AxisCycle},
		{"cycle", fom.AxisCycle},
		{"cpu", fom.AxisCPU},
		{"cpu_time", fom.AxisCPU},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseAxis(tt.in)
			if err != nil || got != tt.want {
				t.Errorf("parseAxis(%q) = %v, %v; want %v", tt.in, got, err, tt.want)
			}
		})
	}
	if _, err := parseAxis("wall"); err == nil {
		t.Error("expected error for unknown axis")
	}
}

func TestCorrectionFactor(t *testing.T) {
	c, err := run.Load(fixtureRun, nil)
	if err != nil {
		t.Fatal(err)
	}
	k, err := correctionFactor(c, 0)
	if err != nil || !near(k, 1) {
		t.Errorf("expected mean cycles per cpu second 1, got %v (%v)", k, err)
	}
	if k, _ := correctionFactor(c, 2.5); k != 2.5 {
		t.Errorf("expected explicit factor, got %v", k)
	}

	rec, err := result.NewRecord("only.m", 1, 1, []*result.Quantity{result.NewVector("Q", []result.Pair{{Value: 1, Error: 0.1}})})
	if err != nil {
		t.Fatal(err)
	}
	single, err := run.New("single", []*result.Record{rec}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := correctionFactor(single, 0); !errors.Is(err, run.ErrEmptyRun) {
		t.Errorf("expected ErrEmptyRun, got %v", err)
	}
}

func TestListCmd(t *testing.T) {
	out, _, err := execute(t, "list", fixtureRun)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	for _, want := range []string{"(3 files)", "res_10.m", "res_30.m", "TEST_MAT (2x2)", "TEST_VAL (2)"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
	if strings.Contains(out, "notes.txt") {
		t.Error("non-result file listed")
	}
}

func TestListVerbose(t *testing.T) {
	_, logs, err := execute(t, "list", "-v", fixtureRun)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(logs, "loaded 3 files") {
		t.Errorf("expected load log, got:\n%s", logs)
	}
}

func TestFOMCmd(t *testing.T) {
	out, _, err := execute(t, "fom", fixtureRun, "-q", "TEST_VAL", "-e", "1,2", "--format", "csv")
	if err != nil {
		t.Fatalf("fom: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected header and 3 rows, got:\n%s", out)
	}
	if lines[0] != "cycle,TEST_VAL[1],TEST_VAL[2]" {
		t.Errorf("unexpected header %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "10,") {
		t.Errorf("unexpected first row %q", lines[1])
	}
}

func TestFOMCmdCorrected(t *testing.T) {
	out, _, err := execute(t, "fom", fixtureRun, "-q", "TEST_VAL", "--corrected", "--factor", "2", "--format", "json")
	if err != nil {
		t.Fatalf("fom: %v", err)
	}
	var tbl fom.Table
	if err := json.Unmarshal([]byte(out), &tbl); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, out)
	}
	want := 2 / (10 * 0.0003 * 0.0003)
	if len(tbl.Rows) != 3 || !near(tbl.Rows[0][1], want) {
		t.Errorf("expected corrected FOM %v, got %v", want, tbl.Rows)
	}
}

func TestFOMCmdCorrectedAxisAndCap(t *testing.T) {
	out, _, err := execute(t, "fom", fixtureRun, "-q", "TEST_VAL", "--corrected", "--factor", "2", "--axis", "cpu", "--cap", "15", "--format", "json")
	if err != nil {
		t.Fatalf("fom: %v", err)
	}
	var tbl fom.Table
	if err := json.Unmarshal([]byte(out), &tbl); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, out)
	}
	if tbl.Columns[0] != "cpu_time" || len(tbl.Rows) != 1 || tbl.Rows[0][0] != 10.5 {
		t.Errorf("expected one cpu_time row under the cycle cap, got %+v", tbl)
	}

	if _, _, err := execute(t, "fom", fixtureRun, "-q", "TEST_VAL", "--corrected", "--errors"); err == nil {
		t.Error("expected error for --corrected with --errors")
	}
	if _, _, err := execute(t, "fom", fixtureRun, "-q", "TEST_VAL", "--corrected", "--basis", "cpu"); err == nil {
		t.Error("expected error for --corrected with --basis cpu")
	}
	if _, _, err := execute(t, "fom", fixtureRun, "-q", "TEST_VAL", "--corrected", "--basis", "cycle"); err != nil {
		t.Errorf("--corrected with --basis cycle: %v", err)
	}
}

func TestFOMCmdErrors(t *testing.T) {
	if _, _, err := execute(t, "fom", fixtureRun); err == nil {
		t.Error("expected error without --quantity")
	}
	_, _, err := execute(t, "fom", "./wrong_file_name", "-q", "TEST_VAL")
	if !errors.Is(err, run.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	_, _, err = execute(t, "fom", fixtureRun, "-q", "TEST_VAL", "-e", "1:1")
	if !errors.Is(err, result.ErrInvalidEntry) {
		t.Errorf("expected ErrInvalidEntry, got %v", err)
	}
	_, _, err = execute(t, "fom", fixtureRun, "-q", "TEST_VAL", "--format", "pdf")
	if !errors.Is(err, report.ErrUnknownFormat) {
		t.Errorf("expected ErrUnknownFormat, got %v", err)
	}
}

func TestCollapseCmd(t *testing.T) {
	out, _, err := execute(t, "collapse", fixtureRun, "-q", "TEST_MAT", "-e", "1,3,2", "--format", "csv")
	if err != nil {
		t.Fatalf("collapse: %v", err)
	}
	recs, err := csv.NewReader(strings.NewReader(out)).ReadAll()
	if err != nil {
		t.Fatalf("invalid CSV: %v\n%s", err, out)
	}
	if len(recs) != 4 || recs[0][0] != "cycle" || recs[0][1] != "TEST_MAT[1,3,2]" {
		t.Errorf("unexpected output:\n%s", out)
	}

	out, _, err = execute(t, "collapse", fixtureRun, "-q", "TEST_MAT", "-e", "1,3,2", "--average", "--last-n", "1")
	if err != nil {
		t.Fatalf("collapse --average: %v", err)
	}
	if !strings.HasPrefix(out, "TEST_MAT[1,3,2]\t") {
		t.Errorf("unexpected output %q", out)
	}

	if _, _, err := execute(t, "collapse", fixtureRun, "-q", "TEST_MAT"); err == nil {
		t.Error("expected error without --entry")
	}
}

func TestStatsCmd(t *testing.T) {
	out, _, err := execute(t, "stats", fixtureRun, "-q", "TEST_VAL", "--format", "json")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	var rows []report.StatRow
	if err := json.Unmarshal([]byte(out), &rows); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, out)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	r := rows[0]
	if r.Label != "TEST_VAL[1]" {
		t.Errorf("unexpected label %q", r.Label)
	}
	if !near(r.Std, 1029588.1647341051) {
		t.Errorf("std = %v", r.Std)
	}
	if math.Abs(r.Average-1852133.92597) > 1e-2 {
		t.Errorf("average = %v", r.Average)
	}
	if !near(r.Final, 1/(30.5*0.0001*0.0001)) {
		t.Errorf("final = %v", r.Final)
	}
}

func TestStatsRowsCapExcludesAll(t *testing.T) {
	c, err := run.Load(fixtureRun, nil)
	if err != nil {
		t.Fatal(err)
	}
	_, err = statRows(c, "TEST_VAL", result.Group(1), fom.Options{Cap: 1}, 0, 1, 0)
	if !errors.Is(err, fom.ErrInvalidWindow) {
		t.Errorf("expected ErrInvalidWindow, got %v", err)
	}
}

func TestStatsRowsWithoutFactor(t *testing.T) {
	rec, err := result.NewRecord("only.m", 10, 10.5, []*result.Quantity{result.NewVector("Q", []result.Pair{{Value: 1, Error: 0.1}})})
	if err != nil {
		t.Fatal(err)
	}
	single, err := run.New("single", []*result.Record{rec}, nil)
	if err != nil {
		t.Fatal(err)
	}
	rows, err := statRows(single, "Q", result.Group(1), fom.Options{}, 0, 0, 0)
	if err != nil {
		t.Fatalf("statRows: %v", err)
	}
	if rows[0].StdCorrected != nil {
		t.Errorf("expected no corrected std without a factor, got %v", *rows[0].StdCorrected)
	}

	rows, err = statRows(single, "Q", result.Group(1), fom.Options{}, 0, 0, 2)
	if err != nil {
		t.Fatalf("statRows: %v", err)
	}
	if rows[0].StdCorrected == nil || *rows[0].StdCorrected != 0 {
		t.Errorf("expected corrected std 0 for a single record, got %v", rows[0].StdCorrected)
	}
}

func TestReportCmd(t *testing.T) {
	out, _, err := execute(t, "report", "--config", fixtureStudy, "--format", "json")
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	var s report.Summary
	if err := json.Unmarshal([]byte(out), &s); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, out)
	}
	if s.Runs != 2 || len(s.Quantities) != 3 {
		t.Fatalf("unexpected summary %+v", s)
	}
	if s.Quantities[0].Basis != "cycle" {
		t.Errorf("expected cycle basis from config, got %q", s.Quantities[0].Basis)
	}
	if s.Quantities[1].Table == nil || s.Quantities[1].Table.Stat != "average" {
		t.Errorf("expected average study table for TEST_MAT, got %+v", s.Quantities[1].Table)
	}
}

func TestReportCmdOutputFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "study.xlsx")
	out, _, err := execute(t, "report", "--config", fixtureStudy, "--format", "xlsx", "-o", path)
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if !strings.Contains(out, path) {
		t.Errorf("expected output path in %q", out)
	}
	info, err := os.Stat(path)
	if err != nil || info.Size() == 0 {
		t.Errorf("expected non-empty workbook: %v", err)
	}
}

func TestValidateCmd(t *testing.T) {
	out, _, err := execute(t, "validate", "--config", fixtureStudy)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !strings.Contains(out, "Config OK: 2 runs, 3 quantities") {
		t.Errorf("unexpected output:\n%s", out)
	}
	if !strings.Contains(out, "param=0.2") {
		t.Errorf("expected run params in output:\n%s", out)
	}

	_, _, err = execute(t, "validate", "--config", "../testdata/invalid.yaml")
	if err == nil {
		t.Error("expected error for invalid config")
	}
}

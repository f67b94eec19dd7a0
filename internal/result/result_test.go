package result_test

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/signalnine/fomstat/internal/result"
)

func testRecord(t *testing.T, name string, cycle int, cpu float64) *result.Record {
	t.Helper()
	mat, err := result.NewMatrix("TEST_MAT", 2, 2, []result.Pair{
		{Value: 1, Error: 0.1}, {Value: 2, Error: 0.2},
		{Value: 3, Error: 0.3}, {Value: 4, Error: 0.4},
	})
	if err != nil {
		t.Fatalf("NewMatrix: %v", err)
	}
	vec := result.NewVector("TEST_VAL", []result.Pair{{Value: 10, Error: 0.01}, {Value: 20, Error: 0.02}})
	rec, err := result.NewRecord(name, cycle, cpu, []*result.Quantity{vec, mat})
	if err != nil {
		t.Fatalf("NewRecord: %v", err)
	}
	return rec
}

func TestRecordGet(t *testing.T) {
	rec := testRecord(t, "res_1.m", 1, 1.5)

	tests := []struct {
		name   string
		qty    string
		entry  result.Entry
		errors []float64
	}{
		{"single group", "TEST_VAL", result.Group(2), []float64{0.02}},
		{"group list", "TEST_VAL", result.Groups(2, 1), []float64{0.02, 0.01}},
		{"single cell", "TEST_MAT", result.Cell(2, 1), []float64{0.3}},
		{"cell list", "TEST_MAT", result.Cells(result.Coord{Row: 1, Col: 2}, result.Coord{Row: 2, Col: 2}), []float64{0.2, 0.4}},
		{"flat group on matrix", "TEST_MAT", result.Groups(1, 3, 2), []float64{0.1, 0.3, 0.2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pairs, err := rec.Get(tt.qty, tt.entry)
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			var got []float64
			for _, p := range pairs {
				got = append(got, p.Error)
			}
			if !slices.Equal(got, tt.errors) {
				t.Errorf("got %v, want %v", got, tt.errors)
			}
		})
	}
}

func TestRecordGetInvalid(t *testing.T) {
	rec := testRecord(t, "res_1.m", 1, 1.5)

	tests := []struct {
		name  string
		qty   string
		entry result.Entry
	}{
		{"cell on vector", "TEST_VAL", result.Cell(1, 1)},
		{"cells on vector", "TEST_VAL", result.Cells(result.Coord{Row: 1, Col: 1}, result.Coord{Row: 1, Col: 2})},
		{"row out of range", "TEST_MAT", result.Cell(5, 1)},
		{"col out of range", "TEST_MAT", result.Cells(result.Coord{Row: 1, Col: 1}, result.Coord{Row: 1, Col: 3})},
		{"group zero", "TEST_VAL", result.Group(0)},
		{"group past end", "TEST_MAT", result.Group(5)},
		{"empty", "TEST_VAL", result.Groups()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := rec.Get(tt.qty, tt.entry); !errors.Is(err, result.ErrInvalidEntry) {
				t.Errorf("expected ErrInvalidEntry, got %v", err)
			}
		})
	}

	if _, err := rec.Get("MISSING", result.Group(1)); !errors.Is(err, result.ErrUnknownQuantity) {
		t.Errorf("expected ErrUnknownQuantity, got %v", err)
	}
}

func TestNewRecordValidation(t *testing.T) {
	vec := result.NewVector("A", []result.Pair{{Value: 1, Error: 0.1}})
	tests := []struct {
		name  string
		cycle int
		cpu   float64
		qs    []*result.Quantity
	}{
		{"negative cycle", -1, 1, nil},
		{"zero cpu", 1, 0, nil},
		{"duplicate quantity", 1, 1, []*result.Quantity{vec, vec}},
		{"negative error", 1, 1, []*result.Quantity{result.NewVector("B", []result.Pair{{Value: 1, Error: -1}})}},
		{"empty quantity", 1, 1, []*result.Quantity{result.NewVector("C", nil)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := result.NewRecord("x.m", tt.cycle, tt.cpu, tt.qs); !errors.Is(err, result.ErrInvalidRecord) {
				t.Errorf("expected ErrInvalidRecord, got %v", err)
			}
		})
	}
	if _, err := result.NewMatrix("M", 2, 2, []result.Pair{{}}); !errors.Is(err, result.ErrInvalidRecord) {
		t.Errorf("NewMatrix with wrong pair count: got %v", err)
	}
}

func TestRecordQuantityIsCopy(t *testing.T) {
	rec := testRecord(t, "res_1.m", 1, 1.5)
	q, _ := rec.Quantity("TEST_VAL")
	q.Pairs[0].Error = 99
	again, _ := rec.Quantity("TEST_VAL")
	if again.Pairs[0].Error != 0.01 {
		t.Errorf("record mutated through returned quantity: %g", again.Pairs[0].Error)
	}
	if names := rec.Names(); !slices.Equal(names, []string{"TEST_MAT", "TEST_VAL"}) {
		t.Errorf("Names: got %v", names)
	}
}

func TestCompare(t *testing.T) {
	recs := []*result.Record{
		testRecord(t, "b.m", 30, 3),
		testRecord(t, "z.m", 10, 1),
		testRecord(t, "a.m", 30, 3),
		testRecord(t, "c.m", 20, 2),
	}
	slices.SortStableFunc(recs, result.Compare)
	var got []string
	for _, r := range recs {
		got = append(got, r.Filename)
	}
	want := []string{"z.m", "c.m", "a.m", "b.m"}
	if !slices.Equal(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestParseEntry(t *testing.T) {
	tests := []struct {
		in     string
		want   string
		isCell bool
		n      int
	}{
		{"1", "1", false, 1},
		{" 1, 3 ,2", "1,3,2", false, 3},
		{"1:2", "1:2", true, 1},
		{"1:1,1:2,2:1", "1:1,1:2,2:1", true, 3},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			e, err := result.ParseEntry(tt.in)
			if err != nil {
				t.Fatalf("ParseEntry: %v", err)
			}
			if e.String() != tt.want || e.IsCell() != tt.isCell || e.Len() != tt.n {
				t.Errorf("got %q cell=%v len=%d", e.String(), e.IsCell(), e.Len())
			}
		})
	}

	for _, bad := range []string{"", "1,", "a", "1:b", "1,1:2", "x:1"} {
		if _, err := result.ParseEntry(bad); !errors.Is(err, result.ErrInvalidEntry) {
			t.Errorf("ParseEntry(%q): expected ErrInvalidEntry, got %v", bad, err)
		}
	}
}

func TestEntryLabelsAndSplit(t *testing.T) {
	e := result.Cells(result.Coord{Row: 1, Col: 2}, result.Coord{Row: 2, Col: 1})
	if got := e.Labels("M"); !slices.Equal(got, []string{"M[1,2]", "M[2,1]"}) {
		t.Errorf("Labels: got %v", got)
	}
	parts := e.Split()
	if len(parts) != 2 || parts[1].String() != "2:1" {
		t.Errorf("Split: got %v", parts)
	}
	if got := result.Groups(3, 4).Labels("V"); !slices.Equal(got, []string{"V[3]", "V[4]"}) {
		t.Errorf("Labels: got %v", got)
	}
}

func TestListFiles(t *testing.T) {
	files, err := result.ListFiles("../../testdata/fom_data", "")
	if err != nil {
		t.Fatalf("ListFiles: %v", err)
	}
	abs, _ := filepath.Abs("../../testdata/fom_data")
	want := []string{
		filepath.Join(abs, "res_10.m"),
		filepath.Join(abs, "res_20.m"),
		filepath.Join(abs, "res_30.m"),
	}
	if !slices.Equal(files, want) {
		t.Errorf("got %v, want %v", files, want)
	}
}

func TestListFilesSkipsDirectories(t *testing.T) {
	dir := t.TempDir()
	os.Mkdir(filepath.Join(dir, "sub.m"), 0o755)
	os.WriteFile(filepath.Join(dir, "a_res.m"), []byte(""), 0o644)
	files, err := result.ListFiles(dir, "*_res.m")
	if err != nil {
		t.Fatalf("ListFiles: %v", err)
	}
	if len(files) != 1 || filepath.Base(files[0]) != "a_res.m" {
		t.Errorf("got %v", files)
	}
}

func TestListFilesMissing(t *testing.T) {
	_, err := result.ListFiles("./wrong_file_name/", "")
	if !errors.Is(err, result.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := result.ListFiles(".", "[bad"); err == nil {
		t.Error("expected error for bad pattern")
	}
}

func TestListFilesFollowsSymlinks(t *testing.T) {
	src, _ := filepath.Abs("../../testdata/fom_data/res_10.m")
	dir := t.TempDir()
	if err := os.Symlink(src, filepath.Join(dir, "res_10.m")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}
	os.Symlink(filepath.Join(dir, "missing.m"), filepath.Join(dir, "dangling.m"))
	os.Mkdir(filepath.Join(dir, "sub"), 0o755)
	os.Symlink(filepath.Join(dir, "sub"), filepath.Join(dir, "sub.m"))

	files, err := result.ListFiles(dir, "")
	if err != nil {
		t.Fatalf("ListFiles: %v", err)
	}
	if len(files) != 1 || filepath.Base(files[0]) != "res_10.m" {
		t.Errorf("expected only the linked result file, got %v", files)
	}
}

func TestNewRecordCopiesQuantities(t *testing.T) {
	pairs := []result.Pair{{Value: 1, Error: 0.1}, {Value: 2, Error: 0.2}}
	q := result.NewVector("A", pairs)
	rec, err := result.NewRecord("x.m", 1, 1, []*result.Quantity{q})
	if err != nil {
		t.Fatalf("NewRecord: %v", err)
	}
	pairs[0].Error = -5
	q.Pairs[1].Error = -5
	got, err := rec.Get("A", result.Groups(1, 2))
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got[0].Error != 0.1 || got[1].Error != 0.2 {
		t.Errorf("record changed after construction: %v", got)
	}
}

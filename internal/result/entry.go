package result

import (
	"fmt"
	"strconv"
	"strings"
)

// Coord is a 1-based matrix position.
type Coord struct {
	Row int `json:"row" yaml:"row"`
	Col int `json:"col" yaml:"col"`
}

type entryKind int

const (
	kindGroup entryKind = iota
	kindGroups
	kindCell
	kindCells
)

// Entry addresses one or more pairs of a quantity. Groups are 1-based
// positions in the flattened quantity; cells are 1-based (row, col)
// positions and are only valid on matrices.
type Entry struct {
	kind   entryKind
	groups []int
	cells  []Coord
}

func Group(g int) Entry { return Entry{kind: kindGroup, groups: []int{g}} }

func Groups(gs ...int) Entry {
	return Entry{kind: kindGroups, groups: append([]int(nil), gs...)}
}

func Cell(row, col int) Entry {
	return Entry{kind: kindCell, cells: []Coord{{Row: row, Col: col}}}
}

func Cells(cs ...Coord) Entry {
	return Entry{kind: kindCells, cells: append([]Coord(nil), cs...)}
}

// IsCell reports whether e uses (row, col) addressing.
func (e Entry) IsCell() bool { return e.kind == kindCell || e.kind == kindCells }

// Len is the number of coordinates e names.
func (e Entry) Len() int {
	if e.IsCell() {
		return len(e.cells)
	}
	return len(e.groups)
}

// Resolve maps e onto 0-based indices into q.Pairs.
func (e Entry) Resolve(q *Quantity) ([]int, error) {
	if e.Len() == 0 {
		return nil, fmt.Errorf("%w: empty entry for %s", ErrInvalidEntry, q.Name)
	}
	out := make([]int, 0, e.Len())
	if e.IsCell() {
		if !q.Matrix {
			return nil, fmt.Errorf("%w: %s is not a matrix quantity", ErrInvalidEntry, q.Name)
		}
		for _, c := range e.cells {
			if c.Row < 1 || c.Row > q.Rows || c.Col < 1 || c.Col > q.Cols {
				return nil, fmt.Errorf("%w: (%d,%d) outside %s of shape %s", ErrInvalidEntry, c.Row, c.Col, q.Name, q.Shape())
			}
			out = append(out, (c.Row-1)*q.Cols+(c.Col-1))
		}
		return out, nil
	}
	for _, g := range e.groups {
		if g < 1 || g > q.Len() {
			return nil, fmt.Errorf("%w: group %d outside %s with %d entries", ErrInvalidEntry, g, q.Name, q.Len())
		}
		out = append(out, g-1)
	}
	return out, nil
}

// Labels names each coordinate of e for use as a column header.
func (e Entry) Labels(name string) []string {
	var out []string
	if e.IsCell() {
		for _, c := range e.cells {
			out = append(out, fmt.Sprintf("%s[%d,%d]", name, c.Row, c.Col))
		}
		return out
	}
	for _, g := range e.groups {
		out = append(out, fmt.Sprintf("%s[%d]", name, g))
	}
	return out
}

// Split returns one single-coordinate entry per coordinate of e.
func (e Entry) Split() []Entry {
	var out []Entry
	if e.IsCell() {
		for _, c := range e.cells {
			out = append(out, Cell(c.Row, c.Col))
		}
		return out
	}
	for _, g := range e.groups {
		out = append(out, Group(g))
	}
	return out
}

func (e Entry) String() string {
	var parts []string
	if e.IsCell() {
		for _, c := range e.cells {
			parts = append(parts, fmt.Sprintf("%d:%d", c.Row, c.Col))
		}
	} else {
		for _, g := range e.groups {
			parts = append(parts, strconv.Itoa(g))
		}
	}
	return strings.Join(parts, ",")
}

// ParseEntry reads the comma separated entry syntax: "2" or "1,2" for
// groups, "1:2" or "1:1,2:2" for matrix cells. The forms cannot be mixed.
func ParseEntry(s string) (Entry, error) {
	fields := strings.Split(strings.TrimSpace(s), ",")
	var (
		groups []int
		cells  []Coord
	)
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f == "" {
			return Entry{}, fmt.Errorf("%w: empty field in %q", ErrInvalidEntry, s)
		}
		if row, col, ok := strings.Cut(f, ":"); ok {
			r, err := strconv.Atoi(strings.TrimSpace(row))
			if err != nil {
				return Entry{}, fmt.Errorf("%w: bad row %q", ErrInvalidEntry, row)
			}
			c, err := strconv.Atoi(strings.TrimSpace(col))
			if err != nil {
				return Entry{}, fmt.Errorf("%w: bad column %q", ErrInvalidEntry, col)
			}
			cells = append(cells, Coord{Row: r, Col: c})
			continue
		}
		g, err := strconv.Atoi(f)
		if err != nil {
			return Entry{}, fmt.Errorf("%w: bad group %q", ErrInvalidEntry, f)
		}
		groups = append(groups, g)
	}
	switch {
	case len(cells) > 0 && len(groups) > 0:
		return Entry{}, fmt.Errorf("%w: %q mixes groups and matrix cells", ErrInvalidEntry, s)
	case len(cells) == 1:
		return Cell(cells[0].Row, cells[0].Col), nil
	case len(cells) > 1:
		return Cells(cells...), nil
	case len(groups) == 1:
		return Group(groups[0]), nil
	default:
		return Groups(groups...), nil
	}
}

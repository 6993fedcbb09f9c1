package aggregate

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/KaramelBytes/geoagg-cli/internal/firms"
)

// Missing is how an absent cell is rendered in text outputs.
const Missing = "n/a"

// Cell is one matrix entry. Present is false for combinations with no
// underlying records; such a cell never reads as zero.
type Cell struct {
	Value   float64
	Present bool
}

func (c Cell) String() string {
	if !c.Present {
		return Missing
	}
	return strconv.FormatFloat(c.Value, 'f', 2, 64)
}

// Matrix is a dense row × column view of a two-key Result.
type Matrix struct {
	RowField firms.Column
	ColField firms.Column
	Rows     []string
	Cols     []string
	Cells    [][]Cell
}

// At returns the cell value and whether it is present.
func (m *Matrix) At(row, col string) (float64, bool) {
	ri, ci := indexOf(m.Rows, row), indexOf(m.Cols, col)
	if ri < 0 || ci < 0 {
		return 0, false
	}
	c := m.Cells[ri][ci]
	return c.Value, c.Present
}

// ErrPivotShape is returned when a result is not grouped by exactly the two
// requested fields.
var ErrPivotShape = errors.New("pivot: result must be grouped by exactly the row and column fields")

// Pivot reshapes res into a matrix with rowField labels down and colField
// labels across. Every absent combination is marked missing.
func Pivot(res *Result, rowField, colField firms.Column) (*Matrix, error) {
	if res == nil {
		return nil, errors.New("pivot: nil result")
	}
	ri, ci := res.Index(rowField), res.Index(colField)
	if len(res.GroupBy) != 2 || ri < 0 || ci < 0 || ri == ci {
		return nil, fmt.Errorf("%w (have %v, want %s × %s)", ErrPivotShape, res.GroupBy, rowField, colField)
	}
	m := &Matrix{RowField: rowField, ColField: colField}
	rowSeen, colSeen := map[string]int{}, map[string]int{}
	for _, r := range res.Rows {
		if _, ok := rowSeen[r.Keys[ri]]; !ok {
			rowSeen[r.Keys[ri]] = len(m.Rows)
			m.Rows = append(m.Rows, r.Keys[ri])
		}
		if _, ok := colSeen[r.Keys[ci]]; !ok {
			colSeen[r.Keys[ci]] = len(m.Cols)
			m.Cols = append(m.Cols, r.Keys[ci])
		}
	}
	sortLabels(m.Rows)
	sortLabels(m.Cols)
	m.Cells = make([][]Cell, len(m.Rows))
	for i := range m.Cells {
		m.Cells[i] = make([]Cell, len(m.Cols))
	}
	for _, r := range res.Rows {
		m.Cells[indexOf(m.Rows, r.Keys[ri])][indexOf(m.Cols, r.Keys[ci])] = Cell{Value: r.Value, Present: true}
	}
	return m, nil
}

func sortLabels(s []string) {
	rows := make([]Row, len(s))
	for i, v := range s {
		rows[i] = Row{Keys: []string{v}}
	}
	sortRows(rows)
	for i := range rows {
		s[i] = rows[i].Keys[0]
	}
}

func indexOf(s []string, v string) int {
	for i, x := range s {
		if x == v {
			return i
		}
	}
	return -1
}

// Package report turns pipeline results into text tables (markdown or
// boxed) and Excel workbooks.
package report

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/KaramelBytes/geoagg-cli/internal/aggregate"
	"github.com/KaramelBytes/geoagg-cli/internal/firms"
	"github.com/KaramelBytes/geoagg-cli/internal/geojoin"
	"github.com/KaramelBytes/geoagg-cli/internal/stats"
)

// Sheet is one titled table. Cells are string, int or float64; nil renders as
// the missing marker.
type Sheet struct {
	Name      string
	Header    []string
	Rows      [][]any
	Notes     []string
	Precision int
}

// Text renders a cell for text outputs.
func (s *Sheet) Text(v any) string {
	switch x := v.(type) {
	case nil:
		return aggregate.Missing
	case string:
		return x
	case int:
		return strconv.Itoa(x)
	case float64:
		if math.IsNaN(x) {
			return aggregate.Missing
		}
		return strconv.FormatFloat(x, 'f', s.Precision, 64)
	default:
		return fmt.Sprint(v)
	}
}

// AggregateSheet lists one row per group with its value and record count.
func AggregateSheet(res *aggregate.Result) *Sheet {
	s := &Sheet{Name: fmt.Sprintf("%s %s", res.Mode, res.Metric), Precision: 2}
	for _, g := range res.GroupBy {
		s.Header = append(s.Header, string(g))
	}
	s.Header = append(s.Header, string(res.Metric), "n")
	for _, r := range res.Rows {
		row := make([]any, 0, len(r.Keys)+2)
		for _, k := range r.Keys {
			row = append(row, k)
		}
		s.Rows = append(s.Rows, append(row, r.Value, r.Count))
	}
	if res.Empty {
		s.Notes = append(s.Notes, "no records matched the filter")
	}
	return s
}

// PivotSheet lays out a matrix with one column per Cols label.
func PivotSheet(m *aggregate.Matrix) *Sheet {
	s := &Sheet{Name: fmt.Sprintf("%s x %s", m.RowField, m.ColField), Precision: 2}
	s.Header = append([]string{string(m.RowField)}, m.Cols...)
	for i, r := range m.Rows {
		row := []any{r}
		for _, c := range m.Cells[i] {
			if c.Present {
				row = append(row, c.Value)
			} else {
				row = append(row, nil)
			}
		}
		s.Rows = append(s.Rows, row)
	}
	return s
}

// CorrelationSheet renders the full matrix; NaN entries show as missing.
func CorrelationSheet(m *stats.CorrMatrix) *Sheet {
	s := &Sheet{Name: "correlation", Precision: 3}
	s.Header = append([]string{""}, m.Columns...)
	for i, c := range m.Columns {
		row := []any{c}
		for _, v := range m.Values[i] {
			row = append(row, v)
		}
		s.Rows = append(s.Rows, row)
	}
	s.Notes = append(s.Notes, fmt.Sprintf("n=%d", m.N))
	if len(m.Degenerate) > 0 {
		s.Notes = append(s.Notes, "undefined (constant or too few rows): "+strings.Join(m.Degenerate, ", "))
	}
	return s
}

// JoinSheet lists every polygon with its raw and displayed value.
func JoinSheet(rows []geojoin.JoinedRow, sum geojoin.Summary) *Sheet {
	s := &Sheet{Name: "map", Header: []string{"polygon", "unit", "raw", "displayed"}, Precision: 2}
	for _, r := range rows {
		s.Rows = append(s.Rows, []any{r.Polygon.Name, r.Unit, valueCell(r.Raw), valueCell(r.Display())})
	}
	s.Notes = append(s.Notes, fmt.Sprintf("polygons=%d matched=%d unmatched=%d suppressed=%d",
		sum.Polygons, sum.Matched, sum.Unmatched, sum.Suppressed))
	if len(sum.UnjoinedUnits) > 0 {
		s.Notes = append(s.Notes, "units without a polygon: "+strings.Join(sum.UnjoinedUnits, ", "))
	}
	return s
}

func valueCell(v geojoin.Value) any {
	if x, ok := v.Float(); ok {
		return x
	}
	return geojoin.NoDataLabel
}

// FitSheet summarizes a linear fit.
func FitSheet(f stats.Fit) *Sheet {
	return &Sheet{
		Name:      "fit",
		Header:    []string{"x", "y", "intercept", "slope", "r2", "n"},
		Rows:      [][]any{{string(f.X), string(f.Y), f.Alpha, f.Beta, f.R2, f.N}},
		Precision: 4,
	}
}

// BinsSheet lists box statistics per quantile bin.
func BinsSheet(by, metric firms.Column, boxes []stats.Box) *Sheet {
	s := &Sheet{
		Name:      fmt.Sprintf("%s by %s", metric, by),
		Header:    []string{string(by), "n", "min", "q1", "median", "q3", "max"},
		Precision: 2,
	}
	for _, b := range boxes {
		if b.Count == 0 {
			s.Rows = append(s.Rows, []any{b.Label(), 0, nil, nil, nil, nil, nil})
			continue
		}
		s.Rows = append(s.Rows, []any{b.Label(), b.Count, b.Min, b.Q1, b.Median, b.Q3, b.Max})
	}
	return s
}

// ListSheet is a single-column sheet.
func ListSheet(name, header string, values []string) *Sheet {
	s := &Sheet{Name: name, Header: []string{header}}
	for _, v := range values {
		s.Rows = append(s.Rows, []any{v})
	}
	return s
}

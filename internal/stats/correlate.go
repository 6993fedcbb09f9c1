// Package stats holds the descriptive statistics used by the charts: a
// Pearson correlation matrix, a single linear fit for overlays, and quantile
// bins for box plots.
package stats

import (
	"errors"
	"fmt"
	"math"

	"github.com/KaramelBytes/geoagg-cli/internal/firms"
	"gonum.org/v1/gonum/stat"
)

// CorrMatrix holds a symmetric Pearson correlation matrix. Entries involving a
// degenerate column (constant, or fewer than two records) are NaN, the
// diagonal included.
type CorrMatrix struct {
	Columns    []string
	Values     [][]float64 // row-major, Values[i][j]
	Degenerate []string
	N          int
}

// At returns the correlation between columns a and b, NaN when undefined.
func (m *CorrMatrix) At(a, b string) float64 {
	i, j := -1, -1
	for k, c := range m.Columns {
		if c == a {
			i = k
		}
		if c == b {
			j = k
		}
	}
	if i < 0 || j < 0 {
		return math.NaN()
	}
	return m.Values[i][j]
}

// ErrTooFewFields is returned when fewer than two fields are requested.
var ErrTooFewFields = errors.New("correlate: at least two numeric fields are required")

// Correlate computes pairwise Pearson correlations among metric fields of ds.
func Correlate(ds *firms.Dataset, fields []firms.Column) (*CorrMatrix, error) {
	if len(fields) < 2 {
		return nil, ErrTooFewFields
	}
	cols := make([][]float64, len(fields))
	names := make([]string, len(fields))
	for i, f := range fields {
		if !firms.IsMetric(f) {
			return nil, fmt.Errorf("correlate: %q is not a numeric field", f)
		}
		names[i] = string(f)
		cols[i] = column(ds, f)
	}
	n := ds.Len()
	m := &CorrMatrix{Columns: names, N: n, Values: make([][]float64, len(fields))}
	degenerate := make([]bool, len(fields))
	for i, c := range cols {
		if n < 2 || isConstant(c) {
			degenerate[i] = true
			m.Degenerate = append(m.Degenerate, names[i])
		}
	}
	for i := range fields {
		m.Values[i] = make([]float64, len(fields))
		for j := range fields {
			switch {
			case degenerate[i] || degenerate[j]:
				m.Values[i][j] = math.NaN()
			case i == j:
				m.Values[i][j] = 1
			case j < i:
				m.Values[i][j] = m.Values[j][i]
			default:
				m.Values[i][j] = clamp(stat.Correlation(cols[i], cols[j], nil))
			}
		}
	}
	return m, nil
}

func column(ds *firms.Dataset, f firms.Column) []float64 {
	out := make([]float64, 0, ds.Len())
	if ds == nil {
		return out
	}
	for _, r := range ds.Records {
		v, _ := r.Metric(f)
		out = append(out, v)
	}
	return out
}

func isConstant(x []float64) bool {
	if len(x) == 0 {
		return true
	}
	for _, v := range x[1:] {
		if v != x[0] {
			return false
		}
	}
	return true
}

func clamp(r float64) float64 {
	if r > 1 {
		return 1
	}
	if r < -1 {
		return -1
	}
	return r
}

package stats

import (
	"fmt"
	"math"
	"sort"

	"github.com/KaramelBytes/geoagg-cli/internal/firms"
)

// Box summarizes the distribution of a metric inside one bin.
type Box struct {
	Lo, Hi                   float64 // bin edges on the binning field; Lo is inclusive only for the first bin
	Count                    int
	Min, Q1, Median, Q3, Max float64
	Values                   []float64 // sorted metric values, for plotting
}

// Label renders the bin interval the way quantile cuts are usually printed.
func (b Box) Label() string {
	return fmt.Sprintf("(%.3g, %.3g]", b.Lo, b.Hi)
}

// QuantileBins cuts records into q equal-frequency bins of field by and
// summarizes metric inside each. Duplicate edges are dropped, so fewer than q
// bins may come back for skewed data.
func QuantileBins(ds *firms.Dataset, by, metric firms.Column, q int) ([]Box, error) {
	if q < 1 {
		return nil, fmt.Errorf("bins: q must be >= 1, got %d", q)
	}
	if !firms.IsMetric(by) || !firms.IsMetric(metric) {
		return nil, fmt.Errorf("bins: %q and %q must be numeric fields", by, metric)
	}
	xs := column(ds, by)
	if len(xs) == 0 {
		return nil, nil
	}
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)
	var edges []float64
	for i := 0; i <= q; i++ {
		e := quantile(sorted, float64(i)/float64(q))
		if len(edges) == 0 || e != edges[len(edges)-1] {
			edges = append(edges, e)
		}
	}
	if len(edges) == 1 {
		edges = append(edges, edges[0])
	}
	vals := make([][]float64, len(edges)-1)
	ys := column(ds, metric)
	for i, x := range xs {
		b := sort.SearchFloat64s(edges[1:], x)
		if b >= len(vals) {
			b = len(vals) - 1
		}
		vals[b] = append(vals[b], ys[i])
	}
	out := make([]Box, 0, len(vals))
	for i, v := range vals {
		box := Box{Lo: edges[i], Hi: edges[i+1], Count: len(v)}
		if len(v) > 0 {
			sort.Float64s(v)
			box.Values = v
			box.Min, box.Max = v[0], v[len(v)-1]
			box.Q1 = quantile(v, 0.25)
			box.Median = quantile(v, 0.5)
			box.Q3 = quantile(v, 0.75)
		}
		out = append(out, box)
	}
	return out, nil
}

// quantile interpolates linearly between order statistics of sorted.
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	w := pos - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w
}

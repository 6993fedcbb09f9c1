// Package aggregate computes grouped mean/sum statistics over a firm dataset
// and reshapes them into unit × year matrices.
package aggregate

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/KaramelBytes/geoagg-cli/internal/firms"
	"github.com/KaramelBytes/geoagg-cli/internal/textkey"
)

// Mode selects the aggregation function.
type Mode string

const (
	Mean Mode = "mean"
	Sum  Mode = "sum"
)

// ParseMode accepts mean/avg/average and sum/total.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "mean", "avg", "average", "promedio":
		return Mean, nil
	case "sum", "total":
		return Sum, nil
	}
	return "", fmt.Errorf("unknown aggregation mode %q (use mean|sum)", s)
}

// Filter restricts the records fed to Aggregate. An empty Years or Units set
// excludes everything for that dimension; use FilterAll for "no filtering".
// A zero UnitField leaves the unit dimension unfiltered.
type Filter struct {
	Years     []int
	UnitField firms.Column
	Units     []string
}

// FilterAll returns the universal filter for ds over unitField.
func FilterAll(ds *firms.Dataset, unitField firms.Column) Filter {
	return Filter{Years: ds.Years(), UnitField: unitField, Units: ds.Units(unitField)}
}

// Apply returns the records of ds admitted by f. Units compare by normalized key.
func (f Filter) Apply(ds *firms.Dataset) *firms.Dataset {
	years := make(map[int]struct{}, len(f.Years))
	for _, y := range f.Years {
		years[y] = struct{}{}
	}
	units := make(map[string]struct{}, len(f.Units))
	for _, u := range f.Units {
		units[textkey.Normalize(u)] = struct{}{}
	}
	return ds.Where(func(r firms.FirmRecord) bool {
		if _, ok := years[r.Year]; !ok {
			return false
		}
		if f.UnitField == "" {
			return true
		}
		v, _ := r.Text(f.UnitField)
		_, ok := units[textkey.Normalize(v)]
		return ok
	})
}

// Spec describes one aggregation.
type Spec struct {
	GroupBy []firms.Column
	Metric  firms.Column
	Mode    Mode
	Filter  Filter
}

// Row is one group: Keys holds the group_by values in GroupBy order.
type Row struct {
	Keys  []string
	Value float64
	Count int
}

// Result is the output of Aggregate.
type Result struct {
	GroupBy []firms.Column
	Metric  firms.Column
	Mode    Mode
	Rows    []Row
	// Empty is set when the filter left no records; Rows is then empty.
	Empty bool
}

// Index returns the position of c within GroupBy, or -1.
func (r *Result) Index(c firms.Column) int {
	for i, g := range r.GroupBy {
		if g == c {
			return i
		}
	}
	return -1
}

var (
	ErrNoGroupBy = errors.New("aggregate: group_by must name at least one column")
	ErrNotMetric = errors.New("aggregate: metric must be a numeric column")
)

type acc struct {
	keys  []string
	sum   float64
	count int
}

// Aggregate filters ds, groups the remaining records by the exact tuple of
// GroupBy values and reduces Metric with Mode. Combinations absent from the
// data produce no row.
func Aggregate(ds *firms.Dataset, spec Spec) (*Result, error) {
	if len(spec.GroupBy) == 0 {
		return nil, ErrNoGroupBy
	}
	if !firms.IsMetric(spec.Metric) {
		return nil, fmt.Errorf("%w: %q", ErrNotMetric, spec.Metric)
	}
	if spec.Mode != Mean && spec.Mode != Sum {
		return nil, fmt.Errorf("aggregate: unknown mode %q", spec.Mode)
	}
	for _, g := range spec.GroupBy {
		if firms.IsMetric(g) {
			return nil, fmt.Errorf("aggregate: cannot group by metric column %q", g)
		}
	}
	res := &Result{GroupBy: append([]firms.Column(nil), spec.GroupBy...), Metric: spec.Metric, Mode: spec.Mode}
	view := spec.Filter.Apply(ds)
	if view.Len() == 0 {
		res.Empty = true
		return res, nil
	}

	groups := map[string]*acc{}
	for _, r := range view.Records {
		keys := make([]string, len(spec.GroupBy))
		for i, g := range spec.GroupBy {
			v, ok := r.Text(g)
			if !ok {
				return nil, fmt.Errorf("aggregate: unknown group_by column %q", g)
			}
			keys[i] = v
		}
		id := strings.Join(keys, "\x1f")
		a := groups[id]
		if a == nil {
			a = &acc{keys: keys}
			groups[id] = a
		}
		x, _ := r.Metric(spec.Metric)
		a.sum += x
		a.count++
	}
	res.Rows = make([]Row, 0, len(groups))
	for _, a := range groups {
		v := a.sum
		if spec.Mode == Mean {
			v = a.sum / float64(a.count)
		}
		res.Rows = append(res.Rows, Row{Keys: a.keys, Value: v, Count: a.count})
	}
	sortRows(res.Rows)
	return res, nil
}

// Multi runs Aggregate once per metric with a shared grouping and filter.
func Multi(ds *firms.Dataset, groupBy []firms.Column, metrics []firms.Column, mode Mode, f Filter) (map[firms.Column]*Result, error) {
	out := make(map[firms.Column]*Result, len(metrics))
	for _, m := range metrics {
		res, err := Aggregate(ds, Spec{GroupBy: groupBy, Metric: m, Mode: mode, Filter: f})
		if err != nil {
			return nil, fmt.Errorf("metric %s: %w", m, err)
		}
		out[m] = res
	}
	return out, nil
}

// Scale returns a copy of res with every value divided by divisor.
func Scale(res *Result, divisor float64) *Result {
	if divisor == 0 || divisor == 1 {
		return res
	}
	out := *res
	out.Rows = make([]Row, len(res.Rows))
	for i, r := range res.Rows {
		r.Value /= divisor
		out.Rows[i] = r
	}
	return &out
}

func sortRows(rows []Row) {
	sort.Slice(rows, func(i, j int) bool {
		return lessKeys(rows[i].Keys, rows[j].Keys)
	})
}

// lessKeys orders tuples element-wise. Integer elements (years) sort
// numerically and before every non-integer element; the rest sort lexically.
func lessKeys(a, b []string) bool {
	for k := 0; k < len(a) && k < len(b); k++ {
		if a[k] == b[k] {
			continue
		}
		ai, aerr := strconv.Atoi(a[k])
		bi, berr := strconv.Atoi(b[k])
		switch {
		case aerr == nil && berr == nil:
			if ai != bi {
				return ai < bi
			}
			return a[k] < b[k] // "07" vs "7"
		case aerr == nil:
			return true
		case berr == nil:
			return false
		}
		return a[k] < b[k]
	}
	return len(a) < len(b)
}

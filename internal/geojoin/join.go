package geojoin

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/KaramelBytes/geoagg-cli/internal/aggregate"
	"github.com/KaramelBytes/geoagg-cli/internal/firms"
	"github.com/KaramelBytes/geoagg-cli/internal/geo"
	"github.com/KaramelBytes/geoagg-cli/internal/textkey"
)

// UnitValue is one tabular value keyed by its raw unit name.
type UnitValue struct {
	Unit  string
	Value float64
}

// FromAggregate extracts (unit, value) pairs from an aggregation grouped by
// unitField. Results grouped by additional columns yield repeated units,
// which JoinMetric rejects.
func FromAggregate(res *aggregate.Result, unitField firms.Column) ([]UnitValue, error) {
	idx := res.Index(unitField)
	if idx < 0 {
		return nil, fmt.Errorf("geojoin: result is not grouped by %q", unitField)
	}
	out := make([]UnitValue, 0, len(res.Rows))
	for _, r := range res.Rows {
		out = append(out, UnitValue{Unit: r.Keys[idx], Value: r.Value})
	}
	return out, nil
}

// Options controls the join.
type Options struct {
	// Threshold suppresses values strictly below it. Must be >= 0.
	Threshold float64
	// StrictPolygonKeys rejects polygons whose distinct raw names collapse to
	// the same normalized key when that key has data.
	StrictPolygonKeys bool
}

// JoinedRow is one polygon with its attached value.
type JoinedRow struct {
	Polygon *geo.Polygon
	Key     string
	// Unit is the raw tabular unit matched, empty when unmatched.
	Unit string
	// Raw is the joined value before suppression.
	Raw        Value
	Suppressed bool
}

// Display returns the value to draw: NoData when suppressed, Raw otherwise.
func (r JoinedRow) Display() Value {
	if r.Suppressed {
		return NoData
	}
	return r.Raw
}

// AmbiguousJoinError reports a normalized key claimed by several distinct
// raw names on one side of the join.
type AmbiguousJoinError struct {
	Key   string
	Units []string
	Side  string // "data" or "polygons"
}

func (e *AmbiguousJoinError) Error() string {
	return fmt.Sprintf("ambiguous join key %q on %s side: %s", e.Key, e.Side, strings.Join(e.Units, ", "))
}

// ErrNegativeThreshold is returned for thresholds below zero.
var ErrNegativeThreshold = errors.New("geojoin: threshold must be >= 0")

// JoinMetric left-joins values onto polys by normalized name. The result has
// exactly one row per polygon, in polygon order.
func JoinMetric(polys []*geo.Polygon, values []UnitValue, opt Options) ([]JoinedRow, error) {
	if opt.Threshold < 0 {
		return nil, fmt.Errorf("%w (got %g)", ErrNegativeThreshold, opt.Threshold)
	}

	byKey := make(map[string]UnitValue, len(values))
	for _, v := range values {
		k := textkey.Normalize(v.Unit)
		if prev, dup := byKey[k]; dup {
			return nil, &AmbiguousJoinError{Key: k, Units: []string{prev.Unit, v.Unit}, Side: "data"}
		}
		byKey[k] = v
	}

	if opt.StrictPolygonKeys {
		names := map[string][]string{}
		for _, p := range polys {
			k := textkey.Normalize(p.Name)
			if !contains(names[k], p.Name) {
				names[k] = append(names[k], p.Name)
			}
		}
		keys := make([]string, 0, len(names))
		for k := range names {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if _, has := byKey[k]; has && len(names[k]) > 1 {
				return nil, &AmbiguousJoinError{Key: k, Units: names[k], Side: "polygons"}
			}
		}
	}

	rows := make([]JoinedRow, len(polys))
	for i, p := range polys {
		k := textkey.Normalize(p.Name)
		row := JoinedRow{Polygon: p, Key: k, Raw: NoData}
		if v, ok := byKey[k]; ok {
			row.Unit = v.Unit
			row.Raw = Of(v.Value)
		}
		x, ok := row.Raw.Float()
		row.Suppressed = !ok || x < opt.Threshold
		rows[i] = row
	}
	return rows, nil
}

func contains(s []string, v string) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}

// Summary describes join coverage.
type Summary struct {
	Polygons   int
	Matched    int
	Unmatched  int
	Suppressed int
	// UnjoinedUnits lists tabular units that matched no polygon.
	UnjoinedUnits []string
}

// Summarize counts matched, unmatched and suppressed rows, and lists the
// tabular units of values that found no polygon.
func Summarize(rows []JoinedRow, values []UnitValue) Summary {
	s := Summary{Polygons: len(rows)}
	seen := make(map[string]struct{}, len(rows))
	for _, r := range rows {
		seen[r.Key] = struct{}{}
		if r.Raw.IsNoData() {
			s.Unmatched++
		} else {
			s.Matched++
		}
		if r.Suppressed {
			s.Suppressed++
		}
	}
	for _, v := range values {
		if _, ok := seen[textkey.Normalize(v.Unit)]; !ok {
			s.UnjoinedUnits = append(s.UnjoinedUnits, v.Unit)
		}
	}
	sort.Strings(s.UnjoinedUnits)
	return s
}

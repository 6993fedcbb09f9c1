// Package geojoin attaches aggregated metric values to boundary polygons by
// normalized unit name and applies the display suppression rule.
package geojoin

import (
	"math"
	"strconv"
)

// NoDataLabel is how a missing value is rendered in tables and legends.
const NoDataLabel = "No data"

// Value is a metric value that may be absent. The zero Value is NoData, which
// is distinct from every real number including 0.
type Value struct {
	x  float64
	ok bool
}

// NoData marks a polygon without a usable value.
var NoData = Value{}

// Of wraps a real number. NaN and ±Inf become NoData.
func Of(x float64) Value {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return NoData
	}
	return Value{x: x, ok: true}
}

// Float returns the number and whether it is present.
func (v Value) Float() (float64, bool) { return v.x, v.ok }

// IsNoData reports whether v is the NoData sentinel.
func (v Value) IsNoData() bool { return !v.ok }

func (v Value) String() string {
	if !v.ok {
		return NoDataLabel
	}
	return strconv.FormatFloat(v.x, 'f', -1, 64)
}

package geojoin

import (
	"errors"
	"math"
	"testing"

	"github.com/KaramelBytes/geoagg-cli/internal/aggregate"
	"github.com/KaramelBytes/geoagg-cli/internal/firms"
	"github.com/KaramelBytes/geoagg-cli/internal/geo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func polys(names ...string) []*geo.Polygon {
	out := make([]*geo.Polygon, len(names))
	for i, n := range names {
		out[i] = &geo.Polygon{Name: n}
	}
	return out
}

func TestJoinSuppressesBelowThresholdAndMissing(t *testing.T) {
	rows, err := JoinMetric(polys("Lima", "Callao"), []UnitValue{{Unit: "LIMA", Value: 50}}, Options{Threshold: 100})
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "LIMA", rows[0].Unit)
	x, ok := rows[0].Raw.Float()
	require.True(t, ok)
	assert.Equal(t, 50.0, x, "raw value is retained")
	assert.True(t, rows[0].Suppressed)
	assert.True(t, rows[0].Display().IsNoData())

	assert.True(t, rows[1].Raw.IsNoData())
	assert.True(t, rows[1].Suppressed)
	assert.Equal(t, "", rows[1].Unit)
}

func TestJoinAccentAndCaseInsensitive(t *testing.T) {
	rows, err := JoinMetric(polys("Cañete", "HUARAL"), []UnitValue{{Unit: "CANETE", Value: 3}, {Unit: "huaral ", Value: 0}}, Options{})
	require.NoError(t, err)
	assert.False(t, rows[0].Suppressed)
	assert.Equal(t, "3", rows[0].Display().String())
	// 0 is a real value, not missing.
	assert.False(t, rows[1].Raw.IsNoData())
	assert.False(t, rows[1].Suppressed)
}

func TestJoinPreservesPolygonOrderAndCount(t *testing.T) {
	p := polys("C", "A", "B", "A")
	rows, err := JoinMetric(p, []UnitValue{{Unit: "a", Value: 1}, {Unit: "Z", Value: 9}}, Options{})
	require.NoError(t, err)
	require.Len(t, rows, len(p))
	for i := range p {
		assert.Same(t, p[i], rows[i].Polygon)
	}
	assert.False(t, rows[1].Suppressed)
	assert.False(t, rows[3].Suppressed, "multi-part units share the value")

	s := Summarize(rows, []UnitValue{{Unit: "a"}, {Unit: "Z"}})
	assert.Equal(t, Summary{Polygons: 4, Matched: 2, Unmatched: 2, Suppressed: 2, UnjoinedUnits: []string{"Z"}}, s)
}

func TestJoinDuplicateDataKeys(t *testing.T) {
	_, err := JoinMetric(polys("Lima"), []UnitValue{{Unit: "Lima", Value: 1}, {Unit: "LIMA", Value: 2}}, Options{})
	var amb *AmbiguousJoinError
	require.ErrorAs(t, err, &amb)
	assert.Equal(t, "LIMA", amb.Key)
	assert.Equal(t, "data", amb.Side)
}

func TestJoinStrictPolygonKeys(t *testing.T) {
	values := []UnitValue{{Unit: "Lima", Value: 1}}
	_, err := JoinMetric(polys("Lima", "LIMA"), values, Options{})
	require.NoError(t, err)

	_, err = JoinMetric(polys("Lima", "LIMA"), values, Options{StrictPolygonKeys: true})
	var amb *AmbiguousJoinError
	require.ErrorAs(t, err, &amb)
	assert.Equal(t, "polygons", amb.Side)

	// Same raw name twice (multi-part) is fine even when strict.
	_, err = JoinMetric(polys("Lima", "Lima"), values, Options{StrictPolygonKeys: true})
	assert.NoError(t, err)
}

func TestJoinNegativeThreshold(t *testing.T) {
	_, err := JoinMetric(polys("Lima"), nil, Options{Threshold: -1})
	assert.True(t, errors.Is(err, ErrNegativeThreshold))
}

func TestFromAggregate(t *testing.T) {
	res := &aggregate.Result{
		GroupBy: []firms.Column{firms.ColProvince},
		Rows:    []aggregate.Row{{Keys: []string{"LIMA"}, Value: 2}},
	}
	vals, err := FromAggregate(res, firms.ColProvince)
	require.NoError(t, err)
	assert.Equal(t, []UnitValue{{Unit: "LIMA", Value: 2}}, vals)

	_, err = FromAggregate(res, firms.ColDistrict)
	assert.Error(t, err)
}

func TestValue(t *testing.T) {
	assert.True(t, Value{}.IsNoData())
	assert.Equal(t, NoDataLabel, NoData.String())
	assert.False(t, Of(0).IsNoData())
	assert.True(t, Of(math.NaN()).IsNoData())
}

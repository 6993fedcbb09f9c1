package render

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/KaramelBytes/geoagg-cli/internal/aggregate"
	"github.com/KaramelBytes/geoagg-cli/internal/geo"
	"github.com/KaramelBytes/geoagg-cli/internal/geojoin"
	"github.com/KaramelBytes/geoagg-cli/internal/stats"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
	"gonum.org/v1/plot/vg"
)

func square(name string, x0 float64) *geo.Polygon {
	g := geom.NewPolygon(geom.XY).MustSetCoords([][]geom.Coord{{{x0, 0}, {x0 + 1, 0}, {x0 + 1, 1}, {x0, 1}, {x0, 0}}})
	return &geo.Polygon{Name: name, Geometry: g}
}

func joined(t *testing.T) []geojoin.JoinedRow {
	t.Helper()
	rows, err := geojoin.JoinMetric(
		[]*geo.Polygon{square("Lima", 0), square("Callao", 1), square("Huaral", 2), square("Canta", 3)},
		[]geojoin.UnitValue{{Unit: "LIMA", Value: 50}, {Unit: "HUARAL", Value: 200}, {Unit: "CANTA", Value: 400}},
		geojoin.Options{Threshold: 100},
	)
	require.NoError(t, err)
	return rows
}

func TestColorForSuppressedIsBackground(t *testing.T) {
	rows := joined(t)
	s, ok := DisplayScale(rows)
	require.True(t, ok)
	assert.Equal(t, Scale{Min: 200, Max: 400}, s)

	assert.Equal(t, Background, ColorFor(rows[0], s), "below threshold")
	assert.Equal(t, Background, ColorFor(rows[1], s), "no data")
	assert.Equal(t, orRd[0], ColorFor(rows[2], s))
	assert.Equal(t, orRd[len(orRd)-1], ColorFor(rows[3], s))
	assert.NotEqual(t, orRd[0], Background)
}

func TestDisplayScaleAllSuppressed(t *testing.T) {
	rows, err := geojoin.JoinMetric([]*geo.Polygon{square("A", 0)}, nil, geojoin.Options{})
	require.NoError(t, err)
	_, ok := DisplayScale(rows)
	assert.False(t, ok)
	assert.Equal(t, Background, ColorFor(rows[0], Scale{}))
}

func TestRampInterpolation(t *testing.T) {
	assert.Equal(t, orRd[0], orRd.at(-3))
	assert.Equal(t, orRd[0], orRd.at(math.NaN()))
	assert.Equal(t, orRd[4], orRd.at(0.5))
	assert.Equal(t, orRd[len(orRd)/2], Scale{Min: 1, Max: 1}.Color(1))
}

func TestChoroplethSaves(t *testing.T) {
	p, err := Choropleth(joined(t), MapOptions{Title: "Ventas", LegendLabel: "S/ M", Labels: true})
	require.NoError(t, err)
	out := filepath.Join(t.TempDir(), "map.png")
	require.NoError(t, Save(p, out, 4*vg.Inch, 4*vg.Inch))
	st, err := os.Stat(out)
	require.NoError(t, err)
	assert.Greater(t, st.Size(), int64(0))

	_, err = Choropleth(nil, MapOptions{})
	assert.ErrorIs(t, err, ErrNoPolygons)
	assert.Error(t, Save(p, filepath.Join(t.TempDir(), "map.bmp"), vg.Inch, vg.Inch))
}

func TestCharts(t *testing.T) {
	dir := t.TempDir()
	m := &aggregate.Matrix{
		RowField: "province", ColField: "year",
		Rows: []string{"LIMA", "HUARAL"}, Cols: []string{"2022", "2023"},
		Cells: [][]aggregate.Cell{
			{{Value: 1, Present: true}, {Value: 2, Present: true}},
			{{Value: 3, Present: true}, {}},
		},
	}
	p, err := PivotHeatmap("pivot", m)
	require.NoError(t, err)
	require.NoError(t, Save(p, filepath.Join(dir, "pivot.png"), 4*vg.Inch, 3*vg.Inch))

	cm := &stats.CorrMatrix{Columns: []string{"a", "b"}, Values: [][]float64{{1, 0.5}, {0.5, 1}}}
	p, err = CorrelationHeatmap("corr", cm)
	require.NoError(t, err)
	require.NoError(t, Save(p, filepath.Join(dir, "corr.svg"), 4*vg.Inch, 3*vg.Inch))

	res := &aggregate.Result{Rows: []aggregate.Row{{Keys: []string{"LIMA"}, Value: 2}, {Keys: []string{"HUARAL"}, Value: 1}}}
	p, err = Bars("bars", "sales", res)
	require.NoError(t, err)
	require.NoError(t, Save(p, filepath.Join(dir, "bars.png"), 4*vg.Inch, 3*vg.Inch))
	_, err = Bars("bars", "sales", &aggregate.Result{})
	assert.ErrorIs(t, err, ErrEmpty)

	fit := &stats.Fit{Alpha: 1, Beta: 2, R2: 1}
	p, err = Scatter("scatter", Series{X: []float64{1, 2}, Y: []float64{3, 5}, Labels: []string{"a", "b"}}, fit)
	require.NoError(t, err)
	require.NoError(t, Save(p, filepath.Join(dir, "scatter.png"), 4*vg.Inch, 3*vg.Inch))

	boxes := []stats.Box{{Lo: 0, Hi: 1, Count: 3, Values: []float64{1, 2, 3}}, {Lo: 1, Hi: 2}}
	p, err = BoxPlot("box", "exp", "sales", boxes)
	require.NoError(t, err)
	require.NoError(t, Save(p, filepath.Join(dir, "box.png"), 4*vg.Inch, 3*vg.Inch))
}

package render

import (
	"errors"
	"fmt"
	"image/color"
	"math"

	"github.com/KaramelBytes/geoagg-cli/internal/geo"
	"github.com/KaramelBytes/geoagg-cli/internal/geojoin"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// MapOptions configures Choropleth.
type MapOptions struct {
	Title       string
	LegendLabel string // e.g. "Average sales (millions)"
	Labels      bool   // annotate each displayed polygon with its value
}

// ErrNoPolygons is returned when there is nothing to draw.
var ErrNoPolygons = errors.New("render: no polygons to draw")

// DisplayScale returns the value range over non-suppressed rows. ok is false
// when every row is suppressed.
func DisplayScale(rows []geojoin.JoinedRow) (s Scale, ok bool) {
	s = Scale{Min: math.Inf(1), Max: math.Inf(-1)}
	for _, r := range rows {
		x, present := r.Display().Float()
		if !present {
			continue
		}
		s.Min = math.Min(s.Min, x)
		s.Max = math.Max(s.Max, x)
		ok = true
	}
	if !ok {
		return Scale{}, false
	}
	return s, true
}

// ColorFor picks the fill for one joined row. Suppressed rows always get
// Background, which is not part of the ramp.
func ColorFor(r geojoin.JoinedRow, s Scale) color.RGBA {
	x, ok := r.Display().Float()
	if !ok {
		return Background
	}
	return s.Color(x)
}

// Choropleth draws one filled polygon per joined row.
func Choropleth(rows []geojoin.JoinedRow, opt MapOptions) (*plot.Plot, error) {
	if len(rows) == 0 {
		return nil, ErrNoPolygons
	}
	p := plot.New()
	p.Title.Text = opt.Title
	p.Title.TextStyle.Font.Size = vg.Points(14)
	p.HideAxes()

	scale, anyValue := DisplayScale(rows)
	var labels plotter.XYLabels
	for _, r := range rows {
		poly, err := polygonFor(r.Polygon)
		if err != nil {
			return nil, fmt.Errorf("polygon %q: %w", r.Polygon.Name, err)
		}
		if poly == nil {
			continue
		}
		poly.Color = ColorFor(r, scale)
		poly.LineStyle.Color = Edge
		poly.LineStyle.Width = vg.Points(0.5)
		p.Add(poly)

		if x, ok := r.Display().Float(); ok && opt.Labels {
			c := centroid(r.Polygon)
			labels.XYs = append(labels.XYs, plotter.XY{X: c[0], Y: c[1]})
			labels.Labels = append(labels.Labels, fmt.Sprintf("%.2f", x))
		}
	}
	if len(labels.XYs) > 0 {
		l, err := plotter.NewLabels(labels)
		if err != nil {
			return nil, err
		}
		for i := range l.TextStyle {
			l.TextStyle[i].XAlign = draw.XCenter
			l.TextStyle[i].YAlign = draw.YCenter
			l.TextStyle[i].Font.Size = vg.Points(7)
		}
		p.Add(l)
	}

	if anyValue {
		p.Legend.Add(fmt.Sprintf("%s %.2f", opt.LegendLabel, scale.Min), swatch(scale.Color(scale.Min)))
		p.Legend.Add(fmt.Sprintf("%s %.2f", opt.LegendLabel, scale.Max), swatch(scale.Color(scale.Max)))
	}
	p.Legend.Add(geojoin.NoDataLabel, swatch(Background))
	p.Legend.Top = true
	return p, nil
}

func polygonFor(gp *geo.Polygon) (*plotter.Polygon, error) {
	rings := geo.Rings(gp.Geometry)
	if len(rings) == 0 {
		return nil, nil
	}
	xyers := make([]plotter.XYer, 0, len(rings))
	for _, ring := range rings {
		xys := make(plotter.XYs, len(ring))
		for i, c := range ring {
			xys[i] = plotter.XY{X: c[0], Y: c[1]}
		}
		xyers = append(xyers, xys)
	}
	return plotter.NewPolygon(xyers...)
}

// centroid is the bounding-box center, good enough for label placement.
func centroid(gp *geo.Polygon) [2]float64 {
	var minX, minY, maxX, maxY = math.Inf(1), math.Inf(1), math.Inf(-1), math.Inf(-1)
	for _, ring := range geo.Rings(gp.Geometry) {
		for _, c := range ring {
			minX, maxX = math.Min(minX, c[0]), math.Max(maxX, c[0])
			minY, maxY = math.Min(minY, c[1]), math.Max(maxY, c[1])
		}
	}
	return [2]float64{(minX + maxX) / 2, (minY + maxY) / 2}
}

// swatch is a legend thumbnail filled with one color.
type swatch color.RGBA

func (s swatch) Thumbnail(c *draw.Canvas) {
	pts := []vg.Point{
		{X: c.Min.X, Y: c.Min.Y},
		{X: c.Min.X, Y: c.Max.Y},
		{X: c.Max.X, Y: c.Max.Y},
		{X: c.Max.X, Y: c.Min.Y},
	}
	c.FillPolygon(color.RGBA(s), pts)
	ls := draw.LineStyle{Color: Edge, Width: vg.Points(0.5)}
	c.StrokeLines(ls, append(pts, pts[0]))
}

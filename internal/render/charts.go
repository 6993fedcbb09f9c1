package render

import (
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/geoagg-cli/internal/aggregate"
	"github.com/KaramelBytes/geoagg-cli/internal/stats"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// ErrEmpty is returned when a chart would have no data.
var ErrEmpty = errors.New("render: nothing to plot")

// grid adapts a labelled matrix to plotter.GridXYZ. Row 0 is drawn on top.
type grid struct {
	rows, cols []string
	z          [][]float64
}

func (g grid) Dims() (c, r int)   { return len(g.cols), len(g.rows) }
func (g grid) Z(c, r int) float64 { return g.z[len(g.rows)-1-r][c] }
func (g grid) X(c int) float64    { return float64(c) }
func (g grid) Y(r int) float64    { return float64(r) }

func heatmap(title string, g grid, pal ramp, lo, hi float64) (*plot.Plot, error) {
	if len(g.rows) == 0 || len(g.cols) == 0 {
		return nil, ErrEmpty
	}
	p := plot.New()
	p.Title.Text = title
	hm := plotter.NewHeatMap(g, pal)
	hm.NaN = Background
	if hi <= lo {
		hi = lo + 1
	}
	hm.Min, hm.Max = lo, hi
	p.Add(hm)

	var labels plotter.XYLabels
	for r := range g.rows {
		for c := range g.cols {
			v := g.z[r][c]
			s := "n/a"
			if !math.IsNaN(v) {
				s = fmt.Sprintf("%.2f", v)
			}
			labels.XYs = append(labels.XYs, plotter.XY{X: float64(c), Y: float64(len(g.rows) - 1 - r)})
			labels.Labels = append(labels.Labels, s)
		}
	}
	l, err := plotter.NewLabels(labels)
	if err != nil {
		return nil, err
	}
	for i := range l.TextStyle {
		l.TextStyle[i].XAlign = draw.XCenter
		l.TextStyle[i].YAlign = draw.YCenter
	}
	p.Add(l)

	xt := make([]plot.Tick, len(g.cols))
	for i, c := range g.cols {
		xt[i] = plot.Tick{Value: float64(i), Label: c}
	}
	yt := make([]plot.Tick, len(g.rows))
	for i, r := range g.rows {
		yt[i] = plot.Tick{Value: float64(len(g.rows) - 1 - i), Label: r}
	}
	p.X.Tick.Marker = plot.ConstantTicks(xt)
	p.Y.Tick.Marker = plot.ConstantTicks(yt)
	return p, nil
}

// PivotHeatmap draws a unit × year matrix; missing cells use Background.
func PivotHeatmap(title string, m *aggregate.Matrix) (*plot.Plot, error) {
	g := grid{rows: m.Rows, cols: m.Cols, z: make([][]float64, len(m.Rows))}
	lo, hi := math.Inf(1), math.Inf(-1)
	for i, row := range m.Cells {
		g.z[i] = make([]float64, len(row))
		for j, c := range row {
			if !c.Present {
				g.z[i][j] = math.NaN()
				continue
			}
			g.z[i][j] = c.Value
			lo, hi = math.Min(lo, c.Value), math.Max(hi, c.Value)
		}
	}
	if math.IsInf(lo, 1) {
		lo, hi = 0, 1
	}
	p, err := heatmap(title, g, orRd, lo, hi)
	if err != nil {
		return nil, err
	}
	p.X.Label.Text = string(m.ColField)
	p.Y.Label.Text = string(m.RowField)
	return p, nil
}

// CorrelationHeatmap draws a correlation matrix on a fixed [-1, 1] scale.
func CorrelationHeatmap(title string, m *stats.CorrMatrix) (*plot.Plot, error) {
	return heatmap(title, grid{rows: m.Columns, cols: m.Columns, z: m.Values}, rdBu, -1, 1)
}

// Bars draws one bar per aggregation row, labelled by its joined keys.
func Bars(title, yLabel string, res *aggregate.Result) (*plot.Plot, error) {
	if len(res.Rows) == 0 {
		return nil, ErrEmpty
	}
	vals := make(plotter.Values, len(res.Rows))
	names := make([]string, len(res.Rows))
	for i, r := range res.Rows {
		vals[i] = r.Value
		names[i] = strings.Join(r.Keys, " / ")
	}
	p := plot.New()
	p.Title.Text = title
	p.Y.Label.Text = yLabel
	bars, err := plotter.NewBarChart(vals, vg.Points(18))
	if err != nil {
		return nil, err
	}
	bars.Color = orRd[5]
	bars.LineStyle.Width = vg.Length(0)
	p.Add(bars, plotter.NewGrid())
	p.NominalX(names...)
	p.X.Tick.Label.Rotation = math.Pi / 4
	p.X.Tick.Label.XAlign = draw.XRight
	return p, nil
}

// Series is a set of labelled points for a scatter chart.
type Series struct {
	XLabel, YLabel string
	X, Y           []float64
	Labels         []string
}

// Scatter draws s and, when fit is non-nil, its regression line.
func Scatter(title string, s Series, fit *stats.Fit) (*plot.Plot, error) {
	if len(s.X) == 0 || len(s.X) != len(s.Y) {
		return nil, ErrEmpty
	}
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = s.XLabel
	p.Y.Label.Text = s.YLabel

	xys := make(plotter.XYs, len(s.X))
	for i := range s.X {
		xys[i] = plotter.XY{X: s.X[i], Y: s.Y[i]}
	}
	sc, err := plotter.NewScatter(xys)
	if err != nil {
		return nil, err
	}
	sc.GlyphStyle.Shape = draw.CircleGlyph{}
	sc.GlyphStyle.Color = orRd[6]
	sc.GlyphStyle.Radius = vg.Points(3)
	p.Add(sc, plotter.NewGrid())

	if len(s.Labels) == len(s.X) {
		l, err := plotter.NewLabels(plotter.XYLabels{XYs: xys, Labels: s.Labels})
		if err != nil {
			return nil, err
		}
		p.Add(l)
	}
	if fit != nil {
		line := plotter.NewFunction(fit.At)
		line.Color = rdBu[0]
		line.Dashes = []vg.Length{vg.Points(5), vg.Points(5)}
		p.Add(line)
		p.Legend.Add(fmt.Sprintf("fit R²=%.3f", fit.R2), line)
	}
	return p, nil
}

// BoxPlot draws one box per quantile bin.
func BoxPlot(title, xLabel, yLabel string, boxes []stats.Box) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xLabel
	p.Y.Label.Text = yLabel
	var names []string
	for _, b := range boxes {
		if b.Count == 0 {
			continue
		}
		bp, err := plotter.NewBoxPlot(vg.Points(20), float64(len(names)), plotter.Values(b.Values))
		if err != nil {
			return nil, err
		}
		bp.FillColor = orRd[3]
		p.Add(bp)
		names = append(names, b.Label())
	}
	if len(names) == 0 {
		return nil, ErrEmpty
	}
	p.NominalX(names...)
	return p, nil
}

// Save writes p to path; the format follows the extension (png, svg, pdf).
func Save(p *plot.Plot, path string, w, h vg.Length) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png", ".svg", ".pdf", ".jpg", ".jpeg", ".tif", ".tiff", ".eps":
	default:
		return fmt.Errorf("render: unsupported image format %q", filepath.Ext(path))
	}
	return p.Save(w, h, path)
}

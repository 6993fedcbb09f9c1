package pipeline

import (
	"context"
	"fmt"

	"github.com/KaramelBytes/geoagg-cli/internal/aggregate"
	"github.com/KaramelBytes/geoagg-cli/internal/firms"
	"github.com/KaramelBytes/geoagg-cli/internal/geo"
	"github.com/KaramelBytes/geoagg-cli/internal/geojoin"
	"github.com/KaramelBytes/geoagg-cli/internal/render"
	"github.com/KaramelBytes/geoagg-cli/internal/stats"
	"go.uber.org/zap"
)

// AggregateOutput is a grouped statistic, already divided by the metric's scale.
type AggregateOutput struct {
	*Run
	Result *aggregate.Result
	Scale  float64
}

// PivotOutput is a unit × year matrix.
type PivotOutput struct {
	*Run
	Matrix *aggregate.Matrix
	Scale  float64
}

// CorrelateOutput is a correlation matrix over the filtered records.
type CorrelateOutput struct {
	*Run
	Matrix *stats.CorrMatrix
}

// MapOutput is one joined row per polygon plus coverage figures.
type MapOutput struct {
	*Run
	Rows    []geojoin.JoinedRow
	Summary geojoin.Summary
	Values  []geojoin.UnitValue
	Scale   float64
}

// ScatterOutput pairs unit-year means of two metrics with a fit over them.
type ScatterOutput struct {
	*Run
	Series render.Series
	Fit    *stats.Fit
}

// FitOutput is a linear fit over the filtered records.
type FitOutput struct {
	*Run
	Fit stats.Fit
}

// BinsOutput holds box statistics per quantile bin.
type BinsOutput struct {
	*Run
	By, Metric firms.Column
	Boxes      []stats.Box
}

func (r *Runner) defaults(p Params) Params {
	if p.Metric == "" {
		p.Metric = firms.ColSales
	}
	if p.Mode == "" {
		p.Mode = aggregate.Mean
	}
	p.Mode = canonicalMode(p.Mode)
	return p
}

// canonicalMode maps aliases (avg, total, ...) to Mean or Sum. Unknown
// modes are returned unchanged for Params.Validate to reject.
func canonicalMode(m aggregate.Mode) aggregate.Mode {
	if c, err := aggregate.ParseMode(string(m)); err == nil {
		return c
	}
	return m
}

func (r *Runner) universal(ds *firms.Dataset) aggregate.Filter {
	return aggregate.FilterAll(ds, r.cfg.Granularity.Column())
}

// effective fills empty Years/Units with every value in ds.
func (r *Runner) effective(ds *firms.Dataset, p Params) aggregate.Filter {
	f := r.universal(ds)
	if len(p.Years) > 0 {
		f.Years = p.Years
	}
	if len(p.Units) > 0 {
		f.Units = p.Units
	}
	return f
}

func (r *Runner) loadFiltered(ctx context.Context, p Params) (*Run, *firms.Dataset, error) {
	if err := p.Validate(); err != nil {
		return nil, nil, err
	}
	run := r.newRun(p)
	ds, yearErrs, err := r.Load(ctx)
	if err != nil {
		return nil, nil, err
	}
	run.YearErrors = yearErrs
	run.Warnings = r.fragmentWarnings()
	view := r.effective(ds, p).Apply(ds)
	if view.Len() == 0 {
		run.Warnings = append(run.Warnings, "no records match the selected years and units")
	}
	return run, view, nil
}

// Aggregate groups the filtered records by groupBy (default: unit) and
// reduces p.Metric with p.Mode.
func (r *Runner) Aggregate(ctx context.Context, p Params, groupBy ...firms.Column) (*AggregateOutput, error) {
	p = r.defaults(p)
	run, view, err := r.loadFiltered(ctx, p)
	if err != nil {
		return nil, err
	}
	if len(groupBy) == 0 {
		groupBy = []firms.Column{r.cfg.Granularity.Column()}
	}
	res, err := aggregate.Aggregate(view, aggregate.Spec{
		GroupBy: groupBy, Metric: p.Metric, Mode: p.Mode, Filter: r.universal(view),
	})
	if err != nil {
		return nil, err
	}
	scale := r.cfg.scaleFor(p.Metric)
	r.log.Info("aggregate",
		zap.String("run", run.ID),
		zap.String("metric", string(p.Metric)),
		zap.String("mode", string(p.Mode)),
		zap.Int("groups", len(res.Rows)),
		zap.Bool("empty", res.Empty),
	)
	return &AggregateOutput{Run: run, Result: aggregate.Scale(res, scale), Scale: scale}, nil
}

// Pivot builds the unit × year matrix of p.Metric.
func (r *Runner) Pivot(ctx context.Context, p Params) (*PivotOutput, error) {
	unit := r.cfg.Granularity.Column()
	out, err := r.Aggregate(ctx, p, unit, firms.ColYear)
	if err != nil {
		return nil, err
	}
	m, err := aggregate.Pivot(out.Result, unit, firms.ColYear)
	if err != nil {
		return nil, err
	}
	r.log.Info("pivot", zap.String("run", out.ID), zap.Int("rows", len(m.Rows)), zap.Int("cols", len(m.Cols)))
	return &PivotOutput{Run: out.Run, Matrix: m, Scale: out.Scale}, nil
}

// DefaultCorrelationFields are the numeric fields of a firm record.
var DefaultCorrelationFields = []firms.Column{firms.ColSales, firms.ColWorkers, firms.ColExperience}

// Correlate computes the Pearson matrix of fields over the filtered records.
func (r *Runner) Correlate(ctx context.Context, p Params, fields ...firms.Column) (*CorrelateOutput, error) {
	run, view, err := r.loadFiltered(ctx, p)
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		fields = DefaultCorrelationFields
	}
	m, err := stats.Correlate(view, fields)
	if err != nil {
		return nil, err
	}
	if len(m.Degenerate) > 0 {
		run.Warnings = append(run.Warnings, fmt.Sprintf("correlation undefined for: %v", m.Degenerate))
	}
	r.log.Info("correlate", zap.String("run", run.ID), zap.Int("n", m.N), zap.Strings("degenerate", m.Degenerate))
	return &CorrelateOutput{Run: run, Matrix: m}, nil
}

// Map aggregates p.Metric per unit, loads the boundaries and joins the two.
// The threshold applies to scaled values.
func (r *Runner) Map(ctx context.Context, p Params) (*MapOutput, error) {
	if p.Mode == "" {
		p.Mode = aggregate.Sum
	}
	p.Mode = canonicalMode(p.Mode)
	agg, err := r.Aggregate(ctx, p)
	if err != nil {
		return nil, err
	}
	polys, err := r.Boundaries(ctx)
	if err != nil {
		return nil, err
	}
	values, err := geojoin.FromAggregate(agg.Result, r.cfg.Granularity.Column())
	if err != nil {
		return nil, err
	}
	rows, err := geojoin.JoinMetric(polys.Polygons, values, geojoin.Options{
		Threshold:         p.Threshold,
		StrictPolygonKeys: r.cfg.StrictPolygonKeys,
	})
	if err != nil {
		return nil, err
	}
	sum := geojoin.Summarize(rows, values)
	run := agg.Run
	if len(sum.UnjoinedUnits) > 0 {
		run.Warnings = append(run.Warnings, fmt.Sprintf("%d units have no polygon: %v", len(sum.UnjoinedUnits), sum.UnjoinedUnits))
	}
	r.log.Info("map",
		zap.String("run", run.ID),
		zap.Int("polygons", sum.Polygons),
		zap.Int("matched", sum.Matched),
		zap.Int("unmatched", sum.Unmatched),
		zap.Int("suppressed", sum.Suppressed),
		zap.Float64("threshold", p.Threshold),
	)
	return &MapOutput{Run: run, Rows: rows, Summary: sum, Values: values, Scale: agg.Scale}, nil
}

// Scatter pairs the unit-year means of x and y, with a fit over those points.
func (r *Runner) Scatter(ctx context.Context, p Params, x, y firms.Column) (*ScatterOutput, error) {
	p = r.defaults(p)
	run, view, err := r.loadFiltered(ctx, p)
	if err != nil {
		return nil, err
	}
	unit := r.cfg.Granularity.Column()
	results, err := aggregate.Multi(view, []firms.Column{unit, firms.ColYear}, []firms.Column{x, y}, aggregate.Mean, r.universal(view))
	if err != nil {
		return nil, err
	}
	xs, ys := results[x], results[y]
	s := render.Series{XLabel: string(x), YLabel: string(y)}
	for i, row := range xs.Rows {
		xv := row.Value / r.cfg.scaleFor(x)
		yv := ys.Rows[i].Value / r.cfg.scaleFor(y)
		s.X = append(s.X, xv)
		s.Y = append(s.Y, yv)
		s.Labels = append(s.Labels, row.Keys[0]+" "+row.Keys[1])
	}
	out := &ScatterOutput{Run: run, Series: s}
	if f, err := stats.FitXY(s.X, s.Y); err == nil {
		f.X, f.Y = x, y
		out.Fit = &f
	} else {
		run.Warnings = append(run.Warnings, err.Error())
	}
	r.log.Info("scatter", zap.String("run", run.ID), zap.Int("points", len(s.X)))
	return out, nil
}

// Fit regresses y on x over the filtered records.
func (r *Runner) Fit(ctx context.Context, p Params, x, y firms.Column) (*FitOutput, error) {
	run, view, err := r.loadFiltered(ctx, p)
	if err != nil {
		return nil, err
	}
	f, err := stats.LinearFit(view, x, y)
	if err != nil {
		return nil, err
	}
	r.log.Info("fit", zap.String("run", run.ID), zap.Float64("r2", f.R2), zap.Int("n", f.N))
	return &FitOutput{Run: run, Fit: f}, nil
}

// Bins cuts the filtered records into q quantile bins of by and summarizes
// metric in each.
func (r *Runner) Bins(ctx context.Context, p Params, by, metric firms.Column, q int) (*BinsOutput, error) {
	run, view, err := r.loadFiltered(ctx, p)
	if err != nil {
		return nil, err
	}
	boxes, err := stats.QuantileBins(view, by, metric, q)
	if err != nil {
		return nil, err
	}
	if s := r.cfg.scaleFor(metric); s != 1 {
		for i := range boxes {
			scaleBox(&boxes[i], s)
		}
	}
	if len(boxes) < q {
		run.Warnings = append(run.Warnings, fmt.Sprintf("%d of %d bins kept after dropping duplicate edges", len(boxes), q))
	}
	r.log.Info("bins", zap.String("run", run.ID), zap.Int("bins", len(boxes)))
	return &BinsOutput{Run: run, By: by, Metric: metric, Boxes: boxes}, nil
}

func scaleBox(b *stats.Box, s float64) {
	b.Min /= s
	b.Q1 /= s
	b.Median /= s
	b.Q3 /= s
	b.Max /= s
	vals := make([]float64, len(b.Values))
	for i, v := range b.Values {
		vals[i] = v / s
	}
	b.Values = vals
}

// UnitsOutput lists unit names on both sides of the join.
type UnitsOutput struct {
	*Run
	Data     []string
	Polygons []string // nil when no boundary is configured
}

// Units lists the units present in the data and, when boundaries are
// configured, the polygon names.
func (r *Runner) Units(ctx context.Context) (*UnitsOutput, error) {
	run := r.newRun(Params{})
	ds, yearErrs, err := r.Load(ctx)
	if err != nil {
		return nil, err
	}
	run.YearErrors = yearErrs
	out := &UnitsOutput{Run: run, Data: ds.Units(r.cfg.Granularity.Column())}
	if r.cfg.Boundary.Path == "" {
		return out, nil
	}
	c, err := r.Boundaries(ctx)
	if err != nil {
		return nil, err
	}
	out.Polygons = polygonNames(c)
	return out, nil
}

func polygonNames(c *geo.Collection) []string {
	seen := map[string]bool{}
	var out []string
	for _, p := range c.Polygons {
		if !seen[p.Name] {
			seen[p.Name] = true
			out = append(out, p.Name)
		}
	}
	return out
}

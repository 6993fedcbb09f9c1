package cmd

import (
	"encoding/csv"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/geoagg-cli/internal/aggregate"
	"github.com/KaramelBytes/geoagg-cli/internal/firms"
	"github.com/KaramelBytes/geoagg-cli/internal/pipeline"
	"github.com/KaramelBytes/geoagg-cli/internal/render"
	"github.com/KaramelBytes/geoagg-cli/internal/report"
	"github.com/KaramelBytes/geoagg-cli/internal/utils"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"
)

// Shared data-selection flags. Each command registers them on its own flag
// set; only one command runs per process.
var (
	flagJob         string
	flagSources     []string
	flagYears       []int
	flagUnits       []string
	flagRegion      string
	flagMetric      string
	flagMode        string
	flagGranularity string
	flagThreshold   float64
	flagScale       float64
	flagBoundary    string
	flagDelimiter   string
	flagStrictYears bool
	flagFormat      string
	flagOutput      string
	flagChart       string
)

func addDataFlags(c *cobra.Command) {
	f := c.Flags()
	f.StringVar(&flagJob, "job", "", "YAML job file (default: nearest "+utils.JobFileName+" if present)")
	f.StringArrayVar(&flagSources, "source", nil, "yearly input as YEAR=PATH (repeatable)")
	f.IntSliceVar(&flagYears, "years", nil, "years to include (default: all loaded)")
	f.StringSliceVar(&flagUnits, "units", nil, "units to include, matched by normalized name (default: all)")
	f.StringVar(&flagRegion, "region", "", "department kept at ingestion (overrides config)")
	f.StringVar(&flagMetric, "metric", "", "average_sales | worker_count | experience_years")
	f.StringVar(&flagMode, "mode", "", "mean | sum")
	f.StringVar(&flagGranularity, "granularity", "", "province | district")
	f.Float64Var(&flagThreshold, "threshold", 0, "suppress map values below this (after scaling)")
	f.Float64Var(&flagScale, "scale", 0, "divisor for average_sales before display (e.g. 1e6)")
	f.StringVar(&flagBoundary, "boundary", "", "GeoJSON/shapefile path or URL")
	f.StringVar(&flagDelimiter, "delimiter", "", "CSV delimiter: '|' | ',' | ';' | 'tab' (sniffed if omitted)")
	f.BoolVar(&flagStrictYears, "strict-years", false, "abort when any year fails to load")
	f.StringVar(&flagFormat, "format", "table", "output format: table | markdown | xlsx | csv | json")
	f.StringVarP(&flagOutput, "output", "o", "", "write output to this path instead of stdout")
	f.StringVar(&flagChart, "chart", "", "also save a chart image (png|svg|pdf)")
}

// buildRunner merges config file < job file < flags into a pipeline Runner
// and Params.
func buildRunner(c *cobra.Command) (*pipeline.Runner, pipeline.Params, error) {
	var pc pipeline.Config
	var params pipeline.Params
	if cfg != nil {
		pc = pipeline.Config{
			Region:    cfg.Region,
			Delimiter: cfg.Delimiter,
			Extra:     cfg.Extra,
			Boundary: pipeline.Boundary{
				Path:       cfg.BoundaryPath,
				NameAttr:   cfg.BoundaryNameAttr,
				RegionAttr: cfg.BoundaryRegionAttr,
			},
			Granularity:       pipeline.Granularity(cfg.Granularity),
			Scale:             cfg.Scale,
			StrictYears:       cfg.StrictYears,
			StrictPolygonKeys: cfg.StrictPolygonKeys,
			HTTPTimeoutSec:    cfg.HTTPTimeoutSec,
		}
		for _, s := range cfg.Sources {
			pc.Sources = append(pc.Sources, pipeline.Source{Year: s.Year, Path: s.Path})
		}
		params.Metric = firms.Column(cfg.Metric)
		params.Mode = aggregate.Mode(cfg.Mode)
		params.Threshold = cfg.Threshold
	}

	jobPath := flagJob
	if jobPath == "" && len(flagSources) == 0 {
		if p, err := utils.FindJobFile(""); err == nil {
			jobPath = p
		}
	}
	if jobPath != "" {
		job, err := pipeline.LoadJob(jobPath)
		if err != nil {
			return nil, params, err
		}
		mergeJob(&pc, &params, job)
		logger.Debug("job loaded", zap.String("path", jobPath))
	}

	f := c.Flags()
	if len(flagSources) > 0 {
		pc.Sources = nil
		for _, s := range flagSources {
			src, err := pipeline.ParseSource(s)
			if err != nil {
				return nil, params, err
			}
			pc.Sources = append(pc.Sources, src)
		}
	}
	if f.Changed("region") {
		pc.Region = flagRegion
	}
	if f.Changed("granularity") {
		g, err := pipeline.ParseGranularity(flagGranularity)
		if err != nil {
			return nil, params, err
		}
		pc.Granularity = g
	}
	if f.Changed("scale") {
		pc.Scale = flagScale
	}
	if f.Changed("boundary") {
		pc.Boundary.Path = flagBoundary
	}
	if f.Changed("delimiter") {
		pc.Delimiter = flagDelimiter
	}
	if f.Changed("strict-years") {
		pc.StrictYears = flagStrictYears
	}
	if f.Changed("years") {
		params.Years = flagYears
	}
	if f.Changed("units") {
		params.Units = flagUnits
	}
	if f.Changed("metric") {
		m, ok := firms.ParseColumn(flagMetric)
		if !ok {
			return nil, params, fmt.Errorf("unknown --metric: %s", flagMetric)
		}
		params.Metric = m
	}
	if f.Changed("mode") {
		m, err := aggregate.ParseMode(flagMode)
		if err != nil {
			return nil, params, err
		}
		params.Mode = m
	}
	if f.Changed("threshold") {
		params.Threshold = flagThreshold
	}
	if params.Mode != "" {
		m, err := aggregate.ParseMode(string(params.Mode))
		if err != nil {
			return nil, params, err
		}
		params.Mode = m
	}

	r, err := pipeline.New(pc, logger)
	if err != nil {
		return nil, params, err
	}
	return r, params, nil
}

func mergeJob(pc *pipeline.Config, params *pipeline.Params, job *pipeline.Job) {
	jc := job.Config
	if jc.Region != "" {
		pc.Region = jc.Region
	}
	if len(jc.Sources) > 0 {
		pc.Sources = jc.Sources
	}
	if jc.Delimiter != "" {
		pc.Delimiter = jc.Delimiter
	}
	if len(jc.Extra) > 0 {
		pc.Extra = jc.Extra
	}
	if jc.Boundary.Path != "" {
		pc.Boundary.Path = jc.Boundary.Path
	}
	if jc.Boundary.NameAttr != "" {
		pc.Boundary.NameAttr = jc.Boundary.NameAttr
	}
	if jc.Boundary.RegionAttr != "" {
		pc.Boundary.RegionAttr = jc.Boundary.RegionAttr
	}
	if jc.Granularity != "" {
		pc.Granularity = jc.Granularity
	}
	if jc.Scale != 0 {
		pc.Scale = jc.Scale
	}
	pc.StrictYears = pc.StrictYears || jc.StrictYears
	pc.StrictPolygonKeys = pc.StrictPolygonKeys || jc.StrictPolygonKeys

	jp := job.Params
	if len(jp.Years) > 0 {
		params.Years = jp.Years
	}
	if len(jp.Units) > 0 {
		params.Units = jp.Units
	}
	if jp.Metric != "" {
		params.Metric = jp.Metric
	}
	if jp.Mode != "" {
		params.Mode = jp.Mode
	}
	if jp.Threshold != 0 || job.ThresholdSet {
		params.Threshold = jp.Threshold
	}
}

// parseColumns resolves column names given on the command line.
func parseColumns(names []string) ([]firms.Column, error) {
	out := make([]firms.Column, 0, len(names))
	for _, n := range names {
		c, ok := firms.ParseColumn(n)
		if !ok {
			return nil, fmt.Errorf("unknown column: %s", n)
		}
		out = append(out, c)
	}
	return out, nil
}

// reportRun prints the run id and non-fatal findings to stderr.
func reportRun(c *cobra.Command, run *pipeline.Run) {
	w := c.ErrOrStderr()
	for _, err := range run.YearErrors {
		fmt.Fprintf(w, "⚠ Warning: %v\n", err)
	}
	max := 10
	for i, msg := range run.Warnings {
		if i == max {
			fmt.Fprintf(w, "⚠ %d more warnings (use --debug for details)\n", len(run.Warnings)-max)
			break
		}
		fmt.Fprintf(w, "⚠ %s\n", msg)
	}
	logger.Debug("run finished", zap.String("run", run.ID))
}

// writeSheets renders sheets in the selected format to --output or stdout.
func writeSheets(c *cobra.Command, run *pipeline.Run, sheets ...*report.Sheet) error {
	out := flagOutput
	switch strings.ToLower(flagFormat) {
	case "table", "":
		if out == "" {
			return report.WriteTable(c.OutOrStdout(), sheets...)
		}
		var b strings.Builder
		if err := report.WriteTable(&b, sheets...); err != nil {
			return err
		}
		return writeText(c, out, b.String())
	case "markdown", "md":
		md := fmt.Sprintf("[RUN]\nid: %s\n\n", run.ID) + report.Markdown(sheets...)
		if out == "" {
			fmt.Fprint(c.OutOrStdout(), md)
			return nil
		}
		return writeText(c, out, md)
	case "xlsx":
		if out == "" {
			out = defaultOutput(fmt.Sprintf("geoagg-%s.xlsx", run.ID[:8]))
		}
		if err := utils.EnsureDir(filepath.Dir(out)); err != nil {
			return err
		}
		if err := report.WriteXLSX(out, sheets...); err != nil {
			return err
		}
		fmt.Fprintf(c.OutOrStdout(), "✓ Wrote %s\n", out)
		return nil
	case "csv":
		var b strings.Builder
		w := csv.NewWriter(&b)
		for _, s := range sheets {
			_ = w.Write(s.Header)
			for _, r := range s.Rows {
				cells := make([]string, len(r))
				for j, v := range r {
					cells[j] = s.Text(v)
				}
				_ = w.Write(cells)
			}
		}
		w.Flush()
		if err := w.Error(); err != nil {
			return err
		}
		if out == "" {
			fmt.Fprint(c.OutOrStdout(), b.String())
			return nil
		}
		return writeText(c, out, b.String())
	case "json":
		type jsonSheet struct {
			Name   string     `json:"name"`
			Header []string   `json:"header"`
			Rows   [][]string `json:"rows"`
			Notes  []string   `json:"notes,omitempty"`
		}
		doc := struct {
			Run    string      `json:"run"`
			Sheets []jsonSheet `json:"sheets"`
		}{Run: run.ID}
		for _, s := range sheets {
			js := jsonSheet{Name: s.Name, Header: s.Header, Notes: s.Notes}
			for _, r := range s.Rows {
				cells := make([]string, len(r))
				for j, v := range r {
					cells[j] = s.Text(v)
				}
				js.Rows = append(js.Rows, cells)
			}
			doc.Sheets = append(doc.Sheets, js)
		}
		b, err := utils.PrettyJSON(doc)
		if err != nil {
			return err
		}
		if out == "" {
			fmt.Fprintln(c.OutOrStdout(), string(b))
			return nil
		}
		return writeText(c, out, string(b)+"\n")
	}
	return fmt.Errorf("unsupported --format: %s (use table|markdown|xlsx|csv|json)", flagFormat)
}

func writeText(c *cobra.Command, path, s string) error {
	if err := utils.SafeWriteFile(path, []byte(s)); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	fmt.Fprintf(c.OutOrStdout(), "✓ Wrote %s\n", path)
	return nil
}

// defaultOutput places name under the configured output_dir.
func defaultOutput(name string) string {
	if cfg != nil && cfg.OutputDir != "" {
		return filepath.Join(cfg.OutputDir, name)
	}
	return name
}

// saveChart writes p to path (default: output_dir/name).
func saveChart(c *cobra.Command, p *plot.Plot, path string, w, h vg.Length) error {
	if err := utils.EnsureDir(filepath.Dir(path)); err != nil {
		return err
	}
	if err := render.Save(p, path, w, h); err != nil {
		return err
	}
	fmt.Fprintf(c.OutOrStdout(), "✓ Wrote %s\n", path)
	return nil
}

package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/KaramelBytes/geoagg-cli/internal/pipeline"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/xuri/excelize/v2"
)

const csvHeader = "departamento|provincia|distrito|ciiu|sector|venta_prom|trabajador|experiencia"

const geojsonFixture = `{"type":"FeatureCollection","features":[
 {"type":"Feature","properties":{"DEPARTAMEN":"LIMA","PROVINCIA":"Lima"},
  "geometry":{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,0]]]}},
 {"type":"Feature","properties":{"DEPARTAMEN":"LIMA","PROVINCIA":"Cañete"},
  "geometry":{"type":"Polygon","coordinates":[[[1,0],[2,0],[2,1],[1,0]]]}},
 {"type":"Feature","properties":{"DEPARTAMEN":"LIMA","PROVINCIA":"Canta"},
  "geometry":{"type":"Polygon","coordinates":[[[2,0],[3,0],[3,1],[2,0]]]}}
]}`

// resetFlags clears bound variables and Changed state between invocations.
func resetFlags() {
	flagJob, flagRegion, flagMetric, flagMode, flagGranularity = "", "", "", "", ""
	flagSources, flagYears, flagUnits = nil, nil, nil
	flagThreshold, flagScale = 0, 0
	flagBoundary, flagDelimiter, flagOutput, flagChart = "", "", "", ""
	flagStrictYears = false
	flagFormat = "table"
	aggGroupBy, corrFields = nil, nil
	mapImage, mapTitle, mapLabels = "", "", false
	cfg = nil
	var reset func(c *cobra.Command)
	reset = func(c *cobra.Command) {
		c.Flags().VisitAll(func(f *pflag.Flag) {
			if sv, ok := f.Value.(pflag.SliceValue); ok {
				_ = sv.Replace(nil)
			}
			f.Changed = false
		})
		for _, sub := range c.Commands() {
			reset(sub)
		}
	}
	reset(rootCmd)
	fitX, fitY = "worker_count", "average_sales"
	binsBy, binsQ = "experience_years", 6
}

func runCmd(t *testing.T, args ...string) string {
	t.Helper()
	out, err := execCmd(args...)
	if err != nil {
		t.Fatalf("command %v failed: %v\n%s", args, err, out)
	}
	return out
}

func execCmd(args ...string) (string, error) {
	resetFlags()
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

// setup isolates HOME and the working directory and writes two years of data
// plus a boundary file.
func setup(t *testing.T) (dir, y22, y23, geo string) {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(home); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })

	write := func(name, body string) string {
		p := filepath.Join(home, name)
		if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
		return p
	}
	y22 = write("GRAN_EMPRESA_2022_MANUFACTURA.csv", strings.Join([]string{
		csvHeader,
		"LIMA|LIMA|MIRAFLORES|1010|Alimentos|100000|10|5",
		"LIMA|LIMA|SURCO|1010|Alimentos|300000|30|10",
		"LIMA|CAÑETE|SAN VICENTE|1020|Textil|50000|5|2",
		"CUSCO|CUSCO|CUSCO|1010|Alimentos|999999|99|9",
	}, "\n"))
	y23 = write("GRAN_EMPRESA_2023_MANUFACTURA.csv", strings.Join([]string{
		csvHeader,
		"LIMA|LIMA|MIRAFLORES|1010|Alimentos|500000|50|7",
		"LIMA|CANETE|SAN VICENTE|1020|Textil|70000|7|3",
	}, "\n"))
	geo = write("provincias.geojson", geojsonFixture)
	return home, y22, y23, geo
}

func TestCLI_AggregateAndPivot(t *testing.T) {
	_, y22, y23, _ := setup(t)
	src := []string{"--source", "2022=" + y22, "--source", "2023=" + y23}

	out := runCmd(t, append([]string{"aggregate", "--mode", "mean", "--scale", "1000", "--format", "markdown"}, src...)...)
	if !strings.Contains(out, "[MEAN AVERAGE_SALES]") {
		t.Fatalf("missing section:\n%s", out)
	}
	if !strings.Contains(out, "| LIMA | 300.00 | 3 |") {
		t.Fatalf("unexpected LIMA mean:\n%s", out)
	}
	// Config default scale is 1e6.
	out = runCmd(t, append([]string{"pivot", "--mode", "sum", "--format", "csv"}, src...)...)
	if !strings.Contains(out, "LIMA,0.40,0.50") {
		t.Fatalf("unexpected pivot:\n%s", out)
	}
	if !strings.Contains(out, "n/a") {
		t.Fatalf("expected missing marker:\n%s", out)
	}
}

func TestCLI_MapWritesImageAndSuppresses(t *testing.T) {
	dir, y22, y23, geo := setup(t)
	img := filepath.Join(dir, "out", "lima.png")
	out := runCmd(t, "map",
		"--source", "2022="+y22, "--source", "2023="+y23,
		"--boundary", geo, "--scale", "1e6", "--threshold", "0.1",
		"--years", "2023", "--image", img, "--format", "markdown")
	if _, err := os.Stat(img); err != nil {
		t.Fatalf("map image not written: %v\n%s", err, out)
	}
	if !strings.Contains(out, "| Lima | LIMA | 0.50 | 0.50 |") {
		t.Fatalf("Lima row wrong:\n%s", out)
	}
	if !strings.Contains(out, "| Cañete | CANETE | 0.07 | No data |") {
		t.Fatalf("Cañete should be suppressed:\n%s", out)
	}
	if !strings.Contains(out, "| Canta |  | No data | No data |") {
		t.Fatalf("Canta should have no data:\n%s", out)
	}
}

// CAÑETE (2022) and CANETE (2023) are distinct raw units sharing one key.
func TestCLI_MapAmbiguousUnits(t *testing.T) {
	_, y22, y23, geo := setup(t)
	_, err := execCmd("map", "--source", "2022="+y22, "--source", "2023="+y23, "--boundary", geo, "--format", "csv", "--image", filepath.Join(t.TempDir(), "m.png"))
	if err == nil || !strings.Contains(err.Error(), "ambiguous join key") {
		t.Fatalf("expected ambiguous join error, got %v", err)
	}
}

func TestCLI_CorrelateFitBinsUnitsXLSX(t *testing.T) {
	dir, y22, y23, geo := setup(t)
	src := []string{"--source", "2022=" + y22, "--source", "2023=" + y23}

	out := runCmd(t, append([]string{"correlate", "--format", "json"}, src...)...)
	if !strings.Contains(out, `"name": "correlation"`) {
		t.Fatalf("unexpected correlate output:\n%s", out)
	}

	chart := filepath.Join(dir, "fit.png")
	runCmd(t, append([]string{"fit", "--chart", chart}, src...)...)
	if _, err := os.Stat(chart); err != nil {
		t.Fatalf("fit chart missing: %v", err)
	}

	runCmd(t, append([]string{"bins", "--q", "2", "--format", "markdown"}, src...)...)

	out = runCmd(t, append([]string{"units", "--boundary", geo, "--years", "2022"}, src...)...)
	if !strings.Contains(out, "boundary units") || !strings.Contains(out, "Cañete") {
		t.Fatalf("unexpected units output:\n%s", out)
	}

	xlsx := filepath.Join(dir, "agg.xlsx")
	runCmd(t, append([]string{"aggregate", "--format", "xlsx", "-o", xlsx, "--scale", "1", "--group-by", "sector,año"}, src...)...)
	f, err := excelize.OpenFile(xlsx)
	if err != nil {
		t.Fatalf("open xlsx: %v", err)
	}
	defer f.Close()
	rows, err := f.GetRows(f.GetSheetList()[0])
	if err != nil || len(rows) != 5 {
		t.Fatalf("xlsx rows = %d, %v", len(rows), err)
	}
}

func TestCLI_JobFileDiscovery(t *testing.T) {
	dir, y22, _, _ := setup(t)
	job := "region: lima\nsources:\n  - {year: 2022, path: " + filepath.Base(y22) + "}\nparams:\n  mode: sum\n"
	if err := os.WriteFile(filepath.Join(dir, "geoagg.yaml"), []byte(job), 0o644); err != nil {
		t.Fatal(err)
	}
	out := runCmd(t, "aggregate", "--format", "csv")
	if !strings.Contains(out, "LIMA,0.40,2") {
		t.Fatalf("job file not applied:\n%s", out)
	}
}

func TestCLI_StrictYears(t *testing.T) {
	_, y22, _, _ := setup(t)
	_, err := execCmd("aggregate", "--source", "2022="+y22, "--source", "2023=missing.csv", "--strict-years")
	if err == nil {
		t.Fatalf("expected strict-years failure")
	}
	out := runCmd(t, "aggregate", "--source", "2022="+y22, "--source", "2023=missing.csv")
	if !strings.Contains(out, "⚠ Warning: ingest missing.csv (year 2023)") {
		t.Fatalf("expected per-year warning:\n%s", out)
	}
}

func TestCLI_ConfigSetShow(t *testing.T) {
	_, y22, _, _ := setup(t)
	runCmd(t, "config", "set", "threshold", "0.5")
	runCmd(t, "config", "set", "source", "2022="+y22)
	out := runCmd(t, "config", "show")
	if !strings.Contains(out, "threshold: 0.5") || !strings.Contains(out, "source: 2022=") {
		t.Fatalf("unexpected config show:\n%s", out)
	}
	if _, err := execCmd("config", "set", "granularity", "country"); err == nil {
		t.Fatalf("expected validation error")
	}
	// Sources from config drive a run without flags; aggregate defaults to mean.
	out = runCmd(t, "aggregate", "--format", "csv")
	if !strings.Contains(out, "LIMA,0.20,2") {
		t.Fatalf("config sources not used:\n%s", out)
	}
}

func TestMergeJobExplicitZeroThreshold(t *testing.T) {
	pc := pipeline.Config{}
	params := pipeline.Params{Threshold: 0.1}
	mergeJob(&pc, &params, &pipeline.Job{})
	if params.Threshold != 0.1 {
		t.Fatalf("absent threshold must keep config value, got %g", params.Threshold)
	}
	mergeJob(&pc, &params, &pipeline.Job{ThresholdSet: true})
	if params.Threshold != 0 {
		t.Fatalf("explicit zero threshold ignored, got %g", params.Threshold)
	}
}

func TestCLI_JobZeroThresholdShowsSmallValues(t *testing.T) {
	dir, _, y23, geo := setup(t)
	job := "sources:\n  - {year: 2023, path: " + filepath.Base(y23) + "}\n" +
		"boundary: {path: " + filepath.Base(geo) + "}\nparams:\n  threshold: 0\n"
	if err := os.WriteFile(filepath.Join(dir, "geoagg.yaml"), []byte(job), 0o644); err != nil {
		t.Fatal(err)
	}
	out := runCmd(t, "map", "--format", "markdown", "--image", filepath.Join(dir, "m.png"))
	if !strings.Contains(out, "| Cañete | CANETE | 0.07 | 0.07 |") {
		t.Fatalf("zero threshold from job not applied:\n%s", out)
	}
}

package cmd

import (
	"fmt"

	"github.com/KaramelBytes/geoagg-cli/internal/render"
	"github.com/KaramelBytes/geoagg-cli/internal/report"
	"github.com/spf13/cobra"
	"gonum.org/v1/plot/vg"
)

var (
	mapImage  string
	mapTitle  string
	mapLabels bool
)

var mapCmd = &cobra.Command{
	Use:   "map",
	Short: "Join a per-unit metric to boundaries and draw a choropleth",
	Long: `Aggregate the metric per unit (sum by default), join it to the boundary
polygons by normalized name and draw a choropleth. Polygons without data, or
with a value below --threshold, are drawn in the background color and listed
as "No data".`,
	Example: `  geoagg map --source 2024=GRAN_EMPRESA_2024_MANUFACTURA.csv \
    --boundary provincias.geojson --scale 1e6 --threshold 0.1 --image lima.png`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		r, params, err := buildRunner(cmd)
		if err != nil {
			return err
		}
		out, err := r.Map(cmd.Context(), params)
		if err != nil {
			return err
		}
		reportRun(cmd, out.Run)
		if err := writeSheets(cmd, out.Run, report.JoinSheet(out.Rows, out.Summary)); err != nil {
			return err
		}
		path := mapImage
		if path == "" {
			path = flagChart
		}
		if path == "" {
			path = defaultOutput(fmt.Sprintf("map_%s.png", out.Params.Metric))
		}
		legend := string(out.Params.Metric)
		if out.Scale != 1 {
			legend = fmt.Sprintf("%s (/%g)", legend, out.Scale)
		}
		title := mapTitle
		if title == "" {
			title = fmt.Sprintf("%s %s, %s", out.Params.Mode, out.Params.Metric, r.Config().Region)
		}
		p, err := render.Choropleth(out.Rows, render.MapOptions{Title: title, LegendLabel: legend, Labels: mapLabels})
		if err != nil {
			return err
		}
		return saveChart(cmd, p, path, 8*vg.Inch, 8*vg.Inch)
	},
}

func init() {
	rootCmd.AddCommand(mapCmd)
	addDataFlags(mapCmd)
	mapCmd.Flags().StringVar(&mapImage, "image", "", "map image path (default: output_dir/map_<metric>.png)")
	mapCmd.Flags().StringVar(&mapTitle, "title", "", "map title")
	mapCmd.Flags().BoolVar(&mapLabels, "labels", false, "annotate polygons with their values")
}

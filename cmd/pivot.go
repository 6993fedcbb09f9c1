package cmd

import (
	"fmt"

	"github.com/KaramelBytes/geoagg-cli/internal/render"
	"github.com/KaramelBytes/geoagg-cli/internal/report"
	"github.com/spf13/cobra"
	"gonum.org/v1/plot/vg"
)

var pivotCmd = &cobra.Command{
	Use:   "pivot",
	Short: "Unit × year matrix of a metric; missing combinations show n/a",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		r, params, err := buildRunner(cmd)
		if err != nil {
			return err
		}
		out, err := r.Pivot(cmd.Context(), params)
		if err != nil {
			return err
		}
		reportRun(cmd, out.Run)
		if err := writeSheets(cmd, out.Run, report.PivotSheet(out.Matrix)); err != nil {
			return err
		}
		if flagChart != "" && len(out.Matrix.Rows) > 0 {
			title := fmt.Sprintf("%s %s by %s and year", out.Params.Mode, out.Params.Metric, out.Matrix.RowField)
			p, err := render.PivotHeatmap(title, out.Matrix)
			if err != nil {
				return err
			}
			return saveChart(cmd, p, flagChart, 8*vg.Inch, vg.Length(len(out.Matrix.Rows)+3)*0.4*vg.Inch)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(pivotCmd)
	addDataFlags(pivotCmd)
}

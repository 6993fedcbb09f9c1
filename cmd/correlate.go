package cmd

import (
	"github.com/KaramelBytes/geoagg-cli/internal/render"
	"github.com/KaramelBytes/geoagg-cli/internal/report"
	"github.com/spf13/cobra"
	"gonum.org/v1/plot/vg"
)

var corrFields []string

var correlateCmd = &cobra.Command{
	Use:   "correlate",
	Short: "Pearson correlation matrix of numeric fields",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		r, params, err := buildRunner(cmd)
		if err != nil {
			return err
		}
		fields, err := parseColumns(corrFields)
		if err != nil {
			return err
		}
		out, err := r.Correlate(cmd.Context(), params, fields...)
		if err != nil {
			return err
		}
		reportRun(cmd, out.Run)
		if err := writeSheets(cmd, out.Run, report.CorrelationSheet(out.Matrix)); err != nil {
			return err
		}
		if flagChart != "" {
			p, err := render.CorrelationHeatmap("Correlation", out.Matrix)
			if err != nil {
				return err
			}
			return saveChart(cmd, p, flagChart, 6*vg.Inch, 5*vg.Inch)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(correlateCmd)
	addDataFlags(correlateCmd)
	correlateCmd.Flags().StringSliceVar(&corrFields, "fields", nil, "numeric fields (default: average_sales,worker_count,experience_years)")
}

package cmd

import (
	"fmt"

	"github.com/KaramelBytes/geoagg-cli/internal/render"
	"github.com/KaramelBytes/geoagg-cli/internal/report"
	"github.com/spf13/cobra"
	"gonum.org/v1/plot/vg"
)

var aggGroupBy []string

var aggregateCmd = &cobra.Command{
	Use:   "aggregate",
	Short: "Grouped mean or sum of a metric (default: per unit)",
	Example: `  geoagg aggregate --source 2022=GRAN_EMPRESA_2022_MANUFACTURA.csv --metric average_sales --mode mean
  geoagg aggregate --group-by sector,year --format markdown`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		r, params, err := buildRunner(cmd)
		if err != nil {
			return err
		}
		groupBy, err := parseColumns(aggGroupBy)
		if err != nil {
			return err
		}
		out, err := r.Aggregate(cmd.Context(), params, groupBy...)
		if err != nil {
			return err
		}
		reportRun(cmd, out.Run)
		sheet := report.AggregateSheet(out.Result)
		if out.Scale != 1 {
			sheet.Notes = append(sheet.Notes, fmt.Sprintf("values divided by %g", out.Scale))
		}
		if err := writeSheets(cmd, out.Run, sheet); err != nil {
			return err
		}
		if flagChart != "" && !out.Result.Empty {
			p, err := render.Bars(fmt.Sprintf("%s %s", out.Result.Mode, out.Result.Metric), string(out.Result.Metric), out.Result)
			if err != nil {
				return err
			}
			return saveChart(cmd, p, flagChart, 10*vg.Inch, 6*vg.Inch)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(aggregateCmd)
	addDataFlags(aggregateCmd)
	aggregateCmd.Flags().StringSliceVar(&aggGroupBy, "group-by", nil, "columns to group by (default: the granularity's unit column)")
}

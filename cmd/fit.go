package cmd

import (
	"fmt"

	"github.com/KaramelBytes/geoagg-cli/internal/firms"
	"github.com/KaramelBytes/geoagg-cli/internal/render"
	"github.com/KaramelBytes/geoagg-cli/internal/report"
	"github.com/spf13/cobra"
	"gonum.org/v1/plot/vg"
)

var (
	fitX string
	fitY string
)

var fitCmd = &cobra.Command{
	Use:   "fit",
	Short: "Linear fit of one metric on another, with an optional scatter chart",
	Long: `Fit y = a + b·x by least squares over the selected records. With --chart,
draw the unit-year means of x and y with the line fitted to those points.
The fit is descriptive only.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		r, params, err := buildRunner(cmd)
		if err != nil {
			return err
		}
		x, ok := firms.ParseColumn(fitX)
		if !ok {
			return fmt.Errorf("unknown --x: %s", fitX)
		}
		y, ok := firms.ParseColumn(fitY)
		if !ok {
			return fmt.Errorf("unknown --y: %s", fitY)
		}
		out, err := r.Fit(cmd.Context(), params, x, y)
		if err != nil {
			return err
		}
		reportRun(cmd, out.Run)
		if err := writeSheets(cmd, out.Run, report.FitSheet(out.Fit)); err != nil {
			return err
		}
		if flagChart == "" {
			return nil
		}
		sc, err := r.Scatter(cmd.Context(), params, x, y)
		if err != nil {
			return err
		}
		p, err := render.Scatter(fmt.Sprintf("%s vs %s (unit-year means)", y, x), sc.Series, sc.Fit)
		if err != nil {
			return err
		}
		return saveChart(cmd, p, flagChart, 8*vg.Inch, 6*vg.Inch)
	},
}

func init() {
	rootCmd.AddCommand(fitCmd)
	addDataFlags(fitCmd)
	fitCmd.Flags().StringVar(&fitX, "x", string(firms.ColWorkers), "predictor field")
	fitCmd.Flags().StringVar(&fitY, "y", string(firms.ColSales), "response field")
}

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
	binsBy string
	binsQ  int
)

var binsCmd = &cobra.Command{
	Use:   "bins",
	Short: "Distribution of a metric across quantile bins of another field",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		r, params, err := buildRunner(cmd)
		if err != nil {
			return err
		}
		by, ok := firms.ParseColumn(binsBy)
		if !ok {
			return fmt.Errorf("unknown --by: %s", binsBy)
		}
		metric := params.Metric
		if metric == "" {
			metric = firms.ColSales
		}
		out, err := r.Bins(cmd.Context(), params, by, metric, binsQ)
		if err != nil {
			return err
		}
		reportRun(cmd, out.Run)
		if err := writeSheets(cmd, out.Run, report.BinsSheet(out.By, out.Metric, out.Boxes)); err != nil {
			return err
		}
		if flagChart != "" && len(out.Boxes) > 0 {
			p, err := render.BoxPlot(fmt.Sprintf("%s by %s", out.Metric, out.By), string(out.By), string(out.Metric), out.Boxes)
			if err != nil {
				return err
			}
			return saveChart(cmd, p, flagChart, 8*vg.Inch, 6*vg.Inch)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(binsCmd)
	addDataFlags(binsCmd)
	binsCmd.Flags().StringVar(&binsBy, "by", string(firms.ColExperience), "numeric field to cut into quantile bins")
	binsCmd.Flags().IntVar(&binsQ, "q", 6, "number of quantile bins (duplicate edges are dropped)")
}

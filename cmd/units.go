package cmd

import (
	"github.com/KaramelBytes/geoagg-cli/internal/report"
	"github.com/spf13/cobra"
)

var unitsCmd = &cobra.Command{
	Use:   "units",
	Short: "List units found in the data and in the boundary file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		r, _, err := buildRunner(cmd)
		if err != nil {
			return err
		}
		out, err := r.Units(cmd.Context())
		if err != nil {
			return err
		}
		reportRun(cmd, out.Run)
		col := string(r.Config().Granularity.Column())
		sheets := []*report.Sheet{report.ListSheet("data units", col, out.Data)}
		if out.Polygons != nil {
			sheets = append(sheets, report.ListSheet("boundary units", col, out.Polygons))
		}
		return writeSheets(cmd, out.Run, sheets...)
	},
}

func init() {
	rootCmd.AddCommand(unitsCmd)
	addDataFlags(unitsCmd)
}

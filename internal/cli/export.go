package cli

import (
	"github.com/spf13/cobra"

	"set-index-snapshots/internal/app"
)

var (
	exportFrom      string
	exportTo        string
	exportCSV       string
	exportPNG       string
	exportMaxPoints int
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export recorded history to CSV and/or a PNG chart",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Export(cmd.Context(), app.ExportOptions{
			From:      exportFrom,
			To:        exportTo,
			CSVPath:   exportCSV,
			PNGPath:   exportPNG,
			MaxPoints: exportMaxPoints,
		})
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportFrom, "from", "", "Start date (YYYY-MM-DD, inclusive)")
	exportCmd.Flags().StringVar(&exportTo, "to", "", "End date (YYYY-MM-DD, inclusive)")
	exportCmd.Flags().StringVar(&exportCSV, "csv", "", "Write history rows to this CSV file")
	exportCmd.Flags().StringVar(&exportPNG, "png", "", "Write a SET index chart to this PNG file")
	exportCmd.Flags().IntVar(&exportMaxPoints, "max-points", 0, "Downsample chart to at most this many points (0 = config default)")
}

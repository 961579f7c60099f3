package cli

import (
	"github.com/spf13/cobra"

	"set-index-snapshots/internal/app"
)

var showLimit int

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Print recorded history as a table, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Show(cmd.Context(), app.ShowOptions{Limit: showLimit})
	},
}

func init() {
	showCmd.Flags().IntVar(&showLimit, "limit", 0, "Maximum number of days to print (0 = all)")
}

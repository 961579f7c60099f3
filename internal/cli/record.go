package cli

import (
	"github.com/spf13/cobra"
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Run a single record cycle and print the result as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Record(cmd.Context())
	},
}

package cmd

import (
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/taskplan/internal/tui"
)

var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Browse plans and task trees interactively",
	RunE:  runBrowse,
}

func init() {
	rootCmd.AddCommand(browseCmd)
}

func runBrowse(cmd *cobra.Command, args []string) error {
	a, err := buildApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.cleanup()

	return tui.Run(a.service)
}

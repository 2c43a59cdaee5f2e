package cmd

import (
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/taskplan/internal/mcptools"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the planner over MCP on stdin/stdout",
	Long: `Start the Model Context Protocol server on stdio. All logs go to
stderr; stdout carries the protocol.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := buildApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.cleanup()

	s := mcptools.NewServer(a.service, a.logger, mcptools.Options{
		StrictErrors: a.cfg.API.StrictErrors,
	})

	a.logger.Info("mcp server listening on stdio")
	return mcptools.ServeStdio(s)
}

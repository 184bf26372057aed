package main

import (
	"github.com/qepting91/postwatch/internal/dashboard"
	"github.com/spf13/cobra"
)

func serveCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the generated status site",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return dashboard.Serve(cmd.Context(), c.cfg.Port, c.cfg.OutputDir, c.log)
		},
	}
}

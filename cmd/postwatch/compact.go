package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func compactCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "compact",
		Short: "Forget history and buckets older than retention_days",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.app(cmd)
			if err != nil {
				return err
			}
			rep, err := a.Compact(cmd.Context())
			if err != nil {
				return err
			}
			if rep.Cutoff != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "before %s: %d records, %d buckets removed\n", rep.Cutoff, rep.Records, rep.Buckets)
			}
			return nil
		},
	}
}

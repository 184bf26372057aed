package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func runCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Fetch all sources once and record new posts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.app(cmd)
			if err != nil {
				return err
			}
			sum, err := a.Run(cmd.Context())
			if err != nil {
				return err
			}
			if sum.Skipped {
				fmt.Fprintln(cmd.OutOrStdout(), color.New(color.FgYellow).Sprint("crawler disabled"))
				return nil
			}

			failed := fmt.Sprint(sum.Failed())
			if sum.Failed() > 0 {
				failed = color.New(color.FgRed).Sprint(failed)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s  sources: %d  unavailable: %s  new: %s\n",
				sum.Day, len(sum.Sources), failed,
				color.New(color.FgGreen, color.Bold).Sprint(len(sum.Novel)))
			return nil
		},
	}
}

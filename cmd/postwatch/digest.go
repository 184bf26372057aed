package main

import (
	"time"

	"github.com/qepting91/postwatch/internal/app"
	"github.com/spf13/cobra"
)

func digestCmd(c *cli) *cobra.Command {
	var opts app.DigestOptions
	cmd := &cobra.Command{
		Use:   "digest",
		Short: "Send yesterday's and today's new posts by mail and WeChat",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.app(cmd)
			if err != nil {
				return err
			}
			_, err = a.Digest(cmd.Context(), time.Now(), opts)
			return err
		},
	}
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "print the digest instead of sending it")
	cmd.Flags().BoolVar(&opts.Latest, "latest", false, "send the latest posts of every source from the last run")
	return cmd
}

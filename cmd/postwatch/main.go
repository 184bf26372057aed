package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/qepting91/postwatch/internal/app"
	"github.com/qepting91/postwatch/internal/config"
	"github.com/qepting91/postwatch/internal/logger"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// cli is the state shared by all subcommands once the root has loaded config.
type cli struct {
	configFile string
	cfg        config.Settings
	log        zerolog.Logger
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		logger.Get().Error().Err(err).Msg("postwatch failed")
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:   "postwatch",
		Short: "postwatch watches profile pages and reports posts it has never seen",
		Long: `postwatch fetches a list of profile pages, remembers every post link it has
seen, files the new ones under the day they were found and mails or pushes a
digest of yesterday's and today's new posts.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(c.configFile)
			if err != nil {
				return err
			}
			c.cfg = cfg
			logger.Init(logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
			c.log = *logger.Get()
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&c.configFile, "config", "c", "", "path to a YAML config file (env and .env still apply)")

	root.AddCommand(runCmd(c))
	root.AddCommand(digestCmd(c))
	root.AddCommand(compactCmd(c))
	root.AddCommand(serveCmd(c))
	return root
}

func (c *cli) app(cmd *cobra.Command, opts ...app.Option) (*app.App, error) {
	opts = append([]app.Option{app.WithLogger(c.log), app.WithOutput(cmd.OutOrStdout())}, opts...)
	return app.New(c.cfg, opts...)
}

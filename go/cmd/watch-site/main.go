package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/a1motion/preview/go/config"
	"github.com/a1motion/preview/go/devserver"
	"github.com/a1motion/preview/go/logging"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "watch-site",
	Short: "Serve the site locally and rebuild on every change",
	Long: `Build a readable, legacy-only copy of the site, serve it on the configured
port and rebuild whatever a changed source file affects. Open pages reload
themselves once their rebuild finishes. Set SITE_VERBOSE=true to log every
change and written file.`,
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE:         run,
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	log := logging.New(os.Stderr, false)

	root, err := config.FindRepoRoot()
	if err != nil {
		log.Error().Err(err).Msg("could not find repo root (no go.mod)")
		return err
	}
	cfg, err := config.Load(root)
	if err != nil {
		log.Error().Err(err).Msg("load config")
		return err
	}
	log = logging.New(os.Stderr, cfg.Verbose)

	srv, err := devserver.New(cfg, log)
	if err != nil {
		log.Error().Err(err).Msg("[watch] setup")
		return err
	}
	if err := srv.Run(cmd.Context()); err != nil {
		log.Error().Err(err).Msg("[watch] stopped")
		return err
	}
	return nil
}

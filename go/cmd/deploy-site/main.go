package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/a1motion/preview/go/config"
	"github.com/a1motion/preview/go/deploy"
	"github.com/a1motion/preview/go/logging"
	"github.com/a1motion/preview/go/releases"
	"github.com/a1motion/preview/go/version"
	"github.com/spf13/cobra"
)

var (
	verbose bool
	history int
)

var rootCmd = &cobra.Command{
	Use:          "deploy-site",
	Short:        "Upload the existing build and static files",
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE:         run,
}

var releasesCmd = &cobra.Command{
	Use:          "releases",
	Short:        "List recent releases recorded in the releases table",
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE:         runReleases,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log every uploaded object")
	releasesCmd.Flags().IntVarP(&history, "limit", "n", 10, "Number of releases to show (0 for all)")
	rootCmd.AddCommand(releasesCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	root, err := config.FindRepoRoot()
	if err != nil {
		return nil, err
	}
	return config.Load(root)
}

func run(cmd *cobra.Command, _ []string) error {
	log := logging.New(os.Stderr, verbose)
	cfg, err := loadConfig()
	if err != nil {
		log.Error().Err(err).Msg("load config")
		return err
	}
	v, err := version.Resolve(cfg.Root, cfg.Version)
	if err != nil {
		log.Error().Err(err).Msg("resolve version")
		return err
	}

	client, err := deploy.NewS3Client(cmd.Context())
	if err != nil {
		log.Error().Err(err).Msg("[deploy] aws config")
		return err
	}
	if _, err := deploy.Site(cmd.Context(), cfg, client, v, log); err != nil {
		log.Error().Err(err).Msg("[deploy] failed")
		return err
	}
	return nil
}

func runReleases(cmd *cobra.Command, _ []string) error {
	log := logging.New(os.Stderr, verbose)
	cfg, err := loadConfig()
	if err != nil {
		log.Error().Err(err).Msg("load config")
		return err
	}
	if cfg.Deploy.ReleasesTable == "" {
		log.Warn().Msg("deploy.releases_table is not configured")
		return nil
	}

	list, err := releases.Store{Table: cfg.Deploy.ReleasesTable}.List(cmd.Context(), cfg.Deploy.Site, history)
	if err != nil {
		log.Error().Err(err).Msg("list releases")
		return err
	}
	for _, r := range list {
		fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  %4d files  %s/%s\n", r.CreatedAt, r.Version, r.Files, r.Bucket, r.Prefix)
	}
	return nil
}

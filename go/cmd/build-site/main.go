package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/a1motion/preview/go/config"
	"github.com/a1motion/preview/go/deploy"
	"github.com/a1motion/preview/go/logging"
	"github.com/a1motion/preview/go/site"
	"github.com/spf13/cobra"
)

var (
	production bool
	publish    bool
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "build-site",
	Short: "Build every page and asset bundle into the build directory",
	Long: `Build the legacy and modern script bundles, the stylesheets and every page.

Without --production the output stays readable. With --deploy the finished
production build is uploaded to the configured bucket.`,
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	rootCmd.Flags().BoolVar(&production, "production", false, "Minify bundles and pages")
	rootCmd.Flags().BoolVar(&publish, "deploy", false, "Upload the build after it finishes (requires --production)")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Log every written file")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	log := logging.New(os.Stderr, verbose)
	if publish && !production {
		return errors.New("--deploy requires --production")
	}

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

	res, err := site.NewBuilder(cfg, log).Build(cmd.Context(), production)
	if err != nil {
		log.Error().Err(err).Msg("[build] failed")
		return err
	}
	log.Info().Str("version", res.Version).Int("pages", len(res.Pages)).Msg("[build] done")

	if !publish {
		return nil
	}
	client, err := deploy.NewS3Client(cmd.Context())
	if err != nil {
		log.Error().Err(err).Msg("[deploy] aws config")
		return err
	}
	if _, err := deploy.Site(cmd.Context(), cfg, client, res.Version, log); err != nil {
		log.Error().Err(err).Msg("[deploy] failed")
		return err
	}
	return nil
}

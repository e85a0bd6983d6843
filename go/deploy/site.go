package deploy

import (
	"context"
	"fmt"

	"github.com/a1motion/preview/go/config"
	"github.com/a1motion/preview/go/releases"
	"github.com/rs/zerolog"
)

// Site uploads the build and static directories described by cfg. When a
// releases table is configured the upload is recorded there; otherwise the
// returned release is nil.
func Site(ctx context.Context, cfg *config.Config, client ObjectPutter, version string, log zerolog.Logger) (*releases.Release, error) {
	objs, err := Plan(cfg.BuildDir, cfg.StaticDir, cfg.Deploy.Prefix)
	if err != nil {
		return nil, err
	}
	if len(objs) == 0 {
		return nil, fmt.Errorf("nothing to deploy in %s", cfg.BuildDir)
	}

	p := &Publisher{
		Client:      client,
		Bucket:      cfg.Deploy.Bucket,
		Concurrency: cfg.Deploy.Concurrency,
		Log:         log,
	}
	n, err := p.Publish(ctx, objs)
	if err != nil {
		return nil, err
	}

	if cfg.Deploy.ReleasesTable == "" {
		return nil, nil
	}
	r, err := releases.Store{Table: cfg.Deploy.ReleasesTable}.Record(ctx, releases.Release{
		Site:    cfg.Deploy.Site,
		Version: version,
		Bucket:  cfg.Deploy.Bucket,
		Prefix:  cfg.Deploy.Prefix,
		Files:   n,
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("release", r.ReleaseID).Str("version", version).Msg("[deploy] recorded release")
	return r, nil
}

// Package site wires the asset pipeline and the page composer into the
// one-shot build.
package site

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/a1motion/preview/go/assets"
	"github.com/a1motion/preview/go/config"
	"github.com/a1motion/preview/go/pages"
	"github.com/a1motion/preview/go/version"
	"github.com/rs/zerolog"
)

// ErrNoPages is returned when the source tree defines no page.
var ErrNoPages = errors.New("no pages found")

// Result describes a finished build.
type Result struct {
	Version string
	Assets  assets.Assets
	Pages   []string // written page paths, in build order
}

// Builder runs full builds of the site described by Config.
type Builder struct {
	Config      *config.Config
	Transformer assets.Transformer
	Styles      assets.StyleCompiler
	Log         zerolog.Logger
}

func NewBuilder(cfg *config.Config, log zerolog.Logger) *Builder {
	return &Builder{
		Config:      cfg,
		Transformer: assets.Esbuild{},
		Styles:      assets.SassCompiler{Binary: cfg.Sass.Binary},
		Log:         log,
	}
}

// Build clears the output directory, builds the global bundles for both
// targets and then composes every page. Production output is minified;
// otherwise it stays readable.
func (b *Builder) Build(ctx context.Context, production bool) (Result, error) {
	cfg := b.Config
	v, err := version.Resolve(cfg.Root, cfg.Version)
	if err != nil {
		return Result{}, fmt.Errorf("version: %w", err)
	}
	b.Log.Info().Str("version", v).Bool("production", production).Msg("[build]")

	if err := os.RemoveAll(cfg.BuildDir); err != nil {
		return Result{}, err
	}
	if err := os.MkdirAll(cfg.BuildDir, 0o755); err != nil {
		return Result{}, err
	}

	p := assets.NewPipeline(assets.Options{
		SrcDir:        cfg.SrcDir,
		OutDir:        cfg.BuildDir,
		Version:       v,
		Banner:        cfg.Banner,
		PrimaryVendor: cfg.PrimaryVendor,
		Readable:      !production,
	}, b.Transformer, b.Styles, b.Log)

	global, err := p.Build(ctx)
	if err != nil {
		return Result{}, err
	}

	list, err := pages.Discover(cfg.SrcDir)
	if err != nil {
		return Result{}, err
	}
	if len(list) == 0 {
		return Result{}, fmt.Errorf("%w under %s", ErrNoPages, cfg.SrcDir)
	}
	c := &pages.Composer{
		Renderer: pages.Renderer{SrcDir: cfg.SrcDir},
		Builder:  p,
		OutDir:   cfg.BuildDir,
		BaseURL:  cfg.AssetBaseURL,
		Minify:   production,
		Log:      b.Log,
	}
	written, err := c.ComposeAll(ctx, list, global)
	if err != nil {
		return Result{}, err
	}
	return Result{Version: v, Assets: global, Pages: written}, nil
}

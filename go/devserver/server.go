// Package devserver serves the site while watching its sources, rebuilding
// the affected unit on every change and telling open tabs to reload.
package devserver

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/a1motion/preview/go/assets"
	"github.com/a1motion/preview/go/config"
	"github.com/a1motion/preview/go/livereload"
	"github.com/a1motion/preview/go/pages"
	"github.com/a1motion/preview/go/version"
	"github.com/bep/debounce"
	"github.com/rs/zerolog"
)

// Server owns the watch-mode build state. Builds are legacy-only, readable
// and written under fixed names so page markup never changes between
// rebuilds of the global bundles.
type Server struct {
	cfg      *config.Config
	log      zerolog.Logger
	hub      *livereload.Hub
	pipeline *assets.Pipeline
	composer *pages.Composer

	// build serializes every rebuild; two rebuilds never write the same
	// fixed file at once.
	build  sync.Mutex
	global assets.Assets

	mu         sync.Mutex
	pages      map[string]pages.Page
	debouncers map[string]func(func())
}

// New prepares a server for cfg. Nothing is built until Start.
func New(cfg *config.Config, log zerolog.Logger) (*Server, error) {
	v, err := version.Resolve(cfg.Root, cfg.Version)
	if err != nil {
		return nil, fmt.Errorf("version: %w", err)
	}
	p := assets.NewPipeline(assets.Options{
		SrcDir:        cfg.SrcDir,
		OutDir:        cfg.BuildDir,
		Version:       v,
		Banner:        cfg.Banner,
		PrimaryVendor: cfg.PrimaryVendor,
		Readable:      true,
		Fixed:         true,
	}, assets.Esbuild{}, assets.SassCompiler{Binary: cfg.Sass.Binary}, log)

	return &Server{
		cfg:      cfg,
		log:      log,
		hub:      livereload.NewHub(log),
		pipeline: p,
		composer: &pages.Composer{
			Renderer: pages.Renderer{SrcDir: cfg.SrcDir},
			Builder:  legacyOnly{p},
			OutDir:   cfg.BuildDir,
			BaseURL:  "/",
			Log:      log,
		},
		pages:      make(map[string]pages.Page),
		debouncers: make(map[string]func(func())),
	}, nil
}

func (s *Server) Hub() *livereload.Hub { return s.hub }

// Start clears the output directory and runs the initial build.
func (s *Server) Start(ctx context.Context) error {
	if err := os.RemoveAll(s.cfg.BuildDir); err != nil {
		return err
	}
	if err := os.MkdirAll(s.cfg.BuildDir, 0o755); err != nil {
		return err
	}

	s.build.Lock()
	defer s.build.Unlock()

	var err error
	if s.global.Legacy, err = s.pipeline.Scripts(ctx, assets.Legacy); err != nil {
		return err
	}
	if s.global.AppCSS, err = s.pipeline.AppStyle(ctx); err != nil {
		return err
	}
	if s.global.VendorCSS, err = s.pipeline.VendorStyle(ctx); err != nil {
		return err
	}

	list, err := pages.Discover(s.cfg.SrcDir)
	if err != nil {
		return err
	}
	s.mu.Lock()
	for _, p := range list {
		s.pages[p.Name] = p
	}
	s.mu.Unlock()
	_, err = s.composer.ComposeAll(ctx, list, s.global)
	return err
}

// Page reports whether name is a known page.
func (s *Server) Page(name string) (pages.Page, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pages[name]
	return p, ok
}

// PageNames returns the known pages, sorted.
func (s *Server) PageNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.pages))
	for n := range s.pages {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Handle reacts to a change of rel, a slash-separated path under the source
// root. Global bundles rebuild right away; page units are debounced.
func (s *Server) Handle(ctx context.Context, rel string) {
	c := Classify(rel)
	s.log.Debug().Str("file", rel).Stringer("unit", c.Unit).Msg("[watch] change")

	switch c.Unit {
	case UnitVendorScript:
		go s.rebuildGlobal(ctx, c.Unit, func(ctx context.Context) (err error) {
			s.global.Legacy.Vendor, err = s.pipeline.VendorScript(ctx, assets.Legacy)
			return err
		})
	case UnitAppScript:
		go s.rebuildGlobal(ctx, c.Unit, func(ctx context.Context) (err error) {
			s.global.Legacy.App, err = s.pipeline.AppScript(ctx, assets.Legacy)
			return err
		})
	case UnitVendorStyle:
		go s.rebuildGlobal(ctx, c.Unit, func(ctx context.Context) error {
			a, err := s.pipeline.VendorStyle(ctx)
			if err != nil {
				return err
			}
			// The first vendor stylesheet changes the markup of every page.
			added := s.global.VendorCSS.IsZero() && !a.IsZero()
			s.global.VendorCSS = a
			if added {
				return s.recomposeAll(ctx)
			}
			return nil
		})
	case UnitAppStyle:
		go s.rebuildGlobal(ctx, c.Unit, func(ctx context.Context) (err error) {
			s.global.AppCSS, err = s.pipeline.AppStyle(ctx)
			return err
		})
	case UnitTemplates:
		for _, name := range s.PageNames() {
			s.schedule(ctx, name)
		}
	case UnitPage:
		s.schedule(ctx, c.Page)
	}
}

func (s *Server) rebuildGlobal(ctx context.Context, u Unit, fn func(context.Context) error) {
	start := time.Now()
	s.build.Lock()
	err := fn(ctx)
	s.build.Unlock()
	if err != nil {
		s.log.Error().Err(err).Stringer("unit", u).Msg("[watch] rebuild failed")
		s.hub.NotifyError("", err)
		return
	}
	s.log.Info().Stringer("unit", u).Dur("took", time.Since(start)).Msg("[watch] rebuilt")
	s.hub.Notify("")
}

func (s *Server) recomposeAll(ctx context.Context) error {
	s.mu.Lock()
	list := make([]pages.Page, 0, len(s.pages))
	for _, p := range s.pages {
		list = append(list, p)
	}
	s.mu.Unlock()
	_, err := s.composer.ComposeAll(ctx, list, s.global)
	return err
}

// schedule rebuilds a page once its changes settle. Each page has its own
// debouncer so edits to one page never delay another.
func (s *Server) schedule(ctx context.Context, name string) {
	s.mu.Lock()
	d, ok := s.debouncers[name]
	if !ok {
		d = debounce.New(s.cfg.Watch.Debounce)
		s.debouncers[name] = d
	}
	s.mu.Unlock()
	d(func() { s.rebuildPage(ctx, name) })
}

func (s *Server) rebuildPage(ctx context.Context, name string) {
	if ctx.Err() != nil {
		return
	}
	p, ok := pages.Load(s.cfg.SrcDir, name)
	s.mu.Lock()
	if ok {
		s.pages[name] = p
	} else {
		delete(s.pages, name)
	}
	s.mu.Unlock()
	if !ok {
		s.log.Info().Str("page", name).Msg("[watch] page removed")
		return
	}

	start := time.Now()
	s.build.Lock()
	_, err := s.composer.Compose(ctx, p, s.global)
	s.build.Unlock()
	if err != nil {
		s.log.Error().Err(err).Str("page", name).Msg("[watch] rebuild failed")
		s.hub.NotifyError(name, err)
		return
	}
	s.log.Info().Str("page", name).Dur("took", time.Since(start)).Msg("[watch] rebuilt")
	s.hub.Notify(name)
}

// legacyOnly builds page scripts for the legacy target alone; watch mode has
// no modern bundles.
type legacyOnly struct {
	p *assets.Pipeline
}

func (l legacyOnly) PageScripts(ctx context.Context, page, path string) (assets.Artifact, assets.Artifact, error) {
	a, err := l.p.PageScript(ctx, page, path, assets.Legacy)
	return a, assets.Artifact{}, err
}

func (l legacyOnly) PageStyle(ctx context.Context, page, path string) (assets.Artifact, error) {
	return l.p.PageStyle(ctx, page, path)
}

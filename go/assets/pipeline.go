package assets

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

type Options struct {
	SrcDir        string
	OutDir        string
	Version       string
	Banner        string // prepended as a comment to every bundle
	PrimaryVendor string // vendor file always concatenated first
	Readable      bool   // development output: no minification
	Fixed         bool   // watch mode: {name}.{ext} instead of content-hashed names
}

// ScriptSet is the pair of global script bundles built for one target.
type ScriptSet struct {
	Vendor Artifact
	App    Artifact
}

// Assets are the global artifacts every page references.
type Assets struct {
	Legacy    ScriptSet
	Modern    ScriptSet
	VendorCSS Artifact // zero when there are no vendor stylesheets
	AppCSS    Artifact
}

// Pipeline builds global and page-level artifacts from the source tree.
type Pipeline struct {
	opts      Options
	transform Transformer
	styles    StyleCompiler
	writer    Writer
	log       zerolog.Logger
}

func NewPipeline(opts Options, t Transformer, sc StyleCompiler, log zerolog.Logger) *Pipeline {
	return &Pipeline{
		opts:      opts,
		transform: t,
		styles:    sc,
		writer:    Writer{Dir: opts.OutDir},
		log:       log,
	}
}

func (p *Pipeline) Options() Options { return p.opts }

// Build runs the legacy and modern script builds concurrently, then the
// global styles.
func (p *Pipeline) Build(ctx context.Context) (Assets, error) {
	var a Assets
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		set, err := p.Scripts(gctx, Legacy)
		a.Legacy = set
		return err
	})
	g.Go(func() error {
		set, err := p.Scripts(gctx, Modern)
		a.Modern = set
		return err
	})
	if err := g.Wait(); err != nil {
		return Assets{}, err
	}

	var err error
	if a.AppCSS, err = p.AppStyle(ctx); err != nil {
		return Assets{}, err
	}
	if a.VendorCSS, err = p.VendorStyle(ctx); err != nil {
		return Assets{}, err
	}
	return a, nil
}

// Scripts builds the vendor bundle, then the app bundle, for one target.
func (p *Pipeline) Scripts(ctx context.Context, target Target) (ScriptSet, error) {
	vendor, err := p.VendorScript(ctx, target)
	if err != nil {
		return ScriptSet{}, err
	}
	app, err := p.AppScript(ctx, target)
	if err != nil {
		return ScriptSet{}, err
	}
	return ScriptSet{Vendor: vendor, App: app}, nil
}

// VendorScript is always built readable; vendor libraries ship pre-minified.
func (p *Pipeline) VendorScript(ctx context.Context, target Target) (Artifact, error) {
	p.log.Info().Str("target", string(target)).Msg("[build] [vendor]")
	files, err := Collect(p.opts.SrcDir, VendorScriptGlob)
	if err != nil {
		return Artifact{}, err
	}
	sources, err := ReadAll(ctx, p.opts.SrcDir, VendorOrder(files, p.opts.PrimaryVendor), VendorScript)
	if err != nil {
		return Artifact{}, err
	}
	out, err := p.transform.Script(JoinVendorScripts(sources), "vendor.js", ScriptOptions{
		Target:   target,
		Readable: true,
	})
	if err != nil {
		return Artifact{}, fmt.Errorf("vendor [%s]: %w", target, err)
	}
	return p.emitScript("vendor", target, out)
}

func (p *Pipeline) AppScript(ctx context.Context, target Target) (Artifact, error) {
	p.log.Info().Str("target", string(target)).Msg("[build] [app]")
	files, err := Collect(p.opts.SrcDir, AppScriptGlob)
	if err != nil {
		return Artifact{}, err
	}
	sources, err := ReadAll(ctx, p.opts.SrcDir, files, AppScript)
	if err != nil {
		return Artifact{}, err
	}
	bundled := StampVersion(JoinAppScripts(sources), p.opts.Version)
	out, err := p.transform.Script(bundled, "app.ts", ScriptOptions{
		Target:     target,
		Readable:   p.opts.Readable,
		TypeScript: true,
	})
	if err != nil {
		return Artifact{}, fmt.Errorf("app [%s]: %w", target, err)
	}
	return p.emitScript("app", target, out)
}

// VendorStyle returns a zero Artifact when there are no vendor stylesheets.
func (p *Pipeline) VendorStyle(ctx context.Context) (Artifact, error) {
	p.log.Info().Msg("[build] [css] [vendor]")
	files, err := Collect(p.opts.SrcDir, VendorStyleGlob)
	if err != nil {
		return Artifact{}, err
	}
	if len(files) == 0 {
		return Artifact{}, nil
	}
	sources, err := ReadAll(ctx, p.opts.SrcDir, files, VendorStyle)
	if err != nil {
		return Artifact{}, err
	}
	out, err := p.transform.Style(JoinStyles(sources), "vendor.css", p.opts.Readable)
	if err != nil {
		return Artifact{}, fmt.Errorf("vendor css: %w", err)
	}
	return p.emit("vendor", "css", "", out, "/* %s */\n")
}

// AppStyle compiles app/app.scss (or app/app.css). A missing entry produces an
// empty stylesheet so pages always reference one.
func (p *Pipeline) AppStyle(ctx context.Context) (Artifact, error) {
	p.log.Info().Msg("[build] [css] [app]")
	var css string
	if entry := StyleEntry(filepath.Join(p.opts.SrcDir, "app"), "app"); entry != "" {
		var err error
		if css, err = p.compileStyle(ctx, entry, "app.css"); err != nil {
			return Artifact{}, err
		}
	}
	return p.emit("app", "css", "", css, "/* %s */\n")
}

// PageScript builds a page's own script for one target.
func (p *Pipeline) PageScript(ctx context.Context, page, path string, target Target) (Artifact, error) {
	p.log.Info().Str("target", string(target)).Str("page", page).Msg("[build] [pages] [js]")
	if err := ctx.Err(); err != nil {
		return Artifact{}, err
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return Artifact{}, fmt.Errorf("page %s: %w", page, err)
	}
	out, err := p.transform.Script(StampVersion(string(src), p.opts.Version), page+".ts", ScriptOptions{
		Target:     target,
		Readable:   p.opts.Readable,
		TypeScript: true,
	})
	if err != nil {
		return Artifact{}, fmt.Errorf("page %s [%s]: %w", page, target, err)
	}
	return p.emitScript(page, target, out)
}

// PageScripts builds the legacy and modern variants of a page script concurrently.
func (p *Pipeline) PageScripts(ctx context.Context, page, path string) (legacy, modern Artifact, err error) {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		legacy, err = p.PageScript(gctx, page, path, Legacy)
		return err
	})
	g.Go(func() error {
		var err error
		modern, err = p.PageScript(gctx, page, path, Modern)
		return err
	})
	if err := g.Wait(); err != nil {
		return Artifact{}, Artifact{}, err
	}
	return legacy, modern, nil
}

func (p *Pipeline) PageStyle(ctx context.Context, page, path string) (Artifact, error) {
	p.log.Info().Str("page", page).Msg("[build] [pages] [css]")
	css, err := p.compileStyle(ctx, path, page+".css")
	if err != nil {
		return Artifact{}, fmt.Errorf("page %s: %w", page, err)
	}
	return p.emit(page, "css", "", css, "/* %s */\n")
}

func (p *Pipeline) compileStyle(ctx context.Context, path, name string) (string, error) {
	css, err := p.styles.Compile(ctx, path)
	if err != nil {
		return "", err
	}
	return p.transform.Style(css, name, p.opts.Readable)
}

func (p *Pipeline) emitScript(name string, target Target, code string) (Artifact, error) {
	return p.emit(name, "js", target, code, "// %s\n")
}

func (p *Pipeline) emit(name, ext string, target Target, content, bannerFormat string) (Artifact, error) {
	if p.opts.Banner != "" {
		content = fmt.Sprintf(bannerFormat, p.opts.Banner) + content
	}
	var (
		a   Artifact
		err error
	)
	if p.opts.Fixed {
		a, err = p.writer.WriteFixed(name, ext, []byte(content))
	} else {
		a, err = p.writer.Write(name, ext, []byte(content))
	}
	if err != nil {
		return Artifact{}, err
	}
	a.Target = target
	p.log.Debug().Str("file", a.File()).Str("hash", a.Hash).Msg("wrote artifact")
	return a, nil
}

package pages

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/a1motion/preview/go/assets"
	"github.com/rs/zerolog"
	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/html"
	"github.com/tdewolff/minify/v2/js"
)

// AssetBuilder builds the optional page-specific artifacts. A zero modern
// artifact means the page script was built for a single target.
type AssetBuilder interface {
	PageScripts(ctx context.Context, page, path string) (legacy, modern assets.Artifact, err error)
	PageStyle(ctx context.Context, page, path string) (assets.Artifact, error)
}

// Composer renders pages and stamps the asset tags into them.
type Composer struct {
	Renderer Renderer
	Builder  AssetBuilder
	OutDir   string
	BaseURL  string // prefix for every asset URL, e.g. "/" or a CDN origin
	Minify   bool
	Log      zerolog.Logger
}

func newMinifier() *minify.M {
	m := minify.New()
	m.AddFunc("text/css", css.Minify)
	// Tags are injected as literal markup and must survive minification.
	m.Add("text/html", &html.Minifier{
		KeepDefaultAttrVals: true,
		KeepDocumentTags:    true,
		KeepEndTags:         true,
		KeepQuotes:          true,
	})
	m.AddFuncRegexp(regexp.MustCompile("^(application|text)/(x-)?(java|ecma)script$"), js.Minify)
	return m
}

// ComposeAll builds pages one after another. The first failure stops the run.
func (c *Composer) ComposeAll(ctx context.Context, pages []Page, global assets.Assets) ([]string, error) {
	c.Log.Info().Int("count", len(pages)).Msg("[build] [pages]")
	out := make([]string, 0, len(pages))
	for _, p := range pages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		path, err := c.Compose(ctx, p, global)
		if err != nil {
			return nil, err
		}
		out = append(out, path)
	}
	c.Log.Info().Msg("[build] [pages] done")
	return out, nil
}

// Compose writes {OutDir}/{name}.html and returns its path.
func (c *Composer) Compose(ctx context.Context, p Page, global assets.Assets) (string, error) {
	c.Log.Info().Str("page", p.Name).Msg("[build] [pages]")

	data, err := p.Data()
	if err != nil {
		return "", err
	}
	doc, err := c.Renderer.Render(p, data)
	if err != nil {
		return "", err
	}

	scripts, styles := c.globalTags(global)

	if p.Script != "" {
		legacy, modern, err := c.Builder.PageScripts(ctx, p.Name, p.Script)
		if err != nil {
			return "", err
		}
		scripts = append(scripts, c.pageScriptTags(legacy, modern)...)
	}
	if p.Style != "" {
		a, err := c.Builder.PageStyle(ctx, p.Name, p.Style)
		if err != nil {
			return "", err
		}
		styles = append(styles, StylesheetTag(c.url(a)))
	}

	if doc, err = Inject(doc, BodyAnchor, scripts); err != nil {
		return "", fmt.Errorf("page %s: %w", p.Name, err)
	}
	if doc, err = Inject(doc, HeadAnchor, styles); err != nil {
		return "", fmt.Errorf("page %s: %w", p.Name, err)
	}

	if c.Minify {
		if doc, err = newMinifier().String("text/html", doc); err != nil {
			return "", fmt.Errorf("page %s: minify: %w", p.Name, err)
		}
	}

	path := filepath.Join(c.OutDir, p.Name+".html")
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		return "", fmt.Errorf("page %s: %w", p.Name, err)
	}
	c.Log.Info().Str("page", p.Name).Msg("[build] [pages] done")
	return path, nil
}

// globalTags orders scripts legacy vendor, legacy app, modern vendor, modern
// app. Without modern bundles the legacy ones load everywhere.
func (c *Composer) globalTags(a assets.Assets) (scripts, styles []string) {
	if a.Modern.App.IsZero() {
		for _, s := range []assets.Artifact{a.Legacy.Vendor, a.Legacy.App} {
			if !s.IsZero() {
				scripts = append(scripts, NormalScriptTag(c.url(s)))
			}
		}
	} else {
		scripts = append(scripts,
			LegacyScriptTag(c.url(a.Legacy.Vendor)),
			LegacyScriptTag(c.url(a.Legacy.App)),
			ModernScriptTag(c.url(a.Modern.Vendor)),
			ModernScriptTag(c.url(a.Modern.App)),
		)
	}

	if !a.VendorCSS.IsZero() {
		styles = append(styles, StylesheetTag(c.url(a.VendorCSS)))
	}
	if !a.AppCSS.IsZero() {
		styles = append(styles, StylesheetTag(c.url(a.AppCSS)))
	}
	return scripts, styles
}

// pageScriptTags emits one untargeted tag when both variants are identical,
// otherwise one tag per target so each browser loads exactly one.
func (c *Composer) pageScriptTags(legacy, modern assets.Artifact) []string {
	if modern.IsZero() || legacy.Hash == modern.Hash {
		return []string{NormalScriptTag(c.url(legacy))}
	}
	return []string{LegacyScriptTag(c.url(legacy)), ModernScriptTag(c.url(modern))}
}

func (c *Composer) url(a assets.Artifact) string {
	return c.BaseURL + a.File()
}

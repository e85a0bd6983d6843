package assets

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

var siteFiles = map[string]string{
	"vendor/a.js":          "window.aLoaded = 1;",
	"vendor/jquery.js":     "window.jQueryLoaded = true;",
	"vendor/normalize.css": "html { line-height: 1.15; }",
	"app/0-utils.ts":       "App.utils = { version: \"%VERSION%\" };",
	"app/1-input.ts":       "const limit: number = 3;\nApp.limit = limit;",
	"app/app.css":          ".hero { display: flex; }",
}

func newTestPipeline(t *testing.T, src string, opts Options) *Pipeline {
	t.Helper()
	opts.SrcDir = src
	if opts.OutDir == "" {
		opts.OutDir = t.TempDir()
	}
	if opts.PrimaryVendor == "" {
		opts.PrimaryVendor = "vendor/jquery.js"
	}
	if opts.Version == "" {
		opts.Version = "abc1234"
	}
	return NewPipeline(opts, Esbuild{}, SassCompiler{}, zerolog.Nop())
}

func assetFiles(a Assets) []string {
	out := []string{a.Legacy.Vendor.File(), a.Legacy.App.File(), a.Modern.Vendor.File(), a.Modern.App.File(), a.AppCSS.File()}
	if !a.VendorCSS.IsZero() {
		out = append(out, a.VendorCSS.File())
	}
	sort.Strings(out)
	return out
}

func TestPipeline_BuildDeterministic(t *testing.T) {
	src := t.TempDir()
	writeTree(t, src, siteFiles)

	first, err := newTestPipeline(t, src, Options{}).Build(context.Background())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	second, err := newTestPipeline(t, src, Options{}).Build(context.Background())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	a, b := assetFiles(first), assetFiles(second)
	if strings.Join(a, ",") != strings.Join(b, ",") {
		t.Errorf("filenames differ between runs:\n%v\n%v", a, b)
	}
	for _, f := range a {
		if !strings.Contains(f, "-") {
			t.Errorf("artifact %q is not content-addressed", f)
		}
	}
	if first.Legacy.App.Target != Legacy || first.Modern.App.Target != Modern {
		t.Error("script artifacts should carry their target")
	}
	if first.VendorCSS.IsZero() {
		t.Error("expected a vendor stylesheet")
	}
}

func TestPipeline_OneByteChange(t *testing.T) {
	src := t.TempDir()
	writeTree(t, src, siteFiles)

	before, err := newTestPipeline(t, src, Options{}).Build(context.Background())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	writeTree(t, src, map[string]string{"app/1-input.ts": "const limit: number = 4;\nApp.limit = limit;"})
	after, err := newTestPipeline(t, src, Options{}).Build(context.Background())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if before.Legacy.App.Hash == after.Legacy.App.Hash {
		t.Error("legacy app hash should change")
	}
	if before.Modern.App.Hash == after.Modern.App.Hash {
		t.Error("modern app hash should change")
	}
	if before.Legacy.Vendor.Hash != after.Legacy.Vendor.Hash {
		t.Error("legacy vendor hash should not change")
	}
	if before.Modern.Vendor.Hash != after.Modern.Vendor.Hash {
		t.Error("modern vendor hash should not change")
	}
	if before.AppCSS.Hash != after.AppCSS.Hash || before.VendorCSS.Hash != after.VendorCSS.Hash {
		t.Error("style hashes should not change")
	}
}

func TestPipeline_VendorPrimaryFirst(t *testing.T) {
	src := t.TempDir()
	writeTree(t, src, siteFiles)

	p := newTestPipeline(t, src, Options{Fixed: true})
	a, err := p.VendorScript(context.Background(), Legacy)
	if err != nil {
		t.Fatalf("VendorScript: %v", err)
	}
	if a.File() != "vendor.js" {
		t.Errorf("File = %q, want vendor.js", a.File())
	}
	b, _ := os.ReadFile(a.Path)
	out := string(b)
	jq, other := strings.Index(out, "jQueryLoaded"), strings.Index(out, "aLoaded")
	if jq < 0 || other < 0 || jq > other {
		t.Errorf("jquery.js should be concatenated first:\n%s", out)
	}
}

func TestPipeline_AppVersionAndBanner(t *testing.T) {
	src := t.TempDir()
	writeTree(t, src, siteFiles)

	p := newTestPipeline(t, src, Options{Readable: true, Banner: "https://example.com/site"})
	a, err := p.AppScript(context.Background(), Legacy)
	if err != nil {
		t.Fatalf("AppScript: %v", err)
	}
	b, _ := os.ReadFile(a.Path)
	out := string(b)
	if !strings.HasPrefix(out, "// https://example.com/site\n") {
		t.Errorf("missing banner:\n%s", out)
	}
	if !strings.Contains(out, "abc1234") || strings.Contains(out, "%VERSION%") {
		t.Errorf("version placeholder not substituted:\n%s", out)
	}
	if !strings.Contains(out, "window.App") {
		t.Errorf("app files should receive the App namespace:\n%s", out)
	}
	if ContentHash(b) != a.Hash {
		t.Error("hash must cover the bytes on disk")
	}
}

func TestPipeline_NoVendorStyles(t *testing.T) {
	src := t.TempDir()
	writeTree(t, src, map[string]string{"app/0-utils.ts": "App.x = 1;"})

	a, err := newTestPipeline(t, src, Options{}).Build(context.Background())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !a.VendorCSS.IsZero() {
		t.Errorf("VendorCSS = %+v, want zero", a.VendorCSS)
	}
	if a.AppCSS.IsZero() {
		t.Error("AppCSS should always be emitted")
	}
}

func TestPipeline_TransformFailureAborts(t *testing.T) {
	src := t.TempDir()
	writeTree(t, src, map[string]string{"app/0-broken.ts": "const = ;"})
	out := t.TempDir()

	_, err := newTestPipeline(t, src, Options{OutDir: out}).Build(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, ErrTransform) {
		t.Errorf("error = %v, want ErrTransform", err)
	}
	if !strings.Contains(err.Error(), "app") {
		t.Errorf("error %q should name the bundle", err)
	}
}

func TestPipeline_PageScriptTargets(t *testing.T) {
	src := t.TempDir()
	writeTree(t, src, map[string]string{
		"pages/plain/plain.ts":   "var greeting = \"hi\";\nconsole.log(greeting);",
		"pages/modern/modern.ts": "const el = document.querySelector(\".x\");\nconsole.log(el?.textContent ?? \"\");",
	})
	p := newTestPipeline(t, src, Options{Readable: true})

	legacy, modern, err := p.PageScripts(context.Background(), "plain", filepath.Join(src, "pages/plain/plain.ts"))
	if err != nil {
		t.Fatalf("PageScripts: %v", err)
	}
	if legacy.Hash != modern.Hash {
		t.Errorf("syntax needing no lowering should produce identical output: %s vs %s", legacy.Hash, modern.Hash)
	}

	legacy, modern, err = p.PageScripts(context.Background(), "modern", filepath.Join(src, "pages/modern/modern.ts"))
	if err != nil {
		t.Fatalf("PageScripts: %v", err)
	}
	if legacy.Hash == modern.Hash {
		t.Error("optional chaining should be lowered for the legacy target only")
	}
	b, _ := os.ReadFile(legacy.Path)
	if strings.Contains(string(b), "?.") {
		t.Errorf("legacy output still uses optional chaining:\n%s", b)
	}
}

func TestPipeline_PageStyle(t *testing.T) {
	src := t.TempDir()
	writeTree(t, src, map[string]string{"pages/team/team.css": ".team { color: red; }"})
	p := newTestPipeline(t, src, Options{})

	a, err := p.PageStyle(context.Background(), "team", filepath.Join(src, "pages/team/team.css"))
	if err != nil {
		t.Fatalf("PageStyle: %v", err)
	}
	if a.Name != "team" || a.Ext != "css" {
		t.Errorf("artifact = %+v", a)
	}
	b, _ := os.ReadFile(a.Path)
	if !strings.Contains(string(b), ".team") {
		t.Errorf("unexpected output:\n%s", b)
	}
}

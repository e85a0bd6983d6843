package pages

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/a1motion/preview/go/assets"
	"github.com/goccy/go-json"
)

const (
	DataFileName = "data.json"
	TemplateGlob = "pages/*/*.{njk,html}"
	SharedGlob   = "templates/*.{njk,html}"
)

// TemplateExts are the page template extensions, in lookup order. A page
// directory holding both uses the .njk file.
var TemplateExts = []string{".njk", ".html"}

// Page is one directory under pages/. Only Template is required.
type Page struct {
	Name     string
	Dir      string
	Template string
	DataFile string
	Script   string
	Style    string
}

// Discover returns every page under srcDir/pages, sorted by name. A directory
// is a page when it contains <name>.njk or <name>.html.
func Discover(srcDir string) ([]Page, error) {
	matches, err := assets.Collect(srcDir, TemplateGlob)
	if err != nil {
		return nil, err
	}
	var out []Page
	seen := make(map[string]bool)
	for _, m := range matches {
		name := path.Base(path.Dir(m))
		if seen[name] || strings.TrimSuffix(path.Base(m), path.Ext(m)) != name {
			continue
		}
		if p, ok := Load(srcDir, name); ok {
			seen[name] = true
			out = append(out, p)
		}
	}
	return out, nil
}

// Load resolves the files of a single page. ok is false when the page has no
// template.
func Load(srcDir, name string) (Page, bool) {
	dir := filepath.Join(srcDir, "pages", name)
	p := Page{Name: name, Dir: dir}
	for _, ext := range TemplateExts {
		if f := filepath.Join(dir, name+ext); isFile(f) {
			p.Template = f
			break
		}
	}
	if p.Template == "" {
		return Page{}, false
	}
	if f := filepath.Join(dir, DataFileName); isFile(f) {
		p.DataFile = f
	}
	if f := filepath.Join(dir, name+".ts"); isFile(f) {
		p.Script = f
	}
	p.Style = assets.StyleEntry(dir, name)
	return p, true
}

// Data is the template context: data.json merged over {"page": name}.
func (p Page) Data() (map[string]any, error) {
	data := map[string]any{"page": p.Name}
	if p.DataFile == "" {
		return data, nil
	}
	b, err := os.ReadFile(p.DataFile)
	if err != nil {
		return nil, fmt.Errorf("page %s: %w", p.Name, err)
	}
	var extra map[string]any
	if err := json.Unmarshal(b, &extra); err != nil {
		return nil, fmt.Errorf("page %s: parse %s: %w", p.Name, DataFileName, err)
	}
	for k, v := range extra {
		data[k] = v
	}
	return data, nil
}

func isFile(p string) bool {
	info, err := os.Stat(p)
	return err == nil && !info.IsDir()
}

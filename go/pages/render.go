package pages

import (
	"bytes"
	"fmt"
	"html/template"
	"path/filepath"
	"strings"

	"github.com/a1motion/preview/go/assets"
)

// Renderer executes page templates with the shared layouts under
// srcDir/templates. Templates are parsed on every call so edits show up
// without a restart.
type Renderer struct {
	SrcDir string
}

var funcs = template.FuncMap{
	"upper": strings.ToUpper,
	"lower": strings.ToLower,
}

func (r Renderer) Render(p Page, data map[string]any) (string, error) {
	name := filepath.Base(p.Template)
	t := template.New(name).Funcs(funcs)

	shared, err := assets.Collect(r.SrcDir, SharedGlob)
	if err != nil {
		return "", err
	}
	files := make([]string, 0, len(shared)+1)
	for _, s := range shared {
		files = append(files, filepath.Join(r.SrcDir, filepath.FromSlash(s)))
	}
	files = append(files, p.Template)

	if t, err = t.ParseFiles(files...); err != nil {
		return "", fmt.Errorf("page %s: parse: %w", p.Name, err)
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("page %s: render: %w", p.Name, err)
	}
	return buf.String(), nil
}

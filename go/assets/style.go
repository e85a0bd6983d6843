package assets

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// StyleCompiler turns a stylesheet entry file into plain CSS.
type StyleCompiler interface {
	Compile(ctx context.Context, path string) (string, error)
}

// SassCompiler shells out to the sass binary for .scss/.sass entries and
// reads plain .css entries verbatim.
type SassCompiler struct {
	Binary string
}

func (s SassCompiler) Compile(ctx context.Context, path string) (string, error) {
	if strings.EqualFold(filepath.Ext(path), ".css") {
		b, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}

	bin := s.Binary
	if bin == "" {
		bin = "sass"
	}
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, "--no-source-map", "--style=expanded", path)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%w: %s: %v: %s", ErrTransform, filepath.Base(path), err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

// StyleEntry returns dir/base.scss, falling back to dir/base.css. Empty when
// neither exists.
func StyleEntry(dir, base string) string {
	for _, ext := range []string{".scss", ".css"} {
		p := filepath.Join(dir, base+ext)
		if fileExists(p) {
			return p
		}
	}
	return ""
}

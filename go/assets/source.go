package assets

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"
)

type Category string

const (
	VendorScript Category = "vendor-script"
	AppScript    Category = "app-script"
	VendorStyle  Category = "vendor-style"
	AppStyle     Category = "app-style"
	PageScript   Category = "page-script"
	PageStyle    Category = "page-style"
	PageTemplate Category = "page-template"
)

// Glob patterns, relative to the source root.
const (
	VendorScriptGlob = "vendor/**/*.js"
	VendorStyleGlob  = "vendor/**/*.css"
	AppScriptGlob    = "app/**/*.ts"
)

// SourceFile is one file read for a single build pass.
type SourceFile struct {
	Path     string // slash-separated, relative to the source root
	Category Category
	Content  string
}

// Collect returns the files under root matching pattern in path-lexicographic
// order. A missing root yields no files.
func Collect(root, pattern string) ([]string, error) {
	matches, err := doublestar.Glob(os.DirFS(root), pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("glob %s: %w", pattern, err)
	}
	sort.Strings(matches)
	return matches, nil
}

// VendorOrder sorts vendor files alphabetically, except primary which always
// comes first when present.
func VendorOrder(files []string, primary string) []string {
	out := append([]string(nil), files...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i] == primary {
			return out[j] != primary
		}
		if out[j] == primary {
			return false
		}
		return out[i] < out[j]
	})
	return out
}

// ReadAll reads files concurrently. The result preserves the order of files.
func ReadAll(ctx context.Context, root string, files []string, cat Category) ([]SourceFile, error) {
	out := make([]SourceFile, len(files))
	g, ctx := errgroup.WithContext(ctx)
	for i, f := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			b, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(f)))
			if err != nil {
				return fmt.Errorf("read %s: %w", f, err)
			}
			out[i] = SourceFile{Path: f, Category: cat, Content: string(b)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

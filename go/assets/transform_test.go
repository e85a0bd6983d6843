package assets

import (
	"errors"
	"strings"
	"testing"
)

func TestEsbuild_ScriptTargets(t *testing.T) {
	src := "const f = (a) => a ?? 1;\nwindow.f = f;"

	legacy, err := Esbuild{}.Script(src, "page.js", ScriptOptions{Target: Legacy, Readable: true})
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(legacy, "??") {
		t.Errorf("legacy output still uses nullish coalescing:\n%s", legacy)
	}

	modern, err := Esbuild{}.Script(src, "page.js", ScriptOptions{Target: Modern, Readable: true})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(modern, "??") {
		t.Errorf("modern output lowered nullish coalescing:\n%s", modern)
	}
}

func TestEsbuild_TypeScript(t *testing.T) {
	out, err := Esbuild{}.Script("let n: number = 1;\nwindow.n = n;", "app.ts", ScriptOptions{Target: Modern, TypeScript: true})
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(out, ": number") {
		t.Errorf("type annotation survived: %s", out)
	}
}

func TestEsbuild_Minify(t *testing.T) {
	src := "function add(first, second) {\n  return first + second;\n}\nwindow.add = add;\n"
	readable, err := Esbuild{}.Script(src, "a.js", ScriptOptions{Target: Legacy, Readable: true})
	if err != nil {
		t.Fatal(err)
	}
	min, err := Esbuild{}.Script(src, "a.js", ScriptOptions{Target: Legacy})
	if err != nil {
		t.Fatal(err)
	}
	if len(min) >= len(readable) {
		t.Errorf("minified output is not smaller: %d >= %d", len(min), len(readable))
	}
}

func TestEsbuild_SyntaxError(t *testing.T) {
	_, err := Esbuild{}.Script("let = ;", "broken.js", ScriptOptions{Target: Legacy})
	if !errors.Is(err, ErrTransform) {
		t.Fatalf("expected ErrTransform, got %v", err)
	}
	if !strings.Contains(err.Error(), "broken.js") {
		t.Errorf("error does not name the file: %v", err)
	}
}

func TestEsbuild_Style(t *testing.T) {
	out, err := Esbuild{}.Style(".a {\n  color: red;\n}\n", "app.css", false)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(out, "\n  ") {
		t.Errorf("style was not minified: %q", out)
	}
	if !strings.Contains(out, ".a{color:red}") {
		t.Errorf("unexpected style output: %q", out)
	}
}

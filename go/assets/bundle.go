package assets

import (
	"strings"

	"github.com/a1motion/preview/go/version"
)

// AppNamespace is the global every app script attaches to.
const AppNamespace = "window.App = window.App || {}"

// JoinVendorScripts wraps each vendor file in its own IIFE so top-level
// declarations stay private, then joins them in the given order.
func JoinVendorScripts(files []SourceFile) string {
	var sb strings.Builder
	for _, f := range files {
		sb.WriteString("!(function(){\n// file: ")
		sb.WriteString(f.Path)
		sb.WriteString("\n")
		sb.WriteString(f.Content)
		sb.WriteString("\n})();\n")
	}
	return sb.String()
}

// JoinAppScripts wraps each app file in a closure receiving the shared App
// namespace object.
func JoinAppScripts(files []SourceFile) string {
	var sb strings.Builder
	for _, f := range files {
		sb.WriteString("!(function(App){\n// file: ")
		sb.WriteString(f.Path)
		sb.WriteString("\n")
		sb.WriteString(f.Content)
		sb.WriteString("\n})(" + AppNamespace + ");\n")
	}
	return sb.String()
}

// JoinStyles concatenates stylesheets with a newline between each.
func JoinStyles(files []SourceFile) string {
	parts := make([]string, len(files))
	for i, f := range files {
		parts[i] = f.Content
	}
	return strings.Join(parts, "\n")
}

// StampVersion replaces every version placeholder in src.
func StampVersion(src, v string) string {
	return strings.ReplaceAll(src, version.Placeholder, v)
}

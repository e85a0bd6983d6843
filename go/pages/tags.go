package pages

import (
	"errors"
	"fmt"
	"html"
	"strings"
)

const (
	HeadAnchor = "</head>"
	BodyAnchor = "</body>"
)

var ErrAnchorCount = errors.New("injection anchor must occur exactly once")

// NormalScriptTag loads in every browser.
func NormalScriptTag(src string) string {
	return fmt.Sprintf(`<script src="%s" defer></script>`, html.EscapeString(src))
}

// LegacyScriptTag is skipped by browsers that support ES modules.
func LegacyScriptTag(src string) string {
	return fmt.Sprintf(`<script src="%s" nomodule defer></script>`, html.EscapeString(src))
}

// ModernScriptTag is only loaded by browsers that support ES modules.
func ModernScriptTag(src string) string {
	return fmt.Sprintf(`<script src="%s" type="module" defer></script>`, html.EscapeString(src))
}

func StylesheetTag(href string) string {
	return fmt.Sprintf(`<link rel="stylesheet" href="%s">`, html.EscapeString(href))
}

// Inject inserts tags, one per line, immediately before anchor. The anchor is
// matched textually and must appear exactly once in doc.
func Inject(doc, anchor string, tags []string) (string, error) {
	if n := strings.Count(doc, anchor); n != 1 {
		return "", fmt.Errorf("%w: %s found %d times", ErrAnchorCount, anchor, n)
	}
	if len(tags) == 0 {
		return doc, nil
	}
	var sb strings.Builder
	for _, t := range tags {
		sb.WriteString("  ")
		sb.WriteString(t)
		sb.WriteString("\n")
	}
	sb.WriteString(anchor)
	return strings.Replace(doc, anchor, sb.String(), 1), nil
}

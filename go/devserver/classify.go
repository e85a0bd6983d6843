package devserver

import (
	"path"

	"github.com/bmatcuk/doublestar/v4"
)

// Unit is what a changed source file invalidates.
type Unit int

const (
	UnitNone Unit = iota
	UnitVendorScript
	UnitAppScript
	UnitVendorStyle
	UnitAppStyle
	UnitTemplates // shared layouts: every page
	UnitPage
)

func (u Unit) String() string {
	switch u {
	case UnitVendorScript:
		return "vendor"
	case UnitAppScript:
		return "app"
	case UnitVendorStyle:
		return "vendor-css"
	case UnitAppStyle:
		return "app-css"
	case UnitTemplates:
		return "templates"
	case UnitPage:
		return "page"
	}
	return "none"
}

// Change is a classified filesystem event. Page is set for UnitPage.
type Change struct {
	Unit Unit
	Page string
}

var rules = []struct {
	pattern string
	unit    Unit
}{
	{"vendor/**/*.js", UnitVendorScript},
	{"vendor/**/*.css", UnitVendorStyle},
	{"app/**/*.ts", UnitAppScript},
	{"app/**/*.{scss,css}", UnitAppStyle},
	{"templates/*.{njk,html}", UnitTemplates},
	{"pages/*/*.{njk,html,ts,scss,css}", UnitPage},
	{"pages/*/data.json", UnitPage},
}

// Classify maps a slash-separated path relative to the source root to the
// unit it invalidates.
func Classify(rel string) Change {
	for _, r := range rules {
		if ok, _ := doublestar.Match(r.pattern, rel); !ok {
			continue
		}
		c := Change{Unit: r.unit}
		if r.unit == UnitPage {
			c.Page = path.Base(path.Dir(rel))
		}
		return c
	}
	return Change{}
}

package assets

import (
	"errors"
	"fmt"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
)

var ErrTransform = errors.New("transform failed")

// Target selects the runtime a script is compiled for.
type Target string

const (
	Legacy Target = "legacy"
	Modern Target = "modern"
)

// Browsers that ignore type="module" and load the nomodule bundle instead.
var legacyEngines = []api.Engine{
	{Name: api.EngineChrome, Version: "58"},
	{Name: api.EngineEdge, Version: "16"},
	{Name: api.EngineFirefox, Version: "57"},
	{Name: api.EngineSafari, Version: "11"},
	{Name: api.EngineIOS, Version: "11"},
}

var modernEngines = []api.Engine{
	{Name: api.EngineChrome, Version: "80"},
	{Name: api.EngineEdge, Version: "80"},
	{Name: api.EngineFirefox, Version: "78"},
	{Name: api.EngineSafari, Version: "13.1"},
	{Name: api.EngineIOS, Version: "13.4"},
}

func (t Target) esTarget() api.Target {
	if t == Modern {
		return api.ES2020
	}
	return api.ES2015
}

func (t Target) engines() []api.Engine {
	if t == Modern {
		return modernEngines
	}
	return legacyEngines
}

type ScriptOptions struct {
	Target     Target
	Readable   bool // skip minification
	TypeScript bool
}

// Transformer wraps the external script and style compilers.
type Transformer interface {
	Script(src, name string, opts ScriptOptions) (string, error)
	Style(css, name string, readable bool) (string, error)
}

// Esbuild implements Transformer with esbuild's transform API.
type Esbuild struct{}

func (Esbuild) Script(src, name string, opts ScriptOptions) (string, error) {
	loader := api.LoaderJS
	if opts.TypeScript {
		loader = api.LoaderTS
	}
	result := api.Transform(src, api.TransformOptions{
		Loader:            loader,
		Sourcefile:        name,
		Target:            opts.Target.esTarget(),
		Engines:           opts.Target.engines(),
		MinifyWhitespace:  !opts.Readable,
		MinifyIdentifiers: !opts.Readable,
		MinifySyntax:      !opts.Readable,
		LogLevel:          api.LogLevelSilent,
	})
	if len(result.Errors) > 0 {
		return "", transformError(name, result.Errors)
	}
	return string(result.Code), nil
}

// Style adds vendor prefixes and lowers syntax for the legacy browser list.
func (Esbuild) Style(css, name string, readable bool) (string, error) {
	result := api.Transform(css, api.TransformOptions{
		Loader:           api.LoaderCSS,
		Sourcefile:       name,
		Engines:          legacyEngines,
		MinifyWhitespace: !readable,
		MinifySyntax:     !readable,
		LogLevel:         api.LogLevelSilent,
	})
	if len(result.Errors) > 0 {
		return "", transformError(name, result.Errors)
	}
	return string(result.Code), nil
}

func transformError(name string, msgs []api.Message) error {
	formatted := api.FormatMessages(msgs, api.FormatMessagesOptions{Kind: api.ErrorMessage})
	return fmt.Errorf("%w: %s: %s", ErrTransform, name, strings.TrimSpace(strings.Join(formatted, "")))
}

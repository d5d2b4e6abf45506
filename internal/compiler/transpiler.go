// File: internal/compiler/transpiler.go
package compiler

import (
	"fmt"
	"strings"

	"github.com/evanw/esbuild/pkg/api"

	"github.com/xkilldash9x/panelforge/internal/config"
)

// Transpiler is the seam to the external transpilation capability. The
// production implementation is esbuild; tests substitute fakes.
type Transpiler interface {
	// Transform turns JSX component source into executable module code.
	// sourcefile is used for error locations only.
	Transform(source, sourcefile string) (code string, warnings []string, err error)
}

// esbuildTranspiler transforms JSX through esbuild's in-process API with the
// automatic JSX runtime and CommonJS output, so the emitted module is fully
// self-contained apart from require() calls the host runtime provides.
type esbuildTranspiler struct {
	target          api.Target
	jsxImportSource string
	minify          bool
}

// NewTranspiler builds the esbuild-backed transpiler from configuration.
func NewTranspiler(cfg config.CompilerConfig) Transpiler {
	return &esbuildTranspiler{
		target:          parseTarget(cfg.Target),
		jsxImportSource: cfg.JSXImportSource,
		minify:          cfg.Minify,
	}
}

func (t *esbuildTranspiler) Transform(source, sourcefile string) (string, []string, error) {
	result := api.Transform(source, api.TransformOptions{
		Loader:            api.LoaderJSX,
		Format:            api.FormatCommonJS,
		JSX:               api.JSXAutomatic,
		JSXImportSource:   t.jsxImportSource,
		Target:            t.target,
		Sourcefile:        sourcefile,
		MinifyWhitespace:  t.minify,
		MinifyIdentifiers: false, // identifiers stay intact for export-slot detection
		MinifySyntax:      t.minify,
	})

	if len(result.Errors) > 0 {
		return "", nil, fmt.Errorf("%s", formatMessages(result.Errors))
	}

	var warnings []string
	for _, w := range result.Warnings {
		warnings = append(warnings, formatMessage(w))
	}
	return string(result.Code), warnings, nil
}

func parseTarget(target string) api.Target {
	switch strings.ToLower(target) {
	case "es2015":
		return api.ES2015
	case "es2016":
		return api.ES2016
	case "es2017":
		return api.ES2017
	case "es2018":
		return api.ES2018
	case "es2019":
		return api.ES2019
	case "es2020":
		return api.ES2020
	case "es2021":
		return api.ES2021
	case "es2022":
		return api.ES2022
	case "esnext":
		return api.ESNext
	default:
		return api.ES2020
	}
}

func formatMessage(m api.Message) string {
	if m.Location != nil {
		return fmt.Sprintf("%s:%d:%d: %s", m.Location.File, m.Location.Line, m.Location.Column, m.Text)
	}
	return m.Text
}

func formatMessages(msgs []api.Message) string {
	parts := make([]string, 0, len(msgs))
	for _, m := range msgs {
		parts = append(parts, formatMessage(m))
	}
	return strings.Join(parts, "; ")
}

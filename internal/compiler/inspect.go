// File: internal/compiler/inspect.go
package compiler

import (
	"regexp"
	"strings"
)

// FallbackComponentName is returned when no naming heuristic matches.
const FallbackComponentName = "Widget"

// Heuristic extraction is pattern matching over arbitrary generated text by
// design; each pattern is tried in a fixed order and the pure functions below
// are the only place these regexes live.
var (
	funcDeclNameRe   = regexp.MustCompile(`function\s+([A-Z][\w$]*)\s*\(`)
	assignTargetRe   = regexp.MustCompile(`(?:const|let|var)\s+([A-Z][\w$]*)\s*=`)
	defaultExportRef = regexp.MustCompile(`export\s+default\s+([A-Za-z_$][\w$]*)`)
	importSpecRe     = regexp.MustCompile(`(?m)^\s*import\s+(?:[^'"]+?\s+from\s+)?["']([^"']+)["']`)
	hasDefaultRe     = regexp.MustCompile(`export\s+default\s+|export\s*{[^}]*\bas\s+default\b[^}]*}`)
)

// ExtractComponentName guesses the component's name from source text using
// ordered pattern attempts: explicit function declaration, then assignment
// target, then default-export reference, then a fixed generic fallback.
// Synthetic wrapper bindings are skipped so extraction keeps pointing at the
// user's definition after sanitization.
func ExtractComponentName(source string) string {
	for _, re := range []*regexp.Regexp{funcDeclNameRe, assignTargetRe, defaultExportRef} {
		for _, m := range re.FindAllStringSubmatch(source, -1) {
			if name := m[1]; !strings.HasPrefix(name, "__Panelforge") && name != "function" {
				return name
			}
		}
	}
	return FallbackComponentName
}

// ExtractDependencies returns every statically imported module specifier in
// source order. Duplicates are preserved; the caller decides whether they
// matter.
func ExtractDependencies(source string) []string {
	matches := importSpecRe.FindAllStringSubmatch(source, -1)
	if len(matches) == 0 {
		return nil
	}
	deps := make([]string, 0, len(matches))
	for _, m := range matches {
		deps = append(deps, m[1])
	}
	return deps
}

// hasDefaultExport reports whether source carries a default-export-equivalent.
func hasDefaultExport(source string) bool {
	return hasDefaultRe.MatchString(source)
}

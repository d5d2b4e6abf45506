// File: internal/validator/validator.go
//
// Package validator is the static gate between generated widget source and
// the runtime compiler. It is purely pattern- and structure-based: it decides
// accept/reject from a fixed policy, collects advisory warnings, and wraps
// accepted source in a failure-isolation boundary. It performs no compilation
// and holds no mutable state, so validating the same input twice always
// yields the same result.
package validator

import (
	"fmt"
	"strings"

	"github.com/xkilldash9x/panelforge/api/schemas"
	"github.com/xkilldash9x/panelforge/internal/config"
)

// Validator applies the fixed security policy to widget source.
type Validator struct {
	cfg     config.ValidatorConfig
	allowed map[string]struct{}
}

// New builds a validator from configuration. The import allow-list is
// normalized into a set once, here; Validate itself never mutates anything.
func New(cfg config.ValidatorConfig) *Validator {
	allowed := make(map[string]struct{}, len(cfg.AllowedImports))
	for _, imp := range cfg.AllowedImports {
		allowed[imp] = struct{}{}
	}
	return &Validator{cfg: cfg, allowed: allowed}
}

// Validate runs every check against source and returns the aggregate result.
// Hard-check failures reject the source; soft checks only ever add warnings.
// On acceptance the sanitized variant (source wrapped in the failure
// boundary) is included in the result.
func (v *Validator) Validate(source string) schemas.ValidationResult {
	var errs, warnings []string

	errs = append(errs, v.checkStructure(source)...)

	// Forbidden-pattern scan: report every match, not just the first.
	for _, fp := range forbiddenPatterns {
		if fp.Pattern.MatchString(source) {
			errs = append(errs, fmt.Sprintf("forbidden pattern %s: %s", fp.Rule, fp.Reason))
		}
	}

	importErrs, importWarnings := v.checkImports(source)
	errs = append(errs, importErrs...)
	warnings = append(warnings, importWarnings...)

	warnings = append(warnings, v.checkComponentShape(source)...)
	warnings = append(warnings, v.checkSizeAndComplexity(source)...)

	if len(errs) > 0 {
		return schemas.ValidationResult{
			Accepted: false,
			Errors:   errs,
			Warnings: warnings,
		}
	}

	return schemas.ValidationResult{
		Accepted:        true,
		Warnings:        warnings,
		SanitizedSource: Sanitize(source),
	}
}

// checkStructure enforces the hard structural bounds: length, delimiter
// balance, and the presence of a component declaration and default export.
func (v *Validator) checkStructure(source string) []string {
	var errs []string

	size := len(source)
	if size < v.cfg.MinSourceBytes {
		errs = append(errs, fmt.Sprintf("source too short: %d bytes (minimum %d)", size, v.cfg.MinSourceBytes))
	}
	if size > v.cfg.MaxSourceBytes {
		errs = append(errs, fmt.Sprintf("source too long: %d bytes (maximum %d)", size, v.cfg.MaxSourceBytes))
	}

	if braces, parens := delimiterBalance(source); braces != 0 || parens != 0 {
		if braces != 0 {
			errs = append(errs, fmt.Sprintf("unbalanced braces (delta %+d)", braces))
		}
		if parens != 0 {
			errs = append(errs, fmt.Sprintf("unbalanced parentheses (delta %+d)", parens))
		}
	}

	if !componentDeclRe.MatchString(source) {
		errs = append(errs, "no component declaration found (expected a function, const arrow, or class definition)")
	}
	if !defaultExportRe.MatchString(source) {
		errs = append(errs, "no default export found")
	}

	return errs
}

// checkImports enforces the allow-list over every declared dependency.
// Unknown external targets are hard errors; relative imports only indicate
// incomplete self-containment and degrade to warnings.
func (v *Validator) checkImports(source string) (errs, warnings []string) {
	for _, m := range importRe.FindAllStringSubmatch(source, -1) {
		target := m[1]
		if strings.HasPrefix(target, "./") || strings.HasPrefix(target, "../") {
			warnings = append(warnings, fmt.Sprintf("relative import %q: widget source should be self-contained", target))
			continue
		}
		if _, ok := v.allowed[target]; !ok {
			errs = append(errs, fmt.Sprintf("import %q is not on the allow-list", target))
		}
	}
	return errs, warnings
}

// checkComponentShape applies the soft heuristics over the component
// definition. None of these reject; they flag likely authoring problems.
func (v *Validator) checkComponentShape(source string) []string {
	var warnings []string

	if !markupReturnRe.MatchString(source) {
		warnings = append(warnings, "no markup-producing return detected; the component may render nothing")
	}
	if classComponentRe.MatchString(source) {
		warnings = append(warnings, "legacy class-style component definition; prefer a function component")
	}
	if name := declaredComponentName(source); name != "" && !pascalCaseRe.MatchString(name) {
		warnings = append(warnings, fmt.Sprintf("component name %q does not follow PascalCase convention", name))
	}
	if mapWithoutKeyRe.MatchString(source) && !strings.Contains(source, "key=") {
		warnings = append(warnings, "iteration produces elements without a key attribute")
	}
	if inlineStyleRe.MatchString(source) {
		warnings = append(warnings, "inline style object usage detected")
	}

	return warnings
}

// checkSizeAndComplexity flags sources beyond the fixed line-count and
// branching-token thresholds. Warnings only, never rejection.
func (v *Validator) checkSizeAndComplexity(source string) []string {
	var warnings []string

	lines := strings.Count(source, "\n") + 1
	if v.cfg.MaxLines > 0 && lines > v.cfg.MaxLines {
		warnings = append(warnings, fmt.Sprintf("source spans %d lines (threshold %d)", lines, v.cfg.MaxLines))
	}

	// A rough cyclomatic estimate: one plus the count of branching and
	// boolean-operator tokens.
	complexity := 1 + len(complexityRe.FindAllString(source, -1))
	if v.cfg.ComplexityThreshold > 0 && complexity > v.cfg.ComplexityThreshold {
		warnings = append(warnings, fmt.Sprintf("estimated complexity %d exceeds threshold %d", complexity, v.cfg.ComplexityThreshold))
	}

	return warnings
}

// delimiterBalance counts brace and parenthesis nesting deltas, skipping
// string literals, template literals, and comments so JSX text content does
// not produce false imbalances.
func delimiterBalance(source string) (braces, parens int) {
	const (
		code = iota
		lineComment
		blockComment
		singleQuote
		doubleQuote
		template
	)
	state := code
	var prev rune

	for _, r := range source {
		switch state {
		case code:
			switch {
			case r == '/' && prev == '/':
				state = lineComment
			case r == '*' && prev == '/':
				state = blockComment
			case r == '\'':
				state = singleQuote
			case r == '"':
				state = doubleQuote
			case r == '`':
				state = template
			case r == '{':
				braces++
			case r == '}':
				braces--
			case r == '(':
				parens++
			case r == ')':
				parens--
			}
		case lineComment:
			if r == '\n' {
				state = code
			}
		case blockComment:
			if r == '/' && prev == '*' {
				state = code
			}
		case singleQuote:
			if r == '\'' && prev != '\\' {
				state = code
			}
		case doubleQuote:
			if r == '"' && prev != '\\' {
				state = code
			}
		case template:
			if r == '`' && prev != '\\' {
				state = code
			}
		}
		prev = r
	}
	return braces, parens
}

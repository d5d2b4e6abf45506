// File: internal/validator/policy.go
package validator

import "regexp"

// forbiddenPattern is one entry in the deny-list. Rule is the stable name
// reported in validation errors; the pattern is matched against the raw
// source text.
type forbiddenPattern struct {
	Rule    string
	Reason  string
	Pattern *regexp.Regexp
}

// forbiddenPatterns is the fixed deny-list of constructs that make generated
// source unsafe to compile. Every match is reported, not just the first.
var forbiddenPatterns = []forbiddenPattern{
	{
		Rule:    "no-eval",
		Reason:  "dynamic code evaluation via eval()",
		Pattern: regexp.MustCompile(`\beval\s*\(`),
	},
	{
		Rule:    "no-function-constructor",
		Reason:  "dynamic code evaluation via the Function constructor",
		Pattern: regexp.MustCompile(`\bnew\s+Function\s*\(`),
	},
	{
		Rule:    "no-string-timers",
		Reason:  "string argument to setTimeout/setInterval is implicit eval",
		Pattern: regexp.MustCompile(`\bset(?:Timeout|Interval)\s*\(\s*["'` + "`" + `]`),
	},
	{
		Rule:    "no-dangerous-html",
		Reason:  "direct markup injection via dangerouslySetInnerHTML",
		Pattern: regexp.MustCompile(`dangerouslySetInnerHTML`),
	},
	{
		Rule:    "no-inner-html",
		Reason:  "direct markup injection via innerHTML/outerHTML/document.write",
		Pattern: regexp.MustCompile(`\.(?:innerHTML|outerHTML)\s*=|document\.write(?:ln)?\s*\(`),
	},
	{
		Rule:    "no-storage-access",
		Reason:  "access to persistent browser storage",
		Pattern: regexp.MustCompile(`\b(?:localStorage|sessionStorage|indexedDB)\b|document\.cookie`),
	},
	{
		Rule:    "no-global-object",
		Reason:  "access to the global object",
		Pattern: regexp.MustCompile(`\b(?:globalThis|window\.top|window\.parent|window\.opener)\b`),
	},
	{
		Rule:    "no-network",
		Reason:  "unrestricted network access",
		Pattern: regexp.MustCompile(`\bfetch\s*\(|\bnew\s+(?:XMLHttpRequest|WebSocket|EventSource)\s*\(|navigator\.sendBeacon`),
	},
	{
		Rule:    "no-cross-frame",
		Reason:  "cross-frame or cross-window access",
		Pattern: regexp.MustCompile(`\bpostMessage\s*\(|\bwindow\.frames\b|\bdocument\.domain\b`),
	},
	{
		Rule:    "no-inline-handler-markup",
		Reason:  "inline event-handler attribute in string markup",
		Pattern: regexp.MustCompile(`<[^>]+\son[a-z]+\s*=\s*["']`),
	},
	{
		Rule:    "no-dynamic-import",
		Reason:  "dynamic import/require of arbitrary modules",
		Pattern: regexp.MustCompile(`\bimport\s*\(|\brequire\s*\(`),
	},
}

// componentDeclRe recognizes the declaration styles that count as a component
// definition: a function declaration, an arrow/const assignment, or a class.
var componentDeclRe = regexp.MustCompile(
	`(?m)^\s*(?:export\s+(?:default\s+)?)?(?:function\s+[A-Za-z_$][\w$]*\s*\(|const\s+[A-Za-z_$][\w$]*\s*=\s*(?:\([^)]*\)|[A-Za-z_$][\w$]*)\s*=>|const\s+[A-Za-z_$][\w$]*\s*=\s*function\b|class\s+[A-Za-z_$][\w$]*)`)

// defaultExportRe recognizes a default-export-equivalent.
var defaultExportRe = regexp.MustCompile(`export\s+default\s+|export\s*{[^}]*\bas\s+default\b[^}]*}`)

// markupReturnRe is weak evidence the component actually produces markup.
var markupReturnRe = regexp.MustCompile(`return\s*\(?\s*<`)

// importRe captures every static import and its module specifier, in source
// order. Duplicates are preserved deliberately.
var importRe = regexp.MustCompile(`(?m)^\s*import\s+(?:[^'"]+?\s+from\s+)?["']([^"']+)["']`)

// Soft-heuristic patterns.
var (
	classComponentRe = regexp.MustCompile(`class\s+[A-Za-z_$][\w$]*\s+extends\s+(?:React\.)?(?:Pure)?Component\b`)
	mapWithoutKeyRe  = regexp.MustCompile(`\.map\s*\(\s*(?:\([^)]*\)|[A-Za-z_$][\w$]*)\s*=>\s*\(?\s*<[A-Za-z][^>]*>`)
	inlineStyleRe    = regexp.MustCompile(`style\s*=\s*{{`)
	pascalCaseRe     = regexp.MustCompile(`^[A-Z][A-Za-z0-9]*$`)
	complexityRe     = regexp.MustCompile(`\bif\b|\belse\b|\bfor\b|\bwhile\b|\bcase\b|\bcatch\b|&&|\|\||\?`)
)

// File: internal/validator/sanitize.go
package validator

import (
	"fmt"
	"regexp"
	"strings"
)

// SanitizeMarker is the sentinel injected into every sanitized source. Its
// presence means the failure boundary is already in place, so wrapping is
// skipped; repeated validate/update cycles can never double-wrap.
const SanitizeMarker = "/* panelforge:sanitized:v1 */"

// boundaryName is the component the sanitized module exports instead of the
// user's definition. It renders the original component inside a try/catch,
// and the __panelforgeBoundary static marks it for the host renderer, which
// confines any child render throw to an error box at this node.
const boundaryName = "__PanelforgeBoundary"

// targetName is the alias the boundary renders through; a bare identifier
// would be treated as a DOM tag in JSX when the component name is lowercase.
const targetName = "__PanelforgeTarget"

var (
	defaultFuncRe  = regexp.MustCompile(`export\s+default\s+function\s+([A-Za-z_$][\w$]*)`)
	defaultClassRe = regexp.MustCompile(`export\s+default\s+class\s+([A-Za-z_$][\w$]*)`)
	defaultIdentRe = regexp.MustCompile(`export\s+default\s+([A-Za-z_$][\w$]*)\s*;?`)
	defaultExprRe  = regexp.MustCompile(`export\s+default\s+`)
	namedDefaultRe = regexp.MustCompile(`export\s*{\s*([A-Za-z_$][\w$]*)\s+as\s+default\s*}\s*;?`)

	declFuncRe  = regexp.MustCompile(`function\s+([A-Za-z_$][\w$]*)\s*\(`)
	declConstRe = regexp.MustCompile(`const\s+([A-Za-z_$][\w$]*)\s*=`)
)

// Sanitize wraps validated source so that the exported artifact is the user's
// component nested inside a render-failure boundary. The transform only adds:
// the original definition is kept verbatim (with its default export demoted to
// a plain binding), never rewritten or removed. Idempotent via SanitizeMarker.
func Sanitize(source string) string {
	if strings.Contains(source, SanitizeMarker) {
		return source
	}

	body, inner := demoteDefaultExport(source)

	var b strings.Builder
	b.WriteString(SanitizeMarker)
	b.WriteString("\n")
	b.WriteString(body)
	if !strings.HasSuffix(body, "\n") {
		b.WriteString("\n")
	}
	// The component is rebound to an underscore-prefixed alias before the JSX
	// reference. A lowercase-named component (accepted with a warning) used
	// directly as a tag would be read as an intrinsic DOM element and never
	// invoked; the alias is always a component reference.
	fmt.Fprintf(&b, `
const %[3]s = %[2]s;

function %[1]s(props) {
  try {
    return <%[3]s {...props} />;
  } catch (err) {
    return (
      <div className="panelforge-widget-error" role="alert">
        Widget failed to render: {String(err && err.message ? err.message : err)}
      </div>
    );
  }
}
%[1]s.__panelforgeBoundary = true;
export default %[1]s;
`, boundaryName, inner, targetName)
	return b.String()
}

// demoteDefaultExport strips the default-export clause from source while
// keeping the definition itself, and reports the identifier the boundary
// should delegate to. Anonymous default expressions are captured under a
// synthetic binding.
func demoteDefaultExport(source string) (body, inner string) {
	if m := defaultFuncRe.FindStringSubmatch(source); m != nil {
		return defaultFuncRe.ReplaceAllString(source, "function $1"), m[1]
	}
	if m := defaultClassRe.FindStringSubmatch(source); m != nil {
		return defaultClassRe.ReplaceAllString(source, "class $1"), m[1]
	}
	if m := defaultIdentRe.FindStringSubmatch(source); m != nil {
		return defaultIdentRe.ReplaceAllString(source, ""), m[1]
	}
	if m := namedDefaultRe.FindStringSubmatch(source); m != nil {
		return namedDefaultRe.ReplaceAllString(source, ""), m[1]
	}
	if defaultExprRe.MatchString(source) {
		return defaultExprRe.ReplaceAllString(source, "const __PanelforgeInner = "), "__PanelforgeInner"
	}
	// No default export at all; fall back to the first declared binding so
	// the wrapper still references something renderable.
	if name := declaredComponentName(source); name != "" {
		return source, name
	}
	return source, "__PanelforgeInner"
}

// declaredComponentName returns the first function- or const-declared
// identifier in the source, or "" when none is found.
func declaredComponentName(source string) string {
	if m := defaultFuncRe.FindStringSubmatch(source); m != nil {
		return m[1]
	}
	if m := declFuncRe.FindStringSubmatch(source); m != nil {
		return m[1]
	}
	if m := declConstRe.FindStringSubmatch(source); m != nil {
		return m[1]
	}
	return ""
}

// File: internal/orchestrator/extract.go
package orchestrator

import (
	"regexp"
	"strings"
)

var (
	fencedBlockRe = regexp.MustCompile("(?s)```(?:jsx|tsx|javascript|js)?\\s*\\n(.*?)```")
	sourceStartRe = regexp.MustCompile(`(?m)^\s*(import\s|export\s|function\s+[A-Z]|const\s+[A-Z]|class\s+[A-Z])`)
	strayFenceRe  = regexp.MustCompile("(?m)^```.*$")
)

// extractComponentSource pulls the widget source out of a raw model reply.
// Models are asked for a single fenced block but do not always comply, so
// degrade gracefully: first fenced code block, else the span from the first
// import or component declaration to the end, else the reply with stray
// fence lines stripped. The validator judges whatever comes out.
func extractComponentSource(raw string) string {
	if m := fencedBlockRe.FindStringSubmatch(raw); m != nil {
		return strings.TrimSpace(m[1])
	}

	if loc := sourceStartRe.FindStringIndex(raw); loc != nil {
		return strings.TrimSpace(raw[loc[0]:])
	}

	return strings.TrimSpace(strayFenceRe.ReplaceAllString(raw, ""))
}

// File: internal/compiler/compiler.go
//
// Package compiler turns validated widget source into a loadable executable
// module. It transpiles JSX at runtime, guarantees the module exposes a
// component under the default export slot, and registers the result with the
// module loader, returning the minted loadable reference to the caller, who
// owns it from then on.
package compiler

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/panelforge/api/schemas"
)

// missingComponentSource is the renderable placeholder exported when no
// candidate component binding can be located. It must never throw.
const missingComponentSource = `
function __PanelforgeMissing() {
  return (
    <div className="panelforge-widget-missing" role="alert">
      No component found in generated source.
    </div>
  );
}
export default __PanelforgeMissing;
`

// Compiler implements schemas.Compiler on top of a Transpiler and a
// ModuleLoader.
type Compiler struct {
	transpiler Transpiler
	loader     schemas.ModuleLoader
	logger     *zap.Logger
}

// New wires a compiler to its transpile seam and module loader.
func New(transpiler Transpiler, loader schemas.ModuleLoader, logger *zap.Logger) *Compiler {
	return &Compiler{
		transpiler: transpiler,
		loader:     loader,
		logger:     logger.Named("compiler"),
	}
}

// Compile transpiles source and registers the executable module under a fresh
// loadable reference. Exactly one reference is minted per successful call and
// ownership passes to the caller. Failures come back as *schemas.CompileError;
// this method never panics past its boundary.
func (c *Compiler) Compile(source, identity string) (*schemas.CompiledArtifact, error) {
	if strings.TrimSpace(source) == "" {
		return nil, &schemas.CompileError{Identity: identity, Message: "source cannot be empty"}
	}

	prepared, prepWarnings := c.ensureExportSlot(source, identity)

	code, warnings, err := c.transpiler.Transform(prepared, identity+".jsx")
	if err != nil {
		c.logger.Debug("Transpile failed.", zap.String("identity", identity), zap.Error(err))
		return nil, &schemas.CompileError{Identity: identity, Message: err.Error()}
	}
	warnings = append(prepWarnings, warnings...)

	ref, err := c.loader.CompileToLoadable(identity, code)
	if err != nil {
		return nil, &schemas.CompileError{Identity: identity, Message: fmt.Sprintf("registering loadable module: %v", err)}
	}

	sum := sha256.Sum256([]byte(source))
	return &schemas.CompiledArtifact{
		Identity:       identity,
		SourceHash:     hex.EncodeToString(sum[:]),
		ExecutableCode: code,
		Ref:            ref,
		Warnings:       warnings,
	}, nil
}

// ValidateSyntax runs the transpile step and discards its output.
func (c *Compiler) ValidateSyntax(source string) error {
	if strings.TrimSpace(source) == "" {
		return &schemas.CompileError{Message: "source cannot be empty"}
	}
	if _, _, err := c.transpiler.Transform(source, "syntax-check.jsx"); err != nil {
		return &schemas.CompileError{Message: err.Error()}
	}
	return nil
}

// ExtractComponentName exposes the pure name heuristic via the interface.
func (c *Compiler) ExtractComponentName(source string) string {
	return ExtractComponentName(source)
}

// ExtractDependencies exposes the pure dependency scan via the interface.
func (c *Compiler) ExtractDependencies(source string) []string {
	return ExtractDependencies(source)
}

// Release revokes a loadable reference. Idempotent; releasing an unknown or
// already-released reference is a no-op.
func (c *Compiler) Release(ref schemas.LoadableRef) {
	c.loader.Release(ref)
}

// ensureExportSlot guarantees the source exports a component in the default
// slot before transpilation. Source that already has one passes through
// untouched; otherwise the best name-matched binding is re-exported, falling
// back to the visible placeholder component when nothing matches.
func (c *Compiler) ensureExportSlot(source, identity string) (string, []string) {
	if hasDefaultExport(source) {
		return source, nil
	}

	name := ExtractComponentName(source)
	if name != FallbackComponentName || strings.Contains(source, FallbackComponentName) {
		c.logger.Debug("No default export; re-exporting candidate binding.",
			zap.String("identity", identity), zap.String("component", name))
		return source + fmt.Sprintf("\nexport default %s;\n", name),
			[]string{fmt.Sprintf("no default export; re-exported %q", name)}
	}

	c.logger.Warn("No component binding found; substituting placeholder.", zap.String("identity", identity))
	return source + missingComponentSource,
		[]string{"no component binding found; placeholder component exported"}
}

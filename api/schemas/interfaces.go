// File: api/schemas/interfaces.go
package schemas

import "context"

// Instance is a loaded, renderable component. Render executes the component
// with the given props and returns its HTML rendition. Implementations are
// safe for concurrent use; renders against the same instance are serialized
// internally.
type Instance interface {
	Name() string
	Render(props map[string]any) (string, error)
}

// ModuleLoader is the narrow contract for turning executable module text into
// an addressable, revocable resource. The core pipeline depends only on these
// three operations, never on the concrete loading mechanism.
type ModuleLoader interface {
	// CompileToLoadable registers code and mints a fresh handle for it.
	CompileToLoadable(identity, code string) (LoadableRef, error)
	// Resolve materializes the module behind ref into a renderable instance.
	// A module with no callable default export fails with a LoadError.
	Resolve(ref LoadableRef) (Instance, error)
	// Release revokes ref and frees the backing storage. Releasing an unknown
	// or already-released handle is a no-op.
	Release(ref LoadableRef)
	Stats() LoaderStats
}

// Compiler turns validated source text into a compiled artifact. Failures are
// returned as structured errors (CompileError), never panics.
type Compiler interface {
	Compile(source, identity string) (*CompiledArtifact, error)
	ValidateSyntax(source string) error
	ExtractComponentName(source string) string
	ExtractDependencies(source string) []string
	Release(ref LoadableRef)
}

// LLMClient is the boundary to the external generation service.
type LLMClient interface {
	// Generate returns the raw model response for the request. The text may
	// embed the component source in prose; extraction is the caller's job.
	Generate(ctx context.Context, req GenerationRequest) (string, error)
	// HealthCheck probes service availability. A non-nil error means the
	// service must not be called for generation right now.
	HealthCheck(ctx context.Context) error
}

// HotNotifier is how the registry hands a successful canonical update to the
// live-update layer. Implementations refresh their own cache and emit the
// lifecycle event.
type HotNotifier interface {
	NotifyUpdated(ctx context.Context, identity, source string)
	// NotifyRemoved drops any cached state for identity so the live-update
	// layer does not serve a widget the registry no longer holds.
	NotifyRemoved(ctx context.Context, identity string)
}

// File: internal/loader/runtime.go
package loader

import (
	"fmt"
	"sync"

	"github.com/dop251/goja"

	"github.com/xkilldash9x/panelforge/api/schemas"
)

// preludeProgram is compiled once; each resolve evaluates it into a fresh
// runtime so widget modules can never observe each other's state.
var preludeProgram = goja.MustCompile("panelforge-prelude.js", preludeJS, true)

// componentInstance is the realized form of a loaded module: the default
// export plus the runtime it lives in. The underlying goja runtime is
// single-threaded, so renders against the same instance are serialized.
type componentInstance struct {
	name      string
	mu        sync.Mutex
	vm        *goja.Runtime
	component goja.Value
	render    goja.Callable
}

// newInstance evaluates the CommonJS module text and extracts its default
// export. A missing or non-callable export is a LoadError, distinct from the
// compile stage: the source was syntactically valid but produced no usable
// component.
func newInstance(identity, code string) (schemas.Instance, error) {
	vm := goja.New()
	if _, err := vm.RunProgram(preludeProgram); err != nil {
		return nil, fmt.Errorf("initializing runtime prelude: %w", err)
	}

	module := vm.NewObject()
	exports := vm.NewObject()
	if err := module.Set("exports", exports); err != nil {
		return nil, fmt.Errorf("preparing module scope: %w", err)
	}
	if err := vm.Set("module", module); err != nil {
		return nil, fmt.Errorf("preparing module scope: %w", err)
	}
	if err := vm.Set("exports", exports); err != nil {
		return nil, fmt.Errorf("preparing module scope: %w", err)
	}

	prog, err := goja.Compile(identity+".js", code, true)
	if err != nil {
		return nil, &schemas.LoadError{Identity: identity, Message: fmt.Sprintf("module text failed to parse: %v", err)}
	}
	if _, err := vm.RunProgram(prog); err != nil {
		return nil, &schemas.LoadError{Identity: identity, Message: fmt.Sprintf("module evaluation threw: %v", err)}
	}

	// Re-read module.exports: the module may have replaced the object.
	exported := module.Get("exports")
	if exported == nil || goja.IsUndefined(exported) || goja.IsNull(exported) {
		return nil, &schemas.LoadError{Identity: identity, Message: "module exported nothing"}
	}

	def := exported.ToObject(vm).Get("default")
	if def == nil || goja.IsUndefined(def) || goja.IsNull(def) {
		return nil, &schemas.LoadError{Identity: identity, Message: "module has no default export"}
	}
	if _, ok := goja.AssertFunction(def); !ok {
		return nil, &schemas.LoadError{Identity: identity, Message: "default export is not a callable component"}
	}

	renderVal := vm.Get("__panelforgeRender")
	render, ok := goja.AssertFunction(renderVal)
	if !ok {
		return nil, fmt.Errorf("runtime prelude did not install a renderer")
	}

	name := identity
	if obj, isObj := def.(*goja.Object); isObj {
		if n := obj.Get("name"); n != nil && !goja.IsUndefined(n) && n.String() != "" {
			name = n.String()
		}
	}

	return &componentInstance{
		name:      name,
		vm:        vm,
		component: def,
		render:    render,
	}, nil
}

// Name returns the component's function name, or the identity it was loaded
// under when the export is anonymous.
func (i *componentInstance) Name() string {
	return i.name
}

// Render executes the component with props and returns its HTML rendition.
// Callers may share an instance across goroutines; the runtime itself cannot
// run concurrently, so each render takes the instance lock for its duration.
// JavaScript throws surface as errors; the sanitization boundary inside the
// module converts child render failures into an error box before they ever
// reach here.
func (i *componentInstance) Render(props map[string]any) (string, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if props == nil {
		props = map[string]any{}
	}

	out, err := i.render(goja.Undefined(), i.component, i.vm.ToValue(props))
	if err != nil {
		if ex, ok := err.(*goja.Exception); ok {
			return "", fmt.Errorf("render failed: %s", ex.Value().String())
		}
		return "", fmt.Errorf("render failed: %w", err)
	}
	return out.String(), nil
}

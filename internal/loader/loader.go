// File: internal/loader/loader.go
//
// Package loader owns the dynamic-module boundary: it turns executable module
// text into addressable, revocable loadable references and resolves those
// references into renderable instances inside an embedded JavaScript runtime.
// The rest of the pipeline only ever sees the three-operation
// CompileToLoadable/Resolve/Release contract.
package loader

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/panelforge/api/schemas"
)

// moduleRecord is the stored backing for one loadable reference.
type moduleRecord struct {
	identity string
	code     string
}

// MemoryLoader is the in-memory ModuleLoader implementation. Handles are
// process-local URLs backed by the executable text they were minted for;
// releasing a handle frees that backing immediately.
type MemoryLoader struct {
	logger *zap.Logger

	mu      sync.Mutex
	modules map[schemas.LoadableRef]moduleRecord
}

// New creates an empty module store.
func New(logger *zap.Logger) *MemoryLoader {
	return &MemoryLoader{
		logger:  logger.Named("loader"),
		modules: make(map[schemas.LoadableRef]moduleRecord),
	}
}

// CompileToLoadable registers code under a freshly minted handle. Every call
// mints exactly one handle; the caller owns it.
func (l *MemoryLoader) CompileToLoadable(identity, code string) (schemas.LoadableRef, error) {
	if code == "" {
		return "", fmt.Errorf("refusing to register empty module for %q", identity)
	}
	ref := schemas.LoadableRef(fmt.Sprintf("loadable://%s/%s", identity, uuid.NewString()))

	l.mu.Lock()
	l.modules[ref] = moduleRecord{identity: identity, code: code}
	l.mu.Unlock()

	l.logger.Debug("Registered loadable module.",
		zap.String("identity", identity), zap.String("ref", string(ref)), zap.Int("bytes", len(code)))
	return ref, nil
}

// Resolve evaluates the module behind ref in a fresh runtime and returns its
// default-exported component as a renderable instance.
func (l *MemoryLoader) Resolve(ref schemas.LoadableRef) (schemas.Instance, error) {
	l.mu.Lock()
	rec, ok := l.modules[ref]
	l.mu.Unlock()

	if !ok {
		return nil, &schemas.LoadError{Message: fmt.Sprintf("loadable reference %q has been released or never existed", ref)}
	}
	return newInstance(rec.identity, rec.code)
}

// Release revokes ref and frees its backing storage. Idempotent: revoking an
// unknown or already-released handle is a no-op, not an error.
func (l *MemoryLoader) Release(ref schemas.LoadableRef) {
	l.mu.Lock()
	_, ok := l.modules[ref]
	delete(l.modules, ref)
	l.mu.Unlock()

	if ok {
		l.logger.Debug("Released loadable module.", zap.String("ref", string(ref)))
	}
}

// Stats reports the live handle count and the approximate bytes held.
func (l *MemoryLoader) Stats() schemas.LoaderStats {
	l.mu.Lock()
	defer l.mu.Unlock()

	var bytes int64
	for _, rec := range l.modules {
		bytes += int64(len(rec.code))
	}
	return schemas.LoaderStats{Handles: len(l.modules), ApproxBytes: bytes}
}

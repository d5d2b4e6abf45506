// File: internal/registry/registry.go
//
// Package registry owns the canonical identity -> widget entry map. Every
// mutation is all-or-nothing: readers observe an identity as absent, fully
// the previous version, or fully the new one, never a half-applied update.
// The registry is also where loadable-reference ownership is handed over:
// superseding or removing an entry releases the old reference before the
// operation completes.
package registry

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/panelforge/api/schemas"
	"github.com/xkilldash9x/panelforge/internal/events"
)

// Registry is the authoritative widget store. Construct one per application
// and hand references to consumers explicitly; there is no process-wide
// instance.
type Registry struct {
	logger   *zap.Logger
	compiler schemas.Compiler
	loader   schemas.ModuleLoader
	bus      *events.Bus

	notifierMu sync.RWMutex
	notifier   schemas.HotNotifier

	mu      sync.Mutex
	entries map[string]*schemas.RegistryEntry
	order   []string
}

// New creates an empty registry.
func New(compiler schemas.Compiler, loader schemas.ModuleLoader, bus *events.Bus, logger *zap.Logger) *Registry {
	return &Registry{
		logger:   logger.Named("registry"),
		compiler: compiler,
		loader:   loader,
		bus:      bus,
		entries:  make(map[string]*schemas.RegistryEntry),
	}
}

// AttachHotNotifier connects the live-update layer. Once attached, successful
// updates and removals are relayed to it instead of being published directly,
// so the lifecycle event is emitted exactly once either way.
func (r *Registry) AttachHotNotifier(n schemas.HotNotifier) {
	r.notifierMu.Lock()
	r.notifier = n
	r.notifierMu.Unlock()
}

// RegisterFromSource compiles and loads source under identity, creating the
// entry or overwriting an existing one. On any failure no entry is created or
// mutated. The previous artifact's loadable reference, if any, is released
// exactly when the new entry becomes visible.
func (r *Registry) RegisterFromSource(ctx context.Context, identity, displayName, source string, meta schemas.WidgetMetadata) (schemas.Instance, error) {
	artifact, instance, err := r.build(identity, source)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if meta.Origin == "" {
		meta.Origin = schemas.OriginManual
	}
	meta.Dependencies = r.compiler.ExtractDependencies(source)
	meta.UpdatedAt = now

	if displayName == "" {
		displayName = r.compiler.ExtractComponentName(source)
	}

	r.mu.Lock()
	prev, existed := r.entries[identity]
	if existed {
		meta.CreatedAt = prev.Metadata.CreatedAt
	} else {
		meta.CreatedAt = now
		r.order = append(r.order, identity)
	}
	r.entries[identity] = &schemas.RegistryEntry{
		Identity:    identity,
		DisplayName: displayName,
		Source:      source,
		Artifact:    artifact,
		Instance:    instance,
		Metadata:    meta,
	}
	r.mu.Unlock()

	// The old reference is released only after the swap, so there is never a
	// moment where the identity holds no live artifact.
	if existed && prev.Artifact != nil {
		r.compiler.Release(prev.Artifact.Ref)
	}

	r.logger.Info("Widget registered.",
		zap.String("identity", identity), zap.Bool("overwrote", existed), zap.String("origin", string(meta.Origin)))
	r.publish(ctx, schemas.EventInstanceCreated, identity, "")
	return instance, nil
}

// Update replaces the source of an existing entry. Unknown identities fail
// with NotFoundError; otherwise this behaves as RegisterFromSource with the
// prior metadata preserved, and additionally hands the update to the hot
// replacement layer.
func (r *Registry) Update(ctx context.Context, identity, newSource string) (schemas.Instance, error) {
	r.mu.Lock()
	prev, ok := r.entries[identity]
	r.mu.Unlock()
	if !ok {
		return nil, &schemas.NotFoundError{Identity: identity}
	}

	artifact, instance, err := r.build(identity, newSource)
	if err != nil {
		return nil, err
	}

	meta := prev.Metadata
	meta.UpdatedAt = time.Now().UTC()
	meta.Dependencies = r.compiler.ExtractDependencies(newSource)
	meta.LastError = ""

	r.mu.Lock()
	// Re-read under lock: the entry may have been swapped since the check.
	current, ok := r.entries[identity]
	if !ok {
		r.mu.Unlock()
		r.compiler.Release(artifact.Ref)
		return nil, &schemas.NotFoundError{Identity: identity}
	}
	r.entries[identity] = &schemas.RegistryEntry{
		Identity:    identity,
		DisplayName: current.DisplayName,
		Source:      newSource,
		Artifact:    artifact,
		Instance:    instance,
		Metadata:    meta,
	}
	r.mu.Unlock()

	if current.Artifact != nil {
		r.compiler.Release(current.Artifact.Ref)
	}

	r.logger.Info("Widget updated.", zap.String("identity", identity))

	r.notifierMu.RLock()
	notifier := r.notifier
	r.notifierMu.RUnlock()
	if notifier != nil {
		notifier.NotifyUpdated(ctx, identity, newSource)
	} else {
		r.publish(ctx, schemas.EventInstanceUpdated, identity, "")
	}
	return instance, nil
}

// Get returns a snapshot of the entry for identity.
func (r *Registry) Get(identity string) (schemas.RegistryEntry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[identity]
	if !ok {
		return schemas.RegistryEntry{}, false
	}
	return *entry, true
}

// GetInstance returns the loaded instance for identity.
func (r *Registry) GetInstance(identity string) (schemas.Instance, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[identity]
	if !ok {
		return nil, false
	}
	return entry.Instance, true
}

// List returns all identities in insertion order.
func (r *Registry) List() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Remove deletes the entry and releases its loadable reference. Removing an
// unknown identity is a no-op.
func (r *Registry) Remove(ctx context.Context, identity string) {
	r.mu.Lock()
	entry, ok := r.entries[identity]
	if ok {
		delete(r.entries, identity)
		for i, id := range r.order {
			if id == identity {
				r.order = append(r.order[:i], r.order[i+1:]...)
				break
			}
		}
	}
	r.mu.Unlock()

	if !ok {
		return
	}
	if entry.Artifact != nil {
		r.compiler.Release(entry.Artifact.Ref)
	}

	r.logger.Info("Widget removed.", zap.String("identity", identity))

	r.notifierMu.RLock()
	notifier := r.notifier
	r.notifierMu.RUnlock()
	if notifier != nil {
		notifier.NotifyRemoved(ctx, identity)
	}
	r.publish(ctx, schemas.EventInstanceRemoved, identity, "")
}

// Stats summarizes the registry's footprint. Memory is approximated from
// executable text lengths.
func (r *Registry) Stats() schemas.RegistryStats {
	r.mu.Lock()
	defer r.mu.Unlock()

	stats := schemas.RegistryStats{Entries: len(r.entries)}
	for _, entry := range r.entries {
		if entry.Instance != nil {
			stats.Instances++
		}
		if entry.Artifact != nil {
			stats.ApproxBytes += int64(len(entry.Artifact.ExecutableCode))
		}
	}
	return stats
}

// Close releases every held loadable reference. The registry is unusable
// afterwards; intended for application shutdown.
func (r *Registry) Close() {
	r.mu.Lock()
	entries := r.entries
	r.entries = make(map[string]*schemas.RegistryEntry)
	r.order = nil
	r.mu.Unlock()

	for _, entry := range entries {
		if entry.Artifact != nil {
			r.compiler.Release(entry.Artifact.Ref)
		}
	}
}

// build runs compile + load, keeping registration all-or-nothing: a load
// failure releases the just-minted reference before the error propagates.
func (r *Registry) build(identity, source string) (*schemas.CompiledArtifact, schemas.Instance, error) {
	artifact, err := r.compiler.Compile(source, identity)
	if err != nil {
		return nil, nil, err
	}

	instance, err := r.loader.Resolve(artifact.Ref)
	if err != nil {
		r.compiler.Release(artifact.Ref)
		return nil, nil, err
	}
	return artifact, instance, nil
}

func (r *Registry) publish(ctx context.Context, t schemas.EventType, identity, errMsg string) {
	if r.bus == nil {
		return
	}
	if err := r.bus.Publish(ctx, schemas.Event{
		Type:    t,
		Payload: schemas.InstanceEvent{Identity: identity, Error: errMsg},
	}); err != nil {
		r.logger.Debug("Lifecycle event dropped.", zap.String("type", string(t)), zap.Error(err))
	}
}

// File: internal/hotswap/manager.go
//
// Package hotswap keeps already-delivered widgets fresh without restarting
// anything. The manager maintains its own cache of the latest executable form
// per identity and rebuilds entries as updates arrive, broadcasting the
// outcome over the event bus so connected clients can re-render.
package hotswap

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/panelforge/api/schemas"
	"github.com/xkilldash9x/panelforge/internal/events"
)

// Manager implements schemas.HotNotifier. Updates for distinct identities run
// concurrently; a second update for an identity already being rebuilt is
// dropped, on the theory that the source it carries is stale by the time the
// in-flight rebuild lands.
type Manager struct {
	logger   *zap.Logger
	compiler schemas.Compiler
	loader   schemas.ModuleLoader
	bus      *events.Bus

	mu       sync.Mutex
	cache    map[string]*schemas.HotUpdateEntry
	inflight map[string]struct{}
	// removed marks identities evicted while a rebuild was in flight; the
	// rebuild discards its result instead of resurrecting the entry.
	removed map[string]struct{}

	connected atomic.Int64
}

// New creates a manager with an empty cache.
func New(compiler schemas.Compiler, loader schemas.ModuleLoader, bus *events.Bus, logger *zap.Logger) *Manager {
	return &Manager{
		logger:   logger.Named("hotswap"),
		compiler: compiler,
		loader:   loader,
		bus:      bus,
		cache:    make(map[string]*schemas.HotUpdateEntry),
		inflight: make(map[string]struct{}),
		removed:  make(map[string]struct{}),
	}
}

// UpdateInstance rebuilds identity from source and swaps the cached entry.
// It returns the freshly loaded instance, or nil when the update was dropped
// because one is already in flight. On failure the cache keeps the previous
// entry and an update_failed event is emitted; the last good version stays
// servable.
func (m *Manager) UpdateInstance(ctx context.Context, identity, source string) (schemas.Instance, error) {
	// The in-flight flag must be set before anything that can suspend, so a
	// concurrent duplicate sees it immediately.
	m.mu.Lock()
	if _, busy := m.inflight[identity]; busy {
		m.mu.Unlock()
		m.logger.Debug("Update dropped, rebuild already in flight.", zap.String("identity", identity))
		return nil, nil
	}
	m.inflight[identity] = struct{}{}
	prev := m.cache[identity]
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		delete(m.inflight, identity)
		delete(m.removed, identity)
		m.mu.Unlock()
	}()

	artifact, err := m.compiler.Compile(source, identity)
	if err != nil {
		m.fail(ctx, identity, err)
		return nil, err
	}

	instance, err := m.loader.Resolve(artifact.Ref)
	if err != nil {
		m.compiler.Release(artifact.Ref)
		m.fail(ctx, identity, err)
		return nil, err
	}

	m.mu.Lock()
	if _, gone := m.removed[identity]; gone {
		// The identity was removed while this rebuild ran; committing would
		// bring a deleted widget back to life.
		m.mu.Unlock()
		m.compiler.Release(artifact.Ref)
		m.logger.Debug("Rebuild discarded, identity removed mid-flight.", zap.String("identity", identity))
		return nil, nil
	}
	m.cache[identity] = &schemas.HotUpdateEntry{
		Identity:       identity,
		Instance:       instance,
		Ref:            artifact.Ref,
		ExecutableCode: artifact.ExecutableCode,
		UpdatedAt:      time.Now().UTC(),
	}
	m.mu.Unlock()

	// Release only after the swap; a resolve racing the update still gets a
	// live reference one way or the other.
	if prev != nil {
		m.compiler.Release(prev.Ref)
	}

	m.logger.Info("Instance hot-swapped.", zap.String("identity", identity))
	m.publish(ctx, schemas.EventInstanceUpdated, identity, "")
	return instance, nil
}

// NotifyUpdated satisfies schemas.HotNotifier. Registry updates arrive here;
// the error surface is the event stream rather than the return path, since
// the canonical update has already committed.
func (m *Manager) NotifyUpdated(ctx context.Context, identity, source string) {
	if _, err := m.UpdateInstance(ctx, identity, source); err != nil {
		m.logger.Warn("Hot update failed, serving previous version.",
			zap.String("identity", identity), zap.Error(err))
	}
}

// NotifyRemoved satisfies schemas.HotNotifier.
func (m *Manager) NotifyRemoved(ctx context.Context, identity string) {
	m.RemoveCached(identity)
}

// GetCached returns the latest hot entry for identity, if any.
func (m *Manager) GetCached(identity string) (*schemas.HotUpdateEntry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.cache[identity]
	return entry, ok
}

// HasCached reports whether identity has a hot entry.
func (m *Manager) HasCached(identity string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.cache[identity]
	return ok
}

// RemoveCached evicts identity's hot entry and releases its reference. A
// no-op for unknown identities. An eviction landing while a rebuild for the
// same identity is in flight marks it so the rebuild does not re-commit.
func (m *Manager) RemoveCached(identity string) {
	m.mu.Lock()
	entry, ok := m.cache[identity]
	delete(m.cache, identity)
	if _, busy := m.inflight[identity]; busy {
		m.removed[identity] = struct{}{}
	}
	m.mu.Unlock()

	if ok {
		m.compiler.Release(entry.Ref)
	}
}

// ClientConnected and ClientDisconnected track live event-stream consumers
// for the stats surface.
func (m *Manager) ClientConnected()    { m.connected.Add(1) }
func (m *Manager) ClientDisconnected() { m.connected.Add(-1) }

// Stats reports cache occupancy, in-flight rebuilds, and connected clients.
func (m *Manager) Stats() schemas.HotCacheStats {
	m.mu.Lock()
	defer m.mu.Unlock()

	return schemas.HotCacheStats{
		Cached:    len(m.cache),
		InFlight:  len(m.inflight),
		Connected: int(m.connected.Load()),
	}
}

// Close releases every cached reference.
func (m *Manager) Close() {
	m.mu.Lock()
	cache := m.cache
	m.cache = make(map[string]*schemas.HotUpdateEntry)
	m.mu.Unlock()

	for _, entry := range cache {
		m.compiler.Release(entry.Ref)
	}
}

func (m *Manager) fail(ctx context.Context, identity string, cause error) {
	m.logger.Warn("Instance rebuild failed.", zap.String("identity", identity), zap.Error(cause))
	m.publish(ctx, schemas.EventInstanceUpdateFailed, identity, cause.Error())
}

func (m *Manager) publish(ctx context.Context, t schemas.EventType, identity, errMsg string) {
	if m.bus == nil {
		return
	}
	if err := m.bus.Publish(ctx, schemas.Event{
		Type:    t,
		Payload: schemas.InstanceEvent{Identity: identity, Error: errMsg},
	}); err != nil {
		m.logger.Debug("Lifecycle event dropped.", zap.String("type", string(t)), zap.Error(err))
	}
}

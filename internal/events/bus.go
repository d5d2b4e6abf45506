// File: internal/events/bus.go
package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/panelforge/api/schemas"
)

// Bus is a typed publish/subscribe channel for widget lifecycle events.
// Publishing blocks when a subscriber's buffer is full (backpressure) and
// fails cleanly once the bus has been shut down.
type Bus struct {
	logger *zap.Logger

	// mu guards the subscriber map and the shutdown flag; every read or
	// write of isShutdown happens under it.
	mu          sync.RWMutex
	subscribers map[schemas.EventType][]chan schemas.Event
	bufferSize  int
	isShutdown  bool

	// activeWg tracks in-flight Publish calls so Shutdown can drain them.
	activeWg sync.WaitGroup
}

// allTypes is the subscription set used when Subscribe is called with no
// arguments.
var allTypes = []schemas.EventType{
	schemas.EventInstanceCreated,
	schemas.EventInstanceUpdated,
	schemas.EventInstanceUpdateFailed,
	schemas.EventInstanceRemoved,
}

// NewBus initializes the lifecycle event bus.
func NewBus(logger *zap.Logger, bufferSize int) *Bus {
	if bufferSize <= 0 {
		bufferSize = 64
	}
	return &Bus{
		logger:      logger.Named("events"),
		subscribers: make(map[schemas.EventType][]chan schemas.Event),
		bufferSize:  bufferSize,
	}
}

// Publish delivers an event to every subscriber of its type. The envelope is
// enriched with an ID and timestamp when the caller left them empty.
func (b *Bus) Publish(ctx context.Context, evt schemas.Event) (err error) {
	// Checking the flag and registering with the wait group under the same
	// lock keeps Shutdown's drain from missing this publish.
	b.mu.RLock()
	if b.isShutdown {
		b.mu.RUnlock()
		return fmt.Errorf("cannot publish %s: event bus is shut down", evt.Type)
	}
	b.activeWg.Add(1)
	subs := b.subscribers[evt.Type]
	// Copy so we never hold the lock across a channel send.
	subsCopy := make([]chan schemas.Event, len(subs))
	copy(subsCopy, subs)
	b.mu.RUnlock()
	defer b.activeWg.Done()

	if len(subsCopy) == 0 {
		return nil
	}

	// Sends on channels closed during shutdown panic; recover and report.
	defer func() {
		if r := recover(); r != nil {
			b.logger.Debug("Recovered from publish during shutdown.", zap.Any("panic", r))
			err = fmt.Errorf("failed to publish %s: bus is shutting down", evt.Type)
		}
	}()

	if evt.ID == "" {
		evt.ID = uuid.New().String()
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}

	for _, ch := range subsCopy {
		select {
		case ch <- evt:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Subscribe returns a channel receiving the requested event types and an
// unsubscribe function. With no arguments it subscribes to all lifecycle
// events.
func (b *Bus) Subscribe(types ...schemas.EventType) (<-chan schemas.Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan schemas.Event, b.bufferSize)
	if len(types) == 0 {
		types = allTypes
	}
	for _, t := range types {
		b.subscribers[t] = append(b.subscribers[t], ch)
	}

	unsubscribe := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if b.isShutdown {
			return
		}
		for _, t := range types {
			subs := b.subscribers[t]
			for i, sub := range subs {
				if sub == ch {
					b.subscribers[t] = append(subs[:i], subs[i+1:]...)
					break
				}
			}
		}
		close(ch)
	}
	return ch, unsubscribe
}

// Shutdown closes every subscriber channel and waits for in-flight publishes
// to unwind. Safe to call more than once.
func (b *Bus) Shutdown() {
	b.mu.Lock()
	if b.isShutdown {
		b.mu.Unlock()
		return
	}
	b.isShutdown = true

	unique := make(map[chan schemas.Event]struct{})
	for _, subs := range b.subscribers {
		for _, ch := range subs {
			unique[ch] = struct{}{}
		}
	}
	for ch := range unique {
		close(ch)
	}
	b.subscribers = make(map[schemas.EventType][]chan schemas.Event)
	b.mu.Unlock()

	b.activeWg.Wait()
}

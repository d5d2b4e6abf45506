// File: api/schemas/events.go
package schemas

import "time"

// EventType names a widget lifecycle event. These four names, together with
// the InstanceEvent payload shape, are the push contract exposed to UI layers.
type EventType string

const (
	EventInstanceCreated      EventType = "instance.created"
	EventInstanceUpdated      EventType = "instance.updated"
	EventInstanceUpdateFailed EventType = "instance.update_failed"
	EventInstanceRemoved      EventType = "instance.removed"
)

// InstanceEvent is the payload carried by every lifecycle event. Error is set
// only for EventInstanceUpdateFailed; updated events deliberately carry no
// source, observers re-read from the hot-update cache.
type InstanceEvent struct {
	Identity string `json:"identity"`
	Error    string `json:"error,omitempty"`
}

// Event is the envelope delivered to bus subscribers.
type Event struct {
	ID        string        `json:"id"`
	Timestamp time.Time     `json:"timestamp"`
	Type      EventType     `json:"type"`
	Payload   InstanceEvent `json:"payload"`
}

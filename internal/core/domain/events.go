package domain

import "time"

// EventKind names a session state transition.
type EventKind string

const (
	EventSessionCreated    EventKind = "session.created"
	EventDatasetLoaded     EventKind = "dataset.loaded"
	EventDatasetRejected   EventKind = "dataset.rejected"
	EventReferenceChanged  EventKind = "reference.changed"
	EventRadiusChanged     EventKind = "radius.changed"
	EventSelectionChanged  EventKind = "selection.changed"
	EventExportCreated     EventKind = "export.created"
	EventNotificationShown EventKind = "notification.shown"
)

// SessionEvent is published after every transition so presentation
// collaborators can refresh.
type SessionEvent struct {
	SessionID string         `json:"session_id"`
	Kind      EventKind      `json:"kind"`
	At        time.Time      `json:"at"`
	Payload   map[string]any `json:"payload,omitempty"`
}

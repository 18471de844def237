// Package realtime implements the WebSocket delivery hub: per-user client
// groups, non-blocking fan-out, and presence transitions backed by the
// session store.
package realtime

import "time"

// Wire event names. These are the values of the Event field on every frame
// pushed to clients.
const (
	EventConnectionStatus = "connection:status"
	EventUserOnline       = "user:online"
	EventUserOffline      = "user:offline"
	EventDocumentUploaded = "document:uploaded"
	EventDocumentUpdated  = "document:updated"
	EventDocumentDeleted  = "document:deleted"
	EventCategoryUpdated  = "category:updated"
	EventNotificationNew  = "notification:new"
)

// Event is the frame pushed to connected clients.
type Event struct {
	Event     string      `json:"event"`
	Payload   interface{} `json:"payload,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// NewEvent stamps an event with the current UTC time.
func NewEvent(name string, payload interface{}) Event {
	return Event{Event: name, Payload: payload, Timestamp: time.Now().UTC()}
}

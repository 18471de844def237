package service

import "github.com/docuvault-io/docuvault-api/internal/realtime"

// Realtime event names re-exported for emitters in this package. The wire
// names are owned by the delivery layer.
const (
	EventDocumentUploaded = realtime.EventDocumentUploaded
	EventDocumentUpdated  = realtime.EventDocumentUpdated
	EventDocumentDeleted  = realtime.EventDocumentDeleted
	EventCategoryUpdated  = realtime.EventCategoryUpdated
	EventNotificationNew  = realtime.EventNotificationNew
)

// Broadcaster delivers realtime events on a best-effort basis. Both methods
// return false when nothing was delivered (no connected recipients, or the
// hub is not running) and never block the caller. Persistence is the
// caller's responsibility; a false return is not an error.
type Broadcaster interface {
	TryBroadcastAll(event string, payload interface{}) bool
	TryBroadcastToUser(userID, event string, payload interface{}) bool
}

// NopBroadcaster satisfies Broadcaster while delivering nothing. It stands
// in when the realtime hub is disabled.
type NopBroadcaster struct{}

// TryBroadcastAll implements Broadcaster.
func (NopBroadcaster) TryBroadcastAll(string, interface{}) bool { return false }

// TryBroadcastToUser implements Broadcaster.
func (NopBroadcaster) TryBroadcastToUser(string, string, interface{}) bool { return false }

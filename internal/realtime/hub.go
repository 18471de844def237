package realtime

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/docuvault-io/docuvault-api/internal/session"
)

// hubMetrics is the slice of instrumentation the hub needs. Satisfied by
// *service.MetricsService.
type hubMetrics interface {
	ConnectionOpened()
	ConnectionClosed()
	SetOnlineUsers(n int)
	EventEmitted(event string)
	MessageDropped()
}

// Hub groups connected clients by user and fans events out to them.
//
// Concurrency guarantees, matching the client contract:
//   - Connect/Disconnect are safe under concurrent broadcasts.
//   - Broadcasts never block; saturated clients are skipped.
//   - Broadcasts never panic because Client.Send is never closed.
type Hub struct {
	sessions session.Store
	metrics  hubMetrics
	logger   *zap.Logger

	mu     sync.RWMutex
	byUser map[string]map[string]*Client
	online int
}

// NewHub constructs a hub backed by the given session store for presence
// bookkeeping. metrics may be nil.
func NewHub(sessions session.Store, metrics hubMetrics, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		sessions: sessions,
		metrics:  metrics,
		logger:   logger,
		byUser:   make(map[string]map[string]*Client),
	}
}

// Connect registers a client and records the connection in the session
// store. When this is the user's first active connection, a user:online
// event is announced to everyone else.
func (h *Hub) Connect(ctx context.Context, client *Client) error {
	if client == nil || client.ID == "" || client.UserID == "" {
		return nil
	}

	first, err := h.sessions.AddConnection(ctx, client.UserID, client.ID)
	if err != nil {
		return err
	}

	h.mu.Lock()
	group := h.byUser[client.UserID]
	if group == nil {
		group = make(map[string]*Client)
		h.byUser[client.UserID] = group
	}
	group[client.ID] = client
	if first {
		h.online++
	}
	online := h.online
	h.mu.Unlock()

	if h.metrics != nil {
		h.metrics.ConnectionOpened()
		h.metrics.SetOnlineUsers(online)
	}
	h.logger.Debug("client connected",
		zap.String("client_id", client.ID),
		zap.String("user_id", client.UserID),
		zap.Bool("first", first))

	if first {
		h.TryBroadcastAll(EventUserOnline, map[string]string{"user_id": client.UserID})
	}
	return nil
}

// Disconnect removes a client from its group and the session store. When
// the user's last connection drops, a user:offline event is announced.
// Safe to call more than once for the same client.
func (h *Hub) Disconnect(ctx context.Context, client *Client) {
	if client == nil || client.ID == "" {
		return
	}

	h.mu.Lock()
	group := h.byUser[client.UserID]
	_, present := group[client.ID]
	if present {
		delete(group, client.ID)
		if len(group) == 0 {
			delete(h.byUser, client.UserID)
		}
	}
	h.mu.Unlock()

	// Membership removal happens before Close so broadcasters holding the
	// pointer observe a closing client rather than a stale group entry.
	client.Close()

	if !present {
		return
	}

	last, err := h.sessions.RemoveConnection(ctx, client.UserID, client.ID)
	if err != nil {
		h.logger.Warn("presence cleanup failed",
			zap.String("client_id", client.ID),
			zap.String("user_id", client.UserID),
			zap.Error(err))
	}

	h.mu.Lock()
	if last && h.online > 0 {
		h.online--
	}
	online := h.online
	h.mu.Unlock()

	if h.metrics != nil {
		h.metrics.ConnectionClosed()
		h.metrics.SetOnlineUsers(online)
	}
	h.logger.Debug("client disconnected",
		zap.String("client_id", client.ID),
		zap.String("user_id", client.UserID),
		zap.Bool("last", last))

	if last {
		h.TryBroadcastAll(EventUserOffline, map[string]string{"user_id": client.UserID})
	}
}

// TryBroadcastAll fans an event out to every connected client. It reports
// whether at least one client received the event.
func (h *Hub) TryBroadcastAll(event string, payload interface{}) bool {
	ev := NewEvent(event, payload)

	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := false
	for _, group := range h.byUser {
		if h.sendToGroup(group, ev) {
			delivered = true
		}
	}
	if delivered && h.metrics != nil {
		h.metrics.EventEmitted(event)
	}
	return delivered
}

// TryBroadcastToUser fans an event out to every connection of one user.
func (h *Hub) TryBroadcastToUser(userID, event string, payload interface{}) bool {
	ev := NewEvent(event, payload)

	h.mu.RLock()
	group := h.byUser[userID]
	delivered := h.sendToGroup(group, ev)
	h.mu.RUnlock()

	if delivered && h.metrics != nil {
		h.metrics.EventEmitted(event)
	}
	return delivered
}

// OnlineUsers returns user ids with at least one active connection on this
// instance.
func (h *Hub) OnlineUsers() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]string, 0, len(h.byUser))
	for userID := range h.byUser {
		out = append(out, userID)
	}
	return out
}

// ConnectionCount returns the number of open connections on this instance.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	n := 0
	for _, group := range h.byUser {
		n += len(group)
	}
	return n
}

func (h *Hub) sendToGroup(group map[string]*Client, ev Event) bool {
	delivered := false
	for _, c := range group {
		if c.trySend(ev) {
			delivered = true
			continue
		}
		if h.metrics != nil {
			h.metrics.MessageDropped()
		}
	}
	return delivered
}

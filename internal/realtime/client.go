package realtime

import "sync"

// Client represents one connected WebSocket session.
//
// Send is intentionally never closed by the server so that concurrent
// broadcasters cannot panic on a send to a closed channel; done signals the
// pumps to stop instead. Close is idempotent.
type Client struct {
	ID     string
	UserID string
	Send   chan Event

	done      chan struct{}
	closeOnce sync.Once
}

// NewClient constructs a client with a bounded send queue.
func NewClient(id, userID string, sendQueueSize int) *Client {
	if sendQueueSize <= 0 {
		sendQueueSize = 64
	}
	return &Client{
		ID:     id,
		UserID: userID,
		Send:   make(chan Event, sendQueueSize),
		done:   make(chan struct{}),
	}
}

// Done returns a channel closed when the client is shutting down.
func (c *Client) Done() <-chan struct{} {
	if c == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return c.done
}

// Close signals the client goroutines to stop. It does not close Send.
func (c *Client) Close() {
	if c == nil {
		return
	}
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// trySend enqueues without blocking. It reports whether the event was
// queued; full buffers and closing clients drop.
func (c *Client) trySend(ev Event) bool {
	if c == nil {
		return false
	}
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.Send <- ev:
		return true
	default:
		return false
	}
}

package session

import (
	"context"

	"github.com/google/uuid"
)

// StatelessStore is the degraded strategy used when Redis is unreachable.
// Sessions are not tracked: refresh tokens still carry a session id so that
// a later restart with Redis available picks revocation back up, but
// Validate always passes and presence transitions never fire.
type StatelessStore struct{}

// NewStatelessStore returns the no-op strategy.
func NewStatelessStore() *StatelessStore {
	return &StatelessStore{}
}

// Create returns a fresh id without recording anything.
func (s *StatelessStore) Create(ctx context.Context, userID string) (string, error) {
	return uuid.NewString(), nil
}

// Delete is a no-op.
func (s *StatelessStore) Delete(ctx context.Context, sessionID, userID string) error {
	return nil
}

// Consume accepts every structurally valid token without tracking
// single-use; signature and expiry are the only checks left, so replay
// protection is suspended alongside revocation.
func (s *StatelessStore) Consume(ctx context.Context, sessionID, userID string) error {
	return nil
}

// OnlineUsers reports no one; presence is not tracked.
func (s *StatelessStore) OnlineUsers(ctx context.Context) ([]string, error) {
	return nil, nil
}

// AddConnection never reports a first connection; presence is skipped.
func (s *StatelessStore) AddConnection(ctx context.Context, userID, connID string) (bool, error) {
	return false, nil
}

// RemoveConnection never reports a last connection; presence is skipped.
func (s *StatelessStore) RemoveConnection(ctx context.Context, userID, connID string) (bool, error) {
	return false, nil
}

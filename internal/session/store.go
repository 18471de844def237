// Package session tracks server-side sessions and realtime presence.
//
// Sessions are the unit of refresh-token revocation: each refresh token is
// bound to exactly one session id, and rotating a token replaces its session.
// Presence records which connections a user currently has open.
//
// Two strategies implement Store. RedisStore is the real one. StatelessStore
// is the degraded mode selected at startup when Redis is unreachable: auth
// keeps working on signature checks alone, at the cost of revocation and
// presence accuracy.
package session

import (
	"context"

	appErrors "github.com/docuvault-io/docuvault-api/pkg/errors"
)

// Store is the session and presence contract.
type Store interface {
	// Create records a new session for the user and returns its opaque id.
	Create(ctx context.Context, userID string) (string, error)

	// Delete removes a session. Idempotent: deleting an absent session is
	// a no-op. userID may be empty when unknown.
	Delete(ctx context.Context, sessionID, userID string) error

	// Consume atomically validates and removes the session in one step.
	// It returns ErrSessionExpired when the session was revoked, rotated
	// away, or bound to a different user; when two callers race on one
	// session id, exactly one observes success and the other gets
	// ErrSessionExpired. This is what makes a refresh token single-use.
	// The stateless strategy always passes.
	Consume(ctx context.Context, sessionID, userID string) error

	// OnlineUsers lists users with at least one active connection. The
	// stateless strategy reports no one.
	OnlineUsers(ctx context.Context) ([]string, error)

	// AddConnection records a realtime connection and reports whether it
	// is the user's first active one (the online transition).
	AddConnection(ctx context.Context, userID, connID string) (first bool, err error)

	// RemoveConnection drops a realtime connection and reports whether it
	// was the user's last active one (the offline transition).
	RemoveConnection(ctx context.Context, userID, connID string) (last bool, err error)
}

// ErrSessionExpired is the canonical rejection for a structurally valid
// refresh token whose session no longer exists.
var ErrSessionExpired = appErrors.ErrSessionExpired

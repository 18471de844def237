package session

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	sessionKeyPrefix  = "session:"
	userSessionPrefix = "user:sessions:"
	userSocketPrefix  = "user:sockets:"
	onlineUsersKey    = "online:users"
)

// RedisStore keeps sessions and presence sets in Redis. Each operation
// touches independent keys, so no cross-operation transactions are needed:
// concurrent rotations for one user work on distinct session ids, and the
// single-use property of a refresh token rests on Consume, where the DEL
// reply count picks exactly one winner among racing callers.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisStore constructs a Redis-backed session store.
func NewRedisStore(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &RedisStore{client: client, ttl: ttl, logger: logger}
}

// Create stores session:{id} -> userID with TTL and tracks the id in the
// user's session set.
func (s *RedisStore) Create(ctx context.Context, userID string) (string, error) {
	sessionID := uuid.NewString()

	if err := s.client.SetEx(ctx, sessionKeyPrefix+sessionID, userID, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	if err := s.client.SAdd(ctx, userSessionPrefix+userID, sessionID).Err(); err != nil {
		s.logger.Warn("failed to track session in user set", zap.String("user_id", userID), zap.Error(err))
	}

	return sessionID, nil
}

// Delete removes the keyed session and its set membership.
func (s *RedisStore) Delete(ctx context.Context, sessionID, userID string) error {
	if err := s.client.Del(ctx, sessionKeyPrefix+sessionID).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if userID != "" {
		if err := s.client.SRem(ctx, userSessionPrefix+userID, sessionID).Err(); err != nil {
			s.logger.Warn("failed to remove session from user set", zap.String("user_id", userID), zap.Error(err))
		}
	}
	return nil
}

// Lookup resolves a session id to its owner, or "" when absent.
func (s *RedisStore) Lookup(ctx context.Context, sessionID string) (string, error) {
	userID, err := s.client.Get(ctx, sessionKeyPrefix+sessionID).Result()
	if err != nil {
		if err == redis.Nil {
			return "", nil
		}
		return "", fmt.Errorf("lookup session: %w", err)
	}
	return userID, nil
}

// Consume validates and deletes the session in one pass. The ownership
// read rejects absent or foreign sessions, guarding against a token
// surviving logout and against session confusion between accounts. Two
// racing consumers can both pass that read, but DEL removes exactly one
// key: its reply count arbitrates, so only one caller wins.
func (s *RedisStore) Consume(ctx context.Context, sessionID, userID string) error {
	owner, err := s.Lookup(ctx, sessionID)
	if err != nil {
		return err
	}
	if owner == "" || owner != userID {
		return ErrSessionExpired
	}

	removed, err := s.client.Del(ctx, sessionKeyPrefix+sessionID).Result()
	if err != nil {
		return fmt.Errorf("consume session: %w", err)
	}
	if removed == 0 {
		return ErrSessionExpired
	}

	if err := s.client.SRem(ctx, userSessionPrefix+userID, sessionID).Err(); err != nil {
		s.logger.Warn("failed to remove session from user set", zap.String("user_id", userID), zap.Error(err))
	}
	return nil
}

// AddConnection records the connection and marks the user online when it is
// the first one.
func (s *RedisStore) AddConnection(ctx context.Context, userID, connID string) (bool, error) {
	added, err := s.client.SAdd(ctx, userSocketPrefix+userID, connID).Result()
	if err != nil {
		return false, fmt.Errorf("add connection: %w", err)
	}
	if added == 0 {
		return false, nil
	}

	count, err := s.client.SCard(ctx, userSocketPrefix+userID).Result()
	if err != nil {
		return false, fmt.Errorf("count connections: %w", err)
	}

	first := count == 1
	if first {
		if err := s.client.SAdd(ctx, onlineUsersKey, userID).Err(); err != nil {
			s.logger.Warn("failed to mark user online", zap.String("user_id", userID), zap.Error(err))
		}
	}
	return first, nil
}

// RemoveConnection drops the connection and marks the user offline when the
// set becomes empty.
func (s *RedisStore) RemoveConnection(ctx context.Context, userID, connID string) (bool, error) {
	if err := s.client.SRem(ctx, userSocketPrefix+userID, connID).Err(); err != nil {
		return false, fmt.Errorf("remove connection: %w", err)
	}

	count, err := s.client.SCard(ctx, userSocketPrefix+userID).Result()
	if err != nil {
		return false, fmt.Errorf("count connections: %w", err)
	}

	last := count == 0
	if last {
		if err := s.client.SRem(ctx, onlineUsersKey, userID).Err(); err != nil {
			s.logger.Warn("failed to mark user offline", zap.String("user_id", userID), zap.Error(err))
		}
	}
	return last, nil
}

// OnlineUsers returns the ids of currently online users.
func (s *RedisStore) OnlineUsers(ctx context.Context) ([]string, error) {
	users, err := s.client.SMembers(ctx, onlineUsersKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list online users: %w", err)
	}
	return users, nil
}

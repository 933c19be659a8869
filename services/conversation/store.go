package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"pitstop/models"

	"github.com/go-redis/redis/v8"
)

const sessionKeyPrefix = "conv:sess:"

// ErrSessionNotFound is returned when no live session exists for an id.
var ErrSessionNotFound = errors.New("conversation session not found")

// SessionStore holds live conversation sessions. It is the single canonical
// store per conversation id; a store failure is fatal for the turn, since
// continuing without it would break the one-store invariant.
type SessionStore interface {
	Get(ctx context.Context, id string) (*models.ConversationSession, error)
	Save(ctx context.Context, session *models.ConversationSession) error
}

// RedisSessionStore keeps sessions as JSON values with a TTL.
type RedisSessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisSessionStore returns a Redis-backed session store.
func NewRedisSessionStore(client *redis.Client, ttl time.Duration) *RedisSessionStore {
	return &RedisSessionStore{client: client, ttl: ttl}
}

// Get loads a session, returning ErrSessionNotFound when absent or expired.
func (s *RedisSessionStore) Get(ctx context.Context, id string) (*models.ConversationSession, error) {
	data, err := s.client.Get(ctx, sessionKeyPrefix+id).Result()
	if err == redis.Nil {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation session: %w", err)
	}
	var session models.ConversationSession
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil, fmt.Errorf("failed to parse conversation session: %w", err)
	}
	return &session, nil
}

// Save marshals the session back with a refreshed TTL.
func (s *RedisSessionStore) Save(ctx context.Context, session *models.ConversationSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal conversation session: %w", err)
	}
	if err := s.client.Set(ctx, sessionKeyPrefix+session.ID, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store conversation session: %w", err)
	}
	return nil
}

// Delete removes a live session. Terminal sessions are normally left to
// expire with their TTL so late messages still get a structured rejection.
func (s *RedisSessionStore) Delete(ctx context.Context, id string) error {
	return s.client.Del(ctx, sessionKeyPrefix+id).Err()
}

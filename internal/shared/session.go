package shared

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrSessionNotFound indicates a missing or expired session token.
var ErrSessionNotFound = errors.New("shared: session not found")

// Identity is the authenticated caller attached to every request.
type Identity struct {
	UserID int64  `json:"user_id"`
	Role   string `json:"role"`
}

// SessionStore keeps API session tokens in Redis.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSessionStore constructs a SessionStore.
func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{client: client, ttl: ttl}
}

// Create issues a new token for the identity.
func (s *SessionStore) Create(ctx context.Context, id Identity) (string, error) {
	token := uuid.NewString()
	data, err := json.Marshal(id)
	if err != nil {
		return "", err
	}
	if err := s.client.Set(ctx, s.redisKey(token), data, s.ttl).Err(); err != nil {
		return "", err
	}
	return token, nil
}

// Get resolves a token to its identity and refreshes the TTL.
func (s *SessionStore) Get(ctx context.Context, token string) (Identity, error) {
	if token == "" {
		return Identity{}, ErrSessionNotFound
	}
	data, err := s.client.Get(ctx, s.redisKey(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Identity{}, ErrSessionNotFound
		}
		return Identity{}, err
	}
	var id Identity
	if err := json.Unmarshal(data, &id); err != nil {
		return Identity{}, err
	}
	_ = s.client.Expire(ctx, s.redisKey(token), s.ttl).Err()
	return id, nil
}

// Delete revokes a token.
func (s *SessionStore) Delete(ctx context.Context, token string) error {
	if err := s.client.Del(ctx, s.redisKey(token)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	return nil
}

// TTL exposes the configured session lifetime.
func (s *SessionStore) TTL() time.Duration {
	return s.ttl
}

func (s *SessionStore) redisKey(token string) string {
	return fmt.Sprintf("session:%s", token)
}

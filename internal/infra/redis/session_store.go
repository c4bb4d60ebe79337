package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"totem-quiz-bot/internal/app"
)

// SessionStore keeps quiz sessions in Redis as JSON so they survive restarts
// and can be shared by several bot instances. Every save refreshes the idle TTL;
// a session nobody touches for ttl disappears.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{
		client: client,
		ttl:    ttl,
	}
}

func (s *SessionStore) Get(ctx context.Context, userID string) (*app.Session, bool, error) {
	data, err := s.client.Get(ctx, s.key(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get session: %w", err)
	}
	var session app.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, false, fmt.Errorf("unmarshal session: %w", err)
	}
	return &session, true, nil
}

func (s *SessionStore) Save(ctx context.Context, session *app.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	ttl := s.ttl
	if ttl < 0 {
		ttl = 0
	}
	return s.client.Set(ctx, s.key(session.UserID), data, ttl).Err()
}

func (s *SessionStore) Delete(ctx context.Context, userID string) error {
	return s.client.Del(ctx, s.key(userID)).Err()
}

func (s *SessionStore) key(userID string) string {
	return "quiz:session:" + userID
}

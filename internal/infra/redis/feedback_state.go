package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// FeedbackState stores the "next message is feedback" flag of a chat next to
// its quiz session, so any bot instance can pick the reply up.
type FeedbackState struct {
	client *redis.Client
	ttl    time.Duration
}

func NewFeedbackState(client *redis.Client, ttl time.Duration) *FeedbackState {
	return &FeedbackState{client: client, ttl: ttl}
}

func (s *FeedbackState) SetAwaiting(ctx context.Context, chatID string, on bool) error {
	if !on {
		return s.client.Del(ctx, s.key(chatID)).Err()
	}
	ttl := s.ttl
	if ttl < 0 {
		ttl = 0
	}
	return s.client.Set(ctx, s.key(chatID), "1", ttl).Err()
}

// TakeAwaiting reports and clears the flag in one round trip.
func (s *FeedbackState) TakeAwaiting(ctx context.Context, chatID string) (bool, error) {
	err := s.client.GetDel(ctx, s.key(chatID)).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("take feedback flag: %w", err)
	}
	return true, nil
}

func (s *FeedbackState) key(chatID string) string {
	return "quiz:feedback:" + chatID
}

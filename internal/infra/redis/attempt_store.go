package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cyber-eval-service/internal/domain"
	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

// AttemptStore is a Redis-backed implementation of app.AttemptRepository.
// Attempts are stored as JSON under quiz:attempt:{sessionID} and expire with the sign-in session.
type AttemptStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewAttemptStore(client *redis.Client, ttl time.Duration) *AttemptStore {
	return &AttemptStore{client: client, ttl: ttl}
}

func (s *AttemptStore) Get(ctx context.Context, sessionID string) (*domain.QuizAttempt, error) {
	data, err := s.client.Get(ctx, s.key(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrAttemptNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get attempt: %w", err)
	}
	var attempt domain.QuizAttempt
	if err := json.Unmarshal(data, &attempt); err != nil {
		return nil, fmt.Errorf("unmarshal attempt: %w", err)
	}
	return &attempt, nil
}

func (s *AttemptStore) Save(ctx context.Context, attempt *domain.QuizAttempt) error {
	data, err := json.Marshal(attempt)
	if err != nil {
		return fmt.Errorf("marshal attempt: %w", err)
	}
	if err := s.client.Set(ctx, s.key(attempt.SessionID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("save attempt: %w", err)
	}
	return nil
}

func (s *AttemptStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, s.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("delete attempt: %w", err)
	}
	return nil
}

func (s *AttemptStore) key(sessionID string) string {
	return "quiz:attempt:" + sessionID
}

package memory

import (
	"context"
	"sync"

	"cyber-eval-service/internal/domain"
)

// AttemptStore is an in-memory implementation of app.AttemptRepository.
// Attempts are copied on the way in and out so callers never share slices.
type AttemptStore struct {
	mu       sync.RWMutex
	attempts map[string]domain.QuizAttempt
}

func NewAttemptStore() *AttemptStore {
	return &AttemptStore{
		attempts: make(map[string]domain.QuizAttempt),
	}
}

func (s *AttemptStore) Get(_ context.Context, sessionID string) (*domain.QuizAttempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	attempt, ok := s.attempts[sessionID]
	if !ok {
		return nil, domain.ErrAttemptNotFound
	}
	return cloneAttempt(attempt), nil
}

func (s *AttemptStore) Save(_ context.Context, attempt *domain.QuizAttempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts[attempt.SessionID] = *cloneAttempt(*attempt)
	return nil
}

func (s *AttemptStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.attempts, sessionID)
	return nil
}

func cloneAttempt(a domain.QuizAttempt) *domain.QuizAttempt {
	a.Answers = append([]int(nil), a.Answers...)
	if a.FinishedAt != nil {
		finishedAt := *a.FinishedAt
		a.FinishedAt = &finishedAt
	}
	return &a
}

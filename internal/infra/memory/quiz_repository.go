package memory

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"cyber-eval-service/internal/domain"
	"golang.org/x/sync/singleflight"
)

// QuizLoader fetches quiz content from a backing store such as Postgres.
type QuizLoader interface {
	LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// QuizRepository holds validated quizzes in process for a jittered TTL.
// Callers get their own copy, so handlers cannot alter the cached answer key.
type QuizRepository struct {
	loader QuizLoader
	ttl    time.Duration
	clock  func() time.Time
	jitter func(n int64) int64
	loads  singleflight.Group

	mu      sync.RWMutex
	entries map[string]quizEntry
}

type quizEntry struct {
	quiz    domain.Quiz
	staleAt time.Time
}

func NewQuizRepository(loader QuizLoader, ttl time.Duration) *QuizRepository {
	var rndMu sync.Mutex
	rnd := rand.New(rand.NewSource(time.Now().UnixNano()))
	return &QuizRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		jitter: func(n int64) int64 {
			rndMu.Lock()
			defer rndMu.Unlock()
			return rnd.Int63n(n + 1)
		},
		entries: make(map[string]quizEntry),
	}
}

func (r *QuizRepository) GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	if quiz, ok := r.fresh(quizID); ok {
		return CloneQuiz(quiz), nil
	}
	loaded, err, _ := r.loads.Do(quizID, func() (interface{}, error) {
		return r.load(ctx, quizID)
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	return CloneQuiz(loaded.(domain.Quiz)), nil
}

func (r *QuizRepository) load(ctx context.Context, quizID string) (domain.Quiz, error) {
	if quiz, ok := r.fresh(quizID); ok {
		return quiz, nil
	}
	quiz, err := r.loader.LoadQuiz(ctx, quizID)
	if err != nil {
		return domain.Quiz{}, err
	}
	if err := quiz.Validate(); err != nil {
		return domain.Quiz{}, fmt.Errorf("load quiz %s: %w", quizID, err)
	}
	if r.ttl > 0 {
		r.mu.Lock()
		r.entries[quizID] = quizEntry{quiz: quiz, staleAt: r.clock().Add(r.ttl + time.Duration(r.jitter(int64(r.ttl)/10)))}
		r.mu.Unlock()
	}
	return quiz, nil
}

func (r *QuizRepository) fresh(quizID string) (domain.Quiz, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.entries[quizID]
	if !ok || !r.clock().Before(entry.staleAt) {
		return domain.Quiz{}, false
	}
	return entry.quiz, true
}

// CloneQuiz deep-copies the question list and each option list.
func CloneQuiz(quiz domain.Quiz) domain.Quiz {
	questions := make([]domain.Question, len(quiz.Questions))
	for i, question := range quiz.Questions {
		question.Options = append([]string(nil), question.Options...)
		questions[i] = question
	}
	quiz.Questions = questions
	return quiz
}

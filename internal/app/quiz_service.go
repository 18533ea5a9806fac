package app

import (
	"context"
	"time"

	"cyber-eval-service/internal/domain"
	"github.com/google/uuid"
)

// AttemptRepository abstracts how quiz attempts are stored (in-memory, Redis, etc).
// Attempts are keyed by the sign-in session id.
type AttemptRepository interface {
	Get(ctx context.Context, sessionID string) (*domain.QuizAttempt, error)
	Save(ctx context.Context, attempt *domain.QuizAttempt) error
	Delete(ctx context.Context, sessionID string) error
}

// QuizRepository loads quiz content (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// QuizService contains the quiz use cases for one signed-in principal at a time.
type QuizService struct {
	attempts AttemptRepository
	quizzes  QuizRepository
	quizID   string
	now      func() time.Time
}

func NewQuizService(attempts AttemptRepository, quizzes QuizRepository, quizID string) *QuizService {
	return &QuizService{attempts: attempts, quizzes: quizzes, quizID: quizID, now: time.Now}
}

// WithClock is test-only for deterministic timestamps.
func (s *QuizService) WithClock(now func() time.Time) *QuizService {
	s.now = now
	return s
}

// Quiz returns the configured quiz.
func (s *QuizService) Quiz(ctx context.Context) (domain.Quiz, error) {
	return s.quizzes.GetQuiz(ctx, s.quizID)
}

// Start begins a fresh attempt for the session, discarding any previous one.
func (s *QuizService) Start(ctx context.Context, principal domain.Principal) (*domain.QuizAttempt, error) {
	quiz, err := s.quizzes.GetQuiz(ctx, s.quizID)
	if err != nil {
		return nil, err
	}
	attempt := NewAttempt(uuid.NewString(), principal.SessionID, quiz, s.now())
	if err := s.attempts.Save(ctx, attempt); err != nil {
		return nil, err
	}
	return attempt, nil
}

// Current returns the session's attempt together with its quiz.
func (s *QuizService) Current(ctx context.Context, principal domain.Principal) (domain.Quiz, *domain.QuizAttempt, error) {
	attempt, err := s.attempts.Get(ctx, principal.SessionID)
	if err != nil {
		return domain.Quiz{}, nil, err
	}
	quiz, err := s.quizzes.GetQuiz(ctx, attempt.QuizID)
	if err != nil {
		return domain.Quiz{}, nil, err
	}
	return quiz, attempt, nil
}

// Answer records the chosen option for the current question.
func (s *QuizService) Answer(ctx context.Context, principal domain.Principal, questionIndex, optionIndex int) (domain.AnswerFeedback, error) {
	quiz, attempt, err := s.Current(ctx, principal)
	if err != nil {
		return domain.AnswerFeedback{}, err
	}
	feedback, err := SelectAnswer(quiz, attempt, questionIndex, optionIndex)
	if err != nil {
		return domain.AnswerFeedback{}, err
	}
	if err := s.attempts.Save(ctx, attempt); err != nil {
		return domain.AnswerFeedback{}, err
	}
	return feedback, nil
}

// Advance moves to the next question or finalizes the attempt.
func (s *QuizService) Advance(ctx context.Context, principal domain.Principal) (*domain.QuizAttempt, error) {
	quiz, attempt, err := s.Current(ctx, principal)
	if err != nil {
		return nil, err
	}
	if err := Advance(quiz, attempt, s.now()); err != nil {
		return nil, err
	}
	if err := s.attempts.Save(ctx, attempt); err != nil {
		return nil, err
	}
	return attempt, nil
}

// Result evaluates a finished attempt.
func (s *QuizService) Result(ctx context.Context, principal domain.Principal) (domain.QuizResult, error) {
	quiz, attempt, err := s.Current(ctx, principal)
	if err != nil {
		return domain.QuizResult{}, err
	}
	if !attempt.Finished {
		return domain.QuizResult{}, domain.ErrAttemptNotFinished
	}
	return ResultOf(Finalize(quiz, attempt), len(quiz.Questions)), nil
}

// Abandon drops the session's attempt, e.g. on sign-out.
func (s *QuizService) Abandon(ctx context.Context, principal domain.Principal) error {
	return s.attempts.Delete(ctx, principal.SessionID)
}

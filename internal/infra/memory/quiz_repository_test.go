package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"cyber-eval-service/internal/domain"
)

func TestQuizRepositoryCaches(t *testing.T) {
	loader := &countingLoader{
		QuizLoader: NewStaticQuizLoader(DefaultQuizzes()),
	}
	repo := NewQuizRepository(loader, time.Minute)

	quiz, err := repo.GetQuiz(context.Background(), CyberPractitionerQuizID)
	if err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if len(quiz.Questions) != 5 {
		t.Fatalf("expected 5 questions, got %d", len(quiz.Questions))
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader once, got %d", loader.calls)
	}

	if _, err := repo.GetQuiz(context.Background(), CyberPractitionerQuizID); err != nil {
		t.Fatalf("get quiz 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.calls)
	}
}

func TestQuizRepositoryReloadsAfterExpiry(t *testing.T) {
	loader := &countingLoader{QuizLoader: NewStaticQuizLoader(DefaultQuizzes())}
	repo := NewQuizRepository(loader, time.Minute)
	now := time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)
	repo.clock = func() time.Time { return now }

	_, _ = repo.GetQuiz(context.Background(), CyberPractitionerQuizID)
	now = now.Add(2 * time.Minute)
	_, _ = repo.GetQuiz(context.Background(), CyberPractitionerQuizID)
	if loader.calls != 2 {
		t.Fatalf("expected reload after expiry, loader calls %d", loader.calls)
	}
}

func TestQuizRepositoryUnknownQuiz(t *testing.T) {
	repo := NewQuizRepository(NewStaticQuizLoader(DefaultQuizzes()), time.Minute)
	if _, err := repo.GetQuiz(context.Background(), "nope"); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected quiz not found, got %v", err)
	}
}

func TestQuizRepositoryReturnsCopies(t *testing.T) {
	repo := NewQuizRepository(NewStaticQuizLoader(DefaultQuizzes()), time.Minute)
	ctx := context.Background()

	first, err := repo.GetQuiz(ctx, CyberPractitionerQuizID)
	if err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	first.Questions[0].CorrectAnswer = 3
	first.Questions[0].Options[1] = "changed"

	second, err := repo.GetQuiz(ctx, CyberPractitionerQuizID)
	if err != nil {
		t.Fatalf("get quiz 2: %v", err)
	}
	if second.Questions[0].CorrectAnswer != 1 || second.Questions[0].Options[1] == "changed" {
		t.Fatalf("cached quiz was modified through a returned copy: %+v", second.Questions[0])
	}
}

func TestQuizRepositoryRejectsUnplayableQuiz(t *testing.T) {
	broken := CyberPractitionerQuiz()
	broken.Questions[2].CorrectAnswer = 7
	loader := &countingLoader{QuizLoader: NewStaticQuizLoader(map[string]domain.Quiz{broken.ID: broken})}
	repo := NewQuizRepository(loader, time.Minute)

	for i := 0; i < 2; i++ {
		if _, err := repo.GetQuiz(context.Background(), broken.ID); !errors.Is(err, domain.ErrInvalidQuiz) {
			t.Fatalf("expected invalid quiz, got %v", err)
		}
	}
	if loader.calls != 2 {
		t.Fatalf("invalid quiz must not be cached, loader calls %d", loader.calls)
	}
}

func TestQuizRepositoryWithoutTTLAlwaysLoads(t *testing.T) {
	loader := &countingLoader{QuizLoader: NewStaticQuizLoader(DefaultQuizzes())}
	repo := NewQuizRepository(loader, 0)

	_, _ = repo.GetQuiz(context.Background(), CyberPractitionerQuizID)
	_, _ = repo.GetQuiz(context.Background(), CyberPractitionerQuizID)
	if loader.calls != 2 {
		t.Fatalf("expected a load per call, got %d", loader.calls)
	}
}

type countingLoader struct {
	QuizLoader
	calls int
}

func (l *countingLoader) LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	l.calls++
	return l.QuizLoader.LoadQuiz(ctx, quizID)
}

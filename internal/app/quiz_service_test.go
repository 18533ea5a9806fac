package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"cyber-eval-service/internal/app"
	"cyber-eval-service/internal/domain"
	"cyber-eval-service/internal/infra/memory"
)

var testPrincipal = domain.Principal{Subject: "sub-1", SessionID: "sid-1", Name: "Ada Lovelace", Email: "ada@example.com"}

func TestPassingScoreThresholds(t *testing.T) {
	cases := []struct {
		total, passing int
	}{
		{0, 0}, {1, 1}, {2, 2}, {3, 2}, {4, 3}, {5, 3}, {10, 6}, {11, 7},
	}
	for _, tc := range cases {
		if got := app.PassingScore(tc.total); got != tc.passing {
			t.Fatalf("PassingScore(%d) = %d, want %d", tc.total, got, tc.passing)
		}
	}
	if !app.Passed(3, 5) || app.Passed(2, 5) {
		t.Fatalf("expected 3/5 to pass and 2/5 to fail")
	}
	if app.Passed(0, 0) {
		t.Fatalf("an empty quiz must never pass")
	}
}

func TestScoringScenarios(t *testing.T) {
	quiz := memory.CyberPractitionerQuiz()
	cases := []struct {
		name    string
		answers []int
		score   int
		passed  bool
	}{
		{"all correct", []int{1, 1, 2, 1, 2}, 5, true},
		{"all first option", []int{0, 0, 0, 0, 0}, 0, false},
		{"exactly passing", []int{1, 1, 2, 0, 0}, 3, true},
		{"one short", []int{1, 1, 0, 0, 0}, 2, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			attempt := playThrough(t, quiz, tc.answers)
			if !attempt.Finished || attempt.Score != tc.score {
				t.Fatalf("expected finished with score %d, got %+v", tc.score, attempt)
			}
			result := app.ResultOf(attempt.Score, len(quiz.Questions))
			if result.Passed != tc.passed || result.PassingScore != 3 {
				t.Fatalf("unexpected result %+v", result)
			}
		})
	}
}

func TestFinalizeIsIdempotent(t *testing.T) {
	quiz := memory.CyberPractitionerQuiz()
	attempt := app.NewAttempt("a1", "sid-1", quiz, time.Now())
	attempt.Answers[0] = 1
	attempt.Answers[2] = 2

	first := app.Finalize(quiz, attempt)
	second := app.Finalize(quiz, attempt)
	if first != 2 || second != 2 {
		t.Fatalf("expected 2 twice, got %d and %d", first, second)
	}
}

func TestSelectAnswerGuards(t *testing.T) {
	quiz := memory.CyberPractitionerQuiz()
	attempt := app.NewAttempt("a1", "sid-1", quiz, time.Now())

	if _, err := app.SelectAnswer(quiz, attempt, 1, 0); !errors.Is(err, domain.ErrQuestionOutOfSequence) {
		t.Fatalf("expected out of sequence, got %v", err)
	}
	if _, err := app.SelectAnswer(quiz, attempt, 0, 4); !errors.Is(err, domain.ErrOptionOutOfRange) {
		t.Fatalf("expected option out of range, got %v", err)
	}
	if err := app.Advance(quiz, attempt, time.Now()); !errors.Is(err, domain.ErrNotAnswered) {
		t.Fatalf("expected not answered, got %v", err)
	}

	feedback, err := app.SelectAnswer(quiz, attempt, 0, 0)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if feedback.Correct || feedback.CorrectAnswer != 1 || feedback.Explanation == "" {
		t.Fatalf("unexpected feedback %+v", feedback)
	}
	if _, err := app.SelectAnswer(quiz, attempt, 0, 1); !errors.Is(err, domain.ErrAlreadyAnswered) {
		t.Fatalf("expected already answered, got %v", err)
	}

	finished := playThrough(t, quiz, []int{1, 1, 2, 1, 2})
	if _, err := app.SelectAnswer(quiz, finished, 4, 0); !errors.Is(err, domain.ErrAttemptFinished) {
		t.Fatalf("expected attempt finished, got %v", err)
	}
	if err := app.Advance(quiz, finished, time.Now()); !errors.Is(err, domain.ErrAttemptFinished) {
		t.Fatalf("expected attempt finished, got %v", err)
	}
}

func TestQuizServiceFlow(t *testing.T) {
	ctx := context.Background()
	service := newQuizService()

	if _, err := service.Result(ctx, testPrincipal); !errors.Is(err, domain.ErrAttemptNotFound) {
		t.Fatalf("expected attempt not found, got %v", err)
	}

	attempt, err := service.Start(ctx, testPrincipal)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if attempt.SessionID != testPrincipal.SessionID || attempt.ID == "" {
		t.Fatalf("unexpected attempt %+v", attempt)
	}

	for i, option := range []int{1, 1, 2, 1, 0} {
		if _, err := service.Answer(ctx, testPrincipal, i, option); err != nil {
			t.Fatalf("answer %d: %v", i, err)
		}
		if i < 4 {
			if _, err := service.Result(ctx, testPrincipal); !errors.Is(err, domain.ErrAttemptNotFinished) {
				t.Fatalf("expected not finished, got %v", err)
			}
		}
		if _, err := service.Advance(ctx, testPrincipal); err != nil {
			t.Fatalf("advance %d: %v", i, err)
		}
	}

	result, err := service.Result(ctx, testPrincipal)
	if err != nil {
		t.Fatalf("result: %v", err)
	}
	if result.Score != 4 || result.Total != 5 || !result.Passed || result.Percentage != 80 {
		t.Fatalf("unexpected result %+v", result)
	}

	if err := service.Abandon(ctx, testPrincipal); err != nil {
		t.Fatalf("abandon: %v", err)
	}
	if _, _, err := service.Current(ctx, testPrincipal); !errors.Is(err, domain.ErrAttemptNotFound) {
		t.Fatalf("expected attempt gone, got %v", err)
	}
}

func TestQuizServiceRestartDiscardsProgress(t *testing.T) {
	ctx := context.Background()
	service := newQuizService()

	_, _ = service.Start(ctx, testPrincipal)
	if _, err := service.Answer(ctx, testPrincipal, 0, 1); err != nil {
		t.Fatalf("answer: %v", err)
	}
	attempt, err := service.Start(ctx, testPrincipal)
	if err != nil {
		t.Fatalf("restart: %v", err)
	}
	if attempt.Current != 0 || attempt.Answers[0] != domain.Unanswered {
		t.Fatalf("expected a fresh attempt, got %+v", attempt)
	}
}

func newQuizService() *app.QuizService {
	quizzes := memory.NewQuizRepository(memory.NewStaticQuizLoader(memory.DefaultQuizzes()), time.Minute)
	return app.NewQuizService(memory.NewAttemptStore(), quizzes, memory.CyberPractitionerQuizID)
}

func playThrough(t *testing.T, quiz domain.Quiz, answers []int) *domain.QuizAttempt {
	t.Helper()
	attempt := app.NewAttempt("a1", "sid-1", quiz, time.Now())
	for i, option := range answers {
		if _, err := app.SelectAnswer(quiz, attempt, i, option); err != nil {
			t.Fatalf("select %d: %v", i, err)
		}
		if err := app.Advance(quiz, attempt, time.Now()); err != nil {
			t.Fatalf("advance %d: %v", i, err)
		}
	}
	return attempt
}

package http

import (
	"strings"
	"testing"
	"time"

	"cyber-eval-service/internal/app"
	"cyber-eval-service/internal/domain"
	"cyber-eval-service/internal/infra/memory"
	"github.com/goccy/go-json"
)

func TestQuizViewHidesAnswerUntilAnswered(t *testing.T) {
	quiz := memory.CyberPractitionerQuiz()
	attempt := app.NewAttempt("a1", "sid-1", quiz, time.Now())

	view := NewQuizView(quiz, attempt)
	if view.Question == nil || view.Question.Question != quiz.Questions[0].Prompt || len(view.Question.Options) != 4 {
		t.Fatalf("unexpected question view %+v", view.Question)
	}
	if view.Feedback != nil {
		t.Fatalf("feedback must be hidden before answering")
	}

	if _, err := app.SelectAnswer(quiz, attempt, 0, 3); err != nil {
		t.Fatalf("select: %v", err)
	}
	view = NewQuizView(quiz, attempt)
	if view.Feedback == nil || view.Feedback.Correct || view.Feedback.CorrectAnswer != 1 {
		t.Fatalf("unexpected feedback %+v", view.Feedback)
	}
}

func TestResultView(t *testing.T) {
	passed := NewResultView(app.ResultOf(3, 5))
	if !passed.CanIssue || passed.Percentage != 60 || passed.StudyTips != nil {
		t.Fatalf("unexpected view %+v", passed)
	}
	failed := NewResultView(app.ResultOf(2, 5))
	if failed.CanIssue || failed.PassingScore != 3 || len(failed.StudyTips) == 0 {
		t.Fatalf("unexpected view %+v", failed)
	}
}

func TestQRViewKeepsDataURIs(t *testing.T) {
	view := NewQRView(domain.IssuanceRecord{State: "s1", QRCode: "data:image/svg+xml;base64,AAAA", Status: domain.StatusPending})
	if view.QRImage != "data:image/svg+xml;base64,AAAA" || len(view.Instructions) == 0 {
		t.Fatalf("unexpected view %+v", view)
	}
}

func TestQRViewPassesExpiryThrough(t *testing.T) {
	view := NewQRView(domain.IssuanceRecord{State: "s1", Expiry: json.RawMessage(`"1790000000"`), Status: domain.StatusPending})
	body, err := json.Marshal(view)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(body), `"expiry":"1790000000"`) {
		t.Fatalf("expiry not passed through: %s", body)
	}

	body, err = json.Marshal(NewQRView(domain.IssuanceRecord{State: "s2", Status: domain.StatusPending}))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(body), "expiry") {
		t.Fatalf("empty expiry should be omitted: %s", body)
	}
}

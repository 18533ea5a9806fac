package http

import (
	"fmt"

	"cyber-eval-service/internal/domain"
	"cyber-eval-service/internal/infra/qr"
	"github.com/goccy/go-json"
)

// QuestionView is a question without its answer key.
type QuestionView struct {
	Index    int      `json:"index"`
	ID       int      `json:"id"`
	Question string   `json:"question"`
	Options  []string `json:"options"`
}

// QuizView is the player's position in the quiz. Feedback for the current question
// is only present once it has been answered.
type QuizView struct {
	QuizID         string                 `json:"quizId"`
	Title          string                 `json:"title"`
	TotalQuestions int                    `json:"totalQuestions"`
	Current        int                    `json:"current"`
	Finished       bool                   `json:"finished"`
	Question       *QuestionView          `json:"question,omitempty"`
	Feedback       *domain.AnswerFeedback `json:"feedback,omitempty"`
}

func NewQuizView(quiz domain.Quiz, attempt *domain.QuizAttempt) QuizView {
	view := QuizView{
		QuizID:         quiz.ID,
		Title:          quiz.Title,
		TotalQuestions: len(quiz.Questions),
		Current:        attempt.Current,
		Finished:       attempt.Finished,
	}
	if attempt.Current < 0 || attempt.Current >= len(quiz.Questions) {
		return view
	}
	question := quiz.Questions[attempt.Current]
	view.Question = &QuestionView{
		Index:    attempt.Current,
		ID:       question.ID,
		Question: question.Prompt,
		Options:  question.Options,
	}
	if selected := attempt.Answers[attempt.Current]; selected != domain.Unanswered {
		view.Feedback = &domain.AnswerFeedback{
			QuestionIndex: attempt.Current,
			Selected:      selected,
			Correct:       selected == question.CorrectAnswer,
			CorrectAnswer: question.CorrectAnswer,
			Explanation:   question.Explanation,
		}
	}
	return view
}

// ResultView is the end-of-quiz screen. Study tips are only given on a failed attempt.
type ResultView struct {
	domain.QuizResult
	Message   string   `json:"message"`
	CanIssue  bool     `json:"canIssue"`
	StudyTips []string `json:"studyTips,omitempty"`
}

var studyTips = []string{
	"Review password security best practices",
	"Learn about two-factor authentication benefits",
	"Understand common phishing attack patterns",
	"Practice identifying suspicious emails and links",
}

func NewResultView(result domain.QuizResult) ResultView {
	view := ResultView{QuizResult: result, CanIssue: result.Passed}
	if result.Passed {
		view.Message = "Congratulations! You passed the cybersecurity assessment"
		return view
	}
	view.Message = fmt.Sprintf("Keep studying! You need at least %d of %d correct answers to pass", result.PassingScore, result.Total)
	view.StudyTips = studyTips
	return view
}

// QRView tells the user how to claim the offered credential.
type QRView struct {
	State        string                `json:"state"`
	RequestID    string                `json:"requestId,omitempty"`
	QRImage      string                `json:"qrImage,omitempty"`
	URL          string                `json:"url,omitempty"`
	Expiry       json.RawMessage       `json:"expiry,omitempty"`
	Status       domain.IssuanceStatus `json:"status"`
	Instructions []string              `json:"instructions"`
}

var qrInstructions = []string{
	"Open Microsoft Authenticator or your preferred digital wallet",
	"Scan the QR code above",
	"Follow the prompts to add the credential to your wallet",
	"Your cyber practitioner evaluation credential will be stored securely",
}

func NewQRView(record domain.IssuanceRecord) QRView {
	return QRView{
		State:        record.State,
		RequestID:    record.RequestID,
		QRImage:      qr.ImageSource(record.QRCode),
		URL:          record.URL,
		Expiry:       record.Expiry,
		Status:       record.Status,
		Instructions: qrInstructions,
	}
}

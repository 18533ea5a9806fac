package domain

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

// Unanswered marks an answer slot that has not been filled yet.
const Unanswered = -1

// Principal is the signed-in user behind a request.
type Principal struct {
	Subject   string `json:"sub"`
	SessionID string `json:"sid"`
	Name      string `json:"name"`
	Email     string `json:"email"`
}

// Question models an MCQ question with exactly one correct option.
type Question struct {
	ID            int      `json:"id"`
	Prompt        string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correctAnswer"`
	Explanation   string   `json:"explanation"`
}

// Quiz is an ordered collection of questions.
type Quiz struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Questions []Question `json:"questions"`
}

// Validate checks that every question has options and an answer key within them.
func (q Quiz) Validate() error {
	if len(q.Questions) == 0 {
		return fmt.Errorf("%w: %q has no questions", ErrInvalidQuiz, q.ID)
	}
	for i, question := range q.Questions {
		if len(question.Options) < 2 {
			return fmt.Errorf("%w: question %d needs at least two options", ErrInvalidQuiz, i)
		}
		if question.CorrectAnswer < 0 || question.CorrectAnswer >= len(question.Options) {
			return fmt.Errorf("%w: question %d answer %d out of range", ErrInvalidQuiz, i, question.CorrectAnswer)
		}
	}
	return nil
}

// QuizAttempt is the per-session progress through a quiz.
type QuizAttempt struct {
	ID         string     `json:"id"`
	SessionID  string     `json:"sessionId"`
	QuizID     string     `json:"quizId"`
	Current    int        `json:"current"`
	Answers    []int      `json:"answers"`
	Finished   bool       `json:"finished"`
	Score      int        `json:"score"`
	StartedAt  time.Time  `json:"startedAt"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
}

// AnswerFeedback is what the player sees right after choosing an option.
type AnswerFeedback struct {
	QuestionIndex int    `json:"questionIndex"`
	Selected      int    `json:"selected"`
	Correct       bool   `json:"correct"`
	CorrectAnswer int    `json:"correctAnswer"`
	Explanation   string `json:"explanation"`
}

// QuizResult summarizes a finished attempt against the pass policy.
type QuizResult struct {
	Score        int  `json:"score"`
	Total        int  `json:"totalQuestions"`
	PassingScore int  `json:"passingScore"`
	Passed       bool `json:"passed"`
	Percentage   int  `json:"percentage"`
}

// CredentialClaims are the attested facts sent verbatim to the issuer.
type CredentialClaims struct {
	GivenName      string `json:"given_name"`
	FamilyName     string `json:"family_name"`
	Email          string `json:"email"`
	QuizScore      string `json:"quiz_score"`
	CompletionDate string `json:"completion_date"`
}

type Registration struct {
	ClientName string `json:"clientName"`
}

// CallbackRegistration tells the issuance service where to post status notifications.
type CallbackRegistration struct {
	URL     string            `json:"url"`
	State   string            `json:"state"`
	Headers map[string]string `json:"headers,omitempty"`
}

// IssuanceRequest is the body submitted to the issuance endpoint.
type IssuanceRequest struct {
	IncludeQRCode bool                  `json:"includeQRCode"`
	Callback      *CallbackRegistration `json:"callback,omitempty"`
	Authority     string                `json:"authority"`
	Registration  Registration          `json:"registration"`
	Type          string                `json:"type"`
	Manifest      string                `json:"manifest"`
	Claims        CredentialClaims      `json:"claims"`
}

// IssuanceResult is either a success carrying the QR payload or a failure carrying diagnostics.
type IssuanceResult struct {
	Success   bool             `json:"success"`
	RequestID string           `json:"requestId,omitempty"`
	URL       string           `json:"url,omitempty"`
	QRCode    string           `json:"qrCode,omitempty"`
	Expiry    json.RawMessage  `json:"expiry,omitempty"`
	State     string           `json:"state,omitempty"`
	Failure   *IssuanceFailure `json:"-"`
}

// IssuanceFailure holds the upstream status and the body exactly as received.
type IssuanceFailure struct {
	Kind      ErrorKind
	Status    int
	Details   json.RawMessage
	RequestID string
}

// CallbackCode is the status vocabulary used by the issuance service.
type CallbackCode string

const (
	CallbackRequestRetrieved   CallbackCode = "request_retrieved"
	CallbackIssuanceSuccessful CallbackCode = "issuance_successful"
	CallbackIssuanceError      CallbackCode = "issuance_error"
)

// Known reports whether the code belongs to the fixed vocabulary.
func (c CallbackCode) Known() bool {
	switch c {
	case CallbackRequestRetrieved, CallbackIssuanceSuccessful, CallbackIssuanceError:
		return true
	}
	return false
}

// CallbackEvent is a status notification posted by the issuance service.
type CallbackEvent struct {
	Code      CallbackCode    `json:"code"`
	RequestID string          `json:"requestId,omitempty"`
	State     string          `json:"state,omitempty"`
	Error     json.RawMessage `json:"error,omitempty"`
	Raw       json.RawMessage `json:"-"`
}

// IssuanceStatus is the lifecycle of one issuance request as seen through callbacks.
type IssuanceStatus string

const (
	StatusPending            IssuanceStatus = "pending"
	StatusRequestRetrieved   IssuanceStatus = "request_retrieved"
	StatusIssuanceSuccessful IssuanceStatus = "issuance_successful"
	StatusIssuanceError      IssuanceStatus = "issuance_error"
)

// IssuanceRecord correlates an issuance state with the session that started it.
type IssuanceRecord struct {
	State     string          `json:"state"`
	RequestID string          `json:"requestId"`
	SessionID string          `json:"sessionId"`
	Subject   string          `json:"subject"`
	Email     string          `json:"email"`
	Score     int             `json:"score"`
	Total     int             `json:"totalQuestions"`
	URL       string          `json:"url,omitempty"`
	QRCode    string          `json:"qrCode,omitempty"`
	Expiry    json.RawMessage `json:"expiry,omitempty"`
	Status    IssuanceStatus  `json:"status"`
	LastError json.RawMessage `json:"lastError,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// StatusUpdate is pushed to browsers waiting on an issuance.
type StatusUpdate struct {
	State     string          `json:"state"`
	RequestID string          `json:"requestId,omitempty"`
	Status    IssuanceStatus  `json:"status"`
	Error     json.RawMessage `json:"error,omitempty"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

package domain

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/goccy/go-json"
)

var (
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrAttemptNotFound is returned when the session has not started the quiz.
	ErrAttemptNotFound = errors.New("quiz attempt not found")
	// ErrAttemptFinished is returned when answering after the quiz was finalized.
	ErrAttemptFinished = errors.New("quiz attempt already finished")
	// ErrAttemptNotFinished is returned when asking for a result too early.
	ErrAttemptNotFinished = errors.New("quiz attempt not finished")
	// ErrQuestionOutOfSequence indicates an answer for a question other than the current one.
	ErrQuestionOutOfSequence = errors.New("question is not the current question")
	// ErrOptionOutOfRange indicates a submitted option index is invalid.
	ErrOptionOutOfRange = errors.New("option index out of range")
	// ErrAlreadyAnswered indicates the current question already has an answer.
	ErrAlreadyAnswered = errors.New("question already answered")
	// ErrNotAnswered indicates an attempt to move on before answering.
	ErrNotAnswered = errors.New("current question not answered")
	// ErrInvalidQuiz indicates quiz content that cannot be played.
	ErrInvalidQuiz = errors.New("invalid quiz")
	// ErrRecordNotFound indicates no issuance record matches a state or request id.
	ErrRecordNotFound = errors.New("issuance record not found")
)

// ErrorKind classifies failures at the request boundary.
type ErrorKind string

const (
	KindUnauthorized              ErrorKind = "Unauthorized"
	KindValidationFailed          ErrorKind = "ValidationFailed"
	KindUpstreamTokenFailure      ErrorKind = "UpstreamTokenFailure"
	KindUpstreamIssuanceFailure   ErrorKind = "UpstreamIssuanceFailure"
	KindMalformedUpstreamResponse ErrorKind = "MalformedUpstreamResponse"
	KindInternal                  ErrorKind = "InternalError"
)

// Error is a classified failure carrying the diagnostics returned to the caller.
// Status is the upstream status for upstream kinds, zero otherwise.
type Error struct {
	Kind      ErrorKind
	Message   string
	Status    int
	Details   json.RawMessage
	RequestID string
	Err       error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// HTTPStatus maps the kind to the status returned by our own endpoints.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindValidationFailed:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func NewError(kind ErrorKind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// KindOf returns the kind of a classified error or KindInternal.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}

// RawDetails keeps an upstream body verbatim when it is JSON and quotes it as a
// JSON string otherwise, so it can always be embedded in a JSON response.
func RawDetails(body []byte) json.RawMessage {
	if len(body) == 0 {
		return nil
	}
	if json.Valid(body) {
		return append(json.RawMessage(nil), body...)
	}
	quoted, err := json.Marshal(string(body))
	if err != nil {
		return nil
	}
	return quoted
}

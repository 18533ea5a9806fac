package app

import (
	"time"

	"cyber-eval-service/internal/domain"
)

// A passing attempt needs at least passNumerator/passDenominator of the questions right.
const (
	passNumerator   = 3
	passDenominator = 5
)

// PassingScore returns ceil(0.6 * total). Integer arithmetic keeps it exact for any total.
func PassingScore(total int) int {
	if total <= 0 {
		return 0
	}
	return (total*passNumerator + passDenominator - 1) / passDenominator
}

// Passed reports whether score meets the passing score derived from total.
func Passed(score, total int) bool {
	return total > 0 && score >= PassingScore(total)
}

// NewAttempt creates an attempt with every answer slot unset.
func NewAttempt(id, sessionID string, quiz domain.Quiz, now time.Time) *domain.QuizAttempt {
	answers := make([]int, len(quiz.Questions))
	for i := range answers {
		answers[i] = domain.Unanswered
	}
	return &domain.QuizAttempt{
		ID:        id,
		SessionID: sessionID,
		QuizID:    quiz.ID,
		Answers:   answers,
		StartedAt: now,
	}
}

// SelectAnswer records the option chosen for the current question.
func SelectAnswer(quiz domain.Quiz, attempt *domain.QuizAttempt, questionIndex, optionIndex int) (domain.AnswerFeedback, error) {
	if attempt.Finished {
		return domain.AnswerFeedback{}, domain.ErrAttemptFinished
	}
	if questionIndex != attempt.Current || questionIndex < 0 || questionIndex >= len(quiz.Questions) || questionIndex >= len(attempt.Answers) {
		return domain.AnswerFeedback{}, domain.ErrQuestionOutOfSequence
	}
	question := quiz.Questions[questionIndex]
	if optionIndex < 0 || optionIndex >= len(question.Options) {
		return domain.AnswerFeedback{}, domain.ErrOptionOutOfRange
	}
	if attempt.Answers[questionIndex] != domain.Unanswered {
		return domain.AnswerFeedback{}, domain.ErrAlreadyAnswered
	}

	attempt.Answers[questionIndex] = optionIndex
	return domain.AnswerFeedback{
		QuestionIndex: questionIndex,
		Selected:      optionIndex,
		Correct:       optionIndex == question.CorrectAnswer,
		CorrectAnswer: question.CorrectAnswer,
		Explanation:   question.Explanation,
	}, nil
}

// Advance moves to the next question, finalizing the attempt after the last one.
func Advance(quiz domain.Quiz, attempt *domain.QuizAttempt, now time.Time) error {
	if attempt.Finished {
		return domain.ErrAttemptFinished
	}
	if attempt.Current < 0 || attempt.Current >= len(attempt.Answers) || attempt.Current >= len(quiz.Questions) {
		return domain.ErrQuestionOutOfSequence
	}
	if attempt.Answers[attempt.Current] == domain.Unanswered {
		return domain.ErrNotAnswered
	}
	if attempt.Current < len(quiz.Questions)-1 {
		attempt.Current++
		return nil
	}
	attempt.Score = Finalize(quiz, attempt)
	attempt.Finished = true
	attempt.FinishedAt = &now
	return nil
}

// Finalize counts answers matching the correct option. It does not mutate the attempt.
func Finalize(quiz domain.Quiz, attempt *domain.QuizAttempt) int {
	score := 0
	for i, question := range quiz.Questions {
		if i < len(attempt.Answers) && attempt.Answers[i] == question.CorrectAnswer {
			score++
		}
	}
	return score
}

// ResultOf evaluates a score against the pass policy.
func ResultOf(score, total int) domain.QuizResult {
	percentage := 0
	if total > 0 {
		percentage = (score*100 + total/2) / total
	}
	return domain.QuizResult{
		Score:        score,
		Total:        total,
		PassingScore: PassingScore(total),
		Passed:       Passed(score, total),
		Percentage:   percentage,
	}
}

package memory

import (
	"context"

	"cyber-eval-service/internal/domain"
)

// CyberPractitionerQuizID identifies the built-in evaluation.
const CyberPractitionerQuizID = "cyber-practitioner"

// DefaultQuizzes is the built-in catalog used when no database is configured.
func DefaultQuizzes() map[string]domain.Quiz {
	return map[string]domain.Quiz{
		CyberPractitionerQuizID: CyberPractitionerQuiz(),
	}
}

// CyberPractitionerQuiz covers MFA, passwords, phishing, ransomware and email hygiene.
func CyberPractitionerQuiz() domain.Quiz {
	return domain.Quiz{
		ID:    CyberPractitionerQuizID,
		Title: "Cyber Practitioner Evaluation",
		Questions: []domain.Question{
			{
				ID:     1,
				Prompt: "What is the primary purpose of two-factor authentication (2FA)?",
				Options: []string{
					"To make passwords longer",
					"To add an extra layer of security beyond just a password",
					"To encrypt data transmission",
					"To scan for malware",
				},
				CorrectAnswer: 1,
				Explanation:   "Two-factor authentication adds an additional security layer by requiring a second form of verification beyond just your password.",
			},
			{
				ID:     2,
				Prompt: "Which of the following is considered a strong password practice?",
				Options: []string{
					"Using the same password for all accounts",
					"Using a combination of uppercase, lowercase, numbers, and special characters",
					"Using personal information like birthdate",
					"Sharing passwords with trusted colleagues",
				},
				CorrectAnswer: 1,
				Explanation:   "Strong passwords should include a mix of character types and be unique for each account to maximize security.",
			},
			{
				ID:     3,
				Prompt: "What is phishing?",
				Options: []string{
					"A type of computer virus",
					"A method of encrypting data",
					"A social engineering attack that tricks users into revealing sensitive information",
					"A firewall protection mechanism",
				},
				CorrectAnswer: 2,
				Explanation:   "Phishing is a social engineering attack where attackers impersonate legitimate entities to steal sensitive information like passwords or credit card details.",
			},
			{
				ID:     4,
				Prompt: "Which of the following best describes ransomware?",
				Options: []string{
					"Software that protects against viruses",
					"Malicious software that encrypts files and demands payment for decryption",
					"A tool for backing up important data",
					"A type of firewall protection",
				},
				CorrectAnswer: 1,
				Explanation:   "Ransomware is malicious software that encrypts a victim's files and demands payment (usually in cryptocurrency) in exchange for the decryption key.",
			},
			{
				ID:     5,
				Prompt: "What should you do if you receive a suspicious email asking for personal information?",
				Options: []string{
					"Reply immediately with the requested information",
					"Forward it to all your contacts to warn them",
					"Delete the email and report it to your IT security team",
					"Click on any links to verify if it's legitimate",
				},
				CorrectAnswer: 2,
				Explanation:   "Never provide personal information via email. Delete suspicious emails and report them to your IT security team. Legitimate organizations will never ask for sensitive information via email.",
			},
		},
	}
}

// StaticQuizLoader serves quizzes from a fixed map.
type StaticQuizLoader struct {
	quizzes map[string]domain.Quiz
}

func NewStaticQuizLoader(quizzes map[string]domain.Quiz) *StaticQuizLoader {
	return &StaticQuizLoader{quizzes: quizzes}
}

func (l *StaticQuizLoader) LoadQuiz(_ context.Context, quizID string) (domain.Quiz, error) {
	quiz, ok := l.quizzes[quizID]
	if !ok {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	return CloneQuiz(quiz), nil
}

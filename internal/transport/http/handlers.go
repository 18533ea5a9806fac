package http

import (
	"errors"
	"io"
	"log"
	"net/http"

	"cyber-eval-service/internal/app"
	"cyber-eval-service/internal/domain"
)

type issueRequest struct {
	Score          int `json:"score"`
	TotalQuestions int `json:"totalQuestions"`
}

type answerRequest struct {
	QuestionIndex int `json:"questionIndex"`
	OptionIndex   int `json:"optionIndex"`
}

type ackResponse struct {
	Success bool `json:"success"`
}

type statusResponse struct {
	Status string `json:"status"`
}

// issue requests a credential. A finished attempt stored for the session wins over the body.
func (h *Handler) issue(w http.ResponseWriter, r *http.Request, principal domain.Principal) {
	var body issueRequest
	if err := decodeBody(w, r, &body); err != nil {
		writeError(w, err)
		return
	}
	result := app.ResultOf(body.Score, body.TotalQuestions)
	// only sessions without a server-side attempt fall back to the reported score
	if stored, err := h.quiz.Result(r.Context(), principal); err == nil {
		result = stored
	} else if !errors.Is(err, domain.ErrAttemptNotFound) {
		writeError(w, err)
		return
	}

	issued, err := h.issuance.Issue(r.Context(), principal, result)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, issued)
}

func (h *Handler) issueQR(w http.ResponseWriter, r *http.Request, principal domain.Principal) {
	record, err := h.ownedRecord(r, principal)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, NewQRView(record))
}

func (h *Handler) ownedRecord(r *http.Request, principal domain.Principal) (domain.IssuanceRecord, error) {
	state := r.URL.Query().Get("state")
	if state == "" {
		return domain.IssuanceRecord{}, domain.NewError(domain.KindValidationFailed, "state is required")
	}
	record, err := h.records.FindByState(r.Context(), state)
	if err != nil {
		return domain.IssuanceRecord{}, err
	}
	if record.SessionID != principal.SessionID {
		return domain.IssuanceRecord{}, domain.ErrRecordNotFound
	}
	return record, nil
}

func (h *Handler) callback(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, &domain.Error{Kind: domain.KindValidationFailed, Message: "Invalid callback payload", Err: err})
		return
	}
	if _, err := h.callbacks.HandleCallback(r.Context(), r.Header.Get(app.CallbackAPIKeyHeader), body); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ackResponse{Success: true})
}

func (h *Handler) callbackStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{Status: "Callback endpoint is active"})
}

func (h *Handler) startQuiz(w http.ResponseWriter, r *http.Request, principal domain.Principal) {
	attempt, err := h.quiz.Start(r.Context(), principal)
	if err != nil {
		writeError(w, err)
		return
	}
	quiz, err := h.quiz.Quiz(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, NewQuizView(quiz, attempt))
}

func (h *Handler) currentQuiz(w http.ResponseWriter, r *http.Request, principal domain.Principal) {
	quiz, attempt, err := h.quiz.Current(r.Context(), principal)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, NewQuizView(quiz, attempt))
}

func (h *Handler) answer(w http.ResponseWriter, r *http.Request, principal domain.Principal) {
	var body answerRequest
	if err := decodeBody(w, r, &body); err != nil {
		writeError(w, err)
		return
	}
	feedback, err := h.quiz.Answer(r.Context(), principal, body.QuestionIndex, body.OptionIndex)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, feedback)
}

func (h *Handler) next(w http.ResponseWriter, r *http.Request, principal domain.Principal) {
	if _, err := h.quiz.Advance(r.Context(), principal); err != nil {
		writeError(w, err)
		return
	}
	quiz, attempt, err := h.quiz.Current(r.Context(), principal)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, NewQuizView(quiz, attempt))
}

func (h *Handler) result(w http.ResponseWriter, r *http.Request, principal domain.Principal) {
	result, err := h.quiz.Result(r.Context(), principal)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, NewResultView(result))
}

func (h *Handler) beginSignIn(w http.ResponseWriter, r *http.Request) {
	if h.signIn == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "Sign-in is not configured"})
		return
	}
	http.Redirect(w, r, h.signIn.Begin(w), http.StatusFound)
}

func (h *Handler) completeSignIn(w http.ResponseWriter, r *http.Request) {
	if h.signIn == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "Sign-in is not configured"})
		return
	}
	principal, err := h.signIn.Complete(r.Context(), w, r)
	if err != nil {
		log.Printf("sign-in failed: %v", err)
		writeError(w, err)
		return
	}
	if err := h.sessions.SetCookie(w, principal); err != nil {
		writeError(w, err)
		return
	}
	log.Printf("signed in subject %s", principal.Subject)
	http.Redirect(w, r, "/", http.StatusFound)
}

func (h *Handler) signOut(w http.ResponseWriter, r *http.Request, principal domain.Principal) {
	if err := h.quiz.Abandon(r.Context(), principal); err != nil {
		log.Printf("drop attempt for session %s: %v", principal.SessionID, err)
	}
	h.sessions.ClearCookie(w)
	writeJSON(w, http.StatusOK, ackResponse{Success: true})
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request, principal domain.Principal) {
	writeJSON(w, http.StatusOK, principal)
}

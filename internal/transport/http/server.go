package http

import (
	"errors"
	"log"
	"net/http"

	"cyber-eval-service/internal/app"
	"cyber-eval-service/internal/auth"
	"cyber-eval-service/internal/domain"
	"github.com/goccy/go-json"
)

const maxBodyBytes = 1 << 20

// Handler serves the quiz, issuance, callback and sign-in endpoints.
type Handler struct {
	quiz      *app.QuizService
	issuance  *app.IssuanceService
	callbacks *app.CallbackService
	records   app.IssuanceRecordRepository
	sessions  *auth.SessionManager
	signIn    *auth.SignIn
	ws        *WSHandler
}

// Deps groups what the handler needs; SignIn may be nil when interactive sign-in is not configured.
type Deps struct {
	Quiz           *app.QuizService
	Issuance       *app.IssuanceService
	Callbacks      *app.CallbackService
	Records        app.IssuanceRecordRepository
	Hub            *app.StatusHub
	Sessions       *auth.SessionManager
	SignIn         *auth.SignIn
	AllowedOrigins []string
}

func NewHandler(deps Deps) *Handler {
	return &Handler{
		quiz:      deps.Quiz,
		issuance:  deps.Issuance,
		callbacks: deps.Callbacks,
		records:   deps.Records,
		sessions:  deps.Sessions,
		signIn:    deps.SignIn,
		ws:        NewWSHandler(deps.Hub, deps.Records, deps.Sessions, deps.AllowedOrigins),
	}
}

// Routes registers every endpoint on a new mux.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("POST /issue", h.authenticated(h.issue))
	mux.HandleFunc("GET /issue/qr", h.authenticated(h.issueQR))
	mux.HandleFunc("POST /callback", h.callback)
	mux.HandleFunc("GET /callback", h.callbackStatus)

	mux.HandleFunc("POST /quiz/start", h.authenticated(h.startQuiz))
	mux.HandleFunc("GET /quiz", h.authenticated(h.currentQuiz))
	mux.HandleFunc("POST /quiz/answer", h.authenticated(h.answer))
	mux.HandleFunc("POST /quiz/next", h.authenticated(h.next))
	mux.HandleFunc("GET /quiz/result", h.authenticated(h.result))

	mux.HandleFunc("GET /ws/status", h.ws.ServeStatus)

	mux.HandleFunc("GET /auth/signin", h.beginSignIn)
	mux.HandleFunc("GET /auth/callback/azure-ad", h.completeSignIn)
	mux.HandleFunc("POST /auth/signout", h.authenticated(h.signOut))
	mux.HandleFunc("GET /auth/session", h.authenticated(h.session))
	return mux
}

type principalHandler func(w http.ResponseWriter, r *http.Request, principal domain.Principal)

func (h *Handler) authenticated(next principalHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, err := h.sessions.Authenticate(r)
		if err != nil {
			writeError(w, err)
			return
		}
		next(w, r, principal)
	}
}

type errorResponse struct {
	Error     string          `json:"error"`
	Details   json.RawMessage `json:"details,omitempty"`
	Status    int             `json:"status,omitempty"`
	RequestID string          `json:"requestId,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write response: %v", err)
	}
}

// writeError maps classified and sentinel errors onto status codes and the error body.
func writeError(w http.ResponseWriter, err error) {
	var de *domain.Error
	if errors.As(err, &de) {
		if de.Kind != domain.KindUnauthorized && de.Kind != domain.KindValidationFailed {
			log.Printf("request failed: %v", err)
		}
		writeJSON(w, de.HTTPStatus(), errorResponse{
			Error:     de.Message,
			Details:   de.Details,
			Status:    de.Status,
			RequestID: de.RequestID,
		})
		return
	}

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrQuizNotFound),
		errors.Is(err, domain.ErrAttemptNotFound),
		errors.Is(err, domain.ErrRecordNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrAttemptFinished),
		errors.Is(err, domain.ErrAttemptNotFinished),
		errors.Is(err, domain.ErrAlreadyAnswered),
		errors.Is(err, domain.ErrNotAnswered):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrQuestionOutOfSequence),
		errors.Is(err, domain.ErrOptionOutOfRange):
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		log.Printf("request failed: %v", err)
		writeJSON(w, status, errorResponse{Error: "Internal server error"})
		return
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return &domain.Error{Kind: domain.KindValidationFailed, Message: "Invalid request body", Err: err}
	}
	return nil
}

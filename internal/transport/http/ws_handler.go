package http

import (
	"log"
	"net/http"
	"net/url"
	"time"

	"cyber-eval-service/internal/app"
	"cyber-eval-service/internal/auth"
	"cyber-eval-service/internal/domain"
	"github.com/gorilla/websocket"
)

const statusWriteTimeout = 10 * time.Second

// WSHandler streams issuance status changes to the browser showing the QR code.
type WSHandler struct {
	hub      *app.StatusHub
	records  app.IssuanceRecordRepository
	sessions *auth.SessionManager
	upgrader websocket.Upgrader
}

func NewWSHandler(hub *app.StatusHub, records app.IssuanceRecordRepository, sessions *auth.SessionManager, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		hub:      hub,
		records:  records,
		sessions: sessions,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

// ServeStatus sends the current status of one issuance, then every update until the
// issuance reaches a final status or the client goes away.
func (h *WSHandler) ServeStatus(w http.ResponseWriter, r *http.Request) {
	principal, err := h.sessions.Authenticate(r)
	if err != nil {
		writeError(w, err)
		return
	}
	state := r.URL.Query().Get("state")
	if state == "" {
		http.Error(w, "missing state", http.StatusBadRequest)
		return
	}

	// subscribe before reading the record so no callback falls in between
	updates, cancel := h.hub.Subscribe(state)
	defer cancel()

	record, err := h.records.FindByState(r.Context(), state)
	if err == nil && record.SessionID != principal.SessionID {
		err = domain.ErrRecordNotFound
	}
	if err != nil {
		writeError(w, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	current := domain.StatusUpdate{
		State:     record.State,
		RequestID: record.RequestID,
		Status:    record.Status,
		Error:     record.LastError,
		UpdatedAt: record.UpdatedAt,
	}
	if !h.send(conn, current) || final(current.Status) {
		h.closeNormally(conn)
		return
	}

	for {
		select {
		case update, ok := <-updates:
			if !ok {
				return
			}
			if !h.send(conn, update) {
				return
			}
			if final(update.Status) {
				h.closeNormally(conn)
				return
			}
		case <-closed:
			return
		case <-r.Context().Done():
			return
		}
	}
}

func (h *WSHandler) send(conn *websocket.Conn, update domain.StatusUpdate) bool {
	_ = conn.SetWriteDeadline(time.Now().Add(statusWriteTimeout))
	if err := conn.WriteJSON(outboundMessage[domain.StatusUpdate]{Type: "status", Payload: update}); err != nil {
		log.Printf("ws write error: %v", err)
		return false
	}
	return true
}

func (h *WSHandler) closeNormally(conn *websocket.Conn) {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "issuance finished")
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
}

func final(status domain.IssuanceStatus) bool {
	return status == domain.StatusIssuanceSuccessful || status == domain.StatusIssuanceError
}

func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return func(r *http.Request) bool { return true }
	}
	set := make(map[string]struct{}, len(allowed))
	for _, origin := range allowed {
		set[origin] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		if _, ok := set[origin]; ok {
			return true
		}
		u, err := url.Parse(origin)
		return err == nil && u.Host == r.Host
	}
}

package auth

import (
	"net/http"
	"strings"
	"time"

	"cyber-eval-service/internal/domain"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const issuer = "cyber-eval-service"

// SessionClaims is the payload of the signed session token.
type SessionClaims struct {
	jwt.RegisteredClaims
	SessionID string `json:"sid"`
	Name      string `json:"name,omitempty"`
	Email     string `json:"email,omitempty"`
}

// SessionManager mints and verifies HS256 session tokens carried in a cookie or bearer header.
type SessionManager struct {
	secret     []byte
	ttl        time.Duration
	cookieName string
	secure     bool
	now        func() time.Time
}

func NewSessionManager(secret string, ttl time.Duration, cookieName string, secure bool) *SessionManager {
	return &SessionManager{
		secret:     []byte(secret),
		ttl:        ttl,
		cookieName: cookieName,
		secure:     secure,
		now:        time.Now,
	}
}

// WithClock is test-only.
func (m *SessionManager) WithClock(now func() time.Time) *SessionManager {
	m.now = now
	return m
}

// NewPrincipal starts a fresh sign-in session for an identity.
func NewPrincipal(subject, name, email string) domain.Principal {
	return domain.Principal{
		Subject:   subject,
		SessionID: uuid.NewString(),
		Name:      name,
		Email:     email,
	}
}

// Sign returns a session token for the principal.
func (m *SessionManager) Sign(principal domain.Principal) (string, time.Time, error) {
	if len(m.secret) == 0 {
		return "", time.Time{}, errors.New("session secret not configured")
	}
	now := m.now()
	expires := now.Add(m.ttl)
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   principal.Subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
		SessionID: principal.SessionID,
		Name:      principal.Name,
		Email:     principal.Email,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, errors.Wrap(err, "failed to sign session")
	}
	return signed, expires, nil
}

// Parse verifies a session token and returns its principal.
func (m *SessionManager) Parse(token string) (domain.Principal, error) {
	if len(m.secret) == 0 {
		return domain.Principal{}, unauthorized(errors.New("session secret not configured"))
	}
	var claims SessionClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (interface{}, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return domain.Principal{}, unauthorized(err)
	}
	if claims.SessionID == "" {
		return domain.Principal{}, unauthorized(errors.New("session id missing"))
	}
	return domain.Principal{
		Subject:   claims.Subject,
		SessionID: claims.SessionID,
		Name:      claims.Name,
		Email:     claims.Email,
	}, nil
}

// Authenticate resolves the principal from the session cookie or an Authorization bearer token.
func (m *SessionManager) Authenticate(r *http.Request) (domain.Principal, error) {
	if cookie, err := r.Cookie(m.cookieName); err == nil && cookie.Value != "" {
		return m.Parse(cookie.Value)
	}
	if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return m.Parse(strings.TrimPrefix(header, "Bearer "))
	}
	return domain.Principal{}, domain.NewError(domain.KindUnauthorized, "Unauthorized")
}

// SetCookie signs the principal into the session cookie.
func (m *SessionManager) SetCookie(w http.ResponseWriter, principal domain.Principal) error {
	token, expires, err := m.Sign(principal)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// ClearCookie ends the browser session.
func (m *SessionManager) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func unauthorized(err error) error {
	return &domain.Error{Kind: domain.KindUnauthorized, Message: "Unauthorized", Err: err}
}

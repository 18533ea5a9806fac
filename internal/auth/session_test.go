package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"cyber-eval-service/internal/domain"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

var principal = domain.Principal{Subject: "oid-1", SessionID: "sid-1", Name: "Ada Lovelace", Email: "ada@example.com"}

func TestSessionSignAndParse(t *testing.T) {
	m := NewSessionManager("secret", time.Hour, "sess", false)

	token, expires, err := m.Sign(principal)
	require.NoError(t, err)
	require.WithinDuration(t, time.Now().Add(time.Hour), expires, 5*time.Second)

	got, err := m.Parse(token)
	require.NoError(t, err)
	require.Equal(t, principal, got)
}

func TestSessionRejectsTampering(t *testing.T) {
	m := NewSessionManager("secret", time.Hour, "sess", false)
	token, _, err := m.Sign(principal)
	require.NoError(t, err)

	other := NewSessionManager("other", time.Hour, "sess", false)
	_, err = other.Parse(token)
	require.Equal(t, domain.KindUnauthorized, domain.KindOf(err))

	_, err = m.Parse(token + "x")
	require.Equal(t, domain.KindUnauthorized, domain.KindOf(err))

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, SessionClaims{SessionID: "sid"}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = m.Parse(none)
	require.Equal(t, domain.KindUnauthorized, domain.KindOf(err))
}

func TestSessionExpires(t *testing.T) {
	now := time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)
	m := NewSessionManager("secret", time.Hour, "sess", false).WithClock(func() time.Time { return now })
	token, _, err := m.Sign(principal)
	require.NoError(t, err)

	now = now.Add(2 * time.Hour)
	_, err = m.Parse(token)
	require.Equal(t, domain.KindUnauthorized, domain.KindOf(err))
}

func TestSessionWithoutSecret(t *testing.T) {
	m := NewSessionManager("", time.Hour, "sess", false)
	_, _, err := m.Sign(principal)
	require.Error(t, err)
	_, err = m.Parse("anything")
	require.Equal(t, domain.KindUnauthorized, domain.KindOf(err))
}

func TestAuthenticateCookieAndBearer(t *testing.T) {
	m := NewSessionManager("secret", time.Hour, "sess", true)

	rec := httptest.NewRecorder()
	require.NoError(t, m.SetCookie(rec, principal))
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	require.True(t, cookies[0].HttpOnly)
	require.True(t, cookies[0].Secure)

	req := httptest.NewRequest(http.MethodGet, "/quiz", nil)
	req.AddCookie(cookies[0])
	got, err := m.Authenticate(req)
	require.NoError(t, err)
	require.Equal(t, principal.SessionID, got.SessionID)

	token, _, err := m.Sign(principal)
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/quiz", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	got, err = m.Authenticate(req)
	require.NoError(t, err)
	require.Equal(t, principal.Email, got.Email)

	_, err = m.Authenticate(httptest.NewRequest(http.MethodGet, "/quiz", nil))
	require.Equal(t, domain.KindUnauthorized, domain.KindOf(err))
}

func TestClearCookie(t *testing.T) {
	m := NewSessionManager("secret", time.Hour, "sess", false)
	rec := httptest.NewRecorder()
	m.ClearCookie(rec)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Equal(t, "sess", cookies[0].Name)
	require.Less(t, cookies[0].MaxAge, 0)
}

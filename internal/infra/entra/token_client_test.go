package entra

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"cyber-eval-service/internal/domain"
	"github.com/stretchr/testify/require"
)

type tokenStub struct {
	mu     sync.Mutex
	scopes []string
	// status per scope; scopes not listed succeed
	failures map[string]int
}

func (s *tokenStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/tenant-1/oauth2/v2.0/token" || r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	scope := r.PostForm.Get("scope")
	s.mu.Lock()
	s.scopes = append(s.scopes, scope)
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if r.PostForm.Get("grant_type") != "client_credentials" || r.PostForm.Get("client_id") != "client" {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_request"}`))
		return
	}
	if status, ok := s.failures[scope]; ok {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"error":"invalid_scope","scope":"` + scope + `"}`))
		return
	}
	_, _ = w.Write([]byte(`{"access_token":"token-for-` + scope + `","token_type":"Bearer","expires_in":3599}`))
}

func newTestClient(t *testing.T, stub *tokenStub) *Client {
	t.Helper()
	server := httptest.NewServer(stub)
	t.Cleanup(server.Close)
	return NewClient(Config{
		AuthorityHost: server.URL,
		TenantID:      "tenant-1",
		ClientID:      "client",
		ClientSecret:  "secret",
	})
}

func TestTokenStopsAtFirstSuccessfulScope(t *testing.T) {
	stub := &tokenStub{}
	client := newTestClient(t, stub)

	tok, err := client.Acquire(context.Background(), []string{"scope-a", "scope-b"})
	require.NoError(t, err)
	require.Equal(t, "token-for-scope-a", tok.AccessToken)
	require.Equal(t, "scope-a", tok.Scope)
	require.Equal(t, []string{"scope-a"}, stub.scopes)
}

func TestTokenFallsBackToNextScope(t *testing.T) {
	stub := &tokenStub{failures: map[string]int{"scope-a": http.StatusBadRequest}}
	client := newTestClient(t, stub)

	token, err := client.Token(context.Background(), []string{"scope-a", "scope-b", "scope-c"})
	require.NoError(t, err)
	require.Equal(t, "token-for-scope-b", token)
	require.Equal(t, []string{"scope-a", "scope-b"}, stub.scopes)
}

func TestTokenReportsLastCandidateFailure(t *testing.T) {
	stub := &tokenStub{failures: map[string]int{
		"scope-a": http.StatusBadRequest,
		"scope-b": http.StatusUnauthorized,
	}}
	client := newTestClient(t, stub)

	_, err := client.Token(context.Background(), []string{"scope-a", "scope-b"})
	require.Error(t, err)

	var de *domain.Error
	require.True(t, errors.As(err, &de))
	require.Equal(t, domain.KindUpstreamTokenFailure, de.Kind)
	require.Equal(t, http.StatusUnauthorized, de.Status)
	require.JSONEq(t, `{"error":"invalid_scope","scope":"scope-b"}`, string(de.Details))
	require.Equal(t, []string{"scope-a", "scope-b"}, stub.scopes)
}

func TestTokenRejectsResponseWithoutAccessToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"token_type":"Bearer"}`))
	}))
	defer server.Close()
	client := NewClient(Config{AuthorityHost: server.URL, TenantID: "t", ClientID: "client"})

	_, err := client.Token(context.Background(), []string{"only"})
	require.Equal(t, domain.KindUpstreamTokenFailure, domain.KindOf(err))
}

func TestTokenWithoutScopes(t *testing.T) {
	client := NewClient(Config{TenantID: "t"})
	_, err := client.Token(context.Background(), nil)
	require.Equal(t, domain.KindUpstreamTokenFailure, domain.KindOf(err))
}

func TestTokenURL(t *testing.T) {
	client := NewClient(Config{TenantID: "contoso"})
	require.Equal(t, "https://login.microsoftonline.com/contoso/oauth2/v2.0/token", client.TokenURL())
}

package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"cyber-eval-service/internal/domain"
	"cyber-eval-service/internal/infra/entra"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

type fakeAcquirer struct {
	tokens map[string]string
}

func (f fakeAcquirer) Acquire(_ context.Context, scopes []string) (entra.Token, error) {
	if tok, ok := f.tokens[scopes[0]]; ok {
		return entra.Token{AccessToken: tok, Scope: scopes[0]}, nil
	}
	return entra.Token{}, &domain.Error{Kind: domain.KindUpstreamTokenFailure, Status: 400, Details: []byte(`{"error":"invalid_scope"}`)}
}

func TestProbeScopes(t *testing.T) {
	access, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"aud":   "bbb94529-53a3-4be5-a069-7eaf2712b826",
		"roles": []string{"VerifiableCredential.Create.All"},
	}).SignedString([]byte("k"))
	require.NoError(t, err)

	var out bytes.Buffer
	ok := probeScopes(context.Background(), &out, fakeAcquirer{tokens: map[string]string{
		"scope-b":  access,
		graphScope: "opaque",
	}}, []string{"scope-a", "scope-b", graphScope})

	require.Equal(t, 2, ok)
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	require.Contains(t, lines[0], "FAIL scope-a status=400")
	require.Contains(t, lines[0], "invalid_scope")
	require.Contains(t, lines[1], "roles=VerifiableCredential.Create.All")
	require.Contains(t, lines[2], "(opaque token)")
}

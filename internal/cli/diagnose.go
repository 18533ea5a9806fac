package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"cyber-eval-service/internal/config"
	"cyber-eval-service/internal/domain"
	"cyber-eval-service/internal/infra/entra"
	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/cobra"
)

const graphScope = "https://graph.microsoft.com/.default"

// NewDiagnoseCmd probes the token endpoint with each scope candidate separately,
// to tell a missing Verified ID permission apart from bad application credentials.
func NewDiagnoseCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "diagnose",
		Short: "Check that the app registration can obtain Verified ID tokens",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			client := entra.NewClient(entra.Config{
				AuthorityHost: cfg.Identity.AuthorityHost,
				TenantID:      cfg.Identity.TenantID,
				ClientID:      cfg.Identity.ClientID,
				ClientSecret:  cfg.Identity.ClientSecret,
				Timeout:       config.TTLDuration(cfg.Identity.Timeout, 0),
			})
			scopes := cfg.Identity.Scopes
			if len(scopes) == 0 {
				scopes = entra.DefaultVerifiedIDScopes
			}
			if probeScopes(cmd.Context(), cmd.OutOrStdout(), client, append(append([]string{}, scopes...), graphScope)) == 0 {
				return fmt.Errorf("no scope produced a token")
			}
			return nil
		},
	}
}

type tokenAcquirer interface {
	Acquire(ctx context.Context, scopes []string) (entra.Token, error)
}

// probeScopes reports one line per scope and returns how many succeeded.
func probeScopes(ctx context.Context, out io.Writer, client tokenAcquirer, scopes []string) int {
	ok := 0
	for _, scope := range scopes {
		tok, err := client.Acquire(ctx, []string{scope})
		if err != nil {
			status := 0
			var details string
			var de *domain.Error
			if errors.As(err, &de) {
				status = de.Status
				details = string(de.Details)
			}
			fmt.Fprintf(out, "FAIL %s status=%d %s\n", scope, status, details)
			continue
		}
		ok++
		fmt.Fprintf(out, "OK   %s %s\n", scope, describeToken(tok.AccessToken))
	}
	return ok
}

// describeToken prints the audience and roles of an access token without verifying it.
func describeToken(raw string) string {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return "(opaque token)"
	}
	aud, _ := claims.GetAudience()
	var roles []string
	if list, ok := claims["roles"].([]interface{}); ok {
		for _, r := range list {
			if s, ok := r.(string); ok {
				roles = append(roles, s)
			}
		}
	}
	return fmt.Sprintf("aud=%s roles=%s", strings.Join(aud, ","), strings.Join(roles, ","))
}

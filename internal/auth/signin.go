package auth

import (
	"context"
	"net/http"
	"strings"
	"time"

	"cyber-eval-service/internal/domain"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"
)

const stateCookie = "cyber_eval_oauth_state"

// SignInConfig describes the Entra ID app registration used for interactive sign-in.
type SignInConfig struct {
	AuthorityHost string
	TenantID      string
	ClientID      string
	ClientSecret  string
	RedirectURL   string
	Secure        bool
}

// SignIn runs the OAuth2 authorization-code flow against Entra ID.
type SignIn struct {
	oauth  *oauth2.Config
	secure bool
}

type idTokenClaims struct {
	jwt.RegisteredClaims
	ObjectID          string `json:"oid"`
	Name              string `json:"name"`
	Email             string `json:"email"`
	PreferredUsername string `json:"preferred_username"`
}

func NewSignIn(cfg SignInConfig) *SignIn {
	base := strings.TrimRight(cfg.AuthorityHost, "/") + "/" + cfg.TenantID + "/oauth2/v2.0"
	return &SignIn{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{"openid", "profile", "email"},
			Endpoint: oauth2.Endpoint{
				AuthURL:   base + "/authorize",
				TokenURL:  base + "/token",
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		secure: cfg.Secure,
	}
}

// Begin stores a fresh state in a short-lived cookie and returns the authorization URL.
func (s *SignIn) Begin(w http.ResponseWriter) string {
	state := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/auth",
		Expires:  time.Now().Add(10 * time.Minute),
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return s.oauth.AuthCodeURL(state)
}

// Complete checks the returned state, exchanges the code and reads the profile from the id_token.
// The id_token arrives directly from the token endpoint over TLS, so its claims are read without
// re-verifying the signature.
func (s *SignIn) Complete(ctx context.Context, w http.ResponseWriter, r *http.Request) (domain.Principal, error) {
	cookie, err := r.Cookie(stateCookie)
	if err != nil || cookie.Value == "" || cookie.Value != r.URL.Query().Get("state") {
		return domain.Principal{}, unauthorized(errors.New("sign-in state mismatch"))
	}
	http.SetCookie(w, &http.Cookie{Name: stateCookie, Value: "", Path: "/auth", MaxAge: -1})

	if e := r.URL.Query().Get("error"); e != "" {
		return domain.Principal{}, unauthorized(errors.Errorf("sign-in rejected: %s: %s", e, r.URL.Query().Get("error_description")))
	}
	code := r.URL.Query().Get("code")
	if code == "" {
		return domain.Principal{}, unauthorized(errors.New("authorization code missing"))
	}

	token, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		return domain.Principal{}, unauthorized(errors.Wrap(err, "code exchange failed"))
	}
	rawIDToken, _ := token.Extra("id_token").(string)
	if rawIDToken == "" {
		return domain.Principal{}, unauthorized(errors.New("id_token missing from token response"))
	}
	return PrincipalFromIDToken(rawIDToken)
}

// PrincipalFromIDToken maps Entra id_token claims onto a new session principal.
func PrincipalFromIDToken(rawIDToken string) (domain.Principal, error) {
	var claims idTokenClaims
	if _, _, err := jwt.NewParser().ParseUnverified(rawIDToken, &claims); err != nil {
		return domain.Principal{}, unauthorized(errors.Wrap(err, "malformed id_token"))
	}
	subject := claims.ObjectID
	if subject == "" {
		subject = claims.Subject
	}
	email := claims.Email
	if email == "" && strings.Contains(claims.PreferredUsername, "@") {
		email = claims.PreferredUsername
	}
	return NewPrincipal(subject, claims.Name, email), nil
}

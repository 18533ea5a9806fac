package entra

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"cyber-eval-service/internal/domain"
	"github.com/goccy/go-json"
	"github.com/hashicorp/go-multierror"
	"github.com/imroc/req/v3"
	"github.com/pkg/errors"
)

const (
	// DefaultAuthorityHost is the public Entra ID login host.
	DefaultAuthorityHost = "https://login.microsoftonline.com"
	defaultTimeout       = 8 * time.Second
)

// DefaultVerifiedIDScopes are tried in order when acquiring a Verified ID token:
// the service resource URI first, then the service principal application id.
var DefaultVerifiedIDScopes = []string{
	"https://verifiedid.did.msidentity.com/.default",
	"3db474b9-6a0c-4840-96ac-1fceb342124f/.default",
}

type Config struct {
	AuthorityHost string
	TenantID      string
	ClientID      string
	ClientSecret  string
	Timeout       time.Duration
}

// Token is a successful client-credentials grant.
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	Scope       string `json:"-"`
}

// Client exchanges the application credentials for bearer tokens.
type Client struct {
	cfg        Config
	httpClient *req.Client
}

func NewClient(cfg Config) *Client {
	if cfg.AuthorityHost == "" {
		cfg.AuthorityHost = DefaultAuthorityHost
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	httpClient := req.C().
		SetTimeout(cfg.Timeout).
		SetJsonMarshal(json.Marshal).
		SetJsonUnmarshal(json.Unmarshal)
	return &Client{cfg: cfg, httpClient: httpClient}
}

// TokenURL is the v2.0 token endpoint of the configured tenant.
func (c *Client) TokenURL() string {
	return strings.TrimRight(c.cfg.AuthorityHost, "/") + "/" + c.cfg.TenantID + "/oauth2/v2.0/token"
}

// Token returns the access token of the first scope candidate that succeeds.
func (c *Client) Token(ctx context.Context, scopes []string) (string, error) {
	tok, err := c.Acquire(ctx, scopes)
	if err != nil {
		return "", err
	}
	return tok.AccessToken, nil
}

// Acquire tries each scope candidate once, in order, and stops at the first success.
// When every candidate fails the error carries the last candidate's status and body.
func (c *Client) Acquire(ctx context.Context, scopes []string) (Token, error) {
	if len(scopes) == 0 {
		return Token{}, domain.NewError(domain.KindUpstreamTokenFailure, "No token scope configured")
	}

	var (
		causes     error
		lastStatus int
		lastBody   []byte
	)
	for i, scope := range scopes {
		tok, status, body, err := c.requestToken(ctx, scope)
		if err == nil {
			return tok, nil
		}
		causes = multierror.Append(causes, errors.Wrapf(err, "scope %v", scope))
		lastStatus, lastBody = status, body
		if i < len(scopes)-1 {
			log.Printf("token request for scope %s failed (status %d), trying next scope", scope, status)
		}
	}

	log.Printf("token request failed: status=%d error=%s", lastStatus, lastBody)
	return Token{}, &domain.Error{
		Kind:    domain.KindUpstreamTokenFailure,
		Message: "Failed to obtain access token",
		Status:  lastStatus,
		Details: domain.RawDetails(lastBody),
		Err:     causes,
	}
}

func (c *Client) requestToken(ctx context.Context, scope string) (Token, int, []byte, error) {
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"client_id":     c.cfg.ClientID,
			"client_secret": c.cfg.ClientSecret,
			"scope":         scope,
			"grant_type":    "client_credentials",
		}).
		Post(c.TokenURL())
	if err != nil {
		return Token{}, 0, nil, errors.Wrap(err, "token request failed")
	}

	body, err := resp.ToBytes()
	status := resp.GetStatusCode()
	if err != nil {
		return Token{}, status, nil, errors.Wrap(err, "failed to read token response")
	}
	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		return Token{}, status, body, errors.Errorf("token endpoint returned %v", status)
	}

	var tok Token
	if err := json.Unmarshal(body, &tok); err != nil {
		return Token{}, status, body, errors.Wrap(err, "failed to decode token response")
	}
	if tok.AccessToken == "" {
		return Token{}, status, body, errors.New("token response has no access_token")
	}
	tok.Scope = scope
	return tok, status, body, nil
}

package app

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"cyber-eval-service/internal/domain"
	"github.com/google/uuid"
)

// Claim fallbacks used when the signed-in profile lacks a field.
const (
	FallbackGivenName  = "Unknown"
	FallbackFamilyName = "User"
	FallbackEmail      = "unknown@example.com"
)

// TokenSource obtains a bearer token for the first scope candidate that succeeds.
type TokenSource interface {
	Token(ctx context.Context, scopes []string) (string, error)
}

// IssuanceClient submits an issuance request and normalizes the upstream response.
type IssuanceClient interface {
	CreateIssuanceRequest(ctx context.Context, accessToken string, request domain.IssuanceRequest) (domain.IssuanceResult, error)
}

// QRRenderer renders a QR image for a URL as a data URI.
type QRRenderer interface {
	DataURI(content string) (string, error)
}

// IssuanceRecordRepository persists issuance correlation records (in-memory, Postgres).
type IssuanceRecordRepository interface {
	Create(ctx context.Context, record domain.IssuanceRecord) error
	FindByState(ctx context.Context, state string) (domain.IssuanceRecord, error)
	FindByRequestID(ctx context.Context, requestID string) (domain.IssuanceRecord, error)
	UpdateStatus(ctx context.Context, update domain.StatusUpdate) error
}

// IssuanceSettings are the fixed parts of every issuance request.
type IssuanceSettings struct {
	Authority      string
	CredentialType string
	Manifest       string
	ClientName     string
	IncludeQRCode  bool
	Scopes         []string
	CallbackURL    string
	CallbackAPIKey string
}

// IssuanceService turns a passing quiz result into a credential offer.
type IssuanceService struct {
	settings IssuanceSettings
	tokens   TokenSource
	client   IssuanceClient
	records  IssuanceRecordRepository
	qr       QRRenderer
	now      func() time.Time
	newState func() string
}

func NewIssuanceService(settings IssuanceSettings, tokens TokenSource, client IssuanceClient, records IssuanceRecordRepository, qr QRRenderer) *IssuanceService {
	return &IssuanceService{
		settings: settings,
		tokens:   tokens,
		client:   client,
		records:  records,
		qr:       qr,
		now:      time.Now,
		newState: uuid.NewString,
	}
}

// WithClock is test-only for deterministic completion dates.
func (s *IssuanceService) WithClock(now func() time.Time) *IssuanceService {
	s.now = now
	return s
}

// Issue validates the result, requests a token and submits the issuance request.
// Failures are returned as *domain.Error.
func (s *IssuanceService) Issue(ctx context.Context, principal domain.Principal, result domain.QuizResult) (domain.IssuanceResult, error) {
	if result.Total <= 0 || result.Score < 0 || result.Score > result.Total {
		return domain.IssuanceResult{}, domain.NewError(domain.KindValidationFailed, "Invalid quiz result")
	}
	if !Passed(result.Score, result.Total) {
		return domain.IssuanceResult{}, domain.NewError(domain.KindValidationFailed,
			"Score does not meet minimum requirements for credential issuance")
	}

	state := s.newState()
	request := s.buildRequest(principal, result, state)

	token, err := s.tokens.Token(ctx, s.settings.Scopes)
	if err != nil {
		return domain.IssuanceResult{}, err
	}
	log.Printf("access token obtained, submitting %s issuance request for state %s", s.settings.CredentialType, state)

	issued, err := s.client.CreateIssuanceRequest(ctx, token, request)
	if err != nil {
		return domain.IssuanceResult{}, &domain.Error{
			Kind:    domain.KindUpstreamIssuanceFailure,
			Message: "Failed to initiate credential issuance",
			Err:     err,
		}
	}
	if !issued.Success {
		failure := issued.Failure
		if failure == nil {
			failure = &domain.IssuanceFailure{Kind: domain.KindUpstreamIssuanceFailure}
		}
		log.Printf("credential issuance failed: status=%d requestId=%s details=%s", failure.Status, failure.RequestID, failure.Details)
		return domain.IssuanceResult{}, &domain.Error{
			Kind:      failure.Kind,
			Message:   "Failed to initiate credential issuance",
			Status:    failure.Status,
			Details:   failure.Details,
			RequestID: failure.RequestID,
		}
	}

	issued.State = state
	if issued.QRCode == "" && issued.URL != "" && s.qr != nil {
		if uri, err := s.qr.DataURI(issued.URL); err == nil {
			issued.QRCode = uri
		} else {
			log.Printf("render qr for request %s: %v", issued.RequestID, err)
		}
	}

	if s.records != nil {
		now := s.now()
		record := domain.IssuanceRecord{
			State:     state,
			RequestID: issued.RequestID,
			SessionID: principal.SessionID,
			Subject:   principal.Subject,
			Email:     request.Claims.Email,
			Score:     result.Score,
			Total:     result.Total,
			URL:       issued.URL,
			QRCode:    issued.QRCode,
			Expiry:    issued.Expiry,
			Status:    domain.StatusPending,
			CreatedAt: now,
			UpdatedAt: now,
		}
		// The offer is already live upstream; a lost record only costs callback correlation.
		if err := s.records.Create(ctx, record); err != nil {
			log.Printf("store issuance record %s: %v", state, err)
		}
	}
	return issued, nil
}

func (s *IssuanceService) buildRequest(principal domain.Principal, result domain.QuizResult, state string) domain.IssuanceRequest {
	request := domain.IssuanceRequest{
		IncludeQRCode: s.settings.IncludeQRCode,
		Authority:     s.settings.Authority,
		Registration:  domain.Registration{ClientName: s.settings.ClientName},
		Type:          s.settings.CredentialType,
		Manifest:      s.settings.Manifest,
		Claims:        BuildClaims(principal, result, s.now()),
	}
	if s.settings.CallbackURL != "" {
		request.Callback = &domain.CallbackRegistration{
			URL:     s.settings.CallbackURL,
			State:   state,
			Headers: map[string]string{CallbackAPIKeyHeader: s.settings.CallbackAPIKey},
		}
	}
	return request
}

// BuildClaims derives the credential claims from the principal and a passing result.
// Missing profile fields degrade to fixed fallbacks instead of failing.
func BuildClaims(principal domain.Principal, result domain.QuizResult, now time.Time) domain.CredentialClaims {
	given, family := FallbackGivenName, FallbackFamilyName
	parts := strings.Split(principal.Name, " ")
	if len(parts) > 0 && parts[0] != "" {
		given = parts[0]
	}
	if len(parts) > 1 && parts[1] != "" {
		family = parts[1]
	}
	email := principal.Email
	if email == "" {
		email = FallbackEmail
	}
	return domain.CredentialClaims{
		GivenName:      given,
		FamilyName:     family,
		Email:          email,
		QuizScore:      fmt.Sprintf("%d/%d", result.Score, result.Total),
		CompletionDate: now.UTC().Format(time.DateOnly),
	}
}

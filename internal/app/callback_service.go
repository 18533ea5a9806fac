package app

import (
	"context"
	"crypto/subtle"
	"errors"
	"log"
	"time"

	"cyber-eval-service/internal/domain"
	"github.com/goccy/go-json"
)

// CallbackAPIKeyHeader carries the shared secret on issuance callbacks.
const CallbackAPIKeyHeader = "api-key"

// CallbackService receives status notifications from the issuance service.
type CallbackService struct {
	apiKey  string
	records IssuanceRecordRepository
	hub     *StatusHub
	now     func() time.Time
}

func NewCallbackService(apiKey string, records IssuanceRecordRepository, hub *StatusHub) *CallbackService {
	return &CallbackService{apiKey: apiKey, records: records, hub: hub, now: time.Now}
}

// Authorized reports whether the presented key matches the shared secret.
// An unset secret never authorizes.
func (s *CallbackService) Authorized(presented string) bool {
	if s.apiKey == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(presented), []byte(s.apiKey)) == 1
}

// HandleCallback authenticates and processes one notification. Once authorized,
// every well-formed notification is acknowledged, recognized or not.
func (s *CallbackService) HandleCallback(ctx context.Context, apiKey string, body []byte) (domain.CallbackEvent, error) {
	if !s.Authorized(apiKey) {
		return domain.CallbackEvent{}, domain.NewError(domain.KindUnauthorized, "Unauthorized")
	}

	var event domain.CallbackEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return domain.CallbackEvent{}, &domain.Error{Kind: domain.KindValidationFailed, Message: "Invalid callback payload", Err: err}
	}
	event.Raw = append(json.RawMessage(nil), body...)

	log.Printf("verifiable credential callback: %s", body)
	if !event.Code.Known() {
		log.Printf("unknown callback code: %q", event.Code)
		return event, nil
	}
	switch event.Code {
	case domain.CallbackRequestRetrieved:
		log.Printf("qr code was scanned or deep link was clicked (requestId=%s)", event.RequestID)
	case domain.CallbackIssuanceSuccessful:
		log.Printf("credential was successfully issued (requestId=%s)", event.RequestID)
	case domain.CallbackIssuanceError:
		log.Printf("credential issuance failed (requestId=%s): %s", event.RequestID, event.Error)
	}

	s.correlate(ctx, event)
	return event, nil
}

func (s *CallbackService) correlate(ctx context.Context, event domain.CallbackEvent) {
	if s.records == nil {
		return
	}
	record, err := s.lookup(ctx, event)
	if err != nil {
		if !errors.Is(err, domain.ErrRecordNotFound) {
			log.Printf("lookup issuance record: %v", err)
		}
		return
	}

	update := domain.StatusUpdate{
		State:     record.State,
		RequestID: event.RequestID,
		Status:    domain.IssuanceStatus(event.Code),
		Error:     event.Error,
		UpdatedAt: s.now(),
	}
	if update.RequestID == "" {
		update.RequestID = record.RequestID
	}
	if err := s.records.UpdateStatus(ctx, update); err != nil {
		log.Printf("update issuance record %s: %v", record.State, err)
		return
	}
	if s.hub != nil {
		s.hub.Publish(update)
	}
}

func (s *CallbackService) lookup(ctx context.Context, event domain.CallbackEvent) (domain.IssuanceRecord, error) {
	if event.State != "" {
		record, err := s.records.FindByState(ctx, event.State)
		if err == nil || !errors.Is(err, domain.ErrRecordNotFound) || event.RequestID == "" {
			return record, err
		}
	}
	if event.RequestID == "" {
		return domain.IssuanceRecord{}, domain.ErrRecordNotFound
	}
	return s.records.FindByRequestID(ctx, event.RequestID)
}

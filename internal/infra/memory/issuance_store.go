package memory

import (
	"context"
	"sync"

	"cyber-eval-service/internal/domain"
)

// IssuanceStore keeps issuance records in memory, indexed by state and request id.
type IssuanceStore struct {
	mu        sync.RWMutex
	records   map[string]domain.IssuanceRecord
	byRequest map[string]string
}

func NewIssuanceStore() *IssuanceStore {
	return &IssuanceStore{
		records:   make(map[string]domain.IssuanceRecord),
		byRequest: make(map[string]string),
	}
}

func (s *IssuanceStore) Create(_ context.Context, record domain.IssuanceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.State] = record
	if record.RequestID != "" {
		s.byRequest[record.RequestID] = record.State
	}
	return nil
}

func (s *IssuanceStore) FindByState(_ context.Context, state string) (domain.IssuanceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[state]
	if !ok {
		return domain.IssuanceRecord{}, domain.ErrRecordNotFound
	}
	return record, nil
}

func (s *IssuanceStore) FindByRequestID(ctx context.Context, requestID string) (domain.IssuanceRecord, error) {
	s.mu.RLock()
	state, ok := s.byRequest[requestID]
	s.mu.RUnlock()
	if !ok {
		return domain.IssuanceRecord{}, domain.ErrRecordNotFound
	}
	return s.FindByState(ctx, state)
}

func (s *IssuanceStore) UpdateStatus(_ context.Context, update domain.StatusUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[update.State]
	if !ok {
		return domain.ErrRecordNotFound
	}
	record.Status = update.Status
	record.LastError = update.Error
	record.UpdatedAt = update.UpdatedAt
	if update.RequestID != "" && record.RequestID == "" {
		record.RequestID = update.RequestID
		s.byRequest[update.RequestID] = record.State
	}
	s.records[update.State] = record
	return nil
}

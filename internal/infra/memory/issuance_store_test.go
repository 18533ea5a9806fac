package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"cyber-eval-service/internal/domain"
)

func TestIssuanceStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewIssuanceStore()
	created := time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)

	if err := store.Create(ctx, domain.IssuanceRecord{
		State:     "state-1",
		RequestID: "req-1",
		SessionID: "sid-1",
		Score:     4,
		Total:     5,
		Status:    domain.StatusPending,
		CreatedAt: created,
		UpdatedAt: created,
	}); err != nil {
		t.Fatalf("create: %v", err)
	}

	record, err := store.FindByRequestID(ctx, "req-1")
	if err != nil {
		t.Fatalf("find by request id: %v", err)
	}
	if record.State != "state-1" {
		t.Fatalf("expected state-1, got %s", record.State)
	}

	updated := created.Add(time.Minute)
	if err := store.UpdateStatus(ctx, domain.StatusUpdate{
		State:     "state-1",
		Status:    domain.StatusIssuanceSuccessful,
		UpdatedAt: updated,
	}); err != nil {
		t.Fatalf("update: %v", err)
	}
	record, _ = store.FindByState(ctx, "state-1")
	if record.Status != domain.StatusIssuanceSuccessful || !record.UpdatedAt.Equal(updated) {
		t.Fatalf("unexpected record after update %+v", record)
	}
}

func TestIssuanceStoreMissingRecords(t *testing.T) {
	ctx := context.Background()
	store := NewIssuanceStore()

	if _, err := store.FindByState(ctx, "nope"); !errors.Is(err, domain.ErrRecordNotFound) {
		t.Fatalf("expected record not found, got %v", err)
	}
	if _, err := store.FindByRequestID(ctx, "nope"); !errors.Is(err, domain.ErrRecordNotFound) {
		t.Fatalf("expected record not found, got %v", err)
	}
	if err := store.UpdateStatus(ctx, domain.StatusUpdate{State: "nope"}); !errors.Is(err, domain.ErrRecordNotFound) {
		t.Fatalf("expected record not found, got %v", err)
	}
}

package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/ayushbalaji-dotcom/clozapine-antipsychotic-monitor/internal/domain"
)

func TestTaskStore_FindMatchingWithinWindow(t *testing.T) {
	store := NewTaskStore()
	ctx := context.Background()
	due := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	task := domain.MonitoringTask{ID: "t1", PatientID: "p1", MedicationOrderID: "m1", TestType: "FBC", DueDate: due, Status: domain.TaskDue}
	if _, err := store.Insert(ctx, task); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	got, err := store.FindMatching(ctx, "p1", "m1", "FBC", due.AddDate(0, 0, 5), 14)
	if err != nil {
		t.Fatalf("FindMatching: %v", err)
	}
	if got == nil || got.ID != "t1" {
		t.Fatalf("expected to find task within window, got %#v", got)
	}

	miss, err := store.FindMatching(ctx, "p1", "m1", "FBC", due.AddDate(0, 0, 30), 14)
	if err != nil {
		t.Fatalf("FindMatching: %v", err)
	}
	if miss != nil {
		t.Fatalf("expected no match outside window, got %#v", miss)
	}
}

func TestThresholdStore_UpsertBatchIsIdempotentOnNaturalKey(t *testing.T) {
	store := NewThresholdStore()
	ctx := context.Background()
	t1 := domain.ReferenceThreshold{MonitoringType: "HbA1c", Unit: "%", Version: "v1", Enabled: true}

	if err := store.UpsertBatch(ctx, []domain.ReferenceThreshold{t1}); err != nil {
		t.Fatalf("UpsertBatch: %v", err)
	}
	if err := store.UpsertBatch(ctx, []domain.ReferenceThreshold{t1}); err != nil {
		t.Fatalf("UpsertBatch: %v", err)
	}

	got, err := store.ListEnabledFor(ctx, "HbA1c")
	if err != nil {
		t.Fatalf("ListEnabledFor: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected re-import to update in place, got %d rows", len(got))
	}
}

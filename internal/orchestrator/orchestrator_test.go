package orchestrator

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ayushbalaji-dotcom/clozapine-antipsychotic-monitor/internal/domain"
	"github.com/ayushbalaji-dotcom/clozapine-antipsychotic-monitor/internal/ruleset"
	"github.com/ayushbalaji-dotcom/clozapine-antipsychotic-monitor/internal/storage/memstore"
)

const testRuleset = `{
  "categories": {
    "STANDARD": {
      "baseline": ["Weight/BMI", "FBC"],
      "milestones": [{"months": 3, "tests": ["Prolactin"]}]
    },
    "SPECIAL_GROUP": {
      "baseline": ["FBC", "Weight/BMI"]
    },
    "HDAT": {
      "baseline": ["Weight/BMI"]
    }
  }
}`

func newTestOrchestrator(t *testing.T) (*Orchestrator, *memstore.PatientStore, *memstore.TaskStore, *memstore.NotificationStore) {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "ruleset_v1.json"), []byte(testRuleset), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	loader, err := ruleset.NewLoader(dir)
	if err != nil {
		t.Fatalf("NewLoader: %v", err)
	}

	patients := memstore.NewPatientStore()
	meds := memstore.NewMedicationOrderStore()
	events := memstore.NewEventStore()
	thresholds := memstore.NewThresholdStore()
	taskStore := memstore.NewTaskStore()
	notifyStore := memstore.NewNotificationStore()

	o := New(loader, patients, meds, events, thresholds, taskStore, notifyStore, nil, nil, nil, Settings{
		WindowDays: 14, EscalationThresholdDays: 30, HorizonYears: 5,
		TeamInboxID: "team-inbox", NotificationsEnabled: true,
	})
	return o, patients, taskStore, notifyStore
}

func TestOnMedicationOrder_ExpandsAndPersistsTasks(t *testing.T) {
	o, patients, taskStore, _ := newTestOrchestrator(t)
	ctx := context.Background()

	if _, err := patients.Upsert(ctx, domain.Patient{ID: "p1", Pseudonym: "PAT-000001"}); err != nil {
		t.Fatalf("Upsert patient: %v", err)
	}

	med := domain.MedicationOrder{
		ID: "m1", PatientID: "p1", DrugName: "Olanzapine", DrugCategory: domain.CategoryStandard,
		StartDate: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	created, err := o.OnMedicationOrder(ctx, med)
	if err != nil {
		t.Fatalf("OnMedicationOrder: %v", err)
	}
	if len(created) == 0 {
		t.Fatal("expected at least one task created")
	}

	persisted, err := taskStore.ListByPatientAndStatus(ctx, "p1", []domain.TaskStatus{domain.TaskDue, domain.TaskOverdue})
	if err != nil {
		t.Fatalf("ListByPatientAndStatus: %v", err)
	}
	if len(persisted) != len(created) {
		t.Fatalf("expected %d persisted tasks, got %d", len(created), len(persisted))
	}
}

func TestOnMedicationOrder_UnknownPatientIsNotFound(t *testing.T) {
	o, _, _, _ := newTestOrchestrator(t)
	_, err := o.OnMedicationOrder(context.Background(), domain.MedicationOrder{ID: "m1", PatientID: "missing"})
	if err == nil {
		t.Fatal("expected an error for unknown patient")
	}
}

func TestOnMonitoringEvent_NoThresholdsFlagsUnknownWithoutNotification(t *testing.T) {
	o, patients, taskStore, notifyStore := newTestOrchestrator(t)
	ctx := context.Background()

	if _, err := patients.Upsert(ctx, domain.Patient{ID: "p1", Pseudonym: "PAT-000001"}); err != nil {
		t.Fatalf("Upsert patient: %v", err)
	}
	if _, err := taskStore.Insert(ctx, domain.MonitoringTask{
		ID: "t1", PatientID: "p1", MedicationOrderID: "m1", TestType: "FBC",
		DueDate: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), Status: domain.TaskDue, AssignedTo: "nurse-1",
	}); err != nil {
		t.Fatalf("Insert task: %v", err)
	}

	event := domain.MonitoringEvent{
		ID: "e1", PatientID: "p1", TestType: "FBC",
		PerformedDate: time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC),
	}

	saved, err := o.OnMonitoringEvent(ctx, event)
	if err != nil {
		t.Fatalf("OnMonitoringEvent: %v", err)
	}
	if saved.AbnormalFlag != domain.FlagUnknown {
		t.Fatalf("expected UNKNOWN with no enabled thresholds, got %v", saved.AbnormalFlag)
	}

	// No enabled thresholds means UNKNOWN, which is not abnormal, so no
	// notification should have been created.
	n, err := notifyStore.FindByDedupeKey(ctx, "EVENT_WARNING:e1")
	if err != nil {
		t.Fatalf("FindByDedupeKey: %v", err)
	}
	if n != nil {
		t.Fatal("expected no notification for a non-abnormal event")
	}
}

func TestDailySweep_TransitionsAndNotifies(t *testing.T) {
	o, patients, taskStore, notifyStore := newTestOrchestrator(t)
	ctx := context.Background()

	if _, err := patients.Upsert(ctx, domain.Patient{ID: "p1", Pseudonym: "PAT-000001"}); err != nil {
		t.Fatalf("Upsert patient: %v", err)
	}
	overdueDue := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	if _, err := taskStore.Insert(ctx, domain.MonitoringTask{
		ID: "t1", PatientID: "p1", MedicationOrderID: "m1", TestType: "FBC",
		DueDate: overdueDue, Status: domain.TaskDue, AssignedTo: "nurse-1",
	}); err != nil {
		t.Fatalf("Insert task: %v", err)
	}

	today := overdueDue.AddDate(0, 0, 5)
	result, err := o.DailySweep(ctx, today)
	if err != nil {
		t.Fatalf("DailySweep: %v", err)
	}
	if result.TransitionedToOverdue != 1 {
		t.Fatalf("expected 1 task transitioned to overdue, got %d", result.TransitionedToOverdue)
	}
	if result.NotificationsCreated != 1 {
		t.Fatalf("expected 1 overdue notification, got %d", result.NotificationsCreated)
	}

	n, err := notifyStore.FindByDedupeKey(ctx, "TASK_OVERDUE:t1")
	if err != nil {
		t.Fatalf("FindByDedupeKey: %v", err)
	}
	if n == nil {
		t.Fatal("expected a TASK_OVERDUE notification")
	}
}

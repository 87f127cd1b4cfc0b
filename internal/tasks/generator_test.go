package tasks

import (
	"context"
	"testing"
	"time"

	"github.com/ayushbalaji-dotcom/clozapine-antipsychotic-monitor/internal/domain"
)

type fakeStore struct {
	tasks map[string]domain.MonitoringTask
}

func newFakeStore() *fakeStore {
	return &fakeStore{tasks: map[string]domain.MonitoringTask{}}
}

func (f *fakeStore) FindMatching(ctx context.Context, patientID, medicationOrderID, testType string, dueDate time.Time, windowDays int) (*domain.MonitoringTask, error) {
	window := time.Duration(windowDays) * 24 * time.Hour
	for _, t := range f.tasks {
		if t.PatientID != patientID || t.MedicationOrderID != medicationOrderID {
			continue
		}
		if !domain.MatchesTestType(t.TestType, testType) {
			continue
		}
		diff := t.DueDate.Sub(dueDate)
		if diff < 0 {
			diff = -diff
		}
		if diff <= window {
			found := t
			return &found, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) Insert(ctx context.Context, task domain.MonitoringTask) (domain.MonitoringTask, error) {
	f.tasks[task.ID] = task
	return task, nil
}

func (f *fakeStore) Update(ctx context.Context, task domain.MonitoringTask) (domain.MonitoringTask, error) {
	f.tasks[task.ID] = task
	return task, nil
}

func (f *fakeStore) Get(ctx context.Context, id string) (*domain.MonitoringTask, error) {
	t, ok := f.tasks[id]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (f *fakeStore) ListByPatientAndStatus(ctx context.Context, patientID string, statuses []domain.TaskStatus) ([]domain.MonitoringTask, error) {
	want := map[domain.TaskStatus]bool{}
	for _, s := range statuses {
		want[s] = true
	}
	var out []domain.MonitoringTask
	for _, t := range f.tasks {
		if t.PatientID == patientID && want[t.Status] {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeStore) ListOverdue(ctx context.Context) ([]domain.MonitoringTask, error) {
	var out []domain.MonitoringTask
	for _, t := range f.tasks {
		if t.Status == domain.TaskOverdue {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeStore) ListDueBefore(ctx context.Context, cutoff time.Time) ([]domain.MonitoringTask, error) {
	var out []domain.MonitoringTask
	for _, t := range f.tasks {
		if t.DueDate.Before(cutoff) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeStore) ListExpiredWaivers(ctx context.Context, cutoff time.Time) ([]domain.MonitoringTask, error) {
	var out []domain.MonitoringTask
	for _, t := range f.tasks {
		if t.Status == domain.TaskWaived && t.WaivedUntil != nil && t.WaivedUntil.Before(cutoff) {
			out = append(out, t)
		}
	}
	return out, nil
}

func TestReconcile_InsertsNewTask(t *testing.T) {
	store := newFakeStore()
	calculated := []domain.MonitoringTask{{PatientID: "p1", MedicationOrderID: "m1", TestType: "FBC", DueDate: date(2025, 1, 1), Status: domain.TaskDue}}

	got, err := Reconcile(context.Background(), store, nil, calculated, 14)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if len(got) != 1 || got[0].ID == "" {
		t.Fatalf("expected one inserted task with an ID, got %#v", got)
	}
}

func TestReconcile_LeavesTerminalTasksAlone(t *testing.T) {
	store := newFakeStore()
	store.tasks["t1"] = domain.MonitoringTask{ID: "t1", PatientID: "p1", MedicationOrderID: "m1", TestType: "FBC", DueDate: date(2025, 1, 1), Status: domain.TaskDone}

	calculated := []domain.MonitoringTask{{PatientID: "p1", MedicationOrderID: "m1", TestType: "FBC", DueDate: date(2025, 1, 8), Status: domain.TaskDue}}
	got, err := Reconcile(context.Background(), store, nil, calculated, 14)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if got[0].Status != domain.TaskDone || !got[0].DueDate.Equal(date(2025, 1, 1)) {
		t.Fatalf("expected terminal task untouched, got %#v", got[0])
	}
}

func TestReconcile_UpdatesChangedDueDate(t *testing.T) {
	store := newFakeStore()
	store.tasks["t1"] = domain.MonitoringTask{ID: "t1", PatientID: "p1", MedicationOrderID: "m1", TestType: "FBC", DueDate: date(2025, 1, 1), Status: domain.TaskDue}

	calculated := []domain.MonitoringTask{{PatientID: "p1", MedicationOrderID: "m1", TestType: "FBC", DueDate: date(2025, 1, 15), Status: domain.TaskDue}}
	got, err := Reconcile(context.Background(), store, nil, calculated, 20)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if !got[0].DueDate.Equal(date(2025, 1, 15)) {
		t.Fatalf("expected due_date updated, got %v", got[0].DueDate)
	}
}

func TestMarkTaskDone_NotFound(t *testing.T) {
	store := newFakeStore()
	if _, err := MarkTaskDone(context.Background(), store, nil, "missing", time.Now()); domain.KindOf(err) != domain.KindNotFound {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestMarkTaskDone_Idempotent(t *testing.T) {
	store := newFakeStore()
	done := date(2025, 1, 1)
	store.tasks["t1"] = domain.MonitoringTask{ID: "t1", Status: domain.TaskDone, CompletedAt: &done}

	got, err := MarkTaskDone(context.Background(), store, nil, "t1", date(2025, 2, 1))
	if err != nil {
		t.Fatalf("MarkTaskDone: %v", err)
	}
	if !got.CompletedAt.Equal(done) {
		t.Fatalf("expected idempotent no-op, completed_at changed to %v", got.CompletedAt)
	}
}

func TestUpdateTaskStatuses_TransitionsDueToOverdue(t *testing.T) {
	store := newFakeStore()
	store.tasks["t1"] = domain.MonitoringTask{ID: "t1", DueDate: date(2025, 1, 1), Status: domain.TaskDue}

	count, err := UpdateTaskStatuses(context.Background(), store, date(2025, 2, 1))
	if err != nil {
		t.Fatalf("UpdateTaskStatuses: %v", err)
	}
	if count != 1 || store.tasks["t1"].Status != domain.TaskOverdue {
		t.Fatalf("expected task to transition to OVERDUE, got %#v", store.tasks["t1"])
	}
}

func TestAutoCompleteTasksForEvent_SymmetricWindow(t *testing.T) {
	store := newFakeStore()
	store.tasks["t1"] = domain.MonitoringTask{ID: "t1", PatientID: "p1", TestType: "FBC", DueDate: date(2025, 1, 10), Status: domain.TaskOverdue}

	event := domain.MonitoringEvent{PatientID: "p1", TestType: "FBC", PerformedDate: date(2025, 1, 1)}
	completed, err := AutoCompleteTasksForEvent(context.Background(), store, nil, event, 14)
	if err != nil {
		t.Fatalf("AutoCompleteTasksForEvent: %v", err)
	}
	if len(completed) != 1 || completed[0].Status != domain.TaskDone {
		t.Fatalf("expected task closed within window, got %#v", completed)
	}
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Package memstore is the in-memory repository set used by tests and by
// cmd/monitor when no Postgres DSN is configured.
package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/ayushbalaji-dotcom/clozapine-antipsychotic-monitor/internal/domain"
)

// TaskStore implements tasks.Store over a mutex-guarded map.
type TaskStore struct {
	mu    sync.Mutex
	tasks map[string]domain.MonitoringTask
}

func NewTaskStore() *TaskStore {
	return &TaskStore{tasks: map[string]domain.MonitoringTask{}}
}

func (s *TaskStore) FindMatching(ctx context.Context, patientID, medicationOrderID, testType string, dueDate time.Time, windowDays int) (*domain.MonitoringTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	window := time.Duration(windowDays) * 24 * time.Hour
	for _, t := range s.tasks {
		if t.PatientID != patientID || t.MedicationOrderID != medicationOrderID {
			continue
		}
		if !domain.MatchesTestType(t.TestType, testType) {
			continue
		}
		if absDuration(t.DueDate.Sub(dueDate)) <= window {
			found := t
			return &found, nil
		}
	}
	return nil, nil
}

func (s *TaskStore) Insert(ctx context.Context, task domain.MonitoringTask) (domain.MonitoringTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[task.ID] = task
	return task, nil
}

func (s *TaskStore) Update(ctx context.Context, task domain.MonitoringTask) (domain.MonitoringTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[task.ID] = task
	return task, nil
}

func (s *TaskStore) Get(ctx context.Context, id string) (*domain.MonitoringTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (s *TaskStore) ListByPatientAndStatus(ctx context.Context, patientID string, statuses []domain.TaskStatus) ([]domain.MonitoringTask, error) {
	want := map[domain.TaskStatus]bool{}
	for _, st := range statuses {
		want[st] = true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.MonitoringTask
	for _, t := range s.tasks {
		if t.PatientID == patientID && want[t.Status] {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *TaskStore) ListOverdue(ctx context.Context) ([]domain.MonitoringTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.MonitoringTask
	for _, t := range s.tasks {
		if t.Status == domain.TaskOverdue {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *TaskStore) ListDueBefore(ctx context.Context, cutoff time.Time) ([]domain.MonitoringTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.MonitoringTask
	for _, t := range s.tasks {
		if t.Status == domain.TaskDue && t.DueDate.Before(cutoff) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *TaskStore) ListExpiredWaivers(ctx context.Context, cutoff time.Time) ([]domain.MonitoringTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.MonitoringTask
	for _, t := range s.tasks {
		if t.Status == domain.TaskWaived && t.WaivedUntil != nil && t.WaivedUntil.Before(cutoff) {
			out = append(out, t)
		}
	}
	return out, nil
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

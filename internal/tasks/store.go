// Package tasks implements the task-lifecycle state machine and
// create-or-update reconciliation of spec.md §4.4 (component C4).
package tasks

import (
	"context"
	"time"

	"github.com/ayushbalaji-dotcom/clozapine-antipsychotic-monitor/internal/domain"
)

// Store is the narrow persistence contract C4 needs. Implementations live
// in internal/storage/postgres and internal/storage/memstore.
type Store interface {
	FindMatching(ctx context.Context, patientID, medicationOrderID, testType string, dueDate time.Time, windowDays int) (*domain.MonitoringTask, error)
	Insert(ctx context.Context, task domain.MonitoringTask) (domain.MonitoringTask, error)
	Update(ctx context.Context, task domain.MonitoringTask) (domain.MonitoringTask, error)
	Get(ctx context.Context, id string) (*domain.MonitoringTask, error)
	ListByPatientAndStatus(ctx context.Context, patientID string, statuses []domain.TaskStatus) ([]domain.MonitoringTask, error)
	ListOverdue(ctx context.Context) ([]domain.MonitoringTask, error)
	ListDueBefore(ctx context.Context, cutoff time.Time) ([]domain.MonitoringTask, error)
	ListExpiredWaivers(ctx context.Context, cutoff time.Time) ([]domain.MonitoringTask, error)
}

// AuditSink is the narrow audit contract C4 emits create/update records
// through, mirroring the teacher's nil-checked optional-collaborator
// pattern in services/jax-api/internal/app/orchestrator.go.
type AuditSink interface {
	Record(ctx context.Context, event domain.AuditEvent) error
}

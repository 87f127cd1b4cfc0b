package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ayushbalaji-dotcom/clozapine-antipsychotic-monitor/internal/domain"
)

// Reconcile implements spec.md §4.4's create-or-update rules. Terminal
// tasks (DONE, WAIVED) are left alone; a changed due_date or status on a
// non-terminal match is updated in place; an unmatched calculated task is
// inserted. Every create/update emits an audit record.
func Reconcile(ctx context.Context, store Store, audit AuditSink, calculated []domain.MonitoringTask, windowDays int) ([]domain.MonitoringTask, error) {
	results := make([]domain.MonitoringTask, 0, len(calculated))

	for _, task := range calculated {
		existing, err := store.FindMatching(ctx, task.PatientID, task.MedicationOrderID, task.TestType, task.DueDate, windowDays)
		if err != nil {
			return nil, domain.Internal("find matching task", err)
		}

		if existing == nil {
			task.ID = uuid.NewString()
			created, err := store.Insert(ctx, task)
			if err != nil {
				return nil, domain.Internal("insert task", err)
			}
			auditRecord(ctx, audit, "task.create", created.ID, map[string]any{
				"test_type": created.TestType, "due_date": created.DueDate, "status": created.Status,
			})
			results = append(results, created)
			continue
		}

		if existing.Status.IsTerminal() {
			results = append(results, *existing)
			continue
		}

		if existing.DueDate.Equal(task.DueDate) && existing.Status == task.Status {
			results = append(results, *existing)
			continue
		}

		existing.DueDate = task.DueDate
		existing.Status = task.Status
		updated, err := store.Update(ctx, *existing)
		if err != nil {
			return nil, domain.Internal("update task", err)
		}
		auditRecord(ctx, audit, "task.update", updated.ID, map[string]any{
			"test_type": updated.TestType, "due_date": updated.DueDate, "status": updated.Status,
		})
		results = append(results, updated)
	}

	return results, nil
}

// UpdateTaskStatuses transitions DUE tasks with due_date < today to
// OVERDUE, per spec.md §4.4's state machine table. Part of the daily sweep.
func UpdateTaskStatuses(ctx context.Context, store Store, today time.Time) (int, error) {
	due, err := store.ListDueBefore(ctx, today)
	if err != nil {
		return 0, domain.Internal("list due tasks", err)
	}
	count := 0
	for _, task := range due {
		if task.Status != domain.TaskDue {
			continue
		}
		task.Status = domain.TaskOverdue
		if _, err := store.Update(ctx, task); err != nil {
			return count, domain.Internal("mark task overdue", err)
		}
		count++
	}
	return count, nil
}

// ReactivateExpiredWaivers transitions WAIVED tasks whose waived_until has
// passed back to OVERDUE, clearing the reason/until fields.
func ReactivateExpiredWaivers(ctx context.Context, store Store, today time.Time) (int, error) {
	expired, err := store.ListExpiredWaivers(ctx, today)
	if err != nil {
		return 0, domain.Internal("list expired waivers", err)
	}
	count := 0
	for _, task := range expired {
		task.Status = domain.TaskOverdue
		task.WaivedReason = ""
		task.WaivedUntil = nil
		if _, err := store.Update(ctx, task); err != nil {
			return count, domain.Internal("reactivate waiver", err)
		}
		count++
	}
	return count, nil
}

// MarkTaskDone completes a task, idempotently if it is already DONE.
// Returns NOT_FOUND when the task does not exist.
func MarkTaskDone(ctx context.Context, store Store, audit AuditSink, taskID string, completedAt time.Time) (domain.MonitoringTask, error) {
	task, err := store.Get(ctx, taskID)
	if err != nil {
		return domain.MonitoringTask{}, domain.Internal("get task", err)
	}
	if task == nil {
		return domain.MonitoringTask{}, domain.NotFound(fmt.Sprintf("task %s not found", taskID), nil)
	}
	if task.Status == domain.TaskDone {
		return *task, nil
	}
	task.Status = domain.TaskDone
	task.CompletedAt = &completedAt
	updated, err := store.Update(ctx, *task)
	if err != nil {
		return domain.MonitoringTask{}, domain.Internal("update task", err)
	}
	auditRecord(ctx, audit, "task.mark_done", updated.ID, map[string]any{"completed_at": completedAt})
	return updated, nil
}

// WaiveTask moves a DUE/OVERDUE task to WAIVED with a reason and optional
// reactivation date.
func WaiveTask(ctx context.Context, store Store, audit AuditSink, taskID, reason string, until *time.Time) (domain.MonitoringTask, error) {
	task, err := store.Get(ctx, taskID)
	if err != nil {
		return domain.MonitoringTask{}, domain.Internal("get task", err)
	}
	if task == nil {
		return domain.MonitoringTask{}, domain.NotFound(fmt.Sprintf("task %s not found", taskID), nil)
	}
	task.Status = domain.TaskWaived
	task.WaivedReason = reason
	task.WaivedUntil = until
	updated, err := store.Update(ctx, *task)
	if err != nil {
		return domain.MonitoringTask{}, domain.Internal("update task", err)
	}
	auditRecord(ctx, audit, "task.waive", updated.ID, map[string]any{"reason": reason, "waived_until": until})
	return updated, nil
}

// AutoCompleteTasksForEvent implements spec.md §4.4's auto-completion:
// every open task for the event's patient whose test_type matches (exact
// or glucose/hba1c fuzzy) and whose due_date lies within ±window_days of
// the event's performed_date is marked DONE.
func AutoCompleteTasksForEvent(ctx context.Context, store Store, audit AuditSink, event domain.MonitoringEvent, windowDays int) ([]domain.MonitoringTask, error) {
	open, err := store.ListByPatientAndStatus(ctx, event.PatientID, []domain.TaskStatus{domain.TaskDue, domain.TaskOverdue})
	if err != nil {
		return nil, domain.Internal("list open tasks", err)
	}

	window := time.Duration(windowDays) * 24 * time.Hour
	completedAt := midnightUTC(event.PerformedDate)

	var completed []domain.MonitoringTask
	for _, task := range open {
		if !domain.MatchesTestType(task.TestType, event.TestType) {
			continue
		}
		diff := event.PerformedDate.Sub(task.DueDate)
		if diff < 0 {
			diff = -diff
		}
		if diff > window {
			continue
		}
		task.Status = domain.TaskDone
		task.CompletedAt = &completedAt
		updated, err := store.Update(ctx, task)
		if err != nil {
			return completed, domain.Internal("auto-complete task", err)
		}
		auditRecord(ctx, audit, "task.auto_complete", updated.ID, map[string]any{"event_id": event.ID})
		completed = append(completed, updated)
	}
	return completed, nil
}

func midnightUTC(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func auditRecord(ctx context.Context, audit AuditSink, action, entityID string, payload map[string]any) {
	if audit == nil {
		return
	}
	_ = audit.Record(ctx, domain.AuditEvent{
		Action:     action,
		EntityType: "monitoring_task",
		EntityID:   entityID,
		Outcome:    domain.AuditOutcomeSuccess,
		Timestamp:  time.Now().UTC(),
		Payload:    payload,
	})
}

package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/ayushbalaji-dotcom/clozapine-antipsychotic-monitor/internal/domain"
)

// TaskRepository implements tasks.Store against Postgres. The
// (patient_id, medication_order_id, test_type, due_date±window) lookup in
// FindMatching is the serialization point spec.md §4.4 names.
type TaskRepository struct {
	db *DB
}

func NewTaskRepository(db *DB) *TaskRepository { return &TaskRepository{db: db} }

const selectTaskColumns = `id, patient_id, medication_order_id, test_type, due_date, status, assigned_to, waived_reason, waived_until, completed_at`

func scanTask(row interface{ Scan(...any) error }) (domain.MonitoringTask, error) {
	var t domain.MonitoringTask
	var assignedTo, waivedReason sql.NullString
	var waivedUntil, completedAt sql.NullTime
	err := row.Scan(&t.ID, &t.PatientID, &t.MedicationOrderID, &t.TestType, &t.DueDate, &t.Status,
		&assignedTo, &waivedReason, &waivedUntil, &completedAt)
	if err != nil {
		return domain.MonitoringTask{}, err
	}
	t.AssignedTo = assignedTo.String
	t.WaivedReason = waivedReason.String
	if waivedUntil.Valid {
		t.WaivedUntil = &waivedUntil.Time
	}
	if completedAt.Valid {
		t.CompletedAt = &completedAt.Time
	}
	return t, nil
}

func (r *TaskRepository) FindMatching(ctx context.Context, patientID, medicationOrderID, testType string, dueDate time.Time, windowDays int) (*domain.MonitoringTask, error) {
	window := time.Duration(windowDays) * 24 * time.Hour
	row := r.db.QueryRowContext(ctx, `
		SELECT `+selectTaskColumns+`
		FROM monitoring_tasks
		WHERE patient_id = $1 AND medication_order_id = $2 AND test_type = $3
		  AND due_date BETWEEN $4 AND $5
		ORDER BY ABS(EXTRACT(EPOCH FROM (due_date - $6)))
		LIMIT 1`,
		patientID, medicationOrderID, testType, dueDate.Add(-window), dueDate.Add(window), dueDate)

	task, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, domain.Internal("find matching monitoring task", err)
	}
	return &task, nil
}

func (r *TaskRepository) Insert(ctx context.Context, task domain.MonitoringTask) (domain.MonitoringTask, error) {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO monitoring_tasks (id, patient_id, medication_order_id, test_type, due_date, status, assigned_to, waived_reason, waived_until, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		task.ID, task.PatientID, task.MedicationOrderID, task.TestType, task.DueDate, task.Status,
		nullableString(task.AssignedTo), nullableString(task.WaivedReason), task.WaivedUntil, task.CompletedAt)
	if err != nil {
		return domain.MonitoringTask{}, domain.Internal("insert monitoring task", err)
	}
	return task, nil
}

func (r *TaskRepository) Update(ctx context.Context, task domain.MonitoringTask) (domain.MonitoringTask, error) {
	_, err := r.db.ExecContext(ctx, `
		UPDATE monitoring_tasks SET
			due_date = $2, status = $3, assigned_to = $4, waived_reason = $5, waived_until = $6, completed_at = $7
		WHERE id = $1`,
		task.ID, task.DueDate, task.Status, nullableString(task.AssignedTo), nullableString(task.WaivedReason),
		task.WaivedUntil, task.CompletedAt)
	if err != nil {
		return domain.MonitoringTask{}, domain.Internal("update monitoring task", err)
	}
	return task, nil
}

func (r *TaskRepository) Get(ctx context.Context, id string) (*domain.MonitoringTask, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+selectTaskColumns+` FROM monitoring_tasks WHERE id = $1`, id)
	task, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, domain.Internal("get monitoring task", err)
	}
	return &task, nil
}

func (r *TaskRepository) ListByPatientAndStatus(ctx context.Context, patientID string, statuses []domain.TaskStatus) ([]domain.MonitoringTask, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+selectTaskColumns+` FROM monitoring_tasks WHERE patient_id = $1 AND status = ANY($2)`,
		patientID, statusArray(statuses))
	if err != nil {
		return nil, domain.Internal("list monitoring tasks by patient and status", err)
	}
	return scanTasks(rows)
}

func (r *TaskRepository) ListOverdue(ctx context.Context) ([]domain.MonitoringTask, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+selectTaskColumns+` FROM monitoring_tasks WHERE status = $1`, domain.TaskOverdue)
	if err != nil {
		return nil, domain.Internal("list overdue monitoring tasks", err)
	}
	return scanTasks(rows)
}

func (r *TaskRepository) ListDueBefore(ctx context.Context, cutoff time.Time) ([]domain.MonitoringTask, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+selectTaskColumns+` FROM monitoring_tasks WHERE due_date < $1 AND status = $2`,
		cutoff, domain.TaskDue)
	if err != nil {
		return nil, domain.Internal("list monitoring tasks due before cutoff", err)
	}
	return scanTasks(rows)
}

func (r *TaskRepository) ListExpiredWaivers(ctx context.Context, cutoff time.Time) ([]domain.MonitoringTask, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+selectTaskColumns+` FROM monitoring_tasks WHERE status = $1 AND waived_until < $2`,
		domain.TaskWaived, cutoff)
	if err != nil {
		return nil, domain.Internal("list expired waivers", err)
	}
	return scanTasks(rows)
}

func scanTasks(rows *sql.Rows) ([]domain.MonitoringTask, error) {
	defer rows.Close()
	var out []domain.MonitoringTask
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, domain.Internal("scan monitoring task row", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func statusArray(statuses []domain.TaskStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

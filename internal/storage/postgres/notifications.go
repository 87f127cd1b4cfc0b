package postgres

import (
	"context"
	"database/sql"

	"github.com/ayushbalaji-dotcom/clozapine-antipsychotic-monitor/internal/domain"
)

// NotificationRepository implements notify.Store. FindByDedupeKey is the
// dedup serialization point spec.md §4.6 requires.
type NotificationRepository struct {
	db *DB
}

func NewNotificationRepository(db *DB) *NotificationRepository { return &NotificationRepository{db: db} }

const selectNotificationColumns = `id, notification_type, priority, status, recipient_type, recipient, patient_id, task_id, event_id, dedupe_key, created_at, read_at, acked_at, acked_by`

func scanNotification(row interface{ Scan(...any) error }) (domain.InAppNotification, error) {
	var n domain.InAppNotification
	var patientID, taskID, eventID, ackedBy sql.NullString
	var readAt, ackedAt sql.NullTime
	err := row.Scan(&n.ID, &n.NotificationType, &n.Priority, &n.Status, &n.RecipientType, &n.Recipient,
		&patientID, &taskID, &eventID, &n.DedupeKey, &n.CreatedAt, &readAt, &ackedAt, &ackedBy)
	if err != nil {
		return domain.InAppNotification{}, err
	}
	n.PatientID, n.TaskID, n.EventID, n.AckedBy = patientID.String, taskID.String, eventID.String, ackedBy.String
	if readAt.Valid {
		n.ReadAt = &readAt.Time
	}
	if ackedAt.Valid {
		n.AckedAt = &ackedAt.Time
	}
	return n, nil
}

func (r *NotificationRepository) FindByDedupeKey(ctx context.Context, dedupeKey string) (*domain.InAppNotification, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+selectNotificationColumns+` FROM in_app_notifications WHERE dedupe_key = $1`, dedupeKey)
	n, err := scanNotification(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, domain.Internal("find notification by dedupe_key", err)
	}
	return &n, nil
}

func (r *NotificationRepository) Insert(ctx context.Context, n domain.InAppNotification) (domain.InAppNotification, error) {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO in_app_notifications
			(id, notification_type, priority, status, recipient_type, recipient, patient_id, task_id, event_id, dedupe_key, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (dedupe_key) DO NOTHING`,
		n.ID, n.NotificationType, n.Priority, n.Status, n.RecipientType, n.Recipient,
		nullableString(n.PatientID), nullableString(n.TaskID), nullableString(n.EventID), n.DedupeKey, n.CreatedAt)
	if err != nil {
		return domain.InAppNotification{}, domain.Internal("insert notification", err)
	}
	return n, nil
}

func (r *NotificationRepository) Update(ctx context.Context, n domain.InAppNotification) (domain.InAppNotification, error) {
	_, err := r.db.ExecContext(ctx, `
		UPDATE in_app_notifications SET status = $2, read_at = $3, acked_at = $4, acked_by = $5 WHERE id = $1`,
		n.ID, n.Status, n.ReadAt, n.AckedAt, nullableString(n.AckedBy))
	if err != nil {
		return domain.InAppNotification{}, domain.Internal("update notification", err)
	}
	return n, nil
}

func (r *NotificationRepository) Get(ctx context.Context, id string) (*domain.InAppNotification, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+selectNotificationColumns+` FROM in_app_notifications WHERE id = $1`, id)
	n, err := scanNotification(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, domain.Internal("get notification", err)
	}
	return &n, nil
}

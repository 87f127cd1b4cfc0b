package postgres

import (
	"context"
	"database/sql"

	"github.com/ayushbalaji-dotcom/clozapine-antipsychotic-monitor/internal/domain"
)

// EventRepository is the MonitoringEvent system of record and implements
// notify.EventStore (Get/Update) directly.
type EventRepository struct {
	db *DB
}

func NewEventRepository(db *DB) *EventRepository { return &EventRepository{db: db} }

const selectEventColumns = `id, patient_id, medication_order_id, test_type, performed_date, value, unit, interpretation, source_system, source_id, abnormal_flag, abnormal_reason_code, reviewed_status`

func scanEvent(row interface{ Scan(...any) error }) (domain.MonitoringEvent, error) {
	var e domain.MonitoringEvent
	var medOrderID, reviewed sql.NullString
	err := row.Scan(&e.ID, &e.PatientID, &medOrderID, &e.TestType, &e.PerformedDate, &e.Value, &e.Unit,
		&e.Interpretation, &e.SourceSystem, &e.SourceID, &e.AbnormalFlag, &e.AbnormalReasonCode, &reviewed)
	if err != nil {
		return domain.MonitoringEvent{}, err
	}
	e.MedicationOrderID = medOrderID.String
	e.ReviewedStatus = domain.ReviewStatus(reviewed.String)
	return e, nil
}

func (r *EventRepository) Get(ctx context.Context, id string) (*domain.MonitoringEvent, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+selectEventColumns+` FROM monitoring_events WHERE id = $1`, id)
	e, err := scanEvent(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, domain.Internal("get monitoring event", err)
	}
	return &e, nil
}

func (r *EventRepository) Insert(ctx context.Context, e domain.MonitoringEvent) (domain.MonitoringEvent, error) {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO monitoring_events
			(id, patient_id, medication_order_id, test_type, performed_date, value, unit, interpretation,
			 source_system, source_id, abnormal_flag, abnormal_reason_code, reviewed_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (source_system, source_id) DO NOTHING`,
		e.ID, e.PatientID, nullableString(e.MedicationOrderID), e.TestType, e.PerformedDate, e.Value, e.Unit,
		e.Interpretation, e.SourceSystem, e.SourceID, e.AbnormalFlag, e.AbnormalReasonCode, nullableString(string(e.ReviewedStatus)))
	if err != nil {
		return domain.MonitoringEvent{}, domain.Internal("insert monitoring event", err)
	}
	return e, nil
}

func (r *EventRepository) Update(ctx context.Context, e domain.MonitoringEvent) (domain.MonitoringEvent, error) {
	_, err := r.db.ExecContext(ctx, `
		UPDATE monitoring_events SET abnormal_flag = $2, abnormal_reason_code = $3, reviewed_status = $4, unit = $5
		WHERE id = $1`,
		e.ID, e.AbnormalFlag, e.AbnormalReasonCode, nullableString(string(e.ReviewedStatus)), e.Unit)
	if err != nil {
		return domain.MonitoringEvent{}, domain.Internal("update monitoring event", err)
	}
	return e, nil
}

func (r *EventRepository) ListForPatient(ctx context.Context, patientID string) ([]domain.MonitoringEvent, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+selectEventColumns+` FROM monitoring_events WHERE patient_id = $1`, patientID)
	if err != nil {
		return nil, domain.Internal("list events for patient", err)
	}
	defer rows.Close()

	var out []domain.MonitoringEvent
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, domain.Internal("scan monitoring event row", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/ayushbalaji-dotcom/clozapine-antipsychotic-monitor/internal/domain"
)

// TrackedPatientRepository persists the on-demand EPR fetch bookkeeping
// spec.md's TrackedPatient type names.
type TrackedPatientRepository struct {
	db *DB
}

func NewTrackedPatientRepository(db *DB) *TrackedPatientRepository {
	return &TrackedPatientRepository{db: db}
}

// RecordFetch increments fetch_count, setting first_tracked_at on first
// contact and last_tracked_at on every call.
func (r *TrackedPatientRepository) RecordFetch(ctx context.Context, patientID string, at time.Time) (domain.TrackedPatient, error) {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO tracked_patients (patient_id, fetch_count, first_tracked_at, last_tracked_at)
		VALUES ($1, 1, $2, $2)
		ON CONFLICT (patient_id) DO UPDATE SET
			fetch_count = tracked_patients.fetch_count + 1,
			last_tracked_at = EXCLUDED.last_tracked_at`,
		patientID, at)
	if err != nil {
		return domain.TrackedPatient{}, domain.Internal("record tracked patient fetch", err)
	}

	row := r.db.QueryRowContext(ctx, `SELECT patient_id, fetch_count, first_tracked_at, last_tracked_at FROM tracked_patients WHERE patient_id = $1`, patientID)
	var tp domain.TrackedPatient
	if err := row.Scan(&tp.PatientID, &tp.FetchCount, &tp.FirstTrackedAt, &tp.LastTrackedAt); err != nil {
		return domain.TrackedPatient{}, domain.Internal("read back tracked patient", err)
	}
	return tp, nil
}

func (r *TrackedPatientRepository) Get(ctx context.Context, patientID string) (*domain.TrackedPatient, error) {
	row := r.db.QueryRowContext(ctx, `SELECT patient_id, fetch_count, first_tracked_at, last_tracked_at FROM tracked_patients WHERE patient_id = $1`, patientID)
	var tp domain.TrackedPatient
	err := row.Scan(&tp.PatientID, &tp.FetchCount, &tp.FirstTrackedAt, &tp.LastTrackedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, domain.Internal("get tracked patient", err)
	}
	return &tp, nil
}

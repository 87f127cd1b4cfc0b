package postgres

import (
	"context"
	"database/sql"

	"github.com/ayushbalaji-dotcom/clozapine-antipsychotic-monitor/internal/domain"
)

// PatientRepository is the Patient system of record.
type PatientRepository struct {
	db *DB
}

func NewPatientRepository(db *DB) *PatientRepository { return &PatientRepository{db: db} }

func (r *PatientRepository) Get(ctx context.Context, id string) (*domain.Patient, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, pseudonym, sex, age_band, ecg_indicated, cv_risk_present, family_history_cvd, inpatient_admission
		FROM patients WHERE id = $1`, id)

	var p domain.Patient
	var sex, ageBand sql.NullString
	err := row.Scan(&p.ID, &p.Pseudonym, &sex, &ageBand,
		&p.RiskFlags.ECGIndicated, &p.RiskFlags.CVRiskPresent, &p.RiskFlags.FamilyHistoryCVD, &p.RiskFlags.InpatientAdmission)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, domain.Internal("get patient", err)
	}
	p.Sex, p.AgeBand = sex.String, ageBand.String
	return &p, nil
}

// List returns every patient, ordered by id, for export-bundle generation.
func (r *PatientRepository) List(ctx context.Context) ([]domain.Patient, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, pseudonym, sex, age_band, ecg_indicated, cv_risk_present, family_history_cvd, inpatient_admission
		FROM patients ORDER BY id`)
	if err != nil {
		return nil, domain.Internal("list patients", err)
	}
	defer rows.Close()

	var out []domain.Patient
	for rows.Next() {
		var p domain.Patient
		var sex, ageBand sql.NullString
		if err := rows.Scan(&p.ID, &p.Pseudonym, &sex, &ageBand,
			&p.RiskFlags.ECGIndicated, &p.RiskFlags.CVRiskPresent, &p.RiskFlags.FamilyHistoryCVD, &p.RiskFlags.InpatientAdmission); err != nil {
			return nil, domain.Internal("scan patient row", err)
		}
		p.Sex, p.AgeBand = sex.String, ageBand.String
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PatientRepository) Upsert(ctx context.Context, p domain.Patient) (domain.Patient, error) {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO patients (id, pseudonym, sex, age_band, ecg_indicated, cv_risk_present, family_history_cvd, inpatient_admission)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			pseudonym = EXCLUDED.pseudonym, sex = EXCLUDED.sex, age_band = EXCLUDED.age_band,
			ecg_indicated = EXCLUDED.ecg_indicated, cv_risk_present = EXCLUDED.cv_risk_present,
			family_history_cvd = EXCLUDED.family_history_cvd, inpatient_admission = EXCLUDED.inpatient_admission`,
		p.ID, p.Pseudonym, nullableString(p.Sex), nullableString(p.AgeBand),
		p.RiskFlags.ECGIndicated, p.RiskFlags.CVRiskPresent, p.RiskFlags.FamilyHistoryCVD, p.RiskFlags.InpatientAdmission)
	if err != nil {
		return domain.Patient{}, domain.Internal("upsert patient", err)
	}
	return p, nil
}

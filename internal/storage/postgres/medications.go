package postgres

import (
	"context"
	"database/sql"

	"github.com/ayushbalaji-dotcom/clozapine-antipsychotic-monitor/internal/domain"
)

// MedicationOrderRepository is the MedicationOrder system of record.
type MedicationOrderRepository struct {
	db *DB
}

func NewMedicationOrderRepository(db *DB) *MedicationOrderRepository {
	return &MedicationOrderRepository{db: db}
}

func (r *MedicationOrderRepository) Get(ctx context.Context, id string) (*domain.MedicationOrder, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, patient_id, drug_name, drug_category, start_date, stop_date, dose, route, frequency,
			is_clozapine, is_olanzapine, is_chlorpromazine, is_hdat, source_system, source_id
		FROM medication_orders WHERE id = $1`, id)
	m, err := scanMedicationOrder(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, domain.Internal("get medication order", err)
	}
	return &m, nil
}

func (r *MedicationOrderRepository) ListActiveForPatient(ctx context.Context, patientID string) ([]domain.MedicationOrder, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, patient_id, drug_name, drug_category, start_date, stop_date, dose, route, frequency,
			is_clozapine, is_olanzapine, is_chlorpromazine, is_hdat, source_system, source_id
		FROM medication_orders WHERE patient_id = $1 AND (stop_date IS NULL OR stop_date >= start_date)`, patientID)
	if err != nil {
		return nil, domain.Internal("list active medication orders", err)
	}
	defer rows.Close()

	var out []domain.MedicationOrder
	for rows.Next() {
		m, err := scanMedicationOrder(rows)
		if err != nil {
			return nil, domain.Internal("scan medication order row", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *MedicationOrderRepository) Insert(ctx context.Context, m domain.MedicationOrder) (domain.MedicationOrder, error) {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO medication_orders
			(id, patient_id, drug_name, drug_category, start_date, stop_date, dose, route, frequency,
			 is_clozapine, is_olanzapine, is_chlorpromazine, is_hdat, source_system, source_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		m.ID, m.PatientID, m.DrugName, m.DrugCategory, m.StartDate, m.StopDate, m.Dose, m.Route, m.Frequency,
		m.Flags.IsClozapine, m.Flags.IsOlanzapine, m.Flags.IsChlorpromazine, m.Flags.IsHDAT, m.SourceSystem, m.SourceID)
	if err != nil {
		return domain.MedicationOrder{}, domain.Internal("insert medication order", err)
	}
	return m, nil
}

func scanMedicationOrder(row interface{ Scan(...any) error }) (domain.MedicationOrder, error) {
	var m domain.MedicationOrder
	var stopDate sql.NullTime
	err := row.Scan(&m.ID, &m.PatientID, &m.DrugName, &m.DrugCategory, &m.StartDate, &stopDate, &m.Dose, &m.Route, &m.Frequency,
		&m.Flags.IsClozapine, &m.Flags.IsOlanzapine, &m.Flags.IsChlorpromazine, &m.Flags.IsHDAT, &m.SourceSystem, &m.SourceID)
	if err != nil {
		return domain.MedicationOrder{}, err
	}
	if stopDate.Valid {
		m.StopDate = &stopDate.Time
	}
	return m, nil
}

package postgres

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/ayushbalaji-dotcom/clozapine-antipsychotic-monitor/internal/domain"
	"github.com/google/uuid"
)

// ThresholdRepository implements threshold.Upserter (for CSV bulk import)
// plus the read paths Evaluate needs, using the ON CONFLICT ... DO UPDATE
// idiom the teacher's libs/ingest/sql.go upserts with.
type ThresholdRepository struct {
	db *DB
}

func NewThresholdRepository(db *DB) *ThresholdRepository { return &ThresholdRepository{db: db} }

// UpsertBatch implements threshold.Upserter, keyed on (monitoring_type,
// unit, sex, age_band, source_system_scope, version) so re-importing the
// same CSV is idempotent.
func (r *ThresholdRepository) UpsertBatch(ctx context.Context, batch []domain.ReferenceThreshold) error {
	if len(batch) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Internal("begin threshold upsert transaction", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO reference_thresholds
			(id, monitoring_type, unit, comparator_type, sex, age_band, source_system_scope,
			 low_critical, low_warning, high_warning, high_critical, coded_abnormal_values, enabled, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (monitoring_type, unit, sex, age_band, source_system_scope, version) DO UPDATE SET
			comparator_type = EXCLUDED.comparator_type,
			low_critical = EXCLUDED.low_critical,
			low_warning = EXCLUDED.low_warning,
			high_warning = EXCLUDED.high_warning,
			high_critical = EXCLUDED.high_critical,
			coded_abnormal_values = EXCLUDED.coded_abnormal_values,
			enabled = EXCLUDED.enabled`)
	if err != nil {
		return domain.Internal("prepare threshold upsert", err)
	}
	defer stmt.Close()

	for _, t := range batch {
		coded, err := json.Marshal(t.CodedAbnormalValues)
		if err != nil {
			return domain.Internal("marshal coded_abnormal_values", err)
		}
		if t.ID == "" {
			t.ID = uuid.NewString()
		}
		_, err = stmt.ExecContext(ctx, t.ID, t.MonitoringType, t.Unit, t.ComparatorType,
			nullableString(t.Sex), nullableString(t.AgeBand), nullableString(t.SourceSystemScope),
			t.LowCritical, t.LowWarning, t.HighWarning, t.HighCritical, coded, t.Enabled, t.Version)
		if err != nil {
			return domain.Internal("upsert reference threshold", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return domain.Internal("commit threshold upsert transaction", err)
	}
	return nil
}

// ListEnabledFor returns every enabled threshold for monitoringType, the
// read path threshold.Evaluate consumes.
func (r *ThresholdRepository) ListEnabledFor(ctx context.Context, monitoringType string) ([]domain.ReferenceThreshold, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, monitoring_type, unit, comparator_type, sex, age_band, source_system_scope,
			low_critical, low_warning, high_warning, high_critical, coded_abnormal_values, enabled, version
		FROM reference_thresholds WHERE monitoring_type = $1 AND enabled = true`, monitoringType)
	if err != nil {
		return nil, domain.Internal("list enabled thresholds", err)
	}
	defer rows.Close()

	var out []domain.ReferenceThreshold
	for rows.Next() {
		var t domain.ReferenceThreshold
		var sex, ageBand, scope sql.NullString
		var coded []byte
		if err := rows.Scan(&t.ID, &t.MonitoringType, &t.Unit, &t.ComparatorType, &sex, &ageBand, &scope,
			&t.LowCritical, &t.LowWarning, &t.HighWarning, &t.HighCritical, &coded, &t.Enabled, &t.Version); err != nil {
			return nil, domain.Internal("scan reference threshold row", err)
		}
		t.Sex, t.AgeBand, t.SourceSystemScope = sex.String, ageBand.String, scope.String
		if len(coded) > 0 {
			if err := json.Unmarshal(coded, &t.CodedAbnormalValues); err != nil {
				return nil, domain.Internal("unmarshal coded_abnormal_values", err)
			}
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

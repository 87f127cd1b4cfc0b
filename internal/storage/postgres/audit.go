package postgres

import (
	"context"
	"encoding/json"

	"github.com/ayushbalaji-dotcom/clozapine-antipsychotic-monitor/internal/domain"
)

// AuditRepository implements audit.Sink against Postgres. cmd/monitor does
// not wire it: with postgresDsn set, audit events still go to the bbolt
// sink when auditBoltPath is set, and nowhere otherwise.
type AuditRepository struct {
	db *DB
}

func NewAuditRepository(db *DB) *AuditRepository { return &AuditRepository{db: db} }

func (r *AuditRepository) SaveAuditEvent(ctx context.Context, event domain.AuditEvent) error {
	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return domain.Internal("marshal audit payload", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO audit_events
			(id, correlation_id, actor, action, entity_type, entity_id, outcome, timestamp, request_id, ip_address, payload, error)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		event.ID, nullableString(event.CorrelationID), nullableString(event.Actor), event.Action,
		event.EntityType, event.EntityID, event.Outcome, event.Timestamp,
		nullableString(event.RequestID), nullableString(event.IPAddress), payload, nullableString(event.Error))
	if err != nil {
		return domain.Internal("insert audit event", err)
	}
	return nil
}

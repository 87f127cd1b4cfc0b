package domain

import "time"

// AuditOutcome classifies how an orchestrated stage concluded.
type AuditOutcome string

const (
	AuditOutcomeStarted  AuditOutcome = "started"
	AuditOutcomeSuccess  AuditOutcome = "success"
	AuditOutcomeSkipped  AuditOutcome = "skipped"
	AuditOutcomeRejected AuditOutcome = "rejected"
	AuditOutcomeError    AuditOutcome = "error"
)

// AuditEvent records one orchestrated action for the audit sink. The field
// set is richer than the teacher's own AuditEvent (actor, entity_type,
// entity_id, request_id, ip_address) to match original_source's audit
// model, which the distilled spec drops but the orchestrator still needs
// for operator-facing audit trails.
type AuditEvent struct {
	ID            string
	CorrelationID string
	Actor         string
	Action        string
	EntityType    string
	EntityID      string
	Outcome       AuditOutcome
	Timestamp     time.Time
	RequestID     string
	IPAddress     string
	Payload       map[string]any
	Error         string
}

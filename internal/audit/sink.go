// Package audit implements the AuditEvent sink C4/C6 write their audit
// records through (spec.md's audit requirement): task create/update,
// mark-done, waive and auto-complete, and notification creation. The daily
// sweep's status transitions and notification read/acknowledge are not
// audited. Ported from the
// teacher's AuditLogger/LogDecision pattern.
package audit

import (
	"context"
	"time"

	"github.com/ayushbalaji-dotcom/clozapine-antipsychotic-monitor/internal/domain"
	"github.com/ayushbalaji-dotcom/clozapine-antipsychotic-monitor/internal/observability"
	"github.com/google/uuid"
)

// Sink is the narrow persistence contract a Logger writes through. Both the
// Postgres-backed and bbolt-backed implementations satisfy it.
type Sink interface {
	SaveAuditEvent(ctx context.Context, event domain.AuditEvent) error
}

// Logger fills in the fields a caller typically leaves zero (ID, timestamp,
// correlation ID from context) before handing the event to a Sink. A nil
// Logger, or one with a nil Sink, is a safe no-op, mirroring the teacher's
// AuditLogger.
type Logger struct {
	sink  Sink
	clock func() time.Time
}

// NewLogger wraps sink. A nil sink makes every Log call a no-op.
func NewLogger(sink Sink) *Logger {
	return &Logger{sink: sink, clock: func() time.Time { return time.Now().UTC() }}
}

func (l *Logger) Log(ctx context.Context, event domain.AuditEvent) error {
	if l == nil || l.sink == nil {
		return nil
	}
	if event.CorrelationID == "" {
		event.CorrelationID = observability.CorrelationIDFromContext(ctx)
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = l.clock()
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	return l.sink.SaveAuditEvent(ctx, event)
}

// Record implements the tasks.AuditSink / notify.AuditSink interfaces those
// packages depend on, so a *Logger can be passed directly where either
// expects an AuditSink.
func (l *Logger) Record(ctx context.Context, event domain.AuditEvent) error {
	return l.Log(ctx, event)
}

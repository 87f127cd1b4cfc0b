// Package notify implements the deduplicated in-app notification engine
// (spec.md §4.6, C6): overdue/escalation sweeps and abnormal-event alerts,
// all keyed by a globally unique dedupe_key.
package notify

import (
	"context"

	"github.com/ayushbalaji-dotcom/clozapine-antipsychotic-monitor/internal/domain"
)

// Store is the persistence contract the notification engine reconciles
// against. FindByDedupeKey is the serialization point spec.md §6 names for
// the "double-invocation is a no-op" dedup contract.
type Store interface {
	FindByDedupeKey(ctx context.Context, dedupeKey string) (*domain.InAppNotification, error)
	Insert(ctx context.Context, n domain.InAppNotification) (domain.InAppNotification, error)
	Update(ctx context.Context, n domain.InAppNotification) (domain.InAppNotification, error)
	Get(ctx context.Context, id string) (*domain.InAppNotification, error)
}

// AuditSink records the NOTIFICATION_CREATED audit events. Acknowledge and
// MarkRead write no audit record. Mirrors internal/tasks.AuditSink.
type AuditSink interface {
	Record(ctx context.Context, event domain.AuditEvent) error
}

// EventStore lets the engine mark a linked event REVIEWED when its
// notification is acknowledged.
type EventStore interface {
	Get(ctx context.Context, id string) (*domain.MonitoringEvent, error)
	Update(ctx context.Context, event domain.MonitoringEvent) (domain.MonitoringEvent, error)
}

// OpenTaskLookup lets NotifyAbnormalEvent find "the earliest-due open task's
// assignee" for a patient, per spec.md §4.6.
type OpenTaskLookup interface {
	EarliestOpenTaskAssignee(ctx context.Context, patientID string) (assignee string, ok bool, err error)
}

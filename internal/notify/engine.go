package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/ayushbalaji-dotcom/clozapine-antipsychotic-monitor/internal/domain"
	"github.com/google/uuid"
)

// Config carries the recognized notification settings from spec.md §6.
type Config struct {
	EscalationThresholdDays int
	TeamInboxID             string
	TeamLeadInboxID         string
	Enabled                 bool
}

// ProcessOverdueTasks implements spec.md §4.6's overdue sweep: one
// TASK_OVERDUE notification per OVERDUE task (skipped if its dedupe_key
// already exists), plus a TASK_ESCALATED notification addressed to the
// team-lead inbox once the task has been overdue for at least
// escalation_threshold_days.
func ProcessOverdueTasks(ctx context.Context, store Store, audit AuditSink, channel SendChannel, cfg Config, overdue []domain.MonitoringTask, today time.Time) ([]domain.InAppNotification, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	var created []domain.InAppNotification

	for _, task := range overdue {
		n, didCreate, err := createIfAbsent(ctx, store, audit, channel, domain.InAppNotification{
			NotificationType: domain.NotificationTaskOverdue,
			Priority:         domain.PriorityWarning,
			DedupeKey:        fmt.Sprintf("TASK_OVERDUE:%s", task.ID),
			PatientID:        task.PatientID,
			TaskID:           task.ID,
			RecipientType:    recipientTypeFor(task.AssignedTo),
			Recipient:        recipientFor(task.AssignedTo, cfg.TeamInboxID),
		})
		if err != nil {
			return created, err
		}
		if didCreate {
			created = append(created, n)
		}

		daysOverdue := int(today.Sub(task.DueDate).Hours() / 24)
		if daysOverdue >= cfg.EscalationThresholdDays {
			esc, didCreate, err := createIfAbsent(ctx, store, audit, channel, domain.InAppNotification{
				NotificationType: domain.NotificationTaskEscalated,
				Priority:         domain.PriorityCritical,
				DedupeKey:        fmt.Sprintf("TASK_ESCALATED:%s", task.ID),
				PatientID:        task.PatientID,
				TaskID:           task.ID,
				RecipientType:    domain.RecipientTeam,
				Recipient:        cfg.TeamLeadInboxID,
			})
			if err != nil {
				return created, err
			}
			if didCreate {
				created = append(created, esc)
			}
		}
	}
	return created, nil
}

// NotifyAbnormalEvent implements spec.md §4.6's abnormal-event alert: fired
// when C5 yields OUTSIDE_WARNING or OUTSIDE_CRITICAL. Recipient is the
// earliest-due open task's assignee if any, otherwise the team inbox.
func NotifyAbnormalEvent(ctx context.Context, store Store, audit AuditSink, channel SendChannel, cfg Config, lookup OpenTaskLookup, event domain.MonitoringEvent) (*domain.InAppNotification, error) {
	if !cfg.Enabled || !event.AbnormalFlag.IsAbnormal() {
		return nil, nil
	}

	notificationType := domain.NotificationEventWarning
	priority := domain.PriorityWarning
	if event.AbnormalFlag == domain.FlagOutsideCritical {
		notificationType = domain.NotificationEventCritical
		priority = domain.PriorityCritical
	}

	recipientType := domain.RecipientTeam
	recipient := cfg.TeamInboxID
	if lookup != nil {
		if assignee, ok, err := lookup.EarliestOpenTaskAssignee(ctx, event.PatientID); err != nil {
			return nil, err
		} else if ok && assignee != "" {
			recipientType = domain.RecipientUser
			recipient = assignee
		}
	}

	n, didCreate, err := createIfAbsent(ctx, store, audit, channel, domain.InAppNotification{
		NotificationType: notificationType,
		Priority:         priority,
		DedupeKey:        fmt.Sprintf("%s:%s", notificationType, event.ID),
		PatientID:        event.PatientID,
		EventID:          event.ID,
		RecipientType:    recipientType,
		Recipient:        recipient,
	})
	if err != nil {
		return nil, err
	}
	if !didCreate {
		return nil, nil
	}
	return &n, nil
}

// createIfAbsent is the dedup serialization point spec.md §4.6 names: a
// notification with the same dedupe_key already existing makes creation a
// no-op. New notifications are created UNREAD, audited, and handed to the
// SendChannel.
func createIfAbsent(ctx context.Context, store Store, audit AuditSink, channel SendChannel, n domain.InAppNotification) (domain.InAppNotification, bool, error) {
	existing, err := store.FindByDedupeKey(ctx, n.DedupeKey)
	if err != nil {
		return domain.InAppNotification{}, false, err
	}
	if existing != nil {
		return *existing, false, nil
	}

	n.ID = uuid.NewString()
	n.Status = domain.NotificationUnread
	n.CreatedAt = today()

	inserted, err := store.Insert(ctx, n)
	if err != nil {
		return domain.InAppNotification{}, false, err
	}

	auditRecord(ctx, audit, "NOTIFICATION_CREATED", inserted.ID, map[string]any{
		"notification_type": string(inserted.NotificationType),
		"dedupe_key":        inserted.DedupeKey,
		"patient_id":        inserted.PatientID,
	})

	if channel == nil {
		channel = NoopSendChannel{}
	}
	if err := channel.Deliver(ctx, inserted); err != nil {
		return inserted, true, err
	}
	return inserted, true, nil
}

func recipientTypeFor(assignedTo string) domain.RecipientType {
	if assignedTo == "" {
		return domain.RecipientTeam
	}
	return domain.RecipientUser
}

func recipientFor(assignedTo, teamInboxID string) string {
	if assignedTo == "" {
		return teamInboxID
	}
	return assignedTo
}

func auditRecord(ctx context.Context, audit AuditSink, action, entityID string, payload map[string]any) {
	if audit == nil {
		return
	}
	_ = audit.Record(ctx, domain.AuditEvent{
		Action:     action,
		EntityType: "InAppNotification",
		EntityID:   entityID,
		Outcome:    domain.AuditOutcomeSuccess,
		Timestamp:  today(),
		Payload:    payload,
	})
}

// today returns the current time. Wrapped for clarity; callers pass fixed
// "today" values into the sweep functions above, this is only used for
// record timestamps.
func today() time.Time { return time.Now().UTC() }

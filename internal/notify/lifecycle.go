package notify

import (
	"context"
	"time"

	"github.com/ayushbalaji-dotcom/clozapine-antipsychotic-monitor/internal/domain"
)

// MarkRead transitions a notification UNREAD→READ. Idempotent if already
// read or acked, per spec.md §4.6.
func MarkRead(ctx context.Context, store Store, id string, at time.Time) (domain.InAppNotification, error) {
	n, err := store.Get(ctx, id)
	if err != nil {
		return domain.InAppNotification{}, err
	}
	if n == nil {
		return domain.InAppNotification{}, domain.NotFound("notification not found", nil)
	}
	if n.Status != domain.NotificationUnread {
		return *n, nil
	}
	n.Status = domain.NotificationRead
	readAt := at
	n.ReadAt = &readAt
	return store.Update(ctx, *n)
}

// Acknowledge transitions a notification to ACKED terminally. If the
// notification is linked to an event, it also sets the event's
// reviewed_status to REVIEWED, per spec.md §4.6.
func Acknowledge(ctx context.Context, store Store, events EventStore, id, actor string, at time.Time) (domain.InAppNotification, error) {
	n, err := store.Get(ctx, id)
	if err != nil {
		return domain.InAppNotification{}, err
	}
	if n == nil {
		return domain.InAppNotification{}, domain.NotFound("notification not found", nil)
	}
	if n.Status == domain.NotificationAcked {
		return *n, nil
	}

	ackedAt := at
	n.Status = domain.NotificationAcked
	n.AckedAt = &ackedAt
	n.AckedBy = actor

	updated, err := store.Update(ctx, *n)
	if err != nil {
		return domain.InAppNotification{}, err
	}

	if n.EventID != "" && events != nil {
		event, err := events.Get(ctx, n.EventID)
		if err != nil {
			return updated, err
		}
		if event != nil {
			event.ReviewedStatus = domain.ReviewReviewed
			if _, err := events.Update(ctx, *event); err != nil {
				return updated, err
			}
		}
	}

	return updated, nil
}

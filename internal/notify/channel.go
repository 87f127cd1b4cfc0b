package notify

import (
	"context"

	"github.com/ayushbalaji-dotcom/clozapine-antipsychotic-monitor/internal/domain"
)

// SendChannel is the narrow "hands a record to a send-channel abstraction"
// contract spec.md's Non-goals describe for outbound delivery (email, IM,
// paging). The engine only ever calls Deliver; whether that fans out beyond
// the in-app record is entirely the collaborator's concern.
type SendChannel interface {
	Deliver(ctx context.Context, n domain.InAppNotification) error
}

// NoopSendChannel discards every notification. It is the default collaborator
// when no external delivery is configured.
type NoopSendChannel struct{}

func (NoopSendChannel) Deliver(ctx context.Context, n domain.InAppNotification) error {
	return nil
}

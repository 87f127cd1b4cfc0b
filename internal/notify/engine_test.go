package notify

import (
	"context"
	"testing"
	"time"

	"github.com/ayushbalaji-dotcom/clozapine-antipsychotic-monitor/internal/domain"
)

type fakeStore struct {
	byID     map[string]domain.InAppNotification
	byDedupe map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{byID: map[string]domain.InAppNotification{}, byDedupe: map[string]string{}}
}

func (f *fakeStore) FindByDedupeKey(ctx context.Context, dedupeKey string) (*domain.InAppNotification, error) {
	id, ok := f.byDedupe[dedupeKey]
	if !ok {
		return nil, nil
	}
	n := f.byID[id]
	return &n, nil
}

func (f *fakeStore) Insert(ctx context.Context, n domain.InAppNotification) (domain.InAppNotification, error) {
	f.byID[n.ID] = n
	f.byDedupe[n.DedupeKey] = n.ID
	return n, nil
}

func (f *fakeStore) Update(ctx context.Context, n domain.InAppNotification) (domain.InAppNotification, error) {
	f.byID[n.ID] = n
	return n, nil
}

func (f *fakeStore) Get(ctx context.Context, id string) (*domain.InAppNotification, error) {
	n, ok := f.byID[id]
	if !ok {
		return nil, nil
	}
	return &n, nil
}

type countingChannel struct{ deliveries int }

func (c *countingChannel) Deliver(ctx context.Context, n domain.InAppNotification) error {
	c.deliveries++
	return nil
}

func TestProcessOverdueTasks_TwoSweepsCreateExactlyOneNotification(t *testing.T) {
	store := newFakeStore()
	channel := &countingChannel{}
	cfg := Config{Enabled: true, EscalationThresholdDays: 30, TeamInboxID: "team-default"}
	task := domain.MonitoringTask{ID: "task1", PatientID: "p1", DueDate: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), Status: domain.TaskOverdue}
	today := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)

	first, err := ProcessOverdueTasks(context.Background(), store, nil, channel, cfg, []domain.MonitoringTask{task}, today)
	if err != nil {
		t.Fatalf("first sweep: %v", err)
	}
	if len(first) != 1 {
		t.Fatalf("expected 1 notification from first sweep, got %d", len(first))
	}

	second, err := ProcessOverdueTasks(context.Background(), store, nil, channel, cfg, []domain.MonitoringTask{task}, today)
	if err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	if len(second) != 0 {
		t.Fatalf("expected 0 notifications from second sweep, got %d", len(second))
	}
	if channel.deliveries != 1 {
		t.Fatalf("expected exactly 1 delivery, got %d", channel.deliveries)
	}
}

func TestProcessOverdueTasks_EscalatesPastThreshold(t *testing.T) {
	store := newFakeStore()
	cfg := Config{Enabled: true, EscalationThresholdDays: 30, TeamInboxID: "team-default", TeamLeadInboxID: "team-lead"}
	task := domain.MonitoringTask{ID: "task1", PatientID: "p1", DueDate: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), Status: domain.TaskOverdue}
	today := time.Date(2025, 2, 5, 0, 0, 0, 0, time.UTC) // 35 days overdue

	created, err := ProcessOverdueTasks(context.Background(), store, nil, nil, cfg, []domain.MonitoringTask{task}, today)
	if err != nil {
		t.Fatalf("ProcessOverdueTasks: %v", err)
	}
	if len(created) != 2 {
		t.Fatalf("expected overdue + escalated notifications, got %d", len(created))
	}
	var sawEscalated bool
	for _, n := range created {
		if n.NotificationType == domain.NotificationTaskEscalated {
			sawEscalated = true
			if n.Recipient != "team-lead" || n.RecipientType != domain.RecipientTeam {
				t.Fatalf("escalated notification misaddressed: %#v", n)
			}
		}
	}
	if !sawEscalated {
		t.Fatalf("expected an escalated notification, got %#v", created)
	}
}

func TestProcessOverdueTasks_AssigneeGetsUserRecipient(t *testing.T) {
	store := newFakeStore()
	cfg := Config{Enabled: true, EscalationThresholdDays: 30, TeamInboxID: "team-default"}
	task := domain.MonitoringTask{ID: "task1", PatientID: "p1", AssignedTo: "nurse.jones", DueDate: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), Status: domain.TaskOverdue}
	today := time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC)

	created, err := ProcessOverdueTasks(context.Background(), store, nil, nil, cfg, []domain.MonitoringTask{task}, today)
	if err != nil {
		t.Fatalf("ProcessOverdueTasks: %v", err)
	}
	if len(created) != 1 || created[0].RecipientType != domain.RecipientUser || created[0].Recipient != "nurse.jones" {
		t.Fatalf("expected user-addressed notification, got %#v", created)
	}
}

func TestProcessOverdueTasks_DisabledIsNoop(t *testing.T) {
	store := newFakeStore()
	cfg := Config{Enabled: false}
	task := domain.MonitoringTask{ID: "task1", DueDate: time.Now(), Status: domain.TaskOverdue}
	created, err := ProcessOverdueTasks(context.Background(), store, nil, nil, cfg, []domain.MonitoringTask{task}, time.Now())
	if err != nil {
		t.Fatalf("ProcessOverdueTasks: %v", err)
	}
	if len(created) != 0 {
		t.Fatalf("expected no notifications when disabled, got %d", len(created))
	}
}

type fixedLookup struct {
	assignee string
	ok       bool
}

func (f fixedLookup) EarliestOpenTaskAssignee(ctx context.Context, patientID string) (string, bool, error) {
	return f.assignee, f.ok, nil
}

func TestNotifyAbnormalEvent_RoutesToOpenTaskAssignee(t *testing.T) {
	store := newFakeStore()
	cfg := Config{Enabled: true, TeamInboxID: "team-default"}
	event := domain.MonitoringEvent{ID: "e1", PatientID: "p1", AbnormalFlag: domain.FlagOutsideCritical}

	n, err := NotifyAbnormalEvent(context.Background(), store, nil, nil, cfg, fixedLookup{assignee: "dr.smith", ok: true}, event)
	if err != nil {
		t.Fatalf("NotifyAbnormalEvent: %v", err)
	}
	if n == nil || n.RecipientType != domain.RecipientUser || n.Recipient != "dr.smith" {
		t.Fatalf("expected notification routed to assignee, got %#v", n)
	}
	if n.DedupeKey != "EVENT_CRITICAL:e1" {
		t.Fatalf("unexpected dedupe_key %s", n.DedupeKey)
	}
}

func TestNotifyAbnormalEvent_FallsBackToTeamInbox(t *testing.T) {
	store := newFakeStore()
	cfg := Config{Enabled: true, TeamInboxID: "team-default"}
	event := domain.MonitoringEvent{ID: "e2", PatientID: "p1", AbnormalFlag: domain.FlagOutsideWarning}

	n, err := NotifyAbnormalEvent(context.Background(), store, nil, nil, cfg, fixedLookup{ok: false}, event)
	if err != nil {
		t.Fatalf("NotifyAbnormalEvent: %v", err)
	}
	if n == nil || n.RecipientType != domain.RecipientTeam || n.Recipient != "team-default" {
		t.Fatalf("expected team-addressed notification, got %#v", n)
	}
}

func TestNotifyAbnormalEvent_NormalFlagIsNoop(t *testing.T) {
	store := newFakeStore()
	cfg := Config{Enabled: true}
	event := domain.MonitoringEvent{ID: "e3", AbnormalFlag: domain.FlagNormal}

	n, err := NotifyAbnormalEvent(context.Background(), store, nil, nil, cfg, nil, event)
	if err != nil {
		t.Fatalf("NotifyAbnormalEvent: %v", err)
	}
	if n != nil {
		t.Fatalf("expected no notification for a normal flag, got %#v", n)
	}
}

func TestMarkRead_IdempotentWhenAlreadyRead(t *testing.T) {
	store := newFakeStore()
	readAt := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	store.byID["n1"] = domain.InAppNotification{ID: "n1", Status: domain.NotificationRead, ReadAt: &readAt}

	got, err := MarkRead(context.Background(), store, "n1", time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("MarkRead: %v", err)
	}
	if !got.ReadAt.Equal(readAt) {
		t.Fatalf("expected idempotent no-op, read_at changed to %v", got.ReadAt)
	}
}

type fakeEventStore struct {
	events map[string]domain.MonitoringEvent
}

func (f *fakeEventStore) Get(ctx context.Context, id string) (*domain.MonitoringEvent, error) {
	e, ok := f.events[id]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (f *fakeEventStore) Update(ctx context.Context, e domain.MonitoringEvent) (domain.MonitoringEvent, error) {
	f.events[e.ID] = e
	return e, nil
}

func TestAcknowledge_SetsLinkedEventReviewed(t *testing.T) {
	store := newFakeStore()
	store.byID["n1"] = domain.InAppNotification{ID: "n1", Status: domain.NotificationUnread, EventID: "e1"}
	events := &fakeEventStore{events: map[string]domain.MonitoringEvent{"e1": {ID: "e1", ReviewedStatus: domain.ReviewPending}}}

	got, err := Acknowledge(context.Background(), store, events, "n1", "dr.smith", time.Now())
	if err != nil {
		t.Fatalf("Acknowledge: %v", err)
	}
	if got.Status != domain.NotificationAcked || got.AckedBy != "dr.smith" {
		t.Fatalf("expected ACKED by dr.smith, got %#v", got)
	}
	if events.events["e1"].ReviewedStatus != domain.ReviewReviewed {
		t.Fatalf("expected linked event REVIEWED, got %s", events.events["e1"].ReviewedStatus)
	}
}

package domain

import "time"

// NotificationType identifies which condition produced an InAppNotification.
type NotificationType string

const (
	NotificationTaskOverdue   NotificationType = "TASK_OVERDUE"
	NotificationTaskEscalated NotificationType = "TASK_ESCALATED"
	NotificationEventWarning  NotificationType = "EVENT_WARNING"
	NotificationEventCritical NotificationType = "EVENT_CRITICAL"
)

// NotificationPriority ranks an InAppNotification for display/routing.
type NotificationPriority string

const (
	PriorityInfo     NotificationPriority = "INFO"
	PriorityWarning  NotificationPriority = "WARNING"
	PriorityCritical NotificationPriority = "CRITICAL"
)

// InAppNotificationStatus is the lifecycle state of a notification.
type InAppNotificationStatus string

const (
	NotificationUnread InAppNotificationStatus = "UNREAD"
	NotificationRead   InAppNotificationStatus = "READ"
	NotificationAcked  InAppNotificationStatus = "ACKED"
)

// RecipientType distinguishes a single addressed user from a team inbox.
type RecipientType string

const (
	RecipientUser RecipientType = "USER"
	RecipientTeam RecipientType = "TEAM"
)

// InAppNotification is addressed to a recipient and deduplicated by key.
type InAppNotification struct {
	ID               string
	NotificationType NotificationType
	Priority         NotificationPriority
	Status           InAppNotificationStatus
	RecipientType    RecipientType
	Recipient        string // username or inbox id, depending on RecipientType
	PatientID        string
	TaskID           string
	EventID          string
	DedupeKey        string
	CreatedAt        time.Time
	ReadAt           *time.Time
	AckedAt          *time.Time
	AckedBy          string
}

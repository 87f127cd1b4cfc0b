package domain

import (
	"strings"
	"time"
)

// TaskStatus is the lifecycle state of a MonitoringTask.
type TaskStatus string

const (
	TaskDue      TaskStatus = "DUE"
	TaskOverdue  TaskStatus = "OVERDUE"
	TaskDone     TaskStatus = "DONE"
	TaskWaived   TaskStatus = "WAIVED"
	TaskOngoing  TaskStatus = "ONGOING"
)

// IsTerminal reports whether status never regresses through automatic
// reconciliation (spec.md §3 MonitoringTask invariant).
func (s TaskStatus) IsTerminal() bool {
	return s == TaskDone || s == TaskWaived
}

// MonitoringTask is a derived obligation owned by exactly one
// MedicationOrder.
type MonitoringTask struct {
	ID                string
	PatientID         string
	MedicationOrderID string
	TestType          string
	DueDate           time.Time
	Status            TaskStatus
	AssignedTo        string
	WaivedReason      string
	WaivedUntil       *time.Time
	CompletedAt       *time.Time
}

// ReviewStatus of a MonitoringEvent following threshold classification.
type ReviewStatus string

const (
	ReviewPending  ReviewStatus = "PENDING_REVIEW"
	ReviewReviewed ReviewStatus = "REVIEWED"
)

// AbnormalFlag is the classification a MonitoringEvent value receives
// against reference thresholds.
type AbnormalFlag string

const (
	FlagNormal          AbnormalFlag = "NORMAL"
	FlagOutsideWarning  AbnormalFlag = "OUTSIDE_WARNING"
	FlagOutsideCritical AbnormalFlag = "OUTSIDE_CRITICAL"
	FlagUnknown         AbnormalFlag = "UNKNOWN"
)

// IsAbnormal reports whether flag warrants PENDING_REVIEW and notification.
func (f AbnormalFlag) IsAbnormal() bool {
	return f == FlagOutsideWarning || f == FlagOutsideCritical
}

// MonitoringEvent is an observed test result.
type MonitoringEvent struct {
	ID                 string
	PatientID          string
	MedicationOrderID  string // optional, soft linkage
	TestType           string
	PerformedDate      time.Time
	Value              string
	Unit               string
	Interpretation     string
	SourceSystem       string
	SourceID           string
	AbnormalFlag       AbnormalFlag
	AbnormalReasonCode string
	ReviewedStatus     ReviewStatus // empty string == null
}

// MatchesTestType implements the one fuzzy test-type matching rule spec.md
// §4.3 step 4 names: exact match, or glucose/hba1c cross-match — either side
// containing "glucose" or "hba1c" matches the other side containing
// "glucose" or "hba1c" (case-insensitive), so a Glucose task matches an
// HbA1c event and vice versa.
func MatchesTestType(a, b string) bool {
	na, nb := strings.ToLower(strings.TrimSpace(a)), strings.ToLower(strings.TrimSpace(b))
	if na == nb {
		return true
	}
	aGlycemic := strings.Contains(na, "glucose") || strings.Contains(na, "hba1c")
	bGlycemic := strings.Contains(nb, "glucose") || strings.Contains(nb, "hba1c")
	return aGlycemic && bGlycemic
}

// TrackedPatient is purely bookkeeping: a counter of on-demand EPR fetches
// attached to a patient.
type TrackedPatient struct {
	PatientID      string
	FetchCount     int
	FirstTrackedAt time.Time
	LastTrackedAt  time.Time
}

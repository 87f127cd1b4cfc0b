// Package rules implements the per-drug special-case transformations spec.md
// §4.2 calls out: ECG indication, the clozapine FBC schedule override, and
// the HDAT add-on task. Each is a small, closed, tagged transformation
// applied after generic milestone expansion — a discriminated-union
// post-processing pipeline rather than a category subclass hierarchy, per
// the Design Notes decision recorded in DESIGN.md.
package rules

import (
	"time"

	"github.com/ayushbalaji-dotcom/clozapine-antipsychotic-monitor/internal/domain"
)

// ecgPlaceholder is the milestone test name the ruleset uses to mark a test
// that only becomes "ECG" when indicated.
const ecgPlaceholder = "ECG_if_indicated"

// ShouldRequireECG implements spec.md §4.2's ECG indication rule: the drug
// name alone, or any of the four patient risk flags.
func ShouldRequireECG(med domain.MedicationOrder, patient domain.Patient) bool {
	return med.IndicatesECGByName() || patient.RiskFlags.AnyIndicatesECG()
}

// ResolveECGPlaceholder turns an ECG_if_indicated test name into "ECG" when
// indicated, or reports that the test should be dropped otherwise.
func ResolveECGPlaceholder(testType string, med domain.MedicationOrder, patient domain.Patient) (resolved string, keep bool) {
	if testType != ecgPlaceholder {
		return testType, true
	}
	if ShouldRequireECG(med, patient) {
		return "ECG", true
	}
	return "", false
}

// ClozapineFBCTask is one task in the explicit clozapine FBC schedule.
type ClozapineFBCTask struct {
	DueDate time.Time
}

// ClozapineFBCSchedule implements spec.md §4.2's clozapine FBC override,
// pinned to the exact week offsets confirmed against original_source:
// weekly for weeks 1..18, then every two weeks for 17 occurrences starting
// at week 20 (ending at week 52), then every 4 weeks after week 52
// through horizonYears*52 weeks (this final phase increments in weeks,
// not months). No week appears twice.
func ClozapineFBCSchedule(start time.Time, horizonYears int) []ClozapineFBCTask {
	var tasks []ClozapineFBCTask

	for week := 1; week <= 18; week++ {
		tasks = append(tasks, ClozapineFBCTask{DueDate: start.AddDate(0, 0, week*7)})
	}

	for i := 0; i < 17; i++ {
		week := 20 + 2*i
		tasks = append(tasks, ClozapineFBCTask{DueDate: start.AddDate(0, 0, week*7)})
	}

	horizonWeeks := horizonYears * 52
	for week := 56; week <= horizonWeeks; week += 4 {
		tasks = append(tasks, ClozapineFBCTask{DueDate: start.AddDate(0, 0, week*7)})
	}

	return tasks
}

// StatusForDueDate assigns OVERDUE if due before today, else DUE — the
// status clozapine FBC tasks carry per spec.md §4.2.
func StatusForDueDate(due, today time.Time) domain.TaskStatus {
	if due.Before(today) {
		return domain.TaskOverdue
	}
	return domain.TaskDue
}

// HDATHydrationTask returns the single "Hydration vigilance" ONGOING task
// HDAT orders add, per spec.md §4.2.
func HDATHydrationTask(start time.Time) (testType string, dueDate time.Time, status domain.TaskStatus) {
	return "Hydration vigilance", start, domain.TaskOngoing
}

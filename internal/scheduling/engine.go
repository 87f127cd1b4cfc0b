// Package scheduling expands a medication order into a deduplicated,
// sorted list of MonitoringTasks bounded by stop-date and horizon
// (spec.md §4.3, component C3).
package scheduling

import (
	"sort"
	"time"

	"github.com/ayushbalaji-dotcom/clozapine-antipsychotic-monitor/internal/domain"
	"github.com/ayushbalaji-dotcom/clozapine-antipsychotic-monitor/internal/rules"
	"github.com/ayushbalaji-dotcom/clozapine-antipsychotic-monitor/internal/ruleset"
)

// Options configures one expansion run; WindowDays and HorizonYears come
// from the global Settings (spec.md §6 configuration keys).
type Options struct {
	WindowDays   int
	HorizonYears int
	Today        time.Time // injected for determinism in tests; defaults to time.Now().UTC()
}

func (o Options) today() time.Time {
	if o.Today.IsZero() {
		return time.Now().UTC()
	}
	return o.Today
}

// milestoneHit is one (test_type, due_date) pair produced before dedup.
type milestoneHit struct {
	TestType string
	DueDate  time.Time
}

// Expand implements the full algorithm of spec.md §4.3: category
// resolution, milestone expansion, ECG resolution, existing-event
// matching, clozapine/HDAT post-processing, dedup, stop-date filtering,
// and final sort.
func Expand(rs *ruleset.Ruleset, med domain.MedicationOrder, patient domain.Patient, events []domain.MonitoringEvent, opts Options) ([]domain.MonitoringTask, error) {
	category := med.EffectiveCategory()
	categoryRules, err := rs.CategoryFor(category)
	if err != nil {
		return nil, err
	}

	hits := expandMilestones(categoryRules, med, opts)
	hits = resolveECG(hits, med, patient)

	tasks := make([]domain.MonitoringTask, 0, len(hits))
	for _, hit := range hits {
		tasks = append(tasks, buildTask(med, hit, events, opts))
	}

	tasks = applyClozapineOverride(tasks, med, opts)
	tasks = applyHDATAddOn(tasks, med)

	tasks = dedup(tasks)
	tasks = filterStopDate(tasks, med)
	sortTasks(tasks)

	return tasks, nil
}

func expandMilestones(cat ruleset.CategoryRules, med domain.MedicationOrder, opts Options) []milestoneHit {
	var hits []milestoneHit

	for _, test := range cat.Baseline {
		hits = append(hits, milestoneHit{TestType: test, DueDate: med.StartDate})
	}

	if cat.Weekly != nil {
		for i := 0; i < cat.Weekly.Count; i++ {
			due := med.StartDate.AddDate(0, 0, (i+1)*cat.Weekly.IntervalWeeks*7)
			for _, test := range cat.Weekly.Tests {
				hits = append(hits, milestoneHit{TestType: test, DueDate: due})
			}
		}
	}

	for _, milestone := range cat.Milestones {
		due := AddMonths(med.StartDate, milestone.Months)
		removed := map[string]bool{}
		if exc, ok := milestone.Exceptions[med.NormalizedDrugName()]; ok {
			for _, t := range exc.RemoveTests {
				removed[t] = true
			}
		}
		for _, test := range milestone.Tests {
			if removed[test] {
				continue
			}
			hits = append(hits, milestoneHit{TestType: test, DueDate: due})
		}
	}

	horizonMonths := opts.HorizonYears * 12

	if cat.Annual != nil {
		for year := 2; year <= opts.HorizonYears; year++ {
			due := AddMonths(med.StartDate, year*12)
			for _, test := range cat.Annual.Tests {
				hits = append(hits, milestoneHit{TestType: test, DueDate: due})
			}
		}
	}
	if cat.Every3Months != nil {
		for months := 15; months <= horizonMonths; months += 3 {
			due := AddMonths(med.StartDate, months)
			for _, test := range cat.Every3Months.Tests {
				hits = append(hits, milestoneHit{TestType: test, DueDate: due})
			}
		}
	}
	if cat.Every4To6Months != nil {
		for months := 16; months <= horizonMonths; months += 5 {
			due := AddMonths(med.StartDate, months)
			for _, test := range cat.Every4To6Months.Tests {
				hits = append(hits, milestoneHit{TestType: test, DueDate: due})
			}
		}
	}
	if cat.Every6Months != nil {
		for months := 18; months <= horizonMonths; months += 6 {
			due := AddMonths(med.StartDate, months)
			for _, test := range cat.Every6Months.Tests {
				hits = append(hits, milestoneHit{TestType: test, DueDate: due})
			}
		}
	}

	return hits
}

func resolveECG(hits []milestoneHit, med domain.MedicationOrder, patient domain.Patient) []milestoneHit {
	out := make([]milestoneHit, 0, len(hits))
	for _, hit := range hits {
		resolved, keep := rules.ResolveECGPlaceholder(hit.TestType, med, patient)
		if !keep {
			continue
		}
		hit.TestType = resolved
		out = append(out, hit)
	}
	return out
}

// buildTask applies spec.md §4.3 step 4: match an existing event within
// ±window_days using the exact-or-fuzzy test-type rule; if found the task
// is born DONE with completed_at at UTC midnight of the performed date.
func buildTask(med domain.MedicationOrder, hit milestoneHit, events []domain.MonitoringEvent, opts Options) domain.MonitoringTask {
	task := domain.MonitoringTask{
		PatientID:         med.PatientID,
		MedicationOrderID: med.ID,
		TestType:          hit.TestType,
		DueDate:           hit.DueDate,
		Status:            rules.StatusForDueDate(hit.DueDate, opts.today()),
	}

	window := time.Duration(opts.WindowDays) * 24 * time.Hour
	for _, event := range events {
		if !domain.MatchesTestType(event.TestType, hit.TestType) {
			continue
		}
		diff := event.PerformedDate.Sub(hit.DueDate)
		if diff < 0 {
			diff = -diff
		}
		if diff > window {
			continue
		}
		completedAt := midnightUTC(event.PerformedDate)
		task.Status = domain.TaskDone
		task.CompletedAt = &completedAt
		break
	}

	return task
}

func midnightUTC(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// applyClozapineOverride discards baseline-derived FBC tasks and replaces
// them with the explicit schedule from internal/rules, per spec.md §4.2.
func applyClozapineOverride(tasks []domain.MonitoringTask, med domain.MedicationOrder, opts Options) []domain.MonitoringTask {
	if !med.IsClozapine() {
		return tasks
	}

	out := make([]domain.MonitoringTask, 0, len(tasks))
	for _, t := range tasks {
		if domain.MatchesTestType(t.TestType, "FBC") {
			continue
		}
		out = append(out, t)
	}

	for _, fbc := range rules.ClozapineFBCSchedule(med.StartDate, opts.HorizonYears) {
		out = append(out, domain.MonitoringTask{
			PatientID:         med.PatientID,
			MedicationOrderID: med.ID,
			TestType:          "FBC",
			DueDate:           fbc.DueDate,
			Status:            rules.StatusForDueDate(fbc.DueDate, opts.today()),
		})
	}
	return out
}

// applyHDATAddOn appends the single ONGOING hydration-vigilance task for
// HDAT orders, per spec.md §4.2.
func applyHDATAddOn(tasks []domain.MonitoringTask, med domain.MedicationOrder) []domain.MonitoringTask {
	if med.EffectiveCategory() != domain.CategoryHDAT {
		return tasks
	}
	testType, due, status := rules.HDATHydrationTask(med.StartDate)
	return append(tasks, domain.MonitoringTask{
		PatientID:         med.PatientID,
		MedicationOrderID: med.ID,
		TestType:          testType,
		DueDate:           due,
		Status:            status,
	})
}

// dedup removes duplicates by (test_type, due_date, medication_order_id)
// per spec.md §4.3 step 6, keeping the first occurrence.
func dedup(tasks []domain.MonitoringTask) []domain.MonitoringTask {
	type key struct {
		testType string
		due      int64
		medID    string
	}
	seen := make(map[key]bool, len(tasks))
	out := make([]domain.MonitoringTask, 0, len(tasks))
	for _, t := range tasks {
		k := key{t.TestType, t.DueDate.Unix(), t.MedicationOrderID}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, t)
	}
	return out
}

// filterStopDate drops tasks with due_date > stop_date, per spec.md §4.3
// step 7.
func filterStopDate(tasks []domain.MonitoringTask, med domain.MedicationOrder) []domain.MonitoringTask {
	if med.StopDate == nil {
		return tasks
	}
	out := make([]domain.MonitoringTask, 0, len(tasks))
	for _, t := range tasks {
		if t.DueDate.After(*med.StopDate) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// sortTasks orders by (due_date ascending, test_type ascending), per
// spec.md §4.3 step 8.
func sortTasks(tasks []domain.MonitoringTask) {
	sort.SliceStable(tasks, func(i, j int) bool {
		if !tasks[i].DueDate.Equal(tasks[j].DueDate) {
			return tasks[i].DueDate.Before(tasks[j].DueDate)
		}
		return tasks[i].TestType < tasks[j].TestType
	})
}

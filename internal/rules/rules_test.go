package rules

import (
	"testing"
	"time"

	"github.com/ayushbalaji-dotcom/clozapine-antipsychotic-monitor/internal/domain"
)

func TestShouldRequireECG_ByDrugName(t *testing.T) {
	med := domain.MedicationOrder{DrugName: "Haloperidol"}
	if !ShouldRequireECG(med, domain.Patient{}) {
		t.Fatal("haloperidol should require ECG regardless of risk flags")
	}
}

func TestShouldRequireECG_ByRiskFlag(t *testing.T) {
	med := domain.MedicationOrder{DrugName: "risperidone"}
	patient := domain.Patient{RiskFlags: domain.RiskFlags{CVRiskPresent: true}}
	if !ShouldRequireECG(med, patient) {
		t.Fatal("cv_risk_present should require ECG")
	}
}

func TestShouldRequireECG_NeitherDrugNorFlag(t *testing.T) {
	med := domain.MedicationOrder{DrugName: "risperidone"}
	if ShouldRequireECG(med, domain.Patient{}) {
		t.Fatal("should not require ECG with no indication")
	}
}

func TestResolveECGPlaceholder_DropsWhenNotIndicated(t *testing.T) {
	med := domain.MedicationOrder{DrugName: "risperidone"}
	_, keep := ResolveECGPlaceholder("ECG_if_indicated", med, domain.Patient{})
	if keep {
		t.Fatal("expected ECG_if_indicated to be dropped")
	}
}

func TestResolveECGPlaceholder_ResolvesToECG(t *testing.T) {
	med := domain.MedicationOrder{DrugName: "Pimozide"}
	resolved, keep := ResolveECGPlaceholder("ECG_if_indicated", med, domain.Patient{})
	if !keep || resolved != "ECG" {
		t.Fatalf("expected ECG, got %q keep=%v", resolved, keep)
	}
}

func TestResolveECGPlaceholder_PassesThroughOtherTests(t *testing.T) {
	med := domain.MedicationOrder{DrugName: "risperidone"}
	resolved, keep := ResolveECGPlaceholder("FBC", med, domain.Patient{})
	if !keep || resolved != "FBC" {
		t.Fatalf("expected FBC unchanged, got %q keep=%v", resolved, keep)
	}
}

func TestClozapineFBCSchedule_WeeklyPhase(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	tasks := ClozapineFBCSchedule(start, 5)

	weekly := 0
	for _, task := range tasks {
		days := int(task.DueDate.Sub(start).Hours() / 24)
		if days <= 18*7 {
			weekly++
		}
	}
	if weekly != 18 {
		t.Errorf("expected 18 weekly FBC tasks in weeks 1-18, got %d", weekly)
	}
}

func TestClozapineFBCSchedule_BiweeklyPhase(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	tasks := ClozapineFBCSchedule(start, 5)

	biweekly := 0
	for _, task := range tasks {
		days := int(task.DueDate.Sub(start).Hours() / 24)
		if days > 18*7 && days <= 52*7 {
			biweekly++
		}
	}
	if biweekly != 17 {
		t.Errorf("expected 17 biweekly FBC tasks in (week 18, week 52], got %d", biweekly)
	}
}

func TestClozapineFBCSchedule_FourWeeklyPhaseAfterYearOne(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	tasks := ClozapineFBCSchedule(start, 5)

	after := 0
	for _, task := range tasks {
		days := int(task.DueDate.Sub(start).Hours() / 24)
		if days > 52*7 {
			after++
		}
	}
	if after < 12 {
		t.Errorf("expected at least 12 FBC tasks after week 52 across remaining years, got %d", after)
	}
}

func TestStatusForDueDate(t *testing.T) {
	today := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	if got := StatusForDueDate(today.AddDate(0, 0, -1), today); got != domain.TaskOverdue {
		t.Errorf("expected OVERDUE for past due date, got %s", got)
	}
	if got := StatusForDueDate(today.AddDate(0, 0, 1), today); got != domain.TaskDue {
		t.Errorf("expected DUE for future due date, got %s", got)
	}
}

func TestHDATHydrationTask(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	testType, due, status := HDATHydrationTask(start)
	if testType != "Hydration vigilance" || !due.Equal(start) || status != domain.TaskOngoing {
		t.Fatalf("unexpected HDAT task: %s %s %s", testType, due, status)
	}
}

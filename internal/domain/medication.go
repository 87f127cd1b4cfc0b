package domain

import (
	"strings"
	"time"
)

// ecgIndicatedDrugs are the drug names that indicate ECG by name alone,
// independent of any patient risk flag.
var ecgIndicatedDrugs = map[string]bool{
	"haloperidol": true,
	"pimozide":    true,
	"sertindole":  true,
}

func normalizeDrugName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// MedicationFlags mirrors the flags mapping on a medication order.
type MedicationFlags struct {
	IsClozapine      bool
	IsOlanzapine     bool
	IsChlorpromazine bool
	IsHDAT           bool
}

// MedicationOrder belongs to exactly one patient and drives scheduling.
type MedicationOrder struct {
	ID             string
	PatientID      string
	DrugName       string
	DrugCategory   DrugCategory
	StartDate      time.Time
	StopDate       *time.Time
	Dose           string
	Route          string
	Frequency      string
	Flags          MedicationFlags
	SourceSystem   string
	SourceID       string
}

// NormalizedDrugName returns DrugName lower-cased and trimmed, the form
// every rule-matching comparison uses.
func (m MedicationOrder) NormalizedDrugName() string {
	return normalizeDrugName(m.DrugName)
}

// IndicatesECGByName reports whether the drug name alone requires ECG.
func (m MedicationOrder) IndicatesECGByName() bool {
	return ecgIndicatedDrugs[m.NormalizedDrugName()]
}

// IsClozapine reports clozapine by flag or by name.
func (m MedicationOrder) IsClozapine() bool {
	return m.Flags.IsClozapine || m.NormalizedDrugName() == "clozapine"
}

// EffectiveCategory resolves the scheduling category per spec.md §4.3 step 1
// and the Open Question (a) decision recorded in DESIGN.md: HDAT wins if
// flag or declared category say so, then special-group drug names upgrade
// the category, otherwise the declared category stands.
func (m MedicationOrder) EffectiveCategory() DrugCategory {
	if m.Flags.IsHDAT || m.DrugCategory == CategoryHDAT {
		return CategoryHDAT
	}
	if IsSpecialGroupDrug(m.DrugName) {
		return CategorySpecialGroup
	}
	if m.DrugCategory == "" {
		return CategoryStandard
	}
	return m.DrugCategory
}

// Valid checks the start_date ≤ stop_date invariant from spec.md §3.
func (m MedicationOrder) Valid() bool {
	if m.StopDate == nil {
		return true
	}
	return !m.StartDate.After(*m.StopDate)
}

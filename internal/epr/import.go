package epr

import (
	"strings"

	"github.com/ayushbalaji-dotcom/clozapine-antipsychotic-monitor/internal/domain"
	"github.com/google/uuid"
)

// ParseMedication maps a single FHIR-ish medication resource into a
// MedicationOrder for patientID, mirroring original_source's
// IntegrationService._import_medications row handling. ok is false when
// the resource is missing drug_name or start_date.
func ParseMedication(payload map[string]any, patientID string) (domain.MedicationOrder, bool) {
	drugName := FieldString(payload, "drug_name", "medication", "medicationText", "name")
	if drugName == "" {
		if concept, ok := payload["medicationCodeableConcept"].(map[string]any); ok {
			drugName = FieldString(concept, "text")
		}
	}
	if drugName == "" {
		return domain.MedicationOrder{}, false
	}

	start, ok := ParseDate(GetField(payload, "start_date", "authoredOn", "start"))
	if !ok {
		return domain.MedicationOrder{}, false
	}

	med := domain.MedicationOrder{
		PatientID:    patientID,
		DrugName:     drugName,
		StartDate:    start,
		Dose:         FieldString(payload, "dose", "dosage"),
		Route:        FieldString(payload, "route"),
		Frequency:    FieldString(payload, "frequency"),
		SourceSystem: "EPR_FETCH",
		SourceID:     FieldString(payload, "id"),
		Flags: domain.MedicationFlags{
			IsHDAT: FieldBool(payload, "is_hdat"),
		},
	}
	if stop, ok := ParseDate(GetField(payload, "stop_date", "end")); ok {
		med.StopDate = &stop
	}

	switch strings.ToLower(drugName) {
	case "chlorpromazine":
		med.Flags.IsChlorpromazine = true
	case "clozapine":
		med.Flags.IsClozapine = true
	case "olanzapine":
		med.Flags.IsOlanzapine = true
	}
	if med.Flags.IsHDAT {
		med.DrugCategory = domain.CategoryHDAT
	} else if domain.IsSpecialGroupDrug(drugName) {
		med.DrugCategory = domain.CategorySpecialGroup
	} else {
		med.DrugCategory = domain.CategoryStandard
	}

	return med, true
}

// ParseEvent maps a single FHIR-ish observation resource into a
// MonitoringEvent for patientID, mirroring original_source's
// IntegrationService._import_events row handling. ok is false when the
// resource is missing test_type or performed_date.
func ParseEvent(payload map[string]any, patientID string) (domain.MonitoringEvent, bool) {
	testType := FieldString(payload, "test_type", "type", "code")
	performed, hasDate := ParseDate(GetField(payload, "performed_date", "effectiveDateTime", "date"))
	if testType == "" || !hasDate {
		return domain.MonitoringEvent{}, false
	}

	value := FieldString(payload, "value", "valueString", "valueText")
	unit := FieldString(payload, "unit", "unitText")
	if quantity, ok := payload["valueQuantity"].(map[string]any); ok {
		if value == "" {
			value = FieldString(quantity, "value")
		}
		if unit == "" {
			unit = FieldString(quantity, "unit")
		}
	}

	return domain.MonitoringEvent{
		ID:             uuid.NewString(),
		PatientID:      patientID,
		TestType:       testType,
		PerformedDate:  performed,
		Value:          value,
		Unit:           unit,
		Interpretation: FieldString(payload, "interpretation"),
		SourceSystem:   "EPR_FETCH",
		SourceID:       FieldString(payload, "id"),
		ReviewedStatus: domain.ReviewPending,
	}, true
}

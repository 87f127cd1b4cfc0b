// Package export builds the ZIP bundle spec.md §6 names as an output:
// patients.csv, medications.csv, events.csv with stable headers, matching
// the column names original_source's csv_ingestion.py accepts on the way
// in, so a round-tripped export can be re-ingested unchanged.
package export

import (
	"archive/zip"
	"context"
	"encoding/csv"
	"io"
	"time"

	"github.com/ayushbalaji-dotcom/clozapine-antipsychotic-monitor/internal/domain"
)

var patientsHeader = []string{"pseudonymous_number", "age_band", "sex"}

var medicationsHeader = []string{
	"pseudonymous_number", "drug_name", "drug_category", "start_date",
	"stop_date", "dose", "route", "frequency",
}

var eventsHeader = []string{
	"pseudonymous_number", "test_type", "performed_date", "value", "unit",
	"interpretation", "abnormal_flag",
}

// Source is the narrow read contract the bundle builder needs. A caller
// typically backs this with the storage layer's repositories queried
// per-patient, or an in-memory snapshot for tests.
type Source interface {
	Patients(ctx context.Context) ([]domain.Patient, error)
	MedicationsFor(ctx context.Context, patientID string) ([]domain.MedicationOrder, error)
	EventsFor(ctx context.Context, patientID string) ([]domain.MonitoringEvent, error)
}

// Write builds the ZIP bundle into w, reading every patient from src and,
// for each, its medication orders and monitoring events.
func Write(ctx context.Context, w io.Writer, src Source) error {
	patients, err := src.Patients(ctx)
	if err != nil {
		return err
	}

	zw := zip.NewWriter(w)
	defer zw.Close()

	if err := writeCSVEntry(zw, "patients.csv", patientsHeader, func(cw *csv.Writer) error {
		for _, p := range patients {
			if err := cw.Write([]string{p.Pseudonym, p.AgeBand, p.Sex}); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return err
	}

	if err := writeCSVEntry(zw, "medications.csv", medicationsHeader, func(cw *csv.Writer) error {
		for _, p := range patients {
			orders, err := src.MedicationsFor(ctx, p.ID)
			if err != nil {
				return err
			}
			for _, m := range orders {
				if err := cw.Write(medicationRow(p, m)); err != nil {
					return err
				}
			}
		}
		return nil
	}); err != nil {
		return err
	}

	return writeCSVEntry(zw, "events.csv", eventsHeader, func(cw *csv.Writer) error {
		for _, p := range patients {
			events, err := src.EventsFor(ctx, p.ID)
			if err != nil {
				return err
			}
			for _, e := range events {
				if err := cw.Write(eventRow(p, e)); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

func medicationRow(p domain.Patient, m domain.MedicationOrder) []string {
	stop := ""
	if m.StopDate != nil {
		stop = m.StopDate.Format(time.DateOnly)
	}
	return []string{
		p.Pseudonym, m.DrugName, string(m.DrugCategory),
		m.StartDate.Format(time.DateOnly), stop, m.Dose, m.Route, m.Frequency,
	}
}

func eventRow(p domain.Patient, e domain.MonitoringEvent) []string {
	return []string{
		p.Pseudonym, e.TestType, e.PerformedDate.Format(time.DateOnly), e.Value,
		e.Unit, e.Interpretation, string(e.AbnormalFlag),
	}
}

func writeCSVEntry(zw *zip.Writer, name string, header []string, body func(*csv.Writer) error) error {
	entry, err := zw.Create(name)
	if err != nil {
		return err
	}
	cw := csv.NewWriter(entry)
	if err := cw.Write(header); err != nil {
		return err
	}
	if err := body(cw); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

// Package orchestrator wires C1-C7 into the entry points spec.md §2 names:
// ingest a medication order, ingest a monitoring event, run the daily
// sweep, and the optional on-demand EPR fetch-and-import. Ported from the
// teacher's Orchestrator (nil-checked collaborator injection, per-stage
// audit logging via LogDecision).
package orchestrator

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/ayushbalaji-dotcom/clozapine-antipsychotic-monitor/internal/audit"
	"github.com/ayushbalaji-dotcom/clozapine-antipsychotic-monitor/internal/domain"
	"github.com/ayushbalaji-dotcom/clozapine-antipsychotic-monitor/internal/epr"
	"github.com/ayushbalaji-dotcom/clozapine-antipsychotic-monitor/internal/metrics"
	"github.com/ayushbalaji-dotcom/clozapine-antipsychotic-monitor/internal/notify"
	"github.com/ayushbalaji-dotcom/clozapine-antipsychotic-monitor/internal/observability"
	"github.com/ayushbalaji-dotcom/clozapine-antipsychotic-monitor/internal/ruleset"
	"github.com/ayushbalaji-dotcom/clozapine-antipsychotic-monitor/internal/scheduling"
	"github.com/ayushbalaji-dotcom/clozapine-antipsychotic-monitor/internal/tasks"
	"github.com/ayushbalaji-dotcom/clozapine-antipsychotic-monitor/internal/threshold"
	"github.com/google/uuid"
)

// Patients is the narrow patient lookup the orchestrator needs.
type Patients interface {
	Get(ctx context.Context, id string) (*domain.Patient, error)
	Upsert(ctx context.Context, p domain.Patient) (domain.Patient, error)
}

// TrackedPatients records on-demand EPR fetch bookkeeping for FetchAndImport.
type TrackedPatients interface {
	RecordFetch(ctx context.Context, patientID string, at time.Time) (domain.TrackedPatient, error)
}

// Medications is the narrow medication persistence contract.
// ListActiveForPatient backs FetchAndImport's dedup-by-drug-and-start-date
// check against repeated EPR fetches of the same medication.
type Medications interface {
	Get(ctx context.Context, id string) (*domain.MedicationOrder, error)
	Insert(ctx context.Context, m domain.MedicationOrder) (domain.MedicationOrder, error)
	ListActiveForPatient(ctx context.Context, patientID string) ([]domain.MedicationOrder, error)
}

// Events is the narrow event persistence contract, also usable as
// notify.EventStore directly.
type Events interface {
	Get(ctx context.Context, id string) (*domain.MonitoringEvent, error)
	Insert(ctx context.Context, e domain.MonitoringEvent) (domain.MonitoringEvent, error)
	Update(ctx context.Context, e domain.MonitoringEvent) (domain.MonitoringEvent, error)
	ListForPatient(ctx context.Context, patientID string) ([]domain.MonitoringEvent, error)
}

// Thresholds is the narrow read contract C5 needs.
type Thresholds interface {
	ListEnabledFor(ctx context.Context, monitoringType string) ([]domain.ReferenceThreshold, error)
}

// Settings carries the recognized notification/scheduling keys from
// spec.md §6 the orchestrator threads through to C3/C4/C6.
type Settings struct {
	WindowDays              int
	EscalationThresholdDays int
	HorizonYears            int
	TeamInboxID             string
	TeamLeadInboxID         string
	NotificationsEnabled    bool
}

// Orchestrator wires every component into the three named entry points.
type Orchestrator struct {
	rulesets    *ruleset.Loader
	patients    Patients
	medications Medications
	events      Events
	thresholds  Thresholds
	tasks       tasks.Store
	notify      notify.Store
	channel     notify.SendChannel
	audit       *audit.Logger
	metrics     *metrics.Recorder
	settings    Settings
	epr         epr.Client
	tracked     TrackedPatients
}

// New constructs an Orchestrator. channel and metrics may be nil;
// notify.NoopSendChannel{} and a no-op metrics.Recorder substitute.
func New(rulesets *ruleset.Loader, patients Patients, medications Medications, events Events,
	thresholds Thresholds, taskStore tasks.Store, notifyStore notify.Store, channel notify.SendChannel,
	auditLogger *audit.Logger, rec *metrics.Recorder, settings Settings) *Orchestrator {
	if channel == nil {
		channel = notify.NoopSendChannel{}
	}
	return &Orchestrator{
		rulesets: rulesets, patients: patients, medications: medications, events: events,
		thresholds: thresholds, tasks: taskStore, notify: notifyStore, channel: channel,
		audit: auditLogger, metrics: rec, settings: settings,
	}
}

func (o *Orchestrator) notifyConfig() notify.Config {
	return notify.Config{
		EscalationThresholdDays: o.settings.EscalationThresholdDays,
		TeamInboxID:             o.settings.TeamInboxID,
		TeamLeadInboxID:         o.settings.TeamLeadInboxID,
		Enabled:                 o.settings.NotificationsEnabled,
	}
}

// OnMedicationOrder expands and reconciles the task calendar for a single
// newly ingested or updated medication order (spec.md §2 data flow).
func (o *Orchestrator) OnMedicationOrder(ctx context.Context, med domain.MedicationOrder) ([]domain.MonitoringTask, error) {
	ctx = observability.EnsureCorrelationID(ctx)
	o.logStage(ctx, "on_medication_order_start", domain.AuditOutcomeStarted, med.ID, nil)

	patient, err := o.patients.Get(ctx, med.PatientID)
	if err != nil {
		o.logStage(ctx, "on_medication_order_error", domain.AuditOutcomeError, med.ID, err)
		return nil, err
	}
	if patient == nil {
		err := domain.NotFound("patient not found for medication order", nil)
		o.logStage(ctx, "on_medication_order_error", domain.AuditOutcomeError, med.ID, err)
		return nil, err
	}

	existing, err := o.medications.Get(ctx, med.ID)
	if err != nil {
		o.logStage(ctx, "on_medication_order_error", domain.AuditOutcomeError, med.ID, err)
		return nil, err
	}
	if existing == nil {
		if _, err := o.medications.Insert(ctx, med); err != nil {
			o.logStage(ctx, "on_medication_order_error", domain.AuditOutcomeError, med.ID, err)
			return nil, err
		}
	}

	events, err := o.events.ListForPatient(ctx, med.PatientID)
	if err != nil {
		o.logStage(ctx, "on_medication_order_error", domain.AuditOutcomeError, med.ID, err)
		return nil, err
	}

	calculated, err := scheduling.Expand(o.rulesets.Current(), med, *patient, events, scheduling.Options{
		WindowDays: o.settings.WindowDays, HorizonYears: o.settings.HorizonYears,
	})
	if err != nil {
		o.logStage(ctx, "on_medication_order_error", domain.AuditOutcomeError, med.ID, err)
		return nil, err
	}

	reconciled, err := tasks.Reconcile(ctx, o.tasks, o.audit, calculated, o.settings.WindowDays)
	if err != nil {
		o.logStage(ctx, "on_medication_order_error", domain.AuditOutcomeError, med.ID, err)
		return nil, err
	}

	if o.metrics != nil {
		o.metrics.TasksExpanded.WithLabelValues(string(med.EffectiveCategory())).Add(float64(len(reconciled)))
	}
	o.logStage(ctx, "on_medication_order_success", domain.AuditOutcomeSuccess, med.ID, nil)
	return reconciled, nil
}

// OnMonitoringEvent classifies an event against enabled thresholds,
// auto-completes any matching open task, and emits an abnormal
// notification when warranted (spec.md §2 data flow).
func (o *Orchestrator) OnMonitoringEvent(ctx context.Context, event domain.MonitoringEvent) (domain.MonitoringEvent, error) {
	ctx = observability.EnsureCorrelationID(ctx)
	o.logStage(ctx, "on_monitoring_event_start", domain.AuditOutcomeStarted, event.ID, nil)

	patient, err := o.patients.Get(ctx, event.PatientID)
	if err != nil {
		o.logStage(ctx, "on_monitoring_event_error", domain.AuditOutcomeError, event.ID, err)
		return domain.MonitoringEvent{}, err
	}
	if patient == nil {
		err := domain.NotFound("patient not found for monitoring event", nil)
		o.logStage(ctx, "on_monitoring_event_error", domain.AuditOutcomeError, event.ID, err)
		return domain.MonitoringEvent{}, err
	}

	enabled, err := o.thresholds.ListEnabledFor(ctx, event.TestType)
	if err != nil {
		o.logStage(ctx, "on_monitoring_event_error", domain.AuditOutcomeError, event.ID, err)
		return domain.MonitoringEvent{}, err
	}
	threshold.Apply(&event, threshold.Evaluate(event, *patient, enabled))

	saved, err := o.events.Insert(ctx, event)
	if err != nil {
		o.logStage(ctx, "on_monitoring_event_error", domain.AuditOutcomeError, event.ID, err)
		return domain.MonitoringEvent{}, err
	}

	if _, err := tasks.AutoCompleteTasksForEvent(ctx, o.tasks, o.audit, saved, o.settings.WindowDays); err != nil {
		o.logStage(ctx, "on_monitoring_event_error", domain.AuditOutcomeError, event.ID, err)
		return domain.MonitoringEvent{}, err
	}

	if saved.AbnormalFlag.IsAbnormal() {
		lookup := taskLookup{store: o.tasks}
		if _, err := notify.NotifyAbnormalEvent(ctx, o.notify, o.audit, o.channel, o.notifyConfig(), lookup, saved); err != nil {
			o.logStage(ctx, "on_monitoring_event_error", domain.AuditOutcomeError, event.ID, err)
			return domain.MonitoringEvent{}, err
		}
	} else {
		o.logStage(ctx, "on_monitoring_event_no_notification", domain.AuditOutcomeSkipped, event.ID, nil)
	}

	o.logStage(ctx, "on_monitoring_event_success", domain.AuditOutcomeSuccess, event.ID, nil)
	return saved, nil
}

// SweepResult summarizes one DailySweep invocation.
type SweepResult struct {
	TransitionedToOverdue int
	WaiversReactivated    int
	NotificationsCreated  int
}

// DailySweep runs the three-step cron-triggered invocation spec.md §6
// names, in order: update_task_statuses, reactivate_expired_waivers,
// process_overdue_tasks.
func (o *Orchestrator) DailySweep(ctx context.Context, today time.Time) (SweepResult, error) {
	ctx = observability.EnsureCorrelationID(ctx)
	start := time.Now()
	o.logStage(ctx, "daily_sweep_start", domain.AuditOutcomeStarted, "", nil)

	var result SweepResult
	var err error

	result.TransitionedToOverdue, err = tasks.UpdateTaskStatuses(ctx, o.tasks, today)
	if err != nil {
		o.logStage(ctx, "daily_sweep_error", domain.AuditOutcomeError, "", err)
		o.metrics.ObserveSweep(start, err)
		return result, err
	}

	result.WaiversReactivated, err = tasks.ReactivateExpiredWaivers(ctx, o.tasks, today)
	if err != nil {
		o.logStage(ctx, "daily_sweep_error", domain.AuditOutcomeError, "", err)
		o.metrics.ObserveSweep(start, err)
		return result, err
	}

	overdue, err := o.tasks.ListOverdue(ctx)
	if err != nil {
		o.logStage(ctx, "daily_sweep_error", domain.AuditOutcomeError, "", err)
		o.metrics.ObserveSweep(start, err)
		return result, err
	}
	created, err := notify.ProcessOverdueTasks(ctx, o.notify, o.audit, o.channel, o.notifyConfig(), overdue, today)
	if err != nil {
		o.logStage(ctx, "daily_sweep_error", domain.AuditOutcomeError, "", err)
		o.metrics.ObserveSweep(start, err)
		return result, err
	}
	result.NotificationsCreated = len(created)

	o.metrics.ObserveSweep(start, nil)
	o.logStage(ctx, "daily_sweep_success", domain.AuditOutcomeSuccess, "", nil)
	return result, nil
}

// WireEPR attaches on-demand EPR fetch capability. Optional: FetchAndImport
// returns a CONFIGURATION_ERROR if called before this is set.
func (o *Orchestrator) WireEPR(client epr.Client, tracked TrackedPatients) {
	o.epr = client
	o.tracked = tracked
}

// ImportSummary reports what FetchAndImport applied from a single EPR
// fetch, mirroring original_source's fetch_and_import return shape.
type ImportSummary struct {
	PatientID          string
	MedicationsApplied int
	EventsApplied      int
	Errors             []string
}

// FetchAndImport pulls a patient plus their medications and observations
// from the EPR by NHS number, upserts the patient, records the on-demand
// fetch against TrackedPatient, and feeds every medication/observation
// through OnMedicationOrder/OnMonitoringEvent so an on-demand fetch drives
// the same scheduling and threshold pipeline a routine ingest would.
// Ported from original_source's IntegrationService.fetch_and_import; the
// EPR call runs through the circuit breaker epr.HTTPClient wraps, so a
// downed EPR surfaces as DEPENDENCY_UNAVAILABLE instead of hanging.
func (o *Orchestrator) FetchAndImport(ctx context.Context, nhsNumber string) (ImportSummary, error) {
	ctx = observability.EnsureCorrelationID(ctx)
	o.logStage(ctx, "fetch_and_import_start", domain.AuditOutcomeStarted, nhsNumber, nil)

	if o.epr == nil || o.tracked == nil {
		err := domain.Configuration("EPR fetch not wired", nil)
		o.logStage(ctx, "fetch_and_import_error", domain.AuditOutcomeError, nhsNumber, err)
		return ImportSummary{}, err
	}

	payload, err := o.epr.FetchPatient(ctx, nhsNumber)
	if err != nil {
		o.logStage(ctx, "fetch_and_import_error", domain.AuditOutcomeError, nhsNumber, err)
		return ImportSummary{}, err
	}
	if payload == nil {
		err := domain.NotFound("patient not found in EPR", nil)
		o.logStage(ctx, "fetch_and_import_error", domain.AuditOutcomeError, nhsNumber, err)
		return ImportSummary{}, err
	}

	pseudonym := epr.FieldString(payload, "pseudonym", "pseudonymous_number")
	if pseudonym == "" {
		err := domain.Validation(fmt.Sprintf("EPR patient %s missing pseudonym", nhsNumber), "pseudonym", nil)
		o.logStage(ctx, "fetch_and_import_error", domain.AuditOutcomeError, nhsNumber, err)
		return ImportSummary{}, err
	}

	patient := domain.Patient{
		ID:        pseudonym,
		Pseudonym: pseudonym,
		Sex:       epr.FieldString(payload, "sex", "gender"),
		AgeBand:   epr.FieldString(payload, "age_band", "ageBand"),
	}
	if _, err := o.patients.Upsert(ctx, patient); err != nil {
		o.logStage(ctx, "fetch_and_import_error", domain.AuditOutcomeError, nhsNumber, err)
		return ImportSummary{}, err
	}
	if _, err := o.tracked.RecordFetch(ctx, patient.ID, time.Now().UTC()); err != nil {
		o.logStage(ctx, "fetch_and_import_error", domain.AuditOutcomeError, nhsNumber, err)
		return ImportSummary{}, err
	}

	patientRef := epr.FieldString(payload, "id", "patient_id")
	if patientRef == "" {
		patientRef = pseudonym
	}

	summary := ImportSummary{PatientID: patient.ID}

	meds, err := o.epr.FetchMedications(ctx, patientRef)
	if err != nil {
		o.logStage(ctx, "fetch_and_import_error", domain.AuditOutcomeError, nhsNumber, err)
		return summary, err
	}
	active, err := o.medications.ListActiveForPatient(ctx, patient.ID)
	if err != nil {
		o.logStage(ctx, "fetch_and_import_error", domain.AuditOutcomeError, nhsNumber, err)
		return summary, err
	}

	for idx, raw := range meds {
		med, ok := epr.ParseMedication(raw, patient.ID)
		if !ok {
			summary.Errors = append(summary.Errors, fmt.Sprintf("medication row %d: missing drug_name or start_date", idx))
			continue
		}
		med.ID = existingMedicationID(active, med)
		if _, err := o.OnMedicationOrder(ctx, med); err != nil {
			summary.Errors = append(summary.Errors, fmt.Sprintf("medication row %d: %v", idx, err))
			continue
		}
		summary.MedicationsApplied++
	}

	obs, err := o.epr.FetchObservations(ctx, patientRef)
	if err != nil {
		o.logStage(ctx, "fetch_and_import_error", domain.AuditOutcomeError, nhsNumber, err)
		return summary, err
	}
	for idx, raw := range obs {
		event, ok := epr.ParseEvent(raw, patient.ID)
		if !ok {
			summary.Errors = append(summary.Errors, fmt.Sprintf("observation row %d: missing test_type or performed_date", idx))
			continue
		}
		if _, err := o.OnMonitoringEvent(ctx, event); err != nil {
			summary.Errors = append(summary.Errors, fmt.Sprintf("observation row %d: %v", idx, err))
			continue
		}
		summary.EventsApplied++
	}

	o.logStage(ctx, "fetch_and_import_success", domain.AuditOutcomeSuccess, nhsNumber, nil)
	return summary, nil
}

// existingMedicationID returns the ID of an already-stored active order for
// the same patient, drug, and start date as med, or a freshly generated ID
// when none matches — the repeated-fetch dedup original_source's
// _import_medications performs with a (patient_id, drug_name, start_date)
// query.
func existingMedicationID(active []domain.MedicationOrder, med domain.MedicationOrder) string {
	for _, a := range active {
		if a.NormalizedDrugName() == med.NormalizedDrugName() && a.StartDate.Equal(med.StartDate) {
			return a.ID
		}
	}
	return uuid.NewString()
}

func (o *Orchestrator) logStage(ctx context.Context, action string, outcome domain.AuditOutcome, entityID string, err error) {
	if o.audit == nil {
		return
	}
	event := domain.AuditEvent{
		Action:     action,
		EntityType: "orchestrator_stage",
		EntityID:   entityID,
		Outcome:    outcome,
	}
	if err != nil {
		event.Error = err.Error()
	}
	_ = o.audit.Log(ctx, event)
}

// taskLookup adapts tasks.Store into notify.OpenTaskLookup: the
// earliest-due non-terminal task's assignee for a patient.
type taskLookup struct {
	store tasks.Store
}

func (l taskLookup) EarliestOpenTaskAssignee(ctx context.Context, patientID string) (string, bool, error) {
	open, err := l.store.ListByPatientAndStatus(ctx, patientID, []domain.TaskStatus{domain.TaskDue, domain.TaskOverdue, domain.TaskOngoing})
	if err != nil {
		return "", false, err
	}
	sort.Slice(open, func(i, j int) bool { return open[i].DueDate.Before(open[j].DueDate) })
	for _, t := range open {
		if t.AssignedTo != "" {
			return t.AssignedTo, true, nil
		}
	}
	return "", false, nil
}

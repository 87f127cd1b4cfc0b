// Command monitor is the CLI entrypoint for the monitoring orchestrator: a
// single binary exposing sweep, import-thresholds, export-bundle, and
// fetch-patient subcommands without ever standing up HTTP transport (out of
// scope), mirroring the teacher's cmd/jax-api/main.go wiring style.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ayushbalaji-dotcom/clozapine-antipsychotic-monitor/internal/audit"
	"github.com/ayushbalaji-dotcom/clozapine-antipsychotic-monitor/internal/config"
	"github.com/ayushbalaji-dotcom/clozapine-antipsychotic-monitor/internal/domain"
	"github.com/ayushbalaji-dotcom/clozapine-antipsychotic-monitor/internal/epr"
	"github.com/ayushbalaji-dotcom/clozapine-antipsychotic-monitor/internal/export"
	"github.com/ayushbalaji-dotcom/clozapine-antipsychotic-monitor/internal/metrics"
	"github.com/ayushbalaji-dotcom/clozapine-antipsychotic-monitor/internal/orchestrator"
	"github.com/ayushbalaji-dotcom/clozapine-antipsychotic-monitor/internal/ruleset"
	"github.com/ayushbalaji-dotcom/clozapine-antipsychotic-monitor/internal/storage/memstore"
	"github.com/ayushbalaji-dotcom/clozapine-antipsychotic-monitor/internal/storage/postgres"
	"github.com/ayushbalaji-dotcom/clozapine-antipsychotic-monitor/internal/threshold"

	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var configPath string
	fs := flag.NewFlagSet(os.Args[1], flag.ExitOnError)
	fs.StringVar(&configPath, "config", "config/monitor.json", "Path to monitor.json")
	if err := fs.Parse(os.Args[2:]); err != nil {
		log.Fatal(err)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	env, err := wireEnvironment(ctx, cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer env.Close()

	switch os.Args[1] {
	case "sweep":
		runSweep(ctx, env)
	case "import-thresholds":
		runImportThresholds(ctx, env, fs.Args())
	case "export-bundle":
		runExportBundle(ctx, env, fs.Args())
	case "fetch-patient":
		runFetchPatient(ctx, env, fs.Args())
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: monitor <sweep|import-thresholds|export-bundle|fetch-patient> [-config path] [args...]")
}

// environment holds every wired collaborator a subcommand might need.
type environment struct {
	orchestrator *orchestrator.Orchestrator
	thresholds   interface {
		UpsertBatch(ctx context.Context, batch []domain.ReferenceThreshold) error
	}
	exportSource export.Source
	boltSink     *audit.BoltSink
	pg           *postgres.DB
}

func (e *environment) Close() {
	if e.boltSink != nil {
		_ = e.boltSink.Close()
	}
	if e.pg != nil {
		_ = e.pg.Close()
	}
}

// exportAdapter composes per-patient repositories into export.Source.
type exportAdapter struct {
	patients interface {
		List(ctx context.Context) ([]domain.Patient, error)
	}
	medications interface {
		ListActiveForPatient(ctx context.Context, patientID string) ([]domain.MedicationOrder, error)
	}
	events interface {
		ListForPatient(ctx context.Context, patientID string) ([]domain.MonitoringEvent, error)
	}
}

func (a exportAdapter) Patients(ctx context.Context) ([]domain.Patient, error) {
	return a.patients.List(ctx)
}

func (a exportAdapter) MedicationsFor(ctx context.Context, patientID string) ([]domain.MedicationOrder, error) {
	return a.medications.ListActiveForPatient(ctx, patientID)
}

func (a exportAdapter) EventsFor(ctx context.Context, patientID string) ([]domain.MonitoringEvent, error) {
	return a.events.ListForPatient(ctx, patientID)
}

func wireEnvironment(ctx context.Context, cfg config.Settings) (*environment, error) {
	rulesets, err := ruleset.NewLoader(cfg.RulesetDir)
	if err != nil {
		return nil, fmt.Errorf("load rulesets: %w", err)
	}

	var boltSink *audit.BoltSink
	if cfg.AuditBoltPath != "" {
		boltSink, err = audit.OpenBoltSink(cfg.AuditBoltPath)
		if err != nil {
			return nil, fmt.Errorf("open audit sink: %w", err)
		}
	}
	var auditLogger *audit.Logger
	if boltSink != nil {
		auditLogger = audit.NewLogger(boltSink)
	}

	rec := metrics.NewRecorder(prometheus.NewRegistry())

	env := &environment{boltSink: boltSink}

	if cfg.PostgresDSN != "" {
		dbCfg := postgres.DefaultConfig()
		dbCfg.DSN = cfg.PostgresDSN
		db, err := postgres.Connect(ctx, dbCfg)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		env.pg = db

		patients := postgres.NewPatientRepository(db)
		medications := postgres.NewMedicationOrderRepository(db)
		events := postgres.NewEventRepository(db)
		thresholds := postgres.NewThresholdRepository(db)
		taskRepo := postgres.NewTaskRepository(db)
		notificationRepo := postgres.NewNotificationRepository(db)

		env.thresholds = thresholds
		env.exportSource = exportAdapter{patients: patients, medications: medications, events: events}
		env.orchestrator = orchestrator.New(rulesets, patients, medications, events, thresholds,
			taskRepo, notificationRepo, nil, auditLogger, rec, settingsFrom(cfg))
		wireEPR(env.orchestrator, cfg, postgres.NewTrackedPatientRepository(db))
		return env, nil
	}

	patients := memstore.NewPatientStore()
	medications := memstore.NewMedicationOrderStore()
	events := memstore.NewEventStore()
	thresholds := memstore.NewThresholdStore()
	taskStore := memstore.NewTaskStore()
	notificationStore := memstore.NewNotificationStore()

	env.thresholds = thresholds
	env.exportSource = exportAdapter{patients: patients, medications: medications, events: events}
	env.orchestrator = orchestrator.New(rulesets, patients, medications, events, thresholds,
		taskStore, notificationStore, nil, auditLogger, rec, settingsFrom(cfg))
	wireEPR(env.orchestrator, cfg, memstore.NewTrackedPatientStore())
	return env, nil
}

// wireEPR attaches on-demand EPR fetch capability when a base URL is
// configured. Without one, FetchAndImport (and so fetch-patient) fails
// with a CONFIGURATION_ERROR.
func wireEPR(o *orchestrator.Orchestrator, cfg config.Settings, tracked orchestrator.TrackedPatients) {
	if cfg.EPRBaseURL == "" {
		return
	}
	client := epr.NewHTTPClient(cfg.EPRBaseURL, cfg.EPRAPIKey, time.Duration(cfg.EPRTimeoutSeconds)*time.Second)
	o.WireEPR(client, tracked)
}

func settingsFrom(cfg config.Settings) orchestrator.Settings {
	return orchestrator.Settings{
		WindowDays:              cfg.TaskWindowDays,
		EscalationThresholdDays: cfg.EscalationThresholdDays,
		HorizonYears:            cfg.SchedulingHorizonYears,
		TeamInboxID:             cfg.TeamInboxID,
		TeamLeadInboxID:         cfg.TeamLeadInboxID,
		NotificationsEnabled:    cfg.InAppNotificationsEnabled,
	}
}

func runSweep(ctx context.Context, env *environment) {
	result, err := env.orchestrator.DailySweep(ctx, time.Now().UTC())
	if err != nil {
		log.Fatalf("daily sweep failed: %v", err)
	}
	log.Printf("daily sweep complete: %d transitioned to overdue, %d waivers reactivated, %d notifications created",
		result.TransitionedToOverdue, result.WaiversReactivated, result.NotificationsCreated)
}

func runImportThresholds(ctx context.Context, env *environment, args []string) {
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "usage: monitor import-thresholds <csv-path>")
		os.Exit(2)
	}
	f, err := os.Open(args[0])
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()

	result, err := threshold.ImportCSV(ctx, f, env.thresholds)
	if err != nil {
		log.Fatalf("import thresholds failed: %v", err)
	}
	log.Printf("imported %d thresholds, %d row errors", result.Imported, len(result.Errors))
}

func runFetchPatient(ctx context.Context, env *environment, args []string) {
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "usage: monitor fetch-patient <nhs-number>")
		os.Exit(2)
	}
	summary, err := env.orchestrator.FetchAndImport(ctx, args[0])
	if err != nil {
		log.Fatalf("fetch-patient failed: %v", err)
	}
	log.Printf("fetched patient %s: %d medications applied, %d events applied, %d row errors",
		summary.PatientID, summary.MedicationsApplied, summary.EventsApplied, len(summary.Errors))
}

func runExportBundle(ctx context.Context, env *environment, args []string) {
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "usage: monitor export-bundle <output-dir>")
		os.Exit(2)
	}
	outPath := args[0] + "/monitor-export.zip"
	out, err := os.Create(outPath)
	if err != nil {
		log.Fatal(err)
	}
	defer out.Close()

	if err := export.Write(ctx, out, env.exportSource); err != nil {
		log.Fatalf("export bundle failed: %v", err)
	}
	log.Printf("wrote export bundle to %s", outPath)
}

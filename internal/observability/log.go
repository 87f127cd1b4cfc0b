package observability

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"time"
)

var logger = log.New(os.Stdout, "", 0)

// LogEvent writes one structured JSON line with the caller's fields merged
// over whatever trace identifiers the context carries.
func LogEvent(ctx context.Context, level string, event string, fields map[string]any) {
	payload := map[string]any{
		"ts":    time.Now().UTC().Format(time.RFC3339),
		"level": level,
		"event": event,
	}

	info := RunInfoFromContext(ctx)
	if info.CorrelationID != "" {
		payload["correlation_id"] = info.CorrelationID
	}
	if info.PatientID != "" {
		payload["patient_id"] = info.PatientID
	}
	if info.TaskID != "" {
		payload["task_id"] = info.TaskID
	}
	if info.EventID != "" {
		payload["event_id"] = info.EventID
	}

	for key, value := range normalizeFields(fields) {
		payload[key] = value
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		logger.Printf("{\"level\":\"error\",\"event\":\"log_marshal_failed\",\"error\":%q}", err.Error())
		return
	}
	logger.Print(string(raw))
}

// LogStageStart/LogStageEnd bracket one orchestrator stage (rule evaluation,
// scheduling expansion, reconcile, notification dispatch).
func LogStageStart(ctx context.Context, stage string, input any) {
	LogEvent(ctx, "info", "stage_start", map[string]any{
		"stage": stage,
		"input": input,
	})
}

func LogStageEnd(ctx context.Context, stage string, duration time.Duration, err error) {
	fields := map[string]any{
		"stage":      stage,
		"latency_ms": duration.Milliseconds(),
		"success":    err == nil,
	}
	if err != nil {
		fields["error"] = err.Error()
	}
	LogEvent(ctx, "info", "stage_end", fields)
}

func normalizeFields(fields map[string]any) map[string]any {
	if fields == nil {
		return nil
	}
	out := make(map[string]any, len(fields))
	for key, value := range fields {
		switch key {
		case "input", "payload":
			out[key] = RedactValue(value)
			continue
		}
		if err, ok := value.(error); ok {
			out[key] = err.Error()
			continue
		}
		out[key] = value
	}
	return out
}

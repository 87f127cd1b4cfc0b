package observability

import "context"

type contextKey string

const (
	correlationIDKey contextKey = "correlation_id"
	patientIDKey     contextKey = "patient_id"
	taskIDKey        contextKey = "task_id"
	eventIDKey       contextKey = "event_id"
)

// RunInfo carries trace identifiers through a request context: the
// correlation ID spans one orchestrator call (OnMedicationOrder,
// OnMonitoringEvent, one DailySweep run); patient/task/event IDs narrow
// log lines to the entity a given step is acting on.
type RunInfo struct {
	CorrelationID string
	PatientID     string
	TaskID        string
	EventID       string
}

func WithRunInfo(ctx context.Context, info RunInfo) context.Context {
	if info.CorrelationID != "" {
		ctx = context.WithValue(ctx, correlationIDKey, info.CorrelationID)
	}
	if info.PatientID != "" {
		ctx = context.WithValue(ctx, patientIDKey, info.PatientID)
	}
	if info.TaskID != "" {
		ctx = context.WithValue(ctx, taskIDKey, info.TaskID)
	}
	if info.EventID != "" {
		ctx = context.WithValue(ctx, eventIDKey, info.EventID)
	}
	return ctx
}

func RunInfoFromContext(ctx context.Context) RunInfo {
	info := RunInfo{}
	if value := ctx.Value(correlationIDKey); value != nil {
		if id, ok := value.(string); ok {
			info.CorrelationID = id
		}
	}
	if value := ctx.Value(patientIDKey); value != nil {
		if id, ok := value.(string); ok {
			info.PatientID = id
		}
	}
	if value := ctx.Value(taskIDKey); value != nil {
		if id, ok := value.(string); ok {
			info.TaskID = id
		}
	}
	if value := ctx.Value(eventIDKey); value != nil {
		if id, ok := value.(string); ok {
			info.EventID = id
		}
	}
	return info
}

// WithCorrelationID attaches a correlation ID to the context.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, correlationIDKey, id)
}

// CorrelationIDFromContext retrieves the correlation ID set by WithCorrelationID.
func CorrelationIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v := ctx.Value(correlationIDKey); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

// EnsureCorrelationID returns ctx unchanged if it already carries a
// correlation ID, otherwise attaches a freshly generated one.
func EnsureCorrelationID(ctx context.Context) context.Context {
	if CorrelationIDFromContext(ctx) != "" {
		return ctx
	}
	return WithCorrelationID(ctx, NewCorrelationID())
}

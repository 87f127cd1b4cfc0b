// Package metrics exposes counters/histograms for scheduling expansions,
// task status changes, notification creation and dedup hits, and sweep
// duration. The orchestrator updates TasksExpanded and the sweep
// duration/failure instruments; TaskStatusChanges, NotificationsCreated and
// NotificationDedupHits are registered but nothing in the repository
// updates them.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder is the narrow set of instruments the orchestrator updates.
// Constructed once per process and passed down by reference.
type Recorder struct {
	TasksExpanded         *prometheus.CounterVec
	TaskStatusChanges     *prometheus.CounterVec
	NotificationsCreated  *prometheus.CounterVec
	NotificationDedupHits prometheus.Counter
	SweepDuration         prometheus.Histogram
	SweepFailures         prometheus.Counter
}

// NewRecorder builds a Recorder and registers its instruments against reg.
// A nil reg registers against prometheus.DefaultRegisterer.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	r := &Recorder{
		TasksExpanded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "monitor_tasks_expanded_total",
			Help: "Monitoring tasks created by scheduling expansion, by drug category.",
		}, []string{"drug_category"}),
		TaskStatusChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "monitor_task_status_changes_total",
			Help: "Monitoring task status transitions, by resulting status.",
		}, []string{"status"}),
		NotificationsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "monitor_notifications_created_total",
			Help: "In-app notifications created, by notification type.",
		}, []string{"type"}),
		NotificationDedupHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "monitor_notification_dedup_hits_total",
			Help: "Notification creation attempts short-circuited by an existing dedupe key.",
		}),
		SweepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "monitor_daily_sweep_duration_seconds",
			Help:    "Wall-clock duration of a full daily sweep invocation.",
			Buckets: prometheus.DefBuckets,
		}),
		SweepFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "monitor_daily_sweep_failures_total",
			Help: "Daily sweep invocations that returned an error from any stage.",
		}),
	}

	for _, c := range []prometheus.Collector{
		r.TasksExpanded, r.TaskStatusChanges, r.NotificationsCreated,
		r.NotificationDedupHits, r.SweepDuration, r.SweepFailures,
	} {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
		}
	}

	return r
}

// ObserveSweep records a daily sweep's duration and, if err is non-nil,
// increments the failure counter.
func (r *Recorder) ObserveSweep(start time.Time, err error) {
	if r == nil {
		return
	}
	r.SweepDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		r.SweepFailures.Inc()
	}
}

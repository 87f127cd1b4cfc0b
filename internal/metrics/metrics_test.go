package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewRecorder_RegistersInstrumentsOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewRecorder(reg)
	// constructing a second Recorder against the same registry must not panic
	// on AlreadyRegisteredError.
	NewRecorder(reg)
}

func TestObserveSweep_RecordsDurationAndFailures(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewRecorder(reg)

	r.ObserveSweep(time.Now().Add(-time.Second), nil)
	if got := testutil.CollectAndCount(r.SweepDuration); got != 1 {
		t.Fatalf("expected 1 observation, got %d", got)
	}
	if got := testutil.ToFloat64(r.SweepFailures); got != 0 {
		t.Fatalf("expected 0 failures, got %v", got)
	}

	r.ObserveSweep(time.Now(), errors.New("boom"))
	if got := testutil.ToFloat64(r.SweepFailures); got != 1 {
		t.Fatalf("expected 1 failure, got %v", got)
	}
}

func TestObserveSweep_NilRecorderIsNoop(t *testing.T) {
	var r *Recorder
	r.ObserveSweep(time.Now(), nil)
}

package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func newTestSink(t *testing.T) (*PrometheusSink, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	sink := NewPrometheusSink(reg)
	return sink, reg
}

func getCounterValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	for _, mf := range mfs {
		if mf.GetName() == name {
			for _, m := range mf.GetMetric() {
				if m.GetCounter() != nil {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func getGaugeValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	for _, mf := range mfs {
		if mf.GetName() == name {
			for _, m := range mf.GetMetric() {
				if m.GetGauge() != nil {
					return m.GetGauge().GetValue()
				}
			}
		}
	}
	return 0
}

func getCounterVecValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	for _, mf := range mfs {
		if mf.GetName() == name {
			for _, m := range mf.GetMetric() {
				if matchLabels(m.GetLabel(), labels) {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func matchLabels(pairs []*dto.LabelPair, want map[string]string) bool {
	if len(pairs) != len(want) {
		return false
	}
	for _, p := range pairs {
		if v, ok := want[p.GetName()]; !ok || v != p.GetValue() {
			return false
		}
	}
	return true
}

func TestPrometheusSink_Registration(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink := NewPrometheusSink(reg)
	if sink == nil {
		t.Fatal("NewPrometheusSink returned nil")
	}
}

func TestPrometheusSink_WakeStarted(t *testing.T) {
	sink, reg := newTestSink(t)

	sink.WakeStarted()
	sink.WakeStarted()

	val := getCounterValue(t, reg, "campusconnect_scheduler_wakes_total")
	if val != 2 {
		t.Errorf("wakes_total = %v, want 2", val)
	}
}

func TestPrometheusSink_TriggerExecutedLabels(t *testing.T) {
	sink, reg := newTestSink(t)

	sink.TriggerExecuted("registration_open", true)
	sink.TriggerExecuted("registration_open", true)
	sink.TriggerExecuted("event_end", false)

	openVal := getCounterVecValue(t, reg, "campusconnect_scheduler_triggers_executed_total",
		map[string]string{"trigger_type": "registration_open", "changed": "true"})
	if openVal != 2 {
		t.Errorf("trigger_type=registration_open,changed=true = %v, want 2", openVal)
	}

	endVal := getCounterVecValue(t, reg, "campusconnect_scheduler_triggers_executed_total",
		map[string]string{"trigger_type": "event_end", "changed": "false"})
	if endVal != 1 {
		t.Errorf("trigger_type=event_end,changed=false = %v, want 1", endVal)
	}
}

func TestPrometheusSink_RecoveryCompleted(t *testing.T) {
	sink, reg := newTestSink(t)

	sink.RecoveryCompleted(5, 3, 1, 1)

	executed := getCounterVecValue(t, reg, "campusconnect_scheduler_recovery_triggers_total",
		map[string]string{"disposition": "executed"})
	if executed != 3 {
		t.Errorf("disposition=executed = %v, want 3", executed)
	}
	failed := getCounterVecValue(t, reg, "campusconnect_scheduler_recovery_triggers_total",
		map[string]string{"disposition": "failed"})
	if failed != 1 {
		t.Errorf("disposition=failed = %v, want 1", failed)
	}
	discarded := getCounterVecValue(t, reg, "campusconnect_scheduler_recovery_triggers_total",
		map[string]string{"disposition": "discarded"})
	if discarded != 1 {
		t.Errorf("disposition=discarded = %v, want 1", discarded)
	}
}

func TestPrometheusSink_QueueGauges(t *testing.T) {
	sink, reg := newTestSink(t)

	sink.QueueLengthUpdate(7)
	sink.EventsTrackedUpdate(3)

	if val := getGaugeValue(t, reg, "campusconnect_scheduler_queue_length"); val != 7 {
		t.Errorf("queue_length = %v, want 7", val)
	}
	if val := getGaugeValue(t, reg, "campusconnect_scheduler_events_tracked"); val != 3 {
		t.Errorf("events_tracked = %v, want 3", val)
	}
}

func TestPrometheusSink_NotificationAttemptLabels(t *testing.T) {
	sink, reg := newTestSink(t)

	sink.NotificationAttemptCompleted(1, "2xx", 100*time.Millisecond)
	sink.NotificationAttemptCompleted(2, "5xx", 200*time.Millisecond)

	val1 := getCounterVecValue(t, reg, "campusconnect_notify_delivery_attempts_total",
		map[string]string{"attempt": "1", "status_class": "2xx"})
	if val1 != 1 {
		t.Errorf("attempt=1,status=2xx = %v, want 1", val1)
	}

	val2 := getCounterVecValue(t, reg, "campusconnect_notify_delivery_attempts_total",
		map[string]string{"attempt": "2", "status_class": "5xx"})
	if val2 != 1 {
		t.Errorf("attempt=2,status=5xx = %v, want 1", val2)
	}
}

func TestPrometheusSink_NotificationOutcome(t *testing.T) {
	sink, reg := newTestSink(t)

	sink.NotificationOutcome("success")
	sink.NotificationOutcome("failed")
	sink.NotificationOutcome("success")

	successVal := getCounterVecValue(t, reg, "campusconnect_notify_delivery_outcomes_total",
		map[string]string{"outcome": "success"})
	if successVal != 2 {
		t.Errorf("outcome=success = %v, want 2", successVal)
	}

	failedVal := getCounterVecValue(t, reg, "campusconnect_notify_delivery_outcomes_total",
		map[string]string{"outcome": "failed"})
	if failedVal != 1 {
		t.Errorf("outcome=failed = %v, want 1", failedVal)
	}
}

func TestPrometheusSink_ChangesInFlight(t *testing.T) {
	sink, reg := newTestSink(t)

	sink.ChangesInFlightIncr()
	sink.ChangesInFlightIncr()
	sink.ChangesInFlightDecr()

	val := getGaugeValue(t, reg, "campusconnect_notify_changes_in_flight")
	if val != 1 {
		t.Errorf("changes_in_flight = %v, want 1", val)
	}
}

func TestPrometheusSink_BufferMetrics(t *testing.T) {
	sink, reg := newTestSink(t)

	sink.BufferCapacitySet(100)
	sink.BufferSizeUpdate(42)
	sink.EmitError()

	if val := getGaugeValue(t, reg, "campusconnect_changebus_buffer_capacity"); val != 100 {
		t.Errorf("buffer_capacity = %v, want 100", val)
	}
	if val := getGaugeValue(t, reg, "campusconnect_changebus_buffer_size"); val != 42 {
		t.Errorf("buffer_size = %v, want 42", val)
	}
	if val := getCounterValue(t, reg, "campusconnect_changebus_emit_errors_total"); val != 1 {
		t.Errorf("emit_errors_total = %v, want 1", val)
	}
}

func TestPrometheusSink_DuplicateRegistration_NoPanic(t *testing.T) {
	// A second registration against the same registry fails per collector,
	// which must be absorbed rather than panic.
	reg := prometheus.NewRegistry()

	sink1 := NewPrometheusSink(reg)
	if sink1 == nil {
		t.Fatal("first NewPrometheusSink returned nil")
	}

	sink2 := NewPrometheusSink(reg)
	if sink2 == nil {
		t.Fatal("second NewPrometheusSink returned nil")
	}
}

// Verify PrometheusSink implements Sink interface.
var _ Sink = (*PrometheusSink)(nil)

package metrics

import (
	"log"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusSink implements Sink using the Prometheus client library.
// All methods are non-blocking and fire-and-forget.
// Registration errors are logged but never propagated.
type PrometheusSink struct {
	// Scheduler metrics
	wakesTotal           prometheus.Counter
	triggersTotal        *prometheus.CounterVec
	wakeDuration         prometheus.Histogram
	queueLength          prometheus.Gauge
	eventsTracked        prometheus.Gauge
	recoveredTotal       *prometheus.CounterVec
	lastRecoveryMoment   prometheus.Gauge

	// Dispatcher metrics
	notifyAttemptsTotal *prometheus.CounterVec
	notifyOutcomesTotal *prometheus.CounterVec
	webhookDuration     prometheus.Histogram
	retryAttemptsTotal  *prometheus.CounterVec
	changesInFlight     prometheus.Gauge

	// Change bus metrics
	bufferSize      prometheus.Gauge
	bufferCapacity  prometheus.Gauge
	emitErrorsTotal prometheus.Counter
}

// NewPrometheusSink creates a new Prometheus metrics sink.
// If registration fails, it logs a warning and returns a functional sink.
func NewPrometheusSink(reg prometheus.Registerer) *PrometheusSink {
	s := &PrometheusSink{}
	s.initSchedulerMetrics(reg)
	s.initDispatcherMetrics(reg)
	s.initBusMetrics(reg)
	return s
}

func (s *PrometheusSink) initSchedulerMetrics(reg prometheus.Registerer) {
	s.wakesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "campusconnect_scheduler_wakes_total",
		Help: "Total number of scheduler wake cycles.",
	})
	s.triggersTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "campusconnect_scheduler_triggers_executed_total",
		Help: "Total number of lifecycle triggers executed.",
	}, []string{"trigger_type", "changed"})
	s.wakeDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "campusconnect_scheduler_wake_duration_seconds",
		Help:    "Duration of each wake cycle in seconds.",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
	})
	s.queueLength = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "campusconnect_scheduler_queue_length",
		Help: "Number of pending triggers in the scheduler queue.",
	})
	s.eventsTracked = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "campusconnect_scheduler_events_tracked",
		Help: "Number of events currently tracked by the scheduler.",
	})
	s.recoveredTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "campusconnect_scheduler_recovery_triggers_total",
		Help: "Missed triggers handled during startup recovery, by disposition.",
	}, []string{"disposition"})
	s.lastRecoveryMoment = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "campusconnect_scheduler_last_recovery_timestamp_seconds",
		Help: "Unix timestamp of the most recent recovery pass.",
	})

	s.register(reg, s.wakesTotal, "campusconnect_scheduler_wakes_total")
	s.register(reg, s.triggersTotal, "campusconnect_scheduler_triggers_executed_total")
	s.register(reg, s.wakeDuration, "campusconnect_scheduler_wake_duration_seconds")
	s.register(reg, s.queueLength, "campusconnect_scheduler_queue_length")
	s.register(reg, s.eventsTracked, "campusconnect_scheduler_events_tracked")
	s.register(reg, s.recoveredTotal, "campusconnect_scheduler_recovery_triggers_total")
	s.register(reg, s.lastRecoveryMoment, "campusconnect_scheduler_last_recovery_timestamp_seconds")
}

func (s *PrometheusSink) initDispatcherMetrics(reg prometheus.Registerer) {
	s.notifyAttemptsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "campusconnect_notify_delivery_attempts_total",
		Help: "Total number of webhook delivery attempts.",
	}, []string{"attempt", "status_class"})
	s.notifyOutcomesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "campusconnect_notify_delivery_outcomes_total",
		Help: "Total number of final delivery outcomes per status change.",
	}, []string{"outcome"})
	s.webhookDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "campusconnect_notify_webhook_duration_seconds",
		Help:    "Webhook request latency in seconds (excludes backoff wait).",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	})
	s.retryAttemptsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "campusconnect_notify_retry_attempts_total",
		Help: "Total number of retry attempts (excludes first attempt).",
	}, []string{"retryable"})
	s.changesInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "campusconnect_notify_changes_in_flight",
		Help: "Number of status changes currently being delivered.",
	})

	s.register(reg, s.notifyAttemptsTotal, "campusconnect_notify_delivery_attempts_total")
	s.register(reg, s.notifyOutcomesTotal, "campusconnect_notify_delivery_outcomes_total")
	s.register(reg, s.webhookDuration, "campusconnect_notify_webhook_duration_seconds")
	s.register(reg, s.retryAttemptsTotal, "campusconnect_notify_retry_attempts_total")
	s.register(reg, s.changesInFlight, "campusconnect_notify_changes_in_flight")
}

func (s *PrometheusSink) initBusMetrics(reg prometheus.Registerer) {
	s.bufferSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "campusconnect_changebus_buffer_size",
		Help: "Current number of status changes in the change bus buffer.",
	})
	s.bufferCapacity = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "campusconnect_changebus_buffer_capacity",
		Help: "Configured capacity of the change bus buffer.",
	})
	s.emitErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "campusconnect_changebus_emit_errors_total",
		Help: "Total number of emit errors (buffer full or context cancelled).",
	})

	s.register(reg, s.bufferSize, "campusconnect_changebus_buffer_size")
	s.register(reg, s.bufferCapacity, "campusconnect_changebus_buffer_capacity")
	s.register(reg, s.emitErrorsTotal, "campusconnect_changebus_emit_errors_total")
}

// register attempts to register a collector, logging any errors without propagating them.
func (s *PrometheusSink) register(reg prometheus.Registerer, c prometheus.Collector, name string) {
	if err := reg.Register(c); err != nil {
		log.Printf("metrics: failed to register %s: %v", name, err)
	}
}

// Scheduler metrics implementation

func (s *PrometheusSink) WakeStarted() {
	s.wakesTotal.Inc()
}

func (s *PrometheusSink) WakeCompleted(duration time.Duration, triggersExecuted int) {
	s.wakeDuration.Observe(duration.Seconds())
}

func (s *PrometheusSink) TriggerExecuted(triggerType string, changed bool) {
	s.triggersTotal.WithLabelValues(triggerType, strconv.FormatBool(changed)).Inc()
}

func (s *PrometheusSink) RecoveryCompleted(found, executed, failed, discarded int) {
	s.recoveredTotal.WithLabelValues("executed").Add(float64(executed))
	s.recoveredTotal.WithLabelValues("failed").Add(float64(failed))
	s.recoveredTotal.WithLabelValues("discarded").Add(float64(discarded))
	s.lastRecoveryMoment.SetToCurrentTime()
}

func (s *PrometheusSink) QueueLengthUpdate(count int) {
	s.queueLength.Set(float64(count))
}

func (s *PrometheusSink) EventsTrackedUpdate(count int) {
	s.eventsTracked.Set(float64(count))
}

// Dispatcher metrics implementation

func (s *PrometheusSink) NotificationAttemptCompleted(attempt int, statusClass string, duration time.Duration) {
	s.notifyAttemptsTotal.WithLabelValues(strconv.Itoa(attempt), statusClass).Inc()
	s.webhookDuration.Observe(duration.Seconds())
}

func (s *PrometheusSink) NotificationOutcome(outcome string) {
	s.notifyOutcomesTotal.WithLabelValues(outcome).Inc()
}

func (s *PrometheusSink) RetryAttempt(retryable bool) {
	s.retryAttemptsTotal.WithLabelValues(strconv.FormatBool(retryable)).Inc()
}

func (s *PrometheusSink) ChangesInFlightIncr() {
	s.changesInFlight.Inc()
}

func (s *PrometheusSink) ChangesInFlightDecr() {
	s.changesInFlight.Dec()
}

// Change bus metrics implementation

func (s *PrometheusSink) BufferSizeUpdate(size int) {
	s.bufferSize.Set(float64(size))
}

func (s *PrometheusSink) BufferCapacitySet(capacity int) {
	s.bufferCapacity.Set(float64(capacity))
}

func (s *PrometheusSink) EmitError() {
	s.emitErrorsTotal.Inc()
}

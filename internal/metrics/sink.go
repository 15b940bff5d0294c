package metrics

import "time"

// Sink defines the interface for recording metrics.
// All methods are fire-and-forget: implementations MUST NOT block or propagate errors.
// If the metrics backend is unavailable, implementations log warnings and continue.
type Sink interface {
	// Scheduler metrics
	WakeStarted()
	WakeCompleted(duration time.Duration, triggersExecuted int)
	TriggerExecuted(triggerType string, changed bool)
	RecoveryCompleted(found, executed, failed, discarded int)
	QueueLengthUpdate(n int)
	EventsTrackedUpdate(n int)

	// Notification dispatcher metrics
	NotificationAttemptCompleted(attempt int, statusClass string, duration time.Duration)
	NotificationOutcome(outcome string)
	RetryAttempt(retryable bool)
	ChangesInFlightIncr()
	ChangesInFlightDecr()

	// Change bus metrics
	BufferSizeUpdate(size int)
	BufferCapacitySet(capacity int)
	EmitError()
}

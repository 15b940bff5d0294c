package metrics

import "time"

// NoopSink is a no-op implementation of Sink.
// Used when metrics are disabled to avoid nil checks.
type NoopSink struct{}

// NewNoopSink returns a no-op metrics sink.
func NewNoopSink() *NoopSink {
	return &NoopSink{}
}

func (n *NoopSink) WakeStarted()                                                                  {}
func (n *NoopSink) WakeCompleted(duration time.Duration, triggersExecuted int)                    {}
func (n *NoopSink) TriggerExecuted(triggerType string, changed bool)                              {}
func (n *NoopSink) RecoveryCompleted(found, executed, failed, discarded int)                      {}
func (n *NoopSink) QueueLengthUpdate(count int)                                                   {}
func (n *NoopSink) EventsTrackedUpdate(count int)                                                 {}
func (n *NoopSink) NotificationAttemptCompleted(attempt int, statusClass string, d time.Duration) {}
func (n *NoopSink) NotificationOutcome(outcome string)                                            {}
func (n *NoopSink) RetryAttempt(retryable bool)                                                   {}
func (n *NoopSink) ChangesInFlightIncr()                                                          {}
func (n *NoopSink) ChangesInFlightDecr()                                                          {}
func (n *NoopSink) BufferSizeUpdate(size int)                                                     {}
func (n *NoopSink) BufferCapacitySet(capacity int)                                                {}
func (n *NoopSink) EmitError()                                                                    {}

// Package dispatcher delivers status-change notifications to the
// configured webhook endpoint (the notification/email service boundary)
// with bounded retry and per-endpoint circuit breaking.
package dispatcher

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/ShivanshGhelani/CampusConnect-v2-sub001/internal/circuitbreaker"
	"github.com/ShivanshGhelani/CampusConnect-v2-sub001/internal/domain"
)

var defaultBackoff = []time.Duration{
	0,
	15 * time.Second,
	time.Minute,
	5 * time.Minute,
}

const maxAttempts = 4

// Store persists delivery attempts for diagnosing stale-status reports.
type Store interface {
	InsertDeliveryAttempt(ctx context.Context, attempt domain.DeliveryAttempt) error
}

type WebhookSender interface {
	Send(ctx context.Context, req WebhookRequest) WebhookResult
}

// AnalyticsSink records transition counts as a best-effort side effect.
type AnalyticsSink interface {
	Record(ctx context.Context, change domain.StatusChange)
}

// MetricsSink defines the interface for recording dispatcher metrics.
// All methods must be non-blocking and fire-and-forget.
type MetricsSink interface {
	NotificationAttemptCompleted(attempt int, statusClass string, duration time.Duration)
	NotificationOutcome(outcome string)
	RetryAttempt(retryable bool)
	ChangesInFlightIncr()
	ChangesInFlightDecr()
}

type WebhookRequest struct {
	URL       string
	Secret    string
	Timeout   time.Duration
	Payload   WebhookPayload
	AttemptID string
}

type WebhookPayload struct {
	EventID      string `json:"event_id"`
	OldStatus    string `json:"old_status"`
	OldSubStatus string `json:"old_sub_status"`
	NewStatus    string `json:"new_status"`
	NewSubStatus string `json:"new_sub_status"`
	TriggerType  string `json:"trigger_type"`
	OccurredAt   string `json:"occurred_at"`
}

type WebhookResult struct {
	StatusCode int
	Error      error
	Duration   time.Duration
}

func (r WebhookResult) IsSuccess() bool {
	return r.Error == nil && r.StatusCode >= 200 && r.StatusCode < 300
}

func (r WebhookResult) IsRetryable() bool {
	if r.Error != nil {
		return true
	}
	if r.StatusCode == 429 {
		return true
	}
	return r.StatusCode >= 500
}

// Config carries the notification endpoint settings.
type Config struct {
	WebhookURL   string
	Secret       string
	Timeout      time.Duration
	DrainTimeout time.Duration
}

type Dispatcher struct {
	config    Config
	store     Store
	sender    WebhookSender
	analytics AnalyticsSink                  // optional, nil = disabled
	metrics   MetricsSink                    // optional, nil = disabled
	breaker   *circuitbreaker.CircuitBreaker // optional, nil = disabled
	backoff   []time.Duration
}

func New(config Config, store Store, sender WebhookSender) *Dispatcher {
	if config.DrainTimeout <= 0 {
		config.DrainTimeout = 30 * time.Second
	}
	return &Dispatcher{
		config:  config,
		store:   store,
		sender:  sender,
		backoff: defaultBackoff,
	}
}

func (d *Dispatcher) WithAnalytics(sink AnalyticsSink) *Dispatcher {
	d.analytics = sink
	return d
}

// WithMetrics attaches a metrics sink to the dispatcher.
func (d *Dispatcher) WithMetrics(sink MetricsSink) *Dispatcher {
	d.metrics = sink
	return d
}

// WithBreaker attaches a circuit breaker guarding the endpoint.
func (d *Dispatcher) WithBreaker(cb *circuitbreaker.CircuitBreaker) *Dispatcher {
	d.breaker = cb
	return d
}

// Run processes changes from the channel until the context is cancelled,
// then drains remaining buffered changes with a timeout.
func (d *Dispatcher) Run(ctx context.Context, ch <-chan domain.StatusChange) {
	for {
		select {
		case <-ctx.Done():
			d.drain(ch)
			return
		case change := <-ch:
			if err := d.Dispatch(ctx, change); err != nil {
				log.Printf("dispatcher: error: %v", err)
			}
		}
	}
}

// drain processes buffered changes after the shutdown signal, on a fresh
// context since the main one is already cancelled.
func (d *Dispatcher) drain(ch <-chan domain.StatusChange) {
	drainCtx, cancel := context.WithTimeout(context.Background(), d.config.DrainTimeout)
	defer cancel()

	count := 0
	for {
		select {
		case <-drainCtx.Done():
			if count > 0 {
				log.Printf("dispatcher: drain timeout, processed %d changes", count)
			}
			return
		case change, ok := <-ch:
			if !ok {
				log.Printf("dispatcher: drain complete, processed %d changes", count)
				return
			}
			if err := d.Dispatch(drainCtx, change); err != nil {
				log.Printf("dispatcher: drain error: %v", err)
			}
			count++
		default:
			if count > 0 {
				log.Printf("dispatcher: drain complete, processed %d changes", count)
			}
			return
		}
	}
}

// Dispatch delivers one status change, retrying transient failures with
// backoff. Every attempt is recorded.
func (d *Dispatcher) Dispatch(ctx context.Context, change domain.StatusChange) error {
	if d.metrics != nil {
		d.metrics.ChangesInFlightIncr()
		defer d.metrics.ChangesInFlightDecr()
	}

	// Analytics counts transitions, not successful deliveries, so it is
	// written before any delivery attempt.
	if d.analytics != nil {
		d.analytics.Record(ctx, change)
	}

	if d.config.WebhookURL == "" {
		// Notification delivery disabled; transition already logged by the scheduler.
		return nil
	}

	req := WebhookRequest{
		URL:     d.config.WebhookURL,
		Secret:  d.config.Secret,
		Timeout: d.config.Timeout,
		Payload: WebhookPayload{
			EventID:      change.EventID,
			OldStatus:    string(change.From.Main),
			OldSubStatus: string(change.From.Sub),
			NewStatus:    string(change.To.Main),
			NewSubStatus: string(change.To.Sub),
			TriggerType:  string(change.Trigger),
			OccurredAt:   change.OccurredAt.UTC().Format(time.RFC3339),
		},
	}

	var lastResult WebhookResult

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			if d.metrics != nil {
				d.metrics.RetryAttempt(lastResult.IsRetryable())
			}

			idx := attempt - 1
			if idx >= len(d.backoff) {
				idx = len(d.backoff) - 1
			}
			backoff := d.backoff[idx]

			log.Printf("dispatcher: event=%s attempt=%d backoff=%s", change.EventID, attempt, backoff)

			timer := time.NewTimer(backoff)
			select {
			case <-ctx.Done():
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				return ctx.Err()
			case <-timer.C:
			}
		}

		if d.breaker != nil {
			if err := d.breaker.Allow(req.URL); err != nil {
				if errors.Is(err, circuitbreaker.ErrCircuitOpen) {
					log.Printf("dispatcher: event=%s circuit open, skipping delivery", change.EventID)
					if d.metrics != nil {
						d.metrics.NotificationOutcome(OutcomeSkipped)
					}
					return nil
				}
				return err
			}
		}

		attemptID := uuid.New()
		req.AttemptID = attemptID.String()

		startedAt := time.Now().UTC()
		result := d.sender.Send(ctx, req)
		finishedAt := time.Now().UTC()
		lastResult = result

		if d.metrics != nil {
			d.metrics.NotificationAttemptCompleted(attempt, ClassifyStatus(result.StatusCode, result.Error), result.Duration)
		}

		attemptRecord := domain.DeliveryAttempt{
			ID:         attemptID,
			EventID:    change.EventID,
			Attempt:    attempt,
			StatusCode: result.StatusCode,
			StartedAt:  startedAt,
			FinishedAt: finishedAt,
		}
		if result.Error != nil {
			attemptRecord.Error = result.Error.Error()
		}
		if err := d.store.InsertDeliveryAttempt(ctx, attemptRecord); err != nil {
			log.Printf("dispatcher: failed to record attempt: %v", err)
		}

		if result.IsSuccess() {
			if d.breaker != nil {
				d.breaker.RecordSuccess(req.URL)
			}
			log.Printf("dispatcher: event=%s delivered attempt=%d", change.EventID, attempt)
			if d.metrics != nil {
				d.metrics.NotificationOutcome(OutcomeSuccess)
			}
			return nil
		}

		if d.breaker != nil {
			d.breaker.RecordFailure(req.URL)
		}

		if !result.IsRetryable() {
			log.Printf("dispatcher: event=%s non-retryable status=%d", change.EventID, result.StatusCode)
			break
		}

		log.Printf("dispatcher: event=%s attempt=%d failed status=%d err=%v",
			change.EventID, attempt, result.StatusCode, result.Error)
	}

	log.Printf("dispatcher: event=%s delivery failed status=%d err=%v",
		change.EventID, lastResult.StatusCode, lastResult.Error)
	if d.metrics != nil {
		d.metrics.NotificationOutcome(OutcomeFailed)
	}
	return nil
}

// Outcome constants for NotificationOutcome metric.
const (
	OutcomeSuccess = "success"
	OutcomeFailed  = "failed"
	OutcomeSkipped = "skipped"
)

// Package channel provides the buffered in-memory bus that decouples the
// scheduler engine from notification delivery: a slow webhook must never
// stall trigger execution.
package channel

import (
	"context"

	"github.com/ShivanshGhelani/CampusConnect-v2-sub001/internal/domain"
)

// MetricsSink defines the interface for recording bus metrics.
// All methods must be non-blocking and fire-and-forget.
type MetricsSink interface {
	BufferSizeUpdate(size int)
	BufferCapacitySet(capacity int)
	EmitError()
}

type Option func(*EventBus)

// WithMetrics attaches a metrics sink to the bus.
func WithMetrics(sink MetricsSink) Option {
	return func(b *EventBus) { b.metrics = sink }
}

type EventBus struct {
	ch      chan domain.StatusChange
	metrics MetricsSink // optional, nil = disabled
}

func NewEventBus(buffer int, opts ...Option) *EventBus {
	b := &EventBus{ch: make(chan domain.StatusChange, buffer)}
	for _, opt := range opts {
		opt(b)
	}
	if b.metrics != nil {
		b.metrics.BufferCapacitySet(buffer)
	}
	return b
}

// Emit enqueues a status change, blocking until there is buffer space or
// the context is cancelled.
func (b *EventBus) Emit(ctx context.Context, change domain.StatusChange) error {
	select {
	case b.ch <- change:
		if b.metrics != nil {
			b.metrics.BufferSizeUpdate(len(b.ch))
		}
		return nil
	case <-ctx.Done():
		if b.metrics != nil {
			b.metrics.EmitError()
		}
		return ctx.Err()
	}
}

func (b *EventBus) Channel() <-chan domain.StatusChange {
	return b.ch
}

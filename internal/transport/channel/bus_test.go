package channel

import (
	"context"
	"testing"
	"time"

	"github.com/ShivanshGhelani/CampusConnect-v2-sub001/internal/domain"
)

func change(eventID string) domain.StatusChange {
	return domain.StatusChange{
		EventID: eventID,
		From:    domain.StatusPair{Main: domain.StatusUpcoming, Sub: domain.SubStatusRegistrationNotStarted},
		To:      domain.StatusPair{Main: domain.StatusUpcoming, Sub: domain.SubStatusRegistrationOpen},
		Trigger: domain.TriggerRegistrationOpen,
	}
}

func TestEventBus_EmitAndReceive(t *testing.T) {
	bus := NewEventBus(10)
	ctx := context.Background()

	if err := bus.Emit(ctx, change("evt-1")); err != nil {
		t.Fatalf("emit: %v", err)
	}
	if err := bus.Emit(ctx, change("evt-2")); err != nil {
		t.Fatalf("emit: %v", err)
	}

	got := <-bus.Channel()
	if got.EventID != "evt-1" {
		t.Errorf("first received = %s, want evt-1", got.EventID)
	}
	got = <-bus.Channel()
	if got.EventID != "evt-2" {
		t.Errorf("second received = %s, want evt-2", got.EventID)
	}
}

func TestEventBus_EmitBlocksUntilCancelledWhenFull(t *testing.T) {
	bus := NewEventBus(1)
	ctx := context.Background()

	if err := bus.Emit(ctx, change("evt-1")); err != nil {
		t.Fatalf("emit: %v", err)
	}

	cancelCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()

	err := bus.Emit(cancelCtx, change("evt-2"))
	if err == nil {
		t.Fatal("expected emit on a full bus to fail once the context expired")
	}
}

func TestEventBus_PreservesPayload(t *testing.T) {
	bus := NewEventBus(1)
	occurredAt := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	in := change("evt-1")
	in.OccurredAt = occurredAt
	if err := bus.Emit(context.Background(), in); err != nil {
		t.Fatalf("emit: %v", err)
	}

	out := <-bus.Channel()
	if out != in {
		t.Errorf("received %+v, want %+v", out, in)
	}
}

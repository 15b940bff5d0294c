package circuitbreaker

import (
	"testing"
	"time"

	"github.com/ShivanshGhelani/CampusConnect-v2-sub001/internal/testutil"
)

func TestAllowsHealthyEndpoint(t *testing.T) {
	cb := New(3, time.Minute)

	if err := cb.Allow("https://hooks.campus.edu/a"); err != nil {
		t.Fatalf("Allow returned %v for an endpoint with no history", err)
	}
}

func TestOpensAfterThresholdFailures(t *testing.T) {
	cb := New(3, time.Minute)
	endpoint := "https://hooks.campus.edu/a"

	cb.RecordFailure(endpoint)
	cb.RecordFailure(endpoint)
	if err := cb.Allow(endpoint); err != nil {
		t.Fatalf("circuit opened after %d failures, threshold is 3", 2)
	}

	cb.RecordFailure(endpoint)
	if err := cb.Allow(endpoint); err != ErrCircuitOpen {
		t.Fatalf("Allow = %v, want ErrCircuitOpen after threshold reached", err)
	}
}

func TestSuccessResetsFailureCount(t *testing.T) {
	cb := New(2, time.Minute)
	endpoint := "https://hooks.campus.edu/a"

	cb.RecordFailure(endpoint)
	cb.RecordSuccess(endpoint)
	cb.RecordFailure(endpoint)

	if err := cb.Allow(endpoint); err != nil {
		t.Fatalf("Allow = %v, success should reset the failure streak", err)
	}
}

func TestHalfOpenAfterCooldown(t *testing.T) {
	clk := testutil.NewFakeClock(time.Now())
	cb := New(1, time.Minute)
	cb.clock = clk.Now
	endpoint := "https://hooks.campus.edu/a"

	cb.RecordFailure(endpoint)
	if err := cb.Allow(endpoint); err != ErrCircuitOpen {
		t.Fatalf("Allow = %v, want open circuit", err)
	}

	clk.Advance(time.Minute)
	if err := cb.Allow(endpoint); err != nil {
		t.Fatalf("Allow = %v, want probe allowed after cooldown", err)
	}
	// Only one probe is admitted while half-open.
	if err := cb.Allow(endpoint); err != ErrCircuitOpen {
		t.Fatalf("Allow = %v, want second probe rejected", err)
	}
}

func TestProbeFailureReopens(t *testing.T) {
	clk := testutil.NewFakeClock(time.Now())
	cb := New(1, time.Minute)
	cb.clock = clk.Now
	endpoint := "https://hooks.campus.edu/a"

	cb.RecordFailure(endpoint)
	clk.Advance(time.Minute)
	if err := cb.Allow(endpoint); err != nil {
		t.Fatalf("Allow = %v, want probe allowed", err)
	}
	cb.RecordFailure(endpoint)

	clk.Advance(30 * time.Second)
	if err := cb.Allow(endpoint); err != ErrCircuitOpen {
		t.Fatalf("Allow = %v, want circuit re-opened after failed probe", err)
	}
}

func TestProbeSuccessCloses(t *testing.T) {
	clk := testutil.NewFakeClock(time.Now())
	cb := New(1, time.Minute)
	cb.clock = clk.Now
	endpoint := "https://hooks.campus.edu/a"

	cb.RecordFailure(endpoint)
	clk.Advance(time.Minute)
	if err := cb.Allow(endpoint); err != nil {
		t.Fatalf("Allow = %v, want probe allowed", err)
	}
	cb.RecordSuccess(endpoint)

	if err := cb.Allow(endpoint); err != nil {
		t.Fatalf("Allow = %v, want closed circuit after successful probe", err)
	}
}

func TestEndpointsAreIndependent(t *testing.T) {
	cb := New(1, time.Minute)

	cb.RecordFailure("https://hooks.campus.edu/a")
	if err := cb.Allow("https://hooks.campus.edu/b"); err != nil {
		t.Fatalf("Allow = %v, failure on one endpoint must not open another", err)
	}
}

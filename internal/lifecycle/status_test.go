package lifecycle

import (
	"testing"
	"time"

	"github.com/ShivanshGhelani/CampusConnect-v2-sub001/internal/domain"
)

func ts(t time.Time) *time.Time { return &t }

// standardEvent builds an event with the canonical phase layout:
// registration opens at base, closes at +1h, the event runs +2h..+3h,
// certificates are available until +4h.
func standardEvent(base time.Time) domain.Event {
	return domain.Event{
		ID:                "evt-standard",
		RegistrationStart: ts(base),
		RegistrationEnd:   ts(base.Add(1 * time.Hour)),
		EventStart:        ts(base.Add(2 * time.Hour)),
		EventEnd:          ts(base.Add(3 * time.Hour)),
		CertificateEnd:    ts(base.Add(4 * time.Hour)),
	}
}

func TestCalculateStatus_GoldenScenarios(t *testing.T) {
	base := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	event := standardEvent(base)

	tests := []struct {
		name string
		now  time.Time
		want domain.StatusPair
	}{
		{"before registration", base.Add(-time.Second),
			domain.StatusPair{Main: domain.StatusUpcoming, Sub: domain.SubStatusRegistrationNotStarted}},
		{"registration open", base.Add(30 * time.Minute),
			domain.StatusPair{Main: domain.StatusUpcoming, Sub: domain.SubStatusRegistrationOpen}},
		{"registration closed", base.Add(90 * time.Minute),
			domain.StatusPair{Main: domain.StatusUpcoming, Sub: domain.SubStatusRegistrationClosed}},
		{"event running", base.Add(150 * time.Minute),
			domain.StatusPair{Main: domain.StatusOngoing, Sub: domain.SubStatusEventStarted}},
		{"certificate window", base.Add(210 * time.Minute),
			domain.StatusPair{Main: domain.StatusOngoing, Sub: domain.SubStatusCertificateAvailable}},
		{"completed", base.Add(5 * time.Hour),
			domain.StatusPair{Main: domain.StatusCompleted, Sub: domain.SubStatusEventEnded}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateStatus(event, tt.now)
			if got != tt.want {
				t.Errorf("CalculateStatus(%s) = %s, want %s", tt.now.Format(time.RFC3339), got, tt.want)
			}
		})
	}
}

func TestCalculateStatus_BoundaryInstants(t *testing.T) {
	base := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	event := standardEvent(base)

	tests := []struct {
		name string
		now  time.Time
		want domain.StatusPair
	}{
		// Each boundary belongs to the later phase: comparisons are
		// start-inclusive, end-exclusive.
		{"exactly registration_start", base,
			domain.StatusPair{Main: domain.StatusUpcoming, Sub: domain.SubStatusRegistrationOpen}},
		{"exactly registration_end", base.Add(1 * time.Hour),
			domain.StatusPair{Main: domain.StatusUpcoming, Sub: domain.SubStatusRegistrationClosed}},
		{"exactly event_start", base.Add(2 * time.Hour),
			domain.StatusPair{Main: domain.StatusOngoing, Sub: domain.SubStatusEventStarted}},
		{"exactly event_end", base.Add(3 * time.Hour),
			domain.StatusPair{Main: domain.StatusOngoing, Sub: domain.SubStatusCertificateAvailable}},
		{"exactly certificate_end", base.Add(4 * time.Hour),
			domain.StatusPair{Main: domain.StatusCompleted, Sub: domain.SubStatusEventEnded}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateStatus(event, tt.now)
			if got != tt.want {
				t.Errorf("CalculateStatus = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestCalculateStatus_DraftWhenCoreTimestampsMissing(t *testing.T) {
	base := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	want := domain.StatusPair{Main: domain.StatusDraft, Sub: domain.SubStatusPendingApproval}

	noStart := standardEvent(base)
	noStart.EventStart = nil
	if got := CalculateStatus(noStart, base); got != want {
		t.Errorf("missing event_start: got %s, want %s", got, want)
	}

	noEnd := standardEvent(base)
	noEnd.EventEnd = nil
	if got := CalculateStatus(noEnd, base); got != want {
		t.Errorf("missing event_end: got %s, want %s", got, want)
	}
}

func TestCalculateStatus_FallbackOnInconsistentData(t *testing.T) {
	base := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	// Event window set but no registration phase at all, observed before
	// the event starts: no branch matches, so the fallback applies.
	event := domain.Event{
		ID:         "evt-no-registration",
		EventStart: ts(base.Add(2 * time.Hour)),
		EventEnd:   ts(base.Add(3 * time.Hour)),
	}

	got := CalculateStatus(event, base)
	want := domain.StatusPair{Main: domain.StatusDraft, Sub: domain.SubStatusPendingApproval}
	if got != want {
		t.Errorf("CalculateStatus = %s, want fallback %s", got, want)
	}
}

func TestCalculateStatus_NoCertificatePhase(t *testing.T) {
	base := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	event := standardEvent(base)
	event.CertificateEnd = nil

	got := CalculateStatus(event, base.Add(3*time.Hour+time.Minute))
	want := domain.StatusPair{Main: domain.StatusCompleted, Sub: domain.SubStatusEventEnded}
	if got != want {
		t.Errorf("CalculateStatus = %s, want %s (no certificate window)", got, want)
	}
}

// TestCalculateStatus_Deterministic verifies the function is a pure
// function of (event, now): repeated calls and shuffled call orders agree.
func TestCalculateStatus_Deterministic(t *testing.T) {
	base := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	event := standardEvent(base)

	instants := []time.Time{
		base.Add(-time.Hour),
		base,
		base.Add(30 * time.Minute),
		base.Add(2*time.Hour + time.Nanosecond),
		base.Add(10 * time.Hour),
	}

	for _, now := range instants {
		first := CalculateStatus(event, now)
		for i := 0; i < 5; i++ {
			if got := CalculateStatus(event, now); got != first {
				t.Fatalf("CalculateStatus(%s) not deterministic: %s vs %s", now, got, first)
			}
		}
	}
}

func TestCalculateStatus_NonUTCInput(t *testing.T) {
	base := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	event := standardEvent(base)

	loc := time.FixedZone("IST", 5*3600+1800)
	nowInIST := base.Add(30 * time.Minute).In(loc)

	got := CalculateStatus(event, nowInIST)
	want := domain.StatusPair{Main: domain.StatusUpcoming, Sub: domain.SubStatusRegistrationOpen}
	if got != want {
		t.Errorf("CalculateStatus with non-UTC now = %s, want %s", got, want)
	}
}

// Package testutil provides shared test helpers for lifecycled.
package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ShivanshGhelani/CampusConnect-v2-sub001/internal/domain"
)

// FakeClock provides deterministic time for testing.
type FakeClock struct {
	mu      sync.Mutex
	current time.Time
}

// NewFakeClock creates a FakeClock set to the given time.
func NewFakeClock(t time.Time) *FakeClock {
	return &FakeClock{current: t}
}

// Now returns the current fake time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Advance moves the clock forward by d.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(d)
}

// Set moves the clock to an absolute instant.
func (c *FakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = t
}

// TestContext returns a context with a 5-second timeout.
// The context is cancelled when the test completes.
func TestContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// Timestamp returns a pointer to t. Event fixtures are mostly built from
// literals, and &time.Date(...) is not legal Go.
func Timestamp(t time.Time) *time.Time {
	return &t
}

// ScheduledEvent builds an event whose full lifecycle spans the hours
// around base: registration base..base+1h, event base+2h..base+3h,
// certificates until base+4h.
func ScheduledEvent(id string, base time.Time) domain.Event {
	base = base.UTC()
	return domain.Event{
		ID:                id,
		Title:             "Event " + id,
		RegistrationStart: Timestamp(base),
		RegistrationEnd:   Timestamp(base.Add(time.Hour)),
		EventStart:        Timestamp(base.Add(2 * time.Hour)),
		EventEnd:          Timestamp(base.Add(3 * time.Hour)),
		CertificateEnd:    Timestamp(base.Add(4 * time.Hour)),
		Status:            domain.StatusUpcoming,
		SubStatus:         domain.SubStatusRegistrationNotStarted,
	}
}

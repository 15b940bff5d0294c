package lifecycle

import (
	"log"
	"time"

	"github.com/ShivanshGhelani/CampusConnect-v2-sub001/internal/domain"
)

// DeriveTriggers enumerates every trigger implied by the event's
// timestamps, past and future alike. Filtering by recency is the caller's
// job: the scheduler engine uses the same list both to queue future work
// and to find missed work after downtime.
//
// A set-but-zero timestamp means the boundary failed to parse it; such
// fields are skipped with a warning rather than producing a trigger at
// the epoch.
func DeriveTriggers(e domain.Event) []domain.Trigger {
	fields := []struct {
		ts  *time.Time
		typ domain.TriggerType
	}{
		{e.RegistrationStart, domain.TriggerRegistrationOpen},
		{e.RegistrationEnd, domain.TriggerRegistrationClose},
		{e.EventStart, domain.TriggerEventStart},
		{e.EventEnd, domain.TriggerEventEnd},
		{e.CertificateStart, domain.TriggerCertificateStart},
		{e.CertificateEnd, domain.TriggerCertificateEnd},
	}

	var triggers []domain.Trigger
	for _, f := range fields {
		if f.ts == nil {
			continue
		}
		if f.ts.IsZero() {
			log.Printf("lifecycle: event=%s has malformed %s timestamp, skipping trigger", e.ID, f.typ)
			continue
		}
		triggers = append(triggers, domain.Trigger{
			EventID:     e.ID,
			Type:        f.typ,
			TriggerTime: f.ts.UTC(),
		})
	}
	return triggers
}

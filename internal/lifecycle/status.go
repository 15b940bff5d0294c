// Package lifecycle holds the pure event lifecycle logic: deriving an
// event's current status from its timestamps, and enumerating the
// point-in-time triggers those timestamps imply.
//
// Nothing in this package reads the clock, performs I/O, or touches
// globals. The server engine and any client-side status predictor import
// the same functions, which is what keeps the two views of an event's
// status bit-for-bit identical; only the server engine ever writes back.
package lifecycle

import (
	"time"

	"github.com/ShivanshGhelani/CampusConnect-v2-sub001/internal/domain"
)

// CalculateStatus derives the status pair for an event at the given
// instant. The branches are evaluated in priority order and the first
// match wins; the conditions are not mutually exclusive without the
// ordering, so the order is load-bearing. Events with inconsistent
// timestamps fall back to draft/pending_approval.
//
// Calling this for any historical instant returns the same answer the
// live system would have produced at that instant, which is what makes
// missed-trigger recovery replayable.
func CalculateStatus(e domain.Event, now time.Time) domain.StatusPair {
	now = now.UTC()

	switch {
	case e.EventStart == nil || e.EventEnd == nil:
		return domain.StatusPair{Main: domain.StatusDraft, Sub: domain.SubStatusPendingApproval}

	case e.RegistrationStart != nil && now.Before(*e.RegistrationStart):
		return domain.StatusPair{Main: domain.StatusUpcoming, Sub: domain.SubStatusRegistrationNotStarted}

	case e.RegistrationStart != nil && e.RegistrationEnd != nil &&
		!now.Before(*e.RegistrationStart) && now.Before(*e.RegistrationEnd):
		return domain.StatusPair{Main: domain.StatusUpcoming, Sub: domain.SubStatusRegistrationOpen}

	case e.RegistrationEnd != nil && !now.Before(*e.RegistrationEnd) && now.Before(*e.EventStart):
		return domain.StatusPair{Main: domain.StatusUpcoming, Sub: domain.SubStatusRegistrationClosed}

	case !now.Before(*e.EventStart) && now.Before(*e.EventEnd):
		return domain.StatusPair{Main: domain.StatusOngoing, Sub: domain.SubStatusEventStarted}

	case !now.Before(*e.EventEnd) && e.CertificateEnd != nil && now.Before(*e.CertificateEnd):
		return domain.StatusPair{Main: domain.StatusOngoing, Sub: domain.SubStatusCertificateAvailable}

	case !now.Before(*e.EventEnd):
		return domain.StatusPair{Main: domain.StatusCompleted, Sub: domain.SubStatusEventEnded}

	default:
		return domain.StatusPair{Main: domain.StatusDraft, Sub: domain.SubStatusPendingApproval}
	}
}

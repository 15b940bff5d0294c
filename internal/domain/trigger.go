package domain

import "time"

type TriggerType string

const (
	TriggerRegistrationOpen  TriggerType = "registration_open"
	TriggerRegistrationClose TriggerType = "registration_close"
	TriggerEventStart        TriggerType = "event_start"
	TriggerEventEnd          TriggerType = "event_end"
	TriggerCertificateStart  TriggerType = "certificate_start"
	TriggerCertificateEnd    TriggerType = "certificate_end"
)

// Priority orders trigger types that share a timestamp. Lower fires first,
// so a replay of equal-time triggers is deterministic.
func (t TriggerType) Priority() int {
	switch t {
	case TriggerRegistrationOpen:
		return 0
	case TriggerRegistrationClose:
		return 1
	case TriggerEventStart:
		return 2
	case TriggerEventEnd:
		return 3
	case TriggerCertificateStart:
		return 4
	case TriggerCertificateEnd:
		return 5
	default:
		return 6
	}
}

// Trigger is a derived unit of scheduled work: recompute the status of
// EventID at TriggerTime. Triggers are a cache over event timestamps,
// never authoritative; losing them is safe because they are rebuilt from
// the persisted event on the next start.
type Trigger struct {
	EventID     string
	Type        TriggerType
	TriggerTime time.Time
}

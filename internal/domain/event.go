package domain

import "time"

type MainStatus string

const (
	StatusDraft     MainStatus = "draft"
	StatusUpcoming  MainStatus = "upcoming"
	StatusOngoing   MainStatus = "ongoing"
	StatusCompleted MainStatus = "completed"
)

type SubStatus string

const (
	SubStatusPendingApproval        SubStatus = "pending_approval"
	SubStatusRegistrationNotStarted SubStatus = "registration_not_started"
	SubStatusRegistrationOpen       SubStatus = "registration_open"
	SubStatusRegistrationClosed     SubStatus = "registration_closed"
	SubStatusEventStarted           SubStatus = "event_started"
	SubStatusCertificateAvailable   SubStatus = "certificate_available"
	SubStatusEventEnded             SubStatus = "event_ended"
)

// StatusPair is the combined lifecycle state of an event.
type StatusPair struct {
	Main MainStatus
	Sub  SubStatus
}

func (p StatusPair) String() string {
	return string(p.Main) + "/" + string(p.Sub)
}

// Event is the scheduled entity. Timestamps are UTC instants; optional
// phases (certificates, and registration on draft events) are nil.
// The timestamp ordering invariant
// (registration_start <= registration_end <= event_start <= event_end
// <= certificate_start <= certificate_end) is the creator's responsibility;
// the scheduler assumes it holds.
type Event struct {
	ID    string
	Title string

	RegistrationStart *time.Time
	RegistrationEnd   *time.Time
	EventStart        *time.Time
	EventEnd          *time.Time
	CertificateStart  *time.Time
	CertificateEnd    *time.Time

	Status    MainStatus
	SubStatus SubStatus

	LastStatusUpdate   time.Time
	UpdatedByScheduler bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// StatusPair returns the event's current derived status fields.
func (e Event) StatusPair() StatusPair {
	return StatusPair{Main: e.Status, Sub: e.SubStatus}
}

package api

import (
	"time"

	"github.com/ShivanshGhelani/CampusConnect-v2-sub001/internal/domain"
)

// EventRequest is the POST/PUT body for event registration. Timestamps
// are RFC 3339 strings; omitted phases stay unscheduled.
type EventRequest struct {
	ID    string `json:"event_id"`
	Title string `json:"event_name"`

	RegistrationStart string `json:"registration_start_date,omitempty"`
	RegistrationEnd   string `json:"registration_end_date,omitempty"`
	EventStart        string `json:"start_datetime,omitempty"`
	EventEnd          string `json:"end_datetime,omitempty"`
	CertificateStart  string `json:"certificate_start_date,omitempty"`
	CertificateEnd    string `json:"certificate_end_date,omitempty"`
}

type EventResponse struct {
	ID    string `json:"event_id"`
	Title string `json:"event_name"`

	RegistrationStart string `json:"registration_start_date,omitempty"`
	RegistrationEnd   string `json:"registration_end_date,omitempty"`
	EventStart        string `json:"start_datetime,omitempty"`
	EventEnd          string `json:"end_datetime,omitempty"`
	CertificateStart  string `json:"certificate_start_date,omitempty"`
	CertificateEnd    string `json:"certificate_end_date,omitempty"`

	Status    string `json:"status"`
	SubStatus string `json:"sub_status"`

	LastStatusUpdate   string `json:"last_status_update,omitempty"`
	UpdatedByScheduler bool   `json:"updated_by_scheduler"`
	CreatedAt          string `json:"created_at,omitempty"`
	UpdatedAt          string `json:"updated_at,omitempty"`
}

type ListEventsResponse struct {
	Events []EventResponse `json:"events"`
}

// SchedulerStatusResponse mirrors scheduler.Status for the admin panel.
type SchedulerStatusResponse struct {
	Running       bool             `json:"running"`
	QueueLength   int              `json:"queue_length"`
	EventsTracked int              `json:"events_tracked"`
	NextTrigger   *TriggerResponse `json:"next_trigger,omitempty"`
	LastRecovery  RecoveryResponse `json:"last_recovery"`
}

type TriggerResponse struct {
	EventID     string `json:"event_id"`
	Type        string `json:"trigger_type"`
	TriggerTime string `json:"trigger_time"`
}

type RecoveryResponse struct {
	Found     int `json:"found"`
	Executed  int `json:"executed"`
	Failed    int `json:"failed"`
	Discarded int `json:"discarded"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func eventResponse(e domain.Event) EventResponse {
	return EventResponse{
		ID:                 e.ID,
		Title:              e.Title,
		RegistrationStart:  formatOptional(e.RegistrationStart),
		RegistrationEnd:    formatOptional(e.RegistrationEnd),
		EventStart:         formatOptional(e.EventStart),
		EventEnd:           formatOptional(e.EventEnd),
		CertificateStart:   formatOptional(e.CertificateStart),
		CertificateEnd:     formatOptional(e.CertificateEnd),
		Status:             string(e.Status),
		SubStatus:          string(e.SubStatus),
		LastStatusUpdate:   formatInstant(e.LastStatusUpdate),
		UpdatedByScheduler: e.UpdatedByScheduler,
		CreatedAt:          formatInstant(e.CreatedAt),
		UpdatedAt:          formatInstant(e.UpdatedAt),
	}
}

func formatOptional(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func formatInstant(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

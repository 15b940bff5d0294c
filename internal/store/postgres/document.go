package postgres

import (
	"log"
	"time"

	"github.com/ShivanshGhelani/CampusConnect-v2-sub001/internal/domain"
)

// eventDocument is the JSONB shape of an event row. Timestamps are stored
// as ISO-8601 strings because the documents are shared with the web
// platform, which writes them as strings and sometimes leaves them empty.
type eventDocument struct {
	ID    string `json:"id"`
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

	CreatedAt string `json:"created_at,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

// timestampLayouts are tried in order when reading document timestamps.
// The platform writes RFC 3339, but older documents carry bare local
// datetimes without a zone designator; those are read as UTC.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// parseTimestamp parses a document timestamp. A malformed value is
// reported and treated as absent rather than failing the whole load.
func parseTimestamp(eventID, field, value string) *time.Time {
	if value == "" {
		return nil
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			utc := ts.UTC()
			return &utc
		}
	}
	log.Printf("store: event %s has malformed %s %q, treating as unset", eventID, field, value)
	return nil
}

func formatTimestamp(ts *time.Time) string {
	if ts == nil {
		return ""
	}
	return ts.UTC().Format(time.RFC3339)
}

func docFromEvent(e domain.Event) eventDocument {
	return eventDocument{
		ID:                 e.ID,
		Title:              e.Title,
		RegistrationStart:  formatTimestamp(e.RegistrationStart),
		RegistrationEnd:    formatTimestamp(e.RegistrationEnd),
		EventStart:         formatTimestamp(e.EventStart),
		EventEnd:           formatTimestamp(e.EventEnd),
		CertificateStart:   formatTimestamp(e.CertificateStart),
		CertificateEnd:     formatTimestamp(e.CertificateEnd),
		Status:             string(e.Status),
		SubStatus:          string(e.SubStatus),
		LastStatusUpdate:   formatInstant(e.LastStatusUpdate),
		UpdatedByScheduler: e.UpdatedByScheduler,
		CreatedAt:          formatInstant(e.CreatedAt),
		UpdatedAt:          formatInstant(e.UpdatedAt),
	}
}

func formatInstant(ts time.Time) string {
	if ts.IsZero() {
		return ""
	}
	return ts.UTC().Format(time.RFC3339)
}

func (d eventDocument) toEvent() domain.Event {
	e := domain.Event{
		ID:                 d.ID,
		Title:              d.Title,
		RegistrationStart:  parseTimestamp(d.ID, "registration_start_date", d.RegistrationStart),
		RegistrationEnd:    parseTimestamp(d.ID, "registration_end_date", d.RegistrationEnd),
		EventStart:         parseTimestamp(d.ID, "start_datetime", d.EventStart),
		EventEnd:           parseTimestamp(d.ID, "end_datetime", d.EventEnd),
		CertificateStart:   parseTimestamp(d.ID, "certificate_start_date", d.CertificateStart),
		CertificateEnd:     parseTimestamp(d.ID, "certificate_end_date", d.CertificateEnd),
		Status:             domain.MainStatus(d.Status),
		SubStatus:          domain.SubStatus(d.SubStatus),
		UpdatedByScheduler: d.UpdatedByScheduler,
	}
	if ts := parseTimestamp(d.ID, "last_status_update", d.LastStatusUpdate); ts != nil {
		e.LastStatusUpdate = *ts
	}
	if ts := parseTimestamp(d.ID, "created_at", d.CreatedAt); ts != nil {
		e.CreatedAt = *ts
	}
	if ts := parseTimestamp(d.ID, "updated_at", d.UpdatedAt); ts != nil {
		e.UpdatedAt = *ts
	}
	return e
}

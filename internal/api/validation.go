package api

import (
	"fmt"
	"time"
)

// parseEventRequest validates the request and converts it to timestamp
// fields. The chronological ordering
// registration_start <= registration_end <= event_start <= event_end <=
// certificate_start <= certificate_end is enforced here so the scheduler
// can assume it downstream.
func parseEventRequest(req EventRequest) (eventTimestamps, error) {
	var ts eventTimestamps

	if req.ID == "" {
		return ts, fmt.Errorf("event_id is required")
	}
	if req.Title == "" {
		return ts, fmt.Errorf("event_name is required")
	}

	fields := []struct {
		name  string
		value string
		dst   **time.Time
	}{
		{"registration_start_date", req.RegistrationStart, &ts.RegistrationStart},
		{"registration_end_date", req.RegistrationEnd, &ts.RegistrationEnd},
		{"start_datetime", req.EventStart, &ts.EventStart},
		{"end_datetime", req.EventEnd, &ts.EventEnd},
		{"certificate_start_date", req.CertificateStart, &ts.CertificateStart},
		{"certificate_end_date", req.CertificateEnd, &ts.CertificateEnd},
	}

	var prev *time.Time
	var prevName string
	for _, f := range fields {
		if f.value == "" {
			continue
		}
		parsed, err := time.Parse(time.RFC3339, f.value)
		if err != nil {
			return ts, fmt.Errorf("invalid %s: %v", f.name, err)
		}
		utc := parsed.UTC()
		*f.dst = &utc

		if prev != nil && utc.Before(*prev) {
			return ts, fmt.Errorf("%s must not precede %s", f.name, prevName)
		}
		prev = &utc
		prevName = f.name
	}

	// Registration without a close, or an event start without an end,
	// leaves the lifecycle undecidable partway through.
	if (ts.RegistrationStart == nil) != (ts.RegistrationEnd == nil) {
		return ts, fmt.Errorf("registration_start_date and registration_end_date must be set together")
	}
	if (ts.EventStart == nil) != (ts.EventEnd == nil) {
		return ts, fmt.Errorf("start_datetime and end_datetime must be set together")
	}

	return ts, nil
}

type eventTimestamps struct {
	RegistrationStart *time.Time
	RegistrationEnd   *time.Time
	EventStart        *time.Time
	EventEnd          *time.Time
	CertificateStart  *time.Time
	CertificateEnd    *time.Time
}

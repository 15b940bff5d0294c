package domain

import "testing"

func TestMainStatus_Values(t *testing.T) {
	tests := []struct {
		status MainStatus
		want   string
	}{
		{StatusDraft, "draft"},
		{StatusUpcoming, "upcoming"},
		{StatusOngoing, "ongoing"},
		{StatusCompleted, "completed"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if string(tt.status) != tt.want {
				t.Errorf("MainStatus = %q, want %q", tt.status, tt.want)
			}
		})
	}
}

func TestTriggerType_PriorityOrder(t *testing.T) {
	ordered := []TriggerType{
		TriggerRegistrationOpen,
		TriggerRegistrationClose,
		TriggerEventStart,
		TriggerEventEnd,
		TriggerCertificateStart,
		TriggerCertificateEnd,
	}

	for i := 1; i < len(ordered); i++ {
		if ordered[i-1].Priority() >= ordered[i].Priority() {
			t.Errorf("Priority(%s)=%d not below Priority(%s)=%d",
				ordered[i-1], ordered[i-1].Priority(), ordered[i], ordered[i].Priority())
		}
	}
}

func TestStatusPair_String(t *testing.T) {
	p := StatusPair{Main: StatusUpcoming, Sub: SubStatusRegistrationOpen}
	if got := p.String(); got != "upcoming/registration_open" {
		t.Errorf("String() = %q, want %q", got, "upcoming/registration_open")
	}
}

package domain

import (
	"time"

	"github.com/google/uuid"
)

// DeliveryAttempt records one webhook notification attempt for a status
// change. Persisted for diagnosing "status appears stale" reports.
type DeliveryAttempt struct {
	ID      uuid.UUID
	EventID string
	Attempt int

	StatusCode int
	Error      string

	StartedAt  time.Time
	FinishedAt time.Time
}

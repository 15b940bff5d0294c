package domain

import "time"

// StatusChange is emitted by the scheduler when a trigger moved an event
// to a different status pair. It is the only path by which downstream
// consumers (email notifications, cache invalidation) learn of a
// transition; no-op triggers emit nothing.
type StatusChange struct {
	EventID string

	From StatusPair
	To   StatusPair

	Trigger    TriggerType
	OccurredAt time.Time
}

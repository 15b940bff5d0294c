// Package postgres persists events as JSONB documents, matching the
// document model of the rest of the platform. Expected schema:
//
//	CREATE TABLE events (
//	    id         TEXT PRIMARY KEY,
//	    doc        JSONB NOT NULL,
//	    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
//	);
//
//	CREATE TABLE delivery_attempts (
//	    id          UUID PRIMARY KEY,
//	    event_id    TEXT NOT NULL,
//	    attempt     INT NOT NULL,
//	    status_code INT,
//	    error       TEXT,
//	    started_at  TIMESTAMPTZ NOT NULL,
//	    finished_at TIMESTAMPTZ NOT NULL
//	);
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/ShivanshGhelani/CampusConnect-v2-sub001/internal/dispatcher"
	"github.com/ShivanshGhelani/CampusConnect-v2-sub001/internal/domain"
	"github.com/ShivanshGhelani/CampusConnect-v2-sub001/internal/scheduler"
)

// Store implements scheduler.Store and dispatcher.Store using PostgreSQL.
type Store struct {
	db *sql.DB
}

// New creates a new PostgreSQL store with the given database connection.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// LoadAllEvents returns every event document. Documents with malformed
// timestamp fields are still returned; the bad fields read as unset.
func (s *Store) LoadAllEvents(ctx context.Context) ([]domain.Event, error) {
	rows, err := s.db.QueryContext(ctx, queryLoadAllEvents)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var result []domain.Event
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var doc eventDocument
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("decode event document: %w", err)
		}
		result = append(result, doc.toEvent())
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

// GetEvent returns a single event by ID.
// Returns sql.ErrNoRows if no such event exists.
func (s *Store) GetEvent(ctx context.Context, id string) (domain.Event, error) {
	var raw []byte
	if err := s.db.QueryRowContext(ctx, queryGetEvent, id).Scan(&raw); err != nil {
		return domain.Event{}, err
	}
	var doc eventDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return domain.Event{}, fmt.Errorf("decode event document: %w", err)
	}
	return doc.toEvent(), nil
}

// SaveEvent upserts the event document.
func (s *Store) SaveEvent(ctx context.Context, event domain.Event) error {
	raw, err := json.Marshal(docFromEvent(event))
	if err != nil {
		return fmt.Errorf("encode event document: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, queryUpsertEvent, event.ID, raw); err != nil {
		return fmt.Errorf("upsert event %s: %w", event.ID, err)
	}
	return nil
}

// DeleteEvent removes an event document.
// Returns sql.ErrNoRows if no such event exists.
func (s *Store) DeleteEvent(ctx context.Context, id string) error {
	var deletedID string
	if err := s.db.QueryRowContext(ctx, queryDeleteEvent, id).Scan(&deletedID); err != nil {
		return err
	}
	return nil
}

// UpcomingEvents returns upcoming and ongoing events ordered by start time,
// for the daily digest.
func (s *Store) UpcomingEvents(ctx context.Context, limit int) ([]domain.Event, error) {
	rows, err := s.db.QueryContext(ctx, queryUpcomingEvents, limit)
	if err != nil {
		return nil, fmt.Errorf("query upcoming events: %w", err)
	}
	defer rows.Close()

	var result []domain.Event
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var doc eventDocument
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("decode event document: %w", err)
		}
		result = append(result, doc.toEvent())
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

// InsertDeliveryAttempt inserts a new delivery attempt record.
func (s *Store) InsertDeliveryAttempt(ctx context.Context, attempt domain.DeliveryAttempt) error {
	_, err := s.db.ExecContext(ctx, queryInsertDeliveryAttempt,
		attempt.ID,
		attempt.EventID,
		attempt.Attempt,
		attempt.StatusCode,
		attempt.Error,
		attempt.StartedAt,
		attempt.FinishedAt,
	)
	return err
}

// Compile-time interface assertions
var (
	_ scheduler.Store  = (*Store)(nil)
	_ dispatcher.Store = (*Store)(nil)
)

// Package digest posts a daily summary of upcoming and ongoing events to
// the notification webhook. The notification service fans it out as the
// morning campus bulletin.
package digest

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/ShivanshGhelani/CampusConnect-v2-sub001/internal/domain"
)

const defaultEventLimit = 50

// Store lists the events worth announcing.
type Store interface {
	UpcomingEvents(ctx context.Context, limit int) ([]domain.Event, error)
}

// Schedule yields the next activation after a given instant.
// Satisfied by cron.Schedule.
type Schedule interface {
	Next(t time.Time) time.Time
}

type Config struct {
	WebhookURL string
	Secret     string
	Timeout    time.Duration
}

type Digest struct {
	config   Config
	store    Store
	schedule Schedule
	client   *http.Client
	clock    func() time.Time
}

// New creates a digest runner for the given cron expression.
func New(config Config, store Store, scheduleExpr string) (*Digest, error) {
	sched, err := cron.ParseStandard(scheduleExpr)
	if err != nil {
		return nil, fmt.Errorf("parse digest schedule: %w", err)
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	return &Digest{
		config:   config,
		store:    store,
		schedule: sched,
		client:   &http.Client{},
		clock:    time.Now,
	}, nil
}

// Run fires the digest at each scheduled instant until the context is
// cancelled. A failed send is logged and skipped; the next activation is
// computed from the schedule, never from the failure.
func (d *Digest) Run(ctx context.Context) {
	for {
		now := d.clock()
		next := d.schedule.Next(now)
		log.Printf("digest: next digest at %s", next.Format(time.RFC3339))

		timer := time.NewTimer(next.Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			log.Printf("digest: stopped")
			return
		case <-timer.C:
		}

		if err := d.send(ctx); err != nil {
			log.Printf("digest: send failed: %v", err)
		}
	}
}

func (d *Digest) send(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, d.config.Timeout)
	defer cancel()

	events, err := d.store.UpcomingEvents(ctx, defaultEventLimit)
	if err != nil {
		return fmt.Errorf("load upcoming events: %w", err)
	}

	body, err := json.Marshal(buildPayload(d.clock(), events))
	if err != nil {
		return fmt.Errorf("marshal digest: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.config.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-CampusConnect-Digest", "daily")
	if d.config.Secret != "" {
		mac := hmac.New(sha256.New, []byte(d.config.Secret))
		mac.Write(body)
		req.Header.Set("X-CampusConnect-Signature", hex.EncodeToString(mac.Sum(nil)))
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("post digest: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("digest rejected with status %d", resp.StatusCode)
	}

	log.Printf("digest: sent summary of %d events", len(events))
	return nil
}

type payload struct {
	GeneratedAt string         `json:"generated_at"`
	EventCount  int            `json:"event_count"`
	Events      []payloadEvent `json:"events"`
}

type payloadEvent struct {
	ID        string `json:"event_id"`
	Title     string `json:"event_name"`
	Status    string `json:"status"`
	SubStatus string `json:"sub_status"`
	StartsAt  string `json:"starts_at,omitempty"`
	EndsAt    string `json:"ends_at,omitempty"`
}

func buildPayload(now time.Time, events []domain.Event) payload {
	p := payload{
		GeneratedAt: now.UTC().Format(time.RFC3339),
		EventCount:  len(events),
		Events:      make([]payloadEvent, 0, len(events)),
	}
	for _, e := range events {
		pe := payloadEvent{
			ID:        e.ID,
			Title:     e.Title,
			Status:    string(e.Status),
			SubStatus: string(e.SubStatus),
		}
		if e.EventStart != nil {
			pe.StartsAt = e.EventStart.UTC().Format(time.RFC3339)
		}
		if e.EventEnd != nil {
			pe.EndsAt = e.EventEnd.UTC().Format(time.RFC3339)
		}
		p.Events = append(p.Events, pe)
	}
	return p
}

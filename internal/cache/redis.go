// Package cache invalidates the web platform's cached event documents
// when the scheduler changes a status. The platform caches rendered event
// pages and status lookups under event:<id> keys; stale entries would
// show a closed registration as open until the TTL expires.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ShivanshGhelani/CampusConnect-v2-sub001/internal/domain"
	"github.com/ShivanshGhelani/CampusConnect-v2-sub001/internal/scheduler"
)

// InvalidationChannel carries status change announcements to platform
// instances holding in-process caches.
const InvalidationChannel = "lifecycle:status_changes"

type Invalidator struct {
	client *redis.Client
}

func NewInvalidator(client *redis.Client) *Invalidator {
	return &Invalidator{client: client}
}

// Emit deletes the cached documents for the changed event and announces
// the change on the invalidation channel.
func (i *Invalidator) Emit(ctx context.Context, change domain.StatusChange) error {
	payload, err := json.Marshal(invalidationMessage(change))
	if err != nil {
		return fmt.Errorf("encode invalidation message: %w", err)
	}

	pipe := i.client.Pipeline()
	pipe.Del(ctx, cacheKeys(change.EventID)...)
	pipe.Publish(ctx, InvalidationChannel, payload)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("invalidate event %s: %w", change.EventID, err)
	}
	return nil
}

func cacheKeys(eventID string) []string {
	return []string{
		"event:" + eventID,
		"event:" + eventID + ":status",
	}
}

func invalidationMessage(change domain.StatusChange) map[string]string {
	return map[string]string{
		"event_id":       change.EventID,
		"new_status":     string(change.To.Main),
		"new_sub_status": string(change.To.Sub),
		"occurred_at":    change.OccurredAt.UTC().Format(time.RFC3339),
	}
}

var _ scheduler.EventEmitter = (*Invalidator)(nil)

// Package analytics keeps windowed counters of lifecycle transitions in
// Redis. The counters back the admin dashboard's activity charts; they
// are best effort and never block or fail a delivery.
package analytics

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ShivanshGhelani/CampusConnect-v2-sub001/internal/domain"
)

const defaultRetention = 30 * 24 * time.Hour

type RedisSink struct {
	client    *redis.Client
	retention time.Duration
}

func NewRedisSink(client *redis.Client) *RedisSink {
	return &RedisSink{client: client, retention: defaultRetention}
}

// WithRetention overrides how long transition counters are kept.
func (s *RedisSink) WithRetention(retention time.Duration) *RedisSink {
	s.retention = retention
	return s
}

// Record increments the hourly transition counters for a status change.
// Errors are logged, not returned; analytics must never affect delivery.
func (s *RedisSink) Record(ctx context.Context, change domain.StatusChange) {
	pipe := s.client.Pipeline()
	for _, key := range transitionKeys(change) {
		pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, s.retention)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("analytics: failed to record transition for event %s: %v", change.EventID, err)
	}
}

// transitionKeys returns one global and one per-trigger counter key for
// the hour bucket of the change.
func transitionKeys(change domain.StatusChange) []string {
	bucket := change.OccurredAt.UTC().Format("2006010215")
	return []string{
		fmt.Sprintf("lifecycle:transitions:%s", bucket),
		fmt.Sprintf("lifecycle:transitions:%s:%s", change.Trigger, bucket),
	}
}

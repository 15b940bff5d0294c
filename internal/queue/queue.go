// Package queue implements the time-ordered pending trigger collection
// shared by all tracked events.
package queue

import (
	"sort"
	"time"

	"github.com/ShivanshGhelani/CampusConnect-v2-sub001/internal/domain"
)

type item struct {
	trigger domain.Trigger
	seq     uint64
}

// Queue keeps triggers sorted by (trigger_time, trigger_type priority,
// insertion order). The three-part key gives a total order, so popping
// the same set of triggers always yields the same sequence regardless of
// insertion order. Queue is not safe for concurrent use; the scheduler
// engine serializes access.
type Queue struct {
	items   []item
	nextSeq uint64
}

func New() *Queue {
	return &Queue{}
}

func (q *Queue) less(a, b item) bool {
	if !a.trigger.TriggerTime.Equal(b.trigger.TriggerTime) {
		return a.trigger.TriggerTime.Before(b.trigger.TriggerTime)
	}
	if pa, pb := a.trigger.Type.Priority(), b.trigger.Type.Priority(); pa != pb {
		return pa < pb
	}
	return a.seq < b.seq
}

// InsertAll merge-inserts triggers, maintaining sort order.
func (q *Queue) InsertAll(triggers []domain.Trigger) {
	for _, t := range triggers {
		q.items = append(q.items, item{trigger: t, seq: q.nextSeq})
		q.nextSeq++
	}
	sort.Slice(q.items, func(i, j int) bool { return q.less(q.items[i], q.items[j]) })
}

// RemoveForEvent purges every trigger referencing the event. Used when an
// event's timestamps are superseded or the event leaves tracking.
func (q *Queue) RemoveForEvent(eventID string) int {
	kept := q.items[:0]
	removed := 0
	for _, it := range q.items {
		if it.trigger.EventID == eventID {
			removed++
			continue
		}
		kept = append(kept, it)
	}
	q.items = kept
	return removed
}

// PopDue removes and returns, in ascending order, every trigger whose
// time is at or before now.
func (q *Queue) PopDue(now time.Time) []domain.Trigger {
	n := sort.Search(len(q.items), func(i int) bool {
		return q.items[i].trigger.TriggerTime.After(now)
	})
	if n == 0 {
		return nil
	}

	due := make([]domain.Trigger, n)
	for i := 0; i < n; i++ {
		due[i] = q.items[i].trigger
	}
	q.items = append(q.items[:0], q.items[n:]...)
	return due
}

// PeekNext returns the next pending trigger without removing it.
func (q *Queue) PeekNext() (domain.Trigger, bool) {
	if len(q.items) == 0 {
		return domain.Trigger{}, false
	}
	return q.items[0].trigger, true
}

func (q *Queue) Len() int {
	return len(q.items)
}

// Package scheduler drives event lifecycle transitions from wall-clock
// time. On start it replays triggers missed while the process was down,
// then runs a periodic wake loop that pops due triggers and executes
// them, recomputing status, writing back, and fanning out change
// notifications.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/ShivanshGhelani/CampusConnect-v2-sub001/internal/domain"
	"github.com/ShivanshGhelani/CampusConnect-v2-sub001/internal/lifecycle"
	"github.com/ShivanshGhelani/CampusConnect-v2-sub001/internal/queue"
)

// Store is the persistence gateway contract. SaveEvent is best-effort
// from the engine's perspective: failures are logged, not retried here.
type Store interface {
	LoadAllEvents(ctx context.Context) ([]domain.Event, error)
	SaveEvent(ctx context.Context, event domain.Event) error
}

// EventEmitter receives realized status changes. Implementations must not
// block the scheduler significantly; an emit failure never aborts the
// trigger that produced it.
type EventEmitter interface {
	Emit(ctx context.Context, change domain.StatusChange) error
}

// MetricsSink defines the interface for recording scheduler metrics.
// All methods must be non-blocking and fire-and-forget.
type MetricsSink interface {
	WakeStarted()
	WakeCompleted(duration time.Duration, triggersExecuted int)
	TriggerExecuted(triggerType string, changed bool)
	RecoveryCompleted(found, executed, failed, discarded int)
	QueueLengthUpdate(n int)
	EventsTrackedUpdate(n int)
}

type Config struct {
	// WakeInterval is the steady-state wake cadence. A tuning knob, not a
	// correctness property.
	WakeInterval time.Duration

	// MaxDowntime bounds how far back missed-trigger recovery searches.
	// Triggers older than now-MaxDowntime are discarded, deliberately:
	// the engine does not attempt unbounded historical replay.
	MaxDowntime time.Duration
}

func DefaultConfig() Config {
	return Config{
		WakeInterval: 10 * time.Second,
		MaxDowntime:  24 * time.Hour,
	}
}

// replayYield is the cooperative pause between missed-trigger executions
// so a recovery burst does not saturate downstream consumers.
const replayYield = 10 * time.Millisecond

// errStopRequested aborts startup recovery when Stop arrives mid-replay.
var errStopRequested = errors.New("stop requested")

// RecoveryReport summarizes one missed-trigger recovery pass.
type RecoveryReport struct {
	Found     int
	Executed  int
	Failed    int
	Discarded int
}

// Status is the read-only health view returned by Status().
type Status struct {
	Running       bool
	QueueLength   int
	EventsTracked int
	NextTrigger   *domain.Trigger
	LastRecovery  RecoveryReport
}

// Engine owns the trigger queue and the event cache exclusively. External
// callers mutate tracked events through AddEvent/UpdateEvent/RemoveEvent;
// writing to the persistence gateway directly would silently diverge the
// cache and queue from the stored record.
type Engine struct {
	config   Config
	store    Store
	emitters []EventEmitter
	metrics  MetricsSink // optional, nil = disabled
	clock    func() time.Time

	mu           sync.Mutex
	queue        *queue.Queue
	cache        map[string]*domain.Event
	running      bool
	cancel       context.CancelFunc
	done         chan struct{}
	lastRecovery RecoveryReport
}

func New(config Config, store Store) *Engine {
	if config.WakeInterval <= 0 {
		config.WakeInterval = DefaultConfig().WakeInterval
	}
	if config.MaxDowntime <= 0 {
		config.MaxDowntime = DefaultConfig().MaxDowntime
	}
	return &Engine{
		config: config,
		store:  store,
		clock:  time.Now,
		queue:  queue.New(),
		cache:  make(map[string]*domain.Event),
	}
}

// WithEmitter appends a status-change emitter.
func (e *Engine) WithEmitter(em EventEmitter) *Engine {
	e.emitters = append(e.emitters, em)
	return e
}

// WithMetrics attaches a metrics sink to the engine.
func (e *Engine) WithMetrics(sink MetricsSink) *Engine {
	e.metrics = sink
	return e
}

// Start loads every event from the store, replays missed triggers, queues
// future ones, and launches the wake loop. Starting a running engine is a
// no-op. A store failure during the initial load is fatal: the scheduler
// cannot run without an initial event set.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		log.Println("scheduler: already running, start ignored")
		return nil
	}
	// cancel and done exist before recovery runs, so a Stop arriving at any
	// point of a slow startup has something to cancel and wait on.
	runCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	e.running = true
	e.cancel = cancel
	e.done = done
	e.mu.Unlock()

	if err := e.initialize(ctx, runCtx); err != nil {
		e.mu.Lock()
		e.running = false
		e.mu.Unlock()
		cancel()
		close(done)
		if errors.Is(err, errStopRequested) {
			log.Println("scheduler: stopped during startup recovery")
			return nil
		}
		return err
	}

	e.mu.Lock()
	if !e.running {
		// Stop raced with recovery; the wake loop must not launch.
		e.mu.Unlock()
		close(done)
		log.Println("scheduler: stopped during startup recovery")
		return nil
	}
	e.mu.Unlock()

	go e.loop(runCtx, done)

	log.Printf("scheduler: started (wake=%s, downtime_window=%s)", e.config.WakeInterval, e.config.MaxDowntime)
	return nil
}

// Stop halts the wake loop, letting any in-progress batch of due
// triggers finish. Stopping a stopped engine is a no-op. A subsequent
// Start re-runs recovery, covering any downtime in between.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	e.running = false
	cancel, done := e.cancel, e.done
	e.mu.Unlock()

	cancel()
	<-done
	log.Println("scheduler: stopped")
}

// initialize performs Phase 1: load events, partition derived triggers
// into missed / future / too-old, replay the missed ones in global
// chronological order, and queue the future ones. runCtx is the engine's
// lifetime context; its cancellation aborts the replay cleanly.
func (e *Engine) initialize(ctx, runCtx context.Context) error {
	now := e.clock().UTC()
	cutoff := now.Add(-e.config.MaxDowntime)

	events, err := e.store.LoadAllEvents(ctx)
	if err != nil {
		return fmt.Errorf("load events: %w", err)
	}

	// Replay order uses the same deterministic total order as the live
	// queue, so a crash mid-recovery and a fresh recovery agree.
	replay := queue.New()
	var future []domain.Trigger
	report := RecoveryReport{}

	e.mu.Lock()
	e.queue = queue.New()
	e.cache = make(map[string]*domain.Event, len(events))
	for _, ev := range events {
		ev := ev
		e.cache[ev.ID] = &ev

		for _, tr := range lifecycle.DeriveTriggers(ev) {
			switch {
			case tr.TriggerTime.Before(cutoff):
				report.Discarded++
			case tr.TriggerTime.Before(now):
				replay.InsertAll([]domain.Trigger{tr})
				report.Found++
			default:
				future = append(future, tr)
			}
		}
	}
	e.queue.InsertAll(future)
	e.mu.Unlock()

	if report.Discarded > 0 {
		log.Printf("scheduler: recovery discarded %d triggers older than the %s downtime window", report.Discarded, e.config.MaxDowntime)
	}

	missed := replay.PopDue(now)
	for i, tr := range missed {
		if i > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-runCtx.Done():
				return errStopRequested
			case <-time.After(replayYield):
			}
		}

		e.mu.Lock()
		change, err := e.executeLocked(ctx, tr)
		e.mu.Unlock()

		if change != nil {
			e.emit(ctx, *change)
		}
		if err != nil {
			report.Failed++
		} else {
			report.Executed++
		}
	}

	e.mu.Lock()
	e.lastRecovery = report
	queueLen, tracked := e.queue.Len(), len(e.cache)
	e.mu.Unlock()

	log.Printf("scheduler: recovery complete (missed=%d executed=%d failed=%d discarded=%d, queued=%d, events=%d)",
		report.Found, report.Executed, report.Failed, report.Discarded, queueLen, tracked)

	if e.metrics != nil {
		e.metrics.RecoveryCompleted(report.Found, report.Executed, report.Failed, report.Discarded)
		e.metrics.QueueLengthUpdate(queueLen)
		e.metrics.EventsTrackedUpdate(tracked)
	}
	return nil
}

// loop is Phase 2: the steady-state wake cycle.
func (e *Engine) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(e.config.WakeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.wake(ctx)
		}
	}
}

// wake pops every due trigger and executes the batch in order. The batch
// runs to completion even if Stop is called mid-cycle; cancellation is
// only observed between wakes.
func (e *Engine) wake(ctx context.Context) {
	if e.metrics != nil {
		e.metrics.WakeStarted()
	}
	start := e.clock()
	now := start.UTC()

	e.mu.Lock()
	due := e.queue.PopDue(now)
	changes := make([]domain.StatusChange, 0, len(due))
	for _, tr := range due {
		change, err := e.executeLocked(ctx, tr)
		if err != nil {
			log.Printf("scheduler: trigger %s for event=%s: %v", tr.Type, tr.EventID, err)
		}
		if change != nil {
			changes = append(changes, *change)
		}
	}
	queueLen, tracked := e.queue.Len(), len(e.cache)
	e.mu.Unlock()

	for _, change := range changes {
		e.emit(ctx, change)
	}

	if e.metrics != nil {
		e.metrics.WakeCompleted(e.clock().Sub(start), len(due))
		e.metrics.QueueLengthUpdate(queueLen)
		e.metrics.EventsTrackedUpdate(tracked)
	}
}

// executeLocked runs one trigger against the cached event. Caller holds
// e.mu. The returned error reflects the write-back only; the in-memory
// status change stands regardless, and remains authoritative for
// subsequent triggers in this run. A realized transition is returned to
// the caller, which emits it after releasing the lock: a slow sink must
// never stall membership calls or Status().
func (e *Engine) executeLocked(ctx context.Context, tr domain.Trigger) (*domain.StatusChange, error) {
	now := e.clock().UTC()

	ev, ok := e.cache[tr.EventID]
	if !ok {
		// Event was removed after the trigger was queued. Not an error.
		log.Printf("scheduler: trigger %s for unknown event=%s, dropping", tr.Type, tr.EventID)
		return nil, nil
	}

	old := ev.StatusPair()
	next := lifecycle.CalculateStatus(*ev, now)

	ev.Status = next.Main
	ev.SubStatus = next.Sub
	ev.LastStatusUpdate = now
	ev.UpdatedByScheduler = true

	changed := old != next
	if e.metrics != nil {
		e.metrics.TriggerExecuted(string(tr.Type), changed)
	}

	var change *domain.StatusChange
	if changed {
		log.Printf("scheduler: event=%s %s -> %s (trigger=%s)", ev.ID, old, next, tr.Type)
		change = &domain.StatusChange{
			EventID:    ev.ID,
			From:       old,
			To:         next,
			Trigger:    tr.Type,
			OccurredAt: now,
		}
	}

	if err := e.store.SaveEvent(ctx, *ev); err != nil {
		log.Printf("scheduler: write-back for event=%s failed (in-memory state stays authoritative): %v", ev.ID, err)
		return change, fmt.Errorf("save event: %w", err)
	}
	return change, nil
}

// emit fans a realized change out to every emitter. Never called with
// e.mu held.
func (e *Engine) emit(ctx context.Context, change domain.StatusChange) {
	for _, em := range e.emitters {
		if err := em.Emit(ctx, change); err != nil {
			log.Printf("scheduler: emit for event=%s failed: %v", change.EventID, err)
		}
	}
}

// AddEvent caches the event and queues its future triggers. Past
// timestamps are ignored here; they are only replayed during recovery.
func (e *Engine) AddEvent(ev domain.Event) {
	now := e.clock().UTC()

	e.mu.Lock()
	defer e.mu.Unlock()
	e.addLocked(ev, now)
	log.Printf("scheduler: tracking event=%s (queue=%d)", ev.ID, e.queue.Len())
}

func (e *Engine) addLocked(ev domain.Event, now time.Time) {
	copied := ev
	e.cache[ev.ID] = &copied

	var future []domain.Trigger
	for _, tr := range lifecycle.DeriveTriggers(ev) {
		if !tr.TriggerTime.Before(now) {
			future = append(future, tr)
		}
	}
	e.queue.InsertAll(future)
}

// UpdateEvent supersedes every queued trigger for the event and requeues
// from the new timestamps. Full supersession, no partial diffing.
func (e *Engine) UpdateEvent(eventID string, ev domain.Event) {
	now := e.clock().UTC()

	e.mu.Lock()
	defer e.mu.Unlock()
	e.queue.RemoveForEvent(eventID)
	delete(e.cache, eventID)
	e.addLocked(ev, now)
	log.Printf("scheduler: superseded triggers for event=%s (queue=%d)", eventID, e.queue.Len())
}

// RemoveEvent drops the event from tracking. The persisted record is the
// owning collaborator's to delete.
func (e *Engine) RemoveEvent(eventID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	removed := e.queue.RemoveForEvent(eventID)
	delete(e.cache, eventID)
	log.Printf("scheduler: untracked event=%s (%d pending triggers purged)", eventID, removed)
}

// Status reports engine health. Read-only, no side effects.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()

	st := Status{
		Running:       e.running,
		QueueLength:   e.queue.Len(),
		EventsTracked: len(e.cache),
		LastRecovery:  e.lastRecovery,
	}
	if next, ok := e.queue.PeekNext(); ok {
		st.NextTrigger = &next
	}
	return st
}

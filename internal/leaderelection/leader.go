// Package leaderelection ensures at most one scheduler instance runs the
// wake loop. Two live schedulers would emit duplicate status notifications,
// so multi-instance deployments elect a leader through a Postgres
// session-scoped advisory lock.
//
// The lock is held for the lifetime of a dedicated database connection;
// there is no renewal or TTL. If the connection dies, Postgres releases
// the lock server-side. The heartbeat ping only detects local connection
// death so the demoted instance stops its duties promptly.
package leaderelection

import (
	"context"
	"database/sql"
	"log"
	"time"
)

// Elector manages leader election using a Postgres advisory lock.
//
// onPromoted is called in a new goroutine when the lock is acquired; its
// context is cancelled when leadership is lost. It should start the
// scheduler and return quickly. onDemoted is called synchronously on loss
// and must block until leader duties have stopped. It must be idempotent.
type Elector struct {
	db                *sql.DB
	lockKey           int64
	retryInterval     time.Duration
	heartbeatInterval time.Duration
	onPromoted        func(ctx context.Context)
	onDemoted         func()
}

func New(
	db *sql.DB,
	lockKey int64,
	retryInterval, heartbeatInterval time.Duration,
	onPromoted func(ctx context.Context),
	onDemoted func(),
) *Elector {
	return &Elector{
		db:                db,
		lockKey:           lockKey,
		retryInterval:     retryInterval,
		heartbeatInterval: heartbeatInterval,
		onPromoted:        onPromoted,
		onDemoted:         onDemoted,
	}
}

// Run blocks in the election loop until ctx is cancelled.
func (e *Elector) Run(ctx context.Context) {
	log.Printf("leader: election loop started (lock_key=%d, retry=%s, heartbeat=%s)",
		e.lockKey, e.retryInterval, e.heartbeatInterval)

	for {
		if ctx.Err() != nil {
			log.Println("leader: election loop stopped")
			return
		}

		if reason := e.campaign(ctx); reason != "" && ctx.Err() == nil {
			log.Printf("leader: lost leadership (%s), retrying in %s", reason, e.retryInterval)
		}

		select {
		case <-ctx.Done():
			log.Println("leader: election loop stopped")
			return
		case <-time.After(e.retryInterval):
		}
	}
}

// campaign tries once to acquire the advisory lock and, if it wins, holds
// it until the connection or the context dies. Returns the reason
// leadership ended, or "" if the lock was never acquired.
func (e *Elector) campaign(ctx context.Context) string {
	// Advisory locks are session-scoped, so a pooled connection would be
	// useless here.
	conn, err := e.db.Conn(ctx)
	if err != nil {
		log.Printf("leader: dedicated connection unavailable: %v", err)
		return ""
	}
	defer conn.Close()

	var acquired bool
	if err := conn.QueryRowContext(ctx, "SELECT pg_try_advisory_lock($1)", e.lockKey).Scan(&acquired); err != nil {
		log.Printf("leader: advisory lock query failed: %v", err)
		return ""
	}
	if !acquired {
		return ""
	}

	log.Printf("leader: acquired advisory lock %d", e.lockKey)

	leaderCtx, cancelLeader := context.WithCancel(ctx)
	go e.onPromoted(leaderCtx)

	reason := e.watchConnection(ctx, conn)

	cancelLeader()
	e.onDemoted()

	log.Printf("leader: released advisory lock %d", e.lockKey)
	return reason
}

// watchConnection pings the lock-holding connection until it fails or the
// context is cancelled. The ping does not renew the lock.
func (e *Elector) watchConnection(ctx context.Context, conn *sql.Conn) string {
	ticker := time.NewTicker(e.heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return "shutdown"
		case <-ticker.C:
			if err := conn.PingContext(ctx); err != nil {
				if ctx.Err() != nil {
					return "shutdown"
				}
				log.Printf("leader: heartbeat ping failed: %v", err)
				return "conn_lost"
			}
		}
	}
}

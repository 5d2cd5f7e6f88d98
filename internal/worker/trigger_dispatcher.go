package worker

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultDispatcherPollInterval = 5 * time.Second
	DefaultDispatcherBatchSize    = 100

	// Pending jobs older than this with no trigger token were orphaned by a
	// crash between job insert and trigger registration.
	orphanJobAge = 10 * time.Minute
)

// TriggerHandler processes one fired trigger payload.
type TriggerHandler func(ctx context.Context, payload json.RawMessage) error

// TriggerDispatcher polls drip_triggers for due rows and fires their
// handlers. Claiming uses FOR UPDATE SKIP LOCKED so several dispatcher
// instances can run against the same database.
type TriggerDispatcher struct {
	db           *sql.DB
	workerID     string
	pollInterval time.Duration
	batchSize    int

	mu       sync.RWMutex
	handlers map[string]TriggerHandler
	running  bool
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup

	triggersFired  int64
	triggersFailed int64
	jobsReconciled int64
}

func NewTriggerDispatcher(db *sql.DB) *TriggerDispatcher {
	return &TriggerDispatcher{
		db:           db,
		workerID:     fmt.Sprintf("dispatcher-%s", uuid.New().String()[:8]),
		pollInterval: DefaultDispatcherPollInterval,
		batchSize:    DefaultDispatcherBatchSize,
		handlers:     make(map[string]TriggerHandler),
	}
}

// SetPollInterval overrides the due-trigger poll interval. Call before Start.
func (d *TriggerDispatcher) SetPollInterval(iv time.Duration) {
	if iv > 0 {
		d.pollInterval = iv
	}
}

// SetBatchSize overrides how many triggers one poll claims. Call before Start.
func (d *TriggerDispatcher) SetBatchSize(n int) {
	if n > 0 {
		d.batchSize = n
	}
}

// Register binds a handler name to its implementation.
func (d *TriggerDispatcher) Register(handler string, fn TriggerHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[handler] = fn
}

func (d *TriggerDispatcher) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running {
		return fmt.Errorf("dispatcher already running")
	}
	d.running = true
	d.ctx, d.cancel = context.WithCancel(context.Background())

	log.Printf("[Dispatcher] %s starting (poll=%v batch=%d)", d.workerID, d.pollInterval, d.batchSize)
	d.wg.Add(2)
	go d.pollLoop()
	go d.reconcileLoop()
	return nil
}

func (d *TriggerDispatcher) Stop() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	d.running = false
	d.cancel()
	d.mu.Unlock()

	d.wg.Wait()
	log.Printf("[Dispatcher] %s stopped. Fired: %d, failed: %d, reconciled: %d",
		d.workerID, atomic.LoadInt64(&d.triggersFired), atomic.LoadInt64(&d.triggersFailed),
		atomic.LoadInt64(&d.jobsReconciled))
}

func (d *TriggerDispatcher) Stats() map[string]int64 {
	return map[string]int64{
		"triggers_fired":  atomic.LoadInt64(&d.triggersFired),
		"triggers_failed": atomic.LoadInt64(&d.triggersFailed),
		"jobs_reconciled": atomic.LoadInt64(&d.jobsReconciled),
	}
}

func (d *TriggerDispatcher) pollLoop() {
	defer d.wg.Done()
	ticker := time.NewTicker(d.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return
		case <-ticker.C:
			if err := d.dispatchDue(d.ctx); err != nil {
				log.Printf("[Dispatcher] dispatch pass failed: %v", err)
			}
		}
	}
}

type claimedTrigger struct {
	Token   string
	Handler string
	Payload []byte
}

// claimDue atomically claims up to batchSize due triggers.
func (d *TriggerDispatcher) claimDue(ctx context.Context) ([]claimedTrigger, error) {
	rows, err := d.db.QueryContext(ctx, `
		UPDATE drip_triggers
		SET status = 'claimed', claimed_by = $1, claimed_at = NOW()
		WHERE token IN (
			SELECT token FROM drip_triggers
			WHERE status = 'pending' AND fire_at <= NOW()
			ORDER BY fire_at ASC
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		)
		RETURNING token, handler, payload
	`, d.workerID, d.batchSize)
	if err != nil {
		return nil, fmt.Errorf("claim triggers: %w", err)
	}
	defer rows.Close()

	var out []claimedTrigger
	for rows.Next() {
		var t claimedTrigger
		if err := rows.Scan(&t.Token, &t.Handler, &t.Payload); err != nil {
			return nil, fmt.Errorf("scan trigger: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (d *TriggerDispatcher) dispatchDue(ctx context.Context) error {
	triggers, err := d.claimDue(ctx)
	if err != nil {
		return err
	}

	for _, t := range triggers {
		d.mu.RLock()
		fn, ok := d.handlers[t.Handler]
		d.mu.RUnlock()

		if !ok {
			d.markFired(ctx, t.Token, fmt.Errorf("no handler registered for %q", t.Handler))
			atomic.AddInt64(&d.triggersFailed, 1)
			continue
		}

		if err := fn(ctx, t.Payload); err != nil {
			log.Printf("[Dispatcher] trigger %s handler %s failed: %v", t.Token, t.Handler, err)
			d.markFired(ctx, t.Token, err)
			atomic.AddInt64(&d.triggersFailed, 1)
			continue
		}
		d.markFired(ctx, t.Token, nil)
		atomic.AddInt64(&d.triggersFired, 1)
	}
	return nil
}

func (d *TriggerDispatcher) markFired(ctx context.Context, token string, handlerErr error) {
	status := "fired"
	errMsg := ""
	if handlerErr != nil {
		status = "failed"
		errMsg = handlerErr.Error()
	}
	if _, err := d.db.ExecContext(ctx, `
		UPDATE drip_triggers
		SET status = $2, error_message = NULLIF($3, ''), fired_at = NOW()
		WHERE token = $1
	`, token, status, errMsg); err != nil {
		log.Printf("[Dispatcher] mark trigger %s %s: %v", token, status, err)
	}
}

// reconcileLoop sweeps scheduled-job rows stranded in pending: the service
// writes the job before registering its trigger, so a crash between the two
// leaves a tokenless pending row no trigger will ever fire.
func (d *TriggerDispatcher) reconcileLoop() {
	defer d.wg.Done()
	ticker := time.NewTicker(orphanJobAge / 2)
	defer ticker.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return
		case <-ticker.C:
			n, err := d.reconcileOrphans(d.ctx)
			if err != nil {
				log.Printf("[Dispatcher] reconcile pass failed: %v", err)
				continue
			}
			if n > 0 {
				log.Printf("[Dispatcher] reconciled %d orphaned pending jobs", n)
				atomic.AddInt64(&d.jobsReconciled, n)
			}
		}
	}
}

func (d *TriggerDispatcher) reconcileOrphans(ctx context.Context) (int64, error) {
	res, err := d.db.ExecContext(ctx, `
		UPDATE drip_scheduled_jobs
		SET status = 'failed', updated_at = NOW()
		WHERE status = 'pending' AND job_token = '' AND created_at < NOW() - $1::interval
	`, fmt.Sprintf("%d seconds", int(orphanJobAge.Seconds())))
	if err != nil {
		return 0, fmt.Errorf("reconcile orphans: %w", err)
	}
	return res.RowsAffected()
}

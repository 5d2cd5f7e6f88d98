package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync/atomic"

	"github.com/coldreach/dripengine/internal/scoring"
	"github.com/coldreach/dripengine/internal/tasks"
)

const DefaultScoreBatchSize = 50

// ScoreBatchWorker fans lead-score recomputation out over the task queue.
// The daily pass enqueues every lead that has at least one email log, in
// batches, and HandleRecomputeScores consumes them.
type ScoreBatchWorker struct {
	logs       scoring.LogRepository
	recomputer *scoring.Recomputer
	queue      tasks.Queue
	batchSize  int

	leadsEnqueued  int64
	leadsRescored  int64
	rescoreErrors  int64
}

func NewScoreBatchWorker(logs scoring.LogRepository, recomputer *scoring.Recomputer, queue tasks.Queue) *ScoreBatchWorker {
	return &ScoreBatchWorker{
		logs:       logs,
		recomputer: recomputer,
		queue:      queue,
		batchSize:  DefaultScoreBatchSize,
	}
}

// SetBatchSize overrides how many leads one task carries.
func (w *ScoreBatchWorker) SetBatchSize(n int) {
	if n > 0 {
		w.batchSize = n
	}
}

// EnqueueAll splits the scored-lead population into batches and enqueues one
// task per batch. Cron entry point.
func (w *ScoreBatchWorker) EnqueueAll(ctx context.Context) (int, error) {
	leadIDs, err := w.logs.DistinctLeadIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("list scored leads: %w", err)
	}

	batches := 0
	for start := 0; start < len(leadIDs); start += w.batchSize {
		end := start + w.batchSize
		if end > len(leadIDs) {
			end = len(leadIDs)
		}
		payload := tasks.RecomputeScoresPayload{LeadIDs: leadIDs[start:end]}
		if err := w.queue.Enqueue(ctx, tasks.TypeRecomputeScores, payload); err != nil {
			return batches, fmt.Errorf("enqueue score batch: %w", err)
		}
		batches++
		atomic.AddInt64(&w.leadsEnqueued, int64(end-start))
	}

	log.Printf("[ScoreBatch] Enqueued %d leads in %d batches", len(leadIDs), batches)
	return batches, nil
}

// HandleRecomputeScores is the task handler for one batch. A lead that fails
// to rescore is logged and skipped; one bad lead must not sink its batch.
func (w *ScoreBatchWorker) HandleRecomputeScores(ctx context.Context, raw json.RawMessage) error {
	var p tasks.RecomputeScoresPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return fmt.Errorf("unmarshal recompute payload: %w", err)
	}

	for _, leadID := range p.LeadIDs {
		if _, err := w.recomputer.RecomputeLead(ctx, leadID); err != nil {
			log.Printf("[ScoreBatch] rescore lead %s: %v", leadID, err)
			atomic.AddInt64(&w.rescoreErrors, 1)
			continue
		}
		atomic.AddInt64(&w.leadsRescored, 1)
	}
	return nil
}

func (w *ScoreBatchWorker) Stats() map[string]int64 {
	return map[string]int64{
		"leads_enqueued": atomic.LoadInt64(&w.leadsEnqueued),
		"leads_rescored": atomic.LoadInt64(&w.leadsRescored),
		"rescore_errors": atomic.LoadInt64(&w.rescoreErrors),
	}
}

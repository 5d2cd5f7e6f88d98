package worker

import (
	"context"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/coldreach/dripengine/internal/scoring"
)

// DecayWorker applies time decay to stored lead scores. It runs hourly but
// only rows whose decayed value actually moved are written; decay is a pure
// function of (raw score, last engagement time), so re-running the sweep at
// the same instant writes nothing.
type DecayWorker struct {
	scores scoring.ScoreRepository
	cfg    scoring.Config
	now    func() time.Time
}

func NewDecayWorker(scores scoring.ScoreRepository, cfg scoring.Config) *DecayWorker {
	return &DecayWorker{scores: scores, cfg: cfg, now: time.Now}
}

// SetClock overrides the clock (tests only).
func (w *DecayWorker) SetClock(now func() time.Time) { w.now = now }

// RunOnce performs one decay sweep and returns the number of rows patched.
func (w *DecayWorker) RunOnce(ctx context.Context) (int, error) {
	rows, err := w.scores.ListDecayable(ctx)
	if err != nil {
		return 0, fmt.Errorf("list decayable: %w", err)
	}

	now := w.now()
	patched := 0
	for _, s := range rows {
		if s.LastEngagementAt == nil {
			continue
		}
		// Fresh engagement decays nothing; skip the write.
		if now.Sub(*s.LastEngagementAt) < 24*time.Hour {
			continue
		}

		decayed := w.cfg.ApplyTimeDecay(s.RawScore, *s.LastEngagementAt, now)
		decayed = math.Round(decayed*100) / 100
		if decayed == s.HotScore {
			continue
		}

		temp := w.cfg.TemperatureOf(decayed)
		if err := w.scores.PatchDecay(ctx, s.LeadID, decayed, temp); err != nil {
			log.Printf("[Decay] patch lead %s: %v", s.LeadID, err)
			continue
		}
		patched++
	}

	if patched > 0 {
		log.Printf("[Decay] Swept %d rows, patched %d", len(rows), patched)
	}
	return patched, nil
}

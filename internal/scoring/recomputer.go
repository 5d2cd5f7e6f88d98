package scoring

import (
	"context"
	"fmt"
	"time"

	"github.com/coldreach/dripengine/internal/domain"
)

// LogRepository is the read side the scorer needs from email logs.
// Implementations must be safe for concurrent use.
type LogRepository interface {
	// ListByLead returns every email log for the lead, in any order.
	ListByLead(ctx context.Context, leadID string) ([]domain.EmailLog, error)

	// DistinctLeadIDs returns the distinct set of lead ids appearing in any
	// email log across the whole system.
	DistinctLeadIDs(ctx context.Context) ([]string, error)
}

// ScoreRepository is the write side for lead scores.
type ScoreRepository interface {
	// Get returns the stored score for a lead, or ErrScoreNotFound.
	Get(ctx context.Context, leadID string) (*domain.LeadScore, error)

	// Upsert replaces the lead's score row wholesale, keyed by lead id.
	Upsert(ctx context.Context, score domain.LeadScore) error

	// ListDecayable returns scores with a positive hot score and a known
	// last-engagement time, the population the hourly decay sweep visits.
	ListDecayable(ctx context.Context) ([]domain.LeadScore, error)

	// PatchDecay updates only the decayed score and temperature of a row.
	PatchDecay(ctx context.Context, leadID string, hotScore float64, temp domain.Temperature) error
}

// Recomputer folds a lead's email logs into its LeadScore row.
type Recomputer struct {
	cfg    Config
	logs   LogRepository
	scores ScoreRepository
	now    func() time.Time
}

// NewRecomputer creates a recomputer with the given scoring configuration.
func NewRecomputer(cfg Config, logs LogRepository, scores ScoreRepository) *Recomputer {
	return &Recomputer{cfg: cfg, logs: logs, scores: scores, now: time.Now}
}

// SetClock overrides the clock (tests only).
func (r *Recomputer) SetClock(now func() time.Time) { r.now = now }

// Config returns the scoring configuration in use.
func (r *Recomputer) Config() Config { return r.cfg }

// RecomputeLead loads all of a lead's logs, recomputes the score from
// scratch, and upserts exactly one row. A lead with zero logs still gets a
// zeroed row, so every scored lead has one once touched.
func (r *Recomputer) RecomputeLead(ctx context.Context, leadID string) (domain.LeadScore, error) {
	logs, err := r.logs.ListByLead(ctx, leadID)
	if err != nil {
		return domain.LeadScore{}, fmt.Errorf("loading logs for lead %s: %w", leadID, err)
	}

	score := Recompute(r.cfg, leadID, logs, r.now())
	if err := r.scores.Upsert(ctx, score); err != nil {
		return domain.LeadScore{}, fmt.Errorf("upserting score for lead %s: %w", leadID, err)
	}
	return score, nil
}

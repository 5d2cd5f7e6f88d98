package trigger

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// PostgresScheduler stores triggers in drip_triggers. The worker binary's
// dispatcher polls due rows and invokes the named handler; registration and
// dispatch share nothing but the table.
type PostgresScheduler struct {
	db *sql.DB
}

// NewPostgresScheduler creates a trigger scheduler backed by the given DB.
func NewPostgresScheduler(db *sql.DB) *PostgresScheduler {
	return &PostgresScheduler{db: db}
}

// Schedule inserts a pending trigger row and returns its token.
func (s *PostgresScheduler) Schedule(ctx context.Context, at time.Time, handler string, payload []byte) (string, error) {
	token := uuid.New().String()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO drip_triggers (token, fire_at, handler, payload, status, created_at)
		VALUES ($1, $2, $3, $4, 'pending', NOW())
	`, token, at, handler, payload)
	if err != nil {
		return "", fmt.Errorf("registering trigger: %w", err)
	}
	return token, nil
}

// Cancel revokes a trigger that has not fired yet. A trigger already claimed
// or fired reports ErrAlreadyFired.
func (s *PostgresScheduler) Cancel(ctx context.Context, token string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE drip_triggers
		SET status = 'cancelled', updated_at = NOW()
		WHERE token = $1 AND status = 'pending'
	`, token)
	if err != nil {
		return fmt.Errorf("cancelling trigger %s: %w", token, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrAlreadyFired
	}
	return nil
}

package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/coldreach/dripengine/internal/domain"
	"github.com/coldreach/dripengine/internal/scoring"
)

const emailLogColumns = `
	id, lead_id, campaign_id, email_id, message_id, recipient,
	COALESCE(subject,''), COALESCE(body,''), status,
	sent_at, delivered_at, first_open_at, last_open_at, open_count,
	first_click_at, last_click_at, click_count,
	COALESCE(error_message,''), created_at, updated_at`

func scanEmailLog(rows *sql.Rows) (domain.EmailLog, error) {
	var l domain.EmailLog
	err := rows.Scan(
		&l.ID, &l.LeadID, &l.CampaignID, &l.EmailID, &l.MessageID, &l.Recipient,
		&l.Subject, &l.Body, &l.Status,
		&l.SentAt, &l.DeliveredAt, &l.FirstOpenAt, &l.LastOpenAt, &l.OpenCount,
		&l.FirstClickAt, &l.LastClickAt, &l.ClickCount,
		&l.ErrorMessage, &l.CreatedAt, &l.UpdatedAt,
	)
	return l, err
}

// EmailLogRepo implements scoring.LogRepository.
type EmailLogRepo struct{ db *sql.DB }

func NewEmailLogRepo(db *sql.DB) *EmailLogRepo { return &EmailLogRepo{db: db} }

func (r *EmailLogRepo) ListByLead(ctx context.Context, leadID string) ([]domain.EmailLog, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+emailLogColumns+`
		FROM drip_email_logs
		WHERE lead_id = $1
	`, leadID)
	if err != nil {
		return nil, fmt.Errorf("list logs by lead: %w", err)
	}
	defer rows.Close()

	var out []domain.EmailLog
	for rows.Next() {
		l, err := scanEmailLog(rows)
		if err != nil {
			return nil, fmt.Errorf("scan email log: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *EmailLogRepo) DistinctLeadIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT lead_id FROM drip_email_logs ORDER BY lead_id`)
	if err != nil {
		return nil, fmt.Errorf("distinct lead ids: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan lead id: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// ScoreRepo implements scoring.ScoreRepository.
type ScoreRepo struct{ db *sql.DB }

func NewScoreRepo(db *sql.DB) *ScoreRepo { return &ScoreRepo{db: db} }

func (r *ScoreRepo) Get(ctx context.Context, leadID string) (*domain.LeadScore, error) {
	s := &domain.LeadScore{}
	err := r.db.QueryRowContext(ctx, `
		SELECT lead_id, hot_score, raw_score, temperature,
		       total_sent, total_delivered, total_opened, total_clicked,
		       open_rate, click_rate, last_engagement_at,
		       COALESCE(last_engagement_type,''), trend, last_calculated_at
		FROM drip_lead_scores
		WHERE lead_id = $1
	`, leadID).Scan(
		&s.LeadID, &s.HotScore, &s.RawScore, &s.Temperature,
		&s.TotalSent, &s.TotalDelivered, &s.TotalOpened, &s.TotalClicked,
		&s.OpenRate, &s.ClickRate, &s.LastEngagementAt,
		&s.LastEngagementType, &s.Trend, &s.LastCalculatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, scoring.ErrScoreNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get lead score: %w", err)
	}
	return s, nil
}

func (r *ScoreRepo) Upsert(ctx context.Context, s domain.LeadScore) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO drip_lead_scores
		       (lead_id, hot_score, raw_score, temperature,
		        total_sent, total_delivered, total_opened, total_clicked,
		        open_rate, click_rate, last_engagement_at, last_engagement_type,
		        trend, last_calculated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (lead_id) DO UPDATE SET
		       hot_score = EXCLUDED.hot_score,
		       raw_score = EXCLUDED.raw_score,
		       temperature = EXCLUDED.temperature,
		       total_sent = EXCLUDED.total_sent,
		       total_delivered = EXCLUDED.total_delivered,
		       total_opened = EXCLUDED.total_opened,
		       total_clicked = EXCLUDED.total_clicked,
		       open_rate = EXCLUDED.open_rate,
		       click_rate = EXCLUDED.click_rate,
		       last_engagement_at = EXCLUDED.last_engagement_at,
		       last_engagement_type = EXCLUDED.last_engagement_type,
		       trend = EXCLUDED.trend,
		       last_calculated_at = EXCLUDED.last_calculated_at
	`, s.LeadID, s.HotScore, s.RawScore, s.Temperature,
		s.TotalSent, s.TotalDelivered, s.TotalOpened, s.TotalClicked,
		s.OpenRate, s.ClickRate, s.LastEngagementAt, s.LastEngagementType,
		s.Trend, s.LastCalculatedAt)
	if err != nil {
		return fmt.Errorf("upsert lead score: %w", err)
	}
	return nil
}

func (r *ScoreRepo) ListDecayable(ctx context.Context) ([]domain.LeadScore, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT lead_id, hot_score, raw_score, temperature,
		       total_sent, total_delivered, total_opened, total_clicked,
		       open_rate, click_rate, last_engagement_at,
		       COALESCE(last_engagement_type,''), trend, last_calculated_at
		FROM drip_lead_scores
		WHERE hot_score > 0 AND last_engagement_at IS NOT NULL
	`)
	if err != nil {
		return nil, fmt.Errorf("list decayable scores: %w", err)
	}
	defer rows.Close()

	var out []domain.LeadScore
	for rows.Next() {
		var s domain.LeadScore
		if err := rows.Scan(
			&s.LeadID, &s.HotScore, &s.RawScore, &s.Temperature,
			&s.TotalSent, &s.TotalDelivered, &s.TotalOpened, &s.TotalClicked,
			&s.OpenRate, &s.ClickRate, &s.LastEngagementAt,
			&s.LastEngagementType, &s.Trend, &s.LastCalculatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan lead score: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *ScoreRepo) PatchDecay(ctx context.Context, leadID string, hotScore float64, temp domain.Temperature) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE drip_lead_scores
		SET hot_score = $2, temperature = $3, last_calculated_at = NOW()
		WHERE lead_id = $1
	`, leadID, hotScore, temp)
	if err != nil {
		return fmt.Errorf("patch decayed score: %w", err)
	}
	return nil
}

// Package postgres implements the service repository interfaces with raw SQL
// against PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/coldreach/dripengine/internal/domain"
)

// ScheduleRepo implements schedule.Repository.
type ScheduleRepo struct{ db *sql.DB }

func NewScheduleRepo(db *sql.DB) *ScheduleRepo { return &ScheduleRepo{db: db} }

func (r *ScheduleRepo) GetCampaign(ctx context.Context, id string) (*domain.Campaign, error) {
	c := &domain.Campaign{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, owner_id, name, COALESCE(description,''), audience_ids,
		       status, scheduling_status, created_at, updated_at
		FROM drip_campaigns
		WHERE id = $1
	`, id).Scan(
		&c.ID, &c.OwnerID, &c.Name, &c.Description, pq.Array(&c.AudienceIDs),
		&c.Status, &c.SchedulingStatus, &c.CreatedAt, &c.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get campaign: %w", err)
	}
	return c, nil
}

func (r *ScheduleRepo) ListEmails(ctx context.Context, campaignID string) ([]domain.EmailTemplate, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, campaign_id, subject, COALESCE(html_content,''), COALESCE(text_content,''),
		       ordering, delay, delay_unit
		FROM drip_emails
		WHERE campaign_id = $1
		ORDER BY ordering ASC
	`, campaignID)
	if err != nil {
		return nil, fmt.Errorf("list emails: %w", err)
	}
	defer rows.Close()

	var out []domain.EmailTemplate
	for rows.Next() {
		var e domain.EmailTemplate
		if err := rows.Scan(&e.ID, &e.CampaignID, &e.Subject, &e.HTMLContent, &e.TextContent,
			&e.Ordering, &e.Delay, &e.DelayUnit); err != nil {
			return nil, fmt.Errorf("scan email: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *ScheduleRepo) ListAudienceLeads(ctx context.Context, audienceIDs []string) ([]domain.Lead, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT DISTINCT l.id, l.owner_id, COALESCE(l.name,''), l.email,
		       COALESCE(l.company,''), COALESCE(l.category,'')
		FROM drip_leads l
		JOIN drip_audience_leads al ON al.lead_id = l.id
		WHERE al.audience_id = ANY($1)
	`, pq.Array(audienceIDs))
	if err != nil {
		return nil, fmt.Errorf("list audience leads: %w", err)
	}
	defer rows.Close()

	var out []domain.Lead
	for rows.Next() {
		var l domain.Lead
		if err := rows.Scan(&l.ID, &l.OwnerID, &l.Name, &l.Email, &l.Company, &l.Category); err != nil {
			return nil, fmt.Errorf("scan lead: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *ScheduleRepo) CreateJob(ctx context.Context, job *domain.ScheduledJob) (string, error) {
	id := uuid.New().String()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO drip_scheduled_jobs
		       (id, campaign_id, email_id, lead_id, job_token, scheduled_at, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, '', $5, $6, NOW(), NOW())
	`, id, job.CampaignID, job.EmailID, job.LeadID, job.ScheduledAt, domain.JobPending)
	if err != nil {
		return "", fmt.Errorf("create job: %w", err)
	}
	return id, nil
}

func (r *ScheduleRepo) PromoteJob(ctx context.Context, jobID, token string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE drip_scheduled_jobs
		SET job_token = $2, status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $4
	`, jobID, token, domain.JobScheduled, domain.JobPending)
	if err != nil {
		return fmt.Errorf("promote job: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("promote job: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("promote job %s: no pending row", jobID)
	}
	return nil
}

func (r *ScheduleRepo) CancelJobs(ctx context.Context, campaignID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		UPDATE drip_scheduled_jobs
		SET status = $2, updated_at = NOW()
		WHERE campaign_id = $1 AND status = $3
		RETURNING job_token
	`, campaignID, domain.JobCancelled, domain.JobScheduled)
	if err != nil {
		return nil, fmt.Errorf("cancel jobs: %w", err)
	}
	defer rows.Close()

	var tokens []string
	for rows.Next() {
		var token string
		if err := rows.Scan(&token); err != nil {
			return nil, fmt.Errorf("scan token: %w", err)
		}
		tokens = append(tokens, token)
	}
	return tokens, rows.Err()
}

func (r *ScheduleRepo) ListCancelledJobs(ctx context.Context, campaignID string) ([]domain.ScheduledJob, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, campaign_id, email_id, lead_id, job_token, scheduled_at, status, created_at, updated_at
		FROM drip_scheduled_jobs
		WHERE campaign_id = $1 AND status = $2
		ORDER BY created_at ASC
	`, campaignID, domain.JobCancelled)
	if err != nil {
		return nil, fmt.Errorf("list cancelled jobs: %w", err)
	}
	defer rows.Close()

	var out []domain.ScheduledJob
	for rows.Next() {
		var j domain.ScheduledJob
		if err := rows.Scan(&j.ID, &j.CampaignID, &j.EmailID, &j.LeadID, &j.JobToken,
			&j.ScheduledAt, &j.Status, &j.CreatedAt, &j.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

func (r *ScheduleRepo) RescheduleJob(ctx context.Context, jobID, token string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE drip_scheduled_jobs
		SET job_token = $2, scheduled_at = $3, status = $4, updated_at = NOW()
		WHERE id = $1
	`, jobID, token, at, domain.JobScheduled)
	if err != nil {
		return fmt.Errorf("reschedule job: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reschedule job: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("reschedule job %s: no row", jobID)
	}
	return nil
}

func (r *ScheduleRepo) SetCampaignStatus(ctx context.Context, campaignID string, status domain.CampaignStatus, scheduling domain.SchedulingStatus) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE drip_campaigns
		SET status = $2, scheduling_status = $3, updated_at = NOW()
		WHERE id = $1
	`, campaignID, status, scheduling)
	if err != nil {
		return fmt.Errorf("set campaign status: %w", err)
	}
	return nil
}

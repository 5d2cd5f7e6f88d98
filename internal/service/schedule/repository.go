package schedule

import (
	"context"
	"time"

	"github.com/coldreach/dripengine/internal/domain"
)

// Repository is the persistence surface the scheduling service needs.
// The Postgres implementation lives in repository/postgres.
type Repository interface {
	// GetCampaign returns the campaign or a nil pointer when no row exists.
	GetCampaign(ctx context.Context, id string) (*domain.Campaign, error)

	// ListEmails returns the campaign's emails ordered ascending by
	// their ordering field.
	ListEmails(ctx context.Context, campaignID string) ([]domain.EmailTemplate, error)

	// ListAudienceLeads returns the distinct leads across the given
	// audiences. A lead in several audiences appears once.
	ListAudienceLeads(ctx context.Context, audienceIDs []string) ([]domain.Lead, error)

	// CreateJob inserts a job in pending status with an empty token and
	// returns its id.
	CreateJob(ctx context.Context, job *domain.ScheduledJob) (string, error)

	// PromoteJob records the trigger token on a pending job and moves it
	// to scheduled.
	PromoteJob(ctx context.Context, jobID, token string) error

	// CancelJobs moves every scheduled job of the campaign to cancelled
	// and returns their trigger tokens.
	CancelJobs(ctx context.Context, campaignID string) ([]string, error)

	// ListCancelledJobs returns the campaign's cancelled jobs.
	ListCancelledJobs(ctx context.Context, campaignID string) ([]domain.ScheduledJob, error)

	// RescheduleJob rewrites an existing job row in place with a new
	// token and send time and moves it back to scheduled.
	RescheduleJob(ctx context.Context, jobID, token string, at time.Time) error

	// SetCampaignStatus updates the campaign's status pair.
	SetCampaignStatus(ctx context.Context, campaignID string, status domain.CampaignStatus, scheduling domain.SchedulingStatus) error
}

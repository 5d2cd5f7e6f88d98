package schedule

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/coldreach/dripengine/internal/domain"
	"github.com/coldreach/dripengine/internal/scoring"
	"github.com/coldreach/dripengine/internal/trigger"
)

// sendPayload is the trigger payload for a send_email job.
type sendPayload struct {
	JobID      string `json:"job_id"`
	CampaignID string `json:"campaign_id"`
	EmailID    string `json:"email_id"`
	LeadID     string `json:"lead_id"`
}

// Service coordinates campaign scheduling against the repository and the
// time-based trigger.
type Service struct {
	repo    Repository
	trigger trigger.Scheduler
	nowFn   func() time.Time
}

func NewService(repo Repository, trig trigger.Scheduler) *Service {
	return &Service{
		repo:    repo,
		trigger: trig,
		nowFn:   time.Now,
	}
}

// SetClock overrides the service clock. Tests only.
func (s *Service) SetClock(fn func() time.Time) {
	s.nowFn = fn
}

// authorize loads the campaign and enforces identity and ownership.
// A campaign owned by someone else reads as not found.
func (s *Service) authorize(ctx context.Context, ownerID, campaignID string) (*domain.Campaign, error) {
	if ownerID == "" {
		return nil, ErrUnauthorized
	}
	c, err := s.repo.GetCampaign(ctx, campaignID)
	if err != nil {
		return nil, fmt.Errorf("get campaign: %w", err)
	}
	if c == nil || c.OwnerID != ownerID {
		return nil, ErrNotFound
	}
	return c, nil
}

// cumulativeOffsets turns per-email delays into absolute offsets from the
// publish instant. Email delays compound: each email's delay is measured
// from the previous email's send time, the first from publish.
func cumulativeOffsets(emails []domain.EmailTemplate) []time.Duration {
	offsets := make([]time.Duration, len(emails))
	var acc time.Duration
	for i, e := range emails {
		acc += scoring.DelayDuration(e.Delay, e.DelayUnit)
		offsets[i] = acc
	}
	return offsets
}

// ScheduleCampaignEmails expands the campaign into one job per
// (email, lead) pair, registers each with the trigger, and activates the
// campaign. It returns the number of jobs scheduled.
//
// Precondition failures (no audiences, no emails, no leads) mark the
// campaign scheduling_status=failed and leave it in draft. A failure
// partway through registration also fails the campaign but leaves the
// already-created jobs in place; the dispatcher's reconciler sweeps
// pending jobs that never received a token.
func (s *Service) ScheduleCampaignEmails(ctx context.Context, ownerID, campaignID string) (int, error) {
	c, err := s.authorize(ctx, ownerID, campaignID)
	if err != nil {
		return 0, err
	}

	if len(c.AudienceIDs) == 0 {
		s.markFailed(ctx, campaignID)
		return 0, ErrNoAudiences
	}

	emails, err := s.repo.ListEmails(ctx, campaignID)
	if err != nil {
		s.markFailed(ctx, campaignID)
		return 0, fmt.Errorf("list emails: %w", err)
	}
	if len(emails) == 0 {
		s.markFailed(ctx, campaignID)
		return 0, ErrNoEmails
	}

	leads, err := s.repo.ListAudienceLeads(ctx, c.AudienceIDs)
	if err != nil {
		s.markFailed(ctx, campaignID)
		return 0, fmt.Errorf("list audience leads: %w", err)
	}
	if len(leads) == 0 {
		s.markFailed(ctx, campaignID)
		return 0, ErrNoLeads
	}

	offsets := cumulativeOffsets(emails)
	now := s.nowFn()

	scheduled := 0
	for _, lead := range leads {
		for i, email := range emails {
			at := now.Add(offsets[i])
			job := &domain.ScheduledJob{
				CampaignID:  campaignID,
				EmailID:     email.ID,
				LeadID:      lead.ID,
				ScheduledAt: at,
				Status:      domain.JobPending,
			}
			jobID, err := s.repo.CreateJob(ctx, job)
			if err != nil {
				s.markFailed(ctx, campaignID)
				return scheduled, fmt.Errorf("create job: %w", err)
			}
			token, err := s.registerSend(ctx, at, jobID, campaignID, email.ID, lead.ID)
			if err != nil {
				s.markFailed(ctx, campaignID)
				return scheduled, fmt.Errorf("register trigger: %w", err)
			}
			if err := s.repo.PromoteJob(ctx, jobID, token); err != nil {
				s.markFailed(ctx, campaignID)
				return scheduled, fmt.Errorf("promote job: %w", err)
			}
			scheduled++
		}
	}

	if err := s.repo.SetCampaignStatus(ctx, campaignID, domain.CampaignActive, domain.SchedulingScheduled); err != nil {
		return scheduled, fmt.Errorf("activate campaign: %w", err)
	}
	return scheduled, nil
}

// CancelCampaignEmails cancels the campaign's scheduled jobs and their
// triggers and pauses the campaign. It returns the number of triggers
// cancelled; a trigger that already fired is skipped, not an error.
func (s *Service) CancelCampaignEmails(ctx context.Context, ownerID, campaignID string) (int, error) {
	if _, err := s.authorize(ctx, ownerID, campaignID); err != nil {
		return 0, err
	}

	tokens, err := s.repo.CancelJobs(ctx, campaignID)
	if err != nil {
		return 0, fmt.Errorf("cancel jobs: %w", err)
	}

	cancelled := 0
	for _, token := range tokens {
		if err := s.trigger.Cancel(ctx, token); err != nil {
			log.Printf("[Schedule] Cancel trigger %s skipped: %v", token, err)
			continue
		}
		cancelled++
	}

	if err := s.repo.SetCampaignStatus(ctx, campaignID, domain.CampaignPaused, domain.SchedulingCancelled); err != nil {
		return cancelled, fmt.Errorf("pause campaign: %w", err)
	}
	return cancelled, nil
}

// ResumeCampaignEmails re-registers the campaign's cancelled jobs with the
// delay clock restarted from the resume instant, rewriting each job row in
// place rather than inserting new ones. Resuming a campaign with no
// cancelled jobs is a no-op success.
func (s *Service) ResumeCampaignEmails(ctx context.Context, ownerID, campaignID string) (int, error) {
	if _, err := s.authorize(ctx, ownerID, campaignID); err != nil {
		return 0, err
	}

	jobs, err := s.repo.ListCancelledJobs(ctx, campaignID)
	if err != nil {
		return 0, fmt.Errorf("list cancelled jobs: %w", err)
	}

	resumed := 0
	if len(jobs) > 0 {
		emails, err := s.repo.ListEmails(ctx, campaignID)
		if err != nil {
			return 0, fmt.Errorf("list emails: %w", err)
		}
		// On resume each job waits its email's own delay from the resume
		// instant, not the cumulative offset used at publish.
		delayByEmail := make(map[string]time.Duration, len(emails))
		for _, e := range emails {
			delayByEmail[e.ID] = scoring.DelayDuration(e.Delay, e.DelayUnit)
		}

		now := s.nowFn()
		for _, job := range jobs {
			at := now.Add(delayByEmail[job.EmailID])
			token, err := s.registerSend(ctx, at, job.ID, campaignID, job.EmailID, job.LeadID)
			if err != nil {
				return resumed, fmt.Errorf("register trigger: %w", err)
			}
			if err := s.repo.RescheduleJob(ctx, job.ID, token, at); err != nil {
				return resumed, fmt.Errorf("reschedule job: %w", err)
			}
			resumed++
		}
	}

	if err := s.repo.SetCampaignStatus(ctx, campaignID, domain.CampaignActive, domain.SchedulingScheduled); err != nil {
		return resumed, fmt.Errorf("activate campaign: %w", err)
	}
	return resumed, nil
}

func (s *Service) registerSend(ctx context.Context, at time.Time, jobID, campaignID, emailID, leadID string) (string, error) {
	payload, err := json.Marshal(sendPayload{
		JobID:      jobID,
		CampaignID: campaignID,
		EmailID:    emailID,
		LeadID:     leadID,
	})
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	return s.trigger.Schedule(ctx, at, trigger.HandlerSendEmail, payload)
}

func (s *Service) markFailed(ctx context.Context, campaignID string) {
	if err := s.repo.SetCampaignStatus(ctx, campaignID, domain.CampaignDraft, domain.SchedulingFailed); err != nil {
		log.Printf("[Schedule] Mark campaign %s failed: %v", campaignID, err)
	}
}

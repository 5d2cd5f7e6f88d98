package domain

import "time"

// JobStatus enumerates the lifecycle of a scheduled send job.
//
// pending is written before the external trigger is registered and promoted to
// scheduled once registration succeeds, so a crash between the two writes
// leaves a detectable orphan instead of a silent disagreement.
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobScheduled JobStatus = "scheduled"
	JobCancelled JobStatus = "cancelled"
	JobSent      JobStatus = "sent"
	JobFailed    JobStatus = "failed"
)

// ScheduledJob is one row per (campaign, email, lead) triple, created when a
// campaign is published. JobToken is the opaque reference to the external
// time-based trigger. On pause the row is marked cancelled and the trigger
// cancelled; on resume the same row is patched with a fresh token and
// scheduled_at, never duplicated.
type ScheduledJob struct {
	ID          string    `json:"id" db:"id"`
	CampaignID  string    `json:"campaign_id" db:"campaign_id"`
	EmailID     string    `json:"email_id" db:"email_id"`
	LeadID      string    `json:"lead_id" db:"lead_id"`
	JobToken    string    `json:"job_token" db:"job_token"`
	ScheduledAt time.Time `json:"scheduled_at" db:"scheduled_at"`
	Status      JobStatus `json:"status" db:"status"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

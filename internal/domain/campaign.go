package domain

import "time"

// CampaignStatus enumerates the business lifecycle states of a drip campaign.
type CampaignStatus string

const (
	CampaignDraft     CampaignStatus = "draft"
	CampaignActive    CampaignStatus = "active"
	CampaignPaused    CampaignStatus = "paused"
	CampaignCompleted CampaignStatus = "completed"
)

// SchedulingStatus tracks the scheduler's own progress on a campaign,
// independent of the business status above.
type SchedulingStatus string

const (
	SchedulingUnscheduled SchedulingStatus = "unscheduled"
	SchedulingScheduled   SchedulingStatus = "scheduled"
	SchedulingCancelled   SchedulingStatus = "cancelled"
	SchedulingFailed      SchedulingStatus = "failed"
)

// Campaign is a drip campaign: an ordered sequence of emails sent to one or
// more target audiences. Invariant: AudienceIDs is non-empty whenever the
// status is anything other than draft.
type Campaign struct {
	ID               string           `json:"id" db:"id"`
	OwnerID          string           `json:"owner_id" db:"owner_id"`
	Name             string           `json:"name" db:"name"`
	Description      string           `json:"description" db:"description"`
	AudienceIDs      []string         `json:"audience_ids" db:"audience_ids"`
	Status           CampaignStatus   `json:"status" db:"status"`
	SchedulingStatus SchedulingStatus `json:"scheduling_status" db:"scheduling_status"`
	CreatedAt        time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at" db:"updated_at"`
}

// DelayUnit is the unit of an email's delay offset from its predecessor.
type DelayUnit string

const (
	DelayMinutes DelayUnit = "minutes"
	DelayHours   DelayUnit = "hours"
	DelayDays    DelayUnit = "days"
)

// EmailTemplate is one step in a campaign's sequence. Ordering values form a
// total order within the campaign but are not required to be contiguous; the
// scheduler processes them ascending. Delay is the offset from the previous
// email in the sequence, or from campaign start for the first email.
type EmailTemplate struct {
	ID          string    `json:"id" db:"id"`
	CampaignID  string    `json:"campaign_id" db:"campaign_id"`
	Subject     string    `json:"subject" db:"subject"`
	HTMLContent string    `json:"html_content" db:"html_content"`
	TextContent string    `json:"text_content" db:"text_content"`
	Ordering    int       `json:"ordering" db:"ordering"`
	Delay       int       `json:"delay" db:"delay"`
	DelayUnit   DelayUnit `json:"delay_unit" db:"delay_unit"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

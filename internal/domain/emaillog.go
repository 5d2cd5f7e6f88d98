package domain

import "time"

// LogStatus enumerates delivery states of a dispatched email.
type LogStatus string

const (
	LogQueued     LogStatus = "queued"
	LogSent       LogStatus = "sent"
	LogDelivered  LogStatus = "delivered"
	LogOpened     LogStatus = "opened"
	LogClicked    LogStatus = "clicked"
	LogBounced    LogStatus = "bounced"
	LogFailed     LogStatus = "failed"
	LogComplained LogStatus = "complained"
)

// IsTerminal reports whether the status is sticky: once an EmailLog reaches a
// terminal status, later provider events for the same message id are ignored.
func (s LogStatus) IsTerminal() bool {
	return s == LogBounced || s == LogComplained || s == LogFailed
}

// EmailLog is one row per actually-dispatched email attempt, keyed uniquely by
// the delivery provider's message id. The subject and body are snapshots of
// what was sent, not references to the template.
type EmailLog struct {
	ID           string     `json:"id" db:"id"`
	LeadID       string     `json:"lead_id" db:"lead_id"`
	CampaignID   string     `json:"campaign_id" db:"campaign_id"`
	EmailID      string     `json:"email_id" db:"email_id"`
	MessageID    string     `json:"message_id" db:"message_id"`
	Recipient    string     `json:"recipient" db:"recipient"`
	Subject      string     `json:"subject" db:"subject"`
	Body         string     `json:"body" db:"body"`
	Status       LogStatus  `json:"status" db:"status"`
	SentAt       *time.Time `json:"sent_at" db:"sent_at"`
	DeliveredAt  *time.Time `json:"delivered_at" db:"delivered_at"`
	FirstOpenAt  *time.Time `json:"first_open_at" db:"first_open_at"`
	LastOpenAt   *time.Time `json:"last_open_at" db:"last_open_at"`
	OpenCount    int        `json:"open_count" db:"open_count"`
	FirstClickAt *time.Time `json:"first_click_at" db:"first_click_at"`
	LastClickAt  *time.Time `json:"last_click_at" db:"last_click_at"`
	ClickCount   int        `json:"click_count" db:"click_count"`
	ErrorMessage string     `json:"error_message,omitempty" db:"error_message"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
}

// LastEngagementAt returns the most recent open or click timestamp, or nil if
// the log carries no engagement at all.
func (l *EmailLog) LastEngagementAt() *time.Time {
	switch {
	case l.LastClickAt != nil && l.LastOpenAt != nil:
		if l.LastClickAt.After(*l.LastOpenAt) {
			return l.LastClickAt
		}
		return l.LastOpenAt
	case l.LastClickAt != nil:
		return l.LastClickAt
	case l.LastOpenAt != nil:
		return l.LastOpenAt
	default:
		return nil
	}
}

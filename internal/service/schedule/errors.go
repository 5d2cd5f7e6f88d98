package schedule

import "errors"

var (
	// ErrUnauthorized means the caller presented no valid identity.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNotFound covers both a missing campaign and a campaign owned by
	// someone else; callers cannot distinguish the two.
	ErrNotFound = errors.New("campaign not found")
	// ErrNoAudiences means the campaign has no audiences selected.
	ErrNoAudiences = errors.New("campaign has no audiences")
	// ErrNoEmails means the campaign has no emails to send.
	ErrNoEmails = errors.New("campaign has no emails")
	// ErrNoLeads means the campaign's audiences contain no leads.
	ErrNoLeads = errors.New("no leads found in campaign audiences")
)

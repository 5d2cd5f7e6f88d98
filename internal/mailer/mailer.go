// Package mailer renders campaign emails and delivers them through an ESP.
package mailer

import (
	"context"
	"time"
)

// Message is one fully rendered outbound email.
type Message struct {
	To        string
	FromEmail string
	FromName  string
	Subject   string
	HTMLBody  string
	TextBody  string

	// Tagging for webhook correlation.
	CampaignID string
	LeadID     string
}

// SendResult reports the outcome of a single send.
type SendResult struct {
	// MessageID is the provider's id for the accepted message. Email logs
	// are keyed by it.
	MessageID string
	SentAt    time.Time
}

// Sender delivers a rendered message. Implementations return an error when
// the provider rejects the message; acceptance is not delivery.
type Sender interface {
	Send(ctx context.Context, msg *Message) (*SendResult, error)
}

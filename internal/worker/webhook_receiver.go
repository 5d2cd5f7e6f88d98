package worker

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"github.com/coldreach/dripengine/internal/domain"
	"github.com/coldreach/dripengine/internal/tasks"
)

// EmailEvent is the normalized provider webhook event. Event names arrive
// either bare ("opened") or namespaced ("email.opened").
type EmailEvent struct {
	Event     string     `json:"event"`
	MessageID string     `json:"message_id"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
	Reason    string     `json:"reason,omitempty"`
}

// EmailEventReceiver folds provider delivery events into drip_email_logs.
//
// Events for unknown message ids are dropped: the provider can replay events
// after a log row is purged, and a webhook endpoint that errors on them just
// earns itself infinite redelivery. Terminal statuses are sticky; a bounce
// followed by a late open stays a bounce.
type EmailEventReceiver struct {
	db    *sql.DB
	queue tasks.Queue // optional; engagement events enqueue a rescore

	eventsApplied int64
	eventsDropped int64
	eventsIgnored int64
}

func NewEmailEventReceiver(db *sql.DB, queue tasks.Queue) *EmailEventReceiver {
	return &EmailEventReceiver{db: db, queue: queue}
}

// statusRank orders the non-terminal progression; a log's status only moves
// forward through it.
func statusRank(s domain.LogStatus) int {
	switch s {
	case domain.LogQueued:
		return 0
	case domain.LogSent:
		return 1
	case domain.LogDelivered:
		return 2
	case domain.LogOpened:
		return 3
	case domain.LogClicked:
		return 4
	default:
		return -1
	}
}

// Apply processes one event against its email log row.
func (r *EmailEventReceiver) Apply(ctx context.Context, ev EmailEvent) error {
	event := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(ev.Event)), "email.")
	if event == "" || ev.MessageID == "" {
		atomic.AddInt64(&r.eventsDropped, 1)
		return fmt.Errorf("event missing type or message id")
	}

	at := time.Now()
	if ev.Timestamp != nil {
		at = *ev.Timestamp
	}

	var logID, leadID string
	var status domain.LogStatus
	err := r.db.QueryRowContext(ctx,
		`SELECT id, lead_id, status FROM drip_email_logs WHERE message_id = $1`, ev.MessageID,
	).Scan(&logID, &leadID, &status)
	if err == sql.ErrNoRows {
		log.Printf("[EmailEvents] no log for message %s, dropping %s", ev.MessageID, event)
		atomic.AddInt64(&r.eventsDropped, 1)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load log for message %s: %w", ev.MessageID, err)
	}

	if status.IsTerminal() {
		atomic.AddInt64(&r.eventsIgnored, 1)
		return nil
	}

	switch event {
	case "delivered":
		err = r.applyDelivered(ctx, logID, status, at)
	case "opened":
		err = r.applyOpened(ctx, logID, status, at)
	case "clicked":
		err = r.applyClicked(ctx, logID, status, at)
	case "bounced", "failed", "complained":
		err = r.applyTerminal(ctx, logID, domain.LogStatus(event), event, ev.Reason)
	default:
		log.Printf("[EmailEvents] unknown event %q for message %s", event, ev.MessageID)
		atomic.AddInt64(&r.eventsDropped, 1)
		return nil
	}
	if err != nil {
		return err
	}
	atomic.AddInt64(&r.eventsApplied, 1)

	// Engagement moves the lead's score; rescore out of band.
	if r.queue != nil && (event == "opened" || event == "clicked") {
		payload := tasks.RecomputeScoresPayload{LeadIDs: []string{leadID}}
		if err := r.queue.Enqueue(ctx, tasks.TypeRecomputeScores, payload); err != nil {
			log.Printf("[EmailEvents] enqueue rescore for lead %s: %v", leadID, err)
		}
	}
	return nil
}

func (r *EmailEventReceiver) applyDelivered(ctx context.Context, logID string, current domain.LogStatus, at time.Time) error {
	next := current
	if statusRank(domain.LogDelivered) > statusRank(current) {
		next = domain.LogDelivered
	}
	_, err := r.db.ExecContext(ctx, `
		UPDATE drip_email_logs
		SET status = $2, delivered_at = COALESCE(delivered_at, $3), updated_at = NOW()
		WHERE id = $1
	`, logID, next, at)
	if err != nil {
		return fmt.Errorf("apply delivered: %w", err)
	}
	return nil
}

func (r *EmailEventReceiver) applyOpened(ctx context.Context, logID string, current domain.LogStatus, at time.Time) error {
	next := current
	if statusRank(domain.LogOpened) > statusRank(current) {
		next = domain.LogOpened
	}
	_, err := r.db.ExecContext(ctx, `
		UPDATE drip_email_logs
		SET status = $2,
		    first_open_at = COALESCE(first_open_at, $3),
		    last_open_at = $3,
		    open_count = open_count + 1,
		    updated_at = NOW()
		WHERE id = $1
	`, logID, next, at)
	if err != nil {
		return fmt.Errorf("apply opened: %w", err)
	}
	return nil
}

func (r *EmailEventReceiver) applyClicked(ctx context.Context, logID string, current domain.LogStatus, at time.Time) error {
	next := current
	if statusRank(domain.LogClicked) > statusRank(current) {
		next = domain.LogClicked
	}
	_, err := r.db.ExecContext(ctx, `
		UPDATE drip_email_logs
		SET status = $2,
		    first_click_at = COALESCE(first_click_at, $3),
		    last_click_at = $3,
		    click_count = click_count + 1,
		    updated_at = NOW()
		WHERE id = $1
	`, logID, next, at)
	if err != nil {
		return fmt.Errorf("apply clicked: %w", err)
	}
	return nil
}

func (r *EmailEventReceiver) applyTerminal(ctx context.Context, logID string, status domain.LogStatus, event, reason string) error {
	errMsg := "email " + event
	if reason != "" {
		errMsg = fmt.Sprintf("email %s: %s", event, reason)
	}
	_, err := r.db.ExecContext(ctx, `
		UPDATE drip_email_logs
		SET status = $2, error_message = $3, updated_at = NOW()
		WHERE id = $1
	`, logID, status, errMsg)
	if err != nil {
		return fmt.Errorf("apply %s: %w", event, err)
	}
	return nil
}

func (r *EmailEventReceiver) Stats() map[string]int64 {
	return map[string]int64{
		"events_applied": atomic.LoadInt64(&r.eventsApplied),
		"events_dropped": atomic.LoadInt64(&r.eventsDropped),
		"events_ignored": atomic.LoadInt64(&r.eventsIgnored),
	}
}

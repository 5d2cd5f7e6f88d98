package mailer

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/coldreach/dripengine/internal/pkg/logger"
)

// DryRunSender logs messages instead of delivering them. Used when no email
// provider is configured, so the rest of the pipeline can run locally.
type DryRunSender struct{}

func (s *DryRunSender) Send(_ context.Context, msg *Message) (*SendResult, error) {
	id := fmt.Sprintf("dryrun-%s", uuid.New().String())
	log.Printf("[Mailer] DRY RUN: would send %q to %s (message_id=%s)",
		msg.Subject, logger.RedactEmail(msg.To), id)
	return &SendResult{MessageID: id, SentAt: time.Now()}, nil
}

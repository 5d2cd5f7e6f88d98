package worker

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/coldreach/dripengine/internal/domain"
	"github.com/coldreach/dripengine/internal/mailer"
	"github.com/coldreach/dripengine/internal/pkg/logger"
)

// sendEmailPayload mirrors the trigger payload written at scheduling time.
type sendEmailPayload struct {
	JobID      string `json:"job_id"`
	CampaignID string `json:"campaign_id"`
	EmailID    string `json:"email_id"`
	LeadID     string `json:"lead_id"`
}

// SendHandler executes send_email triggers: it renders the campaign email
// for the lead, delivers it, and records an email log row keyed by the
// provider message id.
type SendHandler struct {
	db        *sql.DB
	renderer  *mailer.Renderer
	sender    mailer.Sender
	fromEmail string
	fromName  string
}

func NewSendHandler(db *sql.DB, renderer *mailer.Renderer, sender mailer.Sender, fromEmail, fromName string) *SendHandler {
	return &SendHandler{
		db:        db,
		renderer:  renderer,
		sender:    sender,
		fromEmail: fromEmail,
		fromName:  fromName,
	}
}

// HandleSendEmail is the TriggerHandler for send_email triggers.
//
// A trigger can outlive its job: the campaign may have been paused after the
// trigger was already claimed, or the job row swept by the reconciler. The
// handler re-checks the job row and silently drops the send unless the row
// still exists and is still scheduled.
func (h *SendHandler) HandleSendEmail(ctx context.Context, raw json.RawMessage) error {
	var p sendEmailPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return fmt.Errorf("unmarshal send payload: %w", err)
	}

	var status domain.JobStatus
	err := h.db.QueryRowContext(ctx,
		`SELECT status FROM drip_scheduled_jobs WHERE id = $1`, p.JobID,
	).Scan(&status)
	if err == sql.ErrNoRows {
		log.Printf("[SendHandler] job %s gone, dropping send", p.JobID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load job %s: %w", p.JobID, err)
	}
	if status != domain.JobScheduled {
		log.Printf("[SendHandler] job %s is %s, dropping send", p.JobID, status)
		return nil
	}

	tpl, lead, err := h.loadEmailAndLead(ctx, p.EmailID, p.LeadID)
	if err != nil {
		h.setJobStatus(ctx, p.JobID, domain.JobFailed)
		return err
	}

	subject, htmlBody, textBody, err := h.renderer.RenderEmail(tpl, lead)
	if err != nil {
		h.setJobStatus(ctx, p.JobID, domain.JobFailed)
		return fmt.Errorf("render email %s for lead %s: %w", p.EmailID, p.LeadID, err)
	}

	msg := &mailer.Message{
		To:         lead.Email,
		FromEmail:  h.fromEmail,
		FromName:   h.fromName,
		Subject:    subject,
		HTMLBody:   htmlBody,
		TextBody:   textBody,
		CampaignID: p.CampaignID,
		LeadID:     p.LeadID,
	}

	result, err := h.sender.Send(ctx, msg)
	if err != nil {
		h.recordLog(ctx, p, lead, subject, htmlBody, "", domain.LogFailed, nil, err.Error())
		h.setJobStatus(ctx, p.JobID, domain.JobFailed)
		return fmt.Errorf("send to %s: %w", logger.RedactEmail(lead.Email), err)
	}

	h.recordLog(ctx, p, lead, subject, htmlBody, result.MessageID, domain.LogSent, &result.SentAt, "")
	h.setJobStatus(ctx, p.JobID, domain.JobSent)
	return nil
}

func (h *SendHandler) loadEmailAndLead(ctx context.Context, emailID, leadID string) (*domain.EmailTemplate, *domain.Lead, error) {
	tpl := &domain.EmailTemplate{}
	err := h.db.QueryRowContext(ctx, `
		SELECT id, campaign_id, subject, COALESCE(html_content,''), COALESCE(text_content,''),
		       ordering, delay, delay_unit
		FROM drip_emails WHERE id = $1
	`, emailID).Scan(&tpl.ID, &tpl.CampaignID, &tpl.Subject, &tpl.HTMLContent, &tpl.TextContent,
		&tpl.Ordering, &tpl.Delay, &tpl.DelayUnit)
	if err != nil {
		return nil, nil, fmt.Errorf("load email %s: %w", emailID, err)
	}

	lead := &domain.Lead{}
	err = h.db.QueryRowContext(ctx, `
		SELECT id, owner_id, COALESCE(name,''), email, COALESCE(company,''), COALESCE(category,'')
		FROM drip_leads WHERE id = $1
	`, leadID).Scan(&lead.ID, &lead.OwnerID, &lead.Name, &lead.Email, &lead.Company, &lead.Category)
	if err != nil {
		return nil, nil, fmt.Errorf("load lead %s: %w", leadID, err)
	}
	return tpl, lead, nil
}

func (h *SendHandler) recordLog(ctx context.Context, p sendEmailPayload, lead *domain.Lead,
	subject, body, messageID string, status domain.LogStatus, sentAt *time.Time, errMsg string) {

	var sent interface{}
	if sentAt != nil {
		sent = *sentAt
	}
	if _, err := h.db.ExecContext(ctx, `
		INSERT INTO drip_email_logs
		       (id, lead_id, campaign_id, email_id, message_id, recipient,
		        subject, body, status, sent_at, error_message, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NULLIF($11,''), NOW(), NOW())
	`, uuid.New().String(), p.LeadID, p.CampaignID, p.EmailID, messageID, lead.Email,
		subject, body, status, sent, errMsg); err != nil {
		log.Printf("[SendHandler] record log for job %s: %v", p.JobID, err)
	}
}

func (h *SendHandler) setJobStatus(ctx context.Context, jobID string, status domain.JobStatus) {
	if _, err := h.db.ExecContext(ctx, `
		UPDATE drip_scheduled_jobs SET status = $2, updated_at = NOW() WHERE id = $1
	`, jobID, status); err != nil {
		log.Printf("[SendHandler] set job %s to %s: %v", jobID, status, err)
	}
}

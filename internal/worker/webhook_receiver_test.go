package worker

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestEmailEventReceiver_Opened(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	mock.ExpectQuery("SELECT id, lead_id, status FROM drip_email_logs").
		WithArgs("msg-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "lead_id", "status"}).
			AddRow("log1", "l1", "delivered"))
	mock.ExpectExec("UPDATE drip_email_logs").
		WillReturnResult(sqlmock.NewResult(0, 1))

	r := NewEmailEventReceiver(db, nil)
	at := time.Now()
	err := r.Apply(context.Background(), EmailEvent{Event: "email.opened", MessageID: "msg-1", Timestamp: &at})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if r.Stats()["events_applied"] != 1 {
		t.Errorf("events_applied = %d", r.Stats()["events_applied"])
	}
}

func TestEmailEventReceiver_UnknownMessageDropped(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	mock.ExpectQuery("SELECT id, lead_id, status FROM drip_email_logs").
		WithArgs("msg-x").
		WillReturnRows(sqlmock.NewRows([]string{"id", "lead_id", "status"}))

	r := NewEmailEventReceiver(db, nil)
	if err := r.Apply(context.Background(), EmailEvent{Event: "delivered", MessageID: "msg-x"}); err != nil {
		t.Fatalf("Apply should not error for unknown message: %v", err)
	}
	if r.Stats()["events_dropped"] != 1 {
		t.Errorf("events_dropped = %d", r.Stats()["events_dropped"])
	}
}

func TestEmailEventReceiver_TerminalIsSticky(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	// row already bounced: a late open must change nothing, so no UPDATE
	// is expected
	mock.ExpectQuery("SELECT id, lead_id, status FROM drip_email_logs").
		WithArgs("msg-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "lead_id", "status"}).
			AddRow("log1", "l1", "bounced"))

	r := NewEmailEventReceiver(db, nil)
	if err := r.Apply(context.Background(), EmailEvent{Event: "opened", MessageID: "msg-1"}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if r.Stats()["events_ignored"] != 1 {
		t.Errorf("events_ignored = %d, want 1", r.Stats()["events_ignored"])
	}
}

func TestEmailEventReceiver_BouncedWritesReason(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	mock.ExpectQuery("SELECT id, lead_id, status FROM drip_email_logs").
		WithArgs("msg-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "lead_id", "status"}).
			AddRow("log1", "l1", "sent"))
	mock.ExpectExec("UPDATE drip_email_logs").
		WithArgs("log1", "bounced", "email bounced: mailbox full").
		WillReturnResult(sqlmock.NewResult(0, 1))

	r := NewEmailEventReceiver(db, nil)
	err := r.Apply(context.Background(), EmailEvent{Event: "bounced", MessageID: "msg-1", Reason: "mailbox full"})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
}

func TestEmailEventReceiver_MissingFields(t *testing.T) {
	db, _, cleanup := setupTestDB(t)
	defer cleanup()

	r := NewEmailEventReceiver(db, nil)
	if err := r.Apply(context.Background(), EmailEvent{Event: "", MessageID: "m"}); err == nil {
		t.Error("expected error for empty event type")
	}
	if err := r.Apply(context.Background(), EmailEvent{Event: "opened", MessageID: ""}); err == nil {
		t.Error("expected error for empty message id")
	}
}

package trigger

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestScheduleInsertsPendingTrigger(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	at := time.Now().Add(time.Hour)
	payload := []byte(`{"job_id":"j1"}`)
	mock.ExpectExec("INSERT INTO drip_triggers").
		WithArgs(sqlmock.AnyArg(), at, HandlerSendEmail, payload).
		WillReturnResult(sqlmock.NewResult(0, 1))

	s := NewPostgresScheduler(db)
	token, err := s.Schedule(context.Background(), at, HandlerSendEmail, payload)
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	if token == "" {
		t.Fatal("expected a non-empty token")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestCancelPendingTrigger(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("UPDATE drip_triggers").
		WithArgs("tok-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	s := NewPostgresScheduler(db)
	if err := s.Cancel(context.Background(), "tok-1"); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestCancelFiredTriggerReportsAlreadyFired(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("UPDATE drip_triggers").
		WithArgs("tok-2").
		WillReturnResult(sqlmock.NewResult(0, 0))

	s := NewPostgresScheduler(db)
	if err := s.Cancel(context.Background(), "tok-2"); err != ErrAlreadyFired {
		t.Fatalf("expected ErrAlreadyFired, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

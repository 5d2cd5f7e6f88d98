package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"

	"github.com/coldreach/dripengine/internal/domain"
)

func TestScheduleRepo_GetCampaign(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	now := time.Now()
	rows := sqlmock.NewRows([]string{
		"id", "owner_id", "name", "description", "audience_ids",
		"status", "scheduling_status", "created_at", "updated_at",
	}).AddRow("c1", "owner-1", "Spring outreach", "", pq.Array([]string{"a1", "a2"}),
		"draft", "unscheduled", now, now)

	mock.ExpectQuery("SELECT (.+) FROM drip_campaigns").
		WithArgs("c1").
		WillReturnRows(rows)

	repo := NewScheduleRepo(db)
	c, err := repo.GetCampaign(context.Background(), "c1")
	if err != nil {
		t.Fatalf("GetCampaign: %v", err)
	}
	if c.OwnerID != "owner-1" {
		t.Errorf("OwnerID = %s", c.OwnerID)
	}
	if len(c.AudienceIDs) != 2 {
		t.Errorf("AudienceIDs = %v, want 2 entries", c.AudienceIDs)
	}
	if c.Status != domain.CampaignDraft {
		t.Errorf("Status = %s", c.Status)
	}
}

func TestScheduleRepo_GetCampaign_Missing(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	mock.ExpectQuery("SELECT (.+) FROM drip_campaigns").
		WithArgs("nope").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	repo := NewScheduleRepo(db)
	c, err := repo.GetCampaign(context.Background(), "nope")
	if err != nil {
		t.Fatalf("GetCampaign: %v", err)
	}
	if c != nil {
		t.Errorf("got %+v, want nil for missing row", c)
	}
}

func TestScheduleRepo_ListEmails_Ordered(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	rows := sqlmock.NewRows([]string{
		"id", "campaign_id", "subject", "html_content", "text_content",
		"ordering", "delay", "delay_unit",
	}).
		AddRow("e1", "c1", "First", "<p>1</p>", "", 1, 0, "minutes").
		AddRow("e2", "c1", "Second", "<p>2</p>", "", 2, 1, "days")

	mock.ExpectQuery("SELECT (.+) FROM drip_emails").
		WithArgs("c1").
		WillReturnRows(rows)

	repo := NewScheduleRepo(db)
	emails, err := repo.ListEmails(context.Background(), "c1")
	if err != nil {
		t.Fatalf("ListEmails: %v", err)
	}
	if len(emails) != 2 {
		t.Fatalf("got %d emails, want 2", len(emails))
	}
	if emails[1].DelayUnit != domain.DelayDays || emails[1].Delay != 1 {
		t.Errorf("second email delay = %d %s", emails[1].Delay, emails[1].DelayUnit)
	}
}

func TestScheduleRepo_CreateAndPromoteJob(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	at := time.Now().Add(time.Hour)
	mock.ExpectExec("INSERT INTO drip_scheduled_jobs").
		WithArgs(sqlmock.AnyArg(), "c1", "e1", "l1", at, string(domain.JobPending)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE drip_scheduled_jobs").
		WithArgs(sqlmock.AnyArg(), "tok-1", string(domain.JobScheduled), string(domain.JobPending)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewScheduleRepo(db)
	id, err := repo.CreateJob(context.Background(), &domain.ScheduledJob{
		CampaignID:  "c1",
		EmailID:     "e1",
		LeadID:      "l1",
		ScheduledAt: at,
		Status:      domain.JobPending,
	})
	if err != nil {
		t.Fatalf("CreateJob: %v", err)
	}
	if id == "" {
		t.Fatal("CreateJob returned empty id")
	}
	if err := repo.PromoteJob(context.Background(), id, "tok-1"); err != nil {
		t.Fatalf("PromoteJob: %v", err)
	}
}

func TestScheduleRepo_PromoteJob_NoPendingRow(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	mock.ExpectExec("UPDATE drip_scheduled_jobs").
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewScheduleRepo(db)
	if err := repo.PromoteJob(context.Background(), "j1", "tok"); err == nil {
		t.Error("expected error when no pending row matched")
	}
}

func TestScheduleRepo_CancelJobs_ReturnsTokens(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	rows := sqlmock.NewRows([]string{"job_token"}).
		AddRow("tok-1").
		AddRow("tok-2")
	mock.ExpectQuery("UPDATE drip_scheduled_jobs").
		WithArgs("c1", string(domain.JobCancelled), string(domain.JobScheduled)).
		WillReturnRows(rows)

	repo := NewScheduleRepo(db)
	tokens, err := repo.CancelJobs(context.Background(), "c1")
	if err != nil {
		t.Fatalf("CancelJobs: %v", err)
	}
	if len(tokens) != 2 || tokens[0] != "tok-1" {
		t.Errorf("tokens = %v", tokens)
	}
}

func TestScheduleRepo_SetCampaignStatus(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	mock.ExpectExec("UPDATE drip_campaigns").
		WithArgs("c1", string(domain.CampaignActive), string(domain.SchedulingScheduled)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewScheduleRepo(db)
	if err := repo.SetCampaignStatus(context.Background(), "c1", domain.CampaignActive, domain.SchedulingScheduled); err != nil {
		t.Fatalf("SetCampaignStatus: %v", err)
	}
}

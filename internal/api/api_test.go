package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/coldreach/dripengine/internal/config"
	"github.com/coldreach/dripengine/internal/domain"
	"github.com/coldreach/dripengine/internal/scoring"
	"github.com/coldreach/dripengine/internal/service/schedule"
	"github.com/coldreach/dripengine/internal/worker"
)

// ---- in-memory stand-ins ----

type stubScheduleRepo struct {
	mu        sync.Mutex
	campaign  *domain.Campaign
	emails    []domain.EmailTemplate
	leads     []domain.Lead
	jobs      int
	cancelled []domain.ScheduledJob
}

func (s *stubScheduleRepo) GetCampaign(context.Context, string) (*domain.Campaign, error) {
	return s.campaign, nil
}

func (s *stubScheduleRepo) ListEmails(context.Context, string) ([]domain.EmailTemplate, error) {
	return s.emails, nil
}

func (s *stubScheduleRepo) ListAudienceLeads(context.Context, []string) ([]domain.Lead, error) {
	return s.leads, nil
}

func (s *stubScheduleRepo) CreateJob(context.Context, *domain.ScheduledJob) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs++
	return fmt.Sprintf("job-%d", s.jobs), nil
}

func (s *stubScheduleRepo) PromoteJob(context.Context, string, string) error { return nil }

func (s *stubScheduleRepo) CancelJobs(context.Context, string) ([]string, error) {
	return []string{"tok-1", "tok-2"}, nil
}

func (s *stubScheduleRepo) ListCancelledJobs(context.Context, string) ([]domain.ScheduledJob, error) {
	return s.cancelled, nil
}

func (s *stubScheduleRepo) RescheduleJob(context.Context, string, string, time.Time) error {
	return nil
}

func (s *stubScheduleRepo) SetCampaignStatus(context.Context, string, domain.CampaignStatus, domain.SchedulingStatus) error {
	return nil
}

type stubTrigger struct{ n int }

func (s *stubTrigger) Schedule(context.Context, time.Time, string, []byte) (string, error) {
	s.n++
	return fmt.Sprintf("tok-%d", s.n), nil
}

func (s *stubTrigger) Cancel(context.Context, string) error { return nil }

type stubLogs struct{ logs []domain.EmailLog }

func (s *stubLogs) ListByLead(context.Context, string) ([]domain.EmailLog, error) {
	return s.logs, nil
}

func (s *stubLogs) DistinctLeadIDs(context.Context) ([]string, error) { return nil, nil }

type stubScores struct {
	mu   sync.Mutex
	rows map[string]domain.LeadScore
}

func (s *stubScores) Get(_ context.Context, leadID string) (*domain.LeadScore, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[leadID]
	if !ok {
		return nil, scoring.ErrScoreNotFound
	}
	return &row, nil
}

func (s *stubScores) Upsert(_ context.Context, row domain.LeadScore) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rows == nil {
		s.rows = make(map[string]domain.LeadScore)
	}
	s.rows[row.LeadID] = row
	return nil
}

func (s *stubScores) ListDecayable(context.Context) ([]domain.LeadScore, error) { return nil, nil }

func (s *stubScores) PatchDecay(context.Context, string, float64, domain.Temperature) error {
	return nil
}

func testServer(t *testing.T, repo *stubScheduleRepo, scores *stubScores) *httptest.Server {
	t.Helper()
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	svc := schedule.NewService(repo, &stubTrigger{})
	rec := scoring.NewRecomputer(scoring.DefaultConfig(), &stubLogs{}, scores)
	events := worker.NewEmailEventReceiver(db, nil)

	h := NewHandlers(db, svc, scores, rec, events)
	auth := NewAuthenticator([]config.APIKey{{Key: "secret-key", OwnerID: "owner-1"}})
	srv := httptest.NewServer(SetupRoutes(h, auth))
	t.Cleanup(srv.Close)
	return srv
}

func doRequest(t *testing.T, method, url, apiKey, body string) (*http.Response, map[string]interface{}) {
	t.Helper()
	var reqBody *strings.Reader
	if body == "" {
		reqBody = strings.NewReader("")
	} else {
		reqBody = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	defer resp.Body.Close()

	var decoded map[string]interface{}
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	return resp, decoded
}

// ---- tests ----

func TestAPIRequiresKey(t *testing.T) {
	srv := testServer(t, &stubScheduleRepo{}, &stubScores{})

	resp, _ := doRequest(t, http.MethodPost, srv.URL+"/api/campaigns/c1/publish", "", "")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("no key: status = %d, want 401", resp.StatusCode)
	}

	resp, _ = doRequest(t, http.MethodPost, srv.URL+"/api/campaigns/c1/publish", "wrong-key", "")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("bad key: status = %d, want 401", resp.StatusCode)
	}
}

func TestPublishCampaign(t *testing.T) {
	repo := &stubScheduleRepo{
		campaign: &domain.Campaign{ID: "c1", OwnerID: "owner-1", AudienceIDs: []string{"a1"}},
		emails: []domain.EmailTemplate{
			{ID: "e1", Ordering: 1, Delay: 0, DelayUnit: domain.DelayMinutes},
			{ID: "e2", Ordering: 2, Delay: 1, DelayUnit: domain.DelayDays},
		},
		leads: []domain.Lead{{ID: "l1", Email: "a@x.com"}, {ID: "l2", Email: "b@x.com"}},
	}
	srv := testServer(t, repo, &stubScores{})

	resp, body := doRequest(t, http.MethodPost, srv.URL+"/api/campaigns/c1/publish", "secret-key", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body = %v", resp.StatusCode, body)
	}
	if got := body["scheduled_jobs"].(float64); got != 4 {
		t.Errorf("scheduled_jobs = %v, want 4", got)
	}
}

func TestPublishCampaign_NotOwned(t *testing.T) {
	repo := &stubScheduleRepo{
		campaign: &domain.Campaign{ID: "c1", OwnerID: "someone-else", AudienceIDs: []string{"a1"}},
	}
	srv := testServer(t, repo, &stubScores{})

	resp, _ := doRequest(t, http.MethodPost, srv.URL+"/api/campaigns/c1/publish", "secret-key", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404 for foreign campaign", resp.StatusCode)
	}
}

func TestPublishCampaign_NoEmails(t *testing.T) {
	repo := &stubScheduleRepo{
		campaign: &domain.Campaign{ID: "c1", OwnerID: "owner-1", AudienceIDs: []string{"a1"}},
		leads:    []domain.Lead{{ID: "l1"}},
	}
	srv := testServer(t, repo, &stubScores{})

	resp, body := doRequest(t, http.MethodPost, srv.URL+"/api/campaigns/c1/publish", "secret-key", "")
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400, body = %v", resp.StatusCode, body)
	}
}

func TestPauseCampaign(t *testing.T) {
	repo := &stubScheduleRepo{
		campaign: &domain.Campaign{ID: "c1", OwnerID: "owner-1", AudienceIDs: []string{"a1"}},
	}
	srv := testServer(t, repo, &stubScores{})

	resp, body := doRequest(t, http.MethodPost, srv.URL+"/api/campaigns/c1/pause", "secret-key", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if got := body["cancelled_jobs"].(float64); got != 2 {
		t.Errorf("cancelled_jobs = %v, want 2", got)
	}
}

func TestGetLeadScore(t *testing.T) {
	scores := &stubScores{rows: map[string]domain.LeadScore{
		"l1": {LeadID: "l1", HotScore: 14.41, Temperature: domain.TemperatureCold, TotalClicked: 1},
	}}
	srv := testServer(t, &stubScheduleRepo{}, scores)

	resp, body := doRequest(t, http.MethodGet, srv.URL+"/api/leads/l1/score", "secret-key", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if got := body["hot_score"].(float64); got != 14.41 {
		t.Errorf("hot_score = %v", got)
	}

	resp, _ = doRequest(t, http.MethodGet, srv.URL+"/api/leads/l9/score", "secret-key", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("missing score: status = %d, want 404", resp.StatusCode)
	}
}

func TestRecomputeLeadScore(t *testing.T) {
	scores := &stubScores{}
	srv := testServer(t, &stubScheduleRepo{}, scores)

	resp, body := doRequest(t, http.MethodPost, srv.URL+"/api/leads/l1/score/recompute", "secret-key", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if body["lead_id"] != "l1" {
		t.Errorf("lead_id = %v", body["lead_id"])
	}
	if _, err := scores.Get(context.Background(), "l1"); err != nil {
		t.Errorf("recompute did not persist a score row: %v", err)
	}
}

func TestWebhookRejectsBadJSON(t *testing.T) {
	srv := testServer(t, &stubScheduleRepo{}, &stubScores{})

	resp, _ := doRequest(t, http.MethodPost, srv.URL+"/webhooks/email", "", "{not json")
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

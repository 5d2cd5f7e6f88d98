package scoring

import (
	"math"
	"testing"
	"time"

	"github.com/coldreach/dripengine/internal/domain"
)

func tp(t time.Time) *time.Time { return &t }

func TestRecompute_NoLogs(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	score := Recompute(DefaultConfig(), "lead-1", nil, now)

	if score.LeadID != "lead-1" {
		t.Errorf("LeadID = %q", score.LeadID)
	}
	if score.HotScore != 0 || score.RawScore != 0 {
		t.Errorf("zero-log score = %v/%v, want 0/0", score.HotScore, score.RawScore)
	}
	if score.Temperature != domain.TemperatureCold {
		t.Errorf("temperature = %s, want cold", score.Temperature)
	}
	if score.Trend != domain.TrendUndefined {
		t.Errorf("trend = %s, want undefined", score.Trend)
	}
	if !score.LastCalculatedAt.Equal(now) {
		t.Errorf("LastCalculatedAt = %v, want %v", score.LastCalculatedAt, now)
	}
}

func TestRecompute_CountWeightedAggregation(t *testing.T) {
	cfg := DefaultConfig()
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	recent := now.Add(-2 * time.Hour)

	logs := []domain.EmailLog{
		{
			DeliveredAt: tp(recent),
			OpenCount:   3,
			FirstOpenAt: tp(recent), LastOpenAt: tp(recent),
		},
	}

	score := Recompute(cfg, "lead-1", logs, now)

	// 1 delivered + 3 opens, each open earning the full weight.
	wantRaw := 1*cfg.DeliveredWeight + 3*cfg.OpenedWeight
	if score.RawScore != wantRaw {
		t.Errorf("RawScore = %v, want %v", score.RawScore, wantRaw)
	}
	if score.TotalOpened != 3 {
		t.Errorf("TotalOpened = %d, want 3", score.TotalOpened)
	}
	if score.OpenRate != 300 {
		t.Errorf("OpenRate = %v, want 300", score.OpenRate)
	}
}

func TestRecompute_NoEngagementSkipsDecay(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	old := now.AddDate(0, 0, -60)

	logs := []domain.EmailLog{
		{DeliveredAt: tp(old)},
		{DeliveredAt: tp(old)},
	}

	score := Recompute(DefaultConfig(), "lead-1", logs, now)

	// Two deliveries, never opened: decay models engagement staleness only,
	// so the score stands as computed from counts.
	if score.RawScore != 2 || score.HotScore != 2 {
		t.Errorf("score = raw %v hot %v, want 2/2", score.RawScore, score.HotScore)
	}
	if score.LastEngagementAt != nil {
		t.Errorf("LastEngagementAt = %v, want nil", score.LastEngagementAt)
	}
}

// The worked end-to-end scenario: log A delivered+opened 40 days ago, log B
// delivered+clicked 2 days ago.
func TestRecompute_EndToEndScenario(t *testing.T) {
	cfg := DefaultConfig()
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	fortyDaysAgo := now.AddDate(0, 0, -40)
	twoDaysAgo := now.AddDate(0, 0, -2)

	logs := []domain.EmailLog{
		{
			DeliveredAt: tp(fortyDaysAgo),
			OpenCount:   1,
			FirstOpenAt: tp(fortyDaysAgo), LastOpenAt: tp(fortyDaysAgo),
		},
		{
			DeliveredAt:  tp(twoDaysAgo),
			ClickCount:   1,
			FirstClickAt: tp(twoDaysAgo), LastClickAt: tp(twoDaysAgo),
		},
	}

	score := Recompute(cfg, "lead-1", logs, now)

	if score.RawScore != 15 {
		t.Fatalf("RawScore = %v, want 15", score.RawScore)
	}
	if score.LastEngagementAt == nil || !score.LastEngagementAt.Equal(twoDaysAgo) {
		t.Fatalf("LastEngagementAt = %v, want %v", score.LastEngagementAt, twoDaysAgo)
	}
	if score.LastEngagementType != "clicked" {
		t.Errorf("LastEngagementType = %q, want clicked", score.LastEngagementType)
	}

	want := 15 * math.Pow(0.98, 2) // ≈ 14.41
	if math.Abs(score.HotScore-math.Round(want*100)/100) > 1e-9 {
		t.Errorf("HotScore = %v, want %v", score.HotScore, want)
	}
	if score.Temperature != domain.TemperatureCold {
		t.Errorf("Temperature = %s, want cold (score below warm threshold)", score.Temperature)
	}
}

func TestRecompute_ClickOutranksLaterOpen(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	clickAt := now.AddDate(0, 0, -3)
	openAt := now.AddDate(0, 0, -1)

	// The lead clicked, then reopened the same email later. The open moves
	// LastEngagementAt forward but the log stays a clicked log.
	logs := []domain.EmailLog{
		{
			DeliveredAt:  tp(clickAt),
			OpenCount:    2,
			FirstOpenAt:  tp(clickAt), LastOpenAt: tp(openAt),
			ClickCount:   1,
			FirstClickAt: tp(clickAt), LastClickAt: tp(clickAt),
		},
	}

	score := Recompute(DefaultConfig(), "lead-1", logs, now)

	if score.LastEngagementAt == nil || !score.LastEngagementAt.Equal(openAt) {
		t.Fatalf("LastEngagementAt = %v, want %v", score.LastEngagementAt, openAt)
	}
	if score.LastEngagementType != "clicked" {
		t.Errorf("LastEngagementType = %q, want clicked", score.LastEngagementType)
	}
}

func TestRecompute_Trend(t *testing.T) {
	cfg := DefaultConfig()
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	inWindow := now.AddDate(0, 0, -2)
	beforeWindow := now.AddDate(0, 0, -20)

	engaged := func(at time.Time) domain.EmailLog {
		return domain.EmailLog{
			DeliveredAt: tp(at),
			OpenCount:   1,
			FirstOpenAt: tp(at), LastOpenAt: tp(at),
		}
	}

	tests := []struct {
		name string
		logs []domain.EmailLog
		want domain.Trend
	}{
		{"no engagement at all", []domain.EmailLog{{DeliveredAt: tp(beforeWindow)}}, domain.TrendUndefined},
		{"only recent engagement", []domain.EmailLog{engaged(inWindow)}, domain.TrendIncreasing},
		{"only older engagement", []domain.EmailLog{engaged(beforeWindow)}, domain.TrendDecreasing},
		{"balanced engagement", []domain.EmailLog{engaged(inWindow), engaged(beforeWindow)}, domain.TrendStable},
		{
			"more recent than older",
			[]domain.EmailLog{engaged(inWindow), engaged(inWindow), engaged(beforeWindow)},
			domain.TrendIncreasing,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score := Recompute(cfg, "lead-1", tt.logs, now)
			if score.Trend != tt.want {
				t.Errorf("Trend = %s, want %s", score.Trend, tt.want)
			}
		})
	}
}

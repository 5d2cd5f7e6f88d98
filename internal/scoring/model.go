package scoring

import (
	"math"
	"time"

	"github.com/coldreach/dripengine/internal/domain"
)

// Recompute derives a full LeadScore from a lead's email logs. The returned
// record replaces the stored row wholesale; callers never patch individual
// fields from it.
//
// Aggregation is count-weighted throughout: open and click totals are sums of
// per-log occurrence counts, and each occurrence earns the full point value.
func Recompute(cfg Config, leadID string, logs []domain.EmailLog, now time.Time) domain.LeadScore {
	score := domain.LeadScore{
		LeadID:           leadID,
		Temperature:      domain.TemperatureCold,
		Trend:            domain.TrendUndefined,
		LastCalculatedAt: now,
	}
	if len(logs) == 0 {
		return score
	}

	var delivered, opened, clicked int
	var lastEngagement *time.Time
	lastEngagementType := ""

	for i := range logs {
		l := &logs[i]
		if l.DeliveredAt != nil {
			delivered++
		}
		opened += l.OpenCount
		clicked += l.ClickCount

		eng := l.LastEngagementAt()
		if eng == nil {
			continue
		}
		if lastEngagement == nil || eng.After(*lastEngagement) {
			lastEngagement = eng
			// A log that was ever clicked counts as "clicked" even when a
			// later open moved its engagement timestamp.
			if l.LastClickAt != nil {
				lastEngagementType = "clicked"
			} else {
				lastEngagementType = "opened"
			}
		}
	}

	score.TotalSent = len(logs)
	score.TotalDelivered = delivered
	score.TotalOpened = opened
	score.TotalClicked = clicked
	if delivered > 0 {
		score.OpenRate = float64(opened) / float64(delivered) * 100
		score.ClickRate = float64(clicked) / float64(delivered) * 100
	}

	raw := float64(delivered)*cfg.DeliveredWeight +
		float64(opened)*cfg.OpenedWeight +
		float64(clicked)*cfg.ClickedWeight
	score.RawScore = raw

	// Decay only models staleness of engagement. A lead that has never
	// engaged keeps the score its counts earned, undecayed.
	final := raw
	if lastEngagement != nil {
		final = cfg.ApplyTimeDecay(raw, *lastEngagement, now)
		score.LastEngagementAt = lastEngagement
		score.LastEngagementType = lastEngagementType
	}
	score.HotScore = math.Round(final*100) / 100
	score.Temperature = cfg.TemperatureOf(score.HotScore)
	score.Trend = engagementTrend(cfg, logs, now)

	return score
}

// engagementTrend compares engagement activity in the trailing window against
// everything before it. A log counts toward the recent bucket when its most
// recent engagement falls inside the window, toward the older bucket when it
// engaged only before the window.
func engagementTrend(cfg Config, logs []domain.EmailLog, now time.Time) domain.Trend {
	cutoff := now.AddDate(0, 0, -cfg.TrendWindowDays)

	var recent, older int
	for i := range logs {
		eng := logs[i].LastEngagementAt()
		if eng == nil {
			continue
		}
		if eng.After(cutoff) {
			recent++
		} else {
			older++
		}
	}

	switch {
	case recent == 0 && older == 0:
		return domain.TrendUndefined
	case recent > older:
		return domain.TrendIncreasing
	case recent < older:
		return domain.TrendDecreasing
	default:
		return domain.TrendStable
	}
}

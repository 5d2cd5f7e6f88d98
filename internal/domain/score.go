package domain

import "time"

// Temperature is the coarse three-bucket classification of a lead's
// engagement-derived score.
type Temperature string

const (
	TemperatureHot  Temperature = "hot"
	TemperatureWarm Temperature = "warm"
	TemperatureCold Temperature = "cold"
)

// Trend describes whether a lead's engagement is picking up or tailing off,
// comparing events in the last seven days against everything before.
type Trend string

const (
	TrendIncreasing Trend = "increasing"
	TrendDecreasing Trend = "decreasing"
	TrendStable     Trend = "stable"
	TrendUndefined  Trend = "undefined"
)

// LeadScore is the per-lead aggregate engagement record, one row per lead
// keyed by LeadID. It is derived entirely from that lead's EmailLogs and is
// replaced wholesale on each scoring pass, never patched field-by-field.
//
// HotScore is the displayed, decay-adjusted score. RawScore is the undecayed
// aggregate it was derived from; keeping it makes the hourly decay sweep a
// pure function of (RawScore, LastEngagementAt), so repeated sweeps at the
// same instant are idempotent.
type LeadScore struct {
	LeadID             string      `json:"lead_id" db:"lead_id"`
	HotScore           float64     `json:"hot_score" db:"hot_score"`
	RawScore           float64     `json:"raw_score" db:"raw_score"`
	Temperature        Temperature `json:"temperature" db:"temperature"`
	TotalSent          int         `json:"total_sent" db:"total_sent"`
	TotalDelivered     int         `json:"total_delivered" db:"total_delivered"`
	TotalOpened        int         `json:"total_opened" db:"total_opened"`
	TotalClicked       int         `json:"total_clicked" db:"total_clicked"`
	OpenRate           float64     `json:"open_rate" db:"open_rate"`
	ClickRate          float64     `json:"click_rate" db:"click_rate"`
	LastEngagementAt   *time.Time  `json:"last_engagement_at" db:"last_engagement_at"`
	LastEngagementType string      `json:"last_engagement_type" db:"last_engagement_type"`
	Trend              Trend       `json:"trend" db:"trend"`
	LastCalculatedAt   time.Time   `json:"last_calculated_at" db:"last_calculated_at"`
}

package scoring

import (
	"math"
	"time"

	"github.com/coldreach/dripengine/internal/domain"
)

const millisPerDay = 86_400_000

// DelayMillis converts a delay magnitude and unit to milliseconds.
// Unrecognized units fall back to 0, i.e. the email is treated as immediate
// rather than failing the whole schedule pass.
func DelayMillis(amount int, unit domain.DelayUnit) int64 {
	switch unit {
	case domain.DelayMinutes:
		return int64(amount) * 60_000
	case domain.DelayHours:
		return int64(amount) * 3_600_000
	case domain.DelayDays:
		return int64(amount) * millisPerDay
	default:
		return 0
	}
}

// DelayDuration is DelayMillis as a time.Duration.
func DelayDuration(amount int, unit domain.DelayUnit) time.Duration {
	return time.Duration(DelayMillis(amount, unit)) * time.Millisecond
}

// ApplyTimeDecay reduces a raw score exponentially by the number of days
// elapsed since the last engagement. Past MaxDaysWithoutActivity the score
// decays fully to zero. The decay is continuous in fractional days, and a
// pure function of (raw, lastEngagementAt, now): applying it repeatedly at
// the same instant yields the same result.
func (c Config) ApplyTimeDecay(raw float64, lastEngagementAt, now time.Time) float64 {
	days := float64(now.Sub(lastEngagementAt).Milliseconds()) / millisPerDay
	if days < 0 {
		days = 0
	}
	if days > c.MaxDaysWithoutActivity {
		return 0
	}
	return raw * math.Pow(1-c.DailyDecayRate, days)
}

// TemperatureOf buckets a final score into hot/warm/cold.
func (c Config) TemperatureOf(score float64) domain.Temperature {
	switch {
	case score >= c.HotThreshold:
		return domain.TemperatureHot
	case score >= c.WarmThreshold:
		return domain.TemperatureWarm
	default:
		return domain.TemperatureCold
	}
}

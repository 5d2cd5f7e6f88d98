package scoring

// Config holds the scoring weights, temperature thresholds, and decay
// constants. It is an immutable value injected at construction; nothing in
// this package reads mutable package-level state.
type Config struct {
	// Points awarded per event occurrence. Applied count-weighted: a log
	// with three opens contributes 3 × OpenedWeight; see Recompute.
	DeliveredWeight float64
	OpenedWeight    float64
	ClickedWeight   float64

	// Temperature bucket thresholds on the final (decayed) score.
	HotThreshold  float64
	WarmThreshold float64

	// DailyDecayRate is the fraction of the score lost per day of engagement
	// staleness. MaxDaysWithoutActivity is the cliff beyond which the score
	// decays fully to zero.
	DailyDecayRate         float64
	MaxDaysWithoutActivity float64

	// TrendWindowDays is the recency window for the engagement trend
	// comparison (recent vs. all prior events).
	TrendWindowDays int
}

// DefaultConfig returns the production scoring constants.
func DefaultConfig() Config {
	return Config{
		DeliveredWeight:        1,
		OpenedWeight:           3,
		ClickedWeight:          10,
		HotThreshold:           50,
		WarmThreshold:          20,
		DailyDecayRate:         0.02,
		MaxDaysWithoutActivity: 30,
		TrendWindowDays:        7,
	}
}

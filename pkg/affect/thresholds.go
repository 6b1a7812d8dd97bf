package affect

import "fmt"

// Thresholds holds every tunable constant of the classifier.
// The defaults were chosen empirically against ~1 Hz webcam sampling.
type Thresholds struct {
	// Confusion trend
	TrendWindow     int     `yaml:"trend_window" json:"trend_window"`           // readings averaged for the trend baseline
	TrendMinHistory int     `yaml:"trend_min_history" json:"trend_min_history"` // trend is only computed with more readings than this
	TrendMargin     float64 `yaml:"trend_margin" json:"trend_margin"`           // rise above baseline that counts as worsening
	TrendBoost      float64 `yaml:"trend_boost" json:"trend_boost"`             // added to confusion on a rising trend

	// Trigger levels (strictly greater than)
	AngryLevel     float64 `yaml:"angry_level" json:"angry_level"`
	StressLevel    float64 `yaml:"stress_level" json:"stress_level"`
	SadLevel       float64 `yaml:"sad_level" json:"sad_level"`
	NeutralLevel   float64 `yaml:"neutral_level" json:"neutral_level"`
	HappyLevel     float64 `yaml:"happy_level" json:"happy_level"`
	ConfidentLevel float64 `yaml:"confident_level" json:"confident_level"`
	ConfusionLevel float64 `yaml:"confusion_level" json:"confusion_level"`

	// Dwell required before a mode is selected, in seconds (greater or equal)
	AngryDwell    float64 `yaml:"angry_dwell" json:"angry_dwell"`
	ConfusedDwell float64 `yaml:"confused_dwell" json:"confused_dwell"`
	TiredDwell    float64 `yaml:"tired_dwell" json:"tired_dwell"`
	CalmDwell     float64 `yaml:"calm_dwell" json:"calm_dwell"`
	FocusedDwell  float64 `yaml:"focused_dwell" json:"focused_dwell"`
}

// DefaultThresholds returns the production tuning.
func DefaultThresholds() Thresholds {
	return Thresholds{
		TrendWindow:     5,
		TrendMinHistory: 2,
		TrendMargin:     0.1,
		TrendBoost:      0.2,

		AngryLevel:     0.25,
		StressLevel:    0.4,
		SadLevel:       0.35,
		NeutralLevel:   0.5,
		HappyLevel:     0.25,
		ConfidentLevel: 0.3,
		ConfusionLevel: 0.5,

		AngryDwell:    1.5,
		ConfusedDwell: 1.0,
		TiredDwell:    2.5,
		CalmDwell:     2.0,
		FocusedDwell:  2.0,
	}
}

// Validate checks that the thresholds are usable.
func (t *Thresholds) Validate() error {
	if t.TrendWindow <= 0 || t.TrendWindow > HistoryCapacity {
		return fmt.Errorf("trend_window must be in 1..%d, got %d", HistoryCapacity, t.TrendWindow)
	}
	if t.TrendMinHistory < 0 || t.TrendMinHistory >= HistoryCapacity {
		return fmt.Errorf("trend_min_history must be in 0..%d, got %d", HistoryCapacity-1, t.TrendMinHistory)
	}
	dwells := map[string]float64{
		"angry_dwell":    t.AngryDwell,
		"confused_dwell": t.ConfusedDwell,
		"tired_dwell":    t.TiredDwell,
		"calm_dwell":     t.CalmDwell,
		"focused_dwell":  t.FocusedDwell,
	}
	for name, v := range dwells {
		if v < 0 {
			return fmt.Errorf("%s must not be negative, got %v", name, v)
		}
	}
	return nil
}

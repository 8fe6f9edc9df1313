package models

// DetectionConfig holds the detector tuning derived from defaults, user
// sensitivity and calibration. Instances are immutable once published:
// updates replace the whole struct via an atomic swap, never field by field.
type DetectionConfig struct {
	PeakThreshold   float64 `json:"peak_threshold"`
	ValleyThreshold float64 `json:"valley_threshold"`

	MinStepIntervalMs int64 `json:"min_step_interval_ms"`
	MaxStepIntervalMs int64 `json:"max_step_interval_ms"`

	MinMagnitude float64 `json:"min_magnitude"`
	MaxMagnitude float64 `json:"max_magnitude"`

	MinConsecutiveSteps int `json:"min_consecutive_steps"`

	Sensitivity  float64 `json:"sensitivity"`
	Calibrated   bool    `json:"calibrated"`
	UserBaseline float64 `json:"user_baseline"`
}

// DefaultDetectionConfig returns the pre-calibration fallback tuning.
func DefaultDetectionConfig() DetectionConfig {
	return DetectionConfig{
		PeakThreshold:       0.8,
		ValleyThreshold:     0.6,
		MinStepIntervalMs:   250,
		MaxStepIntervalMs:   2000,
		MinMagnitude:        8.5,
		MaxMagnitude:        13.0,
		MinConsecutiveSteps: 2,
		Sensitivity:         0.5,
		Calibrated:          false,
		UserBaseline:        9.81,
	}
}

// WithSensitivity returns a copy with the sensitivity clamped to [0,1].
// Out-of-range values are clamped rather than rejected.
func (c DetectionConfig) WithSensitivity(s float64) DetectionConfig {
	if s < 0 {
		s = 0
	}
	if s > 1 {
		s = 1
	}
	c.Sensitivity = s
	return c
}

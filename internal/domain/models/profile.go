package models

import "time"

// WalkingStyle classifies the user's gait from calibration data.
type WalkingStyle int

const (
	StyleLight WalkingStyle = iota
	StyleNormal
	StyleHeavy
	StyleVariable
)

func (s WalkingStyle) String() string {
	switch s {
	case StyleLight:
		return "light"
	case StyleNormal:
		return "normal"
	case StyleHeavy:
		return "heavy"
	case StyleVariable:
		return "variable"
	default:
		return "unknown"
	}
}

// StyleTuning is the fixed detector tuple a walking style maps to. Heavier
// gaits get higher thresholds and wider magnitude bounds.
type StyleTuning struct {
	PeakThreshold   float64
	ValleyThreshold float64
	MinMagnitude    float64
	MaxMagnitude    float64
}

// TuningForStyle returns the detector tuple for a walking style.
func TuningForStyle(s WalkingStyle) StyleTuning {
	switch s {
	case StyleLight:
		return StyleTuning{PeakThreshold: 0.5, ValleyThreshold: 0.4, MinMagnitude: 9.0, MaxMagnitude: 12.0}
	case StyleHeavy:
		return StyleTuning{PeakThreshold: 1.2, ValleyThreshold: 0.9, MinMagnitude: 8.0, MaxMagnitude: 14.5}
	case StyleVariable:
		return StyleTuning{PeakThreshold: 0.9, ValleyThreshold: 0.7, MinMagnitude: 8.0, MaxMagnitude: 14.0}
	default:
		return StyleTuning{PeakThreshold: 0.8, ValleyThreshold: 0.6, MinMagnitude: 8.5, MaxMagnitude: 13.0}
	}
}

// UserStepProfile is the output of one successful calibration run. It is
// persisted by an external collaborator and superseded by the next run.
type UserStepProfile struct {
	IdleBaseline       float64      `json:"idle_baseline"`
	WalkingBaseline    float64      `json:"walking_baseline"`
	StepAmplitude      float64      `json:"step_amplitude"`
	WalkingVariability float64      `json:"walking_variability"`
	Style              WalkingStyle `json:"style"`
	CalibratedAt       time.Time    `json:"calibrated_at"`
}

// ApplyTo derives a DetectionConfig from the profile, keeping the given
// sensitivity and marking the config calibrated.
func (p UserStepProfile) ApplyTo(base DetectionConfig) DetectionConfig {
	t := TuningForStyle(p.Style)
	base.PeakThreshold = t.PeakThreshold
	base.ValleyThreshold = t.ValleyThreshold
	base.MinMagnitude = t.MinMagnitude
	base.MaxMagnitude = t.MaxMagnitude
	base.UserBaseline = p.IdleBaseline
	base.Calibrated = true
	return base
}

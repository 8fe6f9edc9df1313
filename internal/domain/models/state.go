package models

import "time"

// WalkingState is the engine's activity classification.
type WalkingState int

const (
	StateIdle WalkingState = iota
	StateCalibrating
	StateWalking
	StateInconsistent
	StatePaused
)

func (s WalkingState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCalibrating:
		return "calibrating"
	case StateWalking:
		return "walking"
	case StateInconsistent:
		return "inconsistent"
	case StatePaused:
		return "paused"
	default:
		return "unknown"
	}
}

// WalkingStateData is emitted on every state transition.
type WalkingStateData struct {
	State            WalkingState `json:"-"`
	StateName        string       `json:"state"`
	Timestamp        time.Time    `json:"timestamp"`
	ConsecutiveSteps int          `json:"consecutive_steps"`
	Confidence       float64      `json:"confidence"`
	Message          string       `json:"message,omitempty"`
}

// CalibrationPhase identifies the stage of the timed calibration sequence.
type CalibrationPhase int

const (
	PhasePreparing CalibrationPhase = iota
	PhaseIdle
	PhaseWalking
	PhaseAnalyzing
)

func (p CalibrationPhase) String() string {
	switch p {
	case PhasePreparing:
		return "preparing"
	case PhaseIdle:
		return "idle"
	case PhaseWalking:
		return "walking"
	case PhaseAnalyzing:
		return "analyzing"
	default:
		return "unknown"
	}
}

// CalibrationProgress reports phase and completion to UI collaborators.
type CalibrationProgress struct {
	Phase     CalibrationPhase `json:"-"`
	PhaseName string           `json:"phase"`
	Fraction  float64          `json:"fraction"`
	Status    string           `json:"status"`
}

// CalibrationResult is the terminal event of a calibration run. On failure
// the prior DetectionConfig remains active and Profile is nil.
type CalibrationResult struct {
	Success bool             `json:"success"`
	Reason  string           `json:"reason,omitempty"`
	Profile *UserStepProfile `json:"profile,omitempty"`
}

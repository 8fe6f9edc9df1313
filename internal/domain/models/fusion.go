package models

import "time"

// StepSource identifies a step-count contributor.
type StepSource int

const (
	SourceHardware StepSource = iota
	SourcePeakValley
	SourceFrequency
)

func (s StepSource) String() string {
	switch s {
	case SourceHardware:
		return "hardware"
	case SourcePeakValley:
		return "peak_valley"
	case SourceFrequency:
		return "frequency"
	default:
		return "unknown"
	}
}

// FusionMode is the active strategy for combining step-count sources.
type FusionMode int

const (
	ModeHardwareOnly FusionMode = iota
	ModeSoftwareOnly
	ModeHardwareSoftware
	ModeFullFusion
	ModeAdaptive
)

func (m FusionMode) String() string {
	switch m {
	case ModeHardwareOnly:
		return "hardwareOnly"
	case ModeSoftwareOnly:
		return "softwareOnly"
	case ModeHardwareSoftware:
		return "hardwareSoftware"
	case ModeFullFusion:
		return "fullFusion"
	case ModeAdaptive:
		return "adaptive"
	default:
		return "unknown"
	}
}

// SourceReading is one source's cumulative step count at a point in time.
type SourceReading struct {
	Source    StepSource
	Steps     int64
	Timestamp time.Time
}

// FusionStatus is recomputed on every new reading from any source.
// FusedSteps is non-decreasing for the lifetime of a tracking session.
type FusionStatus struct {
	Mode       FusionMode         `json:"-"`
	ModeName   string             `json:"mode"`
	Steps      map[string]int64   `json:"steps"`
	Confidence map[string]float64 `json:"confidence"`
	FusedSteps int64              `json:"fused_steps"`
	LowPower   bool               `json:"low_power"`
	Timestamp  time.Time          `json:"timestamp"`
}

// StepUpdate is the externally visible fused step-count event.
type StepUpdate struct {
	Steps     int64      `json:"steps"`
	Mode      FusionMode `json:"-"`
	ModeName  string     `json:"mode"`
	Timestamp time.Time  `json:"timestamp"`
}

package models

import "time"

// BatteryMode selects the sampling/processing intensity tier.
type BatteryMode int

const (
	BatterySleep BatteryMode = iota
	BatteryPowerSaving
	BatteryNormal
	BatteryHighPerformance
)

func (m BatteryMode) String() string {
	switch m {
	case BatterySleep:
		return "sleep"
	case BatteryPowerSaving:
		return "powerSaving"
	case BatteryNormal:
		return "normal"
	case BatteryHighPerformance:
		return "highPerformance"
	default:
		return "unknown"
	}
}

// BatteryModeParams is the (sampling rate, batch size, processing interval)
// tuple fixed by each mode.
type BatteryModeParams struct {
	SamplingRateHz     int           `json:"sampling_rate_hz"`
	BatchSize          int           `json:"batch_size"`
	ProcessingInterval time.Duration `json:"processing_interval"`
}

// ParamsForBatteryMode returns the tuple for a mode.
func ParamsForBatteryMode(m BatteryMode) BatteryModeParams {
	switch m {
	case BatteryHighPerformance:
		return BatteryModeParams{SamplingRateHz: 100, BatchSize: 5, ProcessingInterval: 50 * time.Millisecond}
	case BatteryNormal:
		return BatteryModeParams{SamplingRateHz: 50, BatchSize: 10, ProcessingInterval: 100 * time.Millisecond}
	case BatteryPowerSaving:
		return BatteryModeParams{SamplingRateHz: 25, BatchSize: 20, ProcessingInterval: 200 * time.Millisecond}
	default:
		return BatteryModeParams{SamplingRateHz: 10, BatchSize: 50, ProcessingInterval: 500 * time.Millisecond}
	}
}

// BatteryOptimizationStatus is the diagnostics event broadcast on mode
// changes and periodic scheduler ticks.
type BatteryOptimizationStatus struct {
	Mode          BatteryMode       `json:"-"`
	ModeName      string            `json:"mode"`
	Params        BatteryModeParams `json:"params"`
	ActivityLevel float64           `json:"activity_level"`
	IdleFor       time.Duration     `json:"idle_for"`
	Timestamp     time.Time         `json:"timestamp"`
}

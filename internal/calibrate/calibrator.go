package calibrate

import (
	"context"
	"sync"
	"time"

	"StepFuse/internal/domain/models"
	"StepFuse/internal/signal"
)

const analyzingDuration = time.Second

// Options sets the timed phase durations.
type Options struct {
	IdleDuration    time.Duration
	WalkingDuration time.Duration
}

// DefaultOptions returns the standard 5s idle / 15s walking protocol.
func DefaultOptions() Options {
	return Options{IdleDuration: 5 * time.Second, WalkingDuration: 15 * time.Second}
}

// Calibrator drives the preparing→idle→walking→analyzing sequence, bucketing
// samples by phase and deriving a UserStepProfile at the end. A run that
// collects no samples, or is cancelled, fails without touching the active
// configuration.
type Calibrator struct {
	mu      sync.Mutex
	running bool
	phase   models.CalibrationPhase
	idle    []float64
	walking []float64
	cancel  context.CancelFunc

	onProgress func(models.CalibrationProgress)
	onResult   func(models.CalibrationResult)
}

// New creates a calibrator with progress/result callbacks. Either callback
// may be nil.
func New(onProgress func(models.CalibrationProgress), onResult func(models.CalibrationResult)) *Calibrator {
	return &Calibrator{onProgress: onProgress, onResult: onResult}
}

// Running reports whether a calibration run is in flight.
func (c *Calibrator) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// OnSample routes a raw sample into the bucket of the current phase.
// Samples outside the idle/walking phases are ignored.
func (c *Calibrator) OnSample(s models.Sample) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return
	}
	switch c.phase {
	case models.PhaseIdle:
		c.idle = append(c.idle, s.Magnitude)
	case models.PhaseWalking:
		c.walking = append(c.walking, s.Magnitude)
	}
}

// Start launches the timed sequence. It returns false if a run is already
// in progress.
func (c *Calibrator) Start(ctx context.Context, opts Options) bool {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return false
	}
	runCtx, cancel := context.WithCancel(ctx)
	c.running = true
	c.phase = models.PhasePreparing
	c.idle = nil
	c.walking = nil
	c.cancel = cancel
	c.mu.Unlock()

	go c.run(runCtx, opts)
	return true
}

// Cancel aborts the active run; partial data is discarded and a failure
// result is emitted.
func (c *Calibrator) Cancel() {
	c.mu.Lock()
	cancel := c.cancel
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (c *Calibrator) run(ctx context.Context, opts Options) {
	c.progress(models.PhasePreparing, 0, "hold the device naturally")

	phases := []struct {
		phase  models.CalibrationPhase
		dur    time.Duration
		status string
		from   float64
		to     float64
	}{
		{models.PhaseIdle, opts.IdleDuration, "hold still", 0.05, 0.3},
		{models.PhaseWalking, opts.WalkingDuration, "walk normally", 0.3, 0.85},
		{models.PhaseAnalyzing, analyzingDuration, "analyzing gait", 0.85, 1.0},
	}

	for _, p := range phases {
		c.mu.Lock()
		c.phase = p.phase
		c.mu.Unlock()
		if !c.wait(ctx, p.phase, p.dur, p.status, p.from, p.to) {
			c.finish(models.CalibrationResult{Success: false, Reason: "calibration cancelled"})
			return
		}
	}

	c.analyze()
}

// wait sleeps through one phase, emitting progress ticks. Returns false on
// cancellation.
func (c *Calibrator) wait(ctx context.Context, phase models.CalibrationPhase, dur time.Duration, status string, from, to float64) bool {
	const ticks = 10
	tick := dur / ticks
	if tick <= 0 {
		tick = dur
	}
	for i := 0; i <= ticks; i++ {
		c.progress(phase, from+(to-from)*float64(i)/ticks, status)
		if i == ticks {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(tick):
		}
	}
	return true
}

func (c *Calibrator) analyze() {
	c.mu.Lock()
	idle := c.idle
	walking := c.walking
	c.mu.Unlock()

	if len(idle) == 0 || len(walking) == 0 {
		c.finish(models.CalibrationResult{Success: false, Reason: "no samples collected"})
		return
	}

	idleBase := signal.Median(idle)
	walkBase := signal.Median(walking)
	amplitude := walkBase - idleBase
	variability := signal.StdDev(walking)

	if amplitude <= 0 {
		c.finish(models.CalibrationResult{Success: false, Reason: "degenerate calibration data"})
		return
	}

	profile := &models.UserStepProfile{
		IdleBaseline:       idleBase,
		WalkingBaseline:    walkBase,
		StepAmplitude:      amplitude,
		WalkingVariability: variability,
		Style:              classify(amplitude, variability),
		CalibratedAt:       time.Now(),
	}
	c.finish(models.CalibrationResult{Success: true, Profile: profile})
}

func classify(amplitude, variability float64) models.WalkingStyle {
	switch {
	case amplitude < 0.5:
		return models.StyleLight
	case amplitude > 1.5:
		return models.StyleHeavy
	case variability > 0.8:
		return models.StyleVariable
	default:
		return models.StyleNormal
	}
}

func (c *Calibrator) finish(res models.CalibrationResult) {
	c.mu.Lock()
	c.running = false
	c.phase = models.PhasePreparing
	c.idle = nil
	c.walking = nil
	c.cancel = nil
	c.mu.Unlock()
	if c.onResult != nil {
		c.onResult(res)
	}
}

func (c *Calibrator) progress(phase models.CalibrationPhase, fraction float64, status string) {
	if c.onProgress == nil {
		return
	}
	c.onProgress(models.CalibrationProgress{
		Phase:     phase,
		PhaseName: phase.String(),
		Fraction:  fraction,
		Status:    status,
	})
}

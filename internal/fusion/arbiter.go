package fusion

import (
	"math"
	"sync"
	"time"

	"StepFuse/internal/domain/models"
	"StepFuse/pkg/logger"
)

const confidentCutoff = 0.5

// SelectMode picks the fusion strategy from the current per-source
// confidences. Sources above the cutoff count as confident.
func SelectMode(hw, pv, fr float64) models.FusionMode {
	hwOK := hw > confidentCutoff
	pvOK := pv > confidentCutoff
	frOK := fr > confidentCutoff

	switch {
	case hwOK && pvOK && frOK:
		return models.ModeFullFusion
	case hwOK && (pvOK || frOK):
		return models.ModeHardwareSoftware
	case pvOK && frOK:
		return models.ModeSoftwareOnly
	case hwOK:
		return models.ModeHardwareOnly
	case pvOK || frOK:
		return models.ModeSoftwareOnly
	default:
		return models.ModeAdaptive
	}
}

// sourceState tracks one contributor's last reading within the session.
type sourceState struct {
	steps      int64
	baseline   int64
	baselined  bool
	lastUpdate time.Time
}

// Arbiter combines the hardware counter and the two software detectors into
// one authoritative, monotonically non-decreasing fused step count.
type Arbiter struct {
	mu  sync.Mutex
	log *logger.Logger

	sources     map[models.StepSource]*sourceState
	fused       int64
	lastEmitted int64
	mode        models.FusionMode
	lowPower    bool

	onUpdate func(models.StepUpdate)
	onStatus func(models.FusionStatus)
}

// NewArbiter creates an arbiter. Callbacks may be nil.
func NewArbiter(log *logger.Logger, onUpdate func(models.StepUpdate), onStatus func(models.FusionStatus)) *Arbiter {
	return &Arbiter{
		log:      log,
		sources:  make(map[models.StepSource]*sourceState),
		mode:     models.ModeAdaptive,
		onUpdate: onUpdate,
		onStatus: onStatus,
	}
}

// SetLowPower toggles the low-power flag; while set, only the hardware
// source contributes regardless of the computed mode.
func (a *Arbiter) SetLowPower(on bool) {
	a.mu.Lock()
	a.lowPower = on
	a.mu.Unlock()
}

// FusedSteps returns the current fused count.
func (a *Arbiter) FusedSteps() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.fused
}

// Mode returns the currently selected fusion mode.
func (a *Arbiter) Mode() models.FusionMode {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.mode
}

// Reset starts a new tracking session: fused count and per-source baselines
// are zeroed. Cumulative hardware readings re-baseline on their next update.
func (a *Arbiter) Reset() {
	a.mu.Lock()
	a.sources = make(map[models.StepSource]*sourceState)
	a.fused = 0
	a.lastEmitted = 0
	a.mode = models.ModeAdaptive
	a.mu.Unlock()
}

// Status computes the fusion snapshot at now without committing it; the
// stored fused count only advances through Update. Confidences decay with
// staleness, so the snapshot can change without new readings.
func (a *Arbiter) Status(now time.Time) models.FusionStatus {
	a.mu.Lock()
	defer a.mu.Unlock()
	st, _ := a.snapshotLocked(now)
	return st
}

// Update ingests one source reading and recomputes the fusion. A reading
// below the source's previous value is clamped and logged, never surfaced
// as an error.
func (a *Arbiter) Update(r models.SourceReading) {
	a.mu.Lock()

	st, ok := a.sources[r.Source]
	if !ok {
		st = &sourceState{}
		a.sources[r.Source] = st
	}
	if !st.baselined {
		// the platform counter is cumulative since boot, so its first
		// reading of the session defines the zero point; software
		// detectors already count per session
		if r.Source == models.SourceHardware {
			st.baseline = r.Steps
		}
		st.baselined = true
	}
	session := r.Steps - st.baseline
	if session < st.steps {
		if a.log != nil {
			a.log.Warn("backward step reading ignored",
				logger.String("source", r.Source.String()),
				logger.Int64("reported", session),
				logger.Int64("previous", st.steps))
		}
	} else {
		st.steps = session
	}
	st.lastUpdate = r.Timestamp

	status, clamped := a.snapshotLocked(r.Timestamp)
	if clamped && a.log != nil {
		a.log.Debug("fused count clamped",
			logger.Int64("current", a.fused))
	}
	a.fused = status.FusedSteps
	a.mode = status.Mode
	update, changed := a.emitLocked(status)
	a.mu.Unlock()

	if a.onStatus != nil {
		a.onStatus(status)
	}
	if changed && a.onUpdate != nil {
		a.onUpdate(update)
	}
}

// Confidence returns a source's staleness-decayed confidence at now.
func (a *Arbiter) Confidence(src models.StepSource, now time.Time) float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.confidenceLocked(src, now)
}

func (a *Arbiter) confidenceLocked(src models.StepSource, now time.Time) float64 {
	st, ok := a.sources[src]
	if !ok || st.lastUpdate.IsZero() {
		return 0
	}
	age := now.Sub(st.lastUpdate)
	if src == models.SourceHardware {
		// the platform counter batches updates, so its tiers are coarser
		switch {
		case age < 5*time.Second:
			return 1.0
		case age < 30*time.Second:
			return 0.7
		default:
			return 0.4
		}
	}
	switch {
	case age < 2*time.Second:
		return 1.0
	case age < 5*time.Second:
		return 0.8
	case age < 10*time.Second:
		return 0.6
	default:
		return 0.3
	}
}

func (a *Arbiter) stepsLocked(src models.StepSource) int64 {
	if st, ok := a.sources[src]; ok {
		return st.steps
	}
	return 0
}

// snapshotLocked computes mode and fused count at now without mutating
// arbiter state. The bool reports whether the monotonicity clamp fired.
func (a *Arbiter) snapshotLocked(now time.Time) (models.FusionStatus, bool) {
	hwC := a.confidenceLocked(models.SourceHardware, now)
	pvC := a.confidenceLocked(models.SourcePeakValley, now)
	frC := a.confidenceLocked(models.SourceFrequency, now)
	hwS := a.stepsLocked(models.SourceHardware)
	pvS := a.stepsLocked(models.SourcePeakValley)
	frS := a.stepsLocked(models.SourceFrequency)

	mode := SelectMode(hwC, pvC, frC)
	if a.lowPower {
		mode = models.ModeHardwareOnly
	}

	var candidate float64
	switch mode {
	case models.ModeFullFusion:
		candidate = weightedAvg([]float64{float64(hwS), float64(pvS), float64(frS)}, []float64{hwC, pvC, frC})
	case models.ModeHardwareSoftware:
		swS := pvS
		swC := pvC
		if frS > swS {
			swS = frS
		}
		if frC > swC {
			swC = frC
		}
		candidate = weightedAvg([]float64{float64(hwS), float64(swS)}, []float64{hwC, swC})
	case models.ModeSoftwareOnly:
		// a single confident source is used exclusively; the stale
		// companion's count never contributes
		switch {
		case pvC > confidentCutoff && frC > confidentCutoff:
			candidate = weightedAvg([]float64{float64(pvS), float64(frS)}, []float64{pvC, frC})
		case pvC > confidentCutoff:
			candidate = float64(pvS)
		default:
			candidate = float64(frS)
		}
	case models.ModeHardwareOnly:
		candidate = float64(hwS)
	default: // adaptive: trust the single best source even below the cutoff
		best := hwS
		bestC := hwC
		if pvC > bestC {
			best, bestC = pvS, pvC
		}
		if frC > bestC {
			best = frS
		}
		candidate = float64(best)
	}

	fused := int64(math.Round(candidate))
	clamped := fused < a.fused
	if clamped {
		// monotonicity clamp for the session
		fused = a.fused
	}

	return models.FusionStatus{
		Mode:     mode,
		ModeName: mode.String(),
		Steps: map[string]int64{
			models.SourceHardware.String():   hwS,
			models.SourcePeakValley.String(): pvS,
			models.SourceFrequency.String():  frS,
		},
		Confidence: map[string]float64{
			models.SourceHardware.String():   hwC,
			models.SourcePeakValley.String(): pvC,
			models.SourceFrequency.String():  frC,
		},
		FusedSteps: fused,
		LowPower:   a.lowPower,
		Timestamp:  now,
	}, clamped
}

func (a *Arbiter) emitLocked(status models.FusionStatus) (models.StepUpdate, bool) {
	update := models.StepUpdate{
		Steps:     status.FusedSteps,
		Mode:      status.Mode,
		ModeName:  status.ModeName,
		Timestamp: status.Timestamp,
	}
	changed := a.lastEmitted != status.FusedSteps
	a.lastEmitted = status.FusedSteps
	return update, changed
}

func weightedAvg(values, weights []float64) float64 {
	var sum, wsum float64
	for i, v := range values {
		sum += v * weights[i]
		wsum += weights[i]
	}
	if wsum == 0 {
		return 0
	}
	return sum / wsum
}

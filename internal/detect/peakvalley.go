package detect

import (
	"math"
	"sync/atomic"
	"time"

	"StepFuse/internal/domain/models"
	"StepFuse/internal/signal"
)

const (
	statsWindow        = 10
	patternWindow      = 20
	intervalHistory    = 10
	axisVarianceFloor  = 0.005
	peakValleyMinMs    = 50
	peakValleyMaxMs    = 500
	thresholdBlend     = 0.8 // weight of the running threshold in the 80/20 blend
	patternMaxVariance = 9.0
)

type pvPhase int

const (
	lookingForPeak pvPhase = iota
	lookingForValley
)

type extremum struct {
	value float64
	at    time.Time
}

// PeakValley detects individual steps from the filtered magnitude stream
// with a continuously adapted threshold and a peak→valley pairing rule.
type PeakValley struct {
	cfg  atomic.Pointer[models.DetectionConfig]
	cond *signal.Conditioner

	phase       pvPhase
	peakThresh  float64
	valleyThr   float64
	lastPeak    extremum
	lastValley  extremum
	lastStepAt  time.Time
	intervals   *signal.Ring // step intervals, ms
	totalSteps  atomic.Int64
	consecutive int

	onStep func(consecutive int, at time.Time)
}

// NewPeakValley creates a detector reading windows from the shared
// conditioner.
func NewPeakValley(cond *signal.Conditioner, cfg models.DetectionConfig) *PeakValley {
	d := &PeakValley{
		cond:       cond,
		intervals:  signal.NewRing(intervalHistory),
		peakThresh: cfg.PeakThreshold,
		valleyThr:  cfg.ValleyThreshold,
	}
	d.cfg.Store(&cfg)
	return d
}

// SetConfig swaps the active configuration atomically.
func (d *PeakValley) SetConfig(cfg models.DetectionConfig) { d.cfg.Store(&cfg) }

// OnStep registers the single step callback (walking-state machine hookup).
func (d *PeakValley) OnStep(fn func(consecutive int, at time.Time)) { d.onStep = fn }

// Steps returns the detector's private running total.
func (d *PeakValley) Steps() int64 { return d.totalSteps.Load() }

// Consecutive returns the current run of valid steps.
func (d *PeakValley) Consecutive() int { return d.consecutive }

// LastStepAt returns the time of the most recent valid step.
func (d *PeakValley) LastStepAt() time.Time { return d.lastStepAt }

// ResetConsecutive zeroes the consecutive-step run (walking timeout).
func (d *PeakValley) ResetConsecutive() { d.consecutive = 0 }

// Reset zeroes all counters and detection state.
func (d *PeakValley) Reset() {
	d.phase = lookingForPeak
	d.lastPeak = extremum{}
	d.lastValley = extremum{}
	d.lastStepAt = time.Time{}
	d.intervals.Reset()
	d.totalSteps.Store(0)
	d.consecutive = 0
	cfg := d.cfg.Load()
	d.peakThresh = cfg.PeakThreshold
	d.valleyThr = cfg.ValleyThreshold
}

// OnFiltered consumes one filtered magnitude value. The conditioner must
// have processed the sample already.
func (d *PeakValley) OnFiltered(s models.Sample, filtered float64) {
	d.adaptThresholds()

	// local extremum test over the previous two samples: v1 is the candidate
	v1, ok1 := d.cond.FilteredAt(1)
	v2, ok2 := d.cond.FilteredAt(2)
	if !ok1 || !ok2 {
		return
	}

	// extremum tests tolerate a flat pair on the trailing side: the filter
	// chain's phase delay can land a crest exactly between two samples
	switch d.phase {
	case lookingForPeak:
		if v2 < v1 && v1 >= filtered && d.isValidPeak(v1) {
			d.lastPeak = extremum{value: v1, at: s.Timestamp}
			d.phase = lookingForValley
		}
	case lookingForValley:
		if v2 > v1 && v1 <= filtered && d.isValidValley(v1) {
			d.lastValley = extremum{value: v1, at: s.Timestamp}
			d.phase = lookingForPeak
			d.tryRecordStep()
		}
	}
}

// adaptThresholds recomputes the adaptive thresholds from recent signal
// spread and blends them into the running values with 80/20 smoothing.
func (d *PeakValley) adaptThresholds() {
	cfg := d.cfg.Load()
	sd := signal.StdDev(d.cond.Filtered(patternWindow))
	if sd == 0 {
		return
	}
	target := sd * 0.8 * (1 + cfg.Sensitivity)
	d.peakThresh = thresholdBlend*d.peakThresh + (1-thresholdBlend)*target
	d.valleyThr = thresholdBlend*d.valleyThr + (1-thresholdBlend)*(target*0.75)
}

func (d *PeakValley) isValidPeak(v float64) bool {
	recent := d.cond.Filtered(statsWindow)
	mean := signal.Mean(recent)
	sd := signal.StdDev(recent)

	if v < d.peakThresh {
		return false
	}
	// statistical outlier test against the short window
	if v < mean+2*sd {
		return false
	}
	// at least one axis must show real variation; rejects pure rotation
	vx, vy, vz := d.cond.AxisVariances(patternWindow)
	return vx > axisVarianceFloor || vy > axisVarianceFloor || vz > axisVarianceFloor
}

func (d *PeakValley) isValidValley(v float64) bool {
	recent := d.cond.Filtered(statsWindow)
	mean := signal.Mean(recent)
	sd := signal.StdDev(recent)

	if v > -d.valleyThr {
		return false
	}
	return v < mean-1.5*sd
}

// tryRecordStep applies the step validation gates to the latest
// peak→valley pair and updates the counters on success.
func (d *PeakValley) tryRecordStep() {
	cfg := d.cfg.Load()

	pv := d.lastValley.at.Sub(d.lastPeak.at)
	if pv < peakValleyMinMs*time.Millisecond || pv > peakValleyMaxMs*time.Millisecond {
		return
	}

	if !d.lastStepAt.IsZero() {
		gap := d.lastValley.at.Sub(d.lastStepAt)
		gapMs := float64(gap.Milliseconds())
		if gapMs < float64(cfg.MinStepIntervalMs) || gapMs > float64(cfg.MaxStepIntervalMs) {
			d.consecutive = 0
			return
		}
		// tolerate gradual cadence drift, reject isolated interval outliers
		if hist := d.intervals.Slice(); len(hist) >= 5 {
			mean := signal.Mean(hist)
			sd := signal.StdDev(hist)
			if sd > 0 && math.Abs(gapMs-mean) > 3*sd {
				return
			}
		}
	}

	amplitude := d.lastPeak.value - d.lastValley.value
	if amplitude < 0.3*d.peakThresh {
		return
	}

	if !d.hasWalkingPattern(cfg) {
		return
	}

	if !d.lastStepAt.IsZero() {
		d.intervals.Push(float64(d.lastValley.at.Sub(d.lastStepAt).Milliseconds()))
	}
	d.lastStepAt = d.lastValley.at
	d.totalSteps.Add(1)
	d.consecutive++
	if d.onStep != nil {
		d.onStep(d.consecutive, d.lastStepAt)
	}
}

// hasWalkingPattern checks the trailing window for a consistent gait:
// bounded variance, mean raw magnitude within the configured band, and at
// least two significant peaks and valleys.
func (d *PeakValley) hasWalkingPattern(cfg *models.DetectionConfig) bool {
	window := d.cond.Filtered(patternWindow)
	if len(window) < patternWindow/2 {
		return false
	}
	if v := signal.Variance(window); v <= 0 || v > patternMaxVariance {
		return false
	}

	rawMean := signal.Mean(d.cond.RawTail(patternWindow))
	if rawMean < cfg.MinMagnitude || rawMean > cfg.MaxMagnitude {
		return false
	}

	mean := signal.Mean(window)
	sd := signal.StdDev(window)
	peaks, valleys := 0, 0
	// plateau tolerant on the trailing side, same as the live extremum test
	for i := 1; i < len(window)-1; i++ {
		if window[i] > window[i-1] && window[i] >= window[i+1] && window[i] > mean+sd {
			peaks++
		}
		if window[i] < window[i-1] && window[i] <= window[i+1] && window[i] < mean-sd {
			valleys++
		}
	}
	return peaks >= 2 && valleys >= 2
}

// IntervalStability scores the regularity of recent step intervals in
// [0,1]; 1 means perfectly even cadence.
func (d *PeakValley) IntervalStability() float64 {
	hist := d.intervals.Slice()
	if len(hist) < 3 {
		return 0.5
	}
	mean := signal.Mean(hist)
	if mean <= 0 {
		return 0
	}
	cv := signal.StdDev(hist) / mean
	return math.Max(0, 1-cv)
}

// PeakThreshold exposes the current adaptive peak threshold.
func (d *PeakValley) PeakThreshold() float64 { return d.peakThresh }

package detect

import (
	"math"
	"math/cmplx"
	"sync/atomic"
	"time"

	"gonum.org/v1/gonum/dsp/fourier"

	"StepFuse/internal/domain/models"
	"StepFuse/internal/signal"
)

const (
	gaitMinHz        = 1.4
	gaitMaxHz        = 2.3
	noiseFloorFactor = 2.0
	estimateHistory  = 10
	maxStabilityVar  = 0.1 // Hz² over the 3 most recent estimates
	maxStepsPerWin   = 3
	minStepsPerWin   = 1
)

// Frequency estimates the step rate from the dominant spectral component of
// non-overlapping one-second windows of low-pass-filtered magnitude. It is
// intentionally coarse-grained (per-window, not per-step) and is weighted
// accordingly during fusion.
type Frequency struct {
	sampleRateHz float64
	window       []float64
	fft          *fourier.FFT

	history    *signal.Ring // accepted frequency estimates, Hz
	lastRate   float64
	stable     bool
	totalSteps atomic.Int64
	lastUpdate time.Time
}

// NewFrequency creates a frequency detector for the given sampling rate.
func NewFrequency(sampleRateHz float64) *Frequency {
	f := &Frequency{history: signal.NewRing(estimateHistory)}
	f.SetSampleRate(sampleRateHz)
	return f
}

// SetSampleRate resizes the analysis window to one second of samples. The
// partially filled window is discarded; already counted steps are kept.
func (f *Frequency) SetSampleRate(hz float64) {
	if hz <= 0 {
		hz = 100
	}
	f.sampleRateHz = hz
	n := int(math.Round(hz))
	if n < 8 {
		n = 8
	}
	f.window = make([]float64, 0, n)
	f.fft = fourier.NewFFT(n)
}

// OnFiltered appends one filtered magnitude; a full window triggers the
// spectral analysis.
func (f *Frequency) OnFiltered(s models.Sample, filtered float64) {
	f.window = append(f.window, filtered)
	if len(f.window) < cap(f.window) {
		return
	}
	f.analyze(s.Timestamp)
	f.window = f.window[:0]
}

func (f *Frequency) analyze(at time.Time) {
	n := len(f.window)
	coeffs := f.fft.Coefficients(nil, f.window)

	mags := make([]float64, len(coeffs))
	for i, c := range coeffs {
		mags[i] = cmplx.Abs(c)
	}

	// dominant bin inside the human gait band
	bestIdx := -1
	bestMag := 0.0
	for i := 1; i < len(coeffs); i++ {
		freq := f.fft.Freq(i) * f.sampleRateHz
		if freq < gaitMinHz || freq > gaitMaxHz {
			continue
		}
		if mags[i] > bestMag {
			bestMag = mags[i]
			bestIdx = i
		}
	}
	if bestIdx < 0 {
		f.stable = false
		return
	}

	// noise-floor gate: dominant bin must clear the median bin magnitude
	if bestMag <= noiseFloorFactor*signal.Median(mags) {
		f.stable = false
		return
	}

	freq := f.fft.Freq(bestIdx) * f.sampleRateHz
	f.history.Push(freq)

	// unstable estimate: no steps emitted for this window
	recent := f.history.Tail(3)
	if len(recent) >= 3 && signal.Variance(recent) > maxStabilityVar {
		f.stable = false
		return
	}

	f.stable = true
	f.lastRate = freq
	f.lastUpdate = at

	windowSeconds := float64(n) / f.sampleRateHz
	steps := int64(math.Round(freq * windowSeconds))
	if steps < minStepsPerWin {
		steps = minStepsPerWin
	}
	if steps > maxStepsPerWin {
		steps = maxStepsPerWin
	}
	f.totalSteps.Add(steps)
}

// Steps returns the detector's private running total.
func (f *Frequency) Steps() int64 { return f.totalSteps.Load() }

// Rate returns the latest stable step-rate estimate in Hz.
func (f *Frequency) Rate() (float64, bool) { return f.lastRate, f.stable }

// LastUpdate returns the time steps were last emitted.
func (f *Frequency) LastUpdate() time.Time { return f.lastUpdate }

// Reset zeroes counters, history and the partial window.
func (f *Frequency) Reset() {
	f.window = f.window[:0]
	f.history.Reset()
	f.lastRate = 0
	f.stable = false
	f.totalSteps.Store(0)
	f.lastUpdate = time.Time{}
}

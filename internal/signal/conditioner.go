package signal

import (
	"math"

	"StepFuse/internal/domain/models"
)

const (
	// ring capacity of ~2s at 100 Hz
	windowCapacity = 200
	smoothWindow   = 5
	baselineWindow = 20
	lowPassCutoff  = 5.0 // Hz
)

// Conditioner owns the rolling raw/filtered buffers and the filter chain:
// Butterworth low-pass, short moving average, trailing-median baseline
// removal. It has no side effects beyond internal state and never blocks.
type Conditioner struct {
	sampleRateHz float64

	lowPass  *Biquad
	smoother *MovingAverage
	baseline *BaselineRemover

	rawMag   *Ring
	filtered *Ring
	baseHist *Ring
	axisX    *Ring
	axisY    *Ring
	axisZ    *Ring
}

// NewConditioner creates a conditioner for the given sampling rate.
func NewConditioner(sampleRateHz float64) *Conditioner {
	c := &Conditioner{
		rawMag:   NewRing(windowCapacity),
		filtered: NewRing(windowCapacity),
		baseHist: NewRing(baselineWindow),
		axisX:    NewRing(windowCapacity),
		axisY:    NewRing(windowCapacity),
		axisZ:    NewRing(windowCapacity),
		smoother: NewMovingAverage(smoothWindow),
		baseline: NewBaselineRemover(baselineWindow),
	}
	c.SetSampleRate(sampleRateHz)
	return c
}

// SetSampleRate redesigns the low-pass stage for a new sampling rate. The
// buffered history is kept; only the filter coefficients change.
func (c *Conditioner) SetSampleRate(hz float64) {
	if hz <= 0 {
		hz = 100
	}
	c.sampleRateHz = hz
	c.lowPass = NewLowPassBiquad(lowPassCutoff, hz)
}

// SampleRate returns the currently configured sampling rate in Hz.
func (c *Conditioner) SampleRate() float64 { return c.sampleRateHz }

// Process runs one sample through the filter chain and returns the
// baseline-removed filtered magnitude.
func (c *Conditioner) Process(s models.Sample) float64 {
	c.rawMag.Push(s.Magnitude)
	c.axisX.Push(s.X)
	c.axisY.Push(s.Y)
	c.axisZ.Push(s.Z)

	v := c.lowPass.Apply(s.Magnitude)
	v = c.smoother.Apply(v)
	v = c.baseline.Apply(v)
	c.filtered.Push(v)
	c.baseHist.Push(c.baseline.Baseline())
	return v
}

// Filtered returns up to n most recent filtered values, oldest-first.
func (c *Conditioner) Filtered(n int) []float64 { return c.filtered.Tail(n) }

// FilteredAt returns the i-th most recent filtered value (0 = newest).
func (c *Conditioner) FilteredAt(i int) (float64, bool) { return c.filtered.At(i) }

// RawTail returns up to n most recent raw magnitudes, oldest-first.
func (c *Conditioner) RawTail(n int) []float64 { return c.rawMag.Tail(n) }

// Baseline returns the current gravity/posture baseline estimate.
func (c *Conditioner) Baseline() float64 { return c.baseline.Baseline() }

// AxisVariances returns the per-axis variance over the recent window, used
// to validate that movement shows on at least one axis.
func (c *Conditioner) AxisVariances(n int) (vx, vy, vz float64) {
	return Variance(c.axisX.Tail(n)), Variance(c.axisY.Tail(n)), Variance(c.axisZ.Tail(n))
}

// Quality scores the recent signal in [0,1] from estimated SNR, baseline
// stability and a variance-in-range check.
func (c *Conditioner) Quality() float64 {
	raw := c.rawMag.Tail(50)
	if len(raw) < 10 {
		return 0
	}
	filt := c.filtered.Tail(50)

	// SNR estimate: filtered band energy vs residual noise energy
	noise := make([]float64, len(filt))
	for i := range filt {
		noise[i] = raw[len(raw)-len(filt)+i] - (filt[i] + c.baseline.Baseline())
	}
	sigSD := StdDev(filt)
	noiseSD := StdDev(noise)
	snr := 1.0
	if noiseSD > 1e-9 {
		snr = math.Min(1, sigSD/(noiseSD*3))
	}

	// baseline stability: a drifting median means posture churn
	stability := 1.0
	if sd := StdDev(c.baseHist.Slice()); sd > 0 {
		stability = math.Max(0, 1-sd/0.5)
	}

	// raw variance plausibility band for human movement
	inRange := 0.0
	if v := Variance(raw); v > 0.001 && v < 25 {
		inRange = 1.0
	}

	return 0.4*snr + 0.3*stability + 0.3*inRange
}

// Reset discards all buffered samples and filter history.
func (c *Conditioner) Reset() {
	c.rawMag.Reset()
	c.filtered.Reset()
	c.baseHist.Reset()
	c.axisX.Reset()
	c.axisY.Reset()
	c.axisZ.Reset()
	c.lowPass.Reset()
	c.smoother.Reset()
	c.baseline.Reset()
}

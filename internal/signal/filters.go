package signal

import "math"

// Biquad is a 2nd-order IIR filter in direct form I.
type Biquad struct {
	b0, b1, b2 float64
	a1, a2     float64
	x1, x2     float64
	y1, y2     float64
	primed     bool
}

// NewLowPassBiquad designs a Butterworth low-pass biquad for the given
// cutoff and sample rate (Hz).
func NewLowPassBiquad(cutoffHz, sampleRateHz float64) *Biquad {
	if cutoffHz <= 0 || sampleRateHz <= 0 || cutoffHz >= sampleRateHz/2 {
		// degenerate design, pass-through
		return &Biquad{b0: 1}
	}
	w0 := 2 * math.Pi * cutoffHz / sampleRateHz
	cosW0 := math.Cos(w0)
	// Q = 1/sqrt(2) for a Butterworth response
	alpha := math.Sin(w0) / math.Sqrt2

	a0 := 1 + alpha
	return &Biquad{
		b0: (1 - cosW0) / 2 / a0,
		b1: (1 - cosW0) / a0,
		b2: (1 - cosW0) / 2 / a0,
		a1: -2 * cosW0 / a0,
		a2: (1 - alpha) / a0,
	}
}

// Apply filters one sample.
func (f *Biquad) Apply(x float64) float64 {
	if !f.primed {
		// seed history with the first input to avoid a startup transient
		f.x1, f.x2 = x, x
		f.y1, f.y2 = x, x
		f.primed = true
	}
	y := f.b0*x + f.b1*f.x1 + f.b2*f.x2 - f.a1*f.y1 - f.a2*f.y2
	f.x2, f.x1 = f.x1, x
	f.y2, f.y1 = f.y1, y
	return y
}

// Reset clears filter history.
func (f *Biquad) Reset() {
	f.x1, f.x2, f.y1, f.y2 = 0, 0, 0, 0
	f.primed = false
}

// MovingAverage smooths a stream with a short sliding window.
type MovingAverage struct {
	ring *Ring
	sum  float64
}

// NewMovingAverage creates a moving-average smoother with the given window.
func NewMovingAverage(window int) *MovingAverage {
	return &MovingAverage{ring: NewRing(window)}
}

// Apply pushes a value and returns the current window mean.
func (m *MovingAverage) Apply(x float64) float64 {
	if m.ring.Len() == m.ring.Cap() {
		oldest, _ := m.ring.At(m.ring.Len() - 1)
		m.sum -= oldest
	}
	m.ring.Push(x)
	m.sum += x
	return m.sum / float64(m.ring.Len())
}

// Reset clears the smoother.
func (m *MovingAverage) Reset() {
	m.ring.Reset()
	m.sum = 0
}

// BaselineRemover subtracts the median of a trailing window, compensating
// for slowly varying gravity orientation.
type BaselineRemover struct {
	ring *Ring
}

// NewBaselineRemover creates a baseline remover with the given trailing
// window length.
func NewBaselineRemover(window int) *BaselineRemover {
	return &BaselineRemover{ring: NewRing(window)}
}

// Apply pushes a value and returns it with the trailing median removed.
func (b *BaselineRemover) Apply(x float64) float64 {
	b.ring.Push(x)
	return x - Median(b.ring.Slice())
}

// Baseline returns the current trailing median.
func (b *BaselineRemover) Baseline() float64 {
	return Median(b.ring.Slice())
}

// Reset clears the trailing window.
func (b *BaselineRemover) Reset() { b.ring.Reset() }

package signal

import (
	"math"
	"testing"
)

func TestLowPassPassesDC(t *testing.T) {
	f := NewLowPassBiquad(5, 50)
	var y float64
	for i := 0; i < 100; i++ {
		y = f.Apply(9.81)
	}
	if math.Abs(y-9.81) > 1e-6 {
		t.Fatalf("DC not preserved: %v", y)
	}
}

func TestLowPassAttenuatesHighFrequency(t *testing.T) {
	f := NewLowPassBiquad(5, 100)
	// 40 Hz tone at 100 Hz sampling, well above the 5 Hz cutoff
	var peak float64
	for i := 0; i < 400; i++ {
		y := f.Apply(math.Sin(2 * math.Pi * 40 * float64(i) / 100))
		if i > 200 && math.Abs(y) > peak {
			peak = math.Abs(y)
		}
	}
	if peak > 0.1 {
		t.Fatalf("40 Hz tone not attenuated, residual peak %v", peak)
	}
}

func TestLowPassDegenerateDesignPassesThrough(t *testing.T) {
	f := NewLowPassBiquad(60, 100) // cutoff above Nyquist
	if y := f.Apply(1.5); y != 1.5 {
		t.Fatalf("expected pass-through, got %v", y)
	}
}

func TestMovingAverageWindowMean(t *testing.T) {
	m := NewMovingAverage(3)
	if y := m.Apply(3); y != 3 {
		t.Fatalf("got %v", y)
	}
	m.Apply(6)
	if y := m.Apply(9); y != 6 {
		t.Fatalf("got %v", y)
	}
	// window slides: mean of {6, 9, 12}
	if y := m.Apply(12); y != 9 {
		t.Fatalf("got %v", y)
	}
}

func TestBaselineRemoverTracksConstant(t *testing.T) {
	b := NewBaselineRemover(10)
	var y float64
	for i := 0; i < 20; i++ {
		y = b.Apply(9.81)
	}
	if math.Abs(y) > 1e-9 {
		t.Fatalf("constant input not removed: %v", y)
	}
	if math.Abs(b.Baseline()-9.81) > 1e-9 {
		t.Fatalf("baseline %v", b.Baseline())
	}
}

func TestStats(t *testing.T) {
	xs := []float64{1, 2, 3, 4}
	if m := Mean(xs); m != 2.5 {
		t.Fatalf("mean %v", m)
	}
	if med := Median([]float64{3, 1, 2}); med != 2 {
		t.Fatalf("median %v", med)
	}
	if sd := StdDev([]float64{2, 2, 2}); sd != 0 {
		t.Fatalf("stddev %v", sd)
	}
	if sd := StdDev(nil); sd != 0 {
		t.Fatalf("stddev of empty %v", sd)
	}
	if v := Variance([]float64{1, 3}); v != 1 {
		t.Fatalf("variance %v", v)
	}
}

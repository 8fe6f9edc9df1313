package detect

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"StepFuse/internal/domain/models"
	"StepFuse/internal/signal"
)

func feed(cond *signal.Conditioner, d *PeakValley, z float64, ts time.Time) {
	s := models.NewSample(0, 0, z, ts)
	filtered := cond.Process(s)
	if d != nil {
		d.OnFiltered(s, filtered)
	}
}

// Magnitude resting at gravity with sub-0.05 stddev noise must never count
// a step, no matter how long it runs.
func TestIdleNoiseProducesNoSteps(t *testing.T) {
	cond := signal.NewConditioner(50)
	d := NewPeakValley(cond, models.DefaultDetectionConfig())

	rng := rand.New(rand.NewSource(1))
	t0 := time.Now()
	for i := 0; i < 1500; i++ { // 30 s at 50 Hz
		z := 9.81 + rng.NormFloat64()*0.02
		feed(cond, d, z, t0.Add(time.Duration(i)*20*time.Millisecond))
	}

	if got := d.Steps(); got != 0 {
		t.Fatalf("expected zero steps at rest, got %d", got)
	}
	if d.Consecutive() != 0 {
		t.Fatalf("unexpected consecutive run %d", d.Consecutive())
	}
}

func TestAdaptiveThresholdTracksSignalSpread(t *testing.T) {
	cond := signal.NewConditioner(50)
	d := NewPeakValley(cond, models.DefaultDetectionConfig())

	rng := rand.New(rand.NewSource(2))
	t0 := time.Now()
	for i := 0; i < 1000; i++ {
		z := 9.81 + rng.NormFloat64()*0.02
		feed(cond, d, z, t0.Add(time.Duration(i)*20*time.Millisecond))
	}

	if th := d.PeakThreshold(); th >= 0.5 {
		t.Fatalf("threshold did not adapt down for a quiet signal: %v", th)
	}
}

// oscillate fills the conditioner with a 5 Hz gait-like oscillation so the
// trailing window carries a consistent walking pattern.
func oscillate(cond *signal.Conditioner, n int, t0 time.Time) {
	for i := 0; i < n; i++ {
		z := 9.81 + 1.5*math.Sin(2*math.Pi*5*float64(i)/50+math.Pi/10)
		cond.Process(models.NewSample(0, 0, z, t0.Add(time.Duration(i)*20*time.Millisecond)))
	}
}

func TestStepRecordedFromValidPair(t *testing.T) {
	cond := signal.NewConditioner(50)
	d := NewPeakValley(cond, models.DefaultDetectionConfig())

	var gotConsecutive int
	d.OnStep(func(consecutive int, at time.Time) { gotConsecutive = consecutive })

	t0 := time.Now()
	oscillate(cond, 100, t0)

	peakAt := t0.Add(2 * time.Second)
	d.lastPeak = extremum{value: 1.0, at: peakAt}
	d.lastValley = extremum{value: -0.8, at: peakAt.Add(200 * time.Millisecond)}
	d.tryRecordStep()

	if d.Steps() != 1 {
		t.Fatalf("expected 1 step, got %d", d.Steps())
	}
	if gotConsecutive != 1 {
		t.Fatalf("callback consecutive = %d", gotConsecutive)
	}

	// second pair 500 ms later: a 2 Hz cadence
	d.lastPeak = extremum{value: 1.0, at: peakAt.Add(500 * time.Millisecond)}
	d.lastValley = extremum{value: -0.8, at: peakAt.Add(700 * time.Millisecond)}
	d.tryRecordStep()

	if d.Steps() != 2 || d.Consecutive() != 2 {
		t.Fatalf("steps=%d consecutive=%d", d.Steps(), d.Consecutive())
	}
}

func TestTooFastPairBreaksRun(t *testing.T) {
	cond := signal.NewConditioner(50)
	d := NewPeakValley(cond, models.DefaultDetectionConfig())

	t0 := time.Now()
	oscillate(cond, 100, t0)

	peakAt := t0.Add(2 * time.Second)
	d.lastPeak = extremum{value: 1.0, at: peakAt}
	d.lastValley = extremum{value: -0.8, at: peakAt.Add(200 * time.Millisecond)}
	d.tryRecordStep()
	if d.Steps() != 1 {
		t.Fatalf("setup step not recorded")
	}

	// next pair lands 100 ms after the recorded step, below the interval floor
	d.lastPeak = extremum{value: 1.0, at: peakAt.Add(250 * time.Millisecond)}
	d.lastValley = extremum{value: -0.8, at: peakAt.Add(300 * time.Millisecond)}
	d.tryRecordStep()

	if d.Steps() != 1 {
		t.Fatalf("out-of-interval pair counted: %d", d.Steps())
	}
	if d.Consecutive() != 0 {
		t.Fatalf("consecutive run not broken: %d", d.Consecutive())
	}
}

// The filter chain's phase delay can land a crest exactly between two
// samples; the pattern scan must still count the flat pair as one peak.
func TestWalkingPatternOnGaitOscillation(t *testing.T) {
	cond := signal.NewConditioner(50)
	d := NewPeakValley(cond, models.DefaultDetectionConfig())

	t0 := time.Now()
	oscillate(cond, 100, t0)

	cfg := models.DefaultDetectionConfig()
	if !d.hasWalkingPattern(&cfg) {
		t.Fatal("gait oscillation rejected by the pattern check")
	}
}

func TestResetConsecutiveKeepsTotal(t *testing.T) {
	cond := signal.NewConditioner(50)
	d := NewPeakValley(cond, models.DefaultDetectionConfig())

	d.totalSteps.Store(5)
	d.consecutive = 5
	d.ResetConsecutive()

	if d.Consecutive() != 0 {
		t.Fatalf("consecutive = %d", d.Consecutive())
	}
	if d.Steps() != 5 {
		t.Fatalf("total steps = %d", d.Steps())
	}
}

func TestIntervalStabilityDefaults(t *testing.T) {
	cond := signal.NewConditioner(50)
	d := NewPeakValley(cond, models.DefaultDetectionConfig())
	if s := d.IntervalStability(); s != 0.5 {
		t.Fatalf("stability with no history = %v", s)
	}

	for i := 0; i < 5; i++ {
		d.intervals.Push(500)
	}
	if s := d.IntervalStability(); s != 1 {
		t.Fatalf("stability of even cadence = %v", s)
	}
}

func TestResetRestoresConfiguredThresholds(t *testing.T) {
	cfg := models.DefaultDetectionConfig()
	cond := signal.NewConditioner(50)
	d := NewPeakValley(cond, cfg)

	d.peakThresh = 0.1
	d.totalSteps.Store(7)
	d.consecutive = 3
	d.Reset()

	if d.Steps() != 0 || d.Consecutive() != 0 {
		t.Fatalf("counters survived reset")
	}
	if d.PeakThreshold() != cfg.PeakThreshold {
		t.Fatalf("threshold %v", d.PeakThreshold())
	}
}

package detect_test

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"StepFuse/internal/detect"
	"StepFuse/internal/domain/models"
)

func feedSine(f *detect.Frequency, rateHz, stepHz, amplitude float64, seconds int, t0 time.Time) {
	n := int(rateHz) * seconds
	for i := 0; i < n; i++ {
		ts := t0.Add(time.Duration(float64(i) / rateHz * float64(time.Second)))
		filtered := amplitude * math.Sin(2*math.Pi*stepHz*float64(i)/rateHz)
		f.OnFiltered(models.Sample{Timestamp: ts}, filtered)
	}
}

// A clean 2 Hz cadence sampled at 100 Hz for 20 s is the canonical walking
// signal: the estimate must land within 0.1 Hz and the count near 40 steps.
func TestKnownCadenceRoundTrip(t *testing.T) {
	f := detect.NewFrequency(100)
	feedSine(f, 100, 2.0, 1.2, 20, time.Now())

	rate, ok := f.Rate()
	require.True(t, ok, "estimate should be stable")
	require.InDelta(t, 2.0, rate, 0.1)
	require.InDelta(t, 40, float64(f.Steps()), 4)
}

func TestFlatSignalYieldsNoEstimate(t *testing.T) {
	f := detect.NewFrequency(100)
	t0 := time.Now()
	for i := 0; i < 300; i++ {
		f.OnFiltered(models.Sample{Timestamp: t0.Add(time.Duration(i) * 10 * time.Millisecond)}, 0)
	}

	_, ok := f.Rate()
	require.False(t, ok)
	require.Zero(t, f.Steps())
}

func TestSampleRateChangeDropsPartialWindow(t *testing.T) {
	f := detect.NewFrequency(100)
	t0 := time.Now()
	for i := 0; i < 50; i++ { // half a window
		f.OnFiltered(models.Sample{Timestamp: t0.Add(time.Duration(i) * 10 * time.Millisecond)}, 1.0)
	}
	f.SetSampleRate(50)
	require.Zero(t, f.Steps())

	feedSine(f, 50, 2.0, 1.2, 2, t0.Add(time.Second))
	require.EqualValues(t, 4, f.Steps())
}

func TestFrequencyReset(t *testing.T) {
	f := detect.NewFrequency(100)
	feedSine(f, 100, 2.0, 1.2, 3, time.Now())
	require.NotZero(t, f.Steps())

	f.Reset()
	require.Zero(t, f.Steps())
	_, ok := f.Rate()
	require.False(t, ok)
	require.True(t, f.LastUpdate().IsZero())
}

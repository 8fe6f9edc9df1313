package power_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"StepFuse/internal/domain/models"
	"StepFuse/internal/power"
)

// alternating magnitudes around gravity with a fixed population stddev
func magnitudesWithStdDev(sd float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		if i%2 == 0 {
			out[i] = 9.81 + sd
		} else {
			out[i] = 9.81 - sd
		}
	}
	return out
}

// Activity held at exactly 0.35 must keep the scheduler in normal mode; the
// trend check must not flap it across the normal/powerSaving boundary.
func TestSchedulerHysteresisAtBoundary(t *testing.T) {
	changes := 0
	s := power.NewScheduler(func(models.BatteryMode, models.BatteryModeParams) { changes++ })

	now := time.Now()
	for i := 0; i < 36; i++ { // 3 minutes of ticks
		s.Observe(magnitudesWithStdDev(0.7, 10)) // stddev 0.7 -> activity 0.35
		now = now.Add(power.ActivityTick)
		s.Tick(now)
		if i%6 == 5 {
			s.Trend(now)
		}
		require.Equal(t, models.BatteryNormal, s.Mode(), "tick %d", i)
	}
	require.Zero(t, changes)
}

func TestSchedulerHighActivity(t *testing.T) {
	var gotMode models.BatteryMode
	var gotParams models.BatteryModeParams
	s := power.NewScheduler(func(m models.BatteryMode, p models.BatteryModeParams) {
		gotMode, gotParams = m, p
	})

	s.Observe(magnitudesWithStdDev(2.0, 10)) // activity 1.0
	s.Tick(time.Now().Add(power.ActivityTick))

	require.Equal(t, models.BatteryHighPerformance, s.Mode())
	require.Equal(t, models.BatteryHighPerformance, gotMode)
	require.Equal(t, 100, gotParams.SamplingRateHz)
	require.Equal(t, 5, gotParams.BatchSize)
}

func TestSchedulerDropsToSleepWhenQuiet(t *testing.T) {
	s := power.NewScheduler(nil)

	s.Observe(magnitudesWithStdDev(0, 10)) // dead still
	s.Tick(time.Now().Add(power.ActivityTick))

	require.Equal(t, models.BatterySleep, s.Mode())
	require.Equal(t, 10, s.Params().SamplingRateHz)
}

func TestSchedulerLadder(t *testing.T) {
	cases := []struct {
		sd   float64
		want models.BatteryMode
	}{
		{1.8, models.BatteryHighPerformance}, // activity 0.9
		{1.0, models.BatteryNormal},          // activity 0.5
		{0.4, models.BatteryPowerSaving},     // activity 0.2
		{0.1, models.BatterySleep},           // activity 0.05
	}
	for _, tc := range cases {
		s := power.NewScheduler(nil)
		s.Observe(magnitudesWithStdDev(tc.sd, 10))
		s.Tick(time.Now().Add(power.ActivityTick))
		require.Equal(t, tc.want, s.Mode(), "stddev %v", tc.sd)
	}
}

func TestSchedulerStatusAndReset(t *testing.T) {
	s := power.NewScheduler(nil)
	s.Observe(magnitudesWithStdDev(2.0, 10))
	now := time.Now().Add(power.ActivityTick)
	s.Tick(now)

	st := s.Status(now)
	require.Equal(t, models.BatteryHighPerformance, st.Mode)
	require.InDelta(t, 1.0, st.ActivityLevel, 1e-9)

	s.Reset(now)
	require.Equal(t, models.BatteryNormal, s.Mode())
	require.Zero(t, s.Status(now).ActivityLevel)
}

package fusion_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"StepFuse/internal/domain/models"
	"StepFuse/internal/fusion"
)

func TestSelectMode(t *testing.T) {
	cases := []struct {
		name       string
		hw, pv, fr float64
		want       models.FusionMode
	}{
		{"all confident", 0.9, 0.9, 0.9, models.ModeFullFusion},
		{"frequency weak", 0.9, 0.8, 0.2, models.ModeHardwareSoftware},
		{"hardware weak", 0.2, 0.9, 0.8, models.ModeSoftwareOnly},
		{"hardware alone", 0.9, 0.1, 0.1, models.ModeHardwareOnly},
		{"one software source", 0.1, 0.8, 0.1, models.ModeSoftwareOnly},
		{"nothing confident", 0.1, 0.2, 0.3, models.ModeAdaptive},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, fusion.SelectMode(tc.hw, tc.pv, tc.fr), tc.name)
	}
}

func TestArbiterMonotonicUpdates(t *testing.T) {
	var emitted []int64
	a := fusion.NewArbiter(nil, func(u models.StepUpdate) { emitted = append(emitted, u.Steps) }, nil)

	now := time.Now()
	for i := 1; i <= 10; i++ {
		a.Update(models.SourceReading{
			Source:    models.SourcePeakValley,
			Steps:     int64(i),
			Timestamp: now.Add(time.Duration(i) * 500 * time.Millisecond),
		})
	}
	// a stale recomputation must clamp, never go backwards
	st := a.Status(now.Add(time.Hour))
	require.Equal(t, a.FusedSteps(), st.FusedSteps)

	require.NotEmpty(t, emitted)
	for i := 1; i < len(emitted); i++ {
		require.GreaterOrEqual(t, emitted[i], emitted[i-1], "update %d went backwards", i)
	}
}

func TestArbiterSingleConfidentSoftwareSource(t *testing.T) {
	a := fusion.NewArbiter(nil, nil, nil)
	now := time.Now()

	// the frequency detector parks at 3 and goes stale
	a.Update(models.SourceReading{Source: models.SourceFrequency, Steps: 3, Timestamp: now})
	require.EqualValues(t, 3, a.FusedSteps())

	// 20 s later only peak-valley is confident; its count is used
	// exclusively, the stale estimate must not drag the fusion down
	a.Update(models.SourceReading{Source: models.SourcePeakValley, Steps: 10, Timestamp: now.Add(20 * time.Second)})
	require.EqualValues(t, 10, a.FusedSteps())
	require.Equal(t, models.ModeSoftwareOnly, a.Mode())
}

func TestArbiterStatusDoesNotCommit(t *testing.T) {
	a := fusion.NewArbiter(nil, nil, nil)
	now := time.Now()

	a.Update(models.SourceReading{Source: models.SourcePeakValley, Steps: 4, Timestamp: now})
	a.Update(models.SourceReading{Source: models.SourceHardware, Steps: 100, Timestamp: now.Add(500 * time.Millisecond)})
	a.Update(models.SourceReading{Source: models.SourceHardware, Steps: 110, Timestamp: now.Add(time.Second)})
	require.EqualValues(t, 7, a.FusedSteps())
	require.Equal(t, models.ModeHardwareSoftware, a.Mode())

	// once both sources decay the snapshot falls back to the best single
	// source, but a read must not advance the stored count
	st := a.Status(now.Add(40 * time.Second))
	require.Equal(t, models.ModeAdaptive, st.Mode)
	require.EqualValues(t, 10, st.FusedSteps)

	require.EqualValues(t, 7, a.FusedSteps())
	require.Equal(t, models.ModeHardwareSoftware, a.Mode())

	again := a.Status(now.Add(40 * time.Second))
	require.Equal(t, st.FusedSteps, again.FusedSteps)
}

func TestArbiterHardwareBaseline(t *testing.T) {
	a := fusion.NewArbiter(nil, nil, nil)
	now := time.Now()

	// the platform counter is cumulative since boot; the first reading of a
	// session defines zero
	a.Update(models.SourceReading{Source: models.SourceHardware, Steps: 1000, Timestamp: now})
	require.Zero(t, a.FusedSteps())

	a.Update(models.SourceReading{Source: models.SourceHardware, Steps: 1012, Timestamp: now.Add(time.Second)})
	require.EqualValues(t, 12, a.FusedSteps())
	require.Equal(t, models.ModeHardwareOnly, a.Mode())
}

func TestArbiterBackwardReadingIgnored(t *testing.T) {
	a := fusion.NewArbiter(nil, nil, nil)
	now := time.Now()

	a.Update(models.SourceReading{Source: models.SourcePeakValley, Steps: 20, Timestamp: now})
	require.EqualValues(t, 20, a.FusedSteps())

	a.Update(models.SourceReading{Source: models.SourcePeakValley, Steps: 15, Timestamp: now.Add(time.Second)})
	require.EqualValues(t, 20, a.FusedSteps())
}

func TestArbiterConfidenceDecay(t *testing.T) {
	a := fusion.NewArbiter(nil, nil, nil)
	now := time.Now()
	a.Update(models.SourceReading{Source: models.SourcePeakValley, Steps: 5, Timestamp: now})

	require.InDelta(t, 1.0, a.Confidence(models.SourcePeakValley, now.Add(time.Second)), 1e-9)
	require.InDelta(t, 0.8, a.Confidence(models.SourcePeakValley, now.Add(3*time.Second)), 1e-9)
	require.InDelta(t, 0.6, a.Confidence(models.SourcePeakValley, now.Add(7*time.Second)), 1e-9)
	require.InDelta(t, 0.3, a.Confidence(models.SourcePeakValley, now.Add(time.Minute)), 1e-9)
	require.Zero(t, a.Confidence(models.SourceFrequency, now))
}

func TestArbiterLowPowerForcesHardware(t *testing.T) {
	a := fusion.NewArbiter(nil, nil, nil)
	now := time.Now()
	a.Update(models.SourceReading{Source: models.SourcePeakValley, Steps: 5, Timestamp: now})

	a.SetLowPower(true)
	st := a.Status(now)
	require.Equal(t, models.ModeHardwareOnly, st.Mode)
	require.True(t, st.LowPower)
}

func TestArbiterReset(t *testing.T) {
	a := fusion.NewArbiter(nil, nil, nil)
	now := time.Now()
	a.Update(models.SourceReading{Source: models.SourcePeakValley, Steps: 9, Timestamp: now})
	require.EqualValues(t, 9, a.FusedSteps())

	a.Reset()
	require.Zero(t, a.FusedSteps())
	require.Equal(t, models.ModeAdaptive, a.Mode())

	// the cumulative hardware counter re-baselines on its next reading
	a.Update(models.SourceReading{Source: models.SourceHardware, Steps: 5000, Timestamp: now.Add(time.Second)})
	require.Zero(t, a.FusedSteps())
}

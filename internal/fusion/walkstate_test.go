package fusion_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"StepFuse/internal/domain/models"
	"StepFuse/internal/fusion"
)

func TestWalkStateTimeoutResetsRun(t *testing.T) {
	var last models.WalkingStateData
	w := fusion.NewWalkState(2, func(d models.WalkingStateData) { last = d })

	now := time.Now()
	for i := 0; i < 5; i++ {
		w.OnStep(now.Add(time.Duration(i)*500*time.Millisecond), 0.8, 0.9)
	}
	require.Equal(t, models.StateWalking, w.State())
	require.Equal(t, 5, w.Consecutive())

	// 2.5 s of silence is within the timeout
	require.False(t, w.Tick(now.Add(2*time.Second+2500*time.Millisecond)))
	require.Equal(t, models.StateWalking, w.State())

	// 4 s of silence after the last step fires the timeout
	require.True(t, w.Tick(now.Add(2*time.Second+4*time.Second)))
	require.Equal(t, models.StateIdle, w.State())
	require.Zero(t, w.Consecutive())
	require.Equal(t, "paused", last.Message)

	// idle with no run left: further ticks are no-ops
	require.False(t, w.Tick(now.Add(2*time.Second+5*time.Second)))
}

func TestWalkStateNeedsMinimumRun(t *testing.T) {
	w := fusion.NewWalkState(2, nil)
	now := time.Now()

	w.OnStep(now, 0.5, 0.5)
	require.Equal(t, models.StateInconsistent, w.State())

	w.OnStep(now.Add(500*time.Millisecond), 0.5, 0.5)
	require.Equal(t, models.StateWalking, w.State())
}

func TestWalkStateConfidenceBlend(t *testing.T) {
	var got float64
	w := fusion.NewWalkState(1, func(d models.WalkingStateData) { got = d.Confidence })

	now := time.Now()
	w.OnStep(now, 1.0, 1.0)
	// one step: 0.5*0.1 + 0.25*1 + 0.25*1
	require.InDelta(t, 0.55, got, 1e-9)
}

func TestWalkStateCalibrationSwallowsSteps(t *testing.T) {
	w := fusion.NewWalkState(2, nil)
	now := time.Now()

	w.BeginCalibration(now)
	require.Equal(t, models.StateCalibrating, w.State())

	w.OnStep(now.Add(time.Second), 0.5, 0.5)
	require.Equal(t, models.StateCalibrating, w.State())
	require.Zero(t, w.Consecutive())

	w.EndCalibration(now.Add(2 * time.Second))
	require.Equal(t, models.StateIdle, w.State())
}

func TestWalkStatePauseAndReset(t *testing.T) {
	w := fusion.NewWalkState(1, nil)
	now := time.Now()

	w.OnStep(now, 0.5, 0.5)
	require.Equal(t, models.StateWalking, w.State())

	w.Pause(now.Add(time.Second))
	require.Equal(t, models.StatePaused, w.State())
	require.Zero(t, w.Consecutive())

	w.Reset(now.Add(2 * time.Second))
	require.Equal(t, models.StateIdle, w.State())
}

func TestWalkStateMinStepsFromProfile(t *testing.T) {
	w := fusion.NewWalkState(2, nil)
	w.SetMinSteps(3)

	now := time.Now()
	w.OnStep(now, 0.5, 0.5)
	w.OnStep(now.Add(500*time.Millisecond), 0.5, 0.5)
	require.Equal(t, models.StateInconsistent, w.State())

	w.OnStep(now.Add(time.Second), 0.5, 0.5)
	require.Equal(t, models.StateWalking, w.State())
}

package calibrate_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"StepFuse/internal/calibrate"
	"StepFuse/internal/domain/models"
)

// runCalibration drives a full run, feeding idleMag during the idle phase and
// walkMag during the walking phase, and returns the terminal result.
func runCalibration(t *testing.T, idleMag, walkMag float64) models.CalibrationResult {
	t.Helper()

	var phase atomic.Int32
	resCh := make(chan models.CalibrationResult, 1)
	c := calibrate.New(
		func(p models.CalibrationProgress) { phase.Store(int32(p.Phase)) },
		func(r models.CalibrationResult) { resCh <- r },
	)

	ok := c.Start(context.Background(), calibrate.Options{
		IdleDuration:    200 * time.Millisecond,
		WalkingDuration: 300 * time.Millisecond,
	})
	require.True(t, ok)

	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(2 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				mag := idleMag
				if models.CalibrationPhase(phase.Load()) == models.PhaseWalking {
					mag = walkMag
				}
				c.OnSample(models.Sample{Magnitude: mag, Timestamp: time.Now()})
			}
		}
	}()

	select {
	case res := <-resCh:
		close(done)
		return res
	case <-time.After(10 * time.Second):
		close(done)
		t.Fatal("calibration did not finish")
		return models.CalibrationResult{}
	}
}

func TestCalibrationDerivesNormalProfile(t *testing.T) {
	res := runCalibration(t, 9.8, 11.0)

	require.True(t, res.Success)
	require.NotNil(t, res.Profile)
	require.InDelta(t, 9.8, res.Profile.IdleBaseline, 1e-9)
	require.InDelta(t, 11.0, res.Profile.WalkingBaseline, 1e-9)
	require.InDelta(t, 1.2, res.Profile.StepAmplitude, 1e-9)
	require.Equal(t, models.StyleNormal, res.Profile.Style)

	// applying the profile keeps the normal tuple and adopts the idle baseline
	cfg := res.Profile.ApplyTo(models.DefaultDetectionConfig())
	tuning := models.TuningForStyle(models.StyleNormal)
	require.Equal(t, tuning.PeakThreshold, cfg.PeakThreshold)
	require.Equal(t, tuning.ValleyThreshold, cfg.ValleyThreshold)
	require.Equal(t, tuning.MinMagnitude, cfg.MinMagnitude)
	require.Equal(t, tuning.MaxMagnitude, cfg.MaxMagnitude)
	require.InDelta(t, 9.8, cfg.UserBaseline, 1e-9)
	require.True(t, cfg.Calibrated)
}

func TestCalibrationDegenerateData(t *testing.T) {
	// walking quieter than idle: negative amplitude is a failure
	res := runCalibration(t, 11.0, 9.8)
	require.False(t, res.Success)
	require.Equal(t, "degenerate calibration data", res.Reason)
	require.Nil(t, res.Profile)
}

func TestCalibrationNoSamples(t *testing.T) {
	resCh := make(chan models.CalibrationResult, 1)
	c := calibrate.New(nil, func(r models.CalibrationResult) { resCh <- r })

	ok := c.Start(context.Background(), calibrate.Options{
		IdleDuration:    50 * time.Millisecond,
		WalkingDuration: 50 * time.Millisecond,
	})
	require.True(t, ok)

	select {
	case res := <-resCh:
		require.False(t, res.Success)
		require.Equal(t, "no samples collected", res.Reason)
	case <-time.After(10 * time.Second):
		t.Fatal("calibration did not finish")
	}
}

func TestCalibrationCancel(t *testing.T) {
	resCh := make(chan models.CalibrationResult, 1)
	c := calibrate.New(nil, func(r models.CalibrationResult) { resCh <- r })

	ok := c.Start(context.Background(), calibrate.DefaultOptions())
	require.True(t, ok)
	require.True(t, c.Running())

	// a second run cannot start while one is active
	require.False(t, c.Start(context.Background(), calibrate.DefaultOptions()))

	c.Cancel()
	select {
	case res := <-resCh:
		require.False(t, res.Success)
		require.Equal(t, "calibration cancelled", res.Reason)
	case <-time.After(5 * time.Second):
		t.Fatal("cancel did not emit a result")
	}
	require.False(t, c.Running())
}

package usecase_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"StepFuse/internal/calibrate"
	"StepFuse/internal/domain/models"
	internalrepo "StepFuse/internal/repository"
	"StepFuse/internal/usecase"
	"StepFuse/pkg/cache"
	applogger "StepFuse/pkg/logger"
)

type nopMetrics struct{}

func (nopMetrics) RecordSample(string)           {}
func (nopMetrics) RecordStep(string)             {}
func (nopMetrics) RecordFusionMode(string)       {}
func (nopMetrics) RecordBatteryMode(string)      {}
func (nopMetrics) RecordError(string)            {}
func (nopMetrics) RecordLatency(string, float64) {}

func newTestEngine(t *testing.T) (*usecase.Engine, *usecase.Bus) {
	t.Helper()
	log, err := applogger.New(&applogger.Config{Level: "error", Format: "json", Output: "stdout"})
	require.NoError(t, err)

	store := internalrepo.NewCacheProfileStore(cache.NewMemoryCache())
	bus := usecase.NewBus()
	return usecase.NewEngine(log, nopMetrics{}, store, nil, bus), bus
}

func TestEngineLifecycle(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	require.False(t, e.Running())
	require.Error(t, e.HandleSamples(ctx, []models.Sample{models.NewSample(0, 0, 9.81, time.Now())}))

	require.NoError(t, e.Start(ctx))
	require.True(t, e.Running())
	require.Error(t, e.Start(ctx), "double start")

	e.Stop()
	require.False(t, e.Running())
	require.Equal(t, models.StatePaused, e.WalkingState())

	// restart begins a fresh session with zeroed counters
	require.NoError(t, e.Start(ctx))
	require.Zero(t, e.FusionStatus(time.Now()).FusedSteps)
	require.Equal(t, models.StateIdle, e.WalkingState())
	e.Stop()
}

func TestEngineEmptyBatchIsNoop(t *testing.T) {
	e, _ := newTestEngine(t)
	require.NoError(t, e.HandleSamples(context.Background(), nil))
}

func TestEngineHardwareStepsFuse(t *testing.T) {
	e, _ := newTestEngine(t)
	require.NoError(t, e.Start(context.Background()))
	defer e.Stop()

	now := time.Now()
	e.HandleHardwareSteps(100, now)
	e.HandleHardwareSteps(108, now.Add(time.Second))

	st := e.FusionStatus(now.Add(time.Second))
	require.EqualValues(t, 8, st.FusedSteps)
	require.EqualValues(t, 8, st.Steps[models.SourceHardware.String()])
	require.Equal(t, models.ModeHardwareOnly, st.Mode)
}

func TestEngineHardwareStepsIgnoredWhenStopped(t *testing.T) {
	e, _ := newTestEngine(t)
	e.HandleHardwareSteps(100, time.Now())
	require.Zero(t, e.FusionStatus(time.Now()).FusedSteps)
}

func TestEngineSensitivityClamped(t *testing.T) {
	e, _ := newTestEngine(t)

	cfg := e.SetSensitivity(1.7)
	require.Equal(t, 1.0, cfg.Sensitivity)
	cfg = e.SetSensitivity(-0.2)
	require.Equal(t, 0.0, cfg.Sensitivity)
	require.Equal(t, cfg, e.Config())
}

func TestEngineCalibrationRequiresRunning(t *testing.T) {
	e, _ := newTestEngine(t)
	require.Error(t, e.StartCalibration(calibrate.DefaultOptions()))
}

func TestEngineCalibrationAppliesProfile(t *testing.T) {
	e, bus := newTestEngine(t)
	ctx := context.Background()
	require.NoError(t, e.Start(ctx))
	defer e.Stop()

	ch, cancel := bus.Subscribe(256)
	defer cancel()

	var phase atomic.Int32
	done := make(chan models.CalibrationResult, 1)
	go func() {
		for env := range ch {
			switch env.Event {
			case usecase.EventCalibrationProgress:
				p := env.Data.(models.CalibrationProgress)
				phase.Store(int32(p.Phase))
			case usecase.EventCalibrationResult:
				done <- env.Data.(models.CalibrationResult)
				return
			}
		}
	}()

	require.NoError(t, e.StartCalibration(calibrate.Options{
		IdleDuration:    200 * time.Millisecond,
		WalkingDuration: 300 * time.Millisecond,
	}))
	require.True(t, e.Calibrating())
	require.Equal(t, models.StateCalibrating, e.WalkingState())

	feedStop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(2 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-feedStop:
				return
			case <-ticker.C:
				mag := 9.8
				if models.CalibrationPhase(phase.Load()) == models.PhaseWalking {
					mag = 11.0
				}
				_ = e.HandleSamples(ctx, []models.Sample{{Magnitude: mag, Timestamp: time.Now()}})
			}
		}
	}()

	select {
	case res := <-done:
		close(feedStop)
		require.True(t, res.Success)
	case <-time.After(15 * time.Second):
		close(feedStop)
		t.Fatal("calibration did not finish")
	}

	cfg := e.Config()
	require.True(t, cfg.Calibrated)
	require.InDelta(t, 9.8, cfg.UserBaseline, 1e-9)
	require.Equal(t, models.TuningForStyle(models.StyleNormal).PeakThreshold, cfg.PeakThreshold)

	profile := e.Profile()
	require.NotNil(t, profile)
	require.Equal(t, models.StyleNormal, profile.Style)
	require.False(t, e.Calibrating())
}

// Sensitivity writes racing the calibration apply must not drop the freshly
// calibrated thresholds.
func TestEngineSensitivityDuringCalibration(t *testing.T) {
	e, bus := newTestEngine(t)
	ctx := context.Background()
	require.NoError(t, e.Start(ctx))
	defer e.Stop()

	ch, cancel := bus.Subscribe(256)
	defer cancel()

	var phase atomic.Int32
	done := make(chan models.CalibrationResult, 1)
	go func() {
		for env := range ch {
			switch env.Event {
			case usecase.EventCalibrationProgress:
				p := env.Data.(models.CalibrationProgress)
				phase.Store(int32(p.Phase))
			case usecase.EventCalibrationResult:
				done <- env.Data.(models.CalibrationResult)
				return
			}
		}
	}()

	require.NoError(t, e.StartCalibration(calibrate.Options{
		IdleDuration:    200 * time.Millisecond,
		WalkingDuration: 300 * time.Millisecond,
	}))

	feedStop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(2 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-feedStop:
				return
			case <-ticker.C:
				mag := 9.8
				if models.CalibrationPhase(phase.Load()) == models.PhaseWalking {
					mag = 11.0
				}
				_ = e.HandleSamples(ctx, []models.Sample{{Magnitude: mag, Timestamp: time.Now()}})
			}
		}
	}()

	hammerStop := make(chan struct{})
	var hammer sync.WaitGroup
	hammer.Add(1)
	go func() {
		defer hammer.Done()
		for i := 0; ; i++ {
			select {
			case <-hammerStop:
				return
			default:
				e.SetSensitivity(float64(i%2) * 0.9)
				time.Sleep(time.Millisecond)
			}
		}
	}()

	select {
	case res := <-done:
		close(feedStop)
		close(hammerStop)
		hammer.Wait()
		require.True(t, res.Success)
	case <-time.After(15 * time.Second):
		close(feedStop)
		close(hammerStop)
		t.Fatal("calibration did not finish")
	}

	cfg := e.Config()
	require.True(t, cfg.Calibrated)
	require.InDelta(t, 9.8, cfg.UserBaseline, 1e-9)
	require.Equal(t, models.TuningForStyle(models.StyleNormal).PeakThreshold, cfg.PeakThreshold)
}

func TestEngineResetCounters(t *testing.T) {
	e, _ := newTestEngine(t)
	require.NoError(t, e.Start(context.Background()))
	defer e.Stop()

	now := time.Now()
	e.HandleHardwareSteps(100, now)
	e.HandleHardwareSteps(110, now.Add(time.Second))
	require.EqualValues(t, 10, e.FusionStatus(now.Add(time.Second)).FusedSteps)

	e.ResetCounters()
	require.Zero(t, e.FusionStatus(now.Add(2*time.Second)).FusedSteps)
	require.Equal(t, models.StateIdle, e.WalkingState())
}

package usecase

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"StepFuse/internal/calibrate"
	"StepFuse/internal/detect"
	"StepFuse/internal/domain/models"
	domrepo "StepFuse/internal/domain/repository"
	"StepFuse/internal/fusion"
	"StepFuse/internal/power"
	"StepFuse/internal/signal"
	"StepFuse/pkg/logger"
)

const persistTimeout = 5 * time.Second

// walkStateTick is how often the no-step timeout is evaluated.
const walkStateTick = time.Second

// Engine owns the full detection chain: conditioning, both software
// detectors, calibration, the battery scheduler, the fusion arbiter and the
// walking-state machine. One mutex serializes sample processing against
// control operations; component callbacks never re-enter it.
type Engine struct {
	log     *logger.Logger
	metrics domrepo.Metrics
	store   domrepo.ProfileStore
	pub     domrepo.Publisher
	bus     *Bus

	cfg     atomic.Pointer[models.DetectionConfig]
	profile atomic.Pointer[models.UserStepProfile]

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	runCtx  context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	cond  *signal.Conditioner
	pv    *detect.PeakValley
	freq  *detect.Frequency
	calib *calibrate.Calibrator
	sched *power.Scheduler
	arb   *fusion.Arbiter
	walk  *fusion.WalkState

	lastFreqSteps int64

	onBattery func(models.BatteryMode, models.BatteryModeParams)
}

// NewEngine wires the detection chain together. pub may be nil when event
// publishing is disabled.
func NewEngine(
	log *logger.Logger,
	metrics domrepo.Metrics,
	store domrepo.ProfileStore,
	pub domrepo.Publisher,
	bus *Bus,
) *Engine {
	e := &Engine{
		log:     log,
		metrics: metrics,
		store:   store,
		pub:     pub,
		bus:     bus,
	}
	cfg := models.DefaultDetectionConfig()
	e.cfg.Store(&cfg)

	e.cond = signal.NewConditioner(float64(models.ParamsForBatteryMode(models.BatteryNormal).SamplingRateHz))
	e.pv = detect.NewPeakValley(e.cond, cfg)
	e.freq = detect.NewFrequency(e.cond.SampleRate())
	e.calib = calibrate.New(e.onCalibrationProgress, e.onCalibrationResult)
	e.sched = power.NewScheduler(e.onBatteryModeChange)
	e.arb = fusion.NewArbiter(log, e.onFusedUpdate, e.onFusionStatus)
	e.walk = fusion.NewWalkState(cfg.MinConsecutiveSteps, e.onWalkTransition)

	e.pv.OnStep(e.onDetectedStep)
	return e
}

// OnBatteryChange registers the sampling-cadence listener (the pipeline).
// Must be called before Start.
func (e *Engine) OnBatteryChange(fn func(models.BatteryMode, models.BatteryModeParams)) {
	e.onBattery = fn
}

// Running reports whether a tracking session is active.
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// Start begins a tracking session with zeroed counters. Persisted
// calibration, when present, is applied before the first sample.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		return fmt.Errorf("engine already running")
	}

	e.loadPersisted(ctx)
	e.resetLocked(time.Now())

	e.runCtx, e.cancel = context.WithCancel(context.Background())
	e.stopCh = make(chan struct{})
	e.running = true

	e.wg.Add(1)
	go e.runTimers(e.stopCh)

	e.log.Info("engine started",
		logger.Bool("calibrated", e.cfg.Load().Calibrated),
		logger.String("battery_mode", e.sched.Mode().String()))
	return nil
}

// Stop ends the session. It is synchronous: once it returns, no further
// sample mutates engine state.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	e.running = false
	close(e.stopCh)
	e.cancel()
	e.mu.Unlock()

	e.wg.Wait()
	e.calib.Cancel()
	e.walk.Pause(time.Now())
	e.log.Info("engine stopped", logger.Int64("fused_steps", e.arb.FusedSteps()))
}

// HandleSamples runs one validated batch through the chain. Samples arriving
// while calibration is active feed the calibrator only.
func (e *Engine) HandleSamples(ctx context.Context, batch []models.Sample) error {
	if len(batch) == 0 {
		return nil
	}
	start := time.Now()
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return fmt.Errorf("engine not running")
	}

	calibrating := e.calib.Running()
	magnitudes := make([]float64, 0, len(batch))
	for _, s := range batch {
		e.metrics.RecordSample("imu")
		magnitudes = append(magnitudes, s.Magnitude)
		if calibrating {
			e.calib.OnSample(s)
			continue
		}
		filtered := e.cond.Process(s)
		e.pv.OnFiltered(s, filtered)
		e.freq.OnFiltered(s, filtered)
	}

	var freqReading *models.SourceReading
	if fs := e.freq.Steps(); fs != e.lastFreqSteps {
		e.lastFreqSteps = fs
		freqReading = &models.SourceReading{
			Source:    models.SourceFrequency,
			Steps:     fs,
			Timestamp: batch[len(batch)-1].Timestamp,
		}
	}
	e.mu.Unlock()

	e.sched.Observe(magnitudes)
	if freqReading != nil {
		e.metrics.RecordStep(models.SourceFrequency.String())
		e.arb.Update(*freqReading)
	}
	e.metrics.RecordLatency("batch_process", time.Since(start).Seconds())
	return nil
}

// HandleHardwareSteps ingests one cumulative reading from the platform step
// counter. Accepted while running, in any battery mode.
func (e *Engine) HandleHardwareSteps(steps int64, at time.Time) {
	if !e.Running() {
		return
	}
	e.metrics.RecordStep(models.SourceHardware.String())
	e.arb.Update(models.SourceReading{
		Source:    models.SourceHardware,
		Steps:     steps,
		Timestamp: at,
	})
}

// SetSensitivity rebuilds the active configuration from the current one;
// the engine mutex serializes the swap against a concurrent calibration
// apply. The new value is persisted fire-and-forget.
func (e *Engine) SetSensitivity(v float64) models.DetectionConfig {
	e.mu.Lock()
	cfg := e.cfg.Load().WithSensitivity(v)
	e.cfg.Store(&cfg)
	e.pv.SetConfig(cfg)
	e.mu.Unlock()
	e.log.Info("sensitivity updated", logger.Any("sensitivity", cfg.Sensitivity))
	go e.persistConfig(cfg)
	return cfg
}

// StartCalibration launches the timed calibration sequence.
func (e *Engine) StartCalibration(opts calibrate.Options) error {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return fmt.Errorf("engine not running")
	}
	runCtx := e.runCtx
	e.mu.Unlock()

	if !e.calib.Start(runCtx, opts) {
		return fmt.Errorf("calibration already in progress")
	}
	e.walk.BeginCalibration(time.Now())
	e.log.Info("calibration started",
		logger.Duration("idle", opts.IdleDuration),
		logger.Duration("walking", opts.WalkingDuration))
	return nil
}

// CancelCalibration aborts an active run; partial data is discarded.
func (e *Engine) CancelCalibration() {
	e.calib.Cancel()
}

// Calibrating reports whether a calibration run is in flight.
func (e *Engine) Calibrating() bool { return e.calib.Running() }

// ResetCounters zeroes all step counters and returns the state machine to
// idle. Calibration data and battery mode are untouched.
func (e *Engine) ResetCounters() {
	e.mu.Lock()
	e.resetLocked(time.Now())
	e.mu.Unlock()
	e.log.Info("counters reset")
}

func (e *Engine) resetLocked(now time.Time) {
	e.cond.Reset()
	e.pv.Reset()
	e.freq.Reset()
	e.lastFreqSteps = 0
	e.arb.Reset()
	e.walk.Reset(now)
}

// Config returns the active detection configuration.
func (e *Engine) Config() models.DetectionConfig { return *e.cfg.Load() }

// Profile returns the applied calibration profile, nil before calibration.
func (e *Engine) Profile() *models.UserStepProfile { return e.profile.Load() }

// FusionStatus snapshots the arbiter at now.
func (e *Engine) FusionStatus(now time.Time) models.FusionStatus { return e.arb.Status(now) }

// BatteryStatus snapshots the scheduler at now.
func (e *Engine) BatteryStatus(now time.Time) models.BatteryOptimizationStatus {
	return e.sched.Status(now)
}

// WalkingState returns the current activity classification.
func (e *Engine) WalkingState() models.WalkingState { return e.walk.State() }

// SignalQuality returns the conditioner's 0..1 quality score.
func (e *Engine) SignalQuality() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cond.Quality()
}

// runTimers drives the periodic battery and walking-state checks.
func (e *Engine) runTimers(stopCh <-chan struct{}) {
	defer e.wg.Done()

	activity := time.NewTicker(power.ActivityTick)
	trend := time.NewTicker(power.TrendTick)
	walk := time.NewTicker(walkStateTick)
	defer activity.Stop()
	defer trend.Stop()
	defer walk.Stop()

	for {
		select {
		case <-stopCh:
			return
		case now := <-activity.C:
			e.sched.Tick(now)
		case now := <-trend.C:
			e.sched.Trend(now)
		case now := <-walk.C:
			if e.walk.Tick(now) {
				// detector run resets together with the state machine
				e.mu.Lock()
				e.pv.ResetConsecutive()
				e.mu.Unlock()
			}
		}
	}
}

// loadPersisted applies a previously saved configuration and profile.
// Missing keys are not an error; load failures only log.
func (e *Engine) loadPersisted(ctx context.Context) {
	if e.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, persistTimeout)
	defer cancel()

	if cfg, err := e.store.LoadConfig(ctx); err != nil {
		e.metrics.RecordError("load_config")
		e.log.Warn("load persisted config", logger.Error(err))
	} else if cfg != nil {
		e.cfg.Store(cfg)
		e.pv.SetConfig(*cfg)
		e.walk.SetMinSteps(cfg.MinConsecutiveSteps)
	}

	if p, err := e.store.LoadProfile(ctx); err != nil {
		e.metrics.RecordError("load_profile")
		e.log.Warn("load persisted profile", logger.Error(err))
	} else if p != nil {
		e.profile.Store(p)
	}
}

// onDetectedStep fires from the peak-valley detector on every accepted step.
func (e *Engine) onDetectedStep(consecutive int, at time.Time) {
	e.metrics.RecordStep(models.SourcePeakValley.String())
	e.walk.OnStep(at, e.cond.Quality(), e.pv.IntervalStability())
	e.arb.Update(models.SourceReading{
		Source:    models.SourcePeakValley,
		Steps:     e.pv.Steps(),
		Timestamp: at,
	})
}

func (e *Engine) onFusedUpdate(u models.StepUpdate) {
	e.bus.Publish(EventStepUpdate, u)
	if e.pub != nil {
		go e.publishStepUpdate(u)
	}
}

func (e *Engine) onFusionStatus(st models.FusionStatus) {
	e.metrics.RecordFusionMode(st.ModeName)
	e.bus.Publish(EventFusionStatus, st)
}

func (e *Engine) onWalkTransition(w models.WalkingStateData) {
	e.log.Info("walking state",
		logger.String("state", w.StateName),
		logger.Int("consecutive", w.ConsecutiveSteps))
	e.bus.Publish(EventWalkingState, w)
	if e.pub != nil {
		go e.publishWalkingState(w)
	}
}

func (e *Engine) onCalibrationProgress(p models.CalibrationProgress) {
	e.bus.Publish(EventCalibrationProgress, p)
}

// onCalibrationResult applies a successful profile: derived thresholds swap
// in atomically and both artifacts persist fire-and-forget. Failures leave
// the active configuration untouched.
func (e *Engine) onCalibrationResult(res models.CalibrationResult) {
	now := time.Now()
	defer e.walk.EndCalibration(now)
	defer e.bus.Publish(EventCalibrationResult, res)

	if !res.Success {
		e.metrics.RecordError("calibration_failed")
		e.log.Warn("calibration failed", logger.String("reason", res.Reason))
		return
	}

	profile := res.Profile
	e.mu.Lock()
	cfg := profile.ApplyTo(*e.cfg.Load())
	e.cfg.Store(&cfg)
	e.profile.Store(profile)
	e.pv.SetConfig(cfg)
	e.mu.Unlock()
	e.walk.SetMinSteps(minStepsForStyle(profile.Style))

	e.log.Info("calibration applied",
		logger.String("style", profile.Style.String()),
		logger.Any("idle_baseline", profile.IdleBaseline),
		logger.Any("step_amplitude", profile.StepAmplitude))

	go e.persistConfig(cfg)
	go e.persistProfile(*profile)
}

// minStepsForStyle maps the gait class to the walking threshold: light
// walkers need a longer run before the signal is trusted.
func minStepsForStyle(s models.WalkingStyle) int {
	switch s {
	case models.StyleLight:
		return 3
	case models.StyleHeavy:
		return 1
	default:
		return 2
	}
}

// onBatteryModeChange retunes the chain for the new cadence. The conditioner
// and frequency detector redesign their filters; the pipeline listener
// adjusts acquisition without dropping buffered samples.
func (e *Engine) onBatteryModeChange(mode models.BatteryMode, params models.BatteryModeParams) {
	e.mu.Lock()
	e.cond.SetSampleRate(float64(params.SamplingRateHz))
	e.freq.SetSampleRate(float64(params.SamplingRateHz))
	e.mu.Unlock()

	e.arb.SetLowPower(mode == models.BatterySleep)
	e.metrics.RecordBatteryMode(mode.String())
	if e.onBattery != nil {
		e.onBattery(mode, params)
	}

	status := e.sched.Status(time.Now())
	e.bus.Publish(EventBatteryStatus, status)
	e.log.Info("battery mode changed",
		logger.String("mode", mode.String()),
		logger.Int("sampling_rate_hz", params.SamplingRateHz),
		logger.Int("batch_size", params.BatchSize))
}

func (e *Engine) publishStepUpdate(u models.StepUpdate) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := e.pub.PublishStepUpdate(ctx, u); err != nil {
		e.metrics.RecordError("publish_step_update")
		e.log.Warn("publish step update", logger.Error(err))
	}
}

func (e *Engine) publishWalkingState(w models.WalkingStateData) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := e.pub.PublishWalkingState(ctx, w); err != nil {
		e.metrics.RecordError("publish_walking_state")
		e.log.Warn("publish walking state", logger.Error(err))
	}
}

func (e *Engine) persistConfig(cfg models.DetectionConfig) {
	if e.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := e.store.SaveConfig(ctx, &cfg); err != nil {
		e.metrics.RecordError("save_config")
		e.log.Warn("persist config", logger.Error(err))
	}
}

func (e *Engine) persistProfile(p models.UserStepProfile) {
	if e.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := e.store.SaveProfile(ctx, &p); err != nil {
		e.metrics.RecordError("save_profile")
		e.log.Warn("persist profile", logger.Error(err))
	}
}

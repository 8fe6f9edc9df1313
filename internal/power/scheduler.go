package power

import (
	"math"
	"sync"
	"time"

	"StepFuse/internal/domain/models"
	"StepFuse/internal/signal"
)

const (
	// ActivityTick is the cadence of activity-level updates.
	ActivityTick = 5 * time.Second
	// TrendTick is the cadence of the slower oscillation-damping check.
	TrendTick = 30 * time.Second

	activityFloor  = 0.1
	sleepAfterIdle = 10 * time.Minute

	highActivity   = 0.7
	normalActivity = 0.3

	recentMagnitudes = 10
	shortTrendTicks  = 6  // ~30s of activity samples
	longTrendTicks   = 24 // ~2min
)

// Scheduler selects the battery mode from observed signal activity. Mode
// changes reconfigure the upstream sampling cadence; buffered samples are
// never dropped, only the acquisition rate changes.
type Scheduler struct {
	mu sync.Mutex

	mode         models.BatteryMode
	activity     float64
	lastActiveAt time.Time
	startedAt    time.Time

	recent    *signal.Ring // raw magnitudes from recent batches
	shortHist *signal.Ring // activity levels per tick
	longHist  *signal.Ring

	onModeChange func(models.BatteryMode, models.BatteryModeParams)
}

// NewScheduler creates a scheduler starting in normal mode.
func NewScheduler(onModeChange func(models.BatteryMode, models.BatteryModeParams)) *Scheduler {
	now := time.Now()
	return &Scheduler{
		mode:         models.BatteryNormal,
		lastActiveAt: now,
		startedAt:    now,
		recent:       signal.NewRing(recentMagnitudes),
		shortHist:    signal.NewRing(shortTrendTicks),
		longHist:     signal.NewRing(longTrendTicks),
		onModeChange: onModeChange,
	}
}

// Mode returns the active battery mode.
func (s *Scheduler) Mode() models.BatteryMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// Params returns the tuple of the active mode.
func (s *Scheduler) Params() models.BatteryModeParams {
	return models.ParamsForBatteryMode(s.Mode())
}

// Observe feeds magnitudes from the latest processed batch.
func (s *Scheduler) Observe(magnitudes []float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range magnitudes {
		s.recent.Push(m)
	}
}

// Tick recomputes the activity level and applies the mode ladder. Called
// every ActivityTick.
func (s *Scheduler) Tick(now time.Time) {
	s.mu.Lock()
	s.activity = math.Min(1, signal.StdDev(s.recent.Slice())/2)
	if s.activity > activityFloor {
		s.lastActiveAt = now
	}
	s.shortHist.Push(s.activity)
	s.longHist.Push(s.activity)

	changed := s.applyLocked(s.selectMode(now))
	mode := s.mode
	s.mu.Unlock()

	s.notify(changed, mode)
}

func (s *Scheduler) selectMode(now time.Time) models.BatteryMode {
	if now.Sub(s.lastActiveAt) > sleepAfterIdle {
		return models.BatterySleep
	}
	switch {
	case s.activity > highActivity:
		return models.BatteryHighPerformance
	case s.activity > normalActivity:
		return models.BatteryNormal
	case s.activity > activityFloor:
		return models.BatteryPowerSaving
	default:
		return models.BatterySleep
	}
}

// Trend compares short-term vs longer-term average activity and nudges
// between normal and powerSaving only on a clear trend, damping oscillation
// at the mode boundary. Called every TrendTick.
func (s *Scheduler) Trend(now time.Time) {
	s.mu.Lock()
	long := signal.Mean(s.longHist.Slice())
	short := signal.Mean(s.shortHist.Slice())

	changed := false
	if long > 0 {
		switch s.mode {
		case models.BatteryNormal:
			if short < long*0.5 && short <= normalActivity {
				changed = s.applyLocked(models.BatteryPowerSaving)
			}
		case models.BatteryPowerSaving:
			if short > long*1.5 && short > activityFloor {
				changed = s.applyLocked(models.BatteryNormal)
			}
		}
	}
	mode := s.mode
	s.mu.Unlock()

	s.notify(changed, mode)
}

func (s *Scheduler) applyLocked(mode models.BatteryMode) bool {
	if mode == s.mode {
		return false
	}
	s.mode = mode
	return true
}

// notify runs outside the scheduler lock so the handler may call back into
// components that feed Observe.
func (s *Scheduler) notify(changed bool, mode models.BatteryMode) {
	if changed && s.onModeChange != nil {
		s.onModeChange(mode, models.ParamsForBatteryMode(mode))
	}
}

// Status snapshots the scheduler state for diagnostics.
func (s *Scheduler) Status(now time.Time) models.BatteryOptimizationStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return models.BatteryOptimizationStatus{
		Mode:          s.mode,
		ModeName:      s.mode.String(),
		Params:        models.ParamsForBatteryMode(s.mode),
		ActivityLevel: s.activity,
		IdleFor:       now.Sub(s.lastActiveAt),
		Timestamp:     now,
	}
}

// Reset returns the scheduler to normal mode with cleared history.
func (s *Scheduler) Reset(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode = models.BatteryNormal
	s.activity = 0
	s.lastActiveAt = now
	s.recent.Reset()
	s.shortHist.Reset()
	s.longHist.Reset()
}

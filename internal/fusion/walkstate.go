package fusion

import (
	"math"
	"sync"
	"time"

	"StepFuse/internal/domain/models"
)

// stepTimeout resets the consecutive run when no step arrives in time.
const stepTimeout = 3 * time.Second

// WalkState classifies activity from the consecutive valid-step run and
// signal quality. Transitions are emitted through the registered callback.
type WalkState struct {
	mu sync.Mutex

	state       models.WalkingState
	consecutive int
	lastStepAt  time.Time
	minSteps    int

	onTransition func(models.WalkingStateData)
}

// NewWalkState creates the state machine in idle.
func NewWalkState(minConsecutiveSteps int, onTransition func(models.WalkingStateData)) *WalkState {
	if minConsecutiveSteps < 1 {
		minConsecutiveSteps = 1
	}
	return &WalkState{
		state:        models.StateIdle,
		minSteps:     minConsecutiveSteps,
		onTransition: onTransition,
	}
}

// SetMinSteps updates the walking threshold (profile dependent, 1–3).
func (w *WalkState) SetMinSteps(n int) {
	w.mu.Lock()
	if n >= 1 {
		w.minSteps = n
	}
	w.mu.Unlock()
}

// State returns the current classification.
func (w *WalkState) State() models.WalkingState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Consecutive returns the current valid-step run.
func (w *WalkState) Consecutive() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.consecutive
}

// OnStep records a valid step. quality and stability feed the walking
// confidence blend.
func (w *WalkState) OnStep(at time.Time, quality, stability float64) {
	w.mu.Lock()
	if w.state == models.StateCalibrating {
		w.mu.Unlock()
		return
	}
	w.consecutive++
	w.lastStepAt = at

	next := models.StateInconsistent
	if w.consecutive >= w.minSteps {
		next = models.StateWalking
	}
	w.transitionLocked(next, at, w.confidenceLocked(quality, stability), "")
	w.mu.Unlock()
}

// Tick applies the no-step timeout. Called periodically by the engine; the
// return reports whether the timeout fired and the run was reset, so the
// caller can clear the detector-side run as well.
func (w *WalkState) Tick(now time.Time) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state == models.StateCalibrating || w.consecutive == 0 {
		return false
	}
	if now.Sub(w.lastStepAt) <= stepTimeout {
		return false
	}
	msg := ""
	if w.state == models.StateWalking {
		msg = "paused"
	}
	w.consecutive = 0
	w.transitionLocked(models.StateIdle, now, 0, msg)
	return true
}

// BeginCalibration forces the calibrating state (explicit external request).
func (w *WalkState) BeginCalibration(now time.Time) {
	w.mu.Lock()
	w.consecutive = 0
	w.transitionLocked(models.StateCalibrating, now, 0, "calibration in progress")
	w.mu.Unlock()
}

// EndCalibration leaves the calibrating state back to idle.
func (w *WalkState) EndCalibration(now time.Time) {
	w.mu.Lock()
	w.transitionLocked(models.StateIdle, now, 0, "")
	w.mu.Unlock()
}

// Pause marks detection stopped without clearing history.
func (w *WalkState) Pause(now time.Time) {
	w.mu.Lock()
	w.consecutive = 0
	w.transitionLocked(models.StatePaused, now, 0, "detection stopped")
	w.mu.Unlock()
}

// Reset returns to idle with a zeroed run.
func (w *WalkState) Reset(now time.Time) {
	w.mu.Lock()
	w.consecutive = 0
	w.lastStepAt = time.Time{}
	w.transitionLocked(models.StateIdle, now, 0, "")
	w.mu.Unlock()
}

// confidenceLocked blends the saturating consecutive-step count with the
// measured signal quality and cadence stability.
func (w *WalkState) confidenceLocked(quality, stability float64) float64 {
	run := math.Min(float64(w.consecutive)/10, 1)
	return 0.5*run + 0.25*clamp01(quality) + 0.25*clamp01(stability)
}

func (w *WalkState) transitionLocked(next models.WalkingState, at time.Time, confidence float64, msg string) {
	if next == w.state && msg == "" {
		return
	}
	w.state = next
	if w.onTransition != nil {
		w.onTransition(models.WalkingStateData{
			State:            next,
			StateName:        next.String(),
			Timestamp:        at,
			ConsecutiveSteps: w.consecutive,
			Confidence:       confidence,
			Message:          msg,
		})
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

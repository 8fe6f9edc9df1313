package usecase

import (
	"sync"
	"sync/atomic"
	"time"
)

// Event names carried on the bus.
const (
	EventStepUpdate          = "step_update"
	EventWalkingState        = "walking_state"
	EventFusionStatus        = "fusion_status"
	EventCalibrationProgress = "calibration_progress"
	EventCalibrationResult   = "calibration_result"
	EventBatteryStatus       = "battery_status"
)

// Envelope wraps one engine event for fan-out.
type Envelope struct {
	Event     string    `json:"event"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

// Bus fans engine events out to subscribers (SSE streams, publishers).
// Publish never blocks: a subscriber whose buffer is full loses the event
// and the drop is counted.
type Bus struct {
	mu      sync.RWMutex
	subs    map[int]chan Envelope
	nextID  int
	dropped atomic.Int64
}

func NewBus() *Bus {
	return &Bus{subs: make(map[int]chan Envelope)}
}

// Subscribe registers a buffered subscriber channel. The returned cancel
// function removes the subscription and closes the channel.
func (b *Bus) Subscribe(buffer int) (<-chan Envelope, func()) {
	if buffer <= 0 {
		buffer = 64
	}
	ch := make(chan Envelope, buffer)

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		if c, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(c)
		}
		b.mu.Unlock()
	}
	return ch, cancel
}

// Publish delivers an event to all current subscribers without blocking.
func (b *Bus) Publish(event string, data any) {
	env := Envelope{Event: event, Data: data, Timestamp: time.Now()}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs {
		select {
		case ch <- env:
		default:
			b.dropped.Add(1)
		}
	}
}

// Dropped returns the total number of events lost to full subscriber buffers.
func (b *Bus) Dropped() int64 { return b.dropped.Load() }

// Subscribers returns the current subscriber count.
func (b *Bus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

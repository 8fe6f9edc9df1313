package imufeed

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"StepFuse/internal/domain/models"
	drepo "StepFuse/internal/domain/repository"
)

// MockSource synthesizes an accelerometer feed for local runs and demos: a
// sinusoid at a walking cadence riding on gravity, plus a little noise.
type MockSource struct {
	rateHz    float64
	stepHz    float64
	amplitude float64
	noise     float64

	mu        sync.Mutex
	connected bool
	cancel    context.CancelFunc
}

// NewMock creates a synthetic feed. stepHz 0 produces a still device.
func NewMock(rateHz, stepHz, amplitude, noise float64) drepo.SensorStream {
	if rateHz <= 0 {
		rateHz = 50
	}
	return &MockSource{rateHz: rateHz, stepHz: stepHz, amplitude: amplitude, noise: noise}
}

var _ drepo.SensorStream = (*MockSource)(nil)

func (m *MockSource) Connect(ctx context.Context) error {
	m.mu.Lock()
	m.connected = true
	m.mu.Unlock()
	return nil
}

func (m *MockSource) Subscribe(ctx context.Context) error { return nil }

func (m *MockSource) Read(ctx context.Context) (<-chan models.Sample, <-chan error) {
	samples := make(chan models.Sample, 256)
	errs := make(chan error, 1)

	runCtx, cancel := context.WithCancel(ctx)
	m.mu.Lock()
	m.cancel = cancel
	m.mu.Unlock()

	go func() {
		defer close(samples)
		defer close(errs)
		ticker := time.NewTicker(time.Duration(float64(time.Second) / m.rateHz))
		defer ticker.Stop()

		start := time.Now()
		for {
			select {
			case <-runCtx.Done():
				return
			case now := <-ticker.C:
				t := now.Sub(start).Seconds()
				z := 9.81 + m.amplitude*math.Sin(2*math.Pi*m.stepHz*t) + m.noise*(rand.Float64()*2-1)
				x := m.noise * (rand.Float64()*2 - 1)
				y := m.noise * (rand.Float64()*2 - 1)
				select {
				case samples <- models.NewSample(x, y, z, now):
				default:
				}
			}
		}
	}()

	return samples, errs
}

func (m *MockSource) Reconnect(ctx context.Context) error { return nil }

func (m *MockSource) Close() error {
	m.mu.Lock()
	m.connected = false
	cancel := m.cancel
	m.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	return nil
}

func (m *MockSource) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

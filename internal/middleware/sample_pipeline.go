package middleware

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"StepFuse/internal/domain/models"
	domrepo "StepFuse/internal/domain/repository"
)

// Proc is the minimal batch consumer interface the pipeline needs.
type Proc interface {
	HandleSamples(ctx context.Context, batch []models.Sample) error
}

// SamplePipeline sits between the sensor feed and the engine. It validates
// raw samples, gates the acquisition rate to the active battery mode, and
// delivers fixed-size batches on the mode's processing interval. Reconfiguring
// for a new mode keeps already buffered samples.
type SamplePipeline struct {
	proc    Proc
	metrics domrepo.Metrics

	mu           sync.Mutex
	params       models.BatteryModeParams
	lastAccepted time.Time
	batch        []models.Sample
	started      bool

	reconfCh chan models.BatteryModeParams
	stopCh   chan struct{}
	done     chan struct{}
}

type PipelineOption func(*SamplePipeline)

// WithBatteryParams sets the initial sampling tuple.
func WithBatteryParams(p models.BatteryModeParams) PipelineOption {
	return func(sp *SamplePipeline) { sp.params = p }
}

// NewSamplePipeline creates a pipeline starting at the normal-mode cadence.
func NewSamplePipeline(proc Proc, metrics domrepo.Metrics, opts ...PipelineOption) *SamplePipeline {
	p := &SamplePipeline{
		proc:     proc,
		metrics:  metrics,
		params:   models.ParamsForBatteryMode(models.BatteryNormal),
		reconfCh: make(chan models.BatteryModeParams, 4),
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.batch = make([]models.Sample, 0, p.params.BatchSize)
	return p
}

// Start launches the interval flusher.
func (p *SamplePipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	interval := p.params.ProcessingInterval
	p.mu.Unlock()

	go p.flushLoop(ctx, interval)
}

// Stop halts the flusher and delivers any remaining buffered samples.
func (p *SamplePipeline) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	p.mu.Unlock()

	close(p.stopCh)
	<-p.done
	p.flush(context.Background())
}

// Reconfigure applies a new battery tuple. Buffered samples are kept; only
// the acquisition gate and flush cadence change.
func (p *SamplePipeline) Reconfigure(params models.BatteryModeParams) {
	p.mu.Lock()
	p.params = params
	p.mu.Unlock()

	select {
	case p.reconfCh <- params:
	default:
	}
}

// Process validates and rate-gates one raw sample, buffering it for the next
// batch. A full batch flushes immediately.
func (p *SamplePipeline) Process(ctx context.Context, s models.Sample) error {
	if err := validateSample(s); err != nil {
		p.metrics.RecordError("pipeline_validate")
		return err
	}

	p.mu.Lock()
	if !p.allowLocked(s.Timestamp) {
		p.mu.Unlock()
		p.metrics.RecordError("pipeline_throttle")
		return nil
	}
	p.batch = append(p.batch, s)
	full := len(p.batch) >= p.params.BatchSize
	p.mu.Unlock()

	if full {
		p.flush(ctx)
	}
	return nil
}

func (p *SamplePipeline) flushLoop(ctx context.Context, interval time.Duration) {
	defer close(p.done)
	timer := time.NewTimer(interval)
	defer timer.Stop()

	for {
		select {
		case <-p.stopCh:
			return
		case params := <-p.reconfCh:
			interval = params.ProcessingInterval
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(interval)
		case <-timer.C:
			p.flush(ctx)
			timer.Reset(interval)
		}
	}
}

func (p *SamplePipeline) flush(ctx context.Context) {
	p.mu.Lock()
	if len(p.batch) == 0 {
		p.mu.Unlock()
		return
	}
	batch := p.batch
	p.batch = make([]models.Sample, 0, p.params.BatchSize)
	p.mu.Unlock()

	start := time.Now()
	if err := p.proc.HandleSamples(ctx, batch); err != nil {
		p.metrics.RecordError("pipeline_flush")
		return
	}
	p.metrics.RecordLatency("pipeline_flush", time.Since(start).Seconds())
}

// allowLocked enforces the acquisition rate of the active battery mode.
// Feeds faster than the configured sampling rate are downsampled here.
func (p *SamplePipeline) allowLocked(at time.Time) bool {
	rate := p.params.SamplingRateHz
	if rate <= 0 {
		return true
	}
	if p.lastAccepted.IsZero() {
		p.lastAccepted = at
		return true
	}
	// a little slack so jittery feeds at exactly the target rate pass
	minGap := time.Second / time.Duration(rate) * 9 / 10
	if at.Sub(p.lastAccepted) < minGap {
		return false
	}
	p.lastAccepted = at
	return true
}

func validateSample(s models.Sample) error {
	if s.Timestamp.IsZero() {
		return fmt.Errorf("sample timestamp missing")
	}
	for _, v := range []float64{s.X, s.Y, s.Z, s.Magnitude} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("sample axis not finite")
		}
	}
	return nil
}

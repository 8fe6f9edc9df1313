package usecase

import (
	"context"
	"time"

	"StepFuse/internal/domain/models"
	domrepo "StepFuse/internal/domain/repository"
	mid "StepFuse/internal/middleware"
)

const reconnectDelay = 2 * time.Second

// SampleCollector consumes the accelerometer feed and pushes samples through
// the pipeline into the engine.
type SampleCollector struct {
	stream  domrepo.SensorStream
	metrics domrepo.Metrics
	pipe    *mid.SamplePipeline
}

// NewSampleCollector creates a collector for the given feed.
func NewSampleCollector(stream domrepo.SensorStream, metrics domrepo.Metrics, pipe *mid.SamplePipeline) *SampleCollector {
	return &SampleCollector{stream: stream, metrics: metrics, pipe: pipe}
}

// IsConnected reports the feed connection state.
func (c *SampleCollector) IsConnected() bool {
	return c.stream.IsConnected()
}

// Start connects, subscribes and launches the consume loop.
func (c *SampleCollector) Start(ctx context.Context) error {
	if err := c.stream.Connect(ctx); err != nil {
		return err
	}
	if err := c.stream.Subscribe(ctx); err != nil {
		return err
	}
	c.pipe.Start(ctx)
	sampleCh, errCh := c.stream.Read(ctx)
	go c.consume(ctx, sampleCh, errCh)
	return nil
}

func (c *SampleCollector) consume(ctx context.Context, sampleCh <-chan models.Sample, errCh <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-errCh:
			if err != nil {
				c.metrics.RecordError("stream")
				time.Sleep(reconnectDelay)
				_ = c.stream.Reconnect(ctx)
			}
		case s := <-sampleCh:
			_ = c.pipe.Process(ctx, s)
		}
	}
}

// Shutdown stops the pipeline and closes the feed.
func (c *SampleCollector) Shutdown(ctx context.Context) error {
	c.pipe.Stop()
	return c.stream.Close()
}

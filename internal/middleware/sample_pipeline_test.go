package middleware_test

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"StepFuse/internal/domain/models"
	"StepFuse/internal/middleware"
)

type nopMetrics struct{}

func (nopMetrics) RecordSample(string)           {}
func (nopMetrics) RecordStep(string)             {}
func (nopMetrics) RecordFusionMode(string)       {}
func (nopMetrics) RecordBatteryMode(string)      {}
func (nopMetrics) RecordError(string)            {}
func (nopMetrics) RecordLatency(string, float64) {}

type captureProc struct {
	mu      sync.Mutex
	batches [][]models.Sample
}

func (c *captureProc) HandleSamples(ctx context.Context, batch []models.Sample) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.batches = append(c.batches, batch)
	return nil
}

func (c *captureProc) total() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, b := range c.batches {
		n += len(b)
	}
	return n
}

// unthrottled params with an interval long enough to never fire in a test
func testParams(batchSize int) models.BatteryModeParams {
	return models.BatteryModeParams{SamplingRateHz: 0, BatchSize: batchSize, ProcessingInterval: time.Hour}
}

func TestPipelineRejectsInvalidSamples(t *testing.T) {
	proc := &captureProc{}
	p := middleware.NewSamplePipeline(proc, nopMetrics{}, middleware.WithBatteryParams(testParams(5)))

	require.Error(t, p.Process(context.Background(), models.Sample{}), "zero timestamp")
	require.Error(t, p.Process(context.Background(), models.Sample{
		X: math.NaN(), Timestamp: time.Now(),
	}))
	require.Error(t, p.Process(context.Background(), models.Sample{
		Z: math.Inf(1), Timestamp: time.Now(),
	}))
	require.Zero(t, proc.total())
}

func TestPipelineFlushesFullBatch(t *testing.T) {
	proc := &captureProc{}
	p := middleware.NewSamplePipeline(proc, nopMetrics{}, middleware.WithBatteryParams(testParams(3)))

	t0 := time.Now()
	for i := 0; i < 3; i++ {
		s := models.NewSample(0, 0, 9.81, t0.Add(time.Duration(i)*20*time.Millisecond))
		require.NoError(t, p.Process(context.Background(), s))
	}

	require.Len(t, proc.batches, 1)
	require.Len(t, proc.batches[0], 3)
}

func TestPipelineThrottlesToSamplingRate(t *testing.T) {
	proc := &captureProc{}
	params := models.BatteryModeParams{SamplingRateHz: 50, BatchSize: 100, ProcessingInterval: time.Hour}
	p := middleware.NewSamplePipeline(proc, nopMetrics{}, middleware.WithBatteryParams(params))

	// a 1 kHz burst: at 50 Hz only ~1 in 20 samples may pass
	t0 := time.Now()
	for i := 0; i < 100; i++ {
		s := models.NewSample(0, 0, 9.81, t0.Add(time.Duration(i)*time.Millisecond))
		require.NoError(t, p.Process(context.Background(), s))
	}
	p.Start(context.Background())
	p.Stop() // final flush

	require.LessOrEqual(t, proc.total(), 7)
	require.GreaterOrEqual(t, proc.total(), 5)
}

func TestPipelineReconfigureKeepsBufferedSamples(t *testing.T) {
	proc := &captureProc{}
	p := middleware.NewSamplePipeline(proc, nopMetrics{}, middleware.WithBatteryParams(testParams(10)))

	t0 := time.Now()
	for i := 0; i < 4; i++ {
		s := models.NewSample(0, 0, 9.81, t0.Add(time.Duration(i)*20*time.Millisecond))
		require.NoError(t, p.Process(context.Background(), s))
	}
	require.Empty(t, proc.batches)

	// shrink the batch: the 4 buffered samples survive and flush together
	// with the next one
	p.Reconfigure(testParams(3))
	s := models.NewSample(0, 0, 9.81, t0.Add(100*time.Millisecond))
	require.NoError(t, p.Process(context.Background(), s))

	require.Equal(t, 5, proc.total())
}

func TestPipelineStopDeliversRemainder(t *testing.T) {
	proc := &captureProc{}
	p := middleware.NewSamplePipeline(proc, nopMetrics{}, middleware.WithBatteryParams(testParams(10)))
	p.Start(context.Background())

	t0 := time.Now()
	for i := 0; i < 4; i++ {
		s := models.NewSample(0, 0, 9.81, t0.Add(time.Duration(i)*20*time.Millisecond))
		require.NoError(t, p.Process(context.Background(), s))
	}
	p.Stop()

	require.Equal(t, 4, proc.total())
}

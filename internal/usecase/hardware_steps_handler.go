package usecase

import (
	"context"
	"encoding/json"
	"time"

	domrepo "StepFuse/internal/domain/repository"
	pkgkafka "StepFuse/pkg/kafka"
)

// HardwareStepsHandler consumes platform step-counter readings from Kafka
// and feeds them to the fusion arbiter.
type HardwareStepsHandler struct {
	topic   string
	engine  *Engine
	metrics domrepo.Metrics
}

func NewHardwareStepsHandler(topic string, engine *Engine, metrics domrepo.Metrics) *HardwareStepsHandler {
	return &HardwareStepsHandler{topic: topic, engine: engine, metrics: metrics}
}

func (h *HardwareStepsHandler) Topic() string { return h.topic }

// incoming message schema: {steps, t}
func (h *HardwareStepsHandler) Handle(ctx context.Context, b []byte) error {
	var m struct {
		Steps int64 `json:"steps"`
		T     int64 `json:"t"`
	}
	if err := json.Unmarshal(b, &m); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return err
	}
	if m.Steps < 0 {
		// bad reading, not worth a DLQ round trip
		h.metrics.RecordError("consumer_negative_steps")
		return nil
	}

	at := time.Unix(m.T, 0)
	if m.T > 1e11 { // ms
		at = time.UnixMilli(m.T)
	}
	if m.T == 0 {
		at = time.Now()
	}
	h.metrics.RecordLatency("hardware_ingest_e2e_seconds", time.Since(at).Seconds())

	h.engine.HandleHardwareSteps(m.Steps, at)
	return nil
}

var _ pkgkafka.MessageHandler = (*HardwareStepsHandler)(nil)

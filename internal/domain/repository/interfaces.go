package repository

import (
	"context"

	"StepFuse/internal/domain/models"
)

// SensorStream is the raw accelerometer event feed consumed from a
// collaborator (WebSocket or MQTT transport).
type SensorStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan models.Sample, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// Publisher fans fused step updates and state transitions out to external
// consumers. Calls are fire-and-forget from the engine's perspective.
type Publisher interface {
	PublishStepUpdate(ctx context.Context, u models.StepUpdate) error
	PublishWalkingState(ctx context.Context, w models.WalkingStateData) error
	Close() error
}

// ProfileStore is the key-value persistence facility for DetectionConfig
// and UserStepProfile.
type ProfileStore interface {
	SaveProfile(ctx context.Context, p *models.UserStepProfile) error
	LoadProfile(ctx context.Context) (*models.UserStepProfile, error)
	SaveConfig(ctx context.Context, c *models.DetectionConfig) error
	LoadConfig(ctx context.Context) (*models.DetectionConfig, error)
}

// Metrics records operational metrics for the engine.
type Metrics interface {
	RecordSample(source string)
	RecordStep(source string)
	RecordFusionMode(mode string)
	RecordBatteryMode(mode string)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}

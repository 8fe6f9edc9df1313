package repository

import (
	"context"
	"fmt"

	"StepFuse/internal/domain/models"
	"StepFuse/internal/domain/repository"
	"StepFuse/pkg/queue"
)

// Queue message types for calibration persistence.
const (
	MsgSaveProfile = "profile.save"
	MsgSaveConfig  = "config.save"
)

// SaveProfileJob writes a queued calibration profile to the backing store.
type SaveProfileJob struct {
	store repository.ProfileStore
}

func NewSaveProfileJob(store repository.ProfileStore) *SaveProfileJob {
	return &SaveProfileJob{store: store}
}

func (j *SaveProfileJob) Name() string { return "save-profile" }
func (j *SaveProfileJob) Type() string { return MsgSaveProfile }

func (j *SaveProfileJob) Handle(ctx context.Context, payload interface{}) error {
	p, err := queue.ParsePayload[models.UserStepProfile](payload)
	if err != nil {
		return fmt.Errorf("parse profile payload: %w", err)
	}
	return j.store.SaveProfile(ctx, p)
}

// SaveConfigJob writes a queued detection config to the backing store.
type SaveConfigJob struct {
	store repository.ProfileStore
}

func NewSaveConfigJob(store repository.ProfileStore) *SaveConfigJob {
	return &SaveConfigJob{store: store}
}

func (j *SaveConfigJob) Name() string { return "save-config" }
func (j *SaveConfigJob) Type() string { return MsgSaveConfig }

func (j *SaveConfigJob) Handle(ctx context.Context, payload interface{}) error {
	c, err := queue.ParsePayload[models.DetectionConfig](payload)
	if err != nil {
		return fmt.Errorf("parse config payload: %w", err)
	}
	return j.store.SaveConfig(ctx, c)
}

// QueuedProfileStore enqueues writes so persistence failures are retried off
// the engine's hot path; reads go straight to the backing store.
type QueuedProfileStore struct {
	direct repository.ProfileStore
	q      queue.QueueService
}

func NewQueuedProfileStore(direct repository.ProfileStore, q queue.QueueService) repository.ProfileStore {
	return &QueuedProfileStore{direct: direct, q: q}
}

func (s *QueuedProfileStore) SaveProfile(ctx context.Context, p *models.UserStepProfile) error {
	if p == nil {
		return fmt.Errorf("profile nil")
	}
	return s.q.PublishMessage(ctx, MsgSaveProfile, p)
}

func (s *QueuedProfileStore) SaveConfig(ctx context.Context, c *models.DetectionConfig) error {
	if c == nil {
		return fmt.Errorf("config nil")
	}
	return s.q.PublishMessage(ctx, MsgSaveConfig, c)
}

func (s *QueuedProfileStore) LoadProfile(ctx context.Context) (*models.UserStepProfile, error) {
	return s.direct.LoadProfile(ctx)
}

func (s *QueuedProfileStore) LoadConfig(ctx context.Context) (*models.DetectionConfig, error) {
	return s.direct.LoadConfig(ctx)
}

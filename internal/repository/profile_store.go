package repository

import (
	"context"
	"errors"
	"fmt"

	"StepFuse/internal/domain/models"
	"StepFuse/internal/domain/repository"
	"StepFuse/pkg/cache"
)

var (
	profileKey = cache.GenerateKey("profile", "current")
	configKey  = cache.GenerateKey("config", "detection")
)

// CacheProfileStore persists the calibration profile and detection config in
// the cache service. Values have no TTL; each calibration run supersedes the
// previous profile.
type CacheProfileStore struct {
	cache cache.Service
}

// NewCacheProfileStore creates a ProfileStore on top of a cache service.
func NewCacheProfileStore(c cache.Service) repository.ProfileStore {
	return &CacheProfileStore{cache: c}
}

func (s *CacheProfileStore) SaveProfile(ctx context.Context, p *models.UserStepProfile) error {
	if p == nil {
		return fmt.Errorf("profile nil")
	}
	if err := s.cache.Set(ctx, profileKey, p, 0); err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}

// LoadProfile returns (nil, nil) when no profile has been saved yet.
func (s *CacheProfileStore) LoadProfile(ctx context.Context) (*models.UserStepProfile, error) {
	var p models.UserStepProfile
	if err := s.cache.Get(ctx, profileKey, &p); err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return nil, nil
		}
		return nil, fmt.Errorf("load profile: %w", err)
	}
	return &p, nil
}

func (s *CacheProfileStore) SaveConfig(ctx context.Context, c *models.DetectionConfig) error {
	if c == nil {
		return fmt.Errorf("config nil")
	}
	if err := s.cache.Set(ctx, configKey, c, 0); err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	return nil
}

// LoadConfig returns (nil, nil) when no config has been saved yet.
func (s *CacheProfileStore) LoadConfig(ctx context.Context) (*models.DetectionConfig, error) {
	var c models.DetectionConfig
	if err := s.cache.Get(ctx, configKey, &c); err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return nil, nil
		}
		return nil, fmt.Errorf("load config: %w", err)
	}
	return &c, nil
}

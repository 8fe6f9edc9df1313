package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"StepFuse/internal/domain/models"
	internalrepo "StepFuse/internal/repository"
	"StepFuse/pkg/cache"
)

func TestProfileStoreRoundTrip(t *testing.T) {
	store := internalrepo.NewCacheProfileStore(cache.NewMemoryCache())
	ctx := context.Background()

	// empty store: a miss is not an error
	p, err := store.LoadProfile(ctx)
	require.NoError(t, err)
	require.Nil(t, p)

	cfg, err := store.LoadConfig(ctx)
	require.NoError(t, err)
	require.Nil(t, cfg)

	in := &models.UserStepProfile{
		IdleBaseline:    9.8,
		WalkingBaseline: 11.0,
		StepAmplitude:   1.2,
		Style:           models.StyleNormal,
		CalibratedAt:    time.Now().UTC(),
	}
	require.NoError(t, store.SaveProfile(ctx, in))

	out, err := store.LoadProfile(ctx)
	require.NoError(t, err)
	require.NotNil(t, out)
	require.Equal(t, in.IdleBaseline, out.IdleBaseline)
	require.Equal(t, in.Style, out.Style)
}

func TestProfileStoreConfigRoundTrip(t *testing.T) {
	store := internalrepo.NewCacheProfileStore(cache.NewMemoryCache())
	ctx := context.Background()

	in := models.DefaultDetectionConfig().WithSensitivity(0.7)
	in.Calibrated = true
	require.NoError(t, store.SaveConfig(ctx, &in))

	out, err := store.LoadConfig(ctx)
	require.NoError(t, err)
	require.NotNil(t, out)
	require.Equal(t, in, *out)
}

func TestProfileStoreRejectsNil(t *testing.T) {
	store := internalrepo.NewCacheProfileStore(cache.NewMemoryCache())
	require.Error(t, store.SaveProfile(context.Background(), nil))
	require.Error(t, store.SaveConfig(context.Background(), nil))
}

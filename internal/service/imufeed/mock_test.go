package imufeed_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"StepFuse/internal/service/imufeed"
)

func TestMockSourceEmitsGaitSignal(t *testing.T) {
	src := imufeed.NewMock(100, 2.0, 1.2, 0)
	ctx := context.Background()

	require.NoError(t, src.Connect(ctx))
	require.True(t, src.IsConnected())
	require.NoError(t, src.Subscribe(ctx))

	samples, _ := src.Read(ctx)

	var minMag, maxMag float64 = 100, 0
	deadline := time.After(3 * time.Second)
	for i := 0; i < 50; i++ {
		select {
		case s := <-samples:
			require.False(t, s.Timestamp.IsZero())
			if s.Magnitude < minMag {
				minMag = s.Magnitude
			}
			if s.Magnitude > maxMag {
				maxMag = s.Magnitude
			}
		case <-deadline:
			t.Fatal("feed too slow")
		}
	}

	// half a second of a 2 Hz sinusoid must swing around gravity
	require.Less(t, minMag, 9.81)
	require.Greater(t, maxMag, 10.0)

	require.NoError(t, src.Close())
	require.False(t, src.IsConnected())
}

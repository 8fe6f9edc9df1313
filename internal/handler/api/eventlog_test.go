package api_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"StepFuse/internal/handler/api"
	"StepFuse/internal/usecase"
)

func TestEventLogKeepsRecentNewestFirst(t *testing.T) {
	bus := usecase.NewBus()
	log := api.NewEventLog(bus, 3)

	for i := 1; i <= 4; i++ {
		bus.Publish(usecase.EventStepUpdate, i)
		require.Eventually(t, func() bool {
			rows := log.Recent(1)
			return len(rows) == 1 && rows[0].Data == i
		}, time.Second, time.Millisecond, "event %d not drained", i)
	}

	// capacity 3: the first event was evicted by the fourth
	rows := log.Recent(10)
	require.Len(t, rows, 3)
	require.Equal(t, 4, rows[0].Data)
	require.Equal(t, 3, rows[1].Data)
	require.Equal(t, 2, rows[2].Data)

	limited := log.Recent(2)
	require.Len(t, limited, 2)
	require.Equal(t, 4, limited[0].Data)
}

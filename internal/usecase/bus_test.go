package usecase_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"StepFuse/internal/usecase"
)

func TestBusDeliversToSubscribers(t *testing.T) {
	b := usecase.NewBus()
	ch, cancel := b.Subscribe(4)
	defer cancel()

	require.Equal(t, 1, b.Subscribers())
	b.Publish(usecase.EventStepUpdate, 42)

	select {
	case env := <-ch:
		require.Equal(t, usecase.EventStepUpdate, env.Event)
		require.Equal(t, 42, env.Data)
		require.False(t, env.Timestamp.IsZero())
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
	}
}

func TestBusNeverBlocksOnFullSubscriber(t *testing.T) {
	b := usecase.NewBus()
	_, cancel := b.Subscribe(1)
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		b.Publish(usecase.EventStepUpdate, 1)
		b.Publish(usecase.EventStepUpdate, 2)
		b.Publish(usecase.EventStepUpdate, 3)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}
	require.EqualValues(t, 2, b.Dropped())
}

func TestBusCancelClosesChannel(t *testing.T) {
	b := usecase.NewBus()
	ch, cancel := b.Subscribe(1)
	cancel()
	cancel() // idempotent

	_, ok := <-ch
	require.False(t, ok)
	require.Zero(t, b.Subscribers())

	// publishing after cancel reaches nobody and does not panic
	b.Publish(usecase.EventWalkingState, nil)
}

package usecase_test

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"StepFuse/internal/domain/models"
	"StepFuse/internal/usecase"
)

func TestHardwareStepsHandlerFeedsEngine(t *testing.T) {
	e, _ := newTestEngine(t)
	require.NoError(t, e.Start(context.Background()))
	defer e.Stop()

	h := usecase.NewHardwareStepsHandler("steps.hardware", e, nopMetrics{})
	require.Equal(t, "steps.hardware", h.Topic())

	now := time.Now()
	require.NoError(t, h.Handle(context.Background(), []byte(`{"steps":500,"t":`+unixMilli(now)+`}`)))
	require.NoError(t, h.Handle(context.Background(), []byte(`{"steps":507,"t":`+unixMilli(now.Add(time.Second))+`}`)))

	st := e.FusionStatus(now.Add(time.Second))
	require.EqualValues(t, 7, st.Steps[models.SourceHardware.String()])
}

func TestHardwareStepsHandlerBadPayload(t *testing.T) {
	e, _ := newTestEngine(t)
	h := usecase.NewHardwareStepsHandler("steps.hardware", e, nopMetrics{})

	// malformed JSON goes back to the consumer for retry/DLQ
	require.Error(t, h.Handle(context.Background(), []byte(`{steps}`)))

	// a negative reading is swallowed, it would never succeed on retry
	require.NoError(t, h.Handle(context.Background(), []byte(`{"steps":-4}`)))
}

func unixMilli(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}

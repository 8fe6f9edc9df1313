package usecase

import (
	"context"
	"fmt"

	applogger "StepFuse/pkg/logger"
	"StepFuse/pkg/queue"
)

// MsgAggregatedLogs is the queue message type for flushed log aggregates.
const MsgAggregatedLogs = "logs.aggregate"

// AggregatedLogsJob re-emits deduplicated error aggregates flushed by the
// log collector, with their occurrence counts.
type AggregatedLogsJob struct {
	log *applogger.Logger
}

func NewAggregatedLogsJob(log *applogger.Logger) *AggregatedLogsJob {
	return &AggregatedLogsJob{log: log}
}

func (j *AggregatedLogsJob) Name() string { return "aggregated-logs" }
func (j *AggregatedLogsJob) Type() string { return MsgAggregatedLogs }

func (j *AggregatedLogsJob) Handle(ctx context.Context, payload interface{}) error {
	entries, err := queue.ParsePayload[[]applogger.AggregatedLogEntry](payload)
	if err != nil {
		return fmt.Errorf("parse log aggregate payload: %w", err)
	}
	for _, e := range *entries {
		j.log.Info("aggregated error",
			applogger.String("message", e.Message),
			applogger.String("caller", e.Caller),
			applogger.Int("count", e.Count))
	}
	return nil
}

var _ queue.Job = (*AggregatedLogsJob)(nil)

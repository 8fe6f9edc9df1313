package repository

import (
	"context"

	"StepFuse/internal/domain/models"
	"StepFuse/internal/domain/repository"
	pkgkafka "StepFuse/pkg/kafka"
)

// KafkaStepPublisher implements Publisher for Kafka.
type KafkaStepPublisher struct {
	producer   *pkgkafka.Producer
	stepTopic  string
	stateTopic string
}

// NewKafkaStepPublisher creates a Kafka publisher for step and state events.
func NewKafkaStepPublisher(producer *pkgkafka.Producer, stepTopic, stateTopic string) repository.Publisher {
	return &KafkaStepPublisher{producer: producer, stepTopic: stepTopic, stateTopic: stateTopic}
}

func (p *KafkaStepPublisher) PublishStepUpdate(ctx context.Context, u models.StepUpdate) error {
	return p.producer.Publish(ctx, p.stepTopic, []byte("steps"), map[string]interface{}{
		"steps": u.Steps,
		"mode":  u.ModeName,
		"t":     u.Timestamp.UnixMilli(),
	})
}

func (p *KafkaStepPublisher) PublishWalkingState(ctx context.Context, w models.WalkingStateData) error {
	return p.producer.Publish(ctx, p.stateTopic, []byte("state"), map[string]interface{}{
		"state":             w.StateName,
		"consecutive_steps": w.ConsecutiveSteps,
		"confidence":        w.Confidence,
		"message":           w.Message,
		"t":                 w.Timestamp.UnixMilli(),
	})
}

func (p *KafkaStepPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

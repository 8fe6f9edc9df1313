package di

import (
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"StepFuse/internal/domain/models"
	"StepFuse/internal/domain/repository"
	"StepFuse/internal/handler/api"
	mid "StepFuse/internal/middleware"
	internalrepo "StepFuse/internal/repository"
	"StepFuse/internal/service/imufeed"
	"StepFuse/internal/service/mqttfeed"
	"StepFuse/internal/usecase"
	"StepFuse/pkg/cache"
	"StepFuse/pkg/config"
	pkgkafka "StepFuse/pkg/kafka"
	applogger "StepFuse/pkg/logger"
	"StepFuse/pkg/metrics"
	pkgqueue "StepFuse/pkg/queue"
	"StepFuse/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	format := "json"
	if cfg.Environment == "dev" || cfg.Environment == "local" {
		format = "console"
	}
	return applogger.New(&applogger.Config{Level: "info", Format: format, Output: "stdout"})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideCache creates the persistence cache: Redis with an in-process layer
// when enabled, memory-only otherwise.
func ProvideCache(cfg *config.Config) (cache.Service, error) {
	if !cfg.Redis.Enabled {
		return cache.NewMemoryCache(), nil
	}
	prefix := cfg.Redis.Prefix
	if prefix == "" {
		prefix = "stepfuse"
	}
	rc, err := cache.NewRedisCache(
		cache.WithRedisHost(cfg.Redis.Host),
		cache.WithRedisPort(cfg.Redis.Port),
		cache.WithRedisPassword(cfg.Redis.Password),
		cache.WithRedisDB(cfg.Redis.DB),
		cache.WithRedisPrefix(prefix),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return cache.NewLayeredCache(rc), nil
}

// ProvidePersistQueue creates the Redis-backed persistence job queue, nil
// when Redis is disabled.
func ProvidePersistQueue(cfg *config.Config, l *applogger.Logger) *pkgqueue.RedisQueue {
	if !cfg.Redis.Enabled {
		return nil
	}
	prefix := cfg.Redis.Prefix
	if prefix == "" {
		prefix = "stepfuse"
	}
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	return pkgqueue.NewRedisQueue(l,
		&pkgqueue.QueueConfig{Workers: 1, QueueSize: 128, RetryLimit: 3, RetryDelay: 2 * time.Second},
		client,
		pkgqueue.ModeProducerConsumer,
		pkgqueue.WithKeyPrefix(prefix+":queue"),
	)
}

// ProvideProfileStore creates the calibration persistence repository. With a
// queue available, writes are enqueued and retried by the queue workers.
func ProvideProfileStore(c cache.Service, q *pkgqueue.RedisQueue) repository.ProfileStore {
	direct := internalrepo.NewCacheProfileStore(c)
	if q == nil {
		return direct
	}
	q.RegisterJobs([]pkgqueue.Job{
		internalrepo.NewSaveProfileJob(direct),
		internalrepo.NewSaveConfigJob(direct),
	})
	return internalrepo.NewQueuedProfileStore(direct, q)
}

// ProvideKafkaProducer creates a Kafka producer, nil when Kafka is disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideStepPublisher creates the Kafka-backed event publisher, nil when
// Kafka is disabled.
func ProvideStepPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.Publisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaStepPublisher(producer, cfg.Kafka.StepTopic, cfg.Kafka.StateTopic)
}

// ProvideKafkaConsumer creates the hardware step-count consumer, nil when
// not configured.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled || cfg.Kafka.HardwareTopic == "" {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideBus creates the engine event bus.
func ProvideBus() *usecase.Bus {
	return usecase.NewBus()
}

// ProvideEngine creates the detection engine.
func ProvideEngine(
	l *applogger.Logger,
	m repository.Metrics,
	store repository.ProfileStore,
	pub repository.Publisher,
	bus *usecase.Bus,
	cfg *config.Config,
) *usecase.Engine {
	engine := usecase.NewEngine(l, m, store, pub, bus)
	if cfg.Engine.Sensitivity > 0 {
		engine.SetSensitivity(cfg.Engine.Sensitivity)
	}
	return engine
}

// ProvideSensorStream creates the configured accelerometer feed.
func ProvideSensorStream(cfg *config.Config) repository.SensorStream {
	switch cfg.Feed.Type {
	case "mqtt":
		return mqttfeed.New(
			cfg.Feed.MQTT.BrokerURL,
			cfg.Feed.MQTT.ClientID,
			cfg.Feed.MQTT.Topic,
			byte(cfg.Feed.MQTT.QoS),
		)
	case "mock":
		return imufeed.NewMock(
			cfg.Feed.Mock.RateHz,
			cfg.Feed.Mock.StepHz,
			cfg.Feed.Mock.Amplitude,
			cfg.Feed.Mock.Noise,
		)
	default:
		return imufeed.New(
			cfg.Feed.WebSocket.URL,
			cfg.Feed.WebSocket.DeviceID,
			cfg.Feed.WebSocket.ReconnectDelay,
			cfg.Feed.WebSocket.PingInterval,
		)
	}
}

// ProvideSampleCollector wires the feed through the battery-gated pipeline
// into the engine.
func ProvideSampleCollector(
	stream repository.SensorStream,
	engine *usecase.Engine,
	m repository.Metrics,
) *usecase.SampleCollector {
	pipe := mid.NewSamplePipeline(engine, m)
	engine.OnBatteryChange(func(_ models.BatteryMode, params models.BatteryModeParams) {
		pipe.Reconfigure(params)
	})
	return usecase.NewSampleCollector(stream, m, pipe)
}

// ProvideHardwareStepsHandler registers the hardware step-count handler.
func ProvideHardwareStepsHandler(engine *usecase.Engine, m repository.Metrics, cfg *config.Config) pkgkafka.MessageHandler {
	if !cfg.Kafka.Enabled || cfg.Kafka.HardwareTopic == "" {
		return nil
	}
	return usecase.NewHardwareStepsHandler(cfg.Kafka.HardwareTopic, engine, m)
}

// ProvideEngineHandler creates the control API handler.
func ProvideEngineHandler(
	l *applogger.Logger,
	engine *usecase.Engine,
	collector *usecase.SampleCollector,
	bus *usecase.Bus,
) *api.EngineEchoHandler {
	return api.NewEngineEchoHandler(l, engine, collector, bus)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	engine *usecase.Engine,
	collector *usecase.SampleCollector,
	consumer *pkgkafka.Consumer,
	kh pkgkafka.MessageHandler,
	pub repository.Publisher,
	q *pkgqueue.RedisQueue,
	handler *api.EngineEchoHandler,
) *server.App {
	if consumer != nil {
		consumer.WithConsumerHook(pkgkafka.NoopHook{})
	}
	if q != nil {
		q.RegisterJob(usecase.NewAggregatedLogsJob(l))
		l.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   30 * time.Second,
			CountThreshold: 100,
			Topic:          usecase.MsgAggregatedLogs,
			Publisher:      q,
		})
	}
	app := server.New(cfg, l, engine, collector, consumer, kh, pub, q)
	app.SetHTTPHandler(handler)
	return app
}

//go:build wireinject
// +build wireinject

package di

import (
	"StepFuse/pkg/config"
	"StepFuse/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideCache,
		ProvidePersistQueue,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,

		// Repositories
		ProvideProfileStore,
		ProvideStepPublisher,
		ProvideSensorStream,

		// Use cases
		ProvideBus,
		ProvideEngine,
		ProvideSampleCollector,
		ProvideHardwareStepsHandler,

		// HTTP
		ProvideEngineHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}

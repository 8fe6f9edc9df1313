package server

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"StepFuse/internal/domain/repository"
	"StepFuse/internal/usecase"
	"StepFuse/pkg/config"
	xhttp "StepFuse/pkg/http"
	pkgkafka "StepFuse/pkg/kafka"
	applogger "StepFuse/pkg/logger"
	pkgqueue "StepFuse/pkg/queue"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg         *config.Config
	log         *applogger.Logger
	engine      *usecase.Engine
	collector   *usecase.SampleCollector
	consumer    *pkgkafka.Consumer
	kh          pkgkafka.MessageHandler
	pub         repository.Publisher
	queue       *pkgqueue.RedisQueue
	httpServer  *xhttp.Server
	httpHandler xhttp.Handler
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	l *applogger.Logger,
	engine *usecase.Engine,
	collector *usecase.SampleCollector,
	consumer *pkgkafka.Consumer,
	kh pkgkafka.MessageHandler,
	pub repository.Publisher,
	q *pkgqueue.RedisQueue,
) *App {
	return &App{
		cfg:       cfg,
		log:       l,
		engine:    engine,
		collector: collector,
		consumer:  consumer,
		kh:        kh,
		pub:       pub,
		queue:     q,
	}
}

// SetHTTPHandler allows DI to inject an HTTP handler.
func (a *App) SetHTTPHandler(h xhttp.Handler) { a.httpHandler = h }

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := a.log
	if l == nil {
		l, _ = applogger.New(&applogger.Config{Level: "info", Format: "console", Output: "stdout"})
	}

	a.httpServer = xhttp.NewServer(a.httpHandler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)

	// Start persistence queue workers
	if a.queue != nil {
		if err := a.queue.Start(); err != nil {
			l.Error("queue start error", applogger.Error(err))
			return err
		}
		a.queue.StartRetryProcessor()
	}

	// Engine starts tracking immediately; the API can stop/start it later.
	if err := a.engine.Start(ctx); err != nil {
		l.Error("engine start error", applogger.Error(err))
		return err
	}

	// Start feed collector
	go func() {
		if err := a.collector.Start(ctx); err != nil {
			l.Error("collector error", applogger.Error(err))
		}
	}()
	l.Info("collector started", applogger.String("feed", a.cfg.Feed.Type))

	// Start hardware step consumer if configured
	if a.consumer != nil && a.kh != nil {
		a.consumer.RegisterHandler(a.kh)
		go func() {
			if err := a.consumer.Start(); err != nil {
				l.Error("kafka consumer error", applogger.Error(err))
			}
		}()
		l.Info("kafka consumer started", applogger.String("topic", a.kh.Topic()))
	}

	// Start HTTP server
	if err := a.httpServer.Start(); err != nil {
		l.Error("http server start error", applogger.Error(err))
		return err
	}

	// Wait for interrupt
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	l.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context) error {
	l := a.log
	if l == nil {
		var err error
		l, err = applogger.New(&applogger.Config{Level: "info", Format: "console", Output: "stdout"})
		if err != nil {
			log.Printf("failed to create logger: %v", err)
			return err
		}
	}
	l.Info("shutting down...")

	// Stop collector (pipeline + stream)
	if err := a.collector.Shutdown(ctx); err != nil {
		l.Warn("collector stop error", applogger.Error(err))
	}

	// Stop the engine; no sample mutates state after this returns
	a.engine.Stop()

	// Shutdown HTTP server
	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		l.Error("http shutdown error", applogger.Error(err))
	}

	// Stop consumer
	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			l.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	// Drain persistence queue
	if a.queue != nil {
		if err := a.queue.Stop(ctx); err != nil {
			l.Warn("queue stop error", applogger.Error(err))
		}
	}

	// Close producer-backed publisher
	if a.pub != nil {
		if err := a.pub.Close(); err != nil {
			l.Warn("publisher close error", applogger.Error(err))
		}
	}

	l.Info("shutdown complete")
	return nil
}
